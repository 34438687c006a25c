// Package recognizer defines the speech recognition collaborator: the
// aligned result types, the Recognizer interface, an HTTP-backed client, and
// a scripted mock for tests.
package recognizer
