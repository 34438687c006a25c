// Package capture produces audio frames from an input device or a WAV
// file and hands them to the pipeline ingress.
package capture
