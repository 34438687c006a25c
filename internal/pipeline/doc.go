// Package pipeline wires the ingress queue, chunk assembler, and recognizer
// into a single consumer loop, and owns the shared transcription state and
// the cooperative shutdown sequence.
package pipeline
