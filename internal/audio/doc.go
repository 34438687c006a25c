// Package audio contains the buffering core of the pipeline: the ingress
// frame queue, the overlap-aware chunk assembler, sample normalization, and
// the session WAV recorder.
package audio
