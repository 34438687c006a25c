// Package export renders accumulated transcription results to plain text,
// SubRip subtitles, and JSON.
package export
