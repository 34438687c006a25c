package main

import (
	"fmt"
	"io"

	"github.com/PierreVannier/parakeet-transcript/internal/audio"
	"github.com/PierreVannier/parakeet-transcript/internal/export"
	"github.com/PierreVannier/parakeet-transcript/internal/pipeline"
)

// ANSI escape sequences for the live terminal display.
const (
	ansiReset  = "\033[0m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiDim    = "\033[2m"
)

// display renders recognition updates to the terminal. Interim segments
// show as provisional yellow lines, full chunks as green lines with
// per-sentence session timestamps.
type display struct {
	out   io.Writer
	color bool
}

func newDisplay(out io.Writer, color bool) *display {
	return &display{out: out, color: color}
}

func (d *display) paint(code, s string) string {
	if !d.color {
		return s
	}
	return code + s + ansiReset
}

// Render is the worker's display hook. Called from the consumer
// goroutine only.
func (d *display) Render(u pipeline.Update) {
	text := u.Result.Text
	if text == "" {
		return
	}

	rtf := d.paint(ansiDim, fmt.Sprintf("(RTF %.2f)", u.RTF))

	if u.Kind == audio.KindInterim {
		fmt.Fprintf(d.out, "%s %s %s\n", d.paint(ansiYellow, "INTERIM"), rtf, text)
		return
	}

	fmt.Fprintf(d.out, "%s %s %s\n", d.paint(ansiGreen, "FINAL"), rtf, text)
	for _, sentence := range u.Result.Sentences {
		fmt.Fprintf(d.out, "  %s %s\n",
			d.paint(ansiDim, fmt.Sprintf("[%s - %s]", export.Clock(sentence.Start), export.Clock(sentence.End))),
			sentence.Text)
	}
}
