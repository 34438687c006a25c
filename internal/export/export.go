package export

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PierreVannier/parakeet-transcript/internal/recognizer"
)

// Known output formats.
const (
	FormatText = "txt"
	FormatSRT  = "srt"
	FormatJSON = "json"
)

// NormalizeFormats expands "all" and validates a comma-separated format
// selection, preserving order and dropping duplicates.
func NormalizeFormats(selection string) ([]string, error) {
	parts := strings.Split(strings.ToLower(selection), ",")

	var formats []string
	seen := make(map[string]bool)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "all":
			return []string{FormatText, FormatSRT, FormatJSON}, nil
		case FormatText, FormatSRT, FormatJSON:
			if !seen[part] {
				seen[part] = true
				formats = append(formats, part)
			}
		default:
			return nil, fmt.Errorf("unknown output format %q (valid: txt, srt, json, all)", part)
		}
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("no output formats selected")
	}
	return formats, nil
}

// Exporter writes transcription results into an output directory.
type Exporter struct {
	dir     string
	formats []string
	logger  *slog.Logger
}

// NewExporter creates an exporter for the given directory and formats.
func NewExporter(dir string, formats []string, logger *slog.Logger) *Exporter {
	return &Exporter{dir: dir, formats: formats, logger: logger}
}

// Save writes one file per configured format and returns the written paths.
// An empty result set writes nothing.
func (e *Exporter) Save(results []recognizer.AlignedResult) ([]string, error) {
	if len(results) == 0 {
		e.logger.Info("No transcriptions to save")
		return nil, nil
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", e.dir, err)
	}

	base := filepath.Join(e.dir, "transcription_"+time.Now().Format("20060102_150405"))

	var paths []string
	for _, format := range e.formats {
		path := base + "." + format
		if err := e.writeFile(path, format, results); err != nil {
			return paths, err
		}
		e.logger.Info("Saved transcript", slog.String("path", path))
		paths = append(paths, path)
	}
	return paths, nil
}

func (e *Exporter) writeFile(path, format string, results []recognizer.AlignedResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	switch format {
	case FormatText:
		err = WriteText(f, results)
	case FormatSRT:
		err = WriteSRT(f, results)
	case FormatJSON:
		err = WriteJSON(f, results)
	default:
		err = fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteText renders one line per sentence: [MM:SS - MM:SS] <text>.
func WriteText(w io.Writer, results []recognizer.AlignedResult) error {
	for _, result := range results {
		for _, sentence := range result.Sentences {
			_, err := fmt.Fprintf(w, "[%s - %s] %s\n",
				Clock(sentence.Start), Clock(sentence.End), sentence.Text)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteSRT renders SubRip subtitles: a 1-based index, an
// HH:MM:SS,mmm --> HH:MM:SS,mmm range, the sentence text, and a blank
// separator line.
func WriteSRT(w io.Writer, results []recognizer.AlignedResult) error {
	index := 1
	for _, result := range results {
		for _, sentence := range result.Sentences {
			_, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n",
				index, srtTimestamp(sentence.Start), srtTimestamp(sentence.End), sentence.Text)
			if err != nil {
				return err
			}
			index++
		}
	}
	return nil
}

// WriteJSON renders the full sentence and token alignment, two-space
// indented.
func WriteJSON(w io.Writer, results []recognizer.AlignedResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Clock formats seconds as MM:SS for display and plain-text export.
func Clock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", int(seconds)/60, int(seconds)%60)
}

// srtTimestamp formats seconds as HH:MM:SS,mmm with millisecond rounding.
func srtTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMs := int(math.Round(seconds * 1000))
	return fmt.Sprintf("%02d:%02d:%02d,%03d",
		totalMs/3600000, totalMs%3600000/60000, totalMs%60000/1000, totalMs%1000)
}
