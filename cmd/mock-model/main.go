// A stand-in transcription endpoint for local development. Accepts the
// multipart request the pipeline sends and returns a canned aligned
// result spanning the uploaded audio's duration.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PierreVannier/parakeet-transcript/internal/recognizer"
)

var (
	addr    = flag.String("addr", ":9000", "Listen address")
	delay   = flag.Duration("delay", 200*time.Millisecond, "Simulated processing time per request")
	phrase  = flag.String("phrase", "this is a mock transcription of the audio chunk", "Text returned for every request")
	listFmt = flag.Bool("list", false, "Wrap the response in a single-element JSON list")
)

func transcribeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	requestID := r.FormValue("request_id")
	duration := parseFloat64(r.FormValue("duration"))
	sampleRate := r.FormValue("sample_rate")
	model := r.FormValue("model")
	language := r.FormValue("language")

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	log.Printf("Transcription request: id=%s duration=%.2fs sample_rate=%s model=%s language=%s file=%s (%d bytes)",
		requestID, duration, sampleRate, model, language, header.Filename, len(audioData))

	time.Sleep(*delay)

	result := cannedResult(*phrase, duration)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if *listFmt {
		json.NewEncoder(w).Encode([]recognizer.AlignedResult{result})
	} else {
		json.NewEncoder(w).Encode(result)
	}

	log.Printf("Response sent: %q", result.Text)
}

// cannedResult spreads the phrase's words evenly across the audio duration
// so timestamp handling downstream has something realistic to chew on.
func cannedResult(text string, duration float64) recognizer.AlignedResult {
	if duration <= 0 {
		duration = 1
	}

	words := strings.Fields(text)
	tokens := make([]recognizer.Token, len(words))
	step := duration / float64(len(words))
	for i, word := range words {
		start := float64(i) * step
		tokens[i] = recognizer.Token{
			Text:     word,
			Start:    round3(start),
			End:      round3(start + step),
			Duration: round3(step),
		}
	}

	return recognizer.AlignedResult{
		Text: text,
		Sentences: []recognizer.Sentence{
			{
				Text:     text,
				Start:    0,
				End:      round3(duration),
				Duration: round3(duration),
				Tokens:   tokens,
			},
		},
	}
}

func round3(v float64) float64 {
	return float64(int(v*1000+0.5)) / 1000
}

func parseFloat64(s string) float64 {
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return val
}

func main() {
	flag.Parse()

	http.HandleFunc("/transcribe", transcribeHandler)

	log.Printf("Mock transcription server starting on %s", *addr)
	log.Printf("Point the pipeline at: http://localhost%s/transcribe", *addr)
	fmt.Println()

	if err := http.ListenAndServe(*addr, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
