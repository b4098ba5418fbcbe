package transcribe

import (
	"fmt"
	"io"
	"strings"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// blankAudioMarker is whisper's token for captures with no speech.
const blankAudioMarker = "[BLANK_AUDIO]"

// WhisperTranscriber wraps a whisper.cpp model for local speech-to-text.
type WhisperTranscriber struct {
	model    whisper.Model
	language string
}

// NewWhisperTranscriber loads a whisper ggml model from the given path.
// The caller must call Close() when done.
func NewWhisperTranscriber(modelPath, language string) (*WhisperTranscriber, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: load whisper model %q: %w", modelPath, err)
	}
	return &WhisperTranscriber{model: model, language: language}, nil
}

// Close releases the whisper model resources.
func (t *WhisperTranscriber) Close() error {
	if t.model != nil {
		return t.model.Close()
	}
	return nil
}

// Process transcribes mono 16kHz float32 audio samples to text.
// Returns "" for captures whisper marks as blank audio.
func (t *WhisperTranscriber) Process(samples []float32) (string, error) {
	ctx, err := t.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("transcribe: create context: %w", err)
	}

	if t.language != "" && t.language != "auto" {
		if err := ctx.SetLanguage(t.language); err != nil {
			return "", fmt.Errorf("transcribe: set language %q: %w", t.language, err)
		}
	}

	if err := ctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("transcribe: process: %w", err)
	}

	var segments []string
	for {
		seg, err := ctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("transcribe: next segment: %w", err)
		}
		segments = append(segments, seg.Text)
	}

	return cleanTranscript(strings.Join(segments, " ")), nil
}

// cleanTranscript trims whitespace and drops the blank-audio marker so
// silence produces an empty result instead of literal bracket text.
func cleanTranscript(text string) string {
	text = strings.ReplaceAll(text, blankAudioMarker, "")
	return strings.TrimSpace(text)
}
