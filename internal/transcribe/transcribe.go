// Package transcribe provides speech-to-text backends.
//
// Supported backends:
//   - whisper: local whisper.cpp via Go bindings (default)
//   - openai: OpenAI audio transcription API
package transcribe

import (
	"fmt"

	"github.com/chaz8081/govoicekey/internal/config"
)

// Transcriber converts audio samples to text. Process blocks, possibly
// for several seconds; callers run it off the event-handling path.
type Transcriber interface {
	// Process transcribes mono 16kHz float32 samples in [-1, 1] to text.
	// An empty string with a nil error means no speech was detected.
	Process(samples []float32) (string, error)
	// Close releases backend resources.
	Close() error
}

// New creates a Transcriber based on the config backend setting.
func New(cfg *config.TranscribeConfig) (Transcriber, error) {
	switch cfg.Backend {
	case "openai":
		return NewOpenAITranscriber(cfg.OpenAI, cfg.Language)
	case "whisper", "":
		return NewWhisperTranscriber(cfg.ModelPath, cfg.Language)
	default:
		return nil, fmt.Errorf("transcribe: unknown backend %q (supported: whisper, openai)", cfg.Backend)
	}
}
