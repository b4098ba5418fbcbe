package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/chaz8081/govoicekey/internal/config"
)

// openaiRequestTimeout bounds a single transcription HTTP call. The
// capture state machine imposes no job timeout of its own, but a hung
// network request should not wedge the pipeline forever.
const openaiRequestTimeout = 60 * time.Second

// OpenAITranscriber sends captured audio to the OpenAI transcription API.
type OpenAITranscriber struct {
	client   openai.Client
	model    string
	language string
}

// NewOpenAITranscriber builds the remote backend. The API key is read
// from the environment variable named in the config; a missing key is a
// startup error, not a per-capture one.
func NewOpenAITranscriber(cfg config.OpenAIConfig, language string) (*OpenAITranscriber, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("transcribe: environment variable %s is not set", cfg.APIKeyEnv)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithRequestTimeout(openaiRequestTimeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "whisper-1"
	}

	return &OpenAITranscriber{
		client:   openai.NewClient(opts...),
		model:    model,
		language: language,
	}, nil
}

// Close is a no-op; the HTTP client holds no resources worth releasing.
func (t *OpenAITranscriber) Close() error {
	return nil
}

// Process encodes the samples as a 16-bit WAV and uploads them for
// transcription.
func (t *OpenAITranscriber) Process(samples []float32) (string, error) {
	wavData := encodeWAV(samples, 16000)

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(wavData), "capture.wav", "audio/wav"),
		Model: openai.AudioModel(t.model),
	}
	if t.language != "" && t.language != "auto" {
		params.Language = openai.String(t.language)
	}

	resp, err := t.client.Audio.Transcriptions.New(context.Background(), params)
	if err != nil {
		return "", fmt.Errorf("transcribe: openai request: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}
