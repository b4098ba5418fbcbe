package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// DumpWAV writes mono float32 samples as a 16-bit PCM WAV file under dir,
// named by the capture start time. Used as a debug facility to inspect
// what the pipeline actually handed to the transcriber. Returns the
// written path.
func DumpWAV(dir string, samples []float32, rate int, startedAt time.Time) (string, error) {
	if rate <= 0 {
		return "", fmt.Errorf("audio: invalid dump sample rate %d", rate)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("audio: creating dump dir: %w", err)
	}

	path := filepath.Join(dir, startedAt.Format("capture-20060102-150405.000")+".wav")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("audio: creating dump file: %w", err)
	}

	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		buf.Data[i] = int(s * 32767)
	}

	if err := enc.Write(buf); err != nil {
		f.Close()
		return "", fmt.Errorf("audio: writing dump samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return "", fmt.Errorf("audio: finalizing dump file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("audio: closing dump file: %w", err)
	}
	return path, nil
}
