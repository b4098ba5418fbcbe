// Package models fetches whisper ggml model files from HuggingFace into
// the local models directory.
package models

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/chaz8081/govoicekey/internal/config"
)

const whisperRepoURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

// knownModels maps short model names to approximate download sizes,
// shown before the fetch starts.
var knownModels = map[string]string{
	"tiny.en":  "~75 MB",
	"tiny":     "~75 MB",
	"base.en":  "~142 MB",
	"base":     "~142 MB",
	"small.en": "~466 MB",
	"small":    "~466 MB",
	"medium":   "~1.5 GB",
	"large-v3": "~2.9 GB",
}

// DownloadWhisper fetches the named whisper model (e.g. "base.en") into
// the default models directory and returns the installed path. An
// existing non-empty file is left untouched.
func DownloadWhisper(name string) (string, error) {
	if name == "" {
		name = "base.en"
	}
	if _, ok := knownModels[name]; !ok {
		return "", fmt.Errorf("models: unknown model %q (known: %s)", name, strings.Join(modelNames(), ", "))
	}

	modelsDir := config.DefaultModelsDir()
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		return "", fmt.Errorf("models: creating models dir: %w", err)
	}

	fileName := "ggml-" + name + ".bin"
	destPath := filepath.Join(modelsDir, fileName)

	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		fmt.Printf("  Model already exists: %s (%.0f MB)\n", destPath, float64(info.Size())/(1024*1024))
		return destPath, nil
	}

	url := whisperRepoURL + "/" + fileName
	fmt.Printf("  Downloading %s (%s)\n", fileName, knownModels[name])
	fmt.Printf("  URL: %s\n", url)
	fmt.Printf("  Destination: %s\n", destPath)

	if err := fetch(url, destPath); err != nil {
		return "", err
	}
	return destPath, nil
}

// fetch downloads url to destPath via a temp file so a partial download
// never masquerades as a complete model.
func fetch(url, destPath string) error {
	resp, err := http.Get(url) //nolint:gosec // URL is built from a compile-time base
	if err != nil {
		return fmt.Errorf("models: downloading: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("models: download failed: HTTP %d", resp.StatusCode)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("models: creating temp file: %w", err)
	}

	pr := &progressWriter{
		writer: f,
		total:  resp.ContentLength,
		label:  filepath.Base(destPath),
	}

	written, err := io.Copy(pr, resp.Body)
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("models: writing model file: %w", err)
	}

	fmt.Printf("\n  Downloaded %.1f MB\n", float64(written)/(1024*1024))

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("models: moving model file: %w", err)
	}
	return nil
}

func modelNames() []string {
	names := make([]string, 0, len(knownModels))
	for name := range knownModels {
		names = append(names, name)
	}
	return names
}

// progressWriter wraps an io.Writer and prints download progress.
type progressWriter struct {
	writer  io.Writer
	total   int64
	written int64
	label   string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.total > 0 {
		pct := float64(pw.written) / float64(pw.total) * 100
		fmt.Printf("\r  %s: %.1f MB / %.1f MB (%.0f%%)",
			pw.label,
			float64(pw.written)/(1024*1024),
			float64(pw.total)/(1024*1024),
			pct)
	} else {
		fmt.Printf("\r  %s: %.1f MB downloaded",
			pw.label,
			float64(pw.written)/(1024*1024))
	}
	return n, err
}
