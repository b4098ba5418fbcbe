package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Hotkey     HotkeyConfig     `yaml:"hotkey"`
	Audio      AudioConfig      `yaml:"audio"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
	Inject     InjectConfig     `yaml:"inject"`
	BLE        BLEConfig        `yaml:"ble"`
	LogLevel   string           `yaml:"log_level"`
}

// HotkeyConfig holds the push-to-talk chord settings.
type HotkeyConfig struct {
	Keys []string `yaml:"keys"`
}

// AudioConfig holds capture pipeline settings. The device's native rate
// and channel count are queried at open time, not configured here.
type AudioConfig struct {
	TargetSampleRate int    `yaml:"target_sample_rate"` // rate handed to the transcriber
	MinDurationMs    int    `yaml:"min_duration_ms"`    // captures shorter than this are discarded
	DumpDir          string `yaml:"dump_dir"`           // optional: save each capture as WAV
}

// TranscribeConfig selects and configures the speech-to-text backend.
type TranscribeConfig struct {
	Backend   string       `yaml:"backend"` // "whisper" or "openai"
	ModelPath string       `yaml:"model_path"`
	Language  string       `yaml:"language"` // e.g. "en"; empty = auto
	OpenAI    OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig holds remote transcription settings. The API key is read
// from the named environment variable, never stored in the file.
type OpenAIConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
}

// InjectConfig holds text injection settings.
type InjectConfig struct {
	Method string `yaml:"method"` // "type", "paste", or "ble"
}

// BLEConfig identifies the paired keyboard-bridge peripheral, used only
// when inject.method is "ble".
type BLEConfig struct {
	Device string `yaml:"device"` // peripheral address (UUID on macOS)
	Key    string `yaml:"key"`    // hex-encoded 32-byte pre-shared key
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "govoicekey")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultModelsDir returns where downloaded models are stored.
func DefaultModelsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "govoicekey", "models")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Hotkey: HotkeyConfig{
			Keys: []string{"ctrl", "shift", "space"},
		},
		Audio: AudioConfig{
			TargetSampleRate: 16000,
			MinDurationMs:    300,
		},
		Transcribe: TranscribeConfig{
			Backend:   "whisper",
			ModelPath: filepath.Join(DefaultModelsDir(), "ggml-base.en.bin"),
			Language:  "en",
			OpenAI: OpenAIConfig{
				APIKeyEnv: "OPENAI_API_KEY",
				Model:     "whisper-1",
			},
		},
		Inject: InjectConfig{
			Method: "type",
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in paths is expanded to the home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Transcribe.ModelPath = expandTilde(cfg.Transcribe.ModelPath)
	cfg.Audio.DumpDir = expandTilde(cfg.Audio.DumpDir)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if len(c.Hotkey.Keys) == 0 {
		return fmt.Errorf("hotkey.keys must not be empty")
	}

	if c.Audio.TargetSampleRate <= 0 {
		return fmt.Errorf("audio.target_sample_rate must be > 0")
	}
	if c.Audio.MinDurationMs < 0 {
		return fmt.Errorf("audio.min_duration_ms must be >= 0")
	}

	switch c.Transcribe.Backend {
	case "whisper":
		if c.Transcribe.ModelPath == "" {
			return fmt.Errorf("transcribe.model_path must not be empty for the whisper backend")
		}
	case "openai":
		if c.Transcribe.OpenAI.APIKeyEnv == "" {
			return fmt.Errorf("transcribe.openai.api_key_env must not be empty for the openai backend")
		}
	default:
		return fmt.Errorf("transcribe.backend must be \"whisper\" or \"openai\", got %q", c.Transcribe.Backend)
	}

	switch c.Inject.Method {
	case "type", "paste":
	case "ble":
		if c.BLE.Device == "" {
			return fmt.Errorf("ble.device must be set when inject.method is \"ble\"")
		}
		if c.BLE.Key == "" {
			return fmt.Errorf("ble.key must be set when inject.method is \"ble\"")
		}
	default:
		return fmt.Errorf("inject.method must be \"type\", \"paste\", or \"ble\", got %q", c.Inject.Method)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
