package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chaz8081/govoicekey/internal/audio"
	"github.com/chaz8081/govoicekey/internal/ble"
	"github.com/chaz8081/govoicekey/internal/capture"
	"github.com/chaz8081/govoicekey/internal/config"
	"github.com/chaz8081/govoicekey/internal/hotkey"
	"github.com/chaz8081/govoicekey/internal/inject"
	"github.com/chaz8081/govoicekey/internal/logging"
	"github.com/chaz8081/govoicekey/internal/models"
	"github.com/chaz8081/govoicekey/internal/notify"
	"github.com/chaz8081/govoicekey/internal/transcribe"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/govoicekey/config.yaml)")
	downloadModel := flag.String("download-model", "", "download a whisper model (e.g. base.en) and exit")
	listDevices := flag.Bool("list-devices", false, "list audio input devices and exit")
	bleScan := flag.Bool("ble-scan", false, "scan for keyboard-bridge peripherals and exit")
	flag.Parse()

	if *downloadModel != "" {
		path, err := models.DownloadWhisper(*downloadModel)
		if err != nil {
			log.Fatalf("download: %v", err)
		}
		fmt.Printf("Model installed: %s\n", path)
		return
	}

	if *listDevices {
		if err := printInputDevices(); err != nil {
			log.Fatalf("list devices: %v", err)
		}
		return
	}

	if *bleScan {
		if err := scanBridges(); err != nil {
			log.Fatalf("ble scan: %v", err)
		}
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	slog.SetDefault(logging.New(cfg.LogLevel))
	printBanner(cfg)

	log.Println("Loading transcription backend...")
	backendStart := time.Now()
	transcriber, err := transcribe.New(&cfg.Transcribe)
	if err != nil {
		log.Fatalf("Failed to initialize transcription: %v\n\nFor the whisper backend, check the model exists at: %s\nRun 'govoicekey -download-model base.en' to fetch it.", err, cfg.Transcribe.ModelPath)
	}
	log.Printf("Transcription ready in %s (backend: %s)", time.Since(backendStart).Round(time.Millisecond), cfg.Transcribe.Backend)

	engine, err := audio.NewEngine()
	if err != nil {
		transcriber.Close()
		log.Fatalf("Failed to initialize audio: %v\n\nEnsure microphone access is granted in your system's privacy settings.", err)
	}
	log.Println("Audio engine ready")

	injector, cleanup, err := buildInjector(cfg)
	if err != nil {
		engine.Close()
		transcriber.Close()
		log.Fatalf("Failed to initialize text injection: %v", err)
	}
	log.Printf("Text injector ready (method: %s)", cfg.Inject.Method)

	listener := hotkey.NewListener(cfg.Hotkey.Keys)
	log.Printf("Hotkey listener ready (%s)", strings.Join(cfg.Hotkey.Keys, "+"))

	machine := capture.New(
		func() (capture.Session, error) {
			session, err := engine.Open()
			if err != nil {
				return nil, err
			}
			return session, nil
		},
		transcriber,
		injector,
		capture.Options{
			MinDuration: time.Duration(cfg.Audio.MinDurationMs) * time.Millisecond,
			TargetRate:  cfg.Audio.TargetSampleRate,
			DumpDir:     cfg.Audio.DumpDir,
			Logger:      slog.Default(),
			Notify:      notify.Warn,
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go listener.Start()

	runDone := make(chan struct{})
	go func() {
		machine.Run(ctx, listener.Events())
		close(runDone)
	}()

	log.Println("Ready! Hold", strings.Join(cfg.Hotkey.Keys, "+"), "to dictate. Ctrl+C to quit.")

	select {
	case sig := <-sigCh:
		log.Printf("Received %s, shutting down...", sig)
		cancel()
		cleanup()
		engine.Close()
		transcriber.Close()
		log.Println("Goodbye!")
		// Exit directly to avoid gohook's C cleanup crash.
		// The OS reclaims the event hook on process exit.
		os.Exit(0)
	case <-runDone:
		// The event channel closed without a shutdown request: the
		// global hook could not be installed or died. Nothing works
		// without it.
		cleanup()
		engine.Close()
		transcriber.Close()
		log.Fatal("Hotkey listener stopped; check input-monitoring/accessibility permissions.")
	}
}

// buildInjector picks the injection path. The returned cleanup releases
// any held connection and is safe to call once.
func buildInjector(cfg *config.Config) (capture.Injector, func(), error) {
	if cfg.Inject.Method != "ble" {
		return inject.NewInjector(cfg.Inject.Method), func() {}, nil
	}

	client, err := ble.NewClient(ble.NewHardwareAdapter(), cfg.BLE.Device, cfg.BLE.Key, ble.DefaultClientOptions())
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		return nil, nil, err
	}

	return inject.NewBLEInjector(client), func() { client.Close() }, nil
}

func printInputDevices() error {
	engine, err := audio.NewEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	devices, err := engine.InputDevices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("No input devices found.")
		return nil
	}

	fmt.Println("Input devices:")
	for _, d := range devices {
		marker := " "
		if d.Default {
			marker = "*"
		}
		fmt.Printf("  %s %s\n", marker, d.Name)
	}
	fmt.Println("(* = default, used for capture)")
	return nil
}

func scanBridges() error {
	adapter := ble.NewHardwareAdapter()
	if err := adapter.Enable(); err != nil {
		return err
	}

	fmt.Println("Scanning for keyboard bridges (10s)...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	devices, err := adapter.Scan(ctx, ble.ServiceUUID)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("No bridges found.")
		return nil
	}

	for _, d := range devices {
		name := d.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("  %s  %s  RSSI %d\n", d.Addr, name, d.RSSI)
	}
	fmt.Println("Put the address in config under ble.device.")
	return nil
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	log.Println("No config file found, using defaults")
	return config.Default(), nil
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== govoicekey ===")
	fmt.Printf("  Backend: %s\n", cfg.Transcribe.Backend)
	if cfg.Transcribe.Backend == "whisper" {
		fmt.Printf("  Model:   %s\n", cfg.Transcribe.ModelPath)
	} else {
		fmt.Printf("  Model:   %s (remote)\n", cfg.Transcribe.OpenAI.Model)
	}
	fmt.Printf("  Hotkey:  %s\n", strings.Join(cfg.Hotkey.Keys, "+"))
	fmt.Printf("  Audio:   %dHz target, min %dms\n", cfg.Audio.TargetSampleRate, cfg.Audio.MinDurationMs)
	fmt.Printf("  Inject:  %s\n", cfg.Inject.Method)
	fmt.Printf("  Log:     %s\n", cfg.LogLevel)
	fmt.Println("==================")
}
