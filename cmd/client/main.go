// Command client runs the on-device voice loop: capture speech through
// ffmpeg, send it to the backend for transcription and reply generation,
// and speak the answer back.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/aGallea/smart-phone/internal/client"
	"github.com/aGallea/smart-phone/internal/config"
	"github.com/aGallea/smart-phone/pkg/audio/ffmpeg"
	"github.com/aGallea/smart-phone/pkg/vad"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "configs/config.json", "path to the configuration file")
	backendURL := flag.String("backend", "", "backend base URL (overrides the config file)")
	envPath := flag.String("env", ".env", "path to an optional .env file")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "client: load %s: %v\n", *envPath, err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "client: %v\n", err)
		return 1
	}

	logger := newLogger(cfg.GetString("server.log_level", "info"))
	slog.SetDefault(logger)

	url := *backendURL
	if url == "" {
		url = cfg.GetString("backend_url", "http://localhost:8000")
	}
	backend := client.NewBackend(url)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A dead backend at startup is worth a warning, not an exit: the
	// processor retries every interaction anyway.
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := backend.Health(healthCtx); err != nil {
		slog.Warn("backend not reachable yet", "url", url, "err", err)
	}
	cancel()

	wakeWord := ""
	if cfg.GetBool("wake_word_enabled", true) {
		wakeWord = cfg.GetString("wake_word", "hey robot")
	}

	voiceCfg := cfg.Section("voice")
	detector := vad.Config{
		EnergyThreshold: voiceCfg.GetFloat("energy_threshold", 0),
		ZCRThreshold:    voiceCfg.GetFloat("zcr_threshold", 0),
		SilenceFrames:   voiceCfg.GetInt("silence_frames", 0),
		TimeoutFrames:   voiceCfg.GetInt("timeout_frames", 0),
		MinSpeechFrames: voiceCfg.GetInt("min_speech_frames", 0),
	}

	device := ffmpeg.New()
	processor := client.NewProcessor(device, device, backend, client.ProcessorConfig{
		WakeWord: wakeWord,
		Voice:    cfg.GetString("tts.voice", ""),
		Detector: detector,
	}, client.WithProcessorLogger(logger))

	slog.Info("voice client started", "backend", url, "wake_word", wakeWord)
	if err := processor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// newLogger builds the process-wide slog logger at the configured level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
