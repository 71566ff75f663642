// Command backend runs the assistant's HTTP API server: speech-to-text,
// text-to-speech, reply generation, status, and runtime configuration.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/aGallea/smart-phone/internal/config"
	"github.com/aGallea/smart-phone/internal/observe"
	"github.com/aGallea/smart-phone/internal/server"
	"github.com/aGallea/smart-phone/internal/service"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "configs/config.json", "path to the configuration file")
	envPath := flag.String("env", ".env", "path to an optional .env file")
	flag.Parse()

	// A missing .env is fine; explicit paths that fail to parse are not.
	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "backend: load %s: %v\n", *envPath, err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backend: %v\n", err)
		return 1
	}

	logger := newLogger(cfg.GetString("server.log_level", "info"))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "smart-phone-backend",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	sttReg := service.NewSTT()
	ttsReg := service.NewTTS()
	llmReg := service.NewLLM()
	if err := errors.Join(
		service.RegisterBuiltinSTT(sttReg),
		service.RegisterBuiltinTTS(ttsReg),
		service.RegisterBuiltinLLM(llmReg),
	); err != nil {
		slog.Error("failed to register providers", "err", err)
		return 1
	}

	// Initialization failures degrade the capability, they do not prevent
	// startup: the API stays up and reports unavailability instead.
	initAll := func() {
		if err := sttReg.Initialize(ctx, cfg.Section("stt")); err != nil {
			slog.Warn("stt unavailable", "err", err)
		}
		if err := ttsReg.Initialize(ctx, cfg.Section("tts")); err != nil {
			slog.Warn("tts unavailable", "err", err)
		}
		if err := llmReg.Initialize(ctx, cfg.Section("llm")); err != nil {
			slog.Warn("llm unavailable", "err", err)
		}
	}
	initAll()
	defer func() {
		_ = sttReg.Cleanup()
		_ = ttsReg.Cleanup()
		_ = llmReg.Cleanup()
	}()

	srv := server.New(cfg, sttReg, ttsReg, llmReg, server.WithLogger(logger))

	addr := net.JoinHostPort(
		cfg.GetString("server.host", "0.0.0.0"),
		strconv.Itoa(cfg.GetInt("server.port", 8000)),
	)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	watcher := config.NewWatcher(*configPath, 2*time.Second, func() {
		if err := cfg.Reload(); err != nil {
			slog.Error("config reload failed", "err", err)
			return
		}
		initAll()
	}, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("backend listening", "addr", addr, "version", version)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		watcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
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
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
