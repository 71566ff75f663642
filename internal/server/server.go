// Package server implements the assistant's HTTP API: speech-to-text,
// text-to-speech, reply generation, status, and runtime configuration.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aGallea/smart-phone/internal/config"
	"github.com/aGallea/smart-phone/internal/health"
	"github.com/aGallea/smart-phone/internal/observe"
	"github.com/aGallea/smart-phone/internal/service"
)

// maxUploadBytes caps STT uploads. A minute of 16 kHz mono PCM is under
// 2 MiB, so 16 MiB leaves ample headroom for container formats.
const maxUploadBytes = 16 << 20

// Server holds the HTTP API's dependencies.
type Server struct {
	cfg      *config.Store
	stt      *service.STT
	tts      *service.TTS
	llm      *service.LLM
	logger   *slog.Logger
	metrics  *observe.Metrics
	validate *validator.Validate
	started  time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMetrics sets the metrics sink. Defaults to observe.DefaultMetrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates a Server wired to the given config store and capability
// registries.
func New(cfg *config.Store, stt *service.STT, tts *service.TTS, llm *service.LLM, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		stt:      stt,
		tts:      tts,
		llm:      llm,
		validate: validator.New(),
		started:  time.Now(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Router builds the chi router with all routes and middleware attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observe.Middleware(s.metrics))

	hc := health.New(
		health.Checker{Name: "stt", Check: s.capabilityCheck(s.stt.Available)},
		health.Checker{Name: "tts", Check: s.capabilityCheck(s.tts.Available)},
		health.Checker{Name: "llm", Check: s.capabilityCheck(s.llm.Available)},
	)
	r.Get("/health", hc.Healthz)
	r.Get("/readyz", hc.Readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/stt", s.handleSTT)
		r.Post("/tts", s.handleTTS)
		r.Post("/generate", s.handleGenerate)
		r.Get("/config", s.handleConfigGet)
		r.Post("/config", s.handleConfigUpdate)
	})

	return r
}

// capabilityCheck adapts a registry availability probe to a health checker.
func (s *Server) capabilityCheck(available func() bool) func(context.Context) error {
	return func(_ context.Context) error {
		if !available() {
			return service.ErrServiceUnavailable
		}
		return nil
	}
}

// Reinitialize rebuilds the capability registry owning the given config
// key, if any. Called after configuration updates so provider changes take
// effect without a restart. Failures degrade the capability rather than
// abort the update.
func (s *Server) Reinitialize(ctx context.Context, key string) {
	var (
		capability string
		err        error
	)
	switch {
	case strings.HasPrefix(key, "stt."):
		capability, err = "stt", s.stt.Initialize(ctx, s.cfg.Section("stt"))
	case strings.HasPrefix(key, "tts."):
		capability, err = "tts", s.tts.Initialize(ctx, s.cfg.Section("tts"))
	case strings.HasPrefix(key, "llm."):
		capability, err = "llm", s.llm.Initialize(ctx, s.cfg.Section("llm"))
	default:
		return
	}
	if err != nil {
		s.logger.Warn("capability left unavailable after config change",
			"capability", capability, "error", err)
	}
}
