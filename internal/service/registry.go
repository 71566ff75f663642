// Package service implements the per-capability provider registries that
// sit between the HTTP layer and the concrete STT, TTS, and LLM backends.
//
// A Registry owns at most one active provider at a time, selected by
// configuration. Provider failures are contained: a backend that cannot be
// initialised leaves the capability unavailable instead of crashing the
// assistant, and a backend that errors mid-request yields an empty result
// so the caller can degrade gracefully (speak a fallback phrase, return an
// empty transcript) rather than abort the whole interaction.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/aGallea/smart-phone/internal/config"
	"github.com/aGallea/smart-phone/internal/observe"
)

var (
	// ErrServiceUnavailable is returned by Invoke when the capability has
	// no working provider. No network call is attempted in that state.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrProviderNotRegistered is reported during initialization when the
	// configured provider name has no registered factory.
	ErrProviderNotRegistered = errors.New("provider not registered")

	// ErrDuplicateProvider is returned by Register for an already-taken name.
	ErrDuplicateProvider = errors.New("provider already registered")
)

// Provider is a single backend for one capability, normalised to one
// input/output shape per Registry instantiation.
type Provider[I, O any] interface {
	Invoke(ctx context.Context, input I) (O, error)
	Close() error
}

// Factory builds a provider from its capability's configuration section.
// Factories run during Initialize, so expensive validation (credentials,
// client construction) belongs here rather than in Invoke.
type Factory[I, O any] func(ctx context.Context, cfg config.Section) (Provider[I, O], error)

// Availability is a point-in-time snapshot of a registry's state.
type Availability struct {
	Capability     string `json:"capability"`
	Available      bool   `json:"available"`
	ActiveProvider string `json:"active_provider,omitempty"`
}

// Registry manages the provider lifecycle for one capability. All methods
// are safe for concurrent use: Initialize and Cleanup take the write lock,
// Invoke and Status take the read lock, so requests already in flight
// finish against the provider they started with.
type Registry[I, O any] struct {
	capability string
	logger     *slog.Logger
	metrics    *observe.Metrics

	mu         sync.RWMutex
	factories  map[string]Factory[I, O]
	active     Provider[I, O]
	activeName string
	available  bool
}

// Option configures a Registry.
type Option func(*registryConfig)

type registryConfig struct {
	logger  *slog.Logger
	metrics *observe.Metrics
}

// WithLogger sets the registry's logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(c *registryConfig) {
		c.logger = l
	}
}

// WithMetrics sets the metrics sink. Defaults to observe.DefaultMetrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *registryConfig) {
		c.metrics = m
	}
}

// NewRegistry creates an empty registry for the named capability
// ("stt", "tts", or "llm").
func NewRegistry[I, O any](capability string, opts ...Option) *Registry[I, O] {
	cfg := registryConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.metrics == nil {
		cfg.metrics = observe.DefaultMetrics()
	}
	return &Registry[I, O]{
		capability: capability,
		logger:     cfg.logger.With("capability", capability),
		metrics:    cfg.metrics,
		factories:  map[string]Factory[I, O]{},
	}
}

// Register adds a named provider factory. Registration normally happens
// once at startup, before the first Initialize.
func (r *Registry[I, O]) Register(name string, factory Factory[I, O]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateProvider, name)
	}
	r.factories[name] = factory
	return nil
}

// Initialize selects and constructs the provider named by the capability's
// configuration section. A previously active provider is closed first, so
// Initialize doubles as re-initialize after a config change.
//
// Failure leaves the capability unavailable and returns the cause; callers
// treat that as a degraded state, not a fatal one.
func (r *Registry[I, O]) Initialize(ctx context.Context, cfg config.Section) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		if err := r.active.Close(); err != nil {
			r.logger.Warn("closing previous provider failed", "provider", r.activeName, "error", err)
		}
		r.active = nil
		r.activeName = ""
		r.available = false
	}

	name := cfg.Provider()
	factory, ok := r.factories[name]
	if !ok {
		r.logger.Error("configured provider is not registered", "provider", name)
		return fmt.Errorf("%w: %q", ErrProviderNotRegistered, name)
	}

	provider, err := factory(ctx, cfg)
	if err != nil {
		r.logger.Error("provider initialization failed", "provider", name, "error", err)
		return fmt.Errorf("initialize %s provider %q: %w", r.capability, name, err)
	}

	r.active = provider
	r.activeName = name
	r.available = true
	r.logger.Info("provider initialized", "provider", name)
	return nil
}

// Invoke runs the active provider.
//
// When the capability is unavailable it returns the zero output and
// ErrServiceUnavailable without touching the network. When the provider
// itself errors, the error is logged and counted and the zero output is
// returned with a nil error: a degraded answer, not a failed request.
func (r *Registry[I, O]) Invoke(ctx context.Context, input I) (O, error) {
	var zero O

	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.available || r.active == nil {
		return zero, fmt.Errorf("%w: %s", ErrServiceUnavailable, r.capability)
	}

	start := time.Now()
	out, err := r.active.Invoke(ctx, input)
	r.recordDuration(ctx, time.Since(start))

	if err != nil {
		r.logger.Error("provider request failed", "provider", r.activeName, "error", err)
		r.metrics.RecordProviderRequest(ctx, r.activeName, r.capability, "error")
		r.metrics.RecordProviderError(ctx, r.activeName, r.capability)
		return zero, nil
	}

	r.metrics.RecordProviderRequest(ctx, r.activeName, r.capability, "ok")
	return out, nil
}

// Cleanup closes the active provider and marks the capability unavailable.
// Calling Cleanup on an already-clean registry is a no-op.
func (r *Registry[I, O]) Cleanup() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil {
		return nil
	}
	err := r.active.Close()
	if err != nil {
		r.logger.Warn("provider cleanup failed", "provider", r.activeName, "error", err)
	}
	r.active = nil
	r.activeName = ""
	r.available = false
	return err
}

// Available reports whether the capability currently has a working provider.
func (r *Registry[I, O]) Available() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.available
}

// Status returns an availability snapshot for the status endpoint.
func (r *Registry[I, O]) Status() Availability {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Availability{
		Capability:     r.capability,
		Available:      r.available,
		ActiveProvider: r.activeName,
	}
}

func (r *Registry[I, O]) recordDuration(ctx context.Context, d time.Duration) {
	var h metric.Float64Histogram
	switch r.capability {
	case "stt":
		h = r.metrics.STTDuration
	case "tts":
		h = r.metrics.TTSDuration
	case "llm":
		h = r.metrics.LLMDuration
	default:
		return
	}
	h.Record(ctx, d.Seconds())
}
