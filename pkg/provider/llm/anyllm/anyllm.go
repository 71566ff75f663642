// Package anyllm provides a universal LLM provider backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and
// more. It covers backends the assistant has no dedicated provider for.
//
// Usage:
//
//	p, err := anyllm.New("groq", "llama-3.1-8b-instant", anyllmlib.WithAPIKey("gsk_..."))
//	p, err := anyllm.NewMistral("mistral-small-latest", anyllmlib.WithAPIKey("..."))
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"

	"github.com/aGallea/smart-phone/pkg/provider/llm"
)

// config holds optional configuration for the provider.
type config struct {
	systemPrompt string
	maxTokens    int
	temperature  float64
}

// Option is a functional option for Provider.
type Option func(*config)

// WithSystemPrompt sets the system message preceding every exchange.
func WithSystemPrompt(prompt string) Option {
	return func(c *config) {
		c.systemPrompt = prompt
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) Option {
	return func(c *config) {
		c.maxTokens = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *config) {
		c.temperature = t
	}
}

// Provider implements llm.Provider by wrapping github.com/mozilla-ai/any-llm-go.
type Provider struct {
	backend anyllmlib.Provider
	model   string
	cfg     config
}

// New creates a new Provider backed by the given backend name: "gemini",
// "deepseek", "mistral", or "groq". Without backend options, each reads
// its usual environment variable (GEMINI_API_KEY, DEEPSEEK_API_KEY, ...).
func New(backendName string, model string, opts []Option, backendOpts ...anyllmlib.Option) (*Provider, error) {
	if backendName == "" {
		return nil, fmt.Errorf("anyllm: backendName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}

	backend, err := createBackend(backendName, backendOpts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", backendName, err)
	}

	cfg := config{}
	for _, o := range opts {
		o(&cfg)
	}
	return &Provider{backend: backend, model: model, cfg: cfg}, nil
}

// NewGemini creates a Provider backed by Google Gemini.
func NewGemini(model string, opts []Option, backendOpts ...anyllmlib.Option) (*Provider, error) {
	return New("gemini", model, opts, backendOpts...)
}

// NewDeepSeek creates a Provider backed by DeepSeek.
func NewDeepSeek(model string, opts []Option, backendOpts ...anyllmlib.Option) (*Provider, error) {
	return New("deepseek", model, opts, backendOpts...)
}

// NewMistral creates a Provider backed by Mistral AI.
func NewMistral(model string, opts []Option, backendOpts ...anyllmlib.Option) (*Provider, error) {
	return New("mistral", model, opts, backendOpts...)
}

// NewGroq creates a Provider backed by Groq.
func NewGroq(model string, opts []Option, backendOpts ...anyllmlib.Option) (*Provider, error) {
	return New("groq", model, opts, backendOpts...)
}

// createBackend creates the underlying any-llm-go provider.
func createBackend(name string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(name) {
	case "gemini":
		return gemini.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported backend %q; supported: gemini, deepseek, mistral, groq", name)
	}
}

// Generate implements llm.Provider.
func (p *Provider) Generate(ctx context.Context, req llm.Request) (string, error) {
	var messages []anyllmlib.Message
	if p.cfg.systemPrompt != "" {
		messages = append(messages, anyllmlib.Message{
			Role:    anyllmlib.RoleSystem,
			Content: p.cfg.systemPrompt,
		})
	}
	messages = append(messages, anyllmlib.Message{
		Role:    anyllmlib.RoleUser,
		Content: llm.RenderPrompt(req),
	})

	params := anyllmlib.CompletionParams{
		Model:    p.model,
		Messages: messages,
	}
	if p.cfg.temperature != 0 {
		t := p.cfg.temperature
		params.Temperature = &t
	}
	if p.cfg.maxTokens > 0 {
		mt := p.cfg.maxTokens
		params.MaxTokens = &mt
	}

	resp, err := p.backend.Completion(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anyllm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("anyllm: empty choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.ContentString()), nil
}

// Close implements llm.Provider.
func (p *Provider) Close() error {
	return nil
}
