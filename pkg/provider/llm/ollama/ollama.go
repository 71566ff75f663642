// Package ollama provides an LLM provider backed by a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/aGallea/smart-phone/pkg/provider/llm"
)

const defaultHost = "http://localhost:11434"

// config holds optional configuration for the provider.
type config struct {
	host         string
	systemPrompt string
	maxTokens    int
	temperature  float64
	timeout      time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithHost points the client at a non-default Ollama server.
func WithHost(host string) Option {
	return func(c *config) {
		c.host = host
	}
}

// WithSystemPrompt sets the system message preceding every exchange.
func WithSystemPrompt(prompt string) Option {
	return func(c *config) {
		c.systemPrompt = prompt
	}
}

// WithMaxTokens caps the completion length (num_predict).
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

// WithTimeout sets the HTTP client timeout. Local models can be slow to
// load on first use, so the default is generous.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Provider implements llm.Provider using the Ollama chat API.
type Provider struct {
	client *api.Client
	model  string
	cfg    config
}

// New constructs a new Ollama LLM Provider.
func New(model string, opts ...Option) (*Provider, error) {
	if model == "" {
		return nil, fmt.Errorf("ollama: model must not be empty")
	}

	cfg := config{host: defaultHost, timeout: 2 * time.Minute}
	for _, o := range opts {
		o(&cfg)
	}

	parsed, err := url.Parse(cfg.host)
	if err != nil {
		return nil, fmt.Errorf("ollama: parse host %q: %w", cfg.host, err)
	}

	client := api.NewClient(parsed, &http.Client{Timeout: cfg.timeout})
	return &Provider{client: client, model: model, cfg: cfg}, nil
}

// Generate implements llm.Provider. Streaming is disabled; the full reply
// arrives in the final callback invocation.
func (p *Provider) Generate(ctx context.Context, req llm.Request) (string, error) {
	messages := make([]api.Message, 0, 2)
	if p.cfg.systemPrompt != "" {
		messages = append(messages, api.Message{Role: "system", Content: p.cfg.systemPrompt})
	}
	messages = append(messages, api.Message{Role: "user", Content: llm.RenderPrompt(req)})

	stream := false
	chatReq := &api.ChatRequest{
		Model:    p.model,
		Messages: messages,
		Stream:   &stream,
	}
	if p.cfg.temperature > 0 || p.cfg.maxTokens > 0 {
		chatReq.Options = map[string]any{}
		if p.cfg.temperature > 0 {
			chatReq.Options["temperature"] = p.cfg.temperature
		}
		if p.cfg.maxTokens > 0 {
			chatReq.Options["num_predict"] = p.cfg.maxTokens
		}
	}

	var sb strings.Builder
	err := p.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama: chat: %w", err)
	}
	return strings.TrimSpace(sb.String()), nil
}

// Close implements llm.Provider.
func (p *Provider) Close() error {
	return nil
}
