// Package anthropic provides an LLM provider backed by the Anthropic
// messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	ant "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/aGallea/smart-phone/pkg/provider/llm"
)

const defaultMaxTokens = 1024

// config holds optional configuration for the provider.
type config struct {
	baseURL      string
	systemPrompt string
	maxTokens    int
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default Anthropic API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

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

// Provider implements llm.Provider using the Anthropic API.
type Provider struct {
	client ant.Client
	model  string
	cfg    config
}

// New constructs a new Anthropic LLM Provider.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anthropic: model must not be empty")
	}

	cfg := config{maxTokens: defaultMaxTokens}
	for _, o := range opts {
		o(&cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &Provider{client: ant.NewClient(reqOpts...), model: model, cfg: cfg}, nil
}

// Generate implements llm.Provider.
func (p *Provider) Generate(ctx context.Context, req llm.Request) (string, error) {
	params := ant.MessageNewParams{
		Model:     ant.Model(p.model),
		MaxTokens: int64(p.cfg.maxTokens),
		Messages: []ant.MessageParam{
			ant.NewUserMessage(ant.NewTextBlock(llm.RenderPrompt(req))),
		},
	}
	if p.cfg.systemPrompt != "" {
		params.System = []ant.TextBlockParam{{Text: p.cfg.systemPrompt}}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic: message: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if text := block.Text; text != "" {
			sb.WriteString(text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic: empty response content")
	}
	return strings.TrimSpace(sb.String()), nil
}

// Close implements llm.Provider.
func (p *Provider) Close() error {
	return nil
}
