// Package llm defines the Provider interface for conversational language
// model backends.
//
// The assistant runs single-turn exchanges: each spoken command becomes one
// Request, optionally carrying situational context (location, battery,
// time of day) that the backend folds into the prompt. Implementations
// must be safe for concurrent use.
package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Request describes a single generation job.
type Request struct {
	// UserInput is the transcribed user command.
	UserInput string
	// Context carries situational key/value pairs to ground the reply.
	Context map[string]any
}

// Provider is the abstraction over any language model backend.
type Provider interface {
	// Generate produces the assistant's reply to the request.
	Generate(ctx context.Context, req Request) (string, error)

	// Close releases any resources held by the provider. Calling Close
	// more than once is safe.
	Close() error
}

// RenderPrompt flattens a request into the user message sent to the model.
// Context keys are sorted so identical requests produce identical prompts.
func RenderPrompt(req Request) string {
	if len(req.Context) == 0 {
		return req.UserInput
	}
	keys := make([]string, 0, len(req.Context))
	for k := range req.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("Context:\n")
	for _, k := range keys {
		fmt.Fprintf(&sb, "- %s: %v\n", k, req.Context[k])
	}
	sb.WriteString("\nUser: ")
	sb.WriteString(req.UserInput)
	return sb.String()
}
