// Package tts defines the Provider interface for Text-to-Speech backends.
//
// Synthesis is batch-oriented to match the assistant's turn-taking loop:
// one spoken reply per request. Providers return a complete WAV file so
// callers can hand the result straight to an audio output device or an
// HTTP response without knowing which backend produced it.
package tts

import "context"

// Request describes a single synthesis job.
type Request struct {
	// Text is the sentence (or short paragraph) to speak.
	Text string
	// Voice selects the provider-specific voice. Empty picks the
	// provider's configured default.
	Voice string
}

// Provider is the abstraction over any text-to-speech backend.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Synthesize renders the request into a complete WAV file.
	Synthesize(ctx context.Context, req Request) ([]byte, error)

	// Close releases any resources held by the provider. Calling Close
	// more than once is safe.
	Close() error
}
