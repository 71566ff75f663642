// Package stt defines the Provider interface for Speech-to-Text backends.
//
// Transcription here is batch-oriented: the capture pipeline records a full
// utterance (WAV-wrapped 16 kHz mono PCM) and hands it over in one call.
// Implementations wrap a cloud recognition API and must be safe for
// concurrent use.
package stt

import "context"

// Provider is the abstraction over any speech-to-text backend.
type Provider interface {
	// Transcribe converts a complete WAV-encoded utterance into text.
	// An empty string with a nil error means the provider heard nothing
	// recognizable.
	Transcribe(ctx context.Context, wav []byte) (string, error)

	// Close releases any resources held by the provider. Calling Close
	// more than once is safe.
	Close() error
}
