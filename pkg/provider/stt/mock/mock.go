// Package mock provides a scripted stt.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/aGallea/smart-phone/pkg/provider/stt"
)

// Provider is a mock stt.Provider that returns canned transcripts and
// records every call.
type Provider struct {
	mu sync.Mutex

	// Transcript is returned by every Transcribe call.
	Transcript string
	// TranscribeErr, when non-nil, is returned instead.
	TranscribeErr error
	// CloseErr is returned by Close.
	CloseErr error

	// Calls records the audio payloads passed to Transcribe.
	Calls      [][]byte
	CloseCalls int
}

var _ stt.Provider = (*Provider)(nil)

// Transcribe implements stt.Provider.
func (p *Provider) Transcribe(_ context.Context, wav []byte) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]byte, len(wav))
	copy(cp, wav)
	p.Calls = append(p.Calls, cp)
	if p.TranscribeErr != nil {
		return "", p.TranscribeErr
	}
	return p.Transcript, nil
}

// Close implements stt.Provider.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CloseCalls++
	return p.CloseErr
}

// CallCount returns the number of Transcribe calls so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
