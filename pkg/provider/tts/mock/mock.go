// Package mock provides a scripted tts.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/aGallea/smart-phone/pkg/provider/tts"
)

// Provider is a mock tts.Provider that returns canned audio and records
// every call.
type Provider struct {
	mu sync.Mutex

	// Audio is returned by every Synthesize call.
	Audio []byte
	// SynthesizeErr, when non-nil, is returned instead.
	SynthesizeErr error
	// CloseErr is returned by Close.
	CloseErr error

	// Calls records the requests passed to Synthesize.
	Calls      []tts.Request
	CloseCalls int
}

var _ tts.Provider = (*Provider)(nil)

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(_ context.Context, req tts.Request) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, req)
	if p.SynthesizeErr != nil {
		return nil, p.SynthesizeErr
	}
	return p.Audio, nil
}

// Close implements tts.Provider.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CloseCalls++
	return p.CloseErr
}

// CallCount returns the number of Synthesize calls so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
