// Package mock provides a scripted llm.Provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/aGallea/smart-phone/pkg/provider/llm"
)

// Provider is a mock llm.Provider that returns canned replies and records
// every call.
type Provider struct {
	mu sync.Mutex

	// Response is returned by every Generate call.
	Response string
	// GenerateErr, when non-nil, is returned instead.
	GenerateErr error
	// CloseErr is returned by Close.
	CloseErr error

	// Calls records the requests passed to Generate.
	Calls      []llm.Request
	CloseCalls int
}

var _ llm.Provider = (*Provider)(nil)

// Generate implements llm.Provider.
func (p *Provider) Generate(_ context.Context, req llm.Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, req)
	if p.GenerateErr != nil {
		return "", p.GenerateErr
	}
	return p.Response, nil
}

// Close implements llm.Provider.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CloseCalls++
	return p.CloseErr
}

// CallCount returns the number of Generate calls so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
