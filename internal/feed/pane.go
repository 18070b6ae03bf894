package feed

import (
	"context"
	"sync"

	"copywatch/internal/domain"
	"copywatch/internal/ports"
)

// Pane guards the comparison fetch for one record/source pair. The fetched
// marker is set synchronously before the asynchronous fetch begins, so
// repeated open/close toggling issues at most one upstream request.
type Pane struct {
	client ports.ComparisonClient
	req    domain.CompareRequest

	mu      sync.Mutex
	open    bool
	fetched bool
	result  domain.Comparison
	err     error

	ready chan struct{}
}

// NewPane builds a closed, unfetched pane.
func NewPane(client ports.ComparisonClient, req domain.CompareRequest) *Pane {
	return &Pane{
		client: client,
		req:    req,
		ready:  make(chan struct{}),
	}
}

// Toggle flips the pane open or closed and returns the new open state. The
// first opening starts the comparison fetch in the background.
func (p *Pane) Toggle(ctx context.Context) bool {
	p.mu.Lock()
	p.open = !p.open
	start := p.open && !p.fetched
	if start {
		p.fetched = true
	}
	open := p.open
	p.mu.Unlock()

	if start {
		go p.fetch(ctx)
	}

	return open
}

// Close collapses the pane; the fetched result, if any, is kept.
func (p *Pane) Close() {
	p.mu.Lock()
	p.open = false
	p.mu.Unlock()
}

// Open reports the current open state.
func (p *Pane) Open() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// Result blocks until the comparison fetch finishes or the context ends.
func (p *Pane) Result(ctx context.Context) (domain.Comparison, error) {
	select {
	case <-p.ready:
	case <-ctx.Done():
		return domain.Comparison{}, ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result, p.err
}

func (p *Pane) fetch(ctx context.Context) {
	result, err := p.client.Compare(ctx, p.req)

	p.mu.Lock()
	p.result, p.err = result, err
	p.mu.Unlock()

	close(p.ready)
}
