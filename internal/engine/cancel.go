package engine

import (
	"context"
	"sync"
)

// cancelRegistry keys live cancellation handles by request id so an
// interrupt can target a specific in-flight generation. Supersession is
// explicit removal on completion, never silent overwrite.
type cancelRegistry struct {
	mu      sync.Mutex
	handles map[string]context.CancelFunc
	order   []string // insertion order; last entry is the current generation
}

func newCancelRegistry() *cancelRegistry {
	return &cancelRegistry{handles: make(map[string]context.CancelFunc)}
}

// begin derives a cancelable context for one generation call and registers
// its handle under id. A reused id is rejected while its first holder is
// still in flight; handles are never overwritten. The returned release
// func must be deferred; it cancels the context and removes the handle.
func (r *cancelRegistry) begin(parent context.Context, id string) (context.Context, func(), error) {
	r.mu.Lock()
	if _, exists := r.handles[id]; exists {
		r.mu.Unlock()
		return nil, nil, ErrRequestInFlight(id)
	}
	ctx, cancel := context.WithCancel(parent)
	r.handles[id] = cancel
	r.order = append(r.order, id)
	r.mu.Unlock()
	return ctx, func() {
		cancel()
		r.remove(id)
	}, nil
}

func (r *cancelRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, id)
	for i := len(r.order) - 1; i >= 0; i-- {
		if r.order[i] == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// interrupt cancels the handle for id, or the most recently started one
// when id is empty. Returns false when no matching generation is in flight;
// that is a no-op, not an error.
func (r *cancelRegistry) interrupt(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id == "" {
		if len(r.order) == 0 {
			return false
		}
		id = r.order[len(r.order)-1]
	}
	cancel, ok := r.handles[id]
	if !ok {
		return false
	}
	cancel()
	return true
}

// inflight reports how many generations currently hold a handle.
func (r *cancelRegistry) inflight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
