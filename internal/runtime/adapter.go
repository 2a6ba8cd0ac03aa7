// Package runtime abstracts the model runtime that actually produces tokens.
// Tokenization, weight formats and the sampling loop live behind the Adapter
// interface; the rest of the system only formats prompts, moves the opaque
// decoding cache around and observes tokens.
package runtime

import (
	"context"

	"github.com/appunni/llm-ts-worker/pkg/types"
)

// Cache is an opaque incremental-decoding state. Its contents belong to the
// adapter that produced it; callers never inspect it, they only move
// ownership between the coordinator and the session store.
type Cache struct {
	state any
}

// NewCache wraps adapter-private state into an opaque cache handle.
func NewCache(state any) *Cache { return &Cache{state: state} }

// State returns the adapter-private payload. Only adapters call this.
func (c *Cache) State() any {
	if c == nil {
		return nil
	}
	return c.state
}

// Progress reports weight-loading progress.
type Progress struct {
	Status     string
	Loaded     int64
	Total      int64
	Percentage float64
	File       string
}

// Prompt is the runtime's input representation of a message sequence.
// AssistantMarker is the exact marker the template places before the
// assistant turn; the coordinator uses it to strip prompt echo from
// decoded output instead of guessing a literal.
type Prompt struct {
	Text            string
	AssistantMarker string
}

// Result is the raw outcome of one generation call.
type Result struct {
	// Full decoded text as produced by the runtime. May include prompt echo.
	Text string
	// Updated decoding cache to carry into a follow-up call, or nil.
	Cache *Cache
}

// Adapter is the model runtime collaborator. Implementations must honor
// context cancellation at token boundaries.
type Adapter interface {
	// Name identifies the backing runtime, e.g. for capability reporting.
	Name() string
	// Available reports whether this adapter can serve generation in the
	// current build/host, with a reason when it cannot.
	Available() (bool, string)
	// Load prepares the model weights. onProgress may be nil.
	Load(ctx context.Context, model types.ModelDescriptor, onProgress func(Progress)) error
	// FormatPrompt renders an ordered message sequence into the runtime's
	// expected prompt representation.
	FormatPrompt(messages []types.Message) (Prompt, error)
	// Generate produces tokens for the prompt, optionally continuing from a
	// prior cache. onToken is invoked once per token; returning an error
	// from it stops generation.
	Generate(ctx context.Context, prompt Prompt, cache *Cache, settings types.GenerationSettings, onToken func(token string) error) (Result, error)
	// Close releases the loaded model.
	Close() error
}
