//go:build !llama

package runtime

// This file provides the no-CGO stub compiled when the 'llama' build tag is
// not set, keeping default builds and CI CGO-free. The real adapter lives in
// llama.go (tagged 'llama').

import (
	"context"

	"github.com/appunni/llm-ts-worker/pkg/types"
)

const llamaMissingMsg = "llama support not built (missing 'llama' build tag)"

type llamaAdapter struct{}

// NewLlamaAdapter returns a stub that satisfies Adapter but refuses to run
// inference without the 'llama' build tag. No mocked behavior in production
// binaries built without CGO support.
func NewLlamaAdapter(modelsDir string, ctxSize, threads int) Adapter {
	return &llamaAdapter{}
}

func (a *llamaAdapter) Name() string { return "llama.cpp" }

func (a *llamaAdapter) Available() (bool, string) { return false, llamaMissingMsg }

func (a *llamaAdapter) Load(ctx context.Context, model types.ModelDescriptor, onProgress func(Progress)) error {
	return ErrUnavailable(llamaMissingMsg)
}

func (a *llamaAdapter) FormatPrompt(messages []types.Message) (Prompt, error) {
	return renderChatML(messages)
}

func (a *llamaAdapter) Generate(ctx context.Context, prompt Prompt, cache *Cache, settings types.GenerationSettings, onToken func(string) error) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}
	return Result{}, ErrUnavailable(llamaMissingMsg)
}

func (a *llamaAdapter) Close() error { return nil }
