package engine

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/appunni/llm-ts-worker/internal/runtime"
	"github.com/appunni/llm-ts-worker/pkg/types"
)

const fakeMarker = "<|assistant|>"

// fakeAdapter is a lightweight in-memory runtime used for tests.
type fakeAdapter struct {
	available bool
	reason    string
	loadErr   error
	genErr    error
	// tokens streamed before returning.
	tokens []string
	// finalText returned raw; when empty the adapter echoes the prompt plus
	// marker plus the streamed tokens.
	finalText string
	outCache  *runtime.Cache
	// tokenDelay makes cancellation observable mid-stream.
	tokenDelay time.Duration
	progress   []runtime.Progress

	gotCache    *runtime.Cache
	gotSettings types.GenerationSettings
	gotPrompt   runtime.Prompt
	loads       int
}

func (f *fakeAdapter) Name() string { return "fake" }

func (f *fakeAdapter) Available() (bool, string) { return f.available, f.reason }

func (f *fakeAdapter) Load(ctx context.Context, model types.ModelDescriptor, onProgress func(runtime.Progress)) error {
	f.loads++
	if f.loadErr != nil {
		return f.loadErr
	}
	for _, p := range f.progress {
		if onProgress != nil {
			onProgress(p)
		}
	}
	return nil
}

func (f *fakeAdapter) FormatPrompt(messages []types.Message) (runtime.Prompt, error) {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	b.WriteString(fakeMarker)
	return runtime.Prompt{Text: b.String(), AssistantMarker: fakeMarker}, nil
}

func (f *fakeAdapter) Generate(ctx context.Context, prompt runtime.Prompt, cache *runtime.Cache, settings types.GenerationSettings, onToken func(string) error) (runtime.Result, error) {
	f.gotCache = cache
	f.gotSettings = settings
	f.gotPrompt = prompt
	var streamed strings.Builder
	for _, tok := range f.tokens {
		if f.tokenDelay > 0 {
			select {
			case <-ctx.Done():
				return runtime.Result{}, ctx.Err()
			case <-time.After(f.tokenDelay):
			}
		} else if ctx.Err() != nil {
			return runtime.Result{}, ctx.Err()
		}
		if err := onToken(tok); err != nil {
			return runtime.Result{}, err
		}
		streamed.WriteString(tok)
	}
	if f.genErr != nil {
		return runtime.Result{}, f.genErr
	}
	text := f.finalText
	if text == "" {
		text = prompt.Text + streamed.String()
	}
	return runtime.Result{Text: text, Cache: f.outCache}, nil
}

func (f *fakeAdapter) Close() error { return nil }

// newTestEngine builds an initialized engine backed by fa.
func newTestEngine(t *testing.T, fa *fakeAdapter) *Engine {
	t.Helper()
	e := New(Config{Adapter: fa, Logger: zerolog.Nop()})
	if _, err := e.Initialize(context.Background(), InitializeParams{Model: json.RawMessage(`"smollm2-360m"`)}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return e
}
