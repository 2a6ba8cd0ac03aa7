//go:build llama

package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"

	"github.com/appunni/llm-ts-worker/pkg/types"
)

// llamaAdapter runs generation in-process via go-llama.cpp.
type llamaAdapter struct {
	modelsDir string
	ctxSize   int
	threads   int

	mu    sync.Mutex
	model *llama.LLama
}

// NewLlamaAdapter returns an adapter that loads *.gguf weights from
// modelsDir, keyed by model id.
func NewLlamaAdapter(modelsDir string, ctxSize, threads int) Adapter {
	return &llamaAdapter{modelsDir: modelsDir, ctxSize: ctxSize, threads: threads}
}

func (a *llamaAdapter) Name() string { return "llama.cpp" }

func (a *llamaAdapter) Available() (bool, string) { return true, "" }

func (a *llamaAdapter) Load(ctx context.Context, model types.ModelDescriptor, onProgress func(Progress)) error {
	if strings.TrimSpace(model.ID) == "" {
		return errors.New("model id is empty")
	}
	path := filepath.Join(a.modelsDir, model.ID+".gguf")
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("model weights: %w", err)
	}
	if onProgress != nil {
		onProgress(Progress{Status: "loading weights", Loaded: 0, Total: fi.Size(), Percentage: 0, File: filepath.Base(path)})
	}
	mo := []llama.ModelOption{llama.SetContext(a.ctxSize)}
	m, err := llama.New(path, mo...)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		m.Free()
		return ctx.Err()
	}
	a.mu.Lock()
	if a.model != nil {
		a.model.Free()
	}
	a.model = m
	a.mu.Unlock()
	if onProgress != nil {
		onProgress(Progress{Status: "ready", Loaded: fi.Size(), Total: fi.Size(), Percentage: 100, File: filepath.Base(path)})
	}
	return nil
}

func (a *llamaAdapter) FormatPrompt(messages []types.Message) (Prompt, error) {
	return renderChatML(messages)
}

// llamaCacheState is the adapter-private payload behind the opaque Cache.
// llama.cpp keeps its own KV state per model context; we record the prompt
// prefix already evaluated so a follow-up call can reuse it.
type llamaCacheState struct {
	evaluated string
}

func (a *llamaAdapter) Generate(ctx context.Context, prompt Prompt, cache *Cache, settings types.GenerationSettings, onToken func(string) error) (Result, error) {
	a.mu.Lock()
	m := a.model
	a.mu.Unlock()
	if m == nil {
		return Result{}, errors.New("llama model not loaded")
	}

	m.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if onToken != nil {
			if err := onToken(tok); err != nil {
				return false
			}
		}
		return true
	})
	defer m.SetTokenCallback(nil)

	po := predictOptions(settings, a.threads)
	// PromptCacheAll lets llama.cpp reuse the evaluated prefix recorded in
	// the cache handle across chat turns.
	if s, ok := cache.State().(*llamaCacheState); ok && s != nil && strings.HasPrefix(prompt.Text, s.evaluated) {
		po = append(po, llama.EnablePromptCacheAll)
	}
	text, err := m.Predict(prompt.Text, po...)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, err
	}
	return Result{
		Text:  text,
		Cache: NewCache(&llamaCacheState{evaluated: prompt.Text + text}),
	}, nil
}

func (a *llamaAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.model != nil {
		a.model.Free()
		a.model = nil
	}
	return nil
}

func nz(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func nzf(v float64, def float32) float32 {
	if v > 0 {
		return float32(v)
	}
	return def
}

// predictOptions maps GenerationSettings onto go-llama.cpp options.
func predictOptions(s types.GenerationSettings, threads int) []llama.PredictOption {
	temp := s.Temperature
	if !s.DoSample {
		// Greedy decoding.
		temp = 0
	}
	return []llama.PredictOption{
		llama.SetTokens(nz(s.MaxNewTokens, 256)),
		llama.SetThreads(nz(threads, 4)),
		llama.SetTopP(nzf(s.TopP, llama.DefaultOptions.TopP)),
		llama.SetTemperature(float32(temp)),
		llama.SetPenalty(nzf(s.RepetitionPenalty, llama.DefaultOptions.Penalty)),
	}
}
