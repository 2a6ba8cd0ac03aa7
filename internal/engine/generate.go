package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/appunni/llm-ts-worker/internal/runtime"
	"github.com/appunni/llm-ts-worker/pkg/types"
)

// GenerateRequest is one normalized generation call against the runtime.
// Messages must already include any system/user turns to condition on.
type GenerateRequest struct {
	// ID keys the cancellation handle. Assigned when empty.
	ID       string
	Messages []types.Message
	// Prior decoding cache to continue from, or nil.
	Cache    *runtime.Cache
	Settings types.GenerationSettings
	// OnStream is invoked once per generated token.
	OnStream func(types.StreamingPayload)
	// OnRate is invoked once per token after the first (no elapsed baseline
	// exists for the first).
	OnRate func(types.TokenStatsPayload)
}

// Outcome is produced once per completed generation call.
type Outcome struct {
	Text  string
	Cache *runtime.Cache
	// TokensPerSecond is measured over the decode window from first token
	// to completion; 0 when no token was emitted.
	TokensPerSecond float64
	TokenCount      int
}

// Generate executes exactly one generation request. It formats the message
// sequence, registers a cancellation handle for the duration of the call,
// wires the streaming and token-rate observers, and normalizes the
// runtime's output into an Outcome. Runtime failures propagate unmodified.
func (e *Engine) Generate(ctx context.Context, req GenerateRequest) (Outcome, error) {
	e.mu.RLock()
	rt := e.rt
	loaded := e.loaded
	e.mu.RUnlock()
	if rt == nil || loaded == nil {
		return Outcome{}, ErrNotInitialized()
	}

	prompt, err := rt.FormatPrompt(req.Messages)
	if err != nil {
		return Outcome{}, err
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	gctx, release, err := e.cancels.begin(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	defer release()

	// Wall-clock timing starts on the first emitted token so the rate
	// reflects decode-only throughput, not prompt processing.
	var (
		firstToken time.Time
		count      int
		streamed   strings.Builder
	)
	onToken := func(tok string) error {
		now := time.Now()
		count++
		streamed.WriteString(tok)
		tokensGeneratedTotal.Inc()
		if count == 1 {
			firstToken = now
		} else if req.OnRate != nil {
			elapsedMs := now.Sub(firstToken).Milliseconds()
			if elapsedMs <= 0 {
				elapsedMs = 1
			}
			req.OnRate(types.TokenStatsPayload{
				TokensPerSecond: float64(count) / float64(elapsedMs) * 1000,
				TokenCount:      count,
			})
		}
		if req.OnStream != nil {
			req.OnStream(types.StreamingPayload{
				Token:      tok,
				FullText:   streamed.String(),
				TokenCount: count,
			})
		}
		return nil
	}

	res, err := rt.Generate(gctx, prompt, req.Cache, req.Settings, onToken)
	if err != nil {
		return Outcome{}, err
	}

	tps := 0.0
	if count > 0 {
		elapsed := time.Since(firstToken).Seconds()
		if elapsed <= 0 {
			elapsed = 0.001
		}
		tps = float64(count) / elapsed
		tokensPerSecond.Observe(tps)
	}

	text := stripPromptEcho(res.Text, prompt.AssistantMarker)
	if text == "" {
		text = strings.TrimSpace(streamed.String())
	}

	e.log.Debug().
		Str("request_id", id).
		Int("tokens", count).
		Float64("tok_per_sec", tps).
		Msg("generation complete")

	return Outcome{Text: text, Cache: res.Cache, TokensPerSecond: tps, TokenCount: count}, nil
}

// stripPromptEcho removes everything up to and including the last
// occurrence of the assistant-turn marker. The marker comes from the
// templating layer, so generated content that happens to contain a
// similar literal from another template is not at risk.
func stripPromptEcho(text, marker string) string {
	if marker != "" {
		if idx := strings.LastIndex(text, marker); idx >= 0 {
			text = text[idx+len(marker):]
		}
	}
	return strings.TrimSpace(text)
}
