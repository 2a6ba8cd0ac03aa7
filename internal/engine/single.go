package engine

import (
	"context"
	"encoding/json"

	"github.com/appunni/llm-ts-worker/pkg/types"
)

// SingleParams carries one stateless generation request.
type SingleParams struct {
	RequestID     string
	SystemMessage string
	Message       string
	Overrides     json.RawMessage
	OnStream      func(types.StreamingPayload)
	OnRate        func(types.TokenStatsPayload)
}

// Single runs a stateless generation: a throwaway message sequence, no
// prior cache, and no session store access. Nothing survives the call.
func (e *Engine) Single(ctx context.Context, p SingleParams) (types.SingleComplete, error) {
	settings, err := ResolveSettings(e.Defaults(), p.Overrides)
	if err != nil {
		return types.SingleComplete{}, err
	}

	var messages []types.Message
	if p.SystemMessage != "" {
		messages = append(messages, types.Message{Role: types.RoleSystem, Content: p.SystemMessage})
	}
	messages = append(messages, types.Message{Role: types.RoleUser, Content: p.Message})

	outcome, err := e.Generate(ctx, GenerateRequest{
		ID:       p.RequestID,
		Messages: messages,
		Settings: settings,
		OnStream: p.OnStream,
		OnRate:   p.OnRate,
	})
	if err != nil {
		generationsTotal.WithLabelValues("single", "error").Inc()
		return types.SingleComplete{}, err
	}
	generationsTotal.WithLabelValues("single", "ok").Inc()

	return types.SingleComplete{
		Text:            outcome.Text,
		TokensPerSecond: outcome.TokensPerSecond,
	}, nil
}
