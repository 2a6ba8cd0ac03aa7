package engine

import (
	"context"
	"encoding/json"

	"github.com/appunni/llm-ts-worker/pkg/types"
)

// ChatParams carries one chat-mode request.
type ChatParams struct {
	RequestID     string
	SessionID     string
	SystemMessage string
	Message       string
	Overrides     json.RawMessage
	OnStream      func(types.StreamingPayload)
	OnRate        func(types.TokenStatsPayload)
}

// Chat runs a stateful generation turn: it looks up or creates the session,
// conditions on its full history plus the new user turn, reuses the
// session's decoding cache, and on success persists both turns and the
// updated cache. A failed call leaves the session untouched.
func (e *Engine) Chat(ctx context.Context, p ChatParams) (types.ChatComplete, error) {
	settings, err := ResolveSettings(e.Defaults(), p.Overrides)
	if err != nil {
		return types.ChatComplete{}, err
	}
	// Rejection must happen before the store is touched: an uninitialized
	// engine must not leave a freshly seeded session behind.
	if _, ok := e.Loaded(); !ok {
		return types.ChatComplete{}, ErrNotInitialized()
	}

	sess := e.sessions.Ensure(p.SessionID, p.SystemMessage)
	userMsg := types.Message{Role: types.RoleUser, Content: p.Message}
	history := append(sess.Messages, userMsg)

	outcome, err := e.Generate(ctx, GenerateRequest{
		ID:       p.RequestID,
		Messages: history,
		Cache:    sess.Cache,
		Settings: settings,
		OnStream: p.OnStream,
		OnRate:   p.OnRate,
	})
	if err != nil {
		generationsTotal.WithLabelValues("chat", "error").Inc()
		return types.ChatComplete{}, err
	}

	assistantMsg := types.Message{Role: types.RoleAssistant, Content: outcome.Text}
	count, _ := e.sessions.CommitTurn(sess.ID, userMsg, assistantMsg, outcome.Cache)
	generationsTotal.WithLabelValues("chat", "ok").Inc()

	return types.ChatComplete{
		Text:            outcome.Text,
		SessionID:       sess.ID,
		MessageCount:    count,
		TokensPerSecond: outcome.TokensPerSecond,
	}, nil
}
