// Package worker is the message-protocol boundary. It maps each inbound
// request type to exactly one handler, rebinds progress/stream/token
// callbacks to outbound events, and guarantees that no error or panic
// ever crosses the boundary unhandled: every failure becomes an error
// event and the worker keeps running.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/appunni/llm-ts-worker/internal/engine"
	"github.com/appunni/llm-ts-worker/pkg/types"
)

// Emitter receives outbound events for one request, in order: start, zero
// or more streaming/token_stats/progress, then exactly one terminal event.
type Emitter = func(types.Event)

// Worker dispatches protocol requests against the engine.
type Worker struct {
	eng *engine.Engine
	log zerolog.Logger
}

// New constructs a Worker around an engine.
func New(eng *engine.Engine, log zerolog.Logger) *Worker {
	return &Worker{eng: eng, log: log}
}

// Models exposes the preset table for the HTTP layer.
func (w *Worker) Models() map[string]types.ModelDescriptor { return w.eng.Models() }

// Ready reports whether a model is loaded.
func (w *Worker) Ready() bool {
	_, ok := w.eng.Loaded()
	return ok
}

// Status exposes the engine status for the HTTP layer.
func (w *Worker) Status() types.StatusResponse { return w.eng.Status() }

// Dispatch handles one request and emits its event stream. It never
// returns an error and never panics; failures surface as error events.
func (w *Worker) Dispatch(ctx context.Context, req types.Request, emit Emitter) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	send := func(status string, data any) {
		emit(types.Event{Type: req.Type, Status: status, ID: req.ID, Data: data})
	}
	defer func() {
		if r := recover(); r != nil {
			w.log.Error().Str("type", req.Type).Str("request_id", req.ID).Interface("panic", r).Msg("handler panicked")
			send(types.StatusError, types.ErrorPayload{Error: fmt.Sprintf("internal error: %v", r)})
		}
	}()

	switch req.Type {
	case types.ReqCheck:
		w.handleCheck(send)
	case types.ReqInitialize:
		w.handleInitialize(ctx, req, send)
	case types.ReqGenerateChat:
		w.handleGenerateChat(ctx, req, send)
	case types.ReqGenerateSingle:
		w.handleGenerateSingle(ctx, req, send)
	case types.ReqInterrupt:
		w.handleInterrupt(req, send)
	case types.ReqClearSession:
		w.handleClearSession(req, send)
	case types.ReqGetSessionInfo:
		w.handleGetSessionInfo(req, send)
	case types.ReqGetModels:
		w.handleGetModels(send)
	default:
		send(types.StatusError, types.ErrorPayload{Error: fmt.Sprintf("unknown request type: %q", req.Type)})
	}
}

func (w *Worker) handleCheck(send func(string, any)) {
	send(types.StatusSuccess, w.eng.Probe())
}

func (w *Worker) handleInitialize(ctx context.Context, req types.Request, send func(string, any)) {
	params, err := decodeInitialize(req.Data)
	if err != nil {
		send(types.StatusError, types.ErrorPayload{Error: err.Error()})
		return
	}
	send(types.StatusLoading, nil)
	params.OnProgress = func(p types.ProgressPayload) { send(types.StatusProgress, p) }
	desc, err := w.eng.Initialize(ctx, params)
	if err != nil {
		send(types.StatusError, types.ErrorPayload{Error: err.Error()})
		return
	}
	send(types.StatusReady, types.ReadyPayload{ModelInfo: desc})
}

func (w *Worker) handleGenerateChat(ctx context.Context, req types.Request, send func(string, any)) {
	var cr types.ChatRequest
	if err := decodeStrict(req.Data, &cr); err != nil {
		send(types.StatusError, types.ErrorPayload{Error: err.Error()})
		return
	}
	if cr.Message == "" {
		send(types.StatusError, types.ErrorPayload{Error: "message is required"})
		return
	}
	send(types.StatusStart, nil)
	res, err := w.eng.Chat(ctx, engine.ChatParams{
		RequestID:     req.ID,
		SessionID:     cr.SessionID,
		SystemMessage: cr.SystemMessage,
		Message:       cr.Message,
		Overrides:     cr.GenerationConfig,
		OnStream:      func(p types.StreamingPayload) { send(types.StatusStreaming, p) },
		OnRate:        func(p types.TokenStatsPayload) { send(types.StatusTokenStats, p) },
	})
	if err != nil {
		send(types.StatusError, types.ErrorPayload{Error: err.Error()})
		return
	}
	send(types.StatusComplete, res)
}

func (w *Worker) handleGenerateSingle(ctx context.Context, req types.Request, send func(string, any)) {
	var sr types.SingleRequest
	if err := decodeStrict(req.Data, &sr); err != nil {
		send(types.StatusError, types.ErrorPayload{Error: err.Error()})
		return
	}
	if sr.Message == "" {
		send(types.StatusError, types.ErrorPayload{Error: "message is required"})
		return
	}
	send(types.StatusStart, nil)
	res, err := w.eng.Single(ctx, engine.SingleParams{
		RequestID:     req.ID,
		SystemMessage: sr.SystemMessage,
		Message:       sr.Message,
		Overrides:     sr.GenerationConfig,
		OnStream:      func(p types.StreamingPayload) { send(types.StatusStreaming, p) },
		OnRate:        func(p types.TokenStatsPayload) { send(types.StatusTokenStats, p) },
	})
	if err != nil {
		send(types.StatusError, types.ErrorPayload{Error: err.Error()})
		return
	}
	send(types.StatusComplete, res)
}

func (w *Worker) handleInterrupt(req types.Request, send func(string, any)) {
	var target struct {
		RequestID string `json:"requestId,omitempty"`
	}
	if len(req.Data) > 0 {
		if err := json.Unmarshal(req.Data, &target); err != nil {
			send(types.StatusError, types.ErrorPayload{Error: "invalid interrupt payload"})
			return
		}
	}
	send(types.StatusSuccess, w.eng.Interrupt(target.RequestID))
}

func (w *Worker) handleClearSession(req types.Request, send func(string, any)) {
	var sr types.SessionRequest
	if len(req.Data) > 0 {
		if err := json.Unmarshal(req.Data, &sr); err != nil {
			send(types.StatusError, types.ErrorPayload{Error: "invalid session payload"})
			return
		}
	}
	send(types.StatusSuccess, w.eng.ClearSession(sr.SessionID))
}

func (w *Worker) handleGetSessionInfo(req types.Request, send func(string, any)) {
	var sr types.SessionRequest
	if len(req.Data) > 0 {
		if err := json.Unmarshal(req.Data, &sr); err != nil {
			send(types.StatusError, types.ErrorPayload{Error: "invalid session payload"})
			return
		}
	}
	send(types.StatusSuccess, w.eng.SessionInfo(sr.SessionID))
}

func (w *Worker) handleGetModels(send func(string, any)) {
	send(types.StatusSuccess, types.ModelsPayload{Models: w.eng.Models()})
}

// decodeInitialize splits the initialize payload into the model selector
// and the flattened generation overrides sitting beside it.
func decodeInitialize(raw json.RawMessage) (engine.InitializeParams, error) {
	var params engine.InitializeParams
	if len(raw) == 0 {
		return params, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return params, fmt.Errorf("invalid initialize payload: %w", err)
	}
	if model, ok := fields["model"]; ok {
		params.Model = model
		delete(fields, "model")
	}
	if len(fields) > 0 {
		overrides, err := json.Marshal(fields)
		if err != nil {
			return params, err
		}
		params.Overrides = overrides
	}
	return params, nil
}

// decodeStrict unmarshals while rejecting unknown fields, so protocol
// typos fail loudly instead of being silently dropped.
func decodeStrict(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}
