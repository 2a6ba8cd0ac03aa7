package types

import "encoding/json"

// Request types accepted by the worker protocol boundary.
const (
	ReqCheck          = "check"
	ReqInitialize     = "initialize"
	ReqGenerateChat   = "generateChat"
	ReqGenerateSingle = "generateSingle"
	ReqInterrupt      = "interrupt"
	ReqClearSession   = "clearSession"
	ReqGetSessionInfo = "getSessionInfo"
	ReqGetModels      = "getModels"
)

// Event statuses emitted by the worker protocol boundary.
const (
	StatusSuccess    = "success"
	StatusError      = "error"
	StatusLoading    = "loading"
	StatusProgress   = "progress"
	StatusReady      = "ready"
	StatusStart      = "start"
	StatusStreaming  = "streaming"
	StatusTokenStats = "token_stats"
	StatusComplete   = "complete"
)

// Request is the inbound message envelope.
type Request struct {
	// Request type, one of check, initialize, generateChat, generateSingle,
	// interrupt, clearSession, getSessionInfo, getModels.
	// example: generateChat
	Type string `json:"type" example:"generateChat"`
	// Optional request id. Assigned by the worker when empty; interrupt
	// may target it.
	// example: 9f2c1d8a-1b2f-4c3d-9e4f-5a6b7c8d9e0f
	ID string `json:"id,omitempty" example:"9f2c1d8a-1b2f-4c3d-9e4f-5a6b7c8d9e0f"`
	// Type-specific payload.
	Data json.RawMessage `json:"data,omitempty"`
}

// Event is the outbound message envelope. Events for a request are emitted
// strictly in order: start, zero or more streaming/token_stats, then exactly
// one terminal success/ready/complete or error.
type Event struct {
	// Echo of the request type this event belongs to.
	// example: generateChat
	Type string `json:"type" example:"generateChat"`
	// Event status.
	// example: streaming
	Status string `json:"status" example:"streaming"`
	// Request id the event belongs to.
	ID string `json:"id,omitempty"`
	// Status-specific payload.
	Data any `json:"data,omitempty"`
}

// ErrorPayload is the data carried by every error event.
type ErrorPayload struct {
	// Human-readable description of what failed.
	// example: engine not initialized: call initialize first
	Error string `json:"error" example:"engine not initialized: call initialize first"`
}

// CheckResult reports hardware-acceleration availability. Probing never
// fails the request; failures are captured in Error.
type CheckResult struct {
	// Whether an acceleration adapter is available.
	// example: true
	Available bool `json:"available" example:"true"`
	// Name of the adapter that would serve generation.
	// example: llama.cpp
	Adapter string `json:"adapter,omitempty" example:"llama.cpp"`
	// Detail when no adapter is available.
	Error string `json:"error,omitempty"`
}

// InitializeRequest selects a model and optionally overrides the process
// generation defaults. Model is either a preset name (JSON string) or a
// full ModelDescriptor (JSON object).
type InitializeRequest struct {
	Model json.RawMessage `json:"model"`
	// Remaining keys are generation-setting overrides; unknown keys are
	// rejected. Captured separately during decode.
	Overrides json.RawMessage `json:"-"`
}

// ProgressPayload reports weight-loading progress during initialize.
type ProgressPayload struct {
	// Free-form stage description.
	// example: fetching weights
	Status string `json:"status" example:"fetching weights"`
	// Bytes loaded so far.
	Loaded int64 `json:"loaded"`
	// Total bytes expected.
	Total int64 `json:"total"`
	// Completion percentage, monotonically non-decreasing 0..100.
	Percentage float64 `json:"percentage"`
	// Model being loaded.
	ModelName string `json:"modelName"`
	// File currently being processed.
	File string `json:"file,omitempty"`
}

// ReadyPayload is the terminal payload of a successful initialize.
type ReadyPayload struct {
	ModelInfo ModelDescriptor `json:"modelInfo"`
}

// ChatRequest is the payload of generateChat.
type ChatRequest struct {
	// User message to append to the session.
	// example: Hello
	Message string `json:"message" example:"Hello"`
	// Session identifier; defaults to "default".
	SessionID string `json:"sessionId,omitempty"`
	// System message used only when the session is created by this call.
	SystemMessage string `json:"systemMessage,omitempty"`
	// Per-call generation overrides, merged over process defaults.
	GenerationConfig json.RawMessage `json:"generationConfig,omitempty"`
}

// SingleRequest is the payload of generateSingle. No state survives the call.
type SingleRequest struct {
	Message          string          `json:"message"`
	SystemMessage    string          `json:"systemMessage,omitempty"`
	GenerationConfig json.RawMessage `json:"generationConfig,omitempty"`
}

// StreamingPayload is emitted once per generated token.
type StreamingPayload struct {
	Token      string `json:"token"`
	FullText   string `json:"fullText"`
	TokenCount int    `json:"tokenCount"`
}

// TokenStatsPayload reports instantaneous decode throughput. Never emitted
// for the first token (no elapsed baseline yet).
type TokenStatsPayload struct {
	TokensPerSecond float64 `json:"tokensPerSecond"`
	TokenCount      int     `json:"tokenCount"`
}

// ChatComplete is the terminal payload of generateChat.
type ChatComplete struct {
	Text            string  `json:"text"`
	SessionID       string  `json:"sessionId"`
	MessageCount    int     `json:"messageCount"`
	TokensPerSecond float64 `json:"tokensPerSecond"`
}

// SingleComplete is the terminal payload of generateSingle.
type SingleComplete struct {
	Text            string  `json:"text"`
	TokensPerSecond float64 `json:"tokensPerSecond"`
}

// SessionRequest addresses a session for clearSession / getSessionInfo.
type SessionRequest struct {
	SessionID string `json:"sessionId,omitempty"`
}

// SessionInfoPayload describes a session without exposing its contents.
type SessionInfoPayload struct {
	SessionID    string `json:"sessionId"`
	Exists       bool   `json:"exists"`
	MessageCount int    `json:"messageCount,omitempty"`
	CreatedAt    int64  `json:"createdAtUnixMs,omitempty"`
	HasCache     bool   `json:"hasCache,omitempty"`
}

// ClearPayload acknowledges clearSession.
type ClearPayload struct {
	SessionID string `json:"sessionId"`
	Cleared   bool   `json:"cleared"`
}

// InterruptPayload acknowledges interrupt. Interrupted is false when no
// generation was in flight (a no-op, not an error).
type InterruptPayload struct {
	Interrupted bool `json:"interrupted"`
}

// ModelsPayload maps preset names to their descriptors.
type ModelsPayload struct {
	Models map[string]ModelDescriptor `json:"models"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Overall worker state: uninitialized or ready.
	// example: ready
	State string `json:"state" example:"ready"`
	// Currently loaded model, if any.
	Model *ModelDescriptor `json:"model,omitempty"`
	// Number of live sessions.
	// example: 2
	Sessions int `json:"sessions" example:"2"`
	// Number of in-flight generations holding a cancellation handle.
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Uptime of the worker in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// ErrorResponse is the consistent JSON error payload of the HTTP layer.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
