package engine

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/appunni/llm-ts-worker/internal/registry"
	"github.com/appunni/llm-ts-worker/internal/runtime"
	"github.com/appunni/llm-ts-worker/internal/session"
	"github.com/appunni/llm-ts-worker/pkg/types"
)

// Engine drives generation requests against a single model runtime and
// owns the session store and the cancellation registry.
type Engine struct {
	mu       sync.RWMutex
	rt       runtime.Adapter
	reg      *registry.Registry
	sessions *session.Store
	cancels  *cancelRegistry
	// baseDefaults are the constructor-installed settings; immutable after
	// New. Initialize resolves overrides against these, so repeated
	// initializes never accumulate.
	baseDefaults types.GenerationSettings
	defaults     types.GenerationSettings
	defModel     string
	loaded    *types.ModelDescriptor
	log       zerolog.Logger
	startTime time.Time
}

// Config encapsulates Engine construction parameters.
type Config struct {
	Adapter  runtime.Adapter
	Registry *registry.Registry
	Defaults types.GenerationSettings
	// DefaultModel is the preset used when initialize omits a selector.
	// Empty falls back to the registry default.
	DefaultModel string
	Logger       zerolog.Logger
}

// New constructs an Engine. Zero-value Defaults fall back to the process
// defaults; a nil Registry gets the built-in presets.
func New(cfg Config) *Engine {
	defaults := cfg.Defaults
	if defaults == (types.GenerationSettings{}) {
		defaults = types.DefaultGenerationSettings()
	}
	reg := cfg.Registry
	if reg == nil {
		reg = registry.New()
	}
	defModel := cfg.DefaultModel
	if defModel == "" {
		defModel = registry.DefaultModel
	}
	return &Engine{
		rt:       cfg.Adapter,
		reg:      reg,
		sessions: session.NewStore(),
		cancels:  newCancelRegistry(),
		baseDefaults: defaults,
		defaults:     defaults,
		defModel:     defModel,
		log:          cfg.Logger,
		startTime:    time.Now(),
	}
}

// Status is a read-only projection of the engine state.
func (e *Engine) Status() types.StatusResponse {
	e.mu.RLock()
	loaded := e.loaded
	e.mu.RUnlock()
	resp := types.StatusResponse{
		State:          "uninitialized",
		Sessions:       e.sessions.Len(),
		Inflight:       e.cancels.inflight(),
		UptimeSeconds:  int64(time.Since(e.startTime).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
	}
	if loaded != nil {
		resp.State = "ready"
		m := *loaded
		resp.Model = &m
	}
	return resp
}

// Loaded returns the descriptor of the currently loaded model, if any.
func (e *Engine) Loaded() (types.ModelDescriptor, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.loaded == nil {
		return types.ModelDescriptor{}, false
	}
	return *e.loaded, true
}

// Defaults returns the current process-wide generation settings.
func (e *Engine) Defaults() types.GenerationSettings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.defaults
}

// Models returns the preset table served by getModels.
func (e *Engine) Models() map[string]types.ModelDescriptor {
	return e.reg.All()
}

// SessionInfo reports metadata about a session without exposing contents.
func (e *Engine) SessionInfo(id string) types.SessionInfoPayload {
	info, ok := e.sessions.Info(id)
	if !ok {
		if id == "" {
			id = session.DefaultID
		}
		return types.SessionInfoPayload{SessionID: id, Exists: false}
	}
	return types.SessionInfoPayload{
		SessionID:    info.ID,
		Exists:       true,
		MessageCount: info.MessageCount,
		CreatedAt:    info.CreatedAt.UnixMilli(),
		HasCache:     info.HasCache,
	}
}

// ClearSession removes a session; its cache is dropped with it.
func (e *Engine) ClearSession(id string) types.ClearPayload {
	if id == "" {
		id = session.DefaultID
	}
	cleared := e.sessions.Clear(id)
	return types.ClearPayload{SessionID: id, Cleared: cleared}
}

// Interrupt cancels the generation identified by id, or the most recent
// one when id is empty. Interrupting with nothing in flight is a no-op.
func (e *Engine) Interrupt(id string) types.InterruptPayload {
	ok := e.cancels.interrupt(id)
	if ok {
		e.log.Info().Str("request_id", id).Msg("generation interrupted")
	}
	return types.InterruptPayload{Interrupted: ok}
}

// Close releases the runtime.
func (e *Engine) Close() error {
	if e.rt == nil {
		return nil
	}
	return e.rt.Close()
}
