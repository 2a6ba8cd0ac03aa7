// Package engine coordinates generation against the model runtime. It is
// structured into small files by concern:
//
//   - engine.go: core Engine type, constructor, simple getters.
//   - errors.go: error types and helpers (IsNotInitialized, IsUnknownPreset).
//   - settings.go: layered generation-settings resolution.
//   - cancel.go: per-request cancellation handle registry.
//   - generate.go: the generation coordinator (one call, observers, timing).
//   - chat.go: chat mode (session history + cache persist across turns).
//   - single.go: single mode (stateless, no session store access).
//   - initialize.go: model selection and weight loading with progress.
//   - probe.go: one-shot acceleration capability check.
//   - metrics.go: prometheus instrumentation.
//
// External packages should treat this package as the orchestration layer and
// use public methods only. Internal types are subject to change.
package engine
