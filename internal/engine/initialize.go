package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/appunni/llm-ts-worker/internal/runtime"
	"github.com/appunni/llm-ts-worker/pkg/types"
)

// InitializeParams selects a model and optional generation defaults.
type InitializeParams struct {
	// Model is either a preset name (JSON string) or a full ModelDescriptor
	// (JSON object). Empty selects the registry default.
	Model json.RawMessage
	// Overrides merge over the package generation defaults and become the
	// new process-wide defaults.
	Overrides  json.RawMessage
	OnProgress func(types.ProgressPayload)
}

// Initialize resolves the requested model, loads its weights through the
// runtime with progress reporting, and installs the merged generation
// defaults. Reported percentages are clamped to 0..100 and made
// monotonically non-decreasing.
func (e *Engine) Initialize(ctx context.Context, p InitializeParams) (types.ModelDescriptor, error) {
	desc, err := e.resolveModel(p.Model)
	if err != nil {
		return types.ModelDescriptor{}, err
	}
	settings, err := ResolveSettings(e.baseDefaults, p.Overrides)
	if err != nil {
		return types.ModelDescriptor{}, err
	}
	if e.rt == nil {
		return types.ModelDescriptor{}, runtime.ErrUnavailable("no runtime adapter configured")
	}

	var lastPct float64
	onProgress := func(pr runtime.Progress) {
		if p.OnProgress == nil {
			return
		}
		pct := pr.Percentage
		if pct <= 0 && pr.Total > 0 {
			pct = float64(pr.Loaded) / float64(pr.Total) * 100
		}
		if pct < lastPct {
			pct = lastPct
		}
		if pct > 100 {
			pct = 100
		}
		lastPct = pct
		p.OnProgress(types.ProgressPayload{
			Status:     pr.Status,
			Loaded:     pr.Loaded,
			Total:      pr.Total,
			Percentage: pct,
			ModelName:  desc.ID,
			File:       pr.File,
		})
	}

	e.log.Info().Str("model", desc.ID).Str("quant", desc.Quant).Msg("loading model")
	if err := e.rt.Load(ctx, desc, onProgress); err != nil {
		e.log.Error().Err(err).Str("model", desc.ID).Msg("model load failed")
		return types.ModelDescriptor{}, err
	}

	e.mu.Lock()
	e.loaded = &desc
	e.defaults = settings
	e.mu.Unlock()
	e.log.Info().Str("model", desc.ID).Msg("model ready")
	return desc, nil
}

// resolveModel turns the raw model selector into a descriptor.
func (e *Engine) resolveModel(raw json.RawMessage) (types.ModelDescriptor, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		d, ok := e.reg.Lookup(e.defModel)
		if !ok {
			return types.ModelDescriptor{}, ErrUnknownPreset(e.defModel)
		}
		return d, nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return types.ModelDescriptor{}, fmt.Errorf("model selector: %w", err)
		}
		d, ok := e.reg.Lookup(name)
		if !ok {
			return types.ModelDescriptor{}, ErrUnknownPreset(name)
		}
		return d, nil
	}
	var d types.ModelDescriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return types.ModelDescriptor{}, fmt.Errorf("model selector: %w", err)
	}
	if strings.TrimSpace(d.ID) == "" {
		return types.ModelDescriptor{}, fmt.Errorf("model selector: descriptor id is required")
	}
	return d, nil
}
