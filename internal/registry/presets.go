// Package registry maps preset names to model descriptors. A built-in
// table covers the models we ship; an overlay file can add or replace
// entries.
package registry

import (
	"sort"

	"github.com/appunni/llm-ts-worker/pkg/types"
)

// DefaultModel is the preset used when a caller initializes without
// choosing one.
const DefaultModel = "smollm2-360m"

// builtin is the preset table. Keys are the short names callers use in
// initialize requests.
var builtin = map[string]types.ModelDescriptor{
	"smollm2-135m": {
		ID:          "SmolLM2-135M-Instruct-q4f16",
		Quant:       "q4f16",
		Target:      "gpu",
		SizeBytes:   145_000_000,
		Description: "SmolLM2 135M instruct, 4-bit. Smallest and fastest.",
	},
	"smollm2-360m": {
		ID:          "SmolLM2-360M-Instruct-q4f16",
		Quant:       "q4f16",
		Target:      "gpu",
		SizeBytes:   376_000_000,
		Description: "SmolLM2 360M instruct, 4-bit. Good default balance.",
	},
	"smollm2-1.7b": {
		ID:          "SmolLM2-1.7B-Instruct-q4f16",
		Quant:       "q4f16",
		Target:      "gpu",
		SizeBytes:   1_120_000_000,
		Description: "SmolLM2 1.7B instruct, 4-bit. Best quality of the family.",
	},
	"llama-3.2-1b": {
		ID:          "Llama-3.2-1B-Instruct-q4f16",
		Quant:       "q4f16",
		Target:      "gpu",
		SizeBytes:   880_000_000,
		Description: "Llama 3.2 1B instruct, 4-bit.",
	},
	"qwen2.5-0.5b": {
		ID:          "Qwen2.5-0.5B-Instruct-q4f16",
		Quant:       "q4f16",
		Target:      "gpu",
		SizeBytes:   945_000_000,
		Description: "Qwen2.5 0.5B instruct, 4-bit.",
	},
}

// Registry resolves preset names to model descriptors.
type Registry struct {
	presets map[string]types.ModelDescriptor
}

// New returns a registry containing the built-in presets.
func New() *Registry {
	p := make(map[string]types.ModelDescriptor, len(builtin))
	for k, v := range builtin {
		p[k] = v
	}
	return &Registry{presets: p}
}

// Lookup resolves a preset name.
func (r *Registry) Lookup(name string) (types.ModelDescriptor, bool) {
	d, ok := r.presets[name]
	return d, ok
}

// All returns a copy of the preset table.
func (r *Registry) All() map[string]types.ModelDescriptor {
	out := make(map[string]types.ModelDescriptor, len(r.presets))
	for k, v := range r.presets {
		out[k] = v
	}
	return out
}

// Names returns the preset names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.presets))
	for k := range r.presets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
