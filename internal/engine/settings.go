package engine

import (
	"encoding/json"
	"fmt"

	"github.com/appunni/llm-ts-worker/pkg/types"
)

// ResolveSettings layers a raw JSON override over base settings.
// Precedence is call-level over base, key-by-key. Only the enumerated
// generation keys are accepted; unknown keys are rejected rather than
// passed through.
func ResolveSettings(base types.GenerationSettings, raw json.RawMessage) (types.GenerationSettings, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return base, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return base, fmt.Errorf("generation config: %w", err)
	}
	out := base
	for key, val := range fields {
		var err error
		switch key {
		case "do_sample":
			err = json.Unmarshal(val, &out.DoSample)
		case "temperature":
			err = json.Unmarshal(val, &out.Temperature)
		case "top_p":
			err = json.Unmarshal(val, &out.TopP)
		case "max_new_tokens":
			err = json.Unmarshal(val, &out.MaxNewTokens)
		case "repetition_penalty":
			err = json.Unmarshal(val, &out.RepetitionPenalty)
		default:
			return base, fmt.Errorf("generation config: unknown key %q", key)
		}
		if err != nil {
			return base, fmt.Errorf("generation config: key %q: %w", key, err)
		}
	}
	if err := validateSettings(out); err != nil {
		return base, err
	}
	return out, nil
}

func validateSettings(s types.GenerationSettings) error {
	if s.Temperature < 0 {
		return fmt.Errorf("generation config: temperature must be >= 0")
	}
	if s.TopP < 0 || s.TopP > 1 {
		return fmt.Errorf("generation config: top_p must be in [0,1]")
	}
	if s.MaxNewTokens < 0 {
		return fmt.Errorf("generation config: max_new_tokens must be >= 0")
	}
	return nil
}
