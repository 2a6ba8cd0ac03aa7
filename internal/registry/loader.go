package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/appunni/llm-ts-worker/pkg/types"
)

// presetFile is the on-disk overlay shape.
type presetFile struct {
	Presets map[string]types.ModelDescriptor `json:"presets" yaml:"presets" toml:"presets"`
}

// LoadFile merges presets from a file into the registry, replacing
// built-ins on name collision. Supports .yaml/.yml, .json and .toml.
func (r *Registry) LoadFile(path string) error {
	if path == "" {
		return fmt.Errorf("empty presets path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var pf presetFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &pf); err != nil {
			return err
		}
	case ".json":
		if err := json.Unmarshal(b, &pf); err != nil {
			return err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &pf); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported presets extension: %s", ext)
	}
	for name, d := range pf.Presets {
		if strings.TrimSpace(name) == "" || strings.TrimSpace(d.ID) == "" {
			return fmt.Errorf("preset %q: name and id are required", name)
		}
		r.presets[name] = d
	}
	return nil
}
