package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Generation holds the process-wide generation defaults. Zero values mean
// "unspecified" and keep the package defaults.
type Generation struct {
	DoSample          *bool   `json:"do_sample" yaml:"do_sample" toml:"do_sample"`
	Temperature       float64 `json:"temperature" yaml:"temperature" toml:"temperature"`
	TopP              float64 `json:"top_p" yaml:"top_p" toml:"top_p"`
	MaxNewTokens      int     `json:"max_new_tokens" yaml:"max_new_tokens" toml:"max_new_tokens"`
	RepetitionPenalty float64 `json:"repetition_penalty" yaml:"repetition_penalty" toml:"repetition_penalty"`
}

// Config holds runtime parameters for the worker daemon.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr          string     `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir     string     `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	PresetsPath   string     `json:"presets_path" yaml:"presets_path" toml:"presets_path"`
	DefaultModel  string     `json:"default_model" yaml:"default_model" toml:"default_model"`
	LogLevel      string     `json:"log_level" yaml:"log_level" toml:"log_level"`
	MaxBodyBytes  int64      `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CtxSize       int        `json:"ctx_size" yaml:"ctx_size" toml:"ctx_size"`
	Threads       int        `json:"threads" yaml:"threads" toml:"threads"`
	CORSEnabled   bool       `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins   []string   `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	Generation    Generation `json:"generation" yaml:"generation" toml:"generation"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
