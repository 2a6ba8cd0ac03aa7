package types

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation. Order is semantically meaningful:
// a history always starts with a single system message and alternates
// user/assistant after it.
type Message struct {
	// Author of the turn: system, user or assistant.
	// example: user
	Role Role `json:"role" example:"user"`
	// Text content of the turn.
	// example: Hello!
	Content string `json:"content" example:"Hello!"`
}

// ModelDescriptor describes a loadable model variant. Immutable once
// selected; it determines which weights the runtime loads.
type ModelDescriptor struct {
	// Stable identifier of the model variant.
	// example: SmolLM2-360M-Instruct-q4f16
	ID string `json:"id" yaml:"id" toml:"id" example:"SmolLM2-360M-Instruct-q4f16"`
	// Quantization/precision tag.
	// example: q4f16
	Quant string `json:"quant" yaml:"quant" toml:"quant" example:"q4f16"`
	// Acceleration target the weights were prepared for (gpu or cpu).
	// example: gpu
	Target string `json:"target" yaml:"target" toml:"target" example:"gpu"`
	// Expected payload size of the weights in bytes.
	// example: 376000000
	SizeBytes int64 `json:"sizeBytes" yaml:"sizeBytes" toml:"sizeBytes" example:"376000000"`
	// Human-readable description.
	// example: SmolLM2 360M instruct, 4-bit
	Description string `json:"description" yaml:"description" toml:"description" example:"SmolLM2 360M instruct, 4-bit"`
}

// GenerationSettings are the sampling parameters for one generation call.
// Process-wide defaults are installed at initialize time; per-call
// overrides merge over them key-by-key (override wins).
type GenerationSettings struct {
	// Whether sampling is enabled (false = greedy decoding).
	// example: true
	DoSample bool `json:"do_sample" example:"true"`
	// Sampling temperature (higher = more random).
	// example: 0.7
	Temperature float64 `json:"temperature" example:"0.7"`
	// Nucleus sampling probability threshold.
	// example: 0.9
	TopP float64 `json:"top_p" example:"0.9"`
	// Maximum number of new tokens to generate.
	// example: 1024
	MaxNewTokens int `json:"max_new_tokens" example:"1024"`
	// Repetition penalty applied during sampling.
	// example: 1.1
	RepetitionPenalty float64 `json:"repetition_penalty" example:"1.1"`
}

// DefaultGenerationSettings returns the process-wide generation defaults
// used when no per-call override is supplied.
func DefaultGenerationSettings() GenerationSettings {
	return GenerationSettings{
		DoSample:          true,
		Temperature:       0.7,
		TopP:              0.9,
		MaxNewTokens:      1024,
		RepetitionPenalty: 1.1,
	}
}
