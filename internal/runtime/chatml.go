package runtime

import (
	"fmt"
	"strings"

	"github.com/appunni/llm-ts-worker/pkg/types"
)

// ChatML turn markers shared by the instruct models we ship presets for.
const (
	chatmlStart           = "<|im_start|>"
	chatmlEnd             = "<|im_end|>"
	chatmlAssistantMarker = chatmlStart + "assistant\n"
)

// renderChatML formats a message sequence using the ChatML template and
// appends the generation prompt for the assistant turn.
func renderChatML(messages []types.Message) (Prompt, error) {
	if len(messages) == 0 {
		return Prompt{}, fmt.Errorf("empty message sequence")
	}
	var b strings.Builder
	for _, m := range messages {
		switch m.Role {
		case types.RoleSystem, types.RoleUser, types.RoleAssistant:
		default:
			return Prompt{}, fmt.Errorf("unknown role %q", m.Role)
		}
		b.WriteString(chatmlStart)
		b.WriteString(string(m.Role))
		b.WriteByte('\n')
		b.WriteString(m.Content)
		b.WriteString(chatmlEnd)
		b.WriteByte('\n')
	}
	b.WriteString(chatmlAssistantMarker)
	return Prompt{Text: b.String(), AssistantMarker: chatmlAssistantMarker}, nil
}
