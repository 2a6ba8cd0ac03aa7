package runtime

import (
	"strings"
	"testing"

	"github.com/appunni/llm-ts-worker/pkg/types"
)

func TestRenderChatML(t *testing.T) {
	p, err := renderChatML([]types.Message{
		{Role: types.RoleSystem, Content: "You are terse."},
		{Role: types.RoleUser, Content: "hi"},
	})
	if err != nil {
		t.Fatalf("renderChatML: %v", err)
	}
	want := "<|im_start|>system\nYou are terse.<|im_end|>\n" +
		"<|im_start|>user\nhi<|im_end|>\n" +
		"<|im_start|>assistant\n"
	if p.Text != want {
		t.Fatalf("prompt = %q, want %q", p.Text, want)
	}
	if p.AssistantMarker == "" || !strings.HasSuffix(p.Text, p.AssistantMarker) {
		t.Fatalf("prompt must end with the assistant marker, got %q", p.AssistantMarker)
	}
}

func TestRenderChatML_RejectsEmpty(t *testing.T) {
	if _, err := renderChatML(nil); err == nil {
		t.Fatal("expected error for empty sequence")
	}
}

func TestRenderChatML_RejectsUnknownRole(t *testing.T) {
	_, err := renderChatML([]types.Message{{Role: "narrator", Content: "x"}})
	if err == nil || !strings.Contains(err.Error(), "narrator") {
		t.Fatalf("err = %v", err)
	}
}

func TestCacheNilReceiver(t *testing.T) {
	var c *Cache
	if c.State() != nil {
		t.Fatal("nil cache must expose nil state")
	}
	if got := NewCache(42).State(); got != 42 {
		t.Fatalf("state = %v", got)
	}
}
