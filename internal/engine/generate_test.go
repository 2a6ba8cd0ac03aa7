package engine

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/appunni/llm-ts-worker/pkg/types"
)

func userTurn(text string) []types.Message {
	return []types.Message{
		{Role: types.RoleSystem, Content: "sys"},
		{Role: types.RoleUser, Content: text},
	}
}

func TestGenerate_NotInitialized(t *testing.T) {
	e := New(Config{Adapter: &fakeAdapter{}, Logger: zerolog.Nop()})
	_, err := e.Generate(context.Background(), GenerateRequest{Messages: userTurn("hi")})
	if err == nil || !IsNotInitialized(err) {
		t.Fatalf("expected not-initialized error, got %v", err)
	}
}

func TestGenerate_StreamObserverEveryToken(t *testing.T) {
	fa := &fakeAdapter{tokens: []string{"a", "b", "c"}}
	e := newTestEngine(t, fa)

	var stream []types.StreamingPayload
	out, err := e.Generate(context.Background(), GenerateRequest{
		Messages: userTurn("hi"),
		Settings: e.Defaults(),
		OnStream: func(p types.StreamingPayload) { stream = append(stream, p) },
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(stream) != 3 {
		t.Fatalf("expected 3 streaming callbacks, got %d", len(stream))
	}
	for i, p := range stream {
		if p.TokenCount != i+1 {
			t.Fatalf("callback %d: tokenCount=%d", i, p.TokenCount)
		}
	}
	if stream[2].FullText != "abc" {
		t.Fatalf("cumulative text = %q", stream[2].FullText)
	}
	if out.TokenCount != 3 {
		t.Fatalf("outcome token count = %d", out.TokenCount)
	}
}

func TestGenerate_RateObserverSkipsFirstToken(t *testing.T) {
	fa := &fakeAdapter{tokens: []string{"a", "b", "c", "d"}}
	e := newTestEngine(t, fa)

	var rates []types.TokenStatsPayload
	_, err := e.Generate(context.Background(), GenerateRequest{
		Messages: userTurn("hi"),
		Settings: e.Defaults(),
		OnRate:   func(p types.TokenStatsPayload) { rates = append(rates, p) },
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(rates) != 3 {
		t.Fatalf("expected 3 rate callbacks for 4 tokens, got %d", len(rates))
	}
	for i, r := range rates {
		if r.TokenCount != i+2 {
			t.Fatalf("rate callback %d: tokenCount=%d", i, r.TokenCount)
		}
		if r.TokensPerSecond <= 0 {
			t.Fatalf("rate callback %d: tokensPerSecond=%v", i, r.TokensPerSecond)
		}
	}
}

func TestGenerate_StripsPromptEcho(t *testing.T) {
	fa := &fakeAdapter{tokens: []string{"hello"}}
	e := newTestEngine(t, fa)
	out, err := e.Generate(context.Background(), GenerateRequest{
		Messages: userTurn("hi"), Settings: e.Defaults(),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	// The fake echoes prompt + marker + tokens; only the part after the
	// marker must survive.
	if out.Text != "hello" {
		t.Fatalf("expected stripped text %q, got %q", "hello", out.Text)
	}
}

func TestGenerate_FallbackToStreamedText(t *testing.T) {
	// Final text consists only of the marker; stripping yields nothing, so
	// the accumulated streamed text is used.
	fa := &fakeAdapter{tokens: []string{"x", "y"}, finalText: fakeMarker + "   "}
	e := newTestEngine(t, fa)
	out, err := e.Generate(context.Background(), GenerateRequest{
		Messages: userTurn("hi"), Settings: e.Defaults(),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.Text != "xy" {
		t.Fatalf("expected fallback %q, got %q", "xy", out.Text)
	}
}

func TestGenerate_NoTokensZeroRate(t *testing.T) {
	fa := &fakeAdapter{finalText: fakeMarker}
	e := newTestEngine(t, fa)
	out, err := e.Generate(context.Background(), GenerateRequest{
		Messages: userTurn("hi"), Settings: e.Defaults(),
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.TokensPerSecond != 0 {
		t.Fatalf("expected 0 tok/s with no tokens, got %v", out.TokensPerSecond)
	}
}

func TestGenerate_HandleReleasedAfterCall(t *testing.T) {
	fa := &fakeAdapter{tokens: []string{"a"}}
	e := newTestEngine(t, fa)
	if _, err := e.Generate(context.Background(), GenerateRequest{
		Messages: userTurn("hi"), Settings: e.Defaults(),
	}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if n := e.cancels.inflight(); n != 0 {
		t.Fatalf("expected no live handles after completion, got %d", n)
	}
}
