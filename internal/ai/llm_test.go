package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"docbot-rag/internal/config"
)

type fakeProvider struct {
	text  string
	err   error
	calls int
}

func (f *fakeProvider) name() string  { return "fake" }
func (f *fakeProvider) model() string { return "fake-model" }
func (f *fakeProvider) close() error  { return nil }

func (f *fakeProvider) complete(ctx context.Context, req CompletionRequest) (completion, error) {
	f.calls++
	if f.err != nil {
		return completion{}, f.err
	}
	return completion{Text: f.text, TotalTokens: 42}, nil
}

func TestGuardedClientComplete(t *testing.T) {
	p := &fakeProvider{text: "hello"}
	gc := newGuardedClient(p, "dev", time.Second, nil)

	out, err := gc.Complete(context.Background(), CompletionRequest{Prompt: "hi", MaxTokens: 10})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out != "hello" {
		t.Errorf("Complete() = %q, want %q", out, "hello")
	}
	if tokens, reqs := gc.tokenCounter.Usage(); tokens != 42 || reqs != 1 {
		t.Errorf("Usage() = (%d, %d), want (42, 1)", tokens, reqs)
	}
}

func TestGuardedClientEmptyCompletion(t *testing.T) {
	gc := newGuardedClient(&fakeProvider{text: ""}, "dev", time.Second, nil)

	_, err := gc.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestGuardedClientOpensCircuit(t *testing.T) {
	boom := errors.New("upstream down")
	p := &fakeProvider{err: boom}
	gc := newGuardedClient(p, "dev", time.Second, nil)

	for i := 0; i < 3; i++ {
		if _, err := gc.Complete(context.Background(), CompletionRequest{Prompt: "hi"}); !errors.Is(err, boom) {
			t.Fatalf("call %d: expected provider error, got %v", i, err)
		}
	}

	_, err := gc.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable once the breaker trips, got %v", err)
	}
	if p.calls != 3 {
		t.Errorf("provider called %d times, want 3", p.calls)
	}
}

func TestGuardedClientTokenBudget(t *testing.T) {
	gc := newGuardedClient(&fakeProvider{text: "ok"}, "free", time.Second, nil)

	_, err := gc.Complete(context.Background(), CompletionRequest{Prompt: "hi", MaxTokens: 1_000_000})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestNewLLMClientUsesProviderKey(t *testing.T) {
	cfg := config.Defaults()
	cfg.GroqAPIKey = "gsk_test"

	gc, err := NewLLMClient(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("groq: %v", err)
	}
	if gc.Model() != config.DefaultLLMModel {
		t.Errorf("Model() = %q", gc.Model())
	}

	cfg.LLMProvider = "gemini"
	if _, err := NewLLMClient(context.Background(), cfg, nil); err == nil {
		t.Fatal("gemini without GEMINI_API_KEY: expected error")
	}
}
