package ai

import (
	"context"
	"os"
	"testing"
	"time"

	"docbot-rag/internal/config"
)

func TestGroqClientLive(t *testing.T) {
	apiKey := os.Getenv("GROQ_API_KEY")
	if apiKey == "" {
		t.Skip("GROQ_API_KEY not set")
	}

	client, err := NewGroqClient(apiKey, config.GroqBaseURL, config.DefaultLLMModel, "free", 30*time.Second, nil)
	if err != nil {
		t.Fatalf("NewGroqClient: %v", err)
	}
	defer client.Close()

	text, err := client.Complete(context.Background(), CompletionRequest{
		System:      "Reply with a single word.",
		Prompt:      "Say hello.",
		MaxTokens:   10,
		Temperature: 0,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text == "" {
		t.Error("empty completion")
	}
}

func TestNewGroqClientRequiresKey(t *testing.T) {
	if _, err := NewGroqClient("", "", config.DefaultLLMModel, "free", time.Second, nil); err == nil {
		t.Fatal("expected error without API key")
	}
}
