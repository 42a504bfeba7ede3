package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docbot-rag/internal/telemetry"

	openai "github.com/sashabaranov/go-openai"
)

// groqProvider talks to Groq through its OpenAI-compatible chat completions API.
type groqProvider struct {
	client    *openai.Client
	modelName string
}

// NewGroqClient returns a guarded Groq chat client. baseURL defaults to Groq's
// OpenAI-compatible endpoint, so any compatible server can be targeted.
func NewGroqClient(apiKey, baseURL, model, tier string, timeout time.Duration, metrics *telemetry.Metrics) (*GuardedClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing GROQ_API_KEY")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	p := &groqProvider{
		client:    openai.NewClientWithConfig(cfg),
		modelName: model,
	}
	return newGuardedClient(p, tier, timeout, metrics), nil
}

func (g *groqProvider) name() string  { return "groq" }
func (g *groqProvider) model() string { return g.modelName }
func (g *groqProvider) close() error  { return nil }

func (g *groqProvider) complete(ctx context.Context, req CompletionRequest) (completion, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.modelName,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return completion{}, fmt.Errorf("groq chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return completion{}, ErrEmptyCompletion
	}
	return completion{
		Text:        strings.TrimSpace(resp.Choices[0].Message.Content),
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}
