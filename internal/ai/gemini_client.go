package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docbot-rag/internal/telemetry"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "gemini-2.0-flash"

type geminiProvider struct {
	client    *genai.Client
	modelName string
}

func NewGeminiClient(ctx context.Context, apiKey, model, tier string, timeout time.Duration, metrics *telemetry.Metrics) (*GuardedClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	p := &geminiProvider{client: client, modelName: model}
	return newGuardedClient(p, tier, timeout, metrics), nil
}

func (g *geminiProvider) name() string  { return "gemini" }
func (g *geminiProvider) model() string { return g.modelName }

func (g *geminiProvider) close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *geminiProvider) complete(ctx context.Context, req CompletionRequest) (completion, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(req.Temperature)
	model.SetMaxOutputTokens(int32(req.MaxTokens))
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return completion{}, fmt.Errorf("gemini generate content: %w", err)
	}

	out := completion{Text: strings.TrimSpace(responseText(resp))}
	if resp.UsageMetadata != nil {
		out.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}
