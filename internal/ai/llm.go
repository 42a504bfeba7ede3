package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"docbot-rag/internal/config"
	"docbot-rag/internal/telemetry"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var (
	// ErrProviderUnavailable is returned while the provider circuit is open.
	ErrProviderUnavailable = errors.New("llm provider unavailable")
	ErrRateLimited         = errors.New("llm rate limit exceeded: wait before retry")
	ErrEmptyCompletion     = errors.New("llm returned an empty completion")
)

// CompletionRequest is a single-turn, system-plus-user completion.
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// LLMClient is what the services depend on.
type LLMClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Model() string
	Close() error
}

// completion is what a provider returns before guarding.
type completion struct {
	Text        string
	TotalTokens int
}

type provider interface {
	name() string
	model() string
	complete(ctx context.Context, req CompletionRequest) (completion, error)
	close() error
}

// GuardedClient wraps a provider with a rate limiter, a token budget, a
// circuit breaker and a tracing span.
type GuardedClient struct {
	p            provider
	breaker      *gobreaker.CircuitBreaker
	rateLimiter  *rate.Limiter
	tokenCounter *TokenCounter
	metrics      *telemetry.Metrics
	timeout      time.Duration
}

// RateLimits are per-provider quotas for a pricing tier.
type RateLimits struct {
	RPM int // Requests per minute
	TPM int // Tokens per minute
	RPD int // Requests per day
}

func getRateLimits(providerName, tier string) RateLimits {
	if providerName == "gemini" {
		switch tier {
		case "tier1":
			return RateLimits{RPM: 1000, TPM: 1000000, RPD: 10000}
		case "tier2":
			return RateLimits{RPM: 2000, TPM: 4000000, RPD: 50000}
		default:
			return RateLimits{RPM: 10, TPM: 250000, RPD: 250}
		}
	}
	switch tier {
	case "dev", "tier1", "tier2":
		return RateLimits{RPM: 1000, TPM: 300000, RPD: 500000}
	default:
		return RateLimits{RPM: 30, TPM: 30000, RPD: 1000}
	}
}

func newGuardedClient(p provider, tier string, timeout time.Duration, metrics *telemetry.Metrics) *GuardedClient {
	limits := getRateLimits(p.name(), tier)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        p.name() + "API",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s: %s -> %s", name, from, to)
			metrics.RecordCircuitBreakerState(name, to.String())
			if to == gobreaker.StateOpen {
				log.Printf("🚨 ALERT: %s circuit breaker opened - LLM answers degraded", name)
			}
		},
	})

	burst := limits.RPM / 10
	if burst < 1 {
		burst = 1
	}
	rateLimiter := rate.NewLimiter(rate.Limit(float64(limits.RPM)*0.9/60.0), burst)

	return &GuardedClient{
		p:            p,
		breaker:      breaker,
		rateLimiter:  rateLimiter,
		tokenCounter: NewTokenCounter(limits),
		metrics:      metrics,
		timeout:      timeout,
	}
}

func (gc *GuardedClient) Model() string { return gc.p.model() }

func (gc *GuardedClient) Close() error { return gc.p.close() }

func (gc *GuardedClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "llm.complete")
	defer span.End()

	estimatedTokens := estimateTokens(req.System, req.Prompt) + req.MaxTokens
	span.SetAttributes(
		attribute.String("llm.provider", gc.p.name()),
		attribute.String("llm.model", gc.p.model()),
		attribute.Int("llm.estimated_tokens", estimatedTokens),
		attribute.Int("llm.max_tokens", req.MaxTokens),
	)

	if !gc.tokenCounter.CanConsume(estimatedTokens, 1) {
		span.SetAttributes(attribute.Bool("llm.rate_limited", true))
		return "", ErrRateLimited
	}
	if err := gc.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("llm.rate_limited", true))
		return "", errors.Join(ErrRateLimited, err)
	}

	if gc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, gc.timeout)
		defer cancel()
	}

	result, err := gc.breaker.Execute(func() (interface{}, error) {
		out, err := gc.p.complete(ctx, req)
		if err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			span.SetAttributes(attribute.Bool("llm.circuit_breaker_open", true))
			return "", ErrProviderUnavailable
		}
		return "", err
	}

	out := result.(completion)
	tokens := out.TotalTokens
	if tokens <= 0 {
		tokens = estimateTokens(out.Text) + estimateTokens(req.System, req.Prompt)
	}
	gc.tokenCounter.RecordUsage(tokens, 1)
	gc.metrics.RecordTokensUsed(int64(tokens), gc.p.name(), gc.p.model())
	span.SetAttributes(attribute.Int("llm.actual_tokens", tokens))

	if out.Text == "" {
		return "", ErrEmptyCompletion
	}
	return out.Text, nil
}

// estimateTokens uses the usual 4 characters per token approximation.
func estimateTokens(parts ...string) int {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	estimated := n / 4
	if estimated < 1 {
		estimated = 1
	}
	return estimated
}

// NewLLMClient builds the guarded client for the configured provider.
func NewLLMClient(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (*GuardedClient, error) {
	apiKey := cfg.LLMAPIKey()
	switch cfg.LLMProvider {
	case "groq", "":
		return NewGroqClient(apiKey, cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMTier, cfg.LLMTimeout, metrics)
	case "gemini":
		model := cfg.LLMModel
		if model == config.DefaultLLMModel {
			model = DefaultGeminiModel
		}
		return NewGeminiClient(ctx, apiKey, model, cfg.LLMTier, cfg.LLMTimeout, metrics)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLMProvider)
	}
}
