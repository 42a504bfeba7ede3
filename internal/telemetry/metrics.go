package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	TokensUsed          metric.Int64Counter
	IndexBuildDuration  metric.Float64Histogram
	RetrievalDuration   metric.Float64Histogram
	RetrievalCache      metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
	EmergencyFlags      metric.Int64Counter
	AnalysisFallbacks   metric.Int64Counter
}

// InitMetrics initializes all application metrics on the global meter provider.
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("docbot-rag")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	tokensUsed, err := meter.Int64Counter(
		"llm.tokens.used",
		metric.WithDescription("Approximate LLM tokens used"),
	)
	if err != nil {
		return nil, err
	}

	indexBuildDuration, err := meter.Float64Histogram(
		"rag.index.build.duration",
		metric.WithDescription("Vector index build or load duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	retrievalDuration, err := meter.Float64Histogram(
		"rag.retrieval.duration",
		metric.WithDescription("Retrieval duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	retrievalCache, err := meter.Int64Counter(
		"rag.retrieval.cache",
		metric.WithDescription("Retrieval cache lookups by outcome"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	emergencyFlags, err := meter.Int64Counter(
		"analysis.emergency.flags",
		metric.WithDescription("Symptom analyses escalated to emergency"),
	)
	if err != nil {
		return nil, err
	}

	analysisFallbacks, err := meter.Int64Counter(
		"analysis.fallbacks",
		metric.WithDescription("Symptom analyses answered with the fallback result"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:      requestCounter,
		RequestDuration:     requestDuration,
		TokensUsed:          tokensUsed,
		IndexBuildDuration:  indexBuildDuration,
		RetrievalDuration:   retrievalDuration,
		RetrievalCache:      retrievalCache,
		CircuitBreakerState: circuitBreakerState,
		EmergencyFlags:      emergencyFlags,
		AnalysisFallbacks:   analysisFallbacks,
	}, nil
}

// All Record methods are safe on a nil *Metrics so callers and tests can skip telemetry.

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordTokensUsed(tokens int64, provider, model string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", model),
	}

	m.TokensUsed.Add(context.Background(), tokens, metric.WithAttributes(attrs...))
}

// RecordIndexBuild records how long it took to make the index available and
// whether it was loaded from storage or rebuilt.
func (m *Metrics) RecordIndexBuild(duration float64, mode, status string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("index.mode", mode),
		attribute.String("index.status", status),
	}

	m.IndexBuildDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordRetrieval(duration float64, cached bool) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.Bool("retrieval.cached", cached)}
	m.RetrievalDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordCacheLookup(outcome string) {
	if m == nil {
		return
	}
	m.RetrievalCache.Add(context.Background(), 1, metric.WithAttributes(attribute.String("cache.outcome", outcome)))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}

	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordEmergency() {
	if m == nil {
		return
	}
	m.EmergencyFlags.Add(context.Background(), 1)
}

func (m *Metrics) RecordAnalysisFallback(reason string) {
	if m == nil {
		return
	}
	m.AnalysisFallbacks.Add(context.Background(), 1, metric.WithAttributes(attribute.String("fallback.reason", reason)))
}
