package services

import (
	"context"
	"fmt"
	"strings"

	"docbot-rag/internal/ai"
	"docbot-rag/internal/config"
	"docbot-rag/internal/logger"
	"docbot-rag/internal/rag"
	"docbot-rag/internal/telemetry"
	"docbot-rag/models"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// VectorStoreType names the search structure reported by /rag-status.
const VectorStoreType = "flat-l2"

// Retriever is what the service needs from the retrieval layer.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]rag.Chunk, error)
	Ready() bool
	Index() *rag.Index
}

// MedicalService answers the medical endpoints. It is built once in main and
// is read-only afterwards.
type MedicalService struct {
	cfg       *config.Config
	retriever Retriever
	llm       ai.LLMClient
	metrics   *telemetry.Metrics
	indexErr  error
}

func NewMedicalService(cfg *config.Config, retriever Retriever, llm ai.LLMClient, metrics *telemetry.Metrics) *MedicalService {
	return &MedicalService{
		cfg:       cfg,
		retriever: retriever,
		llm:       llm,
		metrics:   metrics,
	}
}

// WithIndexError records why no index is available, for Status.
func (s *MedicalService) WithIndexError(err error) *MedicalService {
	s.indexErr = err
	return s
}

// AnalyzeSymptoms never fails: every failure becomes the fallback analysis.
func (s *MedicalService) AnalyzeSymptoms(ctx context.Context, req models.SymptomRequest) models.SymptomAnalysis {
	ctx, span := telemetry.Tracer().Start(ctx, "medical.analyze_symptoms")
	defer span.End()

	outcome := s.analyze(ctx, req)
	if outcome.err != nil {
		reason := failureReason(outcome.err)
		logger.Warn("symptom analysis fell back", "reason", reason, "error", outcome.err)
		s.metrics.RecordAnalysisFallback(reason)
		span.SetAttributes(attribute.String("analysis.fallback_reason", reason))
	}
	result := outcome.result()

	if kw, ok := DetectEmergency(req.Symptoms); ok {
		escalate(&result)
		s.metrics.RecordEmergency()
		logger.Info("emergency keyword detected", "keyword", kw, "urgency", result.UrgencyLevel)
	}
	span.SetAttributes(
		attribute.String("analysis.urgency", result.UrgencyLevel),
		attribute.Bool("analysis.emergency", result.EmergencyDetected),
	)
	return result
}

func (s *MedicalService) analyze(ctx context.Context, req models.SymptomRequest) analysisOutcome {
	chunks, err := s.retriever.Retrieve(ctx, fmt.Sprintf("symptoms %s diagnosis treatment", req.Symptoms))
	if err != nil {
		return failed(ErrRetrieval, err)
	}

	prompt := BuildPrompt(KindSymptomAnalysis, rag.Texts(chunks), PromptInput{
		Symptoms:       req.Symptoms,
		Age:            req.Age,
		Gender:         req.Gender,
		MedicalHistory: req.MedicalHistory,
	}, s.cfg.Analysis)

	raw, err := s.complete(ctx, prompt)
	if err != nil {
		return failed(ErrProvider, err)
	}
	return parseAnalysis(raw)
}

// Chat returns the model's markdown answer verbatim.
func (s *MedicalService) Chat(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "medical.chat")
	defer span.End()

	chunks, err := s.retriever.Retrieve(ctx, req.Message)
	if err != nil {
		span.RecordError(err)
		return models.ChatResponse{}, fmt.Errorf("retrieve context: %w", err)
	}

	prompt := BuildPrompt(KindChat, rag.Texts(chunks), PromptInput{Message: req.Message}, s.cfg.Chat)
	text, err := s.complete(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		return models.ChatResponse{}, err
	}

	return models.ChatResponse{
		Response:       text,
		ConversationID: req.ConversationID,
		SourcesUsed:    len(chunks) > 0,
	}, nil
}

// ConditionInfo returns long-form markdown about condition, headed by the
// condition name.
func (s *MedicalService) ConditionInfo(ctx context.Context, condition string) (models.MedicalInfoResponse, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "medical.condition_info")
	defer span.End()

	chunks, err := s.retriever.Retrieve(ctx, fmt.Sprintf("%s symptoms causes treatment diagnosis", condition))
	if err != nil {
		span.RecordError(err)
		return models.MedicalInfoResponse{}, fmt.Errorf("retrieve context: %w", err)
	}

	prompt := BuildPrompt(KindConditionInfo, rag.Texts(chunks), PromptInput{Condition: condition}, s.cfg.MedicalInfo)
	text, err := s.complete(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		return models.MedicalInfoResponse{}, err
	}

	return models.MedicalInfoResponse{
		Condition:      condition,
		Information:    ensureHeading(text, condition),
		SourcesUsed:    len(chunks) > 0,
		ReferenceCount: len(chunks),
	}, nil
}

// Status reports index and retriever readiness.
func (s *MedicalService) Status() models.RAGStatus {
	st := models.RAGStatus{
		PDFSource:       s.cfg.PDFPath,
		EmbeddingsModel: s.cfg.EmbeddingModel,
		EmbeddingDevice: s.cfg.EmbeddingDevice,
		VectorStoreType: VectorStoreType,
	}
	if s.llm != nil {
		st.LLMModel = s.llm.Model()
	}

	var idx *rag.Index
	if s.retriever != nil {
		idx = s.retriever.Index()
		st.RetrieverReady = s.retriever.Ready()
	}
	switch {
	case idx != nil:
		st.Status = models.StatusOperational
		st.VectorStoreLoaded = true
		st.EmbeddingsModel = idx.Model
		st.ChunkCount = idx.Len()
		st.IndexID = idx.ID
	case s.indexErr != nil:
		st.Status = models.StatusError
		st.Error = s.indexErr.Error()
	default:
		st.Status = models.StatusInitializing
	}
	return st
}

func (s *MedicalService) complete(ctx context.Context, p Prompt) (string, error) {
	return s.llm.Complete(ctx, ai.CompletionRequest{
		System:      p.System,
		Prompt:      p.User,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
	})
}

// ensureHeading prepends "# <Condition>" unless a level-1 heading already
// mentions the condition.
func ensureHeading(text, condition string) string {
	want := strings.ToLower(condition)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") && strings.Contains(strings.ToLower(line), want) {
			return text
		}
	}
	title := cases.Title(language.English).String(condition)
	return "# " + title + "\n\n" + text
}
