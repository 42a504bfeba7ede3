package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"docbot-rag/models"
)

// Reasons a symptom analysis can fail. Callers only ever see the fallback
// result; these are for logs and metrics.
var (
	ErrRetrieval       = errors.New("context retrieval failed")
	ErrProvider        = errors.New("llm provider failed")
	ErrMalformedOutput = errors.New("llm output is not valid JSON")
	ErrSchemaMismatch  = errors.New("llm output does not match the analysis schema")
)

const (
	fallbackFormatMessage    = "Analysis completed but formatting issue occurred"
	fallbackTechnicalMessage = "Analysis unavailable due to technical issue"
)

// analysisOutcome is either a parsed analysis or the reason there is none.
type analysisOutcome struct {
	analysis models.SymptomAnalysis
	err      error
}

func succeeded(a models.SymptomAnalysis) analysisOutcome { return analysisOutcome{analysis: a} }

func failed(kind error, cause error) analysisOutcome {
	if cause == nil {
		return analysisOutcome{err: kind}
	}
	return analysisOutcome{err: fmt.Errorf("%w: %v", kind, cause)}
}

// result converts the outcome into what the caller receives.
func (o analysisOutcome) result() models.SymptomAnalysis {
	if o.err == nil {
		return o.analysis
	}
	if errors.Is(o.err, ErrMalformedOutput) || errors.Is(o.err, ErrSchemaMismatch) {
		return fallbackAnalysis(fallbackFormatMessage)
	}
	return fallbackAnalysis(fallbackTechnicalMessage)
}

// failureReason is a short label for metrics.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrRetrieval):
		return "retrieval"
	case errors.Is(err, ErrProvider):
		return "provider"
	case errors.Is(err, ErrMalformedOutput):
		return "malformed_output"
	case errors.Is(err, ErrSchemaMismatch):
		return "schema_mismatch"
	default:
		return "unknown"
	}
}

func fallbackAnalysis(summary string) models.SymptomAnalysis {
	return models.SymptomAnalysis{
		AnalysisSummary: summary,
		PossibleConditions: []models.PossibleCondition{{
			Name:           "Unable to analyze",
			Probability:    "Unknown",
			Description:    "Please consult a healthcare provider",
			CommonSymptoms: []string{},
			ReferenceMatch: "None",
		}},
		TreatmentRecommendations: []models.TreatmentRecommendation{{
			Type:        "Medical consultation",
			Description: "Please see a healthcare provider for proper evaluation",
			Urgency:     models.UrgencyModerate,
			Source:      "General recommendation",
		}},
		UrgencyLevel:      models.UrgencyModerate,
		MedicalEvidence:   "Unable to retrieve medical evidence",
		Disclaimer:        Disclaimer,
		FollowUpQuestions: []string{},
	}
}

// stripCodeFences removes a surrounding ``` or ```json fence.
func stripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimPrefix(s, "JSON")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseAnalysis decodes and validates raw LLM output. Text around a single
// JSON object is tolerated.
func parseAnalysis(raw string) analysisOutcome {
	body := stripCodeFences(raw)

	var a models.SymptomAnalysis
	err := json.Unmarshal([]byte(body), &a)
	if err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			if obj, ok := outermostObject(body); ok && obj != body {
				err = json.Unmarshal([]byte(obj), &a)
			}
		}
	}
	if err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return failed(ErrSchemaMismatch, err)
		}
		return failed(ErrMalformedOutput, err)
	}

	normalize(&a)
	if err := validate(a); err != nil {
		return failed(ErrSchemaMismatch, err)
	}
	return succeeded(a)
}

func outermostObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func normalize(a *models.SymptomAnalysis) {
	a.AnalysisSummary = strings.TrimSpace(a.AnalysisSummary)
	a.UrgencyLevel = strings.ToLower(strings.TrimSpace(a.UrgencyLevel))
	a.Disclaimer = Disclaimer
	// The model does not get to set this; the keyword scan does.
	a.EmergencyDetected = false

	if a.FollowUpQuestions == nil {
		a.FollowUpQuestions = []string{}
	}
	if a.TreatmentRecommendations == nil {
		a.TreatmentRecommendations = []models.TreatmentRecommendation{}
	}
	for i := range a.PossibleConditions {
		if a.PossibleConditions[i].CommonSymptoms == nil {
			a.PossibleConditions[i].CommonSymptoms = []string{}
		}
	}
	for i := range a.TreatmentRecommendations {
		a.TreatmentRecommendations[i].Urgency = strings.ToLower(strings.TrimSpace(a.TreatmentRecommendations[i].Urgency))
	}
}

func validate(a models.SymptomAnalysis) error {
	if a.AnalysisSummary == "" {
		return errors.New("analysis_summary is empty")
	}
	if len(a.PossibleConditions) == 0 {
		return errors.New("possible_conditions is empty")
	}
	switch a.UrgencyLevel {
	case models.UrgencyLow, models.UrgencyModerate, models.UrgencyHigh, models.UrgencyEmergency:
		return nil
	default:
		return fmt.Errorf("urgency_level %q is not one of low/moderate/high/emergency", a.UrgencyLevel)
	}
}
