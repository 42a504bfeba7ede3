package models

// SymptomRequest is the body of POST /analyze-symptoms.
type SymptomRequest struct {
	Symptoms       string `json:"symptoms"`
	Age            *int   `json:"age,omitempty"`
	Gender         string `json:"gender,omitempty"`
	MedicalHistory string `json:"medical_history,omitempty"`
}

type PossibleCondition struct {
	Name           string   `json:"name"`
	Probability    string   `json:"probability"`
	Description    string   `json:"description"`
	CommonSymptoms []string `json:"common_symptoms"`
	ReferenceMatch string   `json:"reference_match"`
}

type TreatmentRecommendation struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Urgency     string `json:"urgency"`
	Source      string `json:"source"`
}

// SymptomAnalysis is always returned in this shape, even when analysis failed.
type SymptomAnalysis struct {
	AnalysisSummary          string                    `json:"analysis_summary"`
	PossibleConditions       []PossibleCondition       `json:"possible_conditions"`
	TreatmentRecommendations []TreatmentRecommendation `json:"treatment_recommendations"`
	UrgencyLevel             string                    `json:"urgency_level"`
	MedicalEvidence          string                    `json:"medical_evidence"`
	Disclaimer               string                    `json:"disclaimer"`
	FollowUpQuestions        []string                  `json:"follow_up_questions"`
	EmergencyDetected        bool                      `json:"emergency_detected,omitempty"`
}

// Urgency levels, lowest first.
const (
	UrgencyLow       = "low"
	UrgencyModerate  = "moderate"
	UrgencyHigh      = "high"
	UrgencyEmergency = "emergency"
)

type ChatRequest struct {
	Message        string  `json:"message"`
	ConversationID *string `json:"conversation_id,omitempty"`
}

// ChatResponse echoes ConversationID; it is null when the request had none.
type ChatResponse struct {
	Response       string  `json:"response"`
	ConversationID *string `json:"conversation_id"`
	SourcesUsed    bool    `json:"sources_used"`
}

type MedicalInfoResponse struct {
	Condition      string `json:"condition"`
	Information    string `json:"information"`
	SourcesUsed    bool   `json:"sources_used"`
	ReferenceCount int    `json:"reference_count"`
}

// RAG status values.
const (
	StatusOperational  = "operational"
	StatusInitializing = "initializing"
	StatusError        = "error"
)

type RAGStatus struct {
	Status            string `json:"status"`
	VectorStoreLoaded bool   `json:"vector_store_loaded"`
	RetrieverReady    bool   `json:"retriever_ready"`
	PDFSource         string `json:"pdf_source"`
	EmbeddingsModel   string `json:"embeddings_model"`
	EmbeddingDevice   string `json:"embedding_device"`
	VectorStoreType   string `json:"vector_store_type"`
	ChunkCount        int    `json:"chunk_count"`
	IndexID           string `json:"index_id,omitempty"`
	LLMModel          string `json:"llm_model"`
	Error             string `json:"error,omitempty"`
}
