package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"docbot-rag/internal/ai"
	"docbot-rag/internal/config"
	"docbot-rag/internal/rag"
	"docbot-rag/models"
)

type fakeLLM struct {
	reply string
	err   error
	last  ai.CompletionRequest
}

func (f *fakeLLM) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	f.last = req
	return f.reply, f.err
}
func (f *fakeLLM) Model() string { return "fake-llm" }
func (f *fakeLLM) Close() error  { return nil }

type fakeRetriever struct {
	chunks []rag.Chunk
	err    error
	query  string
	idx    *rag.Index
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string) ([]rag.Chunk, error) {
	f.query = query
	return f.chunks, f.err
}
func (f *fakeRetriever) Ready() bool       { return f.idx != nil }
func (f *fakeRetriever) Index() *rag.Index { return f.idx }

func newTestService(r *fakeRetriever, llm *fakeLLM) *MedicalService {
	return NewMedicalService(config.Defaults(), r, llm, nil)
}

func someChunks(n int) []rag.Chunk {
	out := make([]rag.Chunk, n)
	for i := range out {
		out[i] = rag.Chunk{Text: "reference text", Ordinal: i}
	}
	return out
}

func TestAnalyzeSymptomsParsed(t *testing.T) {
	r := &fakeRetriever{chunks: someChunks(5)}
	llm := &fakeLLM{reply: validAnalysisJSON}
	svc := newTestService(r, llm)

	res := svc.AnalyzeSymptoms(context.Background(), models.SymptomRequest{Symptoms: "dull ache behind the eyes"})
	if res.AnalysisSummary != "Likely tension headache" || res.EmergencyDetected {
		t.Errorf("unexpected result: %+v", res)
	}
	if r.query != "symptoms dull ache behind the eyes diagnosis treatment" {
		t.Errorf("retrieval query = %q", r.query)
	}
	if llm.last.MaxTokens != 1500 || !strings.Contains(llm.last.System, "valid JSON only") {
		t.Errorf("unexpected completion request: %+v", llm.last)
	}
}

func TestAnalyzeSymptomsEmergencyExample(t *testing.T) {
	age := 34
	svc := newTestService(&fakeRetriever{chunks: someChunks(3)}, &fakeLLM{reply: validAnalysisJSON})

	res := svc.AnalyzeSymptoms(context.Background(), models.SymptomRequest{
		Symptoms: "I have a severe headache and blurry vision",
		Age:      &age,
	})
	if !res.EmergencyDetected || res.UrgencyLevel != models.UrgencyHigh {
		t.Errorf("expected escalation to high, got %s/%v", res.UrgencyLevel, res.EmergencyDetected)
	}
	if len(res.PossibleConditions) == 0 || res.Disclaimer != Disclaimer {
		t.Error("result must keep conditions and the fixed disclaimer")
	}
}

func TestAnalyzeSymptomsNeverDowngradesEmergency(t *testing.T) {
	reply := strings.Replace(validAnalysisJSON, `"Moderate"`, `"EMERGENCY"`, 1)
	svc := newTestService(&fakeRetriever{}, &fakeLLM{reply: reply})

	res := svc.AnalyzeSymptoms(context.Background(), models.SymptomRequest{Symptoms: "Chest pain and sweating"})
	if res.UrgencyLevel != models.UrgencyEmergency || !res.EmergencyDetected {
		t.Errorf("got %s/%v, want emergency/true", res.UrgencyLevel, res.EmergencyDetected)
	}
}

func TestAnalyzeSymptomsFallbacks(t *testing.T) {
	cases := []struct {
		name    string
		r       *fakeRetriever
		llm     *fakeLLM
		summary string
	}{
		{"malformed", &fakeRetriever{}, &fakeLLM{reply: `{"analysis_summary": "trunc`}, fallbackFormatMessage},
		{"provider", &fakeRetriever{}, &fakeLLM{err: ai.ErrProviderUnavailable}, fallbackTechnicalMessage},
		{"retrieval", &fakeRetriever{err: errors.New("embedder down")}, &fakeLLM{reply: validAnalysisJSON}, fallbackTechnicalMessage},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res := newTestService(c.r, c.llm).AnalyzeSymptoms(context.Background(), models.SymptomRequest{Symptoms: "itchy rash"})
			if res.AnalysisSummary != c.summary || res.UrgencyLevel != models.UrgencyModerate {
				t.Errorf("got %q/%s", res.AnalysisSummary, res.UrgencyLevel)
			}
			if res.EmergencyDetected {
				t.Error("no emergency keyword in input")
			}
		})
	}
}

func TestAnalyzeSymptomsFallbackStillEscalates(t *testing.T) {
	svc := newTestService(&fakeRetriever{}, &fakeLLM{err: errors.New("boom")})
	res := svc.AnalyzeSymptoms(context.Background(), models.SymptomRequest{Symptoms: "shortness of breath"})
	if res.UrgencyLevel != models.UrgencyHigh || !res.EmergencyDetected {
		t.Errorf("fallback should be escalated, got %s/%v", res.UrgencyLevel, res.EmergencyDetected)
	}
}

func TestChat(t *testing.T) {
	id := "conv-1"
	r := &fakeRetriever{}
	svc := newTestService(r, &fakeLLM{reply: "**Diabetes** is a metabolic disease."})

	res, err := svc.Chat(context.Background(), models.ChatRequest{Message: "What is diabetes?", ConversationID: &id})
	if err != nil {
		t.Fatal(err)
	}
	if res.SourcesUsed || res.Response == "" || res.ConversationID == nil || *res.ConversationID != id {
		t.Errorf("unexpected chat response: %+v", res)
	}
	if r.query != "What is diabetes?" {
		t.Errorf("chat should retrieve on the raw message, got %q", r.query)
	}

	r.chunks = someChunks(2)
	res, _ = svc.Chat(context.Background(), models.ChatRequest{Message: "What is diabetes?"})
	if !res.SourcesUsed || res.ConversationID != nil {
		t.Errorf("unexpected chat response: %+v", res)
	}
}

func TestChatProviderError(t *testing.T) {
	svc := newTestService(&fakeRetriever{}, &fakeLLM{err: errors.New("upstream 503")})
	if _, err := svc.Chat(context.Background(), models.ChatRequest{Message: "hello"}); err == nil {
		t.Error("chat must surface provider errors")
	}
}

func TestConditionInfo(t *testing.T) {
	r := &fakeRetriever{chunks: someChunks(4)}
	svc := newTestService(r, &fakeLLM{reply: "Migraines are recurrent headaches."})

	res, err := svc.ConditionInfo(context.Background(), "migraine")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(res.Information, "# Migraine\n\n") {
		t.Errorf("expected a heading derived from the condition, got %q", res.Information)
	}
	if res.ReferenceCount != 4 || !res.SourcesUsed {
		t.Errorf("reference count = %d, sources = %v", res.ReferenceCount, res.SourcesUsed)
	}
	if r.query != "migraine symptoms causes treatment diagnosis" {
		t.Errorf("retrieval query = %q", r.query)
	}
}

func TestConditionInfoHeading(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{
			name:  "section heading gets a title",
			reply: "## migraine Overview\n\n### Definition\nDetails.",
			want:  "# Migraine\n\n## migraine Overview\n\n### Definition\nDetails.",
		},
		{
			name:  "existing title kept",
			reply: "# Migraine\n\n## Overview\nDetails.",
			want:  "# Migraine\n\n## Overview\nDetails.",
		},
		{
			name:  "title for another condition",
			reply: "# Headache\n\nDetails.",
			want:  "# Migraine\n\n# Headache\n\nDetails.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&fakeRetriever{}, &fakeLLM{reply: tt.reply})
			res, err := svc.ConditionInfo(context.Background(), "migraine")
			if err != nil {
				t.Fatal(err)
			}
			if res.Information != tt.want {
				t.Errorf("Information = %q, want %q", res.Information, tt.want)
			}
			if !strings.HasPrefix(res.Information, "# ") {
				t.Errorf("no level-1 heading in %q", res.Information)
			}
			if res.SourcesUsed || res.ReferenceCount != 0 {
				t.Errorf("unexpected sources: %+v", res)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	svc := newTestService(&fakeRetriever{}, &fakeLLM{})
	if st := svc.Status(); st.Status != models.StatusInitializing || st.VectorStoreLoaded || st.RetrieverReady {
		t.Errorf("no index: %+v", st)
	}

	svc.WithIndexError(errors.New("corpus missing"))
	if st := svc.Status(); st.Status != models.StatusError || st.Error == "" {
		t.Errorf("index error: %+v", st)
	}

	idx, err := rag.Build([]rag.Chunk{{Text: "a"}}, [][]float32{{1, 0}}, "local/test/2")
	if err != nil {
		t.Fatal(err)
	}
	svc = newTestService(&fakeRetriever{idx: idx}, &fakeLLM{})
	st := svc.Status()
	if st.Status != models.StatusOperational || !st.VectorStoreLoaded || !st.RetrieverReady {
		t.Errorf("with index: %+v", st)
	}
	if st.ChunkCount != 1 || st.IndexID != idx.ID || st.EmbeddingsModel != "local/test/2" || st.VectorStoreType != VectorStoreType {
		t.Errorf("with index: %+v", st)
	}
}
