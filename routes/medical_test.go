package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docbot-rag/models"

	"github.com/gin-gonic/gin"
)

type stubService struct {
	analyzed   []models.SymptomRequest
	chatErr    error
	infoErr    error
	conditions []string
}

func (s *stubService) AnalyzeSymptoms(_ context.Context, req models.SymptomRequest) models.SymptomAnalysis {
	s.analyzed = append(s.analyzed, req)
	return models.SymptomAnalysis{AnalysisSummary: "ok", UrgencyLevel: models.UrgencyLow}
}

func (s *stubService) Chat(_ context.Context, req models.ChatRequest) (models.ChatResponse, error) {
	if s.chatErr != nil {
		return models.ChatResponse{}, s.chatErr
	}
	return models.ChatResponse{Response: "echo: " + req.Message, ConversationID: req.ConversationID}, nil
}

func (s *stubService) ConditionInfo(_ context.Context, condition string) (models.MedicalInfoResponse, error) {
	s.conditions = append(s.conditions, condition)
	if s.infoErr != nil {
		return models.MedicalInfoResponse{}, s.infoErr
	}
	return models.MedicalInfoResponse{Condition: condition, Information: "# " + condition}, nil
}

func (s *stubService) Status() models.RAGStatus {
	return models.RAGStatus{Status: models.StatusOperational, VectorStoreType: "flat-l2"}
}

func setup(svc *stubService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	SetupMedicalRoutes(r, svc)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"short symptoms", http.MethodPost, "/analyze-symptoms", `{"symptoms":"ok"}`},
		{"padded symptoms", http.MethodPost, "/analyze-symptoms", `{"symptoms":"  ab  "}`},
		{"missing symptoms", http.MethodPost, "/analyze-symptoms", `{}`},
		{"malformed body", http.MethodPost, "/analyze-symptoms", `{"symptoms":`},
		{"empty message", http.MethodPost, "/chat", `{"message":""}`},
		{"one char message", http.MethodPost, "/chat", `{"message":" x "}`},
		{"short condition", http.MethodGet, "/medical-info/%20a", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{}
			w := do(setup(svc), tt.method, tt.path, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
			}
			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["detail"] == "" || body["detail"] == nil {
				t.Errorf("missing detail in %v", body)
			}
			if len(svc.analyzed) != 0 || len(svc.conditions) != 0 {
				t.Error("service called for invalid input")
			}
		})
	}
}

func TestAnalyzeSymptomsTrimsInput(t *testing.T) {
	svc := &stubService{}
	w := do(setup(svc), http.MethodPost, "/analyze-symptoms", `{"symptoms":"  headache  ","age":30}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(svc.analyzed) != 1 || svc.analyzed[0].Symptoms != "headache" {
		t.Fatalf("analyzed = %+v", svc.analyzed)
	}
	if svc.analyzed[0].Age == nil || *svc.analyzed[0].Age != 30 {
		t.Errorf("age not bound: %+v", svc.analyzed[0].Age)
	}
}

func TestChatConversationID(t *testing.T) {
	r := setup(&stubService{})

	w := do(r, http.MethodPost, "/chat", `{"message":"hello","conversation_id":"c-1"}`)
	var resp models.ChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ConversationID == nil || *resp.ConversationID != "c-1" {
		t.Errorf("conversation_id = %v, want c-1", resp.ConversationID)
	}

	w = do(r, http.MethodPost, "/chat", `{"message":"hello"}`)
	if !strings.Contains(w.Body.String(), `"conversation_id":null`) {
		t.Errorf("want null conversation_id, got %s", w.Body.String())
	}
}

func TestGenerationFailures(t *testing.T) {
	svc := &stubService{chatErr: errors.New("provider down"), infoErr: errors.New("provider down")}
	r := setup(svc)

	w := do(r, http.MethodPost, "/chat", `{"message":"hello"}`)
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), "Chat failed: provider down") {
		t.Errorf("chat: %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, "/medical-info/diabetes", "")
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), "Information retrieval failed") {
		t.Errorf("medical-info: %d %s", w.Code, w.Body.String())
	}
}

func TestStatusAndRoot(t *testing.T) {
	r := setup(&stubService{})

	w := do(r, http.MethodGet, "/rag-status", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"operational"`) {
		t.Errorf("rag-status: %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, "/", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "features") {
		t.Errorf("root: %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, "/nope", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown route: %d", w.Code)
	}
}
