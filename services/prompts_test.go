package services

import (
	"strings"
	"testing"

	"docbot-rag/internal/config"
)

func TestBuildPromptContextDepth(t *testing.T) {
	contexts := []string{"ctx-one", "ctx-two", "ctx-three", "ctx-four"}
	defaults := config.Defaults()

	analysis := BuildPrompt(KindSymptomAnalysis, contexts, PromptInput{Symptoms: "fever"}, defaults.Analysis)
	if !strings.Contains(analysis.User, "ctx-one\n\nctx-two\n\nctx-three") || strings.Contains(analysis.User, "ctx-four") {
		t.Error("analysis prompt should join the top 3 contexts with blank lines")
	}

	chat := BuildPrompt(KindChat, contexts, PromptInput{Message: "hi"}, defaults.Chat)
	if !strings.Contains(chat.User, "ctx-one\n\nctx-two") || strings.Contains(chat.User, "ctx-three") {
		t.Error("chat prompt should use the top 2 contexts")
	}

	info := BuildPrompt(KindConditionInfo, contexts, PromptInput{Condition: "gout"}, defaults.MedicalInfo)
	if strings.Contains(info.User, "ctx-four") || !strings.Contains(info.User, "## gout Overview") {
		t.Error("condition prompt should use 3 contexts and the overview heading")
	}
}

func TestBuildPromptSettingsAndSystem(t *testing.T) {
	defaults := config.Defaults()

	p := BuildPrompt(KindSymptomAnalysis, nil, PromptInput{Symptoms: "cough"}, defaults.Analysis)
	if p.MaxTokens != 1500 || p.Temperature != 0.3 {
		t.Errorf("analysis settings = %d/%v, want 1500/0.3", p.MaxTokens, p.Temperature)
	}
	if !strings.Contains(p.System, "valid JSON only") {
		t.Error("analysis system directive must demand JSON")
	}
	if !strings.Contains(p.User, `"urgency_level"`) || !strings.Contains(p.User, Disclaimer) {
		t.Error("analysis prompt must embed the schema and disclaimer")
	}

	c := BuildPrompt(KindChat, nil, PromptInput{Message: "hi"}, defaults.Chat)
	if c.MaxTokens != 800 || c.Temperature != float32(0.4) {
		t.Errorf("chat settings = %d/%v, want 800/0.4", c.MaxTokens, c.Temperature)
	}
}

func TestBuildPromptEmptyContext(t *testing.T) {
	p := BuildPrompt(KindChat, nil, PromptInput{Message: "What is diabetes?"}, config.Defaults().Chat)
	if !strings.Contains(p.User, "MEDICAL REFERENCE CONTEXT:\n\n\nUSER QUESTION: What is diabetes?") {
		t.Errorf("empty context should leave an empty section, got:\n%s", p.User)
	}
}

func TestPatientContext(t *testing.T) {
	age := 34
	zero := 0
	cases := []struct {
		age             *int
		gender, history string
		want            string
	}{
		{nil, "", "", "No additional context"},
		{&age, "", "", "Age: 34"},
		{&age, "female", "asthma", "Age: 34, Gender: female, Medical History: asthma"},
		{nil, " ", "diabetes", "Medical History: diabetes"},
		{&zero, "", "", "No additional context"},
		{&zero, "male", "", "Gender: male"},
	}
	for _, c := range cases {
		if got := PatientContext(c.age, c.gender, c.history); got != c.want {
			t.Errorf("PatientContext = %q, want %q", got, c.want)
		}
	}
}
