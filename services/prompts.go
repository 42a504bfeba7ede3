package services

import (
	"fmt"
	"strings"

	"docbot-rag/internal/config"
)

// Disclaimer is attached to every symptom analysis, parsed or fallback.
const Disclaimer = "This analysis is based on medical literature but is not a substitute for professional medical advice. Always consult with a healthcare provider for proper medical evaluation and treatment."

// PromptKind selects the system directive, template and generation settings.
type PromptKind int

const (
	KindSymptomAnalysis PromptKind = iota
	KindChat
	KindConditionInfo
)

func (k PromptKind) String() string {
	switch k {
	case KindSymptomAnalysis:
		return "symptom_analysis"
	case KindChat:
		return "chat"
	case KindConditionInfo:
		return "condition_info"
	default:
		return fmt.Sprintf("PromptKind(%d)", int(k))
	}
}

// Prompt is a complete LLM request for one endpoint call.
type Prompt struct {
	Kind        PromptKind
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

// PromptInput carries the caller-supplied fields. Only the ones relevant to
// the kind are read.
type PromptInput struct {
	Symptoms       string
	Age            *int
	Gender         string
	MedicalHistory string
	Message        string
	Condition      string
}

const (
	symptomAnalysisSystem = `You are an experienced medical AI assistant with access to comprehensive medical knowledge.
Analyze symptoms using the provided medical reference information. Provide evidence-based analysis while being conservative
and always recommending professional medical consultation when appropriate. Always respond with valid JSON only.`

	chatSystem = `You are a helpful medical AI assistant with access to comprehensive medical literature.
Provide accurate health information using markdown formatting and evidence-based responses.
Always recommend consulting healthcare providers for serious concerns.`

	conditionInfoSystem = `Provide accurate medical information using markdown formatting and evidence from medical literature.
Use headers, lists, bold text, italics, and other markdown features appropriately.
Base responses on medical literature when available.`
)

// BuildPrompt assembles the prompt for kind from the retrieved context texts
// and the caller input. It never fails: an empty context still yields a
// context section. gen supplies the per-kind generation settings.
func BuildPrompt(kind PromptKind, contexts []string, in PromptInput, gen config.GenerationConfig) Prompt {
	p := Prompt{
		Kind:        kind,
		MaxTokens:   gen.MaxTokens,
		Temperature: float32(gen.Temperature),
	}
	depth := gen.ContextDepth
	if depth <= 0 {
		depth = defaultContextDepth(kind)
	}
	contextText := JoinContext(contexts, depth)

	switch kind {
	case KindSymptomAnalysis:
		p.System = symptomAnalysisSystem
		p.User = symptomAnalysisPrompt(contextText, PatientContext(in.Age, in.Gender, in.MedicalHistory), in.Symptoms)
	case KindChat:
		p.System = chatSystem
		p.User = chatPrompt(contextText, in.Message)
	case KindConditionInfo:
		p.System = conditionInfoSystem
		p.User = conditionInfoPrompt(contextText, in.Condition)
	}
	return p
}

func defaultContextDepth(kind PromptKind) int {
	if kind == KindChat {
		return 2
	}
	return 3
}

// JoinContext joins the first n texts with a blank line.
func JoinContext(texts []string, n int) string {
	if n > len(texts) {
		n = len(texts)
	}
	return strings.Join(texts[:n], "\n\n")
}

// PatientContext renders the optional patient fields, or "No additional context".
func PatientContext(age *int, gender, history string) string {
	var parts []string
	if age != nil && *age > 0 {
		parts = append(parts, fmt.Sprintf("Age: %d", *age))
	}
	if g := strings.TrimSpace(gender); g != "" {
		parts = append(parts, "Gender: "+g)
	}
	if h := strings.TrimSpace(history); h != "" {
		parts = append(parts, "Medical History: "+h)
	}
	if len(parts) == 0 {
		return "No additional context"
	}
	return strings.Join(parts, ", ")
}

func symptomAnalysisPrompt(contextText, patientContext, symptoms string) string {
	return fmt.Sprintf(`
MEDICAL REFERENCE CONTEXT:
%s

PATIENT CONTEXT: %s
SYMPTOMS: %s

Based on the medical reference information above and the patient's symptoms, provide a detailed analysis in the following JSON format:
{
    "analysis_summary": "Brief summary of the symptom analysis based on medical literature",
    "possible_conditions": [
        {
            "name": "Condition name from medical literature",
            "probability": "High/Moderate/Low",
            "description": "Description based on medical reference",
            "common_symptoms": ["symptom1", "symptom2", "symptom3"],
            "reference_match": "How well this matches the reference material"
        }
    ],
    "treatment_recommendations": [
        {
            "type": "Home care/Medical consultation/Emergency",
            "description": "Treatment recommendation based on medical literature",
            "urgency": "low/moderate/high/emergency",
            "source": "Evidence from medical reference"
        }
    ],
    "urgency_level": "low/moderate/high/emergency",
    "medical_evidence": "Summary of relevant medical evidence from the reference material",
    "disclaimer": "%s",
    "follow_up_questions": ["question1", "question2"]
}

IMPORTANT GUIDELINES:
1. Base your analysis primarily on the provided medical reference material
2. Provide 2-4 most likely conditions that match the reference information
3. Include evidence-based treatment recommendations
4. Always prioritize safety and recommend professional consultation when appropriate
5. Reference the medical literature in your recommendations
6. Be conservative and evidence-based in your analysis
7. If emergency keywords are detected, prioritize emergency care recommendations

Response must be valid JSON only, no additional text.
`, contextText, patientContext, symptoms, Disclaimer)
}

func chatPrompt(contextText, message string) string {
	return fmt.Sprintf(`
MEDICAL REFERENCE CONTEXT:
%s

USER QUESTION: %s

Based on the medical reference information provided above, please answer the user's question. Use markdown formatting for better readability.

Guidelines:
- Base your response on the provided medical reference material when relevant
- Use evidence from the medical literature
- Always recommend consulting healthcare providers for serious concerns
- Format your response with proper markdown for enhanced readability
- If the reference material doesn't contain relevant information, provide general medical knowledge but clearly indicate this
- Include references to the medical literature when applicable
- Add disclaimer: %s

Provide a comprehensive, well-formatted response using markdown.
`, contextText, message, Disclaimer)
}

func conditionInfoPrompt(contextText, condition string) string {
	return fmt.Sprintf(`
MEDICAL REFERENCE CONTEXT:
%[1]s

CONDITION TO RESEARCH: %[2]s

Based on the medical reference information provided above, provide comprehensive information about: %[2]s

Format your response using markdown for better readability. Include:

## %[2]s Overview

### Definition
Brief definition and overview based on medical literature

### Common Symptoms
- List symptoms from medical reference material
- Use **bold** for important symptoms from the literature
- Use *italic* for mild symptoms mentioned in references

### Possible Causes
1. Primary causes (from medical literature)
2. Secondary causes (evidence-based)
3. Risk factors (referenced in medical literature)

### Treatment Options
#### Conservative Treatment
- Evidence-based non-medical approaches
- Lifestyle changes supported by medical literature

#### Medical Treatment
- Medications mentioned in medical references
- Procedures referenced in medical literature

### When to See a Doctor
> **Important**: Warning signs from medical literature that require immediate attention

### Prevention Tips
- Preventive measures from medical evidence
- Evidence-based lifestyle recommendations

### Medical Evidence Summary
Brief summary of the key medical evidence found in the reference material

### Additional Information
Any other relevant information from the medical literature

### Disclaimer
%[3]s

Guidelines:
- Base your response primarily on the provided medical reference material
- Clearly indicate when information comes from the medical literature
- Use proper markdown formatting throughout
- If limited information is available in references, supplement with general medical knowledge but clearly distinguish this
- Include evidence-based recommendations

Please use proper markdown formatting throughout your response for enhanced readability.
`, contextText, condition, Disclaimer)
}
