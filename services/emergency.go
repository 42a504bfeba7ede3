package services

import (
	"strings"

	"docbot-rag/models"
)

// EmergencyKeywords are matched as case-insensitive substrings of the raw
// symptom text. Negations such as "no chest pain" still match.
var EmergencyKeywords = []string{
	"chest pain", "difficulty breathing", "shortness of breath", "severe headache",
	"unconscious", "bleeding", "severe pain", "heart attack", "stroke",
	"seizure", "poisoning", "overdose", "severe allergic reaction",
	"unable to breathe", "choking", "severe injury", "broken bone",
	"high fever", "severe vomiting", "severe diarrhea", "dehydration",
}

// DetectEmergency returns the first emergency keyword found in symptoms.
func DetectEmergency(symptoms string) (string, bool) {
	lower := strings.ToLower(symptoms)
	for _, kw := range EmergencyKeywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

// escalate marks the analysis as an emergency and raises its urgency to
// high. An "emergency" urgency is left as is.
func escalate(a *models.SymptomAnalysis) {
	a.EmergencyDetected = true
	if a.UrgencyLevel != models.UrgencyEmergency {
		a.UrgencyLevel = models.UrgencyHigh
	}
}
