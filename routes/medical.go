package routes

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"docbot-rag/internal/logger"
	"docbot-rag/middleware"
	"docbot-rag/models"
	"docbot-rag/utils"

	"github.com/gin-gonic/gin"
)

// MedicalService is the behaviour the handlers need; *services.MedicalService
// satisfies it.
type MedicalService interface {
	AnalyzeSymptoms(ctx context.Context, req models.SymptomRequest) models.SymptomAnalysis
	Chat(ctx context.Context, req models.ChatRequest) (models.ChatResponse, error)
	ConditionInfo(ctx context.Context, condition string) (models.MedicalInfoResponse, error)
	Status() models.RAGStatus
}

var features = []string{
	"Symptom analysis with RAG",
	"Medical chat with knowledge base",
	"Condition information lookup",
	"Emergency keyword detection",
}

// Minimum trimmed lengths, counted in characters.
const (
	minSymptomsLen  = 3
	minMessageLen   = 2
	minConditionLen = 2
)

func longEnough(s string, n int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= n
}

func SetupMedicalRoutes(router *gin.Engine, svc MedicalService) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message":  "DocBot AI Medical Assistant with RAG is running",
			"features": features,
		})
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
		})
	})

	router.GET("/rag-status", func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Status())
	})

	router.POST("/analyze-symptoms", func(c *gin.Context) {
		var req models.SymptomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Please provide detailed symptoms", gin.H{"error": err.Error()})
			return
		}
		if !longEnough(req.Symptoms, minSymptomsLen) {
			utils.RespondWithBadRequest(c, "Please provide detailed symptoms", nil)
			return
		}
		req.Symptoms = strings.TrimSpace(req.Symptoms)

		c.JSON(http.StatusOK, svc.AnalyzeSymptoms(c.Request.Context(), req))
	})

	router.POST("/chat", func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Please provide a message", gin.H{"error": err.Error()})
			return
		}
		if !longEnough(req.Message, minMessageLen) {
			utils.RespondWithBadRequest(c, "Please provide a message", nil)
			return
		}
		req.Message = strings.TrimSpace(req.Message)

		resp, err := svc.Chat(c.Request.Context(), req)
		if err != nil {
			logger.Error("chat failed", "request_id", middleware.GetRequestID(c), "error", err)
			utils.RespondWithGenerationFailed(c, fmt.Sprintf("Chat failed: %v", err))
			return
		}
		c.JSON(http.StatusOK, resp)
	})

	router.GET("/medical-info/:condition", func(c *gin.Context) {
		condition := c.Param("condition")
		if !longEnough(condition, minConditionLen) {
			utils.RespondWithBadRequest(c, "Please provide a valid condition", nil)
			return
		}
		condition = strings.TrimSpace(condition)

		info, err := svc.ConditionInfo(c.Request.Context(), condition)
		if err != nil {
			logger.Error("condition lookup failed",
				"request_id", middleware.GetRequestID(c),
				"condition", condition,
				"error", err)
			utils.RespondWithGenerationFailed(c, fmt.Sprintf("Information retrieval failed: %v", err))
			return
		}
		c.JSON(http.StatusOK, info)
	})

	router.NoRoute(func(c *gin.Context) {
		utils.RespondWithNotFound(c, "Route not found")
	})
}
