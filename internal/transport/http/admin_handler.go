package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"kheelo-quiz-service/internal/app"
	"kheelo-quiz-service/internal/domain"
)

// AdminHandler serves quiz evaluation and points allocation.
type AdminHandler struct {
	evaluation *app.EvaluationService
	allocation *app.AllocationService
	log        *slog.Logger
}

func NewAdminHandler(evaluation *app.EvaluationService, allocation *app.AllocationService, log *slog.Logger) *AdminHandler {
	return &AdminHandler{evaluation: evaluation, allocation: allocation, log: log}
}

type evaluationRequest struct {
	QuizID         string         `json:"quizId"`
	CorrectAnswers map[string]int `json:"correctAnswers"`
}

type evaluationResponse struct {
	Message string `json:"message"`
	domain.EvaluationResult
}

type allocationResponse struct {
	Message string `json:"message"`
	domain.AllocationResult
}

func (h *AdminHandler) Evaluate(c *gin.Context) {
	var req evaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Message: "invalid request body: " + err.Error()})
		return
	}

	result, err := h.evaluation.Evaluate(c.Request.Context(), req.QuizID, req.CorrectAnswers)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, evaluationResponse{
		Message:          "Quiz evaluated successfully",
		EvaluationResult: result,
	})
}

func (h *AdminHandler) EvaluationStatus(c *gin.Context) {
	status, err := h.evaluation.Status(c.Request.Context(), c.Query("quizId"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *AdminHandler) Allocate(c *gin.Context) {
	var req domain.AllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Message: "invalid request body: " + err.Error()})
		return
	}

	result, err := h.allocation.Allocate(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, allocationResponse{
		Message:          "Points allocated successfully",
		AllocationResult: result,
	})
}
