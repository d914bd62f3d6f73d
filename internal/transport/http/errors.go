package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"kheelo-quiz-service/internal/domain"
)

type errorResponse struct {
	Message string `json:"message"`
}

// statusFor maps domain error kinds onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrOptionNotFound):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrQuizBusy),
		errors.Is(err, domain.ErrAlreadyAllocated),
		errors.Is(err, domain.ErrAttemptExists),
		errors.Is(err, domain.ErrAttemptExpired):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides internals of storage and unexpected failures.
func publicMessage(status int, err error) string {
	switch status {
	case http.StatusServiceUnavailable:
		return "storage is temporarily unavailable"
	case http.StatusInternalServerError:
		return "internal server error"
	default:
		return err.Error()
	}
}

func writeError(c *gin.Context, log *slog.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Any("error", err))
	}
	c.AbortWithStatusJSON(status, errorResponse{Message: publicMessage(status, err)})
}
