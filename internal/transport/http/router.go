package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"kheelo-quiz-service/internal/app"
)

// Services bundles the use cases exposed over HTTP.
type Services struct {
	Evaluation *app.EvaluationService
	Allocation *app.AllocationService
	Attempts   *app.AttemptService
}

// NewRouter wires admin REST routes, the attempt websocket and the health check.
// Admin routes stay open when adminSecret is empty.
func NewRouter(svc Services, adminSecret string, log *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log))

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	ws := NewWSHandler(svc.Attempts, log)
	router.GET("/ws", gin.WrapF(ws.ServeWS))

	admin := router.Group("/api/admin")
	if adminSecret != "" {
		admin.Use(AdminAuth(adminSecret))
	} else {
		log.Warn("admin jwt secret not configured, admin routes are unauthenticated")
	}

	handler := NewAdminHandler(svc.Evaluation, svc.Allocation, log)
	admin.POST("/quiz-evaluation", handler.Evaluate)
	admin.GET("/quiz-evaluation", handler.EvaluationStatus)
	admin.POST("/points-allocation", handler.Allocate)

	return router
}
