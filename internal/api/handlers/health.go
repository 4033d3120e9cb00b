// backend/internal/api/handlers/health.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/selahbot/backend/internal/health"
	"github.com/sirupsen/logrus"
)

type HealthHandler struct {
	checker *health.HealthChecker
	logger  *logrus.Logger
}

func NewHealthHandler(checker *health.HealthChecker, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		checker: checker,
		logger:  logger,
	}
}

// HandleHealth reports overall system health. Serves the cached snapshot
// when one exists, falling back to live checks.
func (h *HealthHandler) HandleHealth(c *gin.Context) {
	if cached, err := h.checker.CheckCached(c.Request.Context()); err == nil && len(cached.Services) > 0 {
		h.respond(c, *cached)
		return
	}

	h.respond(c, h.checker.CheckAll())
}

func (h *HealthHandler) respond(c *gin.Context, overall health.OverallHealth) {
	code := http.StatusOK
	if overall.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, overall)
}
