package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wealthhorizon/paybridge/internal/host"
	"github.com/wealthhorizon/paybridge/internal/logger"
)

type HealthHandler struct {
	host   *host.ActivityHost
	logger *logger.Logger
}

func NewHealthHandler(host *host.ActivityHost, logger *logger.Logger) *HealthHandler {
	return &HealthHandler{
		host:   host,
		logger: logger,
	}
}

// Health reports liveness and the registered bridge plugins
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"plugins": h.host.Plugins(),
	})
}
