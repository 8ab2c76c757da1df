package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/roster-optimizer/internal/services"
)

const serviceName = "roster-optimizer"

// Pinger is a dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	service *services.RosterService
	db      Pinger
	cache   Pinger
	logger  *logrus.Logger
}

// NewHealthHandler creates a new health handler. db and cache may be nil when
// not configured.
func NewHealthHandler(service *services.RosterService, db, cache Pinger, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		service: service,
		db:      db,
		cache:   cache,
		logger:  logger,
	}
}

// GetHealth returns the basic health status
func (h *HealthHandler) GetHealth(c *gin.Context) {
	response := HealthStatus{
		Status:    "ok",
		Service:   serviceName,
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	ctx := c.Request.Context()

	// The database is only the pool source, so a failure degrades but does
	// not take down solving of an already loaded pool.
	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			response.Status = "degraded"
			response.Checks["database"] = "failed: " + err.Error()
		} else {
			response.Checks["database"] = "ok"
		}
	} else {
		response.Checks["database"] = "not_configured"
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			response.Status = "degraded"
			response.Checks["redis"] = "failed: " + err.Error()
		} else {
			response.Checks["redis"] = "ok"
		}
	} else {
		response.Checks["redis"] = "not_configured"
	}

	c.JSON(http.StatusOK, response)
}

// GetReady reports ready once the scored pool is loaded
func (h *HealthHandler) GetReady(c *gin.Context) {
	response := HealthStatus{
		Status:    "ready",
		Service:   serviceName,
		Timestamp: time.Now(),
		Checks:    make(map[string]string),
	}

	if _, err := h.service.ScoredPool(c.Request.Context()); err != nil {
		h.logger.WithError(err).Warn("Readiness check failed")
		response.Status = "not_ready"
		response.Checks["player_pool"] = "failed: " + err.Error()
	} else {
		response.Checks["player_pool"] = "ok"
	}

	statusCode := http.StatusOK
	if response.Status != "ready" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}
