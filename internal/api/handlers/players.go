package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/roster-optimizer/internal/scoring"
	"github.com/stitts-dev/roster-optimizer/internal/services"
)

// PlayerHandler serves the scored player table
type PlayerHandler struct {
	service *services.RosterService
	logger  *logrus.Logger
}

func NewPlayerHandler(service *services.RosterService, logger *logrus.Logger) *PlayerHandler {
	return &PlayerHandler{service: service, logger: logger}
}

// GetPlayers returns every scored player with pool statistics
func (h *PlayerHandler) GetPlayers(c *gin.Context) {
	pool, err := h.service.ScoredPool(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load player pool")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "Player pool unavailable",
			Code:    CodePoolUnavailable,
			Details: map[string]string{"error": err.Error()},
		})
		return
	}

	c.JSON(http.StatusOK, PlayersResponse{
		Players:  pool,
		Summary:  scoring.Summarize(pool),
		LoadedAt: h.service.LoadedAt(),
	})
}

// ReloadPlayers rereads the pool from its source
func (h *PlayerHandler) ReloadPlayers(c *gin.Context) {
	count, err := h.service.Reload(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to reload player pool")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "Player pool reload failed",
			Code:    CodePoolUnavailable,
			Details: map[string]string{"error": err.Error()},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"players":       count,
		"loaded_at":     h.service.LoadedAt(),
		"model_version": scoring.ModelVersion,
	})
}
