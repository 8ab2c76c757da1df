package handlers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/roster-optimizer/internal/optimizer"
	"github.com/stitts-dev/roster-optimizer/internal/services"
	"github.com/stitts-dev/roster-optimizer/pkg/config"
)

// OptimizationHandler handles roster optimization endpoints
type OptimizationHandler struct {
	service *services.RosterService
	config  *config.Config
	logger  *logrus.Logger
}

// NewOptimizationHandler creates a new optimization handler
func NewOptimizationHandler(service *services.RosterService, cfg *config.Config, logger *logrus.Logger) *OptimizationHandler {
	return &OptimizationHandler{
		service: service,
		config:  cfg,
		logger:  logger,
	}
}

// OptimizeRoster solves one roster for the requested playstyle and cap
func (h *OptimizationHandler) OptimizeRoster(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if h.config.SolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.SolveTimeout)
		defer cancel()
	}

	roster, err := h.service.Optimize(ctx, req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, roster)
}

// ValidateOptimizationRequest checks a request and reports the model it
// would build, without solving
func (h *OptimizationHandler) ValidateOptimizationRequest(c *gin.Context) {
	req, ok := h.bindRequest(c)
	if !ok {
		return
	}

	summary, err := h.service.Validate(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"model": summary,
	})
}

// GetPlaystyles lists the playstyle catalogue and the cap slider bounds
func (h *OptimizationHandler) GetPlaystyles(c *gin.Context) {
	styles := optimizer.AllPlaystyles()
	infos := make([]PlaystyleInfo, len(styles))
	for i, s := range styles {
		infos[i] = PlaystyleInfo{
			Name:        string(s),
			ScoreColumn: s.Column(),
			Description: s.Description(),
		}
	}

	c.JSON(http.StatusOK, PlaystylesResponse{
		Playstyles: infos,
		SalaryCap: SalaryCapRange{
			Min:     h.config.MinSalaryCap,
			Max:     h.config.MaxSalaryCap,
			Step:    h.config.SalaryCapStep,
			Default: h.config.DefaultSalaryCap,
		},
	})
}

func (h *OptimizationHandler) bindRequest(c *gin.Context) (services.OptimizeRequest, bool) {
	var body OptimizeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request format",
			Code:  CodeInvalidRequest,
			Details: map[string]string{
				"validation_error": err.Error(),
			},
		})
		return services.OptimizeRequest{}, false
	}

	salaryCap := h.config.DefaultSalaryCap
	if body.SalaryCap != nil {
		salaryCap = *body.SalaryCap
	}
	if err := h.checkSalaryCap(salaryCap); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid salary cap",
			Code:  CodeInvalidRequest,
			Details: map[string]string{
				"salary_cap": err.Error(),
			},
		})
		return services.OptimizeRequest{}, false
	}

	return services.OptimizeRequest{Playstyle: body.Playstyle, SalaryCap: salaryCap}, true
}

// checkSalaryCap enforces the slider range. The solver itself accepts any
// positive cap.
func (h *OptimizationHandler) checkSalaryCap(salaryCap float64) error {
	if math.IsNaN(salaryCap) || salaryCap < h.config.MinSalaryCap || salaryCap > h.config.MaxSalaryCap {
		return fmt.Errorf("must be between %.0f and %.0f", h.config.MinSalaryCap, h.config.MaxSalaryCap)
	}
	if step := h.config.SalaryCapStep; step > 0 {
		offset := (salaryCap - h.config.MinSalaryCap) / step
		if math.Abs(offset-math.Round(offset)) > 1e-9 {
			return fmt.Errorf("must be a multiple of %.0f above %.0f", step, h.config.MinSalaryCap)
		}
	}
	return nil
}

func (h *OptimizationHandler) respondError(c *gin.Context, err error) {
	status, resp := errorResponse(err)
	entry := h.logger.WithError(err).WithField("code", resp.Code)
	if status >= http.StatusInternalServerError {
		entry.Error("Roster optimization failed")
	} else {
		entry.Info("Roster optimization rejected")
	}
	c.JSON(status, resp)
}

func errorResponse(err error) (int, ErrorResponse) {
	details := map[string]string{"error": err.Error()}

	switch {
	case errors.Is(err, optimizer.ErrUnknownPlaystyle), errors.Is(err, optimizer.ErrInvalidSalaryCap):
		return http.StatusBadRequest, ErrorResponse{Error: "Invalid optimization request", Code: CodeInvalidRequest, Details: details}
	case errors.Is(err, optimizer.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, ErrorResponse{Error: "Solver backend unavailable", Code: CodeSolverUnavailable, Details: details}
	case errors.Is(err, optimizer.ErrNoSolution):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: "No solution found", Code: CodeNoSolution, Details: details}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "Optimization failed", Code: CodeOptimizationFailed, Details: details}
	}
}
