package handlers

import (
	"time"

	"github.com/stitts-dev/roster-optimizer/internal/models"
	"github.com/stitts-dev/roster-optimizer/internal/scoring"
)

// Error codes returned in ErrorResponse.Code
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeSolverUnavailable  = "SOLVER_UNAVAILABLE"
	CodeNoSolution         = "NO_SOLUTION"
	CodePoolUnavailable    = "POOL_UNAVAILABLE"
	CodeOptimizationFailed = "OPTIMIZATION_ERROR"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// OptimizeRequest is the JSON body for /optimize. A missing salary_cap uses
// the configured default.
type OptimizeRequest struct {
	Playstyle string   `json:"playstyle" binding:"required"`
	SalaryCap *float64 `json:"salary_cap"`
}

// PlayersResponse is the scored table plus summary statistics.
type PlayersResponse struct {
	Players  []models.ScoredPlayer `json:"players"`
	Summary  scoring.PoolSummary   `json:"summary"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// PlaystyleInfo describes one entry of the playstyle catalogue.
type PlaystyleInfo struct {
	Name        string `json:"name"`
	ScoreColumn string `json:"score_column"`
	Description string `json:"description"`
}

// SalaryCapRange mirrors the cap slider bounds.
type SalaryCapRange struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Step    float64 `json:"step"`
	Default float64 `json:"default"`
}

// PlaystylesResponse lists the playstyles and the accepted cap range.
type PlaystylesResponse struct {
	Playstyles []PlaystyleInfo `json:"playstyles"`
	SalaryCap  SalaryCapRange  `json:"salary_cap"`
}
