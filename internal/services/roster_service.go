package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/stitts-dev/roster-optimizer/internal/models"
	"github.com/stitts-dev/roster-optimizer/internal/optimizer"
	"github.com/stitts-dev/roster-optimizer/internal/scoring"
	"github.com/stitts-dev/roster-optimizer/pkg/cache"
	"github.com/stitts-dev/roster-optimizer/pkg/logger"
)

// PoolSource supplies the merged player + salary table.
type PoolSource interface {
	Name() string
	Load(ctx context.Context) ([]models.Player, error)
}

// PoolCache stores scored pools between process restarts.
type PoolCache interface {
	GetPool(ctx context.Context, key string) ([]models.ScoredPlayer, error)
	SetPool(ctx context.Context, key string, pool []models.ScoredPlayer, expiration time.Duration) error
}

// OptimizeRequest is the user's input for one run.
type OptimizeRequest struct {
	Playstyle string
	SalaryCap float64
}

// ModelSummary describes a built model without solving it.
type ModelSummary struct {
	Playstyle   string   `json:"playstyle"`
	ScoreColumn string   `json:"score_column"`
	SalaryCap   float64  `json:"salary_cap"`
	Players     int      `json:"players"`
	Variables   int      `json:"variables"`
	Constraints []string `json:"constraints"`
	Positions   []string `json:"positions"`
}

// RosterService wires playstyle and salary cap to the scored pool, the model
// builder and the solver. The pool is immutable between reloads.
type RosterService struct {
	source   PoolSource
	cache    PoolCache
	cacheTTL time.Duration
	solver   *optimizer.Solver
	logger   *logrus.Logger

	mu       sync.RWMutex
	pool     []models.ScoredPlayer
	loadedAt time.Time
}

// NewRosterService creates the orchestrator. cache may be nil.
func NewRosterService(source PoolSource, poolCache PoolCache, cacheTTL time.Duration, solver *optimizer.Solver, log *logrus.Logger) *RosterService {
	if log == nil {
		log = logger.GetLogger()
	}
	return &RosterService{
		source:   source,
		cache:    poolCache,
		cacheTTL: cacheTTL,
		solver:   solver,
		logger:   log,
	}
}

func (s *RosterService) cacheKey() string {
	return cache.PoolKey(s.source.Name(), scoring.ModelVersion)
}

// Reload reads the source, rescores every player and refreshes the cache.
func (s *RosterService) Reload(ctx context.Context) (int, error) {
	players, err := s.source.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load player pool from %s: %w", s.source.Name(), err)
	}

	scored := scoring.ScorePool(players)
	s.setPool(scored)

	if s.cache != nil {
		if err := s.cache.SetPool(ctx, s.cacheKey(), scored, s.cacheTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to cache scored pool")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"source":        s.source.Name(),
		"players":       len(scored),
		"model_version": scoring.ModelVersion,
	}).Info("Player pool loaded")

	return len(scored), nil
}

// ScoredPool returns the scored table, loading it on first use.
func (s *RosterService) ScoredPool(ctx context.Context) ([]models.ScoredPlayer, error) {
	s.mu.RLock()
	pool := s.pool
	s.mu.RUnlock()
	if pool != nil {
		return pool, nil
	}

	if s.cache != nil {
		cached, err := s.cache.GetPool(ctx, s.cacheKey())
		if err == nil {
			s.setPool(cached)
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.WithError(err).Warn("Pool cache unavailable, loading from source")
		}
	}

	if _, err := s.Reload(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool, nil
}

// LoadedAt reports when the current pool was set.
func (s *RosterService) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

func (s *RosterService) setPool(pool []models.ScoredPlayer) {
	if pool == nil {
		pool = []models.ScoredPlayer{}
	}
	s.mu.Lock()
	s.pool = pool
	s.loadedAt = time.Now()
	s.mu.Unlock()
}

// Validate builds the model for a request and reports its shape.
func (s *RosterService) Validate(ctx context.Context, req OptimizeRequest) (*ModelSummary, error) {
	m, err := s.buildModel(ctx, req)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(m.Constraints))
	for i, c := range m.Constraints {
		names[i] = c.Name
	}

	return &ModelSummary{
		Playstyle:   string(m.Playstyle),
		ScoreColumn: m.Playstyle.Column(),
		SalaryCap:   m.SalaryCap,
		Players:     len(m.Players),
		Variables:   len(m.Variables),
		Constraints: names,
		Positions:   m.Positions,
	}, nil
}

// Optimize runs one build + solve and formats the roster. Failures come back
// as optimizer.ErrBackendUnavailable or optimizer.ErrNoSolution; no partial
// roster is ever returned.
func (s *RosterService) Optimize(ctx context.Context, req OptimizeRequest) (*models.Roster, error) {
	runID := uuid.New().String()
	log := logger.WithRunContext(s.logger, runID, req.Playstyle, req.SalaryCap)

	m, err := s.buildModel(ctx, req)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"players":     len(m.Players),
		"constraints": len(m.Constraints),
		"positions":   m.Positions,
	}).Info("Starting roster optimization")

	solution, err := s.solver.Solve(ctx, m)
	if err != nil {
		log.WithError(err).Warn("Roster optimization did not produce a roster")
		return nil, err
	}

	roster := FormatRoster(solution, m.Playstyle, m.SalaryCap)
	roster.RunID = runID

	log.WithFields(logrus.Fields{
		"total_salary": roster.TotalSalary,
		"total_score":  roster.TotalScore,
		"nodes":        solution.Nodes,
		"elapsed":      solution.Elapsed,
	}).Info("Roster optimization completed")

	return roster, nil
}

func (s *RosterService) buildModel(ctx context.Context, req OptimizeRequest) (*optimizer.Model, error) {
	style, err := optimizer.ParsePlaystyle(req.Playstyle)
	if err != nil {
		return nil, err
	}

	pool, err := s.ScoredPool(ctx)
	if err != nil {
		return nil, err
	}

	return optimizer.BuildModel(pool, style, req.SalaryCap)
}

// FormatRoster orders the selection by descending salary and assigns ranks.
func FormatRoster(solution *optimizer.Solution, style optimizer.Playstyle, salaryCap float64) *models.Roster {
	selected := make([]models.ScoredPlayer, len(solution.Selected))
	copy(selected, solution.Selected)
	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].Salary != selected[j].Salary {
			return selected[i].Salary > selected[j].Salary
		}
		return selected[i].Name < selected[j].Name
	})

	score := style.Score()
	roster := &models.Roster{
		Title:       fmt.Sprintf("Optimized Team (%s, Salary Cap: €%s)", style, formatThousands(salaryCap)),
		Playstyle:   string(style),
		ScoreColumn: style.Column(),
		SalaryCap:   salaryCap,
		Entries:     make([]models.RosterEntry, len(selected)),
		Backend:     solution.Backend,
		Nodes:       solution.Nodes,
		ElapsedMS:   solution.Elapsed.Milliseconds(),
	}

	for i, p := range selected {
		entry := models.RosterEntry{
			Rank:     i + 1,
			Player:   p.Name,
			Position: p.Position,
			Score:    score(p),
			Salary:   p.Salary,
		}
		roster.Entries[i] = entry
		roster.TotalSalary += entry.Salary
		roster.TotalScore += entry.Score
	}

	return roster
}

// formatThousands renders 20000000 as "20,000,000", rounding to whole euros.
func formatThousands(v float64) string {
	return message.NewPrinter(language.English).Sprintf("%d", int64(math.Round(v)))
}
