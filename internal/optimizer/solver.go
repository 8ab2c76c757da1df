package optimizer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/roster-optimizer/internal/models"
)

// Status is a backend's termination status for one solve.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
	StatusNodeLimit
	StatusAborted
	StatusNumericFailure
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusNodeLimit:
		return "node_limit"
	case StatusAborted:
		return "aborted"
	case StatusNumericFailure:
		return "numeric_failure"
	default:
		return "unknown"
	}
}

// BackendResult is what a backend reports for one solve. Values holds one
// entry per model variable and is only meaningful when Status is optimal.
type BackendResult struct {
	Status    Status
	Values    []float64
	Objective float64
	Nodes     int
}

// Backend solves binary integer programs.
type Backend interface {
	Name() string
	Solve(ctx context.Context, m *Model) (*BackendResult, error)
}

// BackendConfig carries backend tuning knobs.
type BackendConfig struct {
	MaxNodes int
	Logger   *logrus.Logger
}

// BackendFactory creates a backend instance for a single run.
type BackendFactory func(cfg BackendConfig) (Backend, error)

// Registry maps backend names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]BackendFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]BackendFactory)}
}

// DefaultRegistry registers the built-in branch-and-bound backends.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(BranchAndBoundBackend, newBranchAndBound)
	r.Register("bnb", newBranchAndBound)
	r.Register(LPBranchAndBoundBackend, newLPBranchAndBound)
	return r
}

func (r *Registry) Register(name string, factory BackendFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(name)] = factory
}

// Names lists registered backend names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create acquires a backend. Every failure wraps ErrBackendUnavailable.
func (r *Registry) Create(name string, cfg BackendConfig) (Backend, error) {
	r.mu.RLock()
	factory, ok := r.factories[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no backend registered as %q", ErrBackendUnavailable, name)
	}

	backend, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, name, err)
	}
	if backend == nil {
		return nil, fmt.Errorf("%w: %s returned no backend", ErrBackendUnavailable, name)
	}
	return backend, nil
}

// Solution is an extracted optimal assignment.
type Solution struct {
	Selected  []models.ScoredPlayer
	Indices   []int
	Objective float64
	Status    Status
	Backend   string
	Nodes     int
	Elapsed   time.Duration
}

// Solver hands a model to a freshly acquired backend and interprets the outcome.
type Solver struct {
	registry    *Registry
	backendName string
	config      BackendConfig
	logger      *logrus.Logger
}

func NewSolver(registry *Registry, backendName string, cfg BackendConfig, logger *logrus.Logger) *Solver {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	return &Solver{
		registry:    registry,
		backendName: backendName,
		config:      cfg,
		logger:      logger,
	}
}

func (s *Solver) BackendName() string {
	return s.backendName
}

// Solve runs exactly one solve. It returns ErrBackendUnavailable when no
// backend can be created and ErrNoSolution for any non-optimal termination,
// including an "optimal" assignment that breaks a model constraint.
func (s *Solver) Solve(ctx context.Context, m *Model) (*Solution, error) {
	log := s.logger.WithFields(logrus.Fields{
		"backend":     s.backendName,
		"variables":   len(m.Variables),
		"constraints": len(m.Constraints),
	})

	backend, err := s.registry.Create(s.backendName, s.config)
	if err != nil {
		log.WithError(err).Error("Solver initialization failed")
		return nil, err
	}

	start := time.Now()
	result, err := runBackend(ctx, backend, m)
	elapsed := time.Since(start)
	if err != nil {
		log.WithError(err).Warn("Solver failed")
		return nil, fmt.Errorf("%w: %s: %v", ErrNoSolution, backend.Name(), err)
	}

	log = log.WithFields(logrus.Fields{
		"status":   result.Status.String(),
		"nodes":    result.Nodes,
		"duration": elapsed,
	})

	if result.Status != StatusOptimal {
		log.Info("No optimal solution found")
		return nil, fmt.Errorf("%w: solver status %s", ErrNoSolution, result.Status)
	}
	if len(result.Values) != len(m.Variables) {
		log.Warn("Solver returned a malformed assignment")
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrNoSolution, len(m.Variables), len(result.Values))
	}

	selection := make([]bool, len(result.Values))
	for i, v := range result.Values {
		selection[i] = v > 0.5
	}
	if err := m.Evaluate(selection); err != nil {
		log.WithError(err).Warn("Solver returned an assignment that violates the model")
		return nil, fmt.Errorf("%w: %s: %v", ErrNoSolution, backend.Name(), err)
	}

	solution := &Solution{
		Objective: result.Objective,
		Status:    result.Status,
		Backend:   backend.Name(),
		Nodes:     result.Nodes,
		Elapsed:   elapsed,
	}
	for i, selected := range selection {
		if selected {
			solution.Indices = append(solution.Indices, i)
			solution.Selected = append(solution.Selected, m.Players[i])
		}
	}

	log.WithFields(logrus.Fields{
		"selected":  len(solution.Selected),
		"objective": solution.Objective,
	}).Info("Optimal solution found")

	return solution, nil
}

// runBackend contains backend panics so a misbehaving solver surfaces as a
// failed solve instead of taking the caller down.
func runBackend(ctx context.Context, backend Backend, m *Model) (result *BackendResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("backend panic: %v", r)
		}
	}()
	result, err = backend.Solve(ctx, m)
	if err == nil && result == nil {
		err = fmt.Errorf("backend returned no result")
	}
	return result, err
}
