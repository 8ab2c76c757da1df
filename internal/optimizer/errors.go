package optimizer

import "errors"

var (
	// ErrBackendUnavailable means no solver backend could be created for the run.
	ErrBackendUnavailable = errors.New("solver backend unavailable")

	// ErrNoSolution means the solver finished without proving an optimal roster
	// (infeasible constraints, node limit, cancelled context or numeric failure).
	ErrNoSolution = errors.New("no optimal solution under current constraints")

	ErrInvalidSalaryCap = errors.New("salary cap must be positive")
	ErrUnknownPlaystyle = errors.New("unknown playstyle")
)
