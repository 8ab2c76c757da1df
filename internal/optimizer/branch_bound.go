package optimizer

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

const (
	// BranchAndBoundBackend is the registry name of the built-in backend.
	BranchAndBoundBackend = "branch-and-bound"
	// LPBranchAndBoundBackend always bounds nodes with LP relaxations, even
	// for models the default backend bounds combinatorially.
	LPBranchAndBoundBackend = "lp-branch-and-bound"
)

const (
	defaultMaxNodes = 200000
	simplexTol      = 1e-10
	integralityTol  = 1e-6
	boundTol        = 1e-9
)

const (
	unfixed  int8 = -1
	fixedOff int8 = 0
	fixedOn  int8 = 1
)

// nodeBound is the outcome of bounding one node.
type nodeBound struct {
	infeasible bool
	// bounded is false when no bound could be computed; the node is then
	// branched without pruning.
	bounded bool
	// value bounds dir*objective over the node from above.
	value float64
	// feasible is the best selection found while bounding, nil if none. It
	// has already passed Model.Evaluate.
	feasible []bool
	// exact means feasible attains value and the node needs no branching.
	exact     bool
	branchVar int
}

// bounder bounds the subproblem left by a partial assignment. cutoff is the
// incumbent's dir*objective, or -Inf without one; a bounder may stop
// tightening once its bound falls below it.
type bounder interface {
	bound(fixed []int8, cutoff float64) nodeBound
}

// branchAndBound solves binary programs by depth-first branch and bound.
// Models made of count rows plus one knapsack row are bounded by Lagrangian
// relaxation, anything else by LP relaxations through gonum's simplex.
type branchAndBound struct {
	maxNodes int
	lpOnly   bool
	logger   *logrus.Logger
}

func newBranchAndBound(cfg BackendConfig) (Backend, error) {
	return configure(&branchAndBound{}, cfg), nil
}

func newLPBranchAndBound(cfg BackendConfig) (Backend, error) {
	return configure(&branchAndBound{lpOnly: true}, cfg), nil
}

func configure(b *branchAndBound, cfg BackendConfig) *branchAndBound {
	b.maxNodes = cfg.MaxNodes
	if b.maxNodes <= 0 {
		b.maxNodes = defaultMaxNodes
	}
	b.logger = cfg.Logger
	if b.logger == nil {
		b.logger = logrus.StandardLogger()
	}
	return b
}

func (b *branchAndBound) Name() string {
	if b.lpOnly {
		return LPBranchAndBoundBackend
	}
	return BranchAndBoundBackend
}

func (b *branchAndBound) Solve(ctx context.Context, m *Model) (result *BackendResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = &BackendResult{Status: StatusNumericFailure}
			err = fmt.Errorf("%s: %v", b.Name(), r)
		}
	}()

	// Search always maximizes dir*objective.
	dir := 1.0
	if !m.Objective.Maximize {
		dir = -1.0
	}

	var bd bounder = &lpRelaxation{model: m, dir: dir, logger: b.logger}
	bounding := "lp"
	if !b.lpOnly {
		if p, ok := newCardinalityProblem(m, dir); ok {
			bd = p
			bounding = "lagrangian"
		}
	}

	return b.search(ctx, m, bd, dir, bounding), nil
}

type searchNode struct {
	fixed []int8
	bound nodeBound
}

func (b *branchAndBound) search(ctx context.Context, m *Model, bd bounder, dir float64, bounding string) *BackendResult {
	best := math.Inf(-1)
	var incumbent []bool

	accept := func(nb nodeBound) {
		if nb.feasible == nil {
			return
		}
		value := dir * m.ObjectiveValue(nb.feasible)
		if incumbent == nil || value > best+boundTol*math.Max(1, math.Abs(best)) {
			best = value
			incumbent = nb.feasible
		}
	}

	rootFixed := make([]int8, len(m.Variables))
	for i := range rootFixed {
		rootFixed[i] = unfixed
	}
	root := bd.bound(rootFixed, best)
	accept(root)
	nodes := 1

	stack := []searchNode{{fixed: rootFixed, bound: root}}
	for len(stack) > 0 {
		if ctx.Err() != nil {
			return &BackendResult{Status: StatusAborted, Nodes: nodes}
		}

		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		nb := node.bound
		if nb.infeasible || nb.exact || nb.branchVar < 0 {
			continue
		}
		if nb.bounded && incumbent != nil && settled(nb.value, best) {
			continue
		}

		if nodes+2 > b.maxNodes {
			b.logger.WithField("max_nodes", b.maxNodes).Warn("Branch-and-bound node limit reached")
			return &BackendResult{Status: StatusNodeLimit, Nodes: nodes}
		}

		var children [2]searchNode
		for k, f := range [2]int8{fixedOff, fixedOn} {
			fixed := append([]int8(nil), node.fixed...)
			fixed[nb.branchVar] = f
			child := bd.bound(fixed, best)
			accept(child)
			children[k] = searchNode{fixed: fixed, bound: child}
		}
		nodes += 2

		// pushed last, explored first
		off, on := children[0], children[1]
		if off.bound.bounded && on.bound.bounded && off.bound.value > on.bound.value {
			stack = append(stack, on, off)
		} else {
			stack = append(stack, off, on)
		}
	}

	b.logger.WithFields(logrus.Fields{
		"nodes":    nodes,
		"bounding": bounding,
		"found":    incumbent != nil,
	}).Debug("Branch-and-bound search complete")

	if incumbent == nil {
		return &BackendResult{Status: StatusInfeasible, Nodes: nodes}
	}

	values := make([]float64, len(incumbent))
	for i, selected := range incumbent {
		if selected {
			values[i] = 1
		}
	}
	return &BackendResult{
		Status:    StatusOptimal,
		Values:    values,
		Objective: m.ObjectiveValue(incumbent),
		Nodes:     nodes,
	}
}

// settled reports whether a bound cannot beat floor by more than tolerance.
func settled(bound, floor float64) bool {
	if math.IsInf(floor, -1) {
		return false
	}
	return bound <= floor+boundTol*math.Max(1, math.Abs(floor))
}

func firstUnfixed(fixed []int8) int {
	for j, f := range fixed {
		if f == unfixed {
			return j
		}
	}
	return -1
}
