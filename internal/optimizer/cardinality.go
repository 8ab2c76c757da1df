package optimizer

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

const (
	maxDoublings   = 64
	bisectionSteps = 40
	lambdaTol      = 1e-12
)

// cardinalityProblem is a binary program whose rows are count bounds on the
// whole pool, count bounds on disjoint groups of variables and at most one
// knapsack row with nonnegative weights. Roster models have this shape.
//
// The count rows alone describe an integral polytope, so nodes are bounded by
// relaxing only the knapsack row. For any lambda >= 0
//
//	L(lambda) = lambda*capacity + max sum (score_i - lambda*weight_i) x_i
//
// taken over the count rows bounds the node from above, and its minimum over
// lambda is the LP relaxation bound. The inner maximum is one sort per group
// and a dynamic program over group sizes, with no simplex involved.
type cardinalityProblem struct {
	model    *Model
	score    []float64
	weight   []float64
	capacity float64
	knapsack bool
	groups   []countGroup
	totalLo  int
	totalHi  int
	// infeasible marks a row that can never hold, such as an empty row with
	// a positive minimum.
	infeasible bool
}

type countGroup struct {
	members []int
	lo, hi  int
}

// nodeGroup is a countGroup under a node's fixings. lo and hi count forced
// members too.
type nodeGroup struct {
	forced []int
	free   []int
	lo, hi int
}

// newCardinalityProblem reports false for models of any other shape.
func newCardinalityProblem(m *Model, dir float64) (*cardinalityProblem, bool) {
	n := len(m.Variables)
	if len(m.Objective.Coefs) != n {
		return nil, false
	}

	p := &cardinalityProblem{
		model:   m,
		score:   make([]float64, n),
		weight:  make([]float64, n),
		totalHi: n,
	}
	for i, c := range m.Objective.Coefs {
		p.score[i] = dir * c
	}

	owner := make([]int, n)
	for i := range owner {
		owner[i] = -1
	}
	bySet := make(map[string]int)

	for _, c := range m.Constraints {
		if len(c.Terms) == 0 {
			if !c.Sense.holds(0, c.RHS) {
				p.infeasible = true
			}
			continue
		}

		if members, ok := countMembers(c, n); ok {
			lo, hi := countBounds(c, len(members))
			if len(members) == n {
				p.totalLo = max(p.totalLo, lo)
				p.totalHi = min(p.totalHi, hi)
				continue
			}

			key := setKey(members)
			if g, seen := bySet[key]; seen {
				p.groups[g].lo = max(p.groups[g].lo, lo)
				p.groups[g].hi = min(p.groups[g].hi, hi)
				continue
			}
			for _, v := range members {
				if owner[v] >= 0 {
					return nil, false
				}
			}
			for _, v := range members {
				owner[v] = len(p.groups)
			}
			bySet[key] = len(p.groups)
			p.groups = append(p.groups, countGroup{members: members, lo: lo, hi: hi})
			continue
		}

		if c.Sense != LessEqual || p.knapsack {
			return nil, false
		}
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= n || t.Coef < 0 {
				return nil, false
			}
			p.weight[t.Var] += t.Coef
		}
		p.capacity = c.RHS
		p.knapsack = true
	}

	var rest []int
	for v, g := range owner {
		if g < 0 {
			rest = append(rest, v)
		}
	}
	if len(rest) > 0 {
		p.groups = append(p.groups, countGroup{members: rest, lo: 0, hi: len(rest)})
	}
	return p, true
}

// countMembers returns the sorted variables of a row whose coefficients are
// all one, with no variable repeated.
func countMembers(c Constraint, n int) ([]int, bool) {
	seen := make(map[int]bool, len(c.Terms))
	members := make([]int, 0, len(c.Terms))
	for _, t := range c.Terms {
		if t.Coef != 1 || t.Var < 0 || t.Var >= n || seen[t.Var] {
			return nil, false
		}
		seen[t.Var] = true
		members = append(members, t.Var)
	}
	sort.Ints(members)
	return members, true
}

// countBounds converts a count row into an integer range within [0, size].
// An empty range means the row cannot hold.
func countBounds(c Constraint, size int) (lo, hi int) {
	rhs := math.Max(-1, math.Min(float64(size)+1, c.RHS))
	ceil := int(math.Ceil(rhs - boundTol))
	floor := int(math.Floor(rhs + boundTol))

	lo, hi = 0, size
	switch c.Sense {
	case LessEqual:
		hi = floor
	case GreaterEqual:
		lo = ceil
	case Equal:
		lo, hi = ceil, floor
	}
	return max(lo, 0), min(hi, size)
}

func setKey(members []int) string {
	var sb strings.Builder
	for i, v := range members {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(v))
	}
	return sb.String()
}

func (p *cardinalityProblem) nodeGroups(fixed []int8) ([]nodeGroup, bool) {
	if p.totalLo > p.totalHi {
		return nil, false
	}

	groups := make([]nodeGroup, len(p.groups))
	minTotal, maxTotal := 0, 0
	for gi, g := range p.groups {
		var ng nodeGroup
		for _, v := range g.members {
			switch fixed[v] {
			case fixedOn:
				ng.forced = append(ng.forced, v)
			case unfixed:
				ng.free = append(ng.free, v)
			}
		}
		ng.lo = max(g.lo, len(ng.forced))
		ng.hi = min(g.hi, len(ng.forced)+len(ng.free))
		if ng.lo > ng.hi {
			return nil, false
		}
		minTotal += ng.lo
		maxTotal += ng.hi
		groups[gi] = ng
	}

	if minTotal > p.totalHi || maxTotal < p.totalLo {
		return nil, false
	}
	return groups, true
}

// maximize writes into sel the selection with the largest total value that
// meets every count bound of the node, and returns that total.
func (p *cardinalityProblem) maximize(groups []nodeGroup, value []float64, sel []bool) (float64, bool) {
	negInf := math.Inf(-1)
	width := p.totalHi + 1

	// dp[j] is the best total over the groups so far using j variables.
	dp := make([]float64, width)
	for j := range dp {
		dp[j] = negInf
	}
	dp[0] = 0

	orders := make([][]int, len(groups))
	picks := make([][]int, len(groups))
	for gi, g := range groups {
		// free is in index order, so ties keep the lower index first
		order := append([]int(nil), g.free...)
		sort.SliceStable(order, func(a, b int) bool {
			return value[order[a]] > value[order[b]]
		})

		forcedSum := 0.0
		for _, v := range g.forced {
			forcedSum += value[v]
		}
		prefix := make([]float64, len(order)+1)
		for k, v := range order {
			prefix[k+1] = prefix[k] + value[v]
		}

		next := make([]float64, width)
		pick := make([]int, width)
		for j := range next {
			next[j] = negInf
		}
		for j, base := range dp {
			if math.IsInf(base, -1) {
				continue
			}
			for k := g.lo; k <= g.hi && j+k < width; k++ {
				candidate := base + forcedSum + prefix[k-len(g.forced)]
				if candidate > next[j+k] {
					next[j+k] = candidate
					pick[j+k] = k
				}
			}
		}
		orders[gi], picks[gi], dp = order, pick, next
	}

	total := -1
	for j := p.totalLo; j < width; j++ {
		if !math.IsInf(dp[j], -1) && (total < 0 || dp[j] > dp[total]) {
			total = j
		}
	}
	if total < 0 {
		return 0, false
	}
	best := dp[total]

	for i := range sel {
		sel[i] = false
	}
	for gi := len(groups) - 1; gi >= 0; gi-- {
		g := groups[gi]
		k := picks[gi][total]
		for _, v := range g.forced {
			sel[v] = true
		}
		for _, v := range orders[gi][:k-len(g.forced)] {
			sel[v] = true
		}
		total -= k
	}
	return best, true
}

func (p *cardinalityProblem) bound(fixed []int8, cutoff float64) nodeBound {
	if p.infeasible {
		return nodeBound{infeasible: true}
	}
	groups, ok := p.nodeGroups(fixed)
	if !ok {
		return nodeBound{infeasible: true}
	}

	n := len(fixed)
	unconstrained := make([]bool, n)
	top, ok := p.maximize(groups, p.score, unconstrained)
	if !ok {
		return nodeBound{infeasible: true}
	}
	if !p.knapsack || p.fits(unconstrained) {
		return p.exact(fixed, unconstrained, top)
	}

	// The lightest selection decides whether the node is feasible at all.
	value := make([]float64, n)
	for i, w := range p.weight {
		value[i] = -w
	}
	lightest := make([]bool, n)
	p.maximize(groups, value, lightest)
	if !p.fits(lightest) {
		return nodeBound{infeasible: true}
	}

	nb := nodeBound{bounded: true, value: top}
	best, bestScore := lightest, p.scoreOf(lightest)
	over, under := unconstrained, lightest

	// relax evaluates L(lambda) and reports whether its maximizer fits.
	relax := func(lambda float64) ([]bool, bool) {
		for i := range value {
			value[i] = p.score[i] - lambda*p.weight[i]
		}
		sel := make([]bool, n)
		v, _ := p.maximize(groups, value, sel)
		nb.value = math.Min(nb.value, lambda*p.capacity+v)
		if !p.fits(sel) {
			return sel, false
		}
		if s := p.scoreOf(sel); s > bestScore {
			best, bestScore = sel, s
		}
		return sel, true
	}

	lo, hi := 0.0, p.startLambda()
	found := false
	for i := 0; i < maxDoublings; i++ {
		sel, fits := relax(hi)
		if fits {
			under, found = sel, true
			break
		}
		over, lo, hi = sel, hi, hi*2
	}
	for i := 0; found && i < bisectionSteps && hi-lo > lambdaTol*hi; i++ {
		if settled(nb.value, math.Max(bestScore, cutoff)) {
			break
		}
		mid := lo + (hi-lo)/2
		if sel, fits := relax(mid); fits {
			hi, under = mid, sel
		} else {
			lo, over = mid, sel
		}
	}

	nb.branchVar = p.branchVariable(fixed, over, under)
	if p.model.Evaluate(best) == nil {
		nb.feasible = best
		nb.exact = settled(nb.value, bestScore)
	}
	return nb
}

// exact handles a node whose unconstrained maximizer already fits.
func (p *cardinalityProblem) exact(fixed []int8, sel []bool, value float64) nodeBound {
	if p.model.Evaluate(sel) != nil {
		return nodeBound{bounded: true, value: value, branchVar: firstUnfixed(fixed)}
	}
	return nodeBound{bounded: true, value: value, feasible: sel, exact: true, branchVar: -1}
}

// branchVariable prefers the heaviest free variable that the over-capacity
// maximizer takes and the fitting one leaves out.
func (p *cardinalityProblem) branchVariable(fixed []int8, over, under []bool) int {
	pick := -1
	for i, f := range fixed {
		if f != unfixed || !over[i] || under[i] {
			continue
		}
		if pick < 0 || p.weight[i] > p.weight[pick] {
			pick = i
		}
	}
	if pick >= 0 {
		return pick
	}
	for i, f := range fixed {
		if f == unfixed && over[i] != under[i] {
			return i
		}
	}
	return firstUnfixed(fixed)
}

// startLambda is a multiplier at which the heaviest variable stops paying
// for itself; doubling from there quickly reaches a fitting maximizer.
func (p *cardinalityProblem) startLambda() float64 {
	maxScore, maxWeight := 0.0, 0.0
	for i := range p.score {
		maxScore = math.Max(maxScore, math.Abs(p.score[i]))
		maxWeight = math.Max(maxWeight, p.weight[i])
	}
	if maxWeight == 0 {
		return 1
	}
	return (maxScore + 1) / maxWeight
}

func (p *cardinalityProblem) fits(sel []bool) bool {
	total := 0.0
	for i, selected := range sel {
		if selected {
			total += p.weight[i]
		}
	}
	return LessEqual.holds(total, p.capacity)
}

func (p *cardinalityProblem) scoreOf(sel []bool) float64 {
	total := 0.0
	for i, selected := range sel {
		if selected {
			total += p.score[i]
		}
	}
	return total
}
