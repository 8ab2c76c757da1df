package optimizer

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// lpRelaxation bounds nodes of an arbitrary binary program with the LP
// relaxation: fixed variables are substituted out and free variables range
// over [0, 1].
type lpRelaxation struct {
	model  *Model
	dir    float64
	logger *logrus.Logger
}

type reducedRow struct {
	coefs []float64
	sense Sense
	rhs   float64
}

func (r *lpRelaxation) bound(fixed []int8, _ float64) nodeBound {
	m := r.model

	column := make([]int, len(fixed))
	free := make([]int, 0, len(fixed))
	offset := 0.0
	for j, f := range fixed {
		column[j] = -1
		switch f {
		case unfixed:
			column[j] = len(free)
			free = append(free, j)
		case fixedOn:
			offset += r.dir * m.Objective.Coefs[j]
		}
	}

	if len(free) == 0 {
		selection := fixedSelection(fixed)
		if m.Evaluate(selection) != nil {
			return nodeBound{infeasible: true}
		}
		return nodeBound{bounded: true, value: offset, feasible: selection, exact: true, branchVar: -1}
	}

	rows := make([]reducedRow, 0, len(m.Constraints))
	for _, c := range m.Constraints {
		row := reducedRow{coefs: make([]float64, len(free)), sense: c.Sense, rhs: c.RHS}
		for _, t := range c.Terms {
			switch fixed[t.Var] {
			case fixedOn:
				row.rhs -= t.Coef
			case unfixed:
				row.coefs[column[t.Var]] += t.Coef
			}
		}

		lo, hi, scale := activityRange(row.coefs)
		if scale == 0 {
			if !row.sense.holds(0, row.rhs) {
				return nodeBound{infeasible: true}
			}
			continue
		}
		if !activityCanSatisfy(row.sense, lo, hi, row.rhs) {
			return nodeBound{infeasible: true}
		}

		for k := range row.coefs {
			row.coefs[k] /= scale
		}
		row.rhs /= scale
		rows = append(rows, row)
	}

	optF, x, err := solveRelaxation(rows, free, m.Objective.Coefs, r.dir)
	if err != nil {
		if errors.Is(err, lp.ErrInfeasible) {
			return nodeBound{infeasible: true}
		}
		r.logger.WithError(err).Debug("LP relaxation failed, branching without bound")
		return nodeBound{branchVar: free[0]}
	}

	selection := fixedSelection(fixed)
	branchVar := -1
	worst := integralityTol
	for k, j := range free {
		v := math.Min(1, math.Max(0, x[k]))
		frac := math.Abs(v - math.Round(v))
		if frac > worst {
			worst = frac
			branchVar = j
		}
		selection[j] = v > 0.5
	}

	nb := nodeBound{bounded: true, value: offset - optF, branchVar: branchVar}
	if branchVar < 0 {
		if m.Evaluate(selection) == nil {
			nb.feasible = selection
			nb.exact = true
			return nb
		}
		// rounding broke feasibility, keep splitting on the remaining free variables
		nb.branchVar = firstUnfixed(fixed)
	}
	return nb
}

// solveRelaxation builds the standard form
//
//	minimize  -dir*c'x
//	s.t.      row'x (+/- s) = rhs   one slack per inequality row
//	          x_k + u_k = 1         upper bounds
//	          x, s, u >= 0
//
// and returns the simplex optimum and the free-variable values.
func solveRelaxation(rows []reducedRow, free []int, objective []float64, dir float64) (float64, []float64, error) {
	nFree := len(free)
	nSlack := 0
	for _, r := range rows {
		if r.sense != Equal {
			nSlack++
		}
	}

	nRows := len(rows) + nFree
	nCols := nFree + nSlack + nFree
	if nRows > nCols {
		return 0, nil, fmt.Errorf("relaxation has more rows (%d) than columns (%d)", nRows, nCols)
	}

	A := mat.NewDense(nRows, nCols, nil)
	rhs := make([]float64, nRows)

	slack := nFree
	for i, r := range rows {
		for k, v := range r.coefs {
			if v != 0 {
				A.Set(i, k, v)
			}
		}
		switch r.sense {
		case LessEqual:
			A.Set(i, slack, 1)
			slack++
		case GreaterEqual:
			A.Set(i, slack, -1)
			slack++
		}
		rhs[i] = r.rhs
	}

	for k := 0; k < nFree; k++ {
		i := len(rows) + k
		A.Set(i, k, 1)
		A.Set(i, nFree+nSlack+k, 1)
		rhs[i] = 1
	}

	c := make([]float64, nCols)
	for k, j := range free {
		c[k] = -dir * objective[j]
	}

	optF, x, err := lp.Simplex(c, A, rhs, simplexTol, nil)
	if err != nil {
		return 0, nil, err
	}
	return optF, x[:nFree], nil
}

// activityRange returns the min and max of coefs'x over x in [0,1] and the
// largest absolute coefficient.
func activityRange(coefs []float64) (lo, hi, scale float64) {
	for _, v := range coefs {
		if v < 0 {
			lo += v
		} else {
			hi += v
		}
		scale = math.Max(scale, math.Abs(v))
	}
	return lo, hi, scale
}

func activityCanSatisfy(sense Sense, lo, hi, rhs float64) bool {
	switch sense {
	case LessEqual:
		return sense.holds(lo, rhs)
	case GreaterEqual:
		return sense.holds(hi, rhs)
	case Equal:
		return LessEqual.holds(lo, rhs) && GreaterEqual.holds(hi, rhs)
	}
	return false
}

func fixedSelection(fixed []int8) []bool {
	selection := make([]bool, len(fixed))
	for j, f := range fixed {
		selection[j] = f == fixedOn
	}
	return selection
}
