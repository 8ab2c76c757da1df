package optimizer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rootFixings(n int) []int8 {
	fixed := make([]int8, n)
	for i := range fixed {
		fixed[i] = unfixed
	}
	return fixed
}

func TestCardinalityProblem_RecognizesRosterModel(t *testing.T) {
	m, err := BuildModel(balancedPool(), Balanced, 14_000_000)
	require.NoError(t, err)

	p, ok := newCardinalityProblem(m, 1)
	require.True(t, ok)

	assert.False(t, p.infeasible)
	assert.True(t, p.knapsack)
	assert.Equal(t, 14_000_000.0, p.capacity)
	assert.Equal(t, RosterSize, p.totalLo)
	assert.Equal(t, RosterSize, p.totalHi)

	// positions are sorted C, F, G; the guard rows merge into one group
	require.Len(t, p.groups, 3)
	assert.Equal(t, []int{12, 13, 14, 15}, p.groups[0].members)
	assert.Equal(t, []int{8, 9, 10, 11}, p.groups[1].members)
	assert.Equal(t, MinGuards, p.groups[2].lo)
	assert.Equal(t, MaxGuards, p.groups[2].hi)
}

func TestCardinalityProblem_OtherShapesFallBack(t *testing.T) {
	vars := []Variable{{Index: 0}, {Index: 1}, {Index: 2}}
	objective := Objective{Maximize: true, Coefs: []float64{1, 2, 3}}

	cases := map[string][]Constraint{
		"negative weight": {
			{Name: "w", Terms: []Term{{Var: 0, Coef: 2}, {Var: 1, Coef: -1}}, Sense: LessEqual, RHS: 1},
		},
		"two knapsacks": {
			{Name: "a", Terms: []Term{{Var: 0, Coef: 2}}, Sense: LessEqual, RHS: 1},
			{Name: "b", Terms: []Term{{Var: 1, Coef: 3}}, Sense: LessEqual, RHS: 1},
		},
		"weighted minimum": {
			{Name: "a", Terms: []Term{{Var: 0, Coef: 2}, {Var: 2, Coef: 1}}, Sense: GreaterEqual, RHS: 1},
		},
		"overlapping groups": {
			{Name: "a", Terms: []Term{{Var: 0, Coef: 1}, {Var: 1, Coef: 1}}, Sense: LessEqual, RHS: 1},
			{Name: "b", Terms: []Term{{Var: 1, Coef: 1}, {Var: 2, Coef: 1}}, Sense: LessEqual, RHS: 1},
		},
	}

	for name, constraints := range cases {
		t.Run(name, func(t *testing.T) {
			m := &Model{Variables: vars, Constraints: constraints, Objective: objective}
			_, ok := newCardinalityProblem(m, 1)
			assert.False(t, ok)
		})
	}
}

func TestCardinalityProblem_EmptyRowWithMinimumIsInfeasible(t *testing.T) {
	pool := balancedPool()[8:] // forwards and centers only
	m, err := BuildModel(pool, Balanced, 30_000_000)
	require.NoError(t, err)

	p, ok := newCardinalityProblem(m, 1)
	require.True(t, ok)
	assert.True(t, p.infeasible)
	assert.True(t, p.bound(rootFixings(len(pool)), math.Inf(-1)).infeasible)
}

func TestCardinalityProblem_Maximize(t *testing.T) {
	m, err := BuildModel(balancedPool(), Balanced, 14_000_000)
	require.NoError(t, err)
	p, ok := newCardinalityProblem(m, 1)
	require.True(t, ok)

	t.Run("respects the guard maximum", func(t *testing.T) {
		groups, ok := p.nodeGroups(rootFixings(16))
		require.True(t, ok)

		sel := make([]bool, 16)
		value, ok := p.maximize(groups, p.score, sel)
		require.True(t, ok)

		assert.InDelta(t, 48.5, value, 1e-9)
		assert.False(t, sel[7], "Guard 8")
		assert.False(t, sel[11], "Forward 4")
	})

	t.Run("forced members count toward the group", func(t *testing.T) {
		fixed := rootFixings(16)
		fixed[7] = fixedOn  // Guard 8
		fixed[11] = fixedOn // Forward 4
		fixed[0] = fixedOff // Guard 1

		groups, ok := p.nodeGroups(fixed)
		require.True(t, ok)

		sel := make([]bool, 16)
		_, ok = p.maximize(groups, p.score, sel)
		require.True(t, ok)

		assert.True(t, sel[7])
		assert.True(t, sel[11])
		assert.False(t, sel[0])
		assert.NoError(t, m.Evaluate(sel))
	})

	t.Run("too few free guards", func(t *testing.T) {
		fixed := rootFixings(16)
		for i := 0; i < 4; i++ {
			fixed[i] = fixedOff
		}
		_, ok := p.nodeGroups(fixed)
		assert.False(t, ok)
	})
}

func TestCardinalityProblem_BoundCoversOptimum(t *testing.T) {
	for _, seed := range []int64{1, 7, 42} {
		pool := randomPool(seed)
		for _, style := range AllPlaystyles() {
			m, err := BuildModel(pool, style, 16_000_000)
			require.NoError(t, err)

			want, feasible := bruteForce(m)
			p, ok := newCardinalityProblem(m, 1)
			require.True(t, ok)

			nb := p.bound(rootFixings(len(pool)), math.Inf(-1))
			if !feasible {
				assert.True(t, nb.infeasible, "seed %d %s", seed, style)
				continue
			}

			require.False(t, nb.infeasible)
			assert.GreaterOrEqual(t, nb.value+1e-9, want, "seed %d %s", seed, style)
			if nb.feasible != nil {
				assert.NoError(t, m.Evaluate(nb.feasible))
				assert.LessOrEqual(t, m.ObjectiveValue(nb.feasible), want+1e-9)
			}
		}
	}
}
