package optimizer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/roster-optimizer/internal/models"
	"github.com/stitts-dev/roster-optimizer/internal/scoring"
)

func scoredPlayer(name, pos string, pts, salary float64) models.ScoredPlayer {
	return scoring.Score(models.Player{Name: name, Position: pos, Points: pts, Salary: salary})
}

// balancedPool builds 8 guards, 4 forwards and 4 centers at a uniform salary.
func balancedPool() []models.ScoredPlayer {
	pool := make([]models.ScoredPlayer, 0, 16)
	for i, pts := range []float64{20, 19, 18, 17, 16, 15, 14, 13} {
		pool = append(pool, scoredPlayer(fmt.Sprintf("Guard %d", i+1), "G", pts, 1_000_000))
	}
	for i, pts := range []float64{12, 11, 10, 2} {
		pool = append(pool, scoredPlayer(fmt.Sprintf("Forward %d", i+1), "F", pts, 1_000_000))
	}
	for i, pts := range []float64{12, 11, 10, 9} {
		pool = append(pool, scoredPlayer(fmt.Sprintf("Center %d", i+1), "C", pts, 1_000_000))
	}
	return pool
}

func TestBuildModel_ConstraintStructure(t *testing.T) {
	pool := balancedPool()

	m, err := BuildModel(pool, Balanced, 14_000_000)
	require.NoError(t, err)

	assert.Len(t, m.Variables, 16)
	assert.Equal(t, "x_0", m.Variables[0].Name)
	assert.Equal(t, "Guard 1", m.Variables[0].Player)
	assert.True(t, m.Objective.Maximize)
	assert.Equal(t, []string{"C", "F", "G"}, m.Positions)

	// team size, salary, 3 positions, guard min/max
	assert.Len(t, m.Constraints, 7)

	teamSize, ok := m.Constraint(TeamSizeConstraint)
	require.True(t, ok)
	assert.Equal(t, Equal, teamSize.Sense)
	assert.Equal(t, float64(RosterSize), teamSize.RHS)
	assert.Len(t, teamSize.Terms, 16)

	salary, ok := m.Constraint(SalaryCapConstraint)
	require.True(t, ok)
	assert.Equal(t, LessEqual, salary.Sense)
	assert.Equal(t, 14_000_000.0, salary.RHS)
	for _, term := range salary.Terms {
		assert.Equal(t, 1_000_000.0, term.Coef)
	}

	for _, pos := range []string{"C", "F", "G"} {
		c, ok := m.Constraint(PositionConstraintName(pos))
		require.True(t, ok, "missing constraint for %s", pos)
		assert.Equal(t, GreaterEqual, c.Sense)
		assert.Equal(t, float64(MinPerPosition), c.RHS)
	}
	forwards, _ := m.Constraint(PositionConstraintName("F"))
	assert.Len(t, forwards.Terms, 4)

	guardsMin, ok := m.Constraint(GuardsMinConstraint)
	require.True(t, ok)
	assert.Equal(t, GreaterEqual, guardsMin.Sense)
	assert.Equal(t, float64(MinGuards), guardsMin.RHS)
	assert.Len(t, guardsMin.Terms, 8)

	guardsMax, ok := m.Constraint(GuardsMaxConstraint)
	require.True(t, ok)
	assert.Equal(t, LessEqual, guardsMax.Sense)
	assert.Equal(t, float64(MaxGuards), guardsMax.RHS)
}

func TestBuildModel_ObjectiveFollowsPlaystyle(t *testing.T) {
	p := scoring.Score(models.Player{
		Name: "Mixed", Position: "F",
		Points: 10, Rebounds: 8, Assists: 4, Steals: 2, Blocks: 1, ThreePointers: 2,
		Salary: 500_000,
	})
	pool := []models.ScoredPlayer{p}

	cases := map[Playstyle]float64{
		Aggressive: p.AggScore,
		Defensive:  p.DefScore,
		Balanced:   p.BalScore,
	}
	for style, want := range cases {
		m, err := BuildModel(pool, style, 1_000_000)
		require.NoError(t, err)
		assert.InDelta(t, want, m.Objective.Coefs[0], 1e-12, "playstyle %s", style)
	}
}

func TestBuildModel_EmptyPoolIsWellFormed(t *testing.T) {
	m, err := BuildModel(nil, Aggressive, 20_000_000)
	require.NoError(t, err)

	assert.Empty(t, m.Variables)
	assert.Empty(t, m.Positions)
	// no per-position rows, guard rows are still present
	assert.Len(t, m.Constraints, 4)
	assert.Error(t, m.Evaluate([]bool{}))
}

func TestBuildModel_RejectsBadInput(t *testing.T) {
	pool := balancedPool()

	_, err := BuildModel(pool, Balanced, 0)
	assert.ErrorIs(t, err, ErrInvalidSalaryCap)

	_, err = BuildModel(pool, Balanced, -5)
	assert.ErrorIs(t, err, ErrInvalidSalaryCap)

	_, err = BuildModel(pool, Playstyle("Chaotic"), 20_000_000)
	assert.ErrorIs(t, err, ErrUnknownPlaystyle)
}

func TestBuildModel_AcceptsAnyPositiveCap(t *testing.T) {
	_, err := BuildModel(balancedPool(), Defensive, 1)
	assert.NoError(t, err)

	_, err = BuildModel(balancedPool(), Defensive, 1e12)
	assert.NoError(t, err)
}

func TestModel_Evaluate(t *testing.T) {
	pool := balancedPool()
	m, err := BuildModel(pool, Balanced, 14_000_000)
	require.NoError(t, err)

	// drop Guard 8 and Forward 4
	valid := make([]bool, len(pool))
	for i := range valid {
		valid[i] = true
	}
	valid[7] = false
	valid[11] = false
	assert.NoError(t, m.Evaluate(valid))

	allGuards := make([]bool, len(pool))
	copy(allGuards, valid)
	allGuards[7] = true
	allGuards[15] = false
	err = m.Evaluate(allGuards)
	require.Error(t, err)
	assert.Contains(t, err.Error(), GuardsMaxConstraint)

	tooFew := make([]bool, len(pool))
	copy(tooFew, valid)
	tooFew[0] = false
	err = m.Evaluate(tooFew)
	require.Error(t, err)
	assert.Contains(t, err.Error(), TeamSizeConstraint)
}

func TestParsePlaystyle(t *testing.T) {
	style, err := ParsePlaystyle("balanced")
	require.NoError(t, err)
	assert.Equal(t, Balanced, style)
	assert.Equal(t, "Bal_Score", style.Column())

	style, err = ParsePlaystyle(" Aggressive ")
	require.NoError(t, err)
	assert.Equal(t, "Agg_Score", style.Column())

	assert.Equal(t, "Def_Score", Defensive.Column())

	_, err = ParsePlaystyle("Run and Gun")
	assert.ErrorIs(t, err, ErrUnknownPlaystyle)
}
