package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/roster-optimizer/internal/models"
)

func samplePlayer() models.Player {
	return models.Player{
		Name:          "Sample",
		Position:      "G",
		Points:        20,
		Rebounds:      5,
		Assists:       6,
		Steals:        2,
		Blocks:        1,
		FieldGoalsAtt: 15,
		FieldGoals:    8,
		FreeThrowsAtt: 5,
		FreeThrows:    4,
		ThreePointers: 2,
		Turnovers:     3,
		PersonalFouls: 2,
		Salary:        1_000_000,
	}
}

func TestEfficiency(t *testing.T) {
	// 20+5+6+2+1+3 - 7 - 1 - 3 - 2
	assert.InDelta(t, 24.0, Efficiency(samplePlayer()), 1e-12)
	assert.Zero(t, Efficiency(models.Player{}))
}

func TestPlaystyleScores(t *testing.T) {
	p := samplePlayer()

	tests := []struct {
		name     string
		score    func(models.Player) float64
		expected float64
	}{
		{"aggressive", AggressiveScore, 0.5*20 + 0.3*2 + 0.1*6 + 0.05*2 + 0.05*1},
		{"defensive", DefensiveScore, 0.4*5 + 0.35*2 + 0.2*1 + 0.025*20 + 0.025*6},
		{"balanced", BalancedScore, 0.25*20 + 0.2*5 + 0.2*6 + 0.2*2 + 0.075*2 + 0.075*1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.score(p), 1e-12)
		})
	}

	assert.InDelta(t, 11.35, AggressiveScore(p), 1e-12)
	assert.InDelta(t, 3.55, DefensiveScore(p), 1e-12)
	assert.InDelta(t, 7.825, BalancedScore(p), 1e-12)
}

func TestScore_UnusedFieldsDoNotMatter(t *testing.T) {
	p := samplePlayer()
	base := Score(p)

	// turnovers and fouls only enter EFF
	p.Turnovers = 10
	p.PersonalFouls = 6
	changed := Score(p)

	assert.Equal(t, base.AggScore, changed.AggScore)
	assert.Equal(t, base.DefScore, changed.DefScore)
	assert.Equal(t, base.BalScore, changed.BalScore)
	assert.InDelta(t, base.EFF-11, changed.EFF, 1e-12)
}

func TestScorePool_IsIdempotent(t *testing.T) {
	players := []models.Player{samplePlayer(), {Name: "Bench", Position: "C", Rebounds: 3, Salary: 50_000}}

	first := ScorePool(players)
	second := ScorePool(players)

	require.Len(t, first, 2)
	assert.Equal(t, first, second)
	assert.Equal(t, "Sample", first[0].Name)
	assert.Equal(t, "Bench", first[1].Name)
	assert.InDelta(t, 1.2, first[1].DefScore, 1e-12)
	// inputs are not modified
	assert.Equal(t, samplePlayer(), players[0])
}

func TestSummarize(t *testing.T) {
	pool := ScorePool([]models.Player{
		{Name: "A", Position: "G", Rebounds: 2, Salary: 100},
		{Name: "B", Position: "G", Rebounds: 4, Salary: 200},
		{Name: "C", Position: "C", Rebounds: 6, Salary: 300},
	})

	summary := Summarize(pool)

	assert.Equal(t, 3, summary.Players)
	assert.Equal(t, map[string]int{"G": 2, "C": 1}, summary.Positions)
	assert.Equal(t, ModelVersion, summary.Version)
	assert.InDelta(t, 200.0, summary.Salary.Mean, 1e-9)
	assert.InDelta(t, 100.0, summary.Salary.StdDev, 1e-9)
	assert.Equal(t, 100.0, summary.Salary.Min)
	assert.Equal(t, 300.0, summary.Salary.Max)

	def := summary.Scores["Def_Score"]
	assert.InDelta(t, 1.6, def.Mean, 1e-9)
	assert.InDelta(t, 0.8, def.Min, 1e-9)
	assert.InDelta(t, 2.4, def.Max, 1e-9)
	assert.Len(t, summary.Scores, 4)
}

func TestSummarize_SmallPools(t *testing.T) {
	empty := Summarize(nil)
	assert.Zero(t, empty.Players)
	assert.Equal(t, ColumnSummary{}, empty.Salary)

	single := Summarize(ScorePool([]models.Player{{Name: "Solo", Position: "F", Points: 10, Salary: 5}}))
	assert.Equal(t, 5.0, single.Salary.Mean)
	assert.Zero(t, single.Salary.StdDev)
	assert.InDelta(t, 5.0, single.Scores["Agg_Score"].Max, 1e-12)
}
