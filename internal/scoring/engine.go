package scoring

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/stitts-dev/roster-optimizer/internal/models"
)

// ModelVersion identifies the coefficient set below. Bump it whenever a weight
// changes, cached scored pools are keyed on it.
const ModelVersion = "v1"

// Efficiency computes the EFF composite:
// PTS + TRB + AST + STL + BLK + 1.5*3P - missed FG - missed FT - TOV - PF
func Efficiency(p models.Player) float64 {
	return p.Points +
		p.Rebounds +
		p.Assists +
		p.Steals +
		p.Blocks +
		1.5*p.ThreePointers -
		(p.FieldGoalsAtt - p.FieldGoals) -
		(p.FreeThrowsAtt - p.FreeThrows) -
		p.Turnovers -
		p.PersonalFouls
}

// AggressiveScore weights scoring output.
func AggressiveScore(p models.Player) float64 {
	return 0.5*p.Points +
		0.3*p.ThreePointers +
		0.1*p.Assists +
		0.05*p.Steals +
		0.05*p.Blocks
}

// DefensiveScore weights rebounding, steals and blocks.
func DefensiveScore(p models.Player) float64 {
	return 0.4*p.Rebounds +
		0.35*p.Steals +
		0.2*p.Blocks +
		0.025*p.Points +
		0.025*p.Assists
}

// BalancedScore mixes offensive and defensive production.
func BalancedScore(p models.Player) float64 {
	return 0.25*p.Points +
		0.2*p.Rebounds +
		0.2*p.Assists +
		0.2*p.ThreePointers +
		0.075*p.Steals +
		0.075*p.Blocks
}

// Score derives all four score columns for a player.
func Score(p models.Player) models.ScoredPlayer {
	return models.ScoredPlayer{
		Player:   p,
		EFF:      Efficiency(p),
		AggScore: AggressiveScore(p),
		DefScore: DefensiveScore(p),
		BalScore: BalancedScore(p),
	}
}

// ScorePool scores every player, preserving input order.
func ScorePool(players []models.Player) []models.ScoredPlayer {
	scored := make([]models.ScoredPlayer, len(players))
	for i, p := range players {
		scored[i] = Score(p)
	}
	return scored
}

// ColumnSummary describes the distribution of one score column across a pool.
type ColumnSummary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// PoolSummary is returned alongside the scored table for display and debugging.
type PoolSummary struct {
	Players   int                      `json:"players"`
	Positions map[string]int           `json:"positions"`
	Salary    ColumnSummary            `json:"salary"`
	Scores    map[string]ColumnSummary `json:"scores"`
	Version   string                   `json:"model_version"`
}

// Summarize computes per-column statistics over a scored pool.
func Summarize(pool []models.ScoredPlayer) PoolSummary {
	summary := PoolSummary{
		Players:   len(pool),
		Positions: make(map[string]int),
		Scores:    make(map[string]ColumnSummary),
		Version:   ModelVersion,
	}

	columns := map[string][]float64{
		"EFF":       make([]float64, 0, len(pool)),
		"Agg_Score": make([]float64, 0, len(pool)),
		"Def_Score": make([]float64, 0, len(pool)),
		"Bal_Score": make([]float64, 0, len(pool)),
	}
	salaries := make([]float64, 0, len(pool))

	for _, p := range pool {
		summary.Positions[p.Position]++
		columns["EFF"] = append(columns["EFF"], p.EFF)
		columns["Agg_Score"] = append(columns["Agg_Score"], p.AggScore)
		columns["Def_Score"] = append(columns["Def_Score"], p.DefScore)
		columns["Bal_Score"] = append(columns["Bal_Score"], p.BalScore)
		salaries = append(salaries, p.Salary)
	}

	for name, values := range columns {
		summary.Scores[name] = summarizeColumn(values)
	}
	summary.Salary = summarizeColumn(salaries)

	return summary
}

func summarizeColumn(values []float64) ColumnSummary {
	if len(values) == 0 {
		return ColumnSummary{}
	}

	mean, std := stat.MeanStdDev(values, nil)
	if len(values) < 2 || math.IsNaN(std) {
		std = 0
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	return ColumnSummary{Mean: mean, StdDev: std, Min: lo, Max: hi}
}
