package optimizer

import (
	"fmt"
	"strings"

	"github.com/stitts-dev/roster-optimizer/internal/models"
)

// Playstyle selects which derived score drives the objective.
type Playstyle string

const (
	Aggressive Playstyle = "Aggressive"
	Defensive  Playstyle = "Defensive"
	Balanced   Playstyle = "Balanced"
)

// ScoreFunc reads one score column from a scored player.
type ScoreFunc func(models.ScoredPlayer) float64

type scoreColumn struct {
	column      string
	description string
	score       ScoreFunc
}

var playstyleColumns = map[Playstyle]scoreColumn{
	Aggressive: {
		column:      "Agg_Score",
		description: "Focus on high-scoring and offensive plays",
		score:       func(p models.ScoredPlayer) float64 { return p.AggScore },
	},
	Defensive: {
		column:      "Def_Score",
		description: "Emphasize defensive strength and teamwork",
		score:       func(p models.ScoredPlayer) float64 { return p.DefScore },
	},
	Balanced: {
		column:      "Bal_Score",
		description: "A mix of both offensive and defensive strategies",
		score:       func(p models.ScoredPlayer) float64 { return p.BalScore },
	},
}

// ParsePlaystyle accepts a playstyle label, case-insensitively.
func ParsePlaystyle(label string) (Playstyle, error) {
	for _, style := range AllPlaystyles() {
		if strings.EqualFold(strings.TrimSpace(label), string(style)) {
			return style, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPlaystyle, label)
}

// AllPlaystyles lists the playstyles in display order.
func AllPlaystyles() []Playstyle {
	return []Playstyle{Aggressive, Defensive, Balanced}
}

func (p Playstyle) Valid() bool {
	_, ok := playstyleColumns[p]
	return ok
}

// Column returns the score column name, e.g. "Bal_Score".
func (p Playstyle) Column() string {
	return playstyleColumns[p].column
}

func (p Playstyle) Description() string {
	return playstyleColumns[p].description
}

// Score returns the selector for this playstyle's column.
func (p Playstyle) Score() ScoreFunc {
	return playstyleColumns[p].score
}
