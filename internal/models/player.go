package models

import "time"

// Player is one row of the merged stats + salary table.
// Name is the player identity and is unique within a pool.
type Player struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	Name     string `gorm:"uniqueIndex;not null" json:"player"`
	Position string `gorm:"not null;index" json:"pos"`

	// Per-game box score averages
	Points        float64 `gorm:"column:pts" json:"pts"`
	Rebounds      float64 `gorm:"column:trb" json:"trb"`
	Assists       float64 `gorm:"column:ast" json:"ast"`
	Steals        float64 `gorm:"column:stl" json:"stl"`
	Blocks        float64 `gorm:"column:blk" json:"blk"`
	FieldGoalsAtt float64 `gorm:"column:fga" json:"fga"`
	FieldGoals    float64 `gorm:"column:fg" json:"fg"`
	FreeThrowsAtt float64 `gorm:"column:fta" json:"fta"`
	FreeThrows    float64 `gorm:"column:ft" json:"ft"`
	ThreePointers float64 `gorm:"column:three_p" json:"3p"`
	Turnovers     float64 `gorm:"column:tov" json:"tov"`
	PersonalFouls float64 `gorm:"column:pf" json:"pf"`

	Salary float64 `gorm:"not null" json:"salary"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName keeps the table name stable regardless of gorm's pluralizer
func (Player) TableName() string {
	return "players"
}

// ScoredPlayer is a Player plus the four derived score columns.
type ScoredPlayer struct {
	Player
	EFF      float64 `json:"eff"`
	AggScore float64 `json:"agg_score"`
	DefScore float64 `json:"def_score"`
	BalScore float64 `json:"bal_score"`
}

// RosterEntry is a display row of an optimized roster.
type RosterEntry struct {
	Rank     int     `json:"rank"`
	Player   string  `json:"player"`
	Position string  `json:"pos"`
	Score    float64 `json:"score"`
	Salary   float64 `json:"salary"`
}

// Roster is the result of one successful optimization run.
type Roster struct {
	RunID       string        `json:"run_id"`
	Title       string        `json:"title"`
	Playstyle   string        `json:"playstyle"`
	ScoreColumn string        `json:"score_column"`
	SalaryCap   float64       `json:"salary_cap"`
	Entries     []RosterEntry `json:"entries"`
	TotalSalary float64       `json:"total_salary"`
	TotalScore  float64       `json:"total_score"`
	Backend     string        `json:"backend"`
	Nodes       int           `json:"nodes"`
	ElapsedMS   int64         `json:"elapsed_ms"`
}
