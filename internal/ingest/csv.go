package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/roster-optimizer/internal/models"
)

// Stats file columns
const (
	ColPlayer   = "Player"
	ColPosition = "Pos"
)

var statColumns = []string{"PTS", "TRB", "AST", "STL", "BLK", "FGA", "FG", "FTA", "FT", "3P", "TOV", "PF"}

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing required column")

// Report counts rows dropped while loading and merging.
type Report struct {
	StatRows        int `json:"stat_rows"`
	SalaryRows      int `json:"salary_rows"`
	Merged          int `json:"merged"`
	MalformedStats  int `json:"malformed_stats"`
	DuplicateStats  int `json:"duplicate_stats"`
	MissingSalary   int `json:"missing_salary"`
	MissingPosition int `json:"missing_position"`
}

// ReadStats parses the per-player stats table. Rows with a non-numeric stat
// are skipped and counted; the first row wins for a repeated player name.
func ReadStats(r io.Reader, report *Report) ([]models.Player, error) {
	rows, header, err := readTable(r)
	if err != nil {
		return nil, err
	}

	required := append([]string{ColPlayer, ColPosition}, statColumns...)
	for _, col := range required {
		if _, ok := header[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	players := make([]models.Player, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		report.StatRows++

		name := strings.TrimSpace(field(row, header, ColPlayer))
		if name == "" {
			report.MalformedStats++
			continue
		}
		if seen[name] {
			report.DuplicateStats++
			continue
		}

		values := make(map[string]float64, len(statColumns))
		ok := true
		for _, col := range statColumns {
			v, err := parseNumber(field(row, header, col))
			if err != nil || v < 0 {
				ok = false
				break
			}
			values[col] = v
		}
		if !ok {
			report.MalformedStats++
			continue
		}

		seen[name] = true
		players = append(players, models.Player{
			Name:          name,
			Position:      strings.TrimSpace(field(row, header, ColPosition)),
			Points:        values["PTS"],
			Rebounds:      values["TRB"],
			Assists:       values["AST"],
			Steals:        values["STL"],
			Blocks:        values["BLK"],
			FieldGoalsAtt: values["FGA"],
			FieldGoals:    values["FG"],
			FreeThrowsAtt: values["FTA"],
			FreeThrows:    values["FT"],
			ThreePointers: values["3P"],
			Turnovers:     values["TOV"],
			PersonalFouls: values["PF"],
		})
	}

	return players, nil
}

// ReadSalaries parses the salary table, reading salaryColumn as Salary.
// Blank or unparsable salaries are left out of the map.
func ReadSalaries(r io.Reader, salaryColumn string, report *Report) (map[string]float64, error) {
	rows, header, err := readTable(r)
	if err != nil {
		return nil, err
	}
	for _, col := range []string{ColPlayer, salaryColumn} {
		if _, ok := header[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	salaries := make(map[string]float64, len(rows))
	for _, row := range rows {
		report.SalaryRows++
		name := strings.TrimSpace(field(row, header, ColPlayer))
		salary, err := parseNumber(field(row, header, salaryColumn))
		if name == "" || err != nil || salary <= 0 {
			continue
		}
		if _, dup := salaries[name]; !dup {
			salaries[name] = salary
		}
	}
	return salaries, nil
}

// Merge inner-joins stats and salaries on player name and drops records the
// optimizer cannot use (no salary or no position).
func Merge(stats []models.Player, salaries map[string]float64, report *Report) []models.Player {
	merged := make([]models.Player, 0, len(stats))
	for _, p := range stats {
		salary, ok := salaries[p.Name]
		if !ok {
			report.MissingSalary++
			continue
		}
		if p.Position == "" {
			report.MissingPosition++
			continue
		}
		p.Salary = salary
		merged = append(merged, p)
	}
	report.Merged = len(merged)
	return merged
}

// CSVSource loads the merged pool from a stats file and a salaries file.
type CSVSource struct {
	StatsPath    string
	SalariesPath string
	SalaryColumn string
	Logger       *logrus.Logger
}

func (s *CSVSource) Name() string {
	return "csv"
}

// Load reads both files and merges them.
func (s *CSVSource) Load(ctx context.Context) ([]models.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var report Report

	statsFile, err := os.Open(s.StatsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open stats file: %w", err)
	}
	defer statsFile.Close()

	stats, err := ReadStats(statsFile, &report)
	if err != nil {
		return nil, fmt.Errorf("failed to read stats file %s: %w", s.StatsPath, err)
	}

	salaryFile, err := os.Open(s.SalariesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open salaries file: %w", err)
	}
	defer salaryFile.Close()

	salaries, err := ReadSalaries(salaryFile, s.SalaryColumn, &report)
	if err != nil {
		return nil, fmt.Errorf("failed to read salaries file %s: %w", s.SalariesPath, err)
	}

	merged := Merge(stats, salaries, &report)

	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"stats_file":       s.StatsPath,
			"salaries_file":    s.SalariesPath,
			"stat_rows":        report.StatRows,
			"salary_rows":      report.SalaryRows,
			"merged":           report.Merged,
			"malformed_stats":  report.MalformedStats,
			"duplicate_stats":  report.DuplicateStats,
			"missing_salary":   report.MissingSalary,
			"missing_position": report.MissingPosition,
		}).Info("Loaded player pool from CSV")
	}

	return merged, nil
}

func readTable(r io.Reader) ([][]string, map[string]int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := header[name]; !dup {
			header[name] = i
		}
	}
	return records[1:], header, nil
}

func field(row []string, header map[string]int, col string) string {
	i := header[col]
	if i >= len(row) {
		return ""
	}
	return row[i]
}

// parseNumber accepts plain numbers and currency strings such as "€1,250,000".
func parseNumber(raw string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ',', '€', '$', ' ', '\u00a0':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	if cleaned == "" {
		return 0, errors.New("empty value")
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", raw)
	}
	return v, nil
}
