package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const statsCSV = `Rk,Player,Pos,Team,PTS,TRB,AST,STL,BLK,FGA,FG,FTA,FT,3P,TOV,PF
1,Mike James,G,ASM,17.8,2.3,6.0,0.9,0.1,13.2,5.7,4.8,4.1,2.0,2.9,2.0
2,Sasha Vezenkov,F,OLY,14.5,6.0,1.5,0.6,0.3,10.9,5.2,3.0,2.6,1.5,1.1,1.7
3,Walter Tavares,C,RMB,11.0,6.7,0.6,0.5,1.5,6.1,4.2,3.2,2.2,0.0,0.9,2.4
4,Mike James,G,ASM,1,1,1,1,1,1,1,1,1,1,1,1
5,Broken Row,F,XXX,n/a,1,1,1,1,1,1,1,1,1,1,1
6,No Salary,C,YYY,3,3,3,0,0,3,1,0,0,0,1,1
7,No Position,,ZZZ,3,3,3,0,0,3,1,0,0,0,1,1
`

const salariesCSV = `Player,2022-23,2023-24
Mike James,"€1,000,000","€1,200,000"
Sasha Vezenkov,,"€2,500,000"
Walter Tavares,1800000,1900000
No Position,500000,600000
Unknown Player,1,1
`

func TestReadStats(t *testing.T) {
	var report Report
	players, err := ReadStats(strings.NewReader(statsCSV), &report)
	require.NoError(t, err)

	require.Len(t, players, 5)
	assert.Equal(t, "Mike James", players[0].Name)
	assert.Equal(t, "G", players[0].Position)
	assert.Equal(t, 17.8, players[0].Points)
	assert.Equal(t, 2.0, players[0].ThreePointers)
	assert.Equal(t, 13.2, players[0].FieldGoalsAtt)

	assert.Equal(t, 7, report.StatRows)
	assert.Equal(t, 1, report.DuplicateStats)
	assert.Equal(t, 1, report.MalformedStats)
}

func TestReadStats_MissingColumn(t *testing.T) {
	var report Report
	_, err := ReadStats(strings.NewReader("Player,Pos,PTS\nA,G,1\n"), &report)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestReadSalaries(t *testing.T) {
	var report Report
	salaries, err := ReadSalaries(strings.NewReader(salariesCSV), "2023-24", &report)
	require.NoError(t, err)

	assert.Equal(t, 1_200_000.0, salaries["Mike James"])
	assert.Equal(t, 2_500_000.0, salaries["Sasha Vezenkov"])
	assert.Equal(t, 1_900_000.0, salaries["Walter Tavares"])
	assert.Equal(t, 5, report.SalaryRows)

	_, err = ReadSalaries(strings.NewReader(salariesCSV), "2024-25", &report)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestMerge_InnerJoinDropsUnusableRows(t *testing.T) {
	var report Report
	stats, err := ReadStats(strings.NewReader(statsCSV), &report)
	require.NoError(t, err)
	salaries, err := ReadSalaries(strings.NewReader(salariesCSV), "2023-24", &report)
	require.NoError(t, err)

	merged := Merge(stats, salaries, &report)

	names := make([]string, 0, len(merged))
	for _, p := range merged {
		names = append(names, p.Name)
		assert.Greater(t, p.Salary, 0.0)
		assert.NotEmpty(t, p.Position)
	}
	assert.Equal(t, []string{"Mike James", "Sasha Vezenkov", "Walter Tavares"}, names)
	assert.Equal(t, 3, report.Merged)
	assert.Equal(t, 1, report.MissingSalary)
	assert.Equal(t, 1, report.MissingPosition)
}

func TestCSVSource_Load(t *testing.T) {
	dir := t.TempDir()
	statsPath := filepath.Join(dir, "stats.csv")
	salariesPath := filepath.Join(dir, "salaries.csv")
	require.NoError(t, os.WriteFile(statsPath, []byte(statsCSV), 0o644))
	require.NoError(t, os.WriteFile(salariesPath, []byte(salariesCSV), 0o644))

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	source := &CSVSource{StatsPath: statsPath, SalariesPath: salariesPath, SalaryColumn: "2023-24", Logger: log}
	players, err := source.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, players, 3)
	assert.Equal(t, "csv", source.Name())

	missing := &CSVSource{StatsPath: filepath.Join(dir, "nope.csv"), SalariesPath: salariesPath, SalaryColumn: "2023-24"}
	_, err = missing.Load(context.Background())
	assert.Error(t, err)
}

func TestParseNumber(t *testing.T) {
	v, err := parseNumber(" €1,250,000 ")
	require.NoError(t, err)
	assert.Equal(t, 1_250_000.0, v)

	v, err = parseNumber("12.5")
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)

	_, err = parseNumber("")
	assert.Error(t, err)
}
