package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/roster-optimizer/internal/ingest"
	"github.com/stitts-dev/roster-optimizer/internal/repository"
	"github.com/stitts-dev/roster-optimizer/pkg/config"
	"github.com/stitts-dev/roster-optimizer/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down|seed]")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewConnection(cfg, logrus.StandardLogger())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := repository.NewPlayerRepository(db.DB)

	command := os.Args[1]

	switch command {
	case "up":
		if err := runMigrations(db, repo); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}
		logrus.Info("Migrations completed successfully")

	case "down":
		if err := repo.DropTable(); err != nil {
			logrus.Fatalf("Failed to drop tables: %v", err)
		}
		logrus.Info("Tables dropped successfully")

	case "seed":
		if err := seedData(cfg, repo); err != nil {
			logrus.Fatalf("Failed to seed data: %v", err)
		}
		logrus.Info("Data seeded successfully")

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}

func runMigrations(db *database.DB, repo *repository.PlayerRepository) error {
	if err := repo.Migrate(); err != nil {
		return err
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_players_position ON players(position)",
		"CREATE INDEX IF NOT EXISTS idx_players_salary ON players(salary)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// seedData loads the stats and salary CSVs and replaces the stored pool.
func seedData(cfg *config.Config, repo *repository.PlayerRepository) error {
	ctx := context.Background()

	source := &ingest.CSVSource{
		StatsPath:    cfg.StatsCSV,
		SalariesPath: cfg.SalariesCSV,
		SalaryColumn: cfg.SalaryColumn,
		Logger:       logrus.StandardLogger(),
	}

	players, err := source.Load(ctx)
	if err != nil {
		return err
	}

	if err := repo.Migrate(); err != nil {
		return err
	}
	if err := repo.ReplaceAll(ctx, players); err != nil {
		return err
	}

	logrus.WithField("players", len(players)).Info("Seeded player pool")
	return nil
}
