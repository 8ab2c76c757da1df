package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/stitts-dev/roster-optimizer/internal/models"
)

// PlayerRepository persists the merged player pool.
type PlayerRepository struct {
	db *gorm.DB
}

func NewPlayerRepository(db *gorm.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) Name() string {
	return "database"
}

// Migrate creates or updates the players table.
func (r *PlayerRepository) Migrate() error {
	if err := r.db.AutoMigrate(&models.Player{}); err != nil {
		return fmt.Errorf("failed to migrate players: %w", err)
	}
	return nil
}

// Load returns every stored player usable by the optimizer, ordered by name.
func (r *PlayerRepository) Load(ctx context.Context) ([]models.Player, error) {
	var players []models.Player
	err := r.db.WithContext(ctx).
		Where("salary > ? AND position <> ?", 0, "").
		Order("name").
		Find(&players).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load players: %w", err)
	}
	return players, nil
}

// ReplaceAll swaps the stored pool for the given players in one transaction.
func (r *PlayerRepository) ReplaceAll(ctx context.Context, players []models.Player) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Player{}).Error; err != nil {
			return fmt.Errorf("failed to clear players: %w", err)
		}
		if len(players) == 0 {
			return nil
		}

		rows := make([]models.Player, len(players))
		copy(rows, players)
		for i := range rows {
			rows[i].ID = 0
		}
		if err := tx.CreateInBatches(rows, 200).Error; err != nil {
			return fmt.Errorf("failed to insert players: %w", err)
		}
		return nil
	})
}

// Count returns the number of stored players.
func (r *PlayerRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Player{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return count, nil
}

// DropTable removes the players table.
func (r *PlayerRepository) DropTable() error {
	return r.db.Migrator().DropTable(&models.Player{})
}
