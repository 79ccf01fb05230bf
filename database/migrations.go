package database

import (
	"fmt"

	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"gorm.io/gorm"
)

// partialIndexes back the one-active-session-per-table rule in the schema
// itself on dialects that support filtered indexes. MySQL relies on the
// guarded update in StartSession alone.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_table_sessions_one_active
		ON table_sessions (table_id) WHERE status = 'active'`,
}

// Migrate creates or updates the schema for every model owned by this
// service.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Table{},
		&models.TableSession{},
		&models.Category{},
		&models.Dish{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := ExecuteIndexes(db); err != nil {
		return err
	}
	utils.InfoLogger.Debug("schema migration completed")
	return nil
}

func ExecuteIndexes(db *gorm.DB) error {
	switch db.Dialector.Name() {
	case "sqlite", "postgres":
	default:
		utils.InfoLogger.Debugf("skipping partial indexes on %s", db.Dialector.Name())
		return nil
	}

	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
