package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/pageza/larder/backend/internal/logger"
	"github.com/pageza/larder/backend/internal/models"
)

// Migrate brings the schema up to date with the models. Production
// deployments apply migrations/*.sql with cmd/migrate instead.
func Migrate(db *gorm.DB, log *logger.Logger) error {
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return fmt.Errorf("failed to install pgvector extension: %w", err)
		}
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}
	log.Info("schema migrated", "driver", db.Dialector.Name())
	return nil
}
