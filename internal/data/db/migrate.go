package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/tenxcards/tenxcards-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(types.Models()...)
}

// EnsureIndexes creates the listing indexes. The statements are valid on Postgres and SQLite.
func EnsureIndexes(db *gorm.DB) error {
	// Flashcard pages are always owner scoped and sorted, created_at desc by default.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_flashcards_user_created
		ON flashcards (user_id, created_at DESC, id DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_flashcards_user_created: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_generations_user_created
		ON generations (user_id, created_at DESC, id DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_generations_user_created: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_generation_error_logs_user_created
		ON generation_error_logs (user_id, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_generation_error_logs_user_created: %w", err)
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_user_token_expires_at ON user_token (expires_at);`).Error; err != nil {
		return fmt.Errorf("create idx_user_token_expires_at: %w", err)
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureIndexes(s.db); err != nil {
		s.log.Error("Index migration failed", "error", err)
		return err
	}
	if s.cfg.RLSEnabled {
		if err := EnableRowLevelSecurity(s.db); err != nil {
			s.log.Error("Row level security migration failed", "error", err)
			return err
		}
		s.log.Info("Row level security policies installed", "tables", OwnedTables)
	}
	return nil
}
