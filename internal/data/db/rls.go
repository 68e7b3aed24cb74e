package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tenxcards/tenxcards-backend/internal/pkg/dbctx"
)

const currentUserSetting = "app.current_user_id"

// OwnedTables carry a user_id column and an owner policy.
var OwnedTables = []string{"flashcards", "generations", "generation_error_logs"}

// EnableRowLevelSecurity installs FORCE'd owner policies on Postgres. Rows are visible
// and writable only when user_id matches the transaction's app.current_user_id.
func EnableRowLevelSecurity(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	for _, table := range OwnedTables {
		policy := table + "_owner"
		stmts := []string{
			fmt.Sprintf(`ALTER TABLE %s ENABLE ROW LEVEL SECURITY;`, table),
			fmt.Sprintf(`ALTER TABLE %s FORCE ROW LEVEL SECURITY;`, table),
			fmt.Sprintf(`
				DO $$
				BEGIN
					IF NOT EXISTS (
						SELECT 1 FROM pg_policies WHERE tablename = '%[1]s' AND policyname = '%[2]s'
					) THEN
						CREATE POLICY %[2]s ON %[1]s
						USING (user_id::text = current_setting('%[3]s', true))
						WITH CHECK (user_id::text = current_setting('%[3]s', true));
					END IF;
				END
				$$;`, table, policy, currentUserSetting),
		}
		for _, stmt := range stmts {
			if err := db.Exec(stmt).Error; err != nil {
				return fmt.Errorf("enable rls on %s: %w", table, err)
			}
		}
	}
	return nil
}

// OwnerScope runs units of work in a transaction bound to one owner.
type OwnerScope struct {
	db  *gorm.DB
	rls bool
}

func NewOwnerScope(db *gorm.DB, rlsEnabled bool) *OwnerScope {
	return &OwnerScope{db: db, rls: rlsEnabled && db.Dialector.Name() == "postgres"}
}

// Run calls fn inside a transaction. With RLS active the transaction-local
// app.current_user_id is set first, so policies see the caller.
func (s *OwnerScope) Run(ctx context.Context, owner uuid.UUID, fn func(dbc dbctx.Context) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.rls {
			if err := tx.Exec("SELECT set_config(?, ?, true)", currentUserSetting, owner.String()).Error; err != nil {
				return fmt.Errorf("set %s: %w", currentUserSetting, err)
			}
		}
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}
