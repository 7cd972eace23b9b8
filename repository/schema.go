package repository

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	bridge "github.com/goliatone/go-auth-bridge"
)

// EnsureSchema creates the users table when missing. Production deployments
// are expected to run migrations; this covers development and tests.
func EnsureSchema(ctx context.Context, db bun.IDB) error {
	if _, err := db.NewCreateTable().
		Model((*bridge.User)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("repository: create users table: %w", err)
	}

	if _, err := db.NewCreateIndex().
		Model((*bridge.User)(nil)).
		Index("users_external_account_id_idx").
		Column("external_account_id").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("repository: create users index: %w", err)
	}

	return nil
}
