package database

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL that Migrate applies.
func Schema() string {
	return schemaSQL
}

// Migrate creates the businesses, officers and filing_history tables if they
// do not exist yet. It is idempotent and safe to run on every start.
func (db *Database) Migrate(ctx context.Context) error {
	// Simple protocol lets pgx send the multi-statement script in one round trip.
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for migration: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Conn().PgConn().Exec(ctx, schemaSQL).ReadAll(); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
