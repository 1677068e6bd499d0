package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/adlio/asanadw/internal/errs"
)

// migration is one forward-only schema step. Steps are idempotent (CREATE
// TABLE IF NOT EXISTS, CREATE INDEX IF NOT EXISTS) so re-running an already
// applied migration is harmless; the schema_migrations table exists purely
// to skip work on an already-current database.
type migration struct {
	version int
	name    string
	apply   func(ctx context.Context, tx *sql.Tx) error
}

var migrationList = []migration{
	{1, "star_schema", applyStarSchema},
	{2, "fts_indexes", applyFTSIndexes},
	{3, "operational_tables", applyOperationalTables},
}

// migrate brings the database up to the latest schema version, recording
// each applied migration in schema_migrations.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.writer.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return errs.Wrap(errs.KindMigration, "create schema_migrations", err)
	}

	applied := map[int]bool{}
	rows, err := s.writer.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return errs.Wrap(errs.KindMigration, "read schema_migrations", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return errs.Wrap(errs.KindMigration, "scan schema_migrations", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return errs.Wrap(errs.KindMigration, "iterate schema_migrations", err)
	}
	rows.Close()

	for _, m := range migrationList {
		if applied[m.version] {
			continue
		}
		err := s.withTx(ctx, func(tx *sql.Tx) error {
			if err := m.apply(ctx, tx); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`,
				m.version, m.name)
			return err
		})
		if err != nil {
			return errs.Wrap(errs.KindMigration, fmt.Sprintf("apply migration %03d_%s", m.version, m.name), err)
		}
		s.logger.Info("applied migration", "version", m.version, "name", m.name)
	}
	return nil
}

func exec(ctx context.Context, tx *sql.Tx, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w", err)
		}
	}
	return nil
}
