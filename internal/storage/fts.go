package storage

import (
	"context"
	"database/sql"
)

// applyFTSIndexes creates the FTS5 virtual tables (spec.md §3 "Full-text
// search"): tasks_fts, comments_fts and projects_fts are kept in sync by
// triggers; portfolios_fts and custom_fields_fts have no triggers and are
// written directly by the code that upserts their source rows
// (custom_fields_fts by UpsertTaskCustomFieldValue/DeleteTaskCustomFieldValue).
func applyFTSIndexes(ctx context.Context, tx *sql.Tx) error {
	return exec(ctx, tx,
		`CREATE VIRTUAL TABLE IF NOT EXISTS tasks_fts USING fts5(
			name, notes, content='fact_tasks', content_rowid='id'
		)`,
		`CREATE TRIGGER IF NOT EXISTS fact_tasks_ai AFTER INSERT ON fact_tasks BEGIN
			INSERT INTO tasks_fts(rowid, name, notes) VALUES (new.id, new.name, new.notes);
		END`,
		`CREATE TRIGGER IF NOT EXISTS fact_tasks_ad AFTER DELETE ON fact_tasks BEGIN
			INSERT INTO tasks_fts(tasks_fts, rowid, name, notes) VALUES ('delete', old.id, old.name, old.notes);
		END`,
		`CREATE TRIGGER IF NOT EXISTS fact_tasks_au AFTER UPDATE ON fact_tasks BEGIN
			INSERT INTO tasks_fts(tasks_fts, rowid, name, notes) VALUES ('delete', old.id, old.name, old.notes);
			INSERT INTO tasks_fts(rowid, name, notes) VALUES (new.id, new.name, new.notes);
		END`,

		`CREATE VIRTUAL TABLE IF NOT EXISTS comments_fts USING fts5(
			text, content='fact_comments', content_rowid='id'
		)`,
		`CREATE TRIGGER IF NOT EXISTS fact_comments_ai AFTER INSERT ON fact_comments BEGIN
			INSERT INTO comments_fts(rowid, text) VALUES (new.id, new.text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS fact_comments_ad AFTER DELETE ON fact_comments BEGIN
			INSERT INTO comments_fts(comments_fts, rowid, text) VALUES ('delete', old.id, old.text);
		END`,
		`CREATE TRIGGER IF NOT EXISTS fact_comments_au AFTER UPDATE ON fact_comments BEGIN
			INSERT INTO comments_fts(comments_fts, rowid, text) VALUES ('delete', old.id, old.text);
			INSERT INTO comments_fts(rowid, text) VALUES (new.id, new.text);
		END`,

		`CREATE VIRTUAL TABLE IF NOT EXISTS projects_fts USING fts5(
			name, notes, content='dim_projects', content_rowid='id'
		)`,
		`CREATE TRIGGER IF NOT EXISTS dim_projects_ai AFTER INSERT ON dim_projects BEGIN
			INSERT INTO projects_fts(rowid, name, notes) VALUES (new.id, new.name, new.notes);
		END`,
		`CREATE TRIGGER IF NOT EXISTS dim_projects_ad AFTER DELETE ON dim_projects BEGIN
			INSERT INTO projects_fts(projects_fts, rowid, name, notes) VALUES ('delete', old.id, old.name, old.notes);
		END`,
		`CREATE TRIGGER IF NOT EXISTS dim_projects_au AFTER UPDATE ON dim_projects BEGIN
			INSERT INTO projects_fts(projects_fts, rowid, name, notes) VALUES ('delete', old.id, old.name, old.notes);
			INSERT INTO projects_fts(rowid, name, notes) VALUES (new.id, new.name, new.notes);
		END`,

		// portfolios_fts has no natural integer rowid source on dim_portfolios
		// (gid-keyed), so it is declared as an external-content-free FTS5
		// table and synced manually, mirroring custom_fields_fts below.
		`CREATE VIRTUAL TABLE IF NOT EXISTS portfolios_fts USING fts5(
			portfolio_gid UNINDEXED, name
		)`,

		`CREATE VIRTUAL TABLE IF NOT EXISTS custom_fields_fts USING fts5(
			task_gid UNINDEXED, custom_field_gid UNINDEXED, display_value
		)`,
	)
}
