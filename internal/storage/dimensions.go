package storage

import (
	"context"
	"database/sql"
)

// UpsertUser inserts or updates a dim_users row by gid.
func (s *Store) UpsertUser(ctx context.Context, u User) error {
	_, err := s.writer.ExecContext(ctx, `
		INSERT INTO dim_users (gid, name, email) VALUES (?, ?, ?)
		ON CONFLICT(gid) DO UPDATE SET name = excluded.name, email = excluded.email
	`, u.GID, u.Name, u.Email)
	return wrapDBErrorf(err, "upsert user %s", u.GID)
}

// UpsertTeam inserts or updates a dim_teams row by gid.
func (s *Store) UpsertTeam(ctx context.Context, t Team) error {
	_, err := s.writer.ExecContext(ctx, `
		INSERT INTO dim_teams (gid, name) VALUES (?, ?)
		ON CONFLICT(gid) DO UPDATE SET name = excluded.name
	`, t.GID, t.Name)
	return wrapDBErrorf(err, "upsert team %s", t.GID)
}

// UpsertProject inserts or updates a dim_projects row by gid. The explicit
// ON CONFLICT DO UPDATE keeps the row's integer id stable across re-syncs
// so projects_fts's content_rowid linkage never has to be rebuilt (spec.md
// §3 "wide upsert").
func (s *Store) UpsertProject(ctx context.Context, p Project) error {
	_, err := s.writer.ExecContext(ctx, `
		INSERT INTO dim_projects (gid, name, notes, team_gid, archived, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(gid) DO UPDATE SET
			name = excluded.name, notes = excluded.notes, team_gid = excluded.team_gid,
			archived = excluded.archived
	`, p.GID, p.Name, p.Notes, nullString(p.TeamGID), p.Archived, p.CreatedAt)
	return wrapDBErrorf(err, "upsert project %s", p.GID)
}

// UpsertPortfolio inserts or updates a dim_portfolios row by gid, and keeps
// the manually-maintained portfolios_fts row in sync (spec.md §3).
func (s *Store) UpsertPortfolio(ctx context.Context, p Portfolio) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO dim_portfolios (gid, name, owner_gid, created_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(gid) DO UPDATE SET name = excluded.name, owner_gid = excluded.owner_gid
		`, p.GID, p.Name, nullString(p.OwnerGID), p.CreatedAt)
		if err != nil {
			return wrapDBErrorf(err, "upsert portfolio %s", p.GID)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM portfolios_fts WHERE portfolio_gid = ?`, p.GID); err != nil {
			return wrapDBErrorf(err, "clear portfolio fts row %s", p.GID)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO portfolios_fts (portfolio_gid, name) VALUES (?, ?)`, p.GID, p.Name)
		return wrapDBErrorf(err, "index portfolio fts row %s", p.GID)
	})
}

// UpsertSection inserts or updates a dim_sections row by gid.
func (s *Store) UpsertSection(ctx context.Context, sec Section) error {
	_, err := s.writer.ExecContext(ctx, `
		INSERT INTO dim_sections (gid, project_gid, name) VALUES (?, ?, ?)
		ON CONFLICT(gid) DO UPDATE SET name = excluded.name
	`, sec.GID, sec.ProjectGID, sec.Name)
	return wrapDBErrorf(err, "upsert section %s", sec.GID)
}

// UpsertCustomFieldDef inserts or updates a dim_custom_fields row by gid.
func (s *Store) UpsertCustomFieldDef(ctx context.Context, f CustomFieldDef) error {
	_, err := s.writer.ExecContext(ctx, `
		INSERT INTO dim_custom_fields (gid, name, type) VALUES (?, ?, ?)
		ON CONFLICT(gid) DO UPDATE SET name = excluded.name, type = excluded.type
	`, f.GID, f.Name, f.Type)
	return wrapDBErrorf(err, "upsert custom field %s", f.GID)
}

// UpsertEnumOption inserts or updates a dim_enum_options row by gid.
func (s *Store) UpsertEnumOption(ctx context.Context, o EnumOption) error {
	_, err := s.writer.ExecContext(ctx, `
		INSERT INTO dim_enum_options (gid, custom_field_gid, name, color) VALUES (?, ?, ?, ?)
		ON CONFLICT(gid) DO UPDATE SET name = excluded.name, color = excluded.color
	`, o.GID, o.CustomFieldGID, o.Name, o.Color)
	return wrapDBErrorf(err, "upsert enum option %s", o.GID)
}

// UpsertTag inserts or updates a dim_tags row by gid.
func (s *Store) UpsertTag(ctx context.Context, t Tag) error {
	_, err := s.writer.ExecContext(ctx, `
		INSERT INTO dim_tags (gid, name) VALUES (?, ?)
		ON CONFLICT(gid) DO UPDATE SET name = excluded.name
	`, t.GID, t.Name)
	return wrapDBErrorf(err, "upsert tag %s", t.GID)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
