package storage

import (
	"context"
	"database/sql"
)

// applyStarSchema creates every dimension, fact, and bridge table (spec.md
// §3). Explicit integer `id` columns exist only on the three FTS-indexed
// tables (fact_tasks, fact_comments, dim_projects) so their content rowid
// stays stable across the wide-upsert regime; every other table keys on its
// Asana gid directly.
func applyStarSchema(ctx context.Context, tx *sql.Tx) error {
	return exec(ctx, tx,
		`CREATE TABLE IF NOT EXISTS dim_users (
			gid   TEXT PRIMARY KEY,
			name  TEXT NOT NULL,
			email TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS dim_teams (
			gid  TEXT PRIMARY KEY,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS dim_projects (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			gid        TEXT NOT NULL UNIQUE,
			name       TEXT NOT NULL,
			notes      TEXT NOT NULL DEFAULT '',
			team_gid   TEXT REFERENCES dim_teams(gid),
			archived   INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS dim_portfolios (
			gid        TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			owner_gid  TEXT REFERENCES dim_users(gid),
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS dim_sections (
			gid         TEXT PRIMARY KEY,
			project_gid TEXT NOT NULL REFERENCES dim_projects(gid) ON DELETE CASCADE,
			name        TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS dim_custom_fields (
			gid  TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS dim_enum_options (
			gid              TEXT PRIMARY KEY,
			custom_field_gid TEXT NOT NULL REFERENCES dim_custom_fields(gid) ON DELETE CASCADE,
			name             TEXT NOT NULL,
			color            TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS dim_tags (
			gid  TEXT PRIMARY KEY,
			name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS dim_date (
			date_key                INTEGER PRIMARY KEY,
			date                    DATE NOT NULL,
			iso_year                INTEGER NOT NULL,
			iso_week                INTEGER NOT NULL,
			quarter                 INTEGER NOT NULL,
			half                    INTEGER NOT NULL,
			month                   INTEGER NOT NULL,
			day_of_week             INTEGER NOT NULL,
			is_weekend              INTEGER NOT NULL,
			is_first_of_month       INTEGER NOT NULL,
			is_last_of_month        INTEGER NOT NULL,
			is_first_of_quarter     INTEGER NOT NULL,
			is_last_of_quarter      INTEGER NOT NULL,
			year_key                INTEGER NOT NULL,
			half_key                INTEGER NOT NULL,
			quarter_key             INTEGER NOT NULL,
			month_key               INTEGER NOT NULL,
			week_key                INTEGER NOT NULL,
			day_of_quarter          INTEGER NOT NULL,
			day_of_half             INTEGER NOT NULL,
			prior_year_date_key     INTEGER,
			prior_quarter_date_key  INTEGER,
			prior_month_date_key    INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS dim_period (
			period_key       INTEGER NOT NULL,
			period_type      TEXT NOT NULL,
			label            TEXT NOT NULL,
			start_date       DATE NOT NULL,
			end_date         DATE NOT NULL,
			day_count        INTEGER NOT NULL,
			prior_period_key INTEGER,
			PRIMARY KEY (period_type, period_key)
		)`,
		`CREATE TABLE IF NOT EXISTS fact_tasks (
			id                  INTEGER PRIMARY KEY AUTOINCREMENT,
			gid                 TEXT NOT NULL UNIQUE,
			name                TEXT NOT NULL,
			notes               TEXT NOT NULL DEFAULT '',
			assignee_gid        TEXT REFERENCES dim_users(gid),
			parent_gid          TEXT REFERENCES fact_tasks(gid),
			is_subtask          INTEGER NOT NULL DEFAULT 0,
			num_subtasks        INTEGER NOT NULL DEFAULT 0,
			is_completed        INTEGER NOT NULL DEFAULT 0,
			created_at          DATETIME NOT NULL,
			completed_at        DATETIME,
			due_on              DATE,
			created_date_key    INTEGER NOT NULL REFERENCES dim_date(date_key),
			completed_date_key  INTEGER REFERENCES dim_date(date_key),
			days_to_complete    INTEGER,
			is_overdue          INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fact_tasks_assignee ON fact_tasks(assignee_gid)`,
		`CREATE INDEX IF NOT EXISTS idx_fact_tasks_parent ON fact_tasks(parent_gid)`,
		`CREATE INDEX IF NOT EXISTS idx_fact_tasks_created_date ON fact_tasks(created_date_key)`,
		`CREATE INDEX IF NOT EXISTS idx_fact_tasks_completed_date ON fact_tasks(completed_date_key)`,
		`CREATE TABLE IF NOT EXISTS fact_comments (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			gid        TEXT NOT NULL UNIQUE,
			task_gid   TEXT NOT NULL REFERENCES fact_tasks(gid) ON DELETE CASCADE,
			author_gid TEXT REFERENCES dim_users(gid),
			text       TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fact_comments_task ON fact_comments(task_gid)`,
		`CREATE TABLE IF NOT EXISTS fact_status_updates (
			gid           TEXT PRIMARY KEY,
			project_gid   TEXT REFERENCES dim_projects(gid) ON DELETE CASCADE,
			portfolio_gid TEXT REFERENCES dim_portfolios(gid) ON DELETE CASCADE,
			text          TEXT NOT NULL DEFAULT '',
			status_type   TEXT NOT NULL,
			author_gid    TEXT REFERENCES dim_users(gid),
			created_at    DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS fact_task_custom_fields (
			task_gid         TEXT NOT NULL REFERENCES fact_tasks(gid) ON DELETE CASCADE,
			custom_field_gid TEXT NOT NULL REFERENCES dim_custom_fields(gid) ON DELETE CASCADE,
			enum_value_gid   TEXT REFERENCES dim_enum_options(gid),
			number_value     REAL,
			date_value       DATE,
			text_value       TEXT NOT NULL DEFAULT '',
			display_value    TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (task_gid, custom_field_gid)
		)`,
		`CREATE TABLE IF NOT EXISTS fact_task_summaries (
			task_gid       TEXT NOT NULL REFERENCES fact_tasks(gid) ON DELETE CASCADE,
			period_key     TEXT NOT NULL,
			prompt_version TEXT NOT NULL,
			summary        TEXT NOT NULL,
			generated_at   DATETIME NOT NULL,
			PRIMARY KEY (task_gid, period_key, prompt_version)
		)`,
		`CREATE TABLE IF NOT EXISTS fact_project_summaries (
			project_gid    TEXT NOT NULL REFERENCES dim_projects(gid) ON DELETE CASCADE,
			period_key     TEXT NOT NULL,
			prompt_version TEXT NOT NULL,
			summary        TEXT NOT NULL,
			generated_at   DATETIME NOT NULL,
			PRIMARY KEY (project_gid, period_key, prompt_version)
		)`,
		`CREATE TABLE IF NOT EXISTS fact_portfolio_summaries (
			portfolio_gid  TEXT NOT NULL REFERENCES dim_portfolios(gid) ON DELETE CASCADE,
			period_key     TEXT NOT NULL,
			prompt_version TEXT NOT NULL,
			summary        TEXT NOT NULL,
			generated_at   DATETIME NOT NULL,
			PRIMARY KEY (portfolio_gid, period_key, prompt_version)
		)`,
		`CREATE TABLE IF NOT EXISTS fact_team_summaries (
			team_gid       TEXT NOT NULL REFERENCES dim_teams(gid) ON DELETE CASCADE,
			period_key     TEXT NOT NULL,
			prompt_version TEXT NOT NULL,
			summary        TEXT NOT NULL,
			generated_at   DATETIME NOT NULL,
			PRIMARY KEY (team_gid, period_key, prompt_version)
		)`,
		`CREATE TABLE IF NOT EXISTS fact_user_summaries (
			user_gid       TEXT NOT NULL REFERENCES dim_users(gid) ON DELETE CASCADE,
			period_key     TEXT NOT NULL,
			prompt_version TEXT NOT NULL,
			summary        TEXT NOT NULL,
			generated_at   DATETIME NOT NULL,
			PRIMARY KEY (user_gid, period_key, prompt_version)
		)`,
		`CREATE TABLE IF NOT EXISTS bridge_task_projects (
			task_gid    TEXT NOT NULL REFERENCES fact_tasks(gid) ON DELETE CASCADE,
			project_gid TEXT NOT NULL REFERENCES dim_projects(gid) ON DELETE CASCADE,
			section_gid TEXT REFERENCES dim_sections(gid),
			PRIMARY KEY (task_gid, project_gid)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bridge_task_projects_project ON bridge_task_projects(project_gid)`,
		`CREATE TABLE IF NOT EXISTS bridge_portfolio_projects (
			portfolio_gid TEXT NOT NULL REFERENCES dim_portfolios(gid) ON DELETE CASCADE,
			project_gid   TEXT NOT NULL REFERENCES dim_projects(gid) ON DELETE CASCADE,
			PRIMARY KEY (portfolio_gid, project_gid)
		)`,
		`CREATE TABLE IF NOT EXISTS bridge_portfolio_portfolios (
			parent_portfolio_gid TEXT NOT NULL REFERENCES dim_portfolios(gid) ON DELETE CASCADE,
			child_portfolio_gid  TEXT NOT NULL REFERENCES dim_portfolios(gid) ON DELETE CASCADE,
			PRIMARY KEY (parent_portfolio_gid, child_portfolio_gid)
		)`,
		`CREATE TABLE IF NOT EXISTS bridge_task_tags (
			task_gid TEXT NOT NULL REFERENCES fact_tasks(gid) ON DELETE CASCADE,
			tag_gid  TEXT NOT NULL REFERENCES dim_tags(gid) ON DELETE CASCADE,
			PRIMARY KEY (task_gid, tag_gid)
		)`,
		`CREATE TABLE IF NOT EXISTS bridge_task_dependencies (
			task_gid       TEXT NOT NULL REFERENCES fact_tasks(gid) ON DELETE CASCADE,
			depends_on_gid TEXT NOT NULL REFERENCES fact_tasks(gid) ON DELETE CASCADE,
			PRIMARY KEY (task_gid, depends_on_gid)
		)`,
		`CREATE TABLE IF NOT EXISTS bridge_task_followers (
			task_gid TEXT NOT NULL REFERENCES fact_tasks(gid) ON DELETE CASCADE,
			user_gid TEXT NOT NULL REFERENCES dim_users(gid) ON DELETE CASCADE,
			PRIMARY KEY (task_gid, user_gid)
		)`,
		`CREATE TABLE IF NOT EXISTS bridge_team_members (
			team_gid TEXT NOT NULL REFERENCES dim_teams(gid) ON DELETE CASCADE,
			user_gid TEXT NOT NULL REFERENCES dim_users(gid) ON DELETE CASCADE,
			PRIMARY KEY (team_gid, user_gid)
		)`,
		`CREATE TABLE IF NOT EXISTS bridge_task_multi_enum_values (
			task_gid         TEXT NOT NULL REFERENCES fact_tasks(gid) ON DELETE CASCADE,
			custom_field_gid TEXT NOT NULL REFERENCES dim_custom_fields(gid) ON DELETE CASCADE,
			enum_value_gid   TEXT NOT NULL REFERENCES dim_enum_options(gid) ON DELETE CASCADE,
			PRIMARY KEY (task_gid, custom_field_gid, enum_value_gid)
		)`,
	)
}
