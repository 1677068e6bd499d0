package storage

import (
	"context"
	"database/sql"
)

// UpsertTask inserts or updates a fact_tasks row by gid, preserving its
// integer id on update so tasks_fts (trigger-synced on fact_tasks) never
// has to re-point at a new rowid (spec.md §3 "wide upsert", §8 "FTS rowid
// consistency").
func (s *Store) UpsertTask(ctx context.Context, t Task) error {
	_, err := s.writer.ExecContext(ctx, `
		INSERT INTO fact_tasks (
			gid, name, notes, assignee_gid, parent_gid, is_subtask, num_subtasks,
			is_completed, created_at, completed_at, due_on,
			created_date_key, completed_date_key, days_to_complete, is_overdue
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(gid) DO UPDATE SET
			name = excluded.name, notes = excluded.notes, assignee_gid = excluded.assignee_gid,
			parent_gid = excluded.parent_gid, is_subtask = excluded.is_subtask,
			num_subtasks = excluded.num_subtasks, is_completed = excluded.is_completed,
			completed_at = excluded.completed_at, due_on = excluded.due_on,
			completed_date_key = excluded.completed_date_key,
			days_to_complete = excluded.days_to_complete, is_overdue = excluded.is_overdue
	`,
		t.GID, t.Name, t.Notes, nullString(t.AssigneeGID), nullString(t.ParentGID), t.IsSubtask, t.NumSubtasks,
		t.IsCompleted, t.CreatedAt, t.CompletedAt, t.DueOn,
		t.CreatedDateKey, t.CompletedDateKey, t.DaysToComplete, t.IsOverdue,
	)
	return wrapDBErrorf(err, "upsert task %s", t.GID)
}

// UpsertComment inserts or updates a fact_comments row by gid, with the same
// id-stability guarantee as UpsertTask.
func (s *Store) UpsertComment(ctx context.Context, c Comment) error {
	_, err := s.writer.ExecContext(ctx, `
		INSERT INTO fact_comments (gid, task_gid, author_gid, text, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(gid) DO UPDATE SET
			author_gid = excluded.author_gid, text = excluded.text
	`, c.GID, c.TaskGID, nullString(c.AuthorGID), c.Text, c.CreatedAt)
	return wrapDBErrorf(err, "upsert comment %s", c.GID)
}

// UpsertStatusUpdate inserts or updates a fact_status_updates row by gid.
func (s *Store) UpsertStatusUpdate(ctx context.Context, u StatusUpdate) error {
	_, err := s.writer.ExecContext(ctx, `
		INSERT INTO fact_status_updates (gid, project_gid, portfolio_gid, text, status_type, author_gid, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(gid) DO UPDATE SET
			text = excluded.text, status_type = excluded.status_type, author_gid = excluded.author_gid
	`, u.GID, nullString(u.ProjectGID), nullString(u.PortfolioGID), u.Text, u.StatusType, nullString(u.AuthorGID), u.CreatedAt)
	return wrapDBErrorf(err, "upsert status update %s", u.GID)
}

// UpsertTaskCustomFieldValue inserts or updates a fact_task_custom_fields row
// and keeps custom_fields_fts (manually maintained, no content_rowid) in
// sync since SQLite has no INSERT...ON CONFLICT-friendly way to trigger a
// composite-key FTS5 table without shadowing rowid.
func (s *Store) UpsertTaskCustomFieldValue(ctx context.Context, v TaskCustomFieldValue) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO fact_task_custom_fields (
				task_gid, custom_field_gid, enum_value_gid, number_value, date_value, text_value, display_value
			) VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(task_gid, custom_field_gid) DO UPDATE SET
				enum_value_gid = excluded.enum_value_gid, number_value = excluded.number_value,
				date_value = excluded.date_value, text_value = excluded.text_value,
				display_value = excluded.display_value
		`, v.TaskGID, v.CustomFieldGID, nullString(v.EnumValueGID), v.NumberValue, v.DateValue, v.TextValue, v.DisplayValue)
		if err != nil {
			return wrapDBErrorf(err, "upsert custom field value %s/%s", v.TaskGID, v.CustomFieldGID)
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM custom_fields_fts WHERE task_gid = ? AND custom_field_gid = ?
		`, v.TaskGID, v.CustomFieldGID); err != nil {
			return wrapDBErrorf(err, "clear custom field fts row %s/%s", v.TaskGID, v.CustomFieldGID)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO custom_fields_fts (task_gid, custom_field_gid, display_value) VALUES (?, ?, ?)
		`, v.TaskGID, v.CustomFieldGID, v.DisplayValue)
		return wrapDBErrorf(err, "index custom field fts row %s/%s", v.TaskGID, v.CustomFieldGID)
	})
}

// DeleteTaskCustomFieldValue removes a fact_task_custom_fields row and its
// custom_fields_fts entry (e.g. when a custom field's value is cleared on
// the source task).
func (s *Store) DeleteTaskCustomFieldValue(ctx context.Context, taskGID, customFieldGID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM fact_task_custom_fields WHERE task_gid = ? AND custom_field_gid = ?
		`, taskGID, customFieldGID); err != nil {
			return wrapDBErrorf(err, "delete custom field value %s/%s", taskGID, customFieldGID)
		}
		_, err := tx.ExecContext(ctx, `
			DELETE FROM custom_fields_fts WHERE task_gid = ? AND custom_field_gid = ?
		`, taskGID, customFieldGID)
		return wrapDBErrorf(err, "delete custom field fts row %s/%s", taskGID, customFieldGID)
	})
}
