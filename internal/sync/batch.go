package sync

import (
	"context"
	"database/sql"
	"time"

	"github.com/adlio/asanadw/internal/asana"
	"github.com/adlio/asanadw/internal/gapdetector"
	"github.com/adlio/asanadw/internal/storage"
)

// ingestBatch pulls every task (and its comments) modified since window's
// start, upserts the dimension rows they reference (before and outside the
// transaction), then commits fact upserts, bridge replacements, and the
// synced_ranges marker in a single transaction (spec.md §4.5 step 5 "one
// monthly batch per transaction"). A task whose writes fail is skipped and
// counted rather than aborting the batch, and a comment fetch that fails
// counts as a failed item (spec.md §4.5 "partial-failure semantics").
func (e *Engine) ingestBatch(ctx context.Context, scope asana.Scope, entityGID, entityType string, window gapdetector.Range) (synced, skipped, failed int, err error) {
	var tasks []asana.Task
	var comments = map[string][]asana.Comment{}

	cursor := ""
	for {
		var page asana.Page[asana.Task]
		if err := e.Governor.Do(ctx, func(ctx context.Context) error {
			p, err := e.Client.ListTasksModifiedSince(ctx, scope, asana.TimeWindow{SinceRFC3339: window.Start.Format(time.RFC3339)}, cursor)
			if err != nil {
				return err
			}
			page = p
			return nil
		}); err != nil {
			return synced, skipped, failed, err
		}
		tasks = append(tasks, page.Items...)
		if page.NextOffset == "" {
			break
		}
		cursor = page.NextOffset
	}

	for _, t := range tasks {
		cCursor := ""
		for {
			var page asana.Page[asana.Comment]
			if err := e.Governor.Do(ctx, func(ctx context.Context) error {
				p, err := e.Client.ListCommentsForTask(ctx, t.GID, cCursor)
				if err != nil {
					return err
				}
				page = p
				return nil
			}); err != nil {
				failed++
				break
			}
			comments[t.GID] = append(comments[t.GID], page.Items...)
			if page.NextOffset == "" {
				break
			}
			cCursor = page.NextOffset
		}
	}

	if err := e.hydrateDimensions(ctx, tasks, comments, newDimensionCache()); err != nil {
		return synced, skipped, failed, err
	}

	err = e.Store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, t := range tasks {
			if ingestErr := ingestTask(ctx, tx, e.Store, t, comments[t.GID]); ingestErr != nil {
				skipped++
				continue
			}
			synced++
		}
		return storage.RecordSyncedRange(ctx, tx, storage.SyncedRange{
			EntityGID: entityGID, EntityType: entityType, Start: window.Start, End: window.End,
		})
	})
	return synced, skipped, failed, err
}

// ingestTask upserts one task, its custom-field values, bridges, and
// comments. Every dimension row it references (assignee, project/section
// memberships, tags, custom-field definitions/enum options, comment
// authors) must already exist — hydrateDimensions upserts them ahead of
// this call, outside the transaction, since foreign keys are enforced and
// dimension hydration may need a live Client round trip.
func ingestTask(ctx context.Context, tx *sql.Tx, store *storage.Store, t asana.Task, comments []asana.Comment) error {
	row := toTaskRow(t)
	if _, err := tx.ExecContext(ctx, `
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
		row.GID, row.Name, row.Notes, nullStr(row.AssigneeGID), nullStr(row.ParentGID), row.IsSubtask, row.NumSubtasks,
		row.IsCompleted, row.CreatedAt, row.CompletedAt, row.DueOn,
		row.CreatedDateKey, row.CompletedDateKey, row.DaysToComplete, row.IsOverdue,
	); err != nil {
		return err
	}

	var memberships []storage.TaskProjectMembership
	for _, m := range t.Memberships {
		memberships = append(memberships, storage.TaskProjectMembership{TaskGID: t.GID, ProjectGID: m.ProjectGID, SectionGID: m.SectionGID})
	}
	if err := storage.ReplaceTaskProjects(ctx, tx, t.GID, memberships); err != nil {
		return err
	}
	tagGIDs := make([]string, len(t.Tags))
	for i, tag := range t.Tags {
		tagGIDs[i] = tag.GID
	}
	if err := storage.ReplaceTaskTags(ctx, tx, t.GID, tagGIDs); err != nil {
		return err
	}
	if err := storage.ReplaceTaskDependencies(ctx, tx, t.GID, t.DependsOnGIDs); err != nil {
		return err
	}

	followerGIDs := make([]string, len(t.Followers))
	for i, f := range t.Followers {
		followerGIDs[i] = f.GID
	}
	if err := storage.ReplaceTaskFollowers(ctx, tx, t.GID, followerGIDs); err != nil {
		return err
	}

	for _, cf := range t.CustomFields {
		if err := ingestCustomFieldValue(ctx, tx, t.GID, cf); err != nil {
			return err
		}
	}

	for _, c := range comments {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO fact_comments (gid, task_gid, author_gid, text, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(gid) DO UPDATE SET author_gid = excluded.author_gid, text = excluded.text
		`, c.GID, c.TaskGID, nullStr(c.AuthorGID), c.Text, c.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

// ingestCustomFieldValue upserts one task's custom-field value row (and its
// FTS mirror) per spec.md §4.8's per-type transformation rules, expanding
// multi_enum into bridge_task_multi_enum_values since fact_task_custom_fields
// only has room for one enum_value_gid per field.
func ingestCustomFieldValue(ctx context.Context, tx *sql.Tx, taskGID string, cf asana.CustomFieldValue) error {
	v := storage.TaskCustomFieldValue{TaskGID: taskGID, CustomFieldGID: cf.CustomFieldGID, DisplayValue: cf.DisplayValue}
	switch cf.Type {
	case asana.CustomFieldEnum:
		v.EnumValueGID = cf.EnumValueGID
	case asana.CustomFieldNumber:
		v.NumberValue = cf.Number
	case asana.CustomFieldDate:
		v.DateValue = cf.Date
	case asana.CustomFieldText:
		v.TextValue = cf.Text
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO fact_task_custom_fields (
			task_gid, custom_field_gid, enum_value_gid, number_value, date_value, text_value, display_value
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_gid, custom_field_gid) DO UPDATE SET
			enum_value_gid = excluded.enum_value_gid, number_value = excluded.number_value,
			date_value = excluded.date_value, text_value = excluded.text_value,
			display_value = excluded.display_value
	`, v.TaskGID, v.CustomFieldGID, nullStr(v.EnumValueGID), v.NumberValue, v.DateValue, v.TextValue, v.DisplayValue); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM custom_fields_fts WHERE task_gid = ? AND custom_field_gid = ?
	`, v.TaskGID, v.CustomFieldGID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO custom_fields_fts (task_gid, custom_field_gid, display_value) VALUES (?, ?, ?)
	`, v.TaskGID, v.CustomFieldGID, v.DisplayValue); err != nil {
		return err
	}

	if cf.Type == asana.CustomFieldMultiEnum {
		gids := make([]string, len(cf.MultiEnumValues))
		for i, o := range cf.MultiEnumValues {
			gids[i] = o.GID
		}
		if err := storage.ReplaceTaskMultiEnumValues(ctx, tx, taskGID, cf.CustomFieldGID, gids); err != nil {
			return err
		}
	}
	return nil
}

// taskRow is the subset of storage.Task computed from an asana.Task plus
// calendar-derived fields (spec.md §3 "days_to_complete consistency").
type taskRow = storage.Task

func toTaskRow(t asana.Task) taskRow {
	row := storage.Task{
		GID: t.GID, Name: t.Name, Notes: t.Notes, AssigneeGID: t.AssigneeGID, ParentGID: t.ParentGID,
		IsSubtask: t.ParentGID != "", NumSubtasks: t.NumSubtasks, IsCompleted: t.Completed,
		CreatedAt: t.CreatedAt, CompletedAt: t.CompletedAt, DueOn: t.DueOn,
		CreatedDateKey: dateKey(t.CreatedAt),
	}
	if t.CompletedAt != nil {
		k := dateKey(*t.CompletedAt)
		row.CompletedDateKey = &k
		cy, cm, cd := t.CompletedAt.Date()
		sy, sm, sd := t.CreatedAt.Date()
		days := int(time.Date(cy, cm, cd, 0, 0, 0, 0, time.UTC).Sub(time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)).Hours() / 24)
		row.DaysToComplete = &days
	}
	if !t.Completed && t.DueOn != nil && t.DueOn.Before(time.Now()) {
		row.IsOverdue = true
	}
	return row
}

func dateKey(t time.Time) int { return t.Year()*10000 + int(t.Month())*100 + t.Day() }

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
