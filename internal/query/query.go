// Package query implements the parameterized task filter builder (spec.md
// §4.6): predicates accumulate onto a fact_tasks statement the same way
// SearchIssues's whereClauses/args pair does, then one of a handful of
// emitters runs the composed query.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/adlio/asanadw/internal/calendar"
	"github.com/adlio/asanadw/internal/errs"
	"github.com/adlio/asanadw/internal/storage"
)

const defaultLimit = 100

// Builder accumulates AND-composed filter predicates against fact_tasks,
// joined to bridge_task_projects/bridge_portfolio_projects/dim_projects/
// fact_task_custom_fields/dim_custom_fields as each filter requires.
type Builder struct {
	store *storage.Store

	joins       []string
	whereClauses []string
	args        []any
	limit       int
	err         error
}

// New starts a filter chain against store. Each filter method returns the
// Builder so calls chain; a resolution failure (ambiguous or unknown
// identifier) is latched onto b.err and surfaces from the first emitter
// called, matching the teacher's "accumulate, fail at the end" shape.
func New(store *storage.Store) *Builder {
	return &Builder{store: store, limit: defaultLimit}
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Assignee filters to tasks assigned to the user identified by gid, email,
// or exact name.
func (b *Builder) Assignee(ctx context.Context, identifier string) *Builder {
	if b.err != nil {
		return b
	}
	gid, err := resolveUser(ctx, b.store, identifier)
	if err != nil {
		return b.fail(err)
	}
	b.whereClauses = append(b.whereClauses, "fact_tasks.assignee_gid = ?")
	b.args = append(b.args, gid)
	return b
}

// Project filters to tasks belonging to the project identified by gid,
// name, or Asana URL.
func (b *Builder) Project(ctx context.Context, identifier string) *Builder {
	if b.err != nil {
		return b
	}
	gid, err := resolveProject(ctx, b.store, identifier)
	if err != nil {
		return b.fail(err)
	}
	b.joins = append(b.joins, "JOIN bridge_task_projects btp ON btp.task_gid = fact_tasks.gid")
	b.whereClauses = append(b.whereClauses, "btp.project_gid = ?")
	b.args = append(b.args, gid)
	return b
}

// Portfolio filters to tasks in any project under the named portfolio.
func (b *Builder) Portfolio(ctx context.Context, identifier string) *Builder {
	if b.err != nil {
		return b
	}
	gid, err := resolvePortfolio(ctx, b.store, identifier)
	if err != nil {
		return b.fail(err)
	}
	b.joins = append(b.joins, "JOIN bridge_task_projects btp_pf ON btp_pf.task_gid = fact_tasks.gid")
	b.joins = append(b.joins, "JOIN bridge_portfolio_projects bpp ON bpp.project_gid = btp_pf.project_gid")
	b.whereClauses = append(b.whereClauses, "bpp.portfolio_gid = ?")
	b.args = append(b.args, gid)
	return b
}

// Team filters to tasks in projects owned by the named team.
func (b *Builder) Team(ctx context.Context, identifier string) *Builder {
	if b.err != nil {
		return b
	}
	gid, err := resolveTeam(ctx, b.store, identifier)
	if err != nil {
		return b.fail(err)
	}
	b.joins = append(b.joins, "JOIN bridge_task_projects btp_team ON btp_team.task_gid = fact_tasks.gid")
	b.joins = append(b.joins, "JOIN dim_projects dp_team ON dp_team.gid = btp_team.project_gid")
	b.whereClauses = append(b.whereClauses, "dp_team.team_gid = ?")
	b.args = append(b.args, gid)
	return b
}

// Completed restricts to completed tasks.
func (b *Builder) Completed() *Builder {
	b.whereClauses = append(b.whereClauses, "fact_tasks.is_completed = 1")
	return b
}

// Incomplete restricts to open tasks.
func (b *Builder) Incomplete() *Builder {
	b.whereClauses = append(b.whereClauses, "fact_tasks.is_completed = 0")
	return b
}

// Overdue restricts to tasks flagged overdue at ingest time.
func (b *Builder) Overdue() *Builder {
	b.whereClauses = append(b.whereClauses, "fact_tasks.is_overdue = 1")
	return b
}

// Period restricts created_date_key to p's range (spec.md §4.6 "period ...
// by default").
func (b *Builder) Period(p calendar.Period) *Builder {
	b.whereClauses = append(b.whereClauses, "fact_tasks.created_date_key BETWEEN ? AND ?")
	b.args = append(b.args, dateKey(p.Start), dateKey(p.End))
	return b
}

// Since clamps created_date_key to on-or-after t.
func (b *Builder) Since(t time.Time) *Builder {
	b.whereClauses = append(b.whereClauses, "fact_tasks.created_date_key >= ?")
	b.args = append(b.args, dateKey(t))
	return b
}

// Until clamps created_date_key to on-or-before t.
func (b *Builder) Until(t time.Time) *Builder {
	b.whereClauses = append(b.whereClauses, "fact_tasks.created_date_key <= ?")
	b.args = append(b.args, dateKey(t))
	return b
}

// CustomField filters to tasks whose named custom field carries the given
// display value.
func (b *Builder) CustomField(name, value string) *Builder {
	b.joins = append(b.joins, `JOIN fact_task_custom_fields ftcf ON ftcf.task_gid = fact_tasks.gid
		JOIN dim_custom_fields dcf ON dcf.gid = ftcf.custom_field_gid`)
	b.whereClauses = append(b.whereClauses, "dcf.name = ? AND ftcf.display_value = ?")
	b.args = append(b.args, name, value)
	return b
}

// Limit overrides the default row cap (100).
func (b *Builder) Limit(n int) *Builder {
	if n > 0 {
		b.limit = n
	}
	return b
}

func (b *Builder) buildSQL(columns string) (string, []any, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	var q strings.Builder
	fmt.Fprintf(&q, "SELECT %s FROM fact_tasks", columns)
	for _, j := range b.joins {
		q.WriteString(" ")
		q.WriteString(j)
	}
	if len(b.whereClauses) > 0 {
		q.WriteString(" WHERE ")
		q.WriteString(strings.Join(b.whereClauses, " AND "))
	}
	q.WriteString(" ORDER BY fact_tasks.created_at DESC LIMIT ?")
	args := append(append([]any{}, b.args...), b.limit)
	return q.String(), args, nil
}

// Tasks runs the composed query and returns matching task rows.
func (b *Builder) Tasks(ctx context.Context) ([]storage.Task, error) {
	sqlStr, args, err := b.buildSQL(`DISTINCT fact_tasks.id, fact_tasks.gid, fact_tasks.name, fact_tasks.notes,
		fact_tasks.assignee_gid, fact_tasks.parent_gid, fact_tasks.is_subtask, fact_tasks.num_subtasks,
		fact_tasks.is_completed, fact_tasks.created_at, fact_tasks.completed_at, fact_tasks.due_on,
		fact_tasks.created_date_key, fact_tasks.completed_date_key, fact_tasks.days_to_complete, fact_tasks.is_overdue`)
	if err != nil {
		return nil, err
	}
	rows, err := b.store.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.Task
	for rows.Next() {
		var t storage.Task
		var assignee, parent sql.NullString
		if err := rows.Scan(&t.ID, &t.GID, &t.Name, &t.Notes, &assignee, &parent, &t.IsSubtask, &t.NumSubtasks,
			&t.IsCompleted, &t.CreatedAt, &t.CompletedAt, &t.DueOn,
			&t.CreatedDateKey, &t.CompletedDateKey, &t.DaysToComplete, &t.IsOverdue); err != nil {
			return nil, errs.Wrap(errs.KindDatabase, "scan task row", err)
		}
		t.AssigneeGID = assignee.String
		t.ParentGID = parent.String
		out = append(out, t)
	}
	return out, rows.Err()
}

// Projects returns the distinct projects touched by the matched tasks.
func (b *Builder) Projects(ctx context.Context) ([]storage.Project, error) {
	inner, args, err := b.buildSQL("DISTINCT fact_tasks.gid")
	if err != nil {
		return nil, err
	}
	sqlStr := fmt.Sprintf(`
		SELECT DISTINCT dp.id, dp.gid, dp.name, dp.notes, dp.team_gid, dp.archived, dp.created_at
		FROM dim_projects dp
		JOIN bridge_task_projects btp ON btp.project_gid = dp.gid
		WHERE btp.task_gid IN (%s)
	`, inner)
	rows, err := b.store.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.Project
	for rows.Next() {
		var p storage.Project
		var team sql.NullString
		if err := rows.Scan(&p.ID, &p.GID, &p.Name, &p.Notes, &team, &p.Archived, &p.CreatedAt); err != nil {
			return nil, errs.Wrap(errs.KindDatabase, "scan project row", err)
		}
		p.TeamGID = team.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// Count returns the number of matching tasks without fetching rows.
func (b *Builder) Count(ctx context.Context) (int, error) {
	sqlStr, args, err := b.buildSQL("COUNT(DISTINCT fact_tasks.id)")
	if err != nil {
		return 0, err
	}
	// COUNT ignores LIMIT semantics; strip the trailing "LIMIT ?" clause and arg.
	sqlStr = strings.TrimSuffix(sqlStr, "LIMIT ?")
	args = args[:len(args)-1]

	var n int
	row := b.store.QueryRow(ctx, sqlStr, args...)
	if err := row.Scan(&n); err != nil {
		return 0, errs.Wrap(errs.KindDatabase, "count tasks", err)
	}
	return n, nil
}

func dateKey(t time.Time) int { return t.Year()*10000 + int(t.Month())*100 + t.Day() }
