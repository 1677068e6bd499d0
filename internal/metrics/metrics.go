package metrics

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/adlio/asanadw/internal/calendar"
	"github.com/adlio/asanadw/internal/errs"
	"github.com/adlio/asanadw/internal/storage"
)

// Throughput is spec.md §4.9's per-period completion summary.
type Throughput struct {
	TasksCompleted    int
	TasksCreated      int
	CompletionRate    float64
	SubtasksCompleted int
}

// Health is spec.md §4.9's project/portfolio/team status summary.
type Health struct {
	OverdueCount      int
	StatusUpdateCount int
	LatestStatus      string
	BlockerCount      int
}

// LeadTime is spec.md §4.9's days-to-complete distribution for one period.
type LeadTime struct {
	MedianDays float64
	P90Days    float64
	MeanDays   float64
}

// Collaboration is spec.md §4.9's per-user collaboration summary.
type Collaboration struct {
	DistinctCollaborators int
	CommentsAuthored      int
	TasksWithFollowers    int
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// scope is the task-set a metric is computed over: either the union of a
// project list's tasks (project/portfolio/team metrics) or one user's
// assigned tasks (user metrics). Exactly one of ProjectGIDs/UserGID is set.
type scope struct {
	projectGIDs []string
	userGID     string
}

func (s scope) whereAndArgs() (string, []any, []string) {
	if s.userGID != "" {
		return "fact_tasks.assignee_gid = ?", []any{s.userGID}, nil
	}
	if len(s.projectGIDs) == 0 {
		return "0", nil, nil
	}
	args := make([]any, len(s.projectGIDs))
	for i, g := range s.projectGIDs {
		args[i] = g
	}
	joins := []string{"JOIN bridge_task_projects btp ON btp.task_gid = fact_tasks.gid"}
	return "btp.project_gid IN (" + placeholders(len(s.projectGIDs)) + ")", args, joins
}

// ForProjects scopes a metric to the union of tasks across projectGIDs.
func ForProjects(projectGIDs []string) scope { return scope{projectGIDs: projectGIDs} }

// ForUser scopes a metric to one user's assigned tasks.
func ForUser(userGID string) scope { return scope{userGID: userGID} }

// ComputeThroughput implements spec.md §4.9's throughput aggregate.
func ComputeThroughput(ctx context.Context, store *storage.Store, sc scope, period calendar.Period) (Throughput, error) {
	where, args, joins := sc.whereAndArgs()
	from := "FROM fact_tasks " + strings.Join(joins, " ")
	startKey, endKey := dateKey(period.Start), dateKey(period.End)

	var t Throughput
	completed, err := countWhere(ctx, store, from, where+" AND is_completed = 1 AND is_subtask = 0 AND completed_date_key BETWEEN ? AND ?", append(append([]any{}, args...), startKey, endKey))
	if err != nil {
		return Throughput{}, err
	}
	created, err := countWhere(ctx, store, from, where+" AND is_subtask = 0 AND created_date_key BETWEEN ? AND ?", append(append([]any{}, args...), startKey, endKey))
	if err != nil {
		return Throughput{}, err
	}
	subtasksCompleted, err := countWhere(ctx, store, from, where+" AND is_completed = 1 AND is_subtask = 1 AND completed_date_key BETWEEN ? AND ?", append(append([]any{}, args...), startKey, endKey))
	if err != nil {
		return Throughput{}, err
	}
	openAtEnd, err := countWhere(ctx, store, from, where+" AND created_date_key <= ? AND (is_completed = 0 OR completed_date_key > ?)", append(append([]any{}, args...), endKey, endKey))
	if err != nil {
		return Throughput{}, err
	}

	t.TasksCompleted = completed
	t.TasksCreated = created
	t.SubtasksCompleted = subtasksCompleted
	if denom := completed + openAtEnd; denom > 0 {
		t.CompletionRate = float64(completed) / float64(denom)
	}
	return t, nil
}

// ComputeLeadTime implements spec.md §4.9's lead-time aggregate.
func ComputeLeadTime(ctx context.Context, store *storage.Store, sc scope, period calendar.Period) (LeadTime, error) {
	where, args, joins := sc.whereAndArgs()
	startKey, endKey := dateKey(period.Start), dateKey(period.End)

	q := `SELECT days_to_complete FROM fact_tasks ` + strings.Join(joins, " ") +
		` WHERE ` + where + ` AND is_completed = 1 AND completed_date_key BETWEEN ? AND ? AND days_to_complete IS NOT NULL`
	rows, err := store.Query(ctx, q, append(append([]any{}, args...), startKey, endKey)...)
	if err != nil {
		return LeadTime{}, err
	}
	defer rows.Close()

	var days []int
	for rows.Next() {
		var d int
		if err := rows.Scan(&d); err != nil {
			return LeadTime{}, errs.Wrap(errs.KindDatabase, "scan lead time row", err)
		}
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return LeadTime{}, errs.Wrap(errs.KindDatabase, "iterate lead time rows", err)
	}

	return LeadTime{MedianDays: median(days), P90Days: percentile(days, 0.9), MeanDays: mean(days)}, nil
}

// ComputeHealth implements spec.md §4.9's health aggregate for a project,
// portfolio, or team scoped to projectGIDs. statusWhere/statusArgs
// additionally scope fact_status_updates directly (a portfolio also owns
// status updates posted against the portfolio itself, not only its
// projects).
func ComputeHealth(ctx context.Context, store *storage.Store, projectGIDs []string, statusWhere string, statusArgs []any, period calendar.Period) (Health, error) {
	sc := ForProjects(projectGIDs)
	where, args, joins := sc.whereAndArgs()

	var h Health
	overdue, err := countWhere(ctx, store, "FROM fact_tasks "+strings.Join(joins, " "), where+" AND is_overdue = 1 AND is_completed = 0", args)
	if err != nil {
		return Health{}, err
	}
	h.OverdueCount = overdue

	blockerWhere := where + ` AND EXISTS (
		SELECT 1 FROM bridge_task_dependencies btd
		JOIN fact_tasks dep ON dep.gid = btd.depends_on_gid
		WHERE btd.task_gid = fact_tasks.gid AND dep.is_completed = 0
	)`
	blockers, err := countWhere(ctx, store, "FROM fact_tasks "+strings.Join(joins, " "), blockerWhere, args)
	if err != nil {
		return Health{}, err
	}
	h.BlockerCount = blockers

	if statusWhere != "" {
		startStr, endStr := period.Start.Format("2006-01-02"), period.End.Format("2006-01-02")
		cntQ := "SELECT COUNT(*) FROM fact_status_updates WHERE " + statusWhere + " AND date(created_at) BETWEEN ? AND ?"
		row := store.QueryRow(ctx, cntQ, append(append([]any{}, statusArgs...), startStr, endStr)...)
		if err := row.Scan(&h.StatusUpdateCount); err != nil {
			return Health{}, errs.Wrap(errs.KindDatabase, "count status updates", err)
		}

		latestQ := "SELECT status_type FROM fact_status_updates WHERE " + statusWhere + " AND date(created_at) <= ? ORDER BY created_at DESC LIMIT 1"
		row = store.QueryRow(ctx, latestQ, append(append([]any{}, statusArgs...), endStr)...)
		if err := row.Scan(&h.LatestStatus); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return Health{}, errs.Wrap(errs.KindDatabase, "get latest status", err)
		}
	}
	return h, nil
}

// ComputeCollaboration implements spec.md §4.9's per-user collaboration
// aggregate: distinct collaborators across followers and comment authors on
// tasks touched by userGID in period, comments authored, and tasks with
// followers.
func ComputeCollaboration(ctx context.Context, store *storage.Store, userGID string, period calendar.Period) (Collaboration, error) {
	startKey, endKey := dateKey(period.Start), dateKey(period.End)

	var c Collaboration
	collabQ := `
		SELECT COUNT(DISTINCT collaborator) FROM (
			SELECT btf.user_gid AS collaborator
			FROM fact_tasks ft
			JOIN bridge_task_followers btf ON btf.task_gid = ft.gid
			WHERE ft.assignee_gid = ? AND ft.created_date_key BETWEEN ? AND ? AND btf.user_gid != ?
			UNION
			SELECT fc.author_gid AS collaborator
			FROM fact_tasks ft
			JOIN fact_comments fc ON fc.task_gid = ft.gid
			WHERE ft.assignee_gid = ? AND ft.created_date_key BETWEEN ? AND ? AND fc.author_gid != ?
		)
	`
	row := store.QueryRow(ctx, collabQ, userGID, startKey, endKey, userGID, userGID, startKey, endKey, userGID)
	if err := row.Scan(&c.DistinctCollaborators); err != nil {
		return Collaboration{}, errs.Wrap(errs.KindDatabase, "count collaborators", err)
	}

	commentsQ := `
		SELECT COUNT(*) FROM fact_comments
		WHERE author_gid = ? AND date(created_at) BETWEEN ? AND ?
	`
	row = store.QueryRow(ctx, commentsQ, userGID, period.Start.Format("2006-01-02"), period.End.Format("2006-01-02"))
	if err := row.Scan(&c.CommentsAuthored); err != nil {
		return Collaboration{}, errs.Wrap(errs.KindDatabase, "count comments authored", err)
	}

	followedQ := `
		SELECT COUNT(DISTINCT ft.gid) FROM fact_tasks ft
		JOIN bridge_task_followers btf ON btf.task_gid = ft.gid
		WHERE ft.assignee_gid = ? AND ft.created_date_key BETWEEN ? AND ?
	`
	row = store.QueryRow(ctx, followedQ, userGID, startKey, endKey)
	if err := row.Scan(&c.TasksWithFollowers); err != nil {
		return Collaboration{}, errs.Wrap(errs.KindDatabase, "count tasks with followers", err)
	}

	return c, nil
}

func countWhere(ctx context.Context, store *storage.Store, from, where string, args []any) (int, error) {
	q := "SELECT COUNT(DISTINCT fact_tasks.id) " + from + " WHERE " + where
	row := store.QueryRow(ctx, q, args...)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, errs.Wrap(errs.KindDatabase, "count tasks", err)
	}
	return n, nil
}

func dateKey(t time.Time) int { return t.Year()*10000 + int(t.Month())*100 + t.Day() }
