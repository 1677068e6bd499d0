package storage

import (
	"context"
	"database/sql"
)

// GetTaskByGID returns a single task by its Asana gid.
func (s *Store) GetTaskByGID(ctx context.Context, gid string) (Task, error) {
	var t Task
	var assignee, parent sql.NullString
	err := s.reader().QueryRowContext(ctx, `
		SELECT id, gid, name, notes, assignee_gid, parent_gid, is_subtask, num_subtasks,
			is_completed, created_at, completed_at, due_on,
			created_date_key, completed_date_key, days_to_complete, is_overdue
		FROM fact_tasks WHERE gid = ?
	`, gid).Scan(
		&t.ID, &t.GID, &t.Name, &t.Notes, &assignee, &parent, &t.IsSubtask, &t.NumSubtasks,
		&t.IsCompleted, &t.CreatedAt, &t.CompletedAt, &t.DueOn,
		&t.CreatedDateKey, &t.CompletedDateKey, &t.DaysToComplete, &t.IsOverdue,
	)
	if err != nil {
		return Task{}, wrapDBErrorf(err, "get task %s", gid)
	}
	t.AssigneeGID = assignee.String
	t.ParentGID = parent.String
	return t, nil
}

// GetProjectByGID returns a single project by its Asana gid.
func (s *Store) GetProjectByGID(ctx context.Context, gid string) (Project, error) {
	var p Project
	var team sql.NullString
	err := s.reader().QueryRowContext(ctx, `
		SELECT id, gid, name, notes, team_gid, archived, created_at
		FROM dim_projects WHERE gid = ?
	`, gid).Scan(&p.ID, &p.GID, &p.Name, &p.Notes, &team, &p.Archived, &p.CreatedAt)
	if err != nil {
		return Project{}, wrapDBErrorf(err, "get project %s", gid)
	}
	p.TeamGID = team.String
	return p, nil
}

// GetUserByGID returns a single user by its Asana gid.
func (s *Store) GetUserByGID(ctx context.Context, gid string) (User, error) {
	var u User
	err := s.reader().QueryRowContext(ctx, `SELECT gid, name, email FROM dim_users WHERE gid = ?`, gid).
		Scan(&u.GID, &u.Name, &u.Email)
	return u, wrapDBErrorf(err, "get user %s", gid)
}

// ResolveUserIdentifier looks up a user by gid, exact email, or exact name
// (spec.md §2 "scope resolution"), returning errs.KindInvalidIdentifier's
// ambiguous-match case to the caller by way of a >1 row count.
func (s *Store) ResolveUserIdentifier(ctx context.Context, identifier string) ([]User, error) {
	rows, err := s.reader().QueryContext(ctx, `
		SELECT gid, name, email FROM dim_users
		WHERE gid = ? OR email = ? OR name = ?
	`, identifier, identifier, identifier)
	if err != nil {
		return nil, wrapDBErrorf(err, "resolve user identifier %q", identifier)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.GID, &u.Name, &u.Email); err != nil {
			return nil, wrapDBError("scan user", err)
		}
		out = append(out, u)
	}
	return out, wrapDBError("iterate users", rows.Err())
}

// ResolveProjectIdentifier looks up a project by gid or exact name. Two
// projects sharing a name is reported to the caller as an ambiguous match
// (spec.md §4.6 "signals not found / ambiguous") by way of a >1 row count.
func (s *Store) ResolveProjectIdentifier(ctx context.Context, identifier string) ([]Project, error) {
	rows, err := s.reader().QueryContext(ctx, `
		SELECT id, gid, name, notes, team_gid, archived, created_at FROM dim_projects
		WHERE gid = ? OR name = ?
	`, identifier, identifier)
	if err != nil {
		return nil, wrapDBErrorf(err, "resolve project identifier %q", identifier)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		var team sql.NullString
		if err := rows.Scan(&p.ID, &p.GID, &p.Name, &p.Notes, &team, &p.Archived, &p.CreatedAt); err != nil {
			return nil, wrapDBError("scan project", err)
		}
		p.TeamGID = team.String
		out = append(out, p)
	}
	return out, wrapDBError("iterate projects", rows.Err())
}

// ResolvePortfolioIdentifier looks up a portfolio by gid or exact name.
func (s *Store) ResolvePortfolioIdentifier(ctx context.Context, identifier string) ([]Portfolio, error) {
	rows, err := s.reader().QueryContext(ctx, `
		SELECT gid, name, owner_gid, created_at FROM dim_portfolios WHERE gid = ? OR name = ?
	`, identifier, identifier)
	if err != nil {
		return nil, wrapDBErrorf(err, "resolve portfolio identifier %q", identifier)
	}
	defer rows.Close()

	var out []Portfolio
	for rows.Next() {
		var p Portfolio
		var owner sql.NullString
		if err := rows.Scan(&p.GID, &p.Name, &owner, &p.CreatedAt); err != nil {
			return nil, wrapDBError("scan portfolio", err)
		}
		p.OwnerGID = owner.String
		out = append(out, p)
	}
	return out, wrapDBError("iterate portfolios", rows.Err())
}

// ResolveTeamIdentifier looks up a team by gid or exact name.
func (s *Store) ResolveTeamIdentifier(ctx context.Context, identifier string) ([]Team, error) {
	rows, err := s.reader().QueryContext(ctx, `
		SELECT gid, name FROM dim_teams WHERE gid = ? OR name = ?
	`, identifier, identifier)
	if err != nil {
		return nil, wrapDBErrorf(err, "resolve team identifier %q", identifier)
	}
	defer rows.Close()

	var out []Team
	for rows.Next() {
		var t Team
		if err := rows.Scan(&t.GID, &t.Name); err != nil {
			return nil, wrapDBError("scan team", err)
		}
		out = append(out, t)
	}
	return out, wrapDBError("iterate teams", rows.Err())
}

// TaskProjectGIDs returns every project gid a task belongs to.
func (s *Store) TaskProjectGIDs(ctx context.Context, taskGID string) ([]string, error) {
	rows, err := s.reader().QueryContext(ctx, `
		SELECT project_gid FROM bridge_task_projects WHERE task_gid = ?
	`, taskGID)
	if err != nil {
		return nil, wrapDBErrorf(err, "list task projects for %s", taskGID)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var gid string
		if err := rows.Scan(&gid); err != nil {
			return nil, wrapDBError("scan task project gid", err)
		}
		out = append(out, gid)
	}
	return out, wrapDBError("iterate task projects", rows.Err())
}

// PortfolioProjectGIDs returns the gids of the projects directly under
// portfolioGID, used by metrics' recursive portfolio scoping.
func (s *Store) PortfolioProjectGIDs(ctx context.Context, portfolioGID string) ([]string, error) {
	rows, err := s.reader().QueryContext(ctx, `
		SELECT project_gid FROM bridge_portfolio_projects WHERE portfolio_gid = ?
	`, portfolioGID)
	if err != nil {
		return nil, wrapDBErrorf(err, "list portfolio projects for %s", portfolioGID)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var gid string
		if err := rows.Scan(&gid); err != nil {
			return nil, wrapDBError("scan portfolio project gid", err)
		}
		out = append(out, gid)
	}
	return out, wrapDBError("iterate portfolio projects", rows.Err())
}

// PortfolioChildGIDs returns the child portfolios nested directly under
// portfolioGID (spec.md §6 "recursive portfolio scoping, depth <= 6").
func (s *Store) PortfolioChildGIDs(ctx context.Context, portfolioGID string) ([]string, error) {
	rows, err := s.reader().QueryContext(ctx, `
		SELECT child_portfolio_gid FROM bridge_portfolio_portfolios WHERE parent_portfolio_gid = ?
	`, portfolioGID)
	if err != nil {
		return nil, wrapDBErrorf(err, "list portfolio children for %s", portfolioGID)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var gid string
		if err := rows.Scan(&gid); err != nil {
			return nil, wrapDBError("scan portfolio child gid", err)
		}
		out = append(out, gid)
	}
	return out, wrapDBError("iterate portfolio children", rows.Err())
}

// TeamProjectGIDs returns every project gid owned by teamGID.
func (s *Store) TeamProjectGIDs(ctx context.Context, teamGID string) ([]string, error) {
	rows, err := s.reader().QueryContext(ctx, `SELECT gid FROM dim_projects WHERE team_gid = ?`, teamGID)
	if err != nil {
		return nil, wrapDBErrorf(err, "list team projects for %s", teamGID)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var gid string
		if err := rows.Scan(&gid); err != nil {
			return nil, wrapDBError("scan team project gid", err)
		}
		out = append(out, gid)
	}
	return out, wrapDBError("iterate team projects", rows.Err())
}

// CommentsForTask returns every comment on taskGID, oldest first, used by
// the summary cache to gather a task's evidence set (spec.md §4.10).
func (s *Store) CommentsForTask(ctx context.Context, taskGID string) ([]Comment, error) {
	rows, err := s.reader().QueryContext(ctx, `
		SELECT id, gid, task_gid, author_gid, text, created_at
		FROM fact_comments WHERE task_gid = ? ORDER BY created_at
	`, taskGID)
	if err != nil {
		return nil, wrapDBErrorf(err, "list comments for task %s", taskGID)
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		var c Comment
		var author sql.NullString
		if err := rows.Scan(&c.ID, &c.GID, &c.TaskGID, &author, &c.Text, &c.CreatedAt); err != nil {
			return nil, wrapDBError("scan comment", err)
		}
		c.AuthorGID = author.String
		out = append(out, c)
	}
	return out, wrapDBError("iterate comments", rows.Err())
}

// TasksTouchedInPeriod returns every task in any of projectGIDs created or
// completed within [start, end], used by the summary cache to gather a
// project/portfolio/team's period evidence set (spec.md §4.10).
func (s *Store) TasksTouchedInPeriod(ctx context.Context, projectGIDs []string, startKey, endKey int) ([]Task, error) {
	if len(projectGIDs) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(projectGIDs)+4)
	placeholders := ""
	for i, gid := range projectGIDs {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args = append(args, gid)
	}
	args = append(args, startKey, endKey, startKey, endKey)
	rows, err := s.reader().QueryContext(ctx, `
		SELECT DISTINCT ft.id, ft.gid, ft.name, ft.notes, ft.assignee_gid, ft.parent_gid, ft.is_subtask,
			ft.num_subtasks, ft.is_completed, ft.created_at, ft.completed_at, ft.due_on,
			ft.created_date_key, ft.completed_date_key, ft.days_to_complete, ft.is_overdue
		FROM fact_tasks ft
		JOIN bridge_task_projects btp ON btp.task_gid = ft.gid
		WHERE btp.project_gid IN (`+placeholders+`)
			AND (ft.created_date_key BETWEEN ? AND ? OR ft.completed_date_key BETWEEN ? AND ?)
		ORDER BY ft.created_date_key
	`, args...)
	if err != nil {
		return nil, wrapDBError("list tasks touched in period", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var t Task
		var assignee, parent sql.NullString
		if err := rows.Scan(
			&t.ID, &t.GID, &t.Name, &t.Notes, &assignee, &parent, &t.IsSubtask, &t.NumSubtasks,
			&t.IsCompleted, &t.CreatedAt, &t.CompletedAt, &t.DueOn,
			&t.CreatedDateKey, &t.CompletedDateKey, &t.DaysToComplete, &t.IsOverdue,
		); err != nil {
			return nil, wrapDBError("scan task", err)
		}
		t.AssigneeGID = assignee.String
		t.ParentGID = parent.String
		out = append(out, t)
	}
	return out, wrapDBError("iterate tasks touched in period", rows.Err())
}

// StatusUpdatesInPeriod returns status updates for projectGID and/or
// portfolioGID (either may be empty) posted within [start, end], used by
// the summary cache's project/portfolio evidence set (spec.md §4.10).
func (s *Store) StatusUpdatesInPeriod(ctx context.Context, projectGID, portfolioGID string, start, end string) ([]StatusUpdate, error) {
	rows, err := s.reader().QueryContext(ctx, `
		SELECT gid, project_gid, portfolio_gid, text, status_type, author_gid, created_at
		FROM fact_status_updates
		WHERE (? = '' OR project_gid = ?) AND (? = '' OR portfolio_gid = ?)
			AND date(created_at) BETWEEN ? AND ?
		ORDER BY created_at
	`, projectGID, projectGID, portfolioGID, portfolioGID, start, end)
	if err != nil {
		return nil, wrapDBError("list status updates in period", err)
	}
	defer rows.Close()

	var out []StatusUpdate
	for rows.Next() {
		var u StatusUpdate
		var project, portfolio, author sql.NullString
		if err := rows.Scan(&u.GID, &project, &portfolio, &u.Text, &u.StatusType, &author, &u.CreatedAt); err != nil {
			return nil, wrapDBError("scan status update", err)
		}
		u.ProjectGID, u.PortfolioGID, u.AuthorGID = project.String, portfolio.String, author.String
		out = append(out, u)
	}
	return out, wrapDBError("iterate status updates", rows.Err())
}

// TasksAssignedInPeriod returns every task assigned to userGID created or
// completed within [startKey, endKey], used by the summary cache's user
// evidence set (spec.md §4.10).
func (s *Store) TasksAssignedInPeriod(ctx context.Context, userGID string, startKey, endKey int) ([]Task, error) {
	rows, err := s.reader().QueryContext(ctx, `
		SELECT id, gid, name, notes, assignee_gid, parent_gid, is_subtask, num_subtasks,
			is_completed, created_at, completed_at, due_on,
			created_date_key, completed_date_key, days_to_complete, is_overdue
		FROM fact_tasks
		WHERE assignee_gid = ?
			AND (created_date_key BETWEEN ? AND ? OR completed_date_key BETWEEN ? AND ?)
		ORDER BY created_date_key
	`, userGID, startKey, endKey, startKey, endKey)
	if err != nil {
		return nil, wrapDBError("list tasks assigned in period", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		var t Task
		var assignee, parent sql.NullString
		if err := rows.Scan(
			&t.ID, &t.GID, &t.Name, &t.Notes, &assignee, &parent, &t.IsSubtask, &t.NumSubtasks,
			&t.IsCompleted, &t.CreatedAt, &t.CompletedAt, &t.DueOn,
			&t.CreatedDateKey, &t.CompletedDateKey, &t.DaysToComplete, &t.IsOverdue,
		); err != nil {
			return nil, wrapDBError("scan task", err)
		}
		t.AssigneeGID = assignee.String
		t.ParentGID = parent.String
		out = append(out, t)
	}
	return out, wrapDBError("iterate tasks assigned in period", rows.Err())
}

// TeamMemberGIDs returns every user gid belonging to teamGID.
func (s *Store) TeamMemberGIDs(ctx context.Context, teamGID string) ([]string, error) {
	rows, err := s.reader().QueryContext(ctx, `SELECT user_gid FROM bridge_team_members WHERE team_gid = ?`, teamGID)
	if err != nil {
		return nil, wrapDBErrorf(err, "list team members for %s", teamGID)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var gid string
		if err := rows.Scan(&gid); err != nil {
			return nil, wrapDBError("scan team member gid", err)
		}
		out = append(out, gid)
	}
	return out, wrapDBError("iterate team members", rows.Err())
}
