package storage

import (
	"context"
	"database/sql"
)

// ReplaceTaskProjects replaces every bridge_task_projects row for taskGID
// with memberships, inside the caller's transaction. Bridge collections use
// delete-then-insert rather than a diff (spec.md §3 "replace-cascade
// upsert") because Asana's API returns each task's full membership list on
// every sync, so there is nothing to diff against.
func ReplaceTaskProjects(ctx context.Context, tx *sql.Tx, taskGID string, memberships []TaskProjectMembership) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM bridge_task_projects WHERE task_gid = ?`, taskGID); err != nil {
		return wrapDBErrorf(err, "clear task projects for %s", taskGID)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bridge_task_projects (task_gid, project_gid, section_gid) VALUES (?, ?, ?)
	`)
	if err != nil {
		return wrapDBErrorf(err, "prepare task project insert for %s", taskGID)
	}
	defer stmt.Close()

	for _, m := range memberships {
		if _, err := stmt.ExecContext(ctx, taskGID, m.ProjectGID, nullString(m.SectionGID)); err != nil {
			return wrapDBErrorf(err, "insert task project %s/%s", taskGID, m.ProjectGID)
		}
	}
	return nil
}

// ReplaceTaskTags replaces every bridge_task_tags row for taskGID.
func ReplaceTaskTags(ctx context.Context, tx *sql.Tx, taskGID string, tagGIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM bridge_task_tags WHERE task_gid = ?`, taskGID); err != nil {
		return wrapDBErrorf(err, "clear task tags for %s", taskGID)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO bridge_task_tags (task_gid, tag_gid) VALUES (?, ?)`)
	if err != nil {
		return wrapDBErrorf(err, "prepare task tag insert for %s", taskGID)
	}
	defer stmt.Close()

	for _, tagGID := range tagGIDs {
		if _, err := stmt.ExecContext(ctx, taskGID, tagGID); err != nil {
			return wrapDBErrorf(err, "insert task tag %s/%s", taskGID, tagGID)
		}
	}
	return nil
}

// ReplaceTaskDependencies replaces every bridge_task_dependencies row where
// task_gid = taskGID.
func ReplaceTaskDependencies(ctx context.Context, tx *sql.Tx, taskGID string, dependsOnGIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM bridge_task_dependencies WHERE task_gid = ?`, taskGID); err != nil {
		return wrapDBErrorf(err, "clear task dependencies for %s", taskGID)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO bridge_task_dependencies (task_gid, depends_on_gid) VALUES (?, ?)`)
	if err != nil {
		return wrapDBErrorf(err, "prepare dependency insert for %s", taskGID)
	}
	defer stmt.Close()

	for _, dep := range dependsOnGIDs {
		if _, err := stmt.ExecContext(ctx, taskGID, dep); err != nil {
			return wrapDBErrorf(err, "insert dependency %s/%s", taskGID, dep)
		}
	}
	return nil
}

// ReplaceTaskFollowers replaces every bridge_task_followers row for taskGID.
func ReplaceTaskFollowers(ctx context.Context, tx *sql.Tx, taskGID string, followerGIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM bridge_task_followers WHERE task_gid = ?`, taskGID); err != nil {
		return wrapDBErrorf(err, "clear task followers for %s", taskGID)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO bridge_task_followers (task_gid, user_gid) VALUES (?, ?)`)
	if err != nil {
		return wrapDBErrorf(err, "prepare follower insert for %s", taskGID)
	}
	defer stmt.Close()

	for _, userGID := range followerGIDs {
		if _, err := stmt.ExecContext(ctx, taskGID, userGID); err != nil {
			return wrapDBErrorf(err, "insert follower %s/%s", taskGID, userGID)
		}
	}
	return nil
}

// ReplaceTaskMultiEnumValues replaces every bridge_task_multi_enum_values row
// for the given task/custom-field pair.
func ReplaceTaskMultiEnumValues(ctx context.Context, tx *sql.Tx, taskGID, customFieldGID string, enumValueGIDs []string) error {
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM bridge_task_multi_enum_values WHERE task_gid = ? AND custom_field_gid = ?
	`, taskGID, customFieldGID); err != nil {
		return wrapDBErrorf(err, "clear multi-enum values for %s/%s", taskGID, customFieldGID)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bridge_task_multi_enum_values (task_gid, custom_field_gid, enum_value_gid) VALUES (?, ?, ?)
	`)
	if err != nil {
		return wrapDBErrorf(err, "prepare multi-enum insert for %s/%s", taskGID, customFieldGID)
	}
	defer stmt.Close()

	for _, v := range enumValueGIDs {
		if _, err := stmt.ExecContext(ctx, taskGID, customFieldGID, v); err != nil {
			return wrapDBErrorf(err, "insert multi-enum value %s/%s/%s", taskGID, customFieldGID, v)
		}
	}
	return nil
}

// ReplacePortfolioProjects replaces every bridge_portfolio_projects row for
// portfolioGID.
func ReplacePortfolioProjects(ctx context.Context, tx *sql.Tx, portfolioGID string, projectGIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM bridge_portfolio_projects WHERE portfolio_gid = ?`, portfolioGID); err != nil {
		return wrapDBErrorf(err, "clear portfolio projects for %s", portfolioGID)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO bridge_portfolio_projects (portfolio_gid, project_gid) VALUES (?, ?)`)
	if err != nil {
		return wrapDBErrorf(err, "prepare portfolio project insert for %s", portfolioGID)
	}
	defer stmt.Close()

	for _, p := range projectGIDs {
		if _, err := stmt.ExecContext(ctx, portfolioGID, p); err != nil {
			return wrapDBErrorf(err, "insert portfolio project %s/%s", portfolioGID, p)
		}
	}
	return nil
}

// ReplacePortfolioChildren replaces every bridge_portfolio_portfolios row
// where parent_portfolio_gid = portfolioGID (nested portfolios).
func ReplacePortfolioChildren(ctx context.Context, tx *sql.Tx, portfolioGID string, childGIDs []string) error {
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM bridge_portfolio_portfolios WHERE parent_portfolio_gid = ?
	`, portfolioGID); err != nil {
		return wrapDBErrorf(err, "clear portfolio children for %s", portfolioGID)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bridge_portfolio_portfolios (parent_portfolio_gid, child_portfolio_gid) VALUES (?, ?)
	`)
	if err != nil {
		return wrapDBErrorf(err, "prepare portfolio child insert for %s", portfolioGID)
	}
	defer stmt.Close()

	for _, c := range childGIDs {
		if _, err := stmt.ExecContext(ctx, portfolioGID, c); err != nil {
			return wrapDBErrorf(err, "insert portfolio child %s/%s", portfolioGID, c)
		}
	}
	return nil
}

// ReplaceTeamMembers replaces every bridge_team_members row for teamGID.
func ReplaceTeamMembers(ctx context.Context, tx *sql.Tx, teamGID string, userGIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM bridge_team_members WHERE team_gid = ?`, teamGID); err != nil {
		return wrapDBErrorf(err, "clear team members for %s", teamGID)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO bridge_team_members (team_gid, user_gid) VALUES (?, ?)`)
	if err != nil {
		return wrapDBErrorf(err, "prepare team member insert for %s", teamGID)
	}
	defer stmt.Close()

	for _, u := range userGIDs {
		if _, err := stmt.ExecContext(ctx, teamGID, u); err != nil {
			return wrapDBErrorf(err, "insert team member %s/%s", teamGID, u)
		}
	}
	return nil
}
