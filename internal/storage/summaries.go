package storage

import (
	"context"
	"database/sql"
	"time"
)

// Summary is one cached LLM-generated summary row, shared across all five
// *_summaries tables (spec.md §4.10 "upsert keyed by (entity, period_key)
// or task_gid").
type Summary struct {
	EntityGID     string
	PeriodKey     string
	PromptVersion string
	Text          string
	GeneratedAt   time.Time
}

// GetTaskSummary returns the cached summary for taskGID/periodKey/promptVersion,
// or ok=false if absent (spec.md §4.10 "otherwise an existing row ... is
// returned directly").
func (s *Store) GetTaskSummary(ctx context.Context, taskGID, periodKey, promptVersion string) (Summary, bool, error) {
	return s.getSummary(ctx, "fact_task_summaries", "task_gid", taskGID, periodKey, promptVersion)
}

// UpsertTaskSummary persists a generated task summary.
func (s *Store) UpsertTaskSummary(ctx context.Context, sum Summary) error {
	return s.upsertSummary(ctx, "fact_task_summaries", "task_gid", sum)
}

// GetProjectSummary returns the cached summary for a project/period/prompt version.
func (s *Store) GetProjectSummary(ctx context.Context, projectGID, periodKey, promptVersion string) (Summary, bool, error) {
	return s.getSummary(ctx, "fact_project_summaries", "project_gid", projectGID, periodKey, promptVersion)
}

// UpsertProjectSummary persists a generated project summary.
func (s *Store) UpsertProjectSummary(ctx context.Context, sum Summary) error {
	return s.upsertSummary(ctx, "fact_project_summaries", "project_gid", sum)
}

// GetPortfolioSummary returns the cached summary for a portfolio/period/prompt version.
func (s *Store) GetPortfolioSummary(ctx context.Context, portfolioGID, periodKey, promptVersion string) (Summary, bool, error) {
	return s.getSummary(ctx, "fact_portfolio_summaries", "portfolio_gid", portfolioGID, periodKey, promptVersion)
}

// UpsertPortfolioSummary persists a generated portfolio summary.
func (s *Store) UpsertPortfolioSummary(ctx context.Context, sum Summary) error {
	return s.upsertSummary(ctx, "fact_portfolio_summaries", "portfolio_gid", sum)
}

// GetTeamSummary returns the cached summary for a team/period/prompt version.
func (s *Store) GetTeamSummary(ctx context.Context, teamGID, periodKey, promptVersion string) (Summary, bool, error) {
	return s.getSummary(ctx, "fact_team_summaries", "team_gid", teamGID, periodKey, promptVersion)
}

// UpsertTeamSummary persists a generated team summary.
func (s *Store) UpsertTeamSummary(ctx context.Context, sum Summary) error {
	return s.upsertSummary(ctx, "fact_team_summaries", "team_gid", sum)
}

// GetUserSummary returns the cached summary for a user/period/prompt version.
func (s *Store) GetUserSummary(ctx context.Context, userGID, periodKey, promptVersion string) (Summary, bool, error) {
	return s.getSummary(ctx, "fact_user_summaries", "user_gid", userGID, periodKey, promptVersion)
}

// UpsertUserSummary persists a generated user summary.
func (s *Store) UpsertUserSummary(ctx context.Context, sum Summary) error {
	return s.upsertSummary(ctx, "fact_user_summaries", "user_gid", sum)
}

// getSummary and upsertSummary are shared by the five typed wrappers above:
// every *_summaries table has the identical shape (entity column, period_key,
// prompt_version, summary, generated_at), differing only in the entity
// column's name.
func (s *Store) getSummary(ctx context.Context, table, entityCol, entityGID, periodKey, promptVersion string) (Summary, bool, error) {
	sum := Summary{EntityGID: entityGID, PeriodKey: periodKey, PromptVersion: promptVersion}
	err := s.reader().QueryRowContext(ctx, `
		SELECT summary, generated_at FROM `+table+`
		WHERE `+entityCol+` = ? AND period_key = ? AND prompt_version = ?
	`, entityGID, periodKey, promptVersion).Scan(&sum.Text, &sum.GeneratedAt)
	if err == sql.ErrNoRows {
		return Summary{}, false, nil
	}
	if err != nil {
		return Summary{}, false, wrapDBErrorf(err, "get %s summary for %s", table, entityGID)
	}
	return sum, true, nil
}

func (s *Store) upsertSummary(ctx context.Context, table, entityCol string, sum Summary) error {
	_, err := s.writer.ExecContext(ctx, `
		INSERT INTO `+table+` (`+entityCol+`, period_key, prompt_version, summary, generated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(`+entityCol+`, period_key, prompt_version) DO UPDATE SET
			summary = excluded.summary, generated_at = excluded.generated_at
	`, sum.EntityGID, sum.PeriodKey, sum.PromptVersion, sum.Text, sum.GeneratedAt)
	return wrapDBErrorf(err, "upsert %s summary for %s", table, sum.EntityGID)
}
