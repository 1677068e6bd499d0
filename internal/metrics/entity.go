package metrics

import (
	"context"

	"github.com/adlio/asanadw/internal/calendar"
	"github.com/adlio/asanadw/internal/storage"
)

// ProjectHealth computes spec.md §4.9's health aggregate for one project,
// including status updates posted directly against it.
func ProjectHealth(ctx context.Context, store *storage.Store, projectGID string, period calendar.Period) (Health, error) {
	return ComputeHealth(ctx, store, []string{projectGID}, "project_gid = ?", []any{projectGID}, period)
}

// PortfolioHealth computes spec.md §4.9's health aggregate for a portfolio,
// scoped to every project nested under it (recursive ≤6) plus status
// updates posted directly against the portfolio itself.
func PortfolioHealth(ctx context.Context, store *storage.Store, portfolioGID string, period calendar.Period) (Health, error) {
	projectGIDs, err := ProjectGIDsForPortfolio(ctx, store, portfolioGID)
	if err != nil {
		return Health{}, err
	}
	return ComputeHealth(ctx, store, projectGIDs, "portfolio_gid = ?", []any{portfolioGID}, period)
}

// TeamHealth computes spec.md §4.9's health aggregate for a team, scoped to
// its owned projects; teams have no status updates of their own in the
// schema, so the status-update count/latest-status rolls up from those
// projects.
func TeamHealth(ctx context.Context, store *storage.Store, teamGID string, period calendar.Period) (Health, error) {
	projectGIDs, err := ProjectGIDsForTeam(ctx, store, teamGID)
	if err != nil {
		return Health{}, err
	}
	if len(projectGIDs) == 0 {
		return ComputeHealth(ctx, store, nil, "", nil, period)
	}
	args := make([]any, len(projectGIDs))
	for i, g := range projectGIDs {
		args[i] = g
	}
	return ComputeHealth(ctx, store, projectGIDs, "project_gid IN ("+placeholders(len(projectGIDs))+")", args, period)
}

// TeamMemberBreakdown computes spec.md §4.9's "per-member breakdown" for
// team throughput: one Throughput per member, keyed by user gid.
func TeamMemberBreakdown(ctx context.Context, store *storage.Store, teamGID string, period calendar.Period) (map[string]Throughput, error) {
	members, err := store.TeamMemberGIDs(ctx, teamGID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Throughput, len(members))
	for _, userGID := range members {
		t, err := ComputeThroughput(ctx, store, ForUser(userGID), period)
		if err != nil {
			return nil, err
		}
		out[userGID] = t
	}
	return out, nil
}
