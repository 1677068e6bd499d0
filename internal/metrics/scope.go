// Package metrics computes throughput, health, lead-time, and
// collaboration aggregates per entity and period (spec.md §4.9).
package metrics

import (
	"context"

	"github.com/adlio/asanadw/internal/storage"
)

const maxPortfolioDepth = 6

// ProjectGIDsForPortfolio unions the portfolio's direct projects with every
// nested child portfolio's projects, recursing at most maxPortfolioDepth
// levels and guarding against a cycle revisiting an already-expanded
// portfolio (spec.md §4.9 "recursive ≤6").
func ProjectGIDsForPortfolio(ctx context.Context, store *storage.Store, portfolioGID string) ([]string, error) {
	visited := map[string]bool{}
	return collectPortfolioProjects(ctx, store, portfolioGID, 1, visited)
}

func collectPortfolioProjects(ctx context.Context, store *storage.Store, portfolioGID string, depth int, visited map[string]bool) ([]string, error) {
	if depth > maxPortfolioDepth || visited[portfolioGID] {
		return nil, nil
	}
	visited[portfolioGID] = true

	projects, err := store.PortfolioProjectGIDs(ctx, portfolioGID)
	if err != nil {
		return nil, err
	}
	children, err := store.PortfolioChildGIDs(ctx, portfolioGID)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		sub, err := collectPortfolioProjects(ctx, store, child, depth+1, visited)
		if err != nil {
			return nil, err
		}
		projects = append(projects, sub...)
	}
	return projects, nil
}

// ProjectGIDsForTeam returns the projects owned directly by teamGID
// (spec.md §4.9 "Team metrics: ... projects in dim_projects.team_gid").
func ProjectGIDsForTeam(ctx context.Context, store *storage.Store, teamGID string) ([]string, error) {
	return store.TeamProjectGIDs(ctx, teamGID)
}
