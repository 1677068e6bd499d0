package sync

import (
	"context"
	"database/sql"

	"github.com/adlio/asanadw/internal/asana"
	"github.com/adlio/asanadw/internal/storage"
)

// dimensionCache memoizes live dimension fetches so the same
// project/team/user gid is round-tripped to Client at most once per cache
// (spec.md §4.5 step (d) "dimension upserts"). Each batch and each priming
// or status-update pass builds its own cache, so a later batch of the same
// sync call can fetch a gid again.
type dimensionCache struct {
	projects map[string]bool
	teams    map[string]bool
	users    map[string]bool
}

func newDimensionCache() *dimensionCache {
	return &dimensionCache{projects: map[string]bool{}, teams: map[string]bool{}, users: map[string]bool{}}
}

// hydrateDimensions upserts every dimension row a batch of tasks (and their
// comments) reference, before any fact_tasks row referencing them is
// written. Asana's task payload only ever embeds a compact {gid, name}
// record for users, tags, and a membership's project/section, so those
// dimensions are upserted straight from the embed; a project's full row
// (created_at, archived, team_gid) isn't part of that compact embed, so
// hydrateProject fetches it live the first time a gid is seen.
func (e *Engine) hydrateDimensions(ctx context.Context, tasks []asana.Task, comments map[string][]asana.Comment, cache *dimensionCache) error {
	for _, t := range tasks {
		if err := e.hydrateUser(ctx, t.AssigneeGID, t.AssigneeName, cache); err != nil {
			return err
		}
		for _, f := range t.Followers {
			if err := e.hydrateUser(ctx, f.GID, f.Name, cache); err != nil {
				return err
			}
		}
		for _, tag := range t.Tags {
			if err := e.Store.UpsertTag(ctx, storage.Tag{GID: tag.GID, Name: tag.Name}); err != nil {
				return err
			}
		}
		for _, m := range t.Memberships {
			if err := e.hydrateProject(ctx, m.ProjectGID, cache); err != nil {
				return err
			}
			if m.SectionGID != "" {
				if err := e.Store.UpsertSection(ctx, storage.Section{GID: m.SectionGID, ProjectGID: m.ProjectGID, Name: m.SectionName}); err != nil {
					return err
				}
			}
		}
		for _, cf := range t.CustomFields {
			if err := e.hydrateCustomField(ctx, cf); err != nil {
				return err
			}
		}
		for _, c := range comments[t.GID] {
			if err := e.hydrateUser(ctx, c.AuthorGID, c.AuthorName, cache); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) hydrateUser(ctx context.Context, gid, name string, cache *dimensionCache) error {
	if gid == "" || cache.users[gid] {
		return nil
	}
	cache.users[gid] = true
	if name != "" {
		return e.Store.UpsertUser(ctx, storage.User{GID: gid, Name: name})
	}
	var u asana.User
	if err := e.Governor.Do(ctx, func(ctx context.Context) error {
		var err error
		u, err = e.Client.GetUser(ctx, gid)
		return err
	}); err != nil {
		return err
	}
	return e.Store.UpsertUser(ctx, storage.User{GID: u.GID, Name: u.Name, Email: u.Email})
}

func (e *Engine) hydrateProject(ctx context.Context, gid string, cache *dimensionCache) error {
	if gid == "" || cache.projects[gid] {
		return nil
	}
	cache.projects[gid] = true

	var p asana.Project
	if err := e.Governor.Do(ctx, func(ctx context.Context) error {
		var err error
		p, err = e.Client.GetProject(ctx, gid)
		return err
	}); err != nil {
		return err
	}
	if p.TeamGID != "" {
		if err := e.hydrateTeamDim(ctx, p.TeamGID, cache); err != nil {
			return err
		}
	}
	return e.Store.UpsertProject(ctx, storage.Project{
		GID: p.GID, Name: p.Name, Notes: p.Notes, TeamGID: p.TeamGID, Archived: p.Archived, CreatedAt: p.CreatedAt,
	})
}

// hydrateTeamDim upserts just the dim_teams row for gid — the narrower
// counterpart to primeTeam, which additionally syncs a team's member and
// project bridges when the team itself is the sync scope.
func (e *Engine) hydrateTeamDim(ctx context.Context, gid string, cache *dimensionCache) error {
	if gid == "" || cache.teams[gid] {
		return nil
	}
	cache.teams[gid] = true

	var t asana.Team
	if err := e.Governor.Do(ctx, func(ctx context.Context) error {
		var err error
		t, err = e.Client.GetTeam(ctx, gid)
		return err
	}); err != nil {
		return err
	}
	return e.Store.UpsertTeam(ctx, storage.Team{GID: t.GID, Name: t.Name})
}

func (e *Engine) hydrateCustomField(ctx context.Context, cf asana.CustomFieldValue) error {
	if err := e.Store.UpsertCustomFieldDef(ctx, storage.CustomFieldDef{GID: cf.CustomFieldGID, Name: cf.CustomFieldName, Type: string(cf.Type)}); err != nil {
		return err
	}
	switch cf.Type {
	case asana.CustomFieldEnum:
		if cf.EnumValueGID != "" {
			return e.Store.UpsertEnumOption(ctx, storage.EnumOption{
				GID: cf.EnumValueGID, CustomFieldGID: cf.CustomFieldGID, Name: cf.EnumValueName, Color: cf.EnumValueColor,
			})
		}
	case asana.CustomFieldMultiEnum:
		for _, o := range cf.MultiEnumValues {
			if err := e.Store.UpsertEnumOption(ctx, storage.EnumOption{
				GID: o.GID, CustomFieldGID: cf.CustomFieldGID, Name: o.Name, Color: o.Color,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// primeScopeDimensions resolves and upserts the dimension row for the
// entity a sync is rooted at, plus that entity's structural bridges (team
// membership/projects, portfolio project/child-portfolio recursion) that a
// task payload alone would never reveal — e.g. an empty team has no tasks
// to carry a membership embed, but its member list still needs syncing
// (spec.md §4.5 "Team → members+projects+tasks").
func (e *Engine) primeScopeDimensions(ctx context.Context, scope asana.Scope) error {
	switch scope.Kind {
	case asana.KindUser:
		return e.hydrateUser(ctx, scope.UserGID, "", newDimensionCache())
	case asana.KindTeam:
		return e.primeTeam(ctx, scope.TeamGID)
	case asana.KindPortfolio:
		return e.primePortfolio(ctx, scope.PortfolioGID, 1, map[string]bool{})
	case asana.KindProject:
		return e.hydrateProject(ctx, scope.ProjectGID, newDimensionCache())
	}
	return nil
}

func (e *Engine) primeTeam(ctx context.Context, teamGID string) error {
	var team asana.Team
	if err := e.Governor.Do(ctx, func(ctx context.Context) error {
		var err error
		team, err = e.Client.GetTeam(ctx, teamGID)
		return err
	}); err != nil {
		return err
	}
	if err := e.Store.UpsertTeam(ctx, storage.Team{GID: team.GID, Name: team.Name}); err != nil {
		return err
	}

	cache := newDimensionCache()
	cache.teams[teamGID] = true
	for _, pGID := range team.ProjectGIDs {
		if err := e.hydrateProject(ctx, pGID, cache); err != nil {
			return err
		}
	}
	for _, uGID := range team.MemberGIDs {
		if err := e.hydrateUser(ctx, uGID, "", cache); err != nil {
			return err
		}
	}

	return e.Store.WithTx(ctx, func(tx *sql.Tx) error {
		return storage.ReplaceTeamMembers(ctx, tx, teamGID, team.MemberGIDs)
	})
}

// portfolioSyncMaxDepth mirrors metrics.maxPortfolioDepth (spec.md §4.5/§4.9
// "recursive ≤6"): the write-path recursion here and the read-path rollup
// in internal/metrics both cap at the same bound independently, since
// neither package depends on the other.
const portfolioSyncMaxDepth = 6

func (e *Engine) primePortfolio(ctx context.Context, portfolioGID string, depth int, visited map[string]bool) error {
	if depth > portfolioSyncMaxDepth || visited[portfolioGID] {
		return nil
	}
	visited[portfolioGID] = true

	var p asana.Portfolio
	if err := e.Governor.Do(ctx, func(ctx context.Context) error {
		var err error
		p, err = e.Client.GetPortfolio(ctx, portfolioGID)
		return err
	}); err != nil {
		return err
	}

	cache := newDimensionCache()
	if p.OwnerGID != "" {
		if err := e.hydrateUser(ctx, p.OwnerGID, "", cache); err != nil {
			return err
		}
	}
	if err := e.Store.UpsertPortfolio(ctx, storage.Portfolio{GID: p.GID, Name: p.Name, OwnerGID: p.OwnerGID, CreatedAt: p.CreatedAt}); err != nil {
		return err
	}

	for _, pGID := range p.ProjectGIDs {
		if err := e.hydrateProject(ctx, pGID, cache); err != nil {
			return err
		}
	}
	if err := e.Store.WithTx(ctx, func(tx *sql.Tx) error {
		return storage.ReplacePortfolioProjects(ctx, tx, portfolioGID, p.ProjectGIDs)
	}); err != nil {
		return err
	}
	if err := e.Store.WithTx(ctx, func(tx *sql.Tx) error {
		return storage.ReplacePortfolioChildren(ctx, tx, portfolioGID, p.ChildGIDs)
	}); err != nil {
		return err
	}

	for _, child := range p.ChildGIDs {
		if err := e.primePortfolio(ctx, child, depth+1, visited); err != nil {
			return err
		}
	}
	return nil
}

// ingestStatusUpdates pulls every status update for scope and upserts it
// (spec.md §4.5 step (f)); only projects and portfolios carry status
// updates, so every other scope kind is a no-op.
func (e *Engine) ingestStatusUpdates(ctx context.Context, scope asana.Scope) (int, error) {
	if scope.Kind != asana.KindProject && scope.Kind != asana.KindPortfolio {
		return 0, nil
	}

	cache := newDimensionCache()
	cursor := ""
	count := 0
	for {
		var page asana.Page[asana.StatusUpdate]
		if err := e.Governor.Do(ctx, func(ctx context.Context) error {
			p, err := e.Client.ListStatusUpdates(ctx, scope, cursor)
			if err != nil {
				return err
			}
			page = p
			return nil
		}); err != nil {
			return count, err
		}
		for _, u := range page.Items {
			if err := e.hydrateUser(ctx, u.AuthorGID, u.AuthorName, cache); err != nil {
				return count, err
			}
			if err := e.Store.UpsertStatusUpdate(ctx, storage.StatusUpdate{
				GID: u.GID, ProjectGID: u.ProjectGID, PortfolioGID: u.PortfolioGID,
				Text: u.Text, StatusType: u.StatusType, AuthorGID: u.AuthorGID, CreatedAt: u.CreatedAt,
			}); err != nil {
				return count, err
			}
			count++
		}
		if page.NextOffset == "" {
			break
		}
		cursor = page.NextOffset
	}
	return count, nil
}
