// Package search implements the cross-surface full-text search (spec.md
// §4.7): a free-form query is normalized into an FTS5 MATCH expression and
// run against the subset of {tasks_fts, comments_fts, projects_fts,
// portfolios_fts, custom_fields_fts} the caller selects, then merged by
// rank.
package search

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/adlio/asanadw/internal/errs"
	"github.com/adlio/asanadw/internal/storage"
)

const defaultLimit = 50

// EntityType names one of the five searchable surfaces.
type EntityType string

const (
	EntityTask         EntityType = "task"
	EntityComment      EntityType = "comment"
	EntityProject      EntityType = "project"
	EntityPortfolio    EntityType = "portfolio"
	EntityCustomField  EntityType = "custom_field"
)

var allEntityTypes = []EntityType{EntityTask, EntityComment, EntityProject, EntityPortfolio, EntityCustomField}

// Options narrows a search (spec.md §4.7 "SearchOptions").
type Options struct {
	EntityTypes []EntityType // empty means all five surfaces
	AssigneeGID string       // narrows task/comment/custom_field results
	ProjectGID  string       // narrows task/comment/project/custom_field results
	Limit       int          // default 50
}

// Result is one matched row, carrying enough metadata to reconstruct a
// reference back to the source entity without a second round trip.
type Result struct {
	EntityType EntityType
	GID        string // task/comment/project/portfolio gid (task gid for custom_field hits)
	TaskGID    string // set for comment and custom_field hits
	Title      string
	Snippet    string
	Rank       float64
}

var ftsSpecial = regexp.MustCompile(`["():^*-]`)

// normalizeQuery turns bareword multi-word input into a valid FTS5 MATCH
// expression. Plain words pass through untouched (FTS5 ANDs bareword terms
// by default); a token containing a character FTS5 treats specially (phrase
// quotes, column filter, prefix/NOT operators, parens) instead gets the
// whole query folded into one escaped phrase, since partially-special input
// would otherwise throw an FTS5 syntax error rather than degrade gracefully.
func normalizeQuery(raw string) string {
	tokens := strings.Fields(raw)
	for _, t := range tokens {
		if ftsSpecial.MatchString(t) {
			escaped := strings.ReplaceAll(raw, `"`, `""`)
			return `"` + escaped + `"`
		}
	}
	return strings.Join(tokens, " ")
}

// Search runs query against the selected surfaces and returns results
// merged by rank ascending (FTS5's bm25-derived rank: more negative is more
// relevant), truncated to opts.Limit.
func Search(ctx context.Context, store *storage.Store, query string, opts Options) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	types := opts.EntityTypes
	if len(types) == 0 {
		types = allEntityTypes
	}
	matchExpr := normalizeQuery(query)

	var all []Result
	for _, et := range types {
		var (
			res []Result
			err error
		)
		switch et {
		case EntityTask:
			res, err = searchTasks(ctx, store, matchExpr, opts)
		case EntityComment:
			res, err = searchComments(ctx, store, matchExpr, opts)
		case EntityProject:
			res, err = searchProjects(ctx, store, matchExpr, opts)
		case EntityPortfolio:
			res, err = searchPortfolios(ctx, store, matchExpr)
		case EntityCustomField:
			res, err = searchCustomFields(ctx, store, matchExpr, opts)
		}
		if err != nil {
			return nil, err
		}
		all = append(all, res...)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Rank < all[j].Rank })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func searchTasks(ctx context.Context, store *storage.Store, matchExpr string, opts Options) ([]Result, error) {
	q := `
		SELECT fact_tasks.gid, fact_tasks.name,
			snippet(tasks_fts, -1, '**', '**', '...', 10), tasks_fts.rank
		FROM tasks_fts
		JOIN fact_tasks ON fact_tasks.id = tasks_fts.rowid
	`
	var joins []string
	args := []any{matchExpr}
	where := []string{"tasks_fts MATCH ?"}
	if opts.AssigneeGID != "" {
		where = append(where, "fact_tasks.assignee_gid = ?")
		args = append(args, opts.AssigneeGID)
	}
	if opts.ProjectGID != "" {
		joins = append(joins, "JOIN bridge_task_projects btp ON btp.task_gid = fact_tasks.gid")
		where = append(where, "btp.project_gid = ?")
		args = append(args, opts.ProjectGID)
	}
	q += strings.Join(joins, " ") + " WHERE " + strings.Join(where, " AND ") + " ORDER BY tasks_fts.rank"

	rows, err := store.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		r.EntityType = EntityTask
		if err := rows.Scan(&r.GID, &r.Title, &r.Snippet, &r.Rank); err != nil {
			return nil, errs.Wrap(errs.KindDatabase, "scan task search row", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func searchComments(ctx context.Context, store *storage.Store, matchExpr string, opts Options) ([]Result, error) {
	q := `
		SELECT fact_comments.gid, fact_comments.task_gid, fact_tasks.name,
			snippet(comments_fts, -1, '**', '**', '...', 10), comments_fts.rank
		FROM comments_fts
		JOIN fact_comments ON fact_comments.id = comments_fts.rowid
		JOIN fact_tasks ON fact_tasks.gid = fact_comments.task_gid
	`
	var joins []string
	args := []any{matchExpr}
	where := []string{"comments_fts MATCH ?"}
	if opts.AssigneeGID != "" {
		where = append(where, "fact_tasks.assignee_gid = ?")
		args = append(args, opts.AssigneeGID)
	}
	if opts.ProjectGID != "" {
		joins = append(joins, "JOIN bridge_task_projects btp ON btp.task_gid = fact_tasks.gid")
		where = append(where, "btp.project_gid = ?")
		args = append(args, opts.ProjectGID)
	}
	q += strings.Join(joins, " ") + " WHERE " + strings.Join(where, " AND ") + " ORDER BY comments_fts.rank"

	rows, err := store.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		r.EntityType = EntityComment
		if err := rows.Scan(&r.GID, &r.TaskGID, &r.Title, &r.Snippet, &r.Rank); err != nil {
			return nil, errs.Wrap(errs.KindDatabase, "scan comment search row", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func searchProjects(ctx context.Context, store *storage.Store, matchExpr string, opts Options) ([]Result, error) {
	args := []any{matchExpr}
	where := "projects_fts MATCH ?"
	if opts.ProjectGID != "" {
		where += " AND dim_projects.gid = ?"
		args = append(args, opts.ProjectGID)
	}
	q := `
		SELECT dim_projects.gid, dim_projects.name,
			snippet(projects_fts, -1, '**', '**', '...', 10), projects_fts.rank
		FROM projects_fts
		JOIN dim_projects ON dim_projects.id = projects_fts.rowid
		WHERE ` + where + ` ORDER BY projects_fts.rank`

	rows, err := store.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		r.EntityType = EntityProject
		if err := rows.Scan(&r.GID, &r.Title, &r.Snippet, &r.Rank); err != nil {
			return nil, errs.Wrap(errs.KindDatabase, "scan project search row", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func searchPortfolios(ctx context.Context, store *storage.Store, matchExpr string) ([]Result, error) {
	q := `
		SELECT portfolio_gid, snippet(portfolios_fts, -1, '**', '**', '...', 10), rank
		FROM portfolios_fts WHERE portfolios_fts MATCH ? ORDER BY rank
	`
	rows, err := store.Query(ctx, q, matchExpr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		r.EntityType = EntityPortfolio
		if err := rows.Scan(&r.GID, &r.Snippet, &r.Rank); err != nil {
			return nil, errs.Wrap(errs.KindDatabase, "scan portfolio search row", err)
		}
		r.Title = r.GID
		out = append(out, r)
	}
	return out, rows.Err()
}

func searchCustomFields(ctx context.Context, store *storage.Store, matchExpr string, opts Options) ([]Result, error) {
	args := []any{matchExpr}
	where := []string{"custom_fields_fts MATCH ?"}
	var joins []string
	if opts.AssigneeGID != "" {
		where = append(where, "fact_tasks.assignee_gid = ?")
		args = append(args, opts.AssigneeGID)
	}
	if opts.ProjectGID != "" {
		joins = append(joins, "JOIN bridge_task_projects btp ON btp.task_gid = custom_fields_fts.task_gid")
		where = append(where, "btp.project_gid = ?")
		args = append(args, opts.ProjectGID)
	}
	q := `
		SELECT custom_fields_fts.task_gid, fact_tasks.name,
			snippet(custom_fields_fts, -1, '**', '**', '...', 10), custom_fields_fts.rank
		FROM custom_fields_fts
		JOIN fact_tasks ON fact_tasks.gid = custom_fields_fts.task_gid
	` + strings.Join(joins, " ") + " WHERE " + strings.Join(where, " AND ") + " ORDER BY custom_fields_fts.rank"

	rows, err := store.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		r.EntityType = EntityCustomField
		if err := rows.Scan(&r.TaskGID, &r.Title, &r.Snippet, &r.Rank); err != nil {
			return nil, errs.Wrap(errs.KindDatabase, "scan custom field search row", err)
		}
		r.GID = r.TaskGID
		out = append(out, r)
	}
	return out, rows.Err()
}
