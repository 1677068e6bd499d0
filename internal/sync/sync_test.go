package sync

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adlio/asanadw/internal/asana"
	"github.com/adlio/asanadw/internal/storage"
)

// fakeClient implements asana.Client entirely in memory for sync tests.
type fakeClient struct {
	tasks    []asana.Task
	comments map[string][]asana.Comment
	events   asana.EventsDelta
}

func (f *fakeClient) GetUser(ctx context.Context, gid string) (asana.User, error) { return asana.User{GID: gid}, nil }
func (f *fakeClient) GetTeam(ctx context.Context, gid string) (asana.Team, error) { return asana.Team{GID: gid}, nil }
func (f *fakeClient) GetProject(ctx context.Context, gid string) (asana.Project, error) {
	return asana.Project{GID: gid}, nil
}
func (f *fakeClient) GetPortfolio(ctx context.Context, gid string) (asana.Portfolio, error) {
	return asana.Portfolio{GID: gid}, nil
}
func (f *fakeClient) ListTasksModifiedSince(ctx context.Context, scope asana.Scope, since asana.TimeWindow, cursor string) (asana.Page[asana.Task], error) {
	if cursor != "" {
		return asana.Page[asana.Task]{}, nil
	}
	// Tasks carry no modified-at, so CreatedAt stands in for it.
	sinceT, err := time.Parse(time.RFC3339, since.SinceRFC3339)
	if err != nil {
		return asana.Page[asana.Task]{}, err
	}
	var items []asana.Task
	for _, t := range f.tasks {
		if !t.CreatedAt.Before(sinceT) {
			items = append(items, t)
		}
	}
	return asana.Page[asana.Task]{Items: items}, nil
}
func (f *fakeClient) GetTask(ctx context.Context, gid string) (asana.Task, error) {
	for _, t := range f.tasks {
		if t.GID == gid {
			return t, nil
		}
	}
	return asana.Task{}, sql.ErrNoRows
}
func (f *fakeClient) ListCommentsForTask(ctx context.Context, taskGID string, cursor string) (asana.Page[asana.Comment], error) {
	if cursor != "" {
		return asana.Page[asana.Comment]{}, nil
	}
	return asana.Page[asana.Comment]{Items: f.comments[taskGID]}, nil
}
func (f *fakeClient) ListStatusUpdates(ctx context.Context, scope asana.Scope, cursor string) (asana.Page[asana.StatusUpdate], error) {
	return asana.Page[asana.StatusUpdate]{}, nil
}
func (f *fakeClient) Events(ctx context.Context, resourceGID, token string) (asana.EventsDelta, error) {
	return f.events, nil
}

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(context.Background(), t.TempDir()+"/asanadw.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// TestSyncProjectIngestsTasksAndComments exercises a task with a real
// assignee, project/section membership, tag, follower, and enum custom
// field — none of those dimension rows except project p1 are pre-seeded, proving the sync
// engine hydrates them itself rather than relying on a task that avoids
// every foreign key (spec.md §4.5 step (d)).
func TestSyncProjectIngestsTasksAndComments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertProject(ctx, storage.Project{GID: "p1", Name: "Proj", CreatedAt: time.Now()}))

	client := &fakeClient{
		tasks: []asana.Task{
			{
				GID: "t1", Name: "Write tests", CreatedAt: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
				AssigneeGID: "u1", AssigneeName: "Sam",
				Memberships: []asana.Membership{{ProjectGID: "p1", ProjectName: "Proj", SectionGID: "s1", SectionName: "Doing"}},
				Tags:        []asana.Tag{{GID: "tag1", Name: "urgent"}},
				Followers:   []asana.UserRef{{GID: "u2", Name: "Alex"}},
				CustomFields: []asana.CustomFieldValue{
					{
						CustomFieldGID: "cf1", CustomFieldName: "Priority", Type: asana.CustomFieldEnum,
						EnumValueGID: "ev1", EnumValueName: "High", EnumValueColor: "red", DisplayValue: "High",
					},
				},
			},
		},
		comments: map[string][]asana.Comment{
			"t1": {{GID: "c1", TaskGID: "t1", AuthorGID: "u1", AuthorName: "Sam", Text: "lgtm", CreatedAt: time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)}},
		},
	}

	fixedNow := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	eng := NewEngine(store, client, func() time.Time { return fixedNow })

	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	report, err := eng.SyncProject(ctx, "p1", Options{Since: &since})
	require.NoError(t, err)
	assert.Equal(t, "completed", report.Status)
	assert.Equal(t, 1, report.ItemsSynced)
	assert.Equal(t, 0, report.ItemsSkipped)

	task, err := store.GetTaskByGID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Write tests", task.Name)
	assert.Equal(t, "u1", task.AssigneeGID)

	assignee, err := store.GetUserByGID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Sam", assignee.Name)

	projectGIDs, err := store.TaskProjectGIDs(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, projectGIDs)

	var tagCount, followerCount, cfCount int
	require.NoError(t, store.QueryRow(ctx, `SELECT count(*) FROM bridge_task_tags WHERE task_gid = 't1'`).Scan(&tagCount))
	assert.Equal(t, 1, tagCount)
	require.NoError(t, store.QueryRow(ctx, `SELECT count(*) FROM bridge_task_followers WHERE task_gid = 't1'`).Scan(&followerCount))
	assert.Equal(t, 1, followerCount)
	require.NoError(t, store.QueryRow(ctx, `SELECT count(*) FROM fact_task_custom_fields WHERE task_gid = 't1' AND enum_value_gid = 'ev1'`).Scan(&cfCount))
	assert.Equal(t, 1, cfCount)

	ranges, err := store.SyncedRangesFor(ctx, "p1")
	require.NoError(t, err)
	assert.NotEmpty(t, ranges)
}

// TestSyncTeamHydratesProjectsAndMembers proves the team scope traverses and
// persists its member/project bridges even with zero tasks in play (spec.md
// §4.5 "Team → members+projects+tasks").
func TestSyncTeamHydratesProjectsAndMembers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	client := &fakeTeamClient{
		fakeClient: fakeClient{},
		team:       asana.Team{GID: "team1", Name: "Platform", ProjectGIDs: []string{"p9"}, MemberGIDs: []string{"u9"}},
		project:    asana.Project{GID: "p9", Name: "Infra", CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		user:       asana.User{GID: "u9", Name: "Robin", Email: "robin@example.com"},
	}

	fixedNow := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	eng := NewEngine(store, client, func() time.Time { return fixedNow })

	_, err := eng.SyncTeam(ctx, "team1", Options{})
	require.NoError(t, err)

	members, err := store.TeamMemberGIDs(ctx, "team1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u9"}, members)

	project, err := store.GetProjectByGID(ctx, "p9")
	require.NoError(t, err)
	assert.Equal(t, "Infra", project.Name)
}

// fakeTeamClient layers team/project/user fetch responses on top of
// fakeClient for the team-scope traversal test.
type fakeTeamClient struct {
	fakeClient
	team    asana.Team
	project asana.Project
	user    asana.User
}

func (f *fakeTeamClient) GetTeam(ctx context.Context, gid string) (asana.Team, error)    { return f.team, nil }
func (f *fakeTeamClient) GetProject(ctx context.Context, gid string) (asana.Project, error) {
	return f.project, nil
}
func (f *fakeTeamClient) GetUser(ctx context.Context, gid string) (asana.User, error) { return f.user, nil }

// fakePortfolioClient layers portfolio/project fetch responses on top of
// fakeClient for the portfolio-scope recursive traversal test. Portfolio
// "root" nests "child", which in turn lists "root" as its own child — the
// cycle a real Asana account should never produce but primePortfolio must
// still survive (spec.md §4.5 "recursive ≤6, cycle-guarded").
type fakePortfolioClient struct {
	fakeClient
	portfolios map[string]asana.Portfolio
	projects   map[string]asana.Project
}

func (f *fakePortfolioClient) GetPortfolio(ctx context.Context, gid string) (asana.Portfolio, error) {
	return f.portfolios[gid], nil
}
func (f *fakePortfolioClient) GetProject(ctx context.Context, gid string) (asana.Project, error) {
	return f.projects[gid], nil
}

func TestSyncPortfolioRecursesIntoChildrenAndGuardsCycles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	client := &fakePortfolioClient{
		fakeClient: fakeClient{},
		portfolios: map[string]asana.Portfolio{
			"root": {
				GID: "root", Name: "Root", CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
				ProjectGIDs: []string{"p1"}, ChildGIDs: []string{"child"},
			},
			"child": {
				GID: "child", Name: "Child", CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
				ProjectGIDs: []string{"p2"}, ChildGIDs: []string{"root"},
			},
		},
		projects: map[string]asana.Project{
			"p1": {GID: "p1", Name: "Proj One", CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
			"p2": {GID: "p2", Name: "Proj Two", CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
	}

	fixedNow := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	eng := NewEngine(store, client, func() time.Time { return fixedNow })

	_, err := eng.SyncPortfolio(ctx, "root", Options{})
	require.NoError(t, err)

	rootProjects, err := store.PortfolioProjectGIDs(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, rootProjects)

	rootChildren, err := store.PortfolioChildGIDs(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, []string{"child"}, rootChildren)

	childProjects, err := store.PortfolioProjectGIDs(ctx, "child")
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, childProjects)

	childChildren, err := store.PortfolioChildGIDs(ctx, "child")
	require.NoError(t, err)
	assert.Equal(t, []string{"root"}, childChildren)

	proj2, err := store.GetProjectByGID(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, "Proj Two", proj2.Name)
}

func TestSyncProjectSkipsPastSyncedRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertProject(ctx, storage.Project{GID: "p1", Name: "Proj", CreatedAt: time.Now()}))

	fixedNow := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	jan := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	client := &fakeClient{}
	eng := NewEngine(store, client, func() time.Time { return fixedNow })

	since := jan
	_, err := eng.SyncProject(ctx, "p1", Options{Since: &since})
	require.NoError(t, err)

	// Re-running the same window should detect zero gaps and do nothing.
	report, err := eng.SyncProject(ctx, "p1", Options{Since: &since})
	require.NoError(t, err)
	assert.Equal(t, 0, report.BatchesTotal)
}

func TestDecideIncrementalFalseWithoutToken(t *testing.T) {
	store := newTestStore(t)
	eng := NewEngine(store, &fakeClient{}, nil)
	assert.False(t, eng.decideIncremental(context.Background(), "p1", time.Now()))
}

func TestResolveIdentifierGID(t *testing.T) {
	ref, err := ResolveIdentifier(context.Background(), nil, "123456")
	require.NoError(t, err)
	assert.Equal(t, asana.KindUser, ref.Kind)
	assert.Equal(t, "123456", ref.GID)
}

func TestResolveIdentifierURL(t *testing.T) {
	ref, err := ResolveIdentifier(context.Background(), nil, "https://app.asana.com/0/team/777")
	require.NoError(t, err)
	assert.Equal(t, asana.KindTeam, ref.Kind)
}

func TestResolveIdentifierAmbiguousName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertUser(ctx, storage.User{GID: "u1", Name: "Sam", Email: "sam1@example.com"}))
	require.NoError(t, store.UpsertUser(ctx, storage.User{GID: "u2", Name: "Sam", Email: "sam2@example.com"}))

	_, err := ResolveIdentifier(ctx, store, "Sam")
	assert.Error(t, err)
}
