package metrics

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adlio/asanadw/internal/calendar"
	"github.com/adlio/asanadw/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(context.Background(), t.TempDir()+"/asanadw.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedTask(ctx context.Context, t *testing.T, s *storage.Store, gid, assigneeGID, projectGID string, createdAt time.Time, completedAt *time.Time, daysToComplete *int, overdue bool) {
	t.Helper()
	createdKey := createdAt.Year()*10000 + int(createdAt.Month())*100 + createdAt.Day()
	var completedKey *int
	if completedAt != nil {
		k := completedAt.Year()*10000 + int(completedAt.Month())*100 + completedAt.Day()
		completedKey = &k
	}
	task := storage.Task{
		GID: gid, Name: gid, AssigneeGID: assigneeGID, IsCompleted: completedAt != nil,
		CreatedAt: createdAt, CreatedDateKey: createdKey, CompletedAt: completedAt,
		CompletedDateKey: completedKey, DaysToComplete: daysToComplete, IsOverdue: overdue,
	}
	require.NoError(t, s.UpsertTask(ctx, task))
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		return storage.ReplaceTaskProjects(ctx, tx, gid, []storage.TaskProjectMembership{{TaskGID: gid, ProjectGID: projectGID}})
	}))
}

func days(n int) *int { return &n }

func TestComputeThroughputForProjects(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertUser(ctx, storage.User{GID: "u1", Name: "Ada"}))
	require.NoError(t, s.UpsertProject(ctx, storage.Project{GID: "p1", Name: "Proj", CreatedAt: time.Now()}))

	march := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	completed := march.AddDate(0, 0, 2)
	seedTask(ctx, t, s, "t1", "u1", "p1", march, &completed, days(2), false)
	seedTask(ctx, t, s, "t2", "u1", "p1", march, nil, nil, false)

	period, err := calendar.Parse("2026-q1", march)
	require.NoError(t, err)

	th, err := ComputeThroughput(ctx, s, ForProjects([]string{"p1"}), period)
	require.NoError(t, err)
	assert.Equal(t, 1, th.TasksCompleted)
	assert.Equal(t, 2, th.TasksCreated)
	assert.InDelta(t, 0.5, th.CompletionRate, 0.001)
}

func TestComputeLeadTimeComputesMedianAndMean(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertUser(ctx, storage.User{GID: "u1", Name: "Ada"}))
	require.NoError(t, s.UpsertProject(ctx, storage.Project{GID: "p1", Name: "Proj", CreatedAt: time.Now()}))

	march := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c1 := march.AddDate(0, 0, 5)
	c2 := march.AddDate(0, 0, 5)
	seedTask(ctx, t, s, "t1", "u1", "p1", march, &c1, days(1), false)
	seedTask(ctx, t, s, "t2", "u1", "p1", march, &c2, days(3), false)

	period, err := calendar.Parse("2026-q1", march)
	require.NoError(t, err)

	lt, err := ComputeLeadTime(ctx, s, ForProjects([]string{"p1"}), period)
	require.NoError(t, err)
	assert.Equal(t, 2.0, lt.MedianDays)
	assert.Equal(t, 2.0, lt.MeanDays)
}

func TestProjectGIDsForPortfolioRecursesAndGuardsCycles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertPortfolio(ctx, storage.Portfolio{GID: "pf1", Name: "Root", CreatedAt: time.Now()}))
	require.NoError(t, s.UpsertPortfolio(ctx, storage.Portfolio{GID: "pf2", Name: "Child", CreatedAt: time.Now()}))
	require.NoError(t, s.UpsertProject(ctx, storage.Project{GID: "p1", Name: "P1", CreatedAt: time.Now()}))
	require.NoError(t, s.UpsertProject(ctx, storage.Project{GID: "p2", Name: "P2", CreatedAt: time.Now()}))

	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		if err := storage.ReplacePortfolioProjects(ctx, tx, "pf1", []string{"p1"}); err != nil {
			return err
		}
		if err := storage.ReplacePortfolioProjects(ctx, tx, "pf2", []string{"p2"}); err != nil {
			return err
		}
		// pf1 -> pf2 -> pf1 forms a cycle; the walk must still terminate.
		if err := storage.ReplacePortfolioChildren(ctx, tx, "pf1", []string{"pf2"}); err != nil {
			return err
		}
		return storage.ReplacePortfolioChildren(ctx, tx, "pf2", []string{"pf1"})
	}))

	gids, err := ProjectGIDsForPortfolio(ctx, s, "pf1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p1", "p2"}, gids)
}

func TestComputeCollaborationCountsDistinctCollaborators(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertUser(ctx, storage.User{GID: "u1", Name: "Ada"}))
	require.NoError(t, s.UpsertUser(ctx, storage.User{GID: "u2", Name: "Bea"}))
	require.NoError(t, s.UpsertProject(ctx, storage.Project{GID: "p1", Name: "Proj", CreatedAt: time.Now()}))

	march := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	seedTask(ctx, t, s, "t1", "u1", "p1", march, nil, nil, false)
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		return storage.ReplaceTaskFollowers(ctx, tx, "t1", []string{"u2"})
	}))
	require.NoError(t, s.UpsertComment(ctx, storage.Comment{GID: "c1", TaskGID: "t1", AuthorGID: "u2", Text: "hi", CreatedAt: march}))

	period, err := calendar.Parse("2026-q1", march)
	require.NoError(t, err)

	collab, err := ComputeCollaboration(ctx, s, "u1", period)
	require.NoError(t, err)
	assert.Equal(t, 1, collab.DistinctCollaborators)
	assert.Equal(t, 1, collab.TasksWithFollowers)
}
