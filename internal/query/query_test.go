package query

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

func seedTask(ctx context.Context, t *testing.T, s *storage.Store, gid, name, assigneeGID, projectGID string, completed bool, createdAt time.Time) {
	t.Helper()
	dk := createdAt.Year()*10000 + int(createdAt.Month())*100 + createdAt.Day()
	task := storage.Task{
		GID: gid, Name: name, AssigneeGID: assigneeGID, IsCompleted: completed,
		CreatedAt: createdAt, CreatedDateKey: dk,
	}
	require.NoError(t, s.UpsertTask(ctx, task))
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		return storage.ReplaceTaskProjects(ctx, tx, gid, []storage.TaskProjectMembership{{TaskGID: gid, ProjectGID: projectGID}})
	}))
}

func TestBuilderFiltersByAssigneeAndCompleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertUser(ctx, storage.User{GID: "u1", Name: "Ada", Email: "ada@example.com"}))
	require.NoError(t, s.UpsertProject(ctx, storage.Project{GID: "p1", Name: "Proj", CreatedAt: time.Now()}))

	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	seedTask(ctx, t, s, "t1", "Task One", "u1", "p1", true, now)
	seedTask(ctx, t, s, "t2", "Task Two", "u1", "p1", false, now)

	tasks, err := New(s).Assignee(ctx, "u1").Completed().Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t1", tasks[0].GID)
}

func TestBuilderPeriodFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertUser(ctx, storage.User{GID: "u1", Name: "Ada"}))
	require.NoError(t, s.UpsertProject(ctx, storage.Project{GID: "p1", Name: "Proj", CreatedAt: time.Now()}))

	inPeriod := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	outOfPeriod := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	seedTask(ctx, t, s, "t1", "In period", "u1", "p1", false, inPeriod)
	seedTask(ctx, t, s, "t2", "Out of period", "u1", "p1", false, outOfPeriod)

	period, err := calendar.Parse("2026-q1", inPeriod)
	require.NoError(t, err)

	tasks, err := New(s).Period(period).Tasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t1", tasks[0].GID)
}

func TestBuilderCountMatchesTasksLength(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertUser(ctx, storage.User{GID: "u1", Name: "Ada"}))
	require.NoError(t, s.UpsertProject(ctx, storage.Project{GID: "p1", Name: "Proj", CreatedAt: time.Now()}))
	seedTask(ctx, t, s, "t1", "One", "u1", "p1", false, time.Now())
	seedTask(ctx, t, s, "t2", "Two", "u1", "p1", false, time.Now())

	count, err := New(s).Assignee(ctx, "u1").Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestBuilderAssigneeAmbiguousNameErrors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertUser(ctx, storage.User{GID: "u1", Name: "Sam", Email: "sam1@example.com"}))
	require.NoError(t, s.UpsertUser(ctx, storage.User{GID: "u2", Name: "Sam", Email: "sam2@example.com"}))

	_, err := New(s).Assignee(ctx, "Sam").Tasks(ctx)
	assert.Error(t, err)
}

func TestBuilderToCSVIncludesHeader(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertUser(ctx, storage.User{GID: "u1", Name: "Ada"}))
	require.NoError(t, s.UpsertProject(ctx, storage.Project{GID: "p1", Name: "Proj", CreatedAt: time.Now()}))
	seedTask(ctx, t, s, "t1", "One", "u1", "p1", false, time.Now())

	csvOut, err := New(s).Assignee(ctx, "u1").ToCSV(ctx)
	require.NoError(t, err)
	assert.Contains(t, csvOut, "gid,name,assignee_gid")
	assert.Contains(t, csvOut, "t1")
}
