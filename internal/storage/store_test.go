package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore opens a fresh file-backed database per test. A private
// in-memory database is tempting but the writer/reader split in Store
// needs two real connections against the same file, which SQLite's
// ":memory:" mode cannot share across connections.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, t.TempDir()+"/asanadw.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRunsMigrationsIdempotently(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/asanadw.db"

	s1, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(ctx, path)
	require.NoError(t, err)
	defer s2.Close()

	_, err = s2.GetUserByGID(ctx, "missing")
	assert.Error(t, err)
}

func TestUpsertUserThenFetch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertUser(ctx, User{GID: "u1", Name: "Ada Lovelace", Email: "ada@example.com"}))
	u, err := s.GetUserByGID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", u.Name)

	require.NoError(t, s.UpsertUser(ctx, User{GID: "u1", Name: "Ada L.", Email: "ada@example.com"}))
	u, err = s.GetUserByGID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", u.Name)
}

func TestUpsertTaskPreservesIDAcrossReupsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ExtendCalendar(ctx, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)))

	task := Task{
		GID: "t1", Name: "Ship it", CreatedAt: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		CreatedDateKey: 20260105,
	}
	require.NoError(t, s.UpsertTask(ctx, task))
	first, err := s.GetTaskByGID(ctx, "t1")
	require.NoError(t, err)

	task.Name = "Ship it faster"
	require.NoError(t, s.UpsertTask(ctx, task))
	second, err := s.GetTaskByGID(ctx, "t1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ship it faster", second.Name)
}

func TestDeleteTaskCascadesToComments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ExtendCalendar(ctx, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)))

	require.NoError(t, s.UpsertTask(ctx, Task{GID: "t1", Name: "Task", CreatedAt: time.Now(), CreatedDateKey: 20260105}))
	require.NoError(t, s.UpsertComment(ctx, Comment{GID: "c1", TaskGID: "t1", Text: "hi", CreatedAt: time.Now()}))

	require.NoError(t, s.DeleteTask(ctx, "t1"))

	var count int
	err := s.reader().QueryRowContext(ctx, `SELECT COUNT(*) FROM fact_comments WHERE task_gid = 't1'`).Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReplaceTaskProjectsSwapsMembership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ExtendCalendar(ctx, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, s.UpsertTask(ctx, Task{GID: "t1", Name: "Task", CreatedAt: time.Now(), CreatedDateKey: 20260105}))
	require.NoError(t, s.UpsertProject(ctx, Project{GID: "p1", Name: "Proj", CreatedAt: time.Now()}))
	require.NoError(t, s.UpsertProject(ctx, Project{GID: "p2", Name: "Proj2", CreatedAt: time.Now()}))

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		return ReplaceTaskProjects(ctx, tx, "t1", []TaskProjectMembership{{TaskGID: "t1", ProjectGID: "p1"}})
	})
	require.NoError(t, err)

	gids, err := s.TaskProjectGIDs(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, gids)

	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		return ReplaceTaskProjects(ctx, tx, "t1", []TaskProjectMembership{{TaskGID: "t1", ProjectGID: "p2"}})
	})
	require.NoError(t, err)

	gids, err = s.TaskProjectGIDs(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, gids)
}

func TestRecordAndListSyncedRanges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	jan := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		return RecordSyncedRange(ctx, tx, SyncedRange{EntityGID: "u1", EntityType: "user", Start: jan, End: feb})
	})
	require.NoError(t, err)

	ranges, err := s.SyncedRangesFor(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.Equal(t, jan, ranges[0].Start)
}

func TestSyncJobLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.StartSyncJob(ctx, SyncJob{
		EntityGID: "u1", EntityType: "user",
		RequestedStart: time.Now(), RequestedEnd: time.Now(),
		StartedAt: time.Now(), BatchesTotal: 3,
	})
	require.NoError(t, err)
	require.NoError(t, s.UpdateSyncJobProgress(ctx, id, 1, 10, 0, 0))
	require.NoError(t, s.FinishSyncJob(ctx, id, "completed", time.Now()))
}

func TestConfigRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.GetConfig(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetConfig(ctx, "asana_token", "secret"))
	v, ok, err := s.GetConfig(ctx, "asana_token")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "secret", v)
}

func TestExtendCalendarPopulatesPriorQuarterAlignment(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ExtendCalendar(ctx,
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)))

	row, ok := s.DateByKey(20260207)
	require.True(t, ok)
	require.NotNil(t, row.PriorQuarterDateKey)
}
