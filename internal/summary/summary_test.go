package summary

import (
	"context"
	"database/sql"
	"sync/atomic"
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

type fakeCollaborator struct {
	calls atomic.Int32
	reply string
}

func (f *fakeCollaborator) Generate(ctx context.Context, prompt, schema string) (string, error) {
	f.calls.Add(1)
	return f.reply, nil
}

func testBundle(t *testing.T) *PromptBundle {
	t.Helper()
	b, err := DefaultPromptBundle()
	require.NoError(t, err)
	return b
}

func TestSummarizeTaskCachesResult(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertTask(ctx, storage.Task{GID: "t1", Name: "Ship it", Notes: "notes", CreatedAt: time.Now(), CreatedDateKey: 20260301}))
	require.NoError(t, s.UpsertComment(ctx, storage.Comment{GID: "c1", TaskGID: "t1", Text: "looks good", CreatedAt: time.Now()}))

	fc := &fakeCollaborator{reply: `{"summary": "Shipped the feature."}`}
	cache := New(s, fc, testBundle(t), "v1")

	text, err := cache.Summarize(ctx, Target{TaskGID: "t1"}, false)
	require.NoError(t, err)
	assert.Equal(t, "Shipped the feature.", text)
	assert.Equal(t, int32(1), fc.calls.Load())

	text2, err := cache.Summarize(ctx, Target{TaskGID: "t1"}, false)
	require.NoError(t, err)
	assert.Equal(t, "Shipped the feature.", text2)
	assert.Equal(t, int32(1), fc.calls.Load(), "second call should hit the cache, not the collaborator")
}

func TestSummarizeForceBypassesCache(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertTask(ctx, storage.Task{GID: "t1", Name: "Ship it", CreatedAt: time.Now(), CreatedDateKey: 20260301}))

	fc := &fakeCollaborator{reply: `{"summary": "First."}`}
	cache := New(s, fc, testBundle(t), "v1")

	_, err := cache.Summarize(ctx, Target{TaskGID: "t1"}, false)
	require.NoError(t, err)

	fc.reply = `{"summary": "Second."}`
	text, err := cache.Summarize(ctx, Target{TaskGID: "t1"}, true)
	require.NoError(t, err)
	assert.Equal(t, "Second.", text)
	assert.Equal(t, int32(2), fc.calls.Load())
}

func TestSummarizeProjectGathersPeriodActivity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertProject(ctx, storage.Project{GID: "p1", Name: "Proj", CreatedAt: time.Now()}))
	march := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertTask(ctx, storage.Task{GID: "t1", Name: "A", CreatedAt: march, CreatedDateKey: 20260305}))
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		return storage.ReplaceTaskProjects(ctx, tx, "t1", []storage.TaskProjectMembership{{TaskGID: "t1", ProjectGID: "p1"}})
	}))

	period, err := calendar.Parse("2026-q1", march)
	require.NoError(t, err)

	fc := &fakeCollaborator{reply: `{"summary": "Busy quarter."}`}
	cache := New(s, fc, testBundle(t), "v1")

	text, err := cache.Summarize(ctx, Target{ProjectGID: "p1", Period: period}, false)
	require.NoError(t, err)
	assert.Equal(t, "Busy quarter.", text)
}

func TestParseSummaryReplyStripsCodeFence(t *testing.T) {
	text, err := parseSummaryReply("```json\n{\"summary\": \"done\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "done", text)
}

func TestParseSummaryReplyRejectsEmptySummary(t *testing.T) {
	_, err := parseSummaryReply(`{"summary": ""}`)
	require.Error(t, err)
}
