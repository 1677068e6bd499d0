package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adlio/asanadw/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(context.Background(), t.TempDir()+"/asanadw.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSearchEmptyQueryReturnsEmptyResult(t *testing.T) {
	s := newTestStore(t)
	results, err := Search(context.Background(), s, "   ", Options{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchFindsTaskByName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertTask(ctx, storage.Task{GID: "t1", Name: "Migrate billing pipeline", CreatedAt: time.Now()}))
	require.NoError(t, s.UpsertTask(ctx, storage.Task{GID: "t2", Name: "Unrelated task", CreatedAt: time.Now()}))

	results, err := Search(ctx, s, "billing", Options{EntityTypes: []EntityType{EntityTask}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "t1", results[0].GID)
	assert.Contains(t, results[0].Snippet, "**")
}

func TestSearchFindsCommentByText(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertTask(ctx, storage.Task{GID: "t1", Name: "Task", CreatedAt: time.Now()}))
	require.NoError(t, s.UpsertComment(ctx, storage.Comment{GID: "c1", TaskGID: "t1", Text: "this needs a rollback plan", CreatedAt: time.Now()}))

	results, err := Search(ctx, s, "rollback", Options{EntityTypes: []EntityType{EntityComment}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "t1", results[0].TaskGID)
}

func TestSearchNormalizesQuotedPunctuationIntoPhrase(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertTask(ctx, storage.Task{GID: "t1", Name: "fix bug: auth-flow", CreatedAt: time.Now()}))

	results, err := Search(ctx, s, "bug: auth-flow", Options{EntityTypes: []EntityType{EntityTask}})
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestSearchMergesAcrossSurfacesByRank(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertProject(ctx, storage.Project{GID: "p1", Name: "rollout plan", CreatedAt: time.Now()}))
	require.NoError(t, s.UpsertTask(ctx, storage.Task{GID: "t1", Name: "rollout plan task", CreatedAt: time.Now()}))

	results, err := Search(ctx, s, "rollout", Options{})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
