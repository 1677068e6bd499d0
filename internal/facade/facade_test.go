package facade

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adlio/asanadw/internal/asana"
	"github.com/adlio/asanadw/internal/summary"
	"github.com/adlio/asanadw/internal/sync"
)

// stubClient implements asana.Client with no data, enough to exercise the
// facade's wiring without a real network collaborator (spec.md §1 treats
// the Asana HTTP client as an out-of-scope black box).
type stubClient struct{}

func (stubClient) GetUser(ctx context.Context, gid string) (asana.User, error) { return asana.User{GID: gid}, nil }
func (stubClient) GetTeam(ctx context.Context, gid string) (asana.Team, error) { return asana.Team{GID: gid}, nil }
func (stubClient) GetProject(ctx context.Context, gid string) (asana.Project, error) {
	return asana.Project{GID: gid}, nil
}
func (stubClient) GetPortfolio(ctx context.Context, gid string) (asana.Portfolio, error) {
	return asana.Portfolio{GID: gid}, nil
}
func (stubClient) ListTasksModifiedSince(ctx context.Context, scope asana.Scope, since asana.TimeWindow, cursor string) (asana.Page[asana.Task], error) {
	return asana.Page[asana.Task]{}, nil
}
func (stubClient) GetTask(ctx context.Context, gid string) (asana.Task, error) { return asana.Task{GID: gid}, nil }
func (stubClient) ListCommentsForTask(ctx context.Context, taskGID string, cursor string) (asana.Page[asana.Comment], error) {
	return asana.Page[asana.Comment]{}, nil
}
func (stubClient) ListStatusUpdates(ctx context.Context, scope asana.Scope, cursor string) (asana.Page[asana.StatusUpdate], error) {
	return asana.Page[asana.StatusUpdate]{}, nil
}
func (stubClient) Events(ctx context.Context, resourceGID, token string) (asana.EventsDelta, error) {
	return asana.EventsDelta{}, nil
}

func TestOpenWithoutClientLeavesEngineNil(t *testing.T) {
	ctx := context.Background()
	f, err := Open(ctx, t.TempDir()+"/asanadw.db", nil, nil)
	require.NoError(t, err)
	defer f.Close()

	assert.Nil(t, f.Engine)

	_, err = f.SyncAll(ctx, sync.Options{})
	require.Error(t, err)
}

func TestOpenWithClientWiresEngine(t *testing.T) {
	ctx := context.Background()
	f, err := Open(ctx, t.TempDir()+"/asanadw.db", stubClient{}, nil)
	require.NoError(t, err)
	defer f.Close()

	require.NotNil(t, f.Engine)

	_, err = f.SyncEntity(ctx, "123", "bogus-kind", sync.Options{})
	require.Error(t, err)
}

func TestAddMonitoredEntityPersists(t *testing.T) {
	ctx := context.Background()
	f, err := Open(ctx, t.TempDir()+"/asanadw.db", nil, nil)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.AddMonitoredEntity(ctx, "111", "project", "Roadmap"))
}

func TestSummarizeWithoutCollaboratorErrors(t *testing.T) {
	ctx := context.Background()
	f, err := Open(ctx, t.TempDir()+"/asanadw.db", nil, nil)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Summarize(ctx, summary.Target{TaskGID: "1"}, false)
	require.Error(t, err)
}
