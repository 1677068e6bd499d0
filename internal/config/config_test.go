package config

import (
	"context"
	"os"
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

func TestResolveDefaultsWhenUnset(t *testing.T) {
	s := newTestStore(t)
	settings, err := Resolve(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, ProviderBedrock, settings.LLMProvider)
	assert.Equal(t, defaultDefaultDays, settings.DefaultDays)
}

func TestResolveReadsAppConfig(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SetConfig(ctx, KeyWorkspaceGID, "12345"))
	require.NoError(t, s.SetConfig(ctx, KeyLLMProvider, ProviderAnthropic))
	require.NoError(t, s.SetConfig(ctx, KeyLLMModel, "claude-3-5-haiku-latest"))
	require.NoError(t, s.SetConfig(ctx, KeyDefaultDays, "30"))

	settings, err := Resolve(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "12345", settings.WorkspaceGID)
	assert.Equal(t, ProviderAnthropic, settings.LLMProvider)
	assert.Equal(t, "claude-3-5-haiku-latest", settings.LLMModel)
	assert.Equal(t, 30, settings.DefaultDays)
}

func TestResolveRejectsUnknownProvider(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SetConfig(ctx, KeyLLMProvider, "openai"))

	_, err := Resolve(ctx, s)
	require.Error(t, err)
}

func TestLoadBootstrapAbsentFileReturnsZeroValue(t *testing.T) {
	b, err := LoadBootstrap(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Bootstrap{}, b)
}

func TestLoadBootstrapParsesTOML(t *testing.T) {
	dir := t.TempDir()
	content := "database_path = \"/tmp/custom.db\"\nprompt_bundle = \"/tmp/prompts.toml\"\n"
	require.NoError(t, os.WriteFile(dir+"/.asanadw.toml", []byte(content), 0o644))

	b, err := LoadBootstrap(dir)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", b.DatabasePath)
	assert.Equal(t, "/tmp/prompts.toml", b.PromptBundle)
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, nil)
	require.NoError(t, err)
	defer w.Close()

	content := "database_path = \"/tmp/reloaded.db\"\n"
	require.NoError(t, os.WriteFile(dir+"/.asanadw.toml", []byte(content), 0o644))

	select {
	case b := <-w.Changes():
		assert.Equal(t, "/tmp/reloaded.db", b.DatabasePath)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for bootstrap reload")
	}
}
