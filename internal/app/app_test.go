package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miethe/skillmeat/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	mgr := config.NewManager()
	require.NoError(t, mgr.Load(""))
	cfg := mgr.Config()
	dir := t.TempDir()
	cfg.Store.DSN = filepath.Join(dir, "skillmeat.db")
	cfg.Collection.Root = filepath.Join(dir, "collection")
	return cfg
}

func TestNewWithConfigWiresStoreAndOrchestrator(t *testing.T) {
	a, err := NewWithConfig(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Store.Close() })

	require.NotNil(t, a.Orchestrator)
	require.NotNil(t, a.Bus)
	require.NotNil(t, a.FS)
}

func TestEnsureCollectionCreatesOnceAndReuses(t *testing.T) {
	a, err := NewWithConfig(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Store.Close() })

	ctx := context.Background()
	first, err := a.EnsureCollection(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	second, err := a.EnsureCollection(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}
