package versioning

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miethe/skillmeat/internal/fsadapter"
	"github.com/miethe/skillmeat/internal/models"
	"github.com/miethe/skillmeat/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	s, err := store.New(&store.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	blobDir := t.TempDir()
	return New(s, fsadapter.New(), blobDir), blobDir
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func TestCreateSnapshotAndRestore(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.md": "v1", "b.md": "stays"})

	snap1, err := e.CreateSnapshot(ctx, nil, models.SnapshotScopeArtifact, "art1", root, models.SnapshotReasonManual, "tester")
	require.NoError(t, err)
	assert.Len(t, snap1.Tree, 2)

	writeTree(t, root, map[string]string{"a.md": "v2"})
	snap2, err := e.CreateSnapshot(ctx, nil, models.SnapshotScopeArtifact, "art1", root, models.SnapshotReasonManual, "tester")
	require.NoError(t, err)
	assert.NotEqual(t, snap1.Tree["a.md"], snap2.Tree["a.md"])
	assert.Equal(t, snap1.Tree["b.md"], snap2.Tree["b.md"])

	require.NoError(t, e.Restore(ctx, snap1, root))
	b, err := os.ReadFile(filepath.Join(root, "a.md"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(b))
}

func TestRollbackCreatesCompensatingSnapshot(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.md": "v1"})

	snap1, err := e.CreateSnapshot(ctx, nil, models.SnapshotScopeArtifact, "art1", root, models.SnapshotReasonManual, "tester")
	require.NoError(t, err)

	writeTree(t, root, map[string]string{"a.md": "v2"})
	_, err = e.CreateSnapshot(ctx, nil, models.SnapshotScopeArtifact, "art1", root, models.SnapshotReasonManual, "tester")
	require.NoError(t, err)

	compensating, err := e.Rollback(ctx, nil, models.SnapshotScopeArtifact, "art1", root, snap1.ID, "tester")
	require.NoError(t, err)
	assert.NotNil(t, compensating)

	b, err := os.ReadFile(filepath.Join(root, "a.md"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(b))

	// The compensating snapshot captured the pre-rollback (v2) state, so
	// rolling back to it restores v2 again.
	back, err := e.Rollback(ctx, nil, models.SnapshotScopeArtifact, "art1", root, compensating.ID, "tester")
	require.NoError(t, err)
	assert.NotNil(t, back)
	b, err = os.ReadFile(filepath.Join(root, "a.md"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(b))
}

func TestGCRemovesUnreferencedBlobs(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.md": "only-version"})

	snap, err := e.CreateSnapshot(ctx, nil, models.SnapshotScopeArtifact, "art1", root, models.SnapshotReasonManual, "tester")
	require.NoError(t, err)

	hash := snap.Tree["a.md"]
	_, err = os.Stat(e.blobPath(hash))
	require.NoError(t, err)

	require.NoError(t, e.store.DeleteSnapshot(ctx, nil, snap.ID))
	removed, err := e.GC(ctx, nil)
	require.NoError(t, err)
	assert.Contains(t, removed, hash)

	_, err = os.Stat(e.blobPath(hash))
	assert.True(t, os.IsNotExist(err))
}
