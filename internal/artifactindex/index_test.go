package artifactindex

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miethe/skillmeat/internal/models"
	"github.com/miethe/skillmeat/internal/store"
)

func newTestStore(t *testing.T) (*store.Store, *models.Collection) {
	t.Helper()
	s, err := store.New(&store.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	c, err := s.CreateCollection(context.Background(), nil, &models.Collection{ID: uuid.NewString(), Name: "default", Root: "/tmp/c"})
	require.NoError(t, err)
	return s, c
}

func TestResolveIdentityContentHashWins(t *testing.T) {
	s, c := newTestStore(t)
	idx := New(s)
	ctx := context.Background()

	d := &DetectedArtifact{Name: "deploy", Type: models.ArtifactTypeCommand, Origin: models.OriginLocal,
		Files: []DetectedFile{{RelativePath: "deploy.md", Content: []byte("echo hi")}}}
	res1, err := idx.ResolveIdentity(ctx, nil, c.ID, d)
	require.NoError(t, err)
	assert.True(t, res1.IsNew)

	_, err = s.CreateArtifact(ctx, nil, ToArtifact(c.ID, Canonicalize(d), res1))
	require.NoError(t, err)

	// Re-import identical bytes under a different origin/upstream: the
	// content-hash match must still win and reuse the same uuid.
	d2 := &DetectedArtifact{Name: "deploy", Type: models.ArtifactTypeCommand, Origin: models.OriginGitHub, Upstream: "acme/x@v2",
		Files: []DetectedFile{{RelativePath: "deploy.md", Content: []byte("echo hi")}}}
	res2, err := idx.ResolveIdentity(ctx, nil, c.ID, d2)
	require.NoError(t, err)
	assert.False(t, res2.IsNew)
	assert.Equal(t, res1.UUID, res2.UUID)
}

func TestResolveIdentityUpstreamMatchKeepsUUID(t *testing.T) {
	s, c := newTestStore(t)
	idx := New(s)
	ctx := context.Background()

	d := &DetectedArtifact{Name: "deploy", Type: models.ArtifactTypeCommand, Origin: models.OriginGitHub, Upstream: "acme/x@v1",
		Files: []DetectedFile{{RelativePath: "deploy.md", Content: []byte("v1 content")}}}
	res1, err := idx.ResolveIdentity(ctx, nil, c.ID, d)
	require.NoError(t, err)
	_, err = s.CreateArtifact(ctx, nil, ToArtifact(c.ID, Canonicalize(d), res1))
	require.NoError(t, err)

	// Same (origin, upstream, type, name) but new bytes: keep uuid,
	// content_hash changes.
	d2 := &DetectedArtifact{Name: "deploy", Type: models.ArtifactTypeCommand, Origin: models.OriginGitHub, Upstream: "acme/x@v1",
		Files: []DetectedFile{{RelativePath: "deploy.md", Content: []byte("v2 content, different")}}}
	res2, err := idx.ResolveIdentity(ctx, nil, c.ID, d2)
	require.NoError(t, err)
	assert.False(t, res2.IsNew)
	assert.Equal(t, res1.UUID, res2.UUID)
	assert.NotEqual(t, res1.ContentHash, res2.ContentHash)
}

func TestResolveIdentityCacheServesRepeatContentHashLookups(t *testing.T) {
	s, c := newTestStore(t)
	idx := New(s)
	ctx := context.Background()

	d := &DetectedArtifact{Name: "deploy", Type: models.ArtifactTypeCommand, Origin: models.OriginLocal,
		Files: []DetectedFile{{RelativePath: "deploy.md", Content: []byte("echo hi")}}}
	res1, err := idx.ResolveIdentity(ctx, nil, c.ID, d)
	require.NoError(t, err)
	_, err = s.CreateArtifact(ctx, nil, ToArtifact(c.ID, Canonicalize(d), res1))
	require.NoError(t, err)

	// Re-resolving identical bytes must hit the cache and still return
	// the same, now-persisted uuid with IsNew false.
	res2, err := idx.ResolveIdentity(ctx, nil, c.ID, d)
	require.NoError(t, err)
	assert.False(t, res2.IsNew)
	assert.Equal(t, res1.UUID, res2.UUID)

	// After invalidation and a store-level delete, the same bytes mint
	// a fresh uuid instead of resolving to the deleted row's.
	idx.Invalidate(c.ID, res1.ContentHash)
	require.NoError(t, s.DeleteArtifact(ctx, nil, res1.UUID))

	res3, err := idx.ResolveIdentity(ctx, nil, c.ID, d)
	require.NoError(t, err)
	assert.True(t, res3.IsNew)
	assert.NotEqual(t, res1.UUID, res3.UUID)
}

func TestCanonicalizePathPattern(t *testing.T) {
	d := &DetectedArtifact{Name: " Deploy ", Type: "COMMAND"}
	c := Canonicalize(d)
	assert.Equal(t, "Deploy", c.Name)
	assert.Equal(t, models.ArtifactTypeCommand, c.Type)
	assert.Equal(t, ".claude/commands/Deploy", c.PathPattern)
}
