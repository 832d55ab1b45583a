package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miethe/skillmeat/internal/artifactindex"
	"github.com/miethe/skillmeat/internal/contextpack"
	"github.com/miethe/skillmeat/internal/events"
	"github.com/miethe/skillmeat/internal/fsadapter"
	"github.com/miethe/skillmeat/internal/models"
	"github.com/miethe/skillmeat/internal/store"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *store.Store, *events.Bus) {
	t.Helper()
	s, err := store.New(&store.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	blobDir := t.TempDir()
	bus := events.NewBus(64)
	return New(s, fsadapter.New(), bus, blobDir), s, bus
}

func mustCollection(t *testing.T, s *store.Store, root string) *models.Collection {
	t.Helper()
	c, err := s.CreateCollection(context.Background(), nil, &models.Collection{ID: uuid.NewString(), Name: "default", Root: root})
	require.NoError(t, err)
	return c
}

func mustProject(t *testing.T, s *store.Store, path string) *models.Project {
	t.Helper()
	p, err := s.CreateProject(context.Background(), nil, &models.Project{ID: uuid.NewString(), Name: "proj", Path: path})
	require.NoError(t, err)
	return p
}

func detectedSkill(name, content string) *artifactindex.DetectedArtifact {
	return &artifactindex.DetectedArtifact{
		Name:   name,
		Type:   models.ArtifactTypeCommand,
		Origin: models.OriginLocal,
		Files: []artifactindex.DetectedFile{
			{RelativePath: "index.md", Content: []byte(content)},
		},
		PathPattern: filepath.Join(".claude", "commands", name+".md"),
	}
}

func TestImportArtifactIdempotent(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()
	root := t.TempDir()
	c := mustCollection(t, o.store, root)

	a1, err := o.ImportArtifact(ctx, c.ID, detectedSkill("deploy", "hello"))
	require.NoError(t, err)

	a2, err := o.ImportArtifact(ctx, c.ID, detectedSkill("deploy", "hello"))
	require.NoError(t, err)

	assert.Equal(t, a1.UUID, a2.UUID)
	assert.Equal(t, a1.ContentHash, a2.ContentHash)
}

func TestImportCompositeLinksMembers(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()
	root := t.TempDir()
	c := mustCollection(t, o.store, root)

	root1 := detectedSkill("suite-root", "root content")
	child1 := detectedSkill("suite-child-1", "child one")
	child2 := detectedSkill("suite-child-2", "child two")

	comp, err := o.ImportComposite(ctx, c.ID, models.CompositeTypeSuite, root1, []*artifactindex.DetectedArtifact{child1, child2})
	require.NoError(t, err)
	require.NotEmpty(t, comp.ID)

	members, err := o.store.ListCompositeMembers(ctx, nil, comp.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestDeployCreatesPreAndPostSnapshots(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()
	collectionRoot := t.TempDir()
	projectRoot := t.TempDir()

	c := mustCollection(t, o.store, collectionRoot)
	p := mustProject(t, o.store, projectRoot)

	artifact, err := o.ImportArtifact(ctx, c.ID, detectedSkill("build", "build steps"))
	require.NoError(t, err)

	deployedDir := filepath.Join(projectRoot, ".claude", "commands", "build.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(deployedDir), 0o755))
	require.NoError(t, os.WriteFile(deployedDir, []byte("stale content"), 0o644))

	d, err := o.Deploy(ctx, collectionRoot, artifact.UUID, p.ID, "default", true)
	require.NoError(t, err)
	assert.Equal(t, artifact.UUID, d.ArtifactUUID)

	snaps, err := o.store.ListSnapshots(ctx, nil, models.SnapshotScopeDeployedProject, p.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(snaps), 2)

	content, err := os.ReadFile(deployedDir)
	require.NoError(t, err)
	assert.Equal(t, "build steps", string(content))
}

func TestDeploySetAppliesEveryMember(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()
	collectionRoot := t.TempDir()
	projectRoot := t.TempDir()

	c := mustCollection(t, o.store, collectionRoot)
	p := mustProject(t, o.store, projectRoot)

	a1, err := o.ImportArtifact(ctx, c.ID, detectedSkill("one", "one content"))
	require.NoError(t, err)
	a2, err := o.ImportArtifact(ctx, c.ID, detectedSkill("two", "two content"))
	require.NoError(t, err)

	set, err := o.store.CreateDeploymentSet(ctx, nil, &models.DeploymentSet{ID: uuid.NewString(), OwnerID: "u1", Name: "bundle"})
	require.NoError(t, err)
	require.NoError(t, o.store.AddDeploymentSetMember(ctx, nil, set.ID, &models.DeploymentSetMember{SetID: set.ID, Kind: models.MemberKindArtifact, ArtifactID: a1.UUID, Position: 1}))
	require.NoError(t, o.store.AddDeploymentSetMember(ctx, nil, set.ID, &models.DeploymentSetMember{SetID: set.ID, Kind: models.MemberKindArtifact, ArtifactID: a2.UUID, Position: 2}))

	journalPath := filepath.Join(t.TempDir(), "journal.jsonl")
	applied, outcome, err := o.DeploySet(ctx, collectionRoot, journalPath, set.ID, p.ID, "default", true)
	require.NoError(t, err)
	assert.Nil(t, outcome)
	assert.Len(t, applied, 2)
}

func TestSnapshotAndRollbackRoundTrip(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("v1"), 0o644))

	snap1, err := o.Snapshot(ctx, models.SnapshotScopeArtifact, "artifact-1", dir, "tester")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("v2"), 0o644))

	compensating, err := o.Rollback(ctx, models.SnapshotScopeArtifact, "artifact-1", dir, snap1.ID, "tester")
	require.NoError(t, err)
	assert.NotEqual(t, snap1.ID, compensating.ID)

	content, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(content))
}

func TestMemoryExtractApplyPersistsItems(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()
	p := mustProject(t, o.store, t.TempDir())

	transcript := []byte(`{"sessionId":"s1","timestamp":"2026-01-02T03:04:05Z","type":"assistant","uuid":"m1","message":{"role":"assistant","content":[{"type":"text","text":"We decided to use atomic renames instead of in-place writes here"}]}}` + "\n")

	result, err := o.MemoryExtract(ctx, p.ID, transcript, true)
	require.NoError(t, err)
	require.NotEmpty(t, result.Items)

	items, err := o.store.ListMemoryItemsForPack(ctx, nil, p.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, items)

	// re-running with identical bytes must not duplicate rows.
	result2, err := o.MemoryExtract(ctx, p.ID, transcript, true)
	require.NoError(t, err)
	require.NotEmpty(t, result2.Items)

	items2, err := o.store.ListMemoryItemsForPack(ctx, nil, p.ID)
	require.NoError(t, err)
	assert.Equal(t, len(items), len(items2))
}

func TestMemoryPromoteAndDeprecateTransitions(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()
	p := mustProject(t, o.store, t.TempDir())

	item := &models.MemoryItem{
		ID:          uuid.NewString(),
		ProjectID:   p.ID,
		Type:        models.MemoryTypeDecision,
		Content:     "we decided to use sqlite for local storage",
		Confidence:  0.7,
		Status:      models.MemoryStatusCandidate,
		ContentHash: "hash-1",
	}
	_, err := o.store.CreateMemoryItem(ctx, nil, item)
	require.NoError(t, err)

	require.NoError(t, o.MemoryPromote(ctx, item.ID))
	got, err := o.store.GetMemoryItem(ctx, nil, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MemoryStatusActive, got.Status)

	require.NoError(t, o.MemoryPromote(ctx, item.ID))
	got, err = o.store.GetMemoryItem(ctx, nil, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MemoryStatusStable, got.Status)

	require.NoError(t, o.MemoryDeprecate(ctx, item.ID))
	got, err = o.store.GetMemoryItem(ctx, nil, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MemoryStatusDeprecated, got.Status)
}

func TestMemoryMergeDeprecatesDuplicates(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()
	p := mustProject(t, o.store, t.TempDir())

	keep := &models.MemoryItem{ID: uuid.NewString(), ProjectID: p.ID, Type: models.MemoryTypeGotcha, Content: "keep me", Confidence: 0.8, Status: models.MemoryStatusCandidate, ContentHash: "h-keep"}
	dup := &models.MemoryItem{ID: uuid.NewString(), ProjectID: p.ID, Type: models.MemoryTypeGotcha, Content: "duplicate of keep", Confidence: 0.6, Status: models.MemoryStatusCandidate, ContentHash: "h-dup"}
	_, err := o.store.CreateMemoryItem(ctx, nil, keep)
	require.NoError(t, err)
	_, err = o.store.CreateMemoryItem(ctx, nil, dup)
	require.NoError(t, err)

	require.NoError(t, o.MemoryMerge(ctx, keep.ID, []string{dup.ID}))

	gotDup, err := o.store.GetMemoryItem(ctx, nil, dup.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MemoryStatusDeprecated, gotDup.Status)

	gotKeep, err := o.store.GetMemoryItem(ctx, nil, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MemoryStatusCandidate, gotKeep.Status)
}

func TestContextPackRespectsBudget(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()
	p := mustProject(t, o.store, t.TempDir())

	for i := 0; i < 5; i++ {
		item := &models.MemoryItem{
			ID:          uuid.NewString(),
			ProjectID:   p.ID,
			Type:        models.MemoryTypeLearning,
			Content:     "some reasonably long learning content block here for budget testing",
			Confidence:  0.9 - float64(i)*0.01,
			Status:      models.MemoryStatusActive,
			ContentHash: "hash-" + uuid.NewString(),
		}
		_, err := o.store.CreateMemoryItem(ctx, nil, item)
		require.NoError(t, err)
	}

	pack, err := o.ContextPack(ctx, p.ID, contextpack.Selectors{MinConfidence: 0}, 20)
	require.NoError(t, err)
	assert.LessOrEqual(t, pack.TotalTokens, 20)
}

func TestContextPackCacheInvalidatesOnMemoryMutation(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	ctx := context.Background()
	p := mustProject(t, o.store, t.TempDir())

	item := &models.MemoryItem{
		ID:          uuid.NewString(),
		ProjectID:   p.ID,
		Type:        models.MemoryTypeLearning,
		Content:     "first content block",
		Confidence:  0.9,
		Status:      models.MemoryStatusActive,
		ContentHash: "hash-1",
	}
	_, err := o.store.CreateMemoryItem(ctx, nil, item)
	require.NoError(t, err)

	sel := contextpack.Selectors{MinConfidence: 0}
	first, err := o.ContextPack(ctx, p.ID, sel, 1000)
	require.NoError(t, err)
	require.Len(t, first.Items, 1)

	// A second identical call must hit the cache and return the exact
	// same *Pack rather than recomputing, since nothing changed.
	second, err := o.ContextPack(ctx, p.ID, sel, 1000)
	require.NoError(t, err)
	assert.Same(t, first, second)

	// Inserting a new item straight through the store leaves the cache
	// alone; promoting it through the orchestrator invalidates this
	// project's cached packs, so a third call with the same selectors
	// must pick it up rather than serving the stale one-item pack.
	item2 := &models.MemoryItem{
		ID:          uuid.NewString(),
		ProjectID:   p.ID,
		Type:        models.MemoryTypeLearning,
		Content:     "second content block",
		Confidence:  0.8,
		Status:      models.MemoryStatusCandidate,
		ContentHash: "hash-2",
	}
	_, err = o.store.CreateMemoryItem(ctx, nil, item2)
	require.NoError(t, err)
	require.NoError(t, o.MemoryPromote(ctx, item2.ID))

	third, err := o.ContextPack(ctx, p.ID, sel, 1000)
	require.NoError(t, err)
	assert.Len(t, third.Items, 2)
}
