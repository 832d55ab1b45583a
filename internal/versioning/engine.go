// Package versioning is the Versioning Engine (C7): content-addressed
// snapshots of a tree, diffed in O(files changed) against the prior
// snapshot, with reversible rollback and blob garbage collection.
package versioning

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/miethe/skillmeat/internal/fsadapter"
	"github.com/miethe/skillmeat/internal/models"
	"github.com/miethe/skillmeat/internal/store"
)

// Engine snapshots and restores filesystem trees through a
// content-addressed blob store rooted at blobsDir.
type Engine struct {
	store   *store.Store
	fs      *fsadapter.Adapter
	blobDir string
}

func New(s *store.Store, fs *fsadapter.Adapter, blobDir string) *Engine {
	return &Engine{store: s, fs: fs, blobDir: blobDir}
}

func (e *Engine) blobPath(hash string) string {
	if len(hash) < 4 {
		return filepath.Join(e.blobDir, hash)
	}
	return filepath.Join(e.blobDir, hash[:2], hash[2:4], hash)
}

func (e *Engine) writeBlob(hash string, content []byte) error {
	path := e.blobPath(hash)
	if _, err := os.Stat(path); err == nil {
		return nil // content-addressed: identical hash means identical bytes already stored
	}
	return e.fs.WriteFile(path, content)
}

// CreateSnapshot captures root's current tree. Per §4.7 it runs in
// O(files changed since the last snapshot): only paths whose hash
// differs from (or is absent from) the prior snapshot's tree get a new
// blob written; unchanged paths reuse the blob already on disk.
func (e *Engine) CreateSnapshot(ctx context.Context, tx *store.Tx, scope models.SnapshotScope, scopeID, root string, reason models.SnapshotReason, by string) (*models.Snapshot, error) {
	entries, err := e.fs.LsTree(root)
	if err != nil {
		return nil, err
	}

	prior, err := e.store.LatestSnapshot(ctx, tx, scope, scopeID)
	if err != nil {
		return nil, err
	}
	var priorTree map[string]string
	if prior != nil {
		priorTree = prior.Tree
	}

	tree := make(map[string]string, len(entries))
	for _, entry := range entries {
		tree[entry.RelativePath] = entry.Hash
		if priorTree[entry.RelativePath] == entry.Hash {
			continue // unchanged since the last snapshot, blob already stored
		}
		content, err := e.fs.ReadFile(filepath.Join(root, filepath.FromSlash(entry.RelativePath)))
		if err != nil {
			return nil, err
		}
		if err := e.writeBlob(entry.Hash, content); err != nil {
			return nil, err
		}
	}

	snap := &models.Snapshot{
		ID:              uuid.NewString(),
		Scope:           scope,
		ScopeID:         scopeID,
		ContentHashRoot: fsadapter.MerkleRoot(entries),
		Tree:            tree,
		Reason:          reason,
		By:              by,
	}
	return e.store.CreateSnapshot(ctx, tx, snap)
}

// Restore materializes a snapshot's tree into root via a staged atomic
// directory replace, so a crash mid-restore never leaves a half-written
// tree in place.
func (e *Engine) Restore(ctx context.Context, snap *models.Snapshot, root string) error {
	files := make(map[string][]byte, len(snap.Tree))
	for relPath, hash := range snap.Tree {
		content, err := e.fs.ReadFile(e.blobPath(hash))
		if err != nil {
			return err
		}
		files[relPath] = content
	}
	staging, err := e.fs.StageDir(root, files)
	if err != nil {
		return err
	}
	return e.fs.AtomicReplaceDir(root, staging)
}

// Rollback implements §4.7: restore the tree to snapshotID's state,
// first taking a compensating snapshot of the tree as it stands right
// now so the rollback itself can be undone.
func (e *Engine) Rollback(ctx context.Context, tx *store.Tx, scope models.SnapshotScope, scopeID, root, snapshotID, by string) (compensating *models.Snapshot, err error) {
	target, err := e.store.GetSnapshot(ctx, tx, snapshotID)
	if err != nil {
		return nil, err
	}
	compensating, err = e.CreateSnapshot(ctx, tx, scope, scopeID, root, models.SnapshotReasonManual, by)
	if err != nil {
		return nil, err
	}
	if err := e.Restore(ctx, target, root); err != nil {
		return compensating, err
	}
	return compensating, nil
}

// GC removes every blob no longer referenced by any snapshot, per the
// retention policy the caller (Orchestrator) enforces by count/age
// before deleting old Snapshot rows.
func (e *Engine) GC(ctx context.Context, tx *store.Tx) ([]string, error) {
	hashes, err := e.store.GCUnreferencedBlobs(ctx, tx)
	if err != nil {
		return nil, err
	}
	for _, hash := range hashes {
		_ = os.Remove(e.blobPath(hash))
	}
	return hashes, nil
}
