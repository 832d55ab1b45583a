package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/miethe/skillmeat/internal/errors"
	"github.com/miethe/skillmeat/internal/models"
)

func (s *Store) CreateSnapshot(ctx context.Context, tx *Tx, snap *models.Snapshot) (*models.Snapshot, error) {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	tree, err := json.Marshal(snap.Tree)
	if err != nil {
		return nil, errors.Validation("invalid tree").WithCause(err)
	}
	_, err = s.q(tx).ExecContext(ctx, `
		INSERT INTO snapshots (id, scope, scope_id, content_hash_root, tree, created_at, reason, by)
		VALUES (?,?,?,?,?,?,?,?)`,
		snap.ID, string(snap.Scope), snap.ScopeID, snap.ContentHashRoot, string(tree),
		snap.CreatedAt.Format(time.RFC3339Nano), string(snap.Reason), snap.By)
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	for _, blobHash := range snap.Tree {
		if err := s.touchBlob(ctx, tx, blobHash, 1); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// touchBlob increments (or, with a negative delta, decrements) a
// content-addressed blob's reference count, inserting the row on first
// reference. GC (§4.7 retention) removes rows whose ref_count reaches 0.
func (s *Store) touchBlob(ctx context.Context, tx *Tx, hash string, delta int) error {
	_, err := s.q(tx).ExecContext(ctx, `
		INSERT INTO snapshot_blobs (hash, size_bytes, ref_count) VALUES (?, 0, ?)
		ON CONFLICT(hash) DO UPDATE SET ref_count = ref_count + ?`,
		hash, delta, delta)
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	return nil
}

func (s *Store) GetSnapshot(ctx context.Context, tx *Tx, id string) (*models.Snapshot, error) {
	row := s.q(tx).QueryRowContext(ctx, snapshotSelect+` WHERE id=?`, id)
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("snapshot", id)
	}
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	return snap, nil
}

func (s *Store) ListSnapshots(ctx context.Context, tx *Tx, scope models.SnapshotScope, scopeID string) ([]*models.Snapshot, error) {
	rows, err := s.q(tx).QueryContext(ctx, snapshotSelect+` WHERE scope=? AND scope_id=? ORDER BY created_at DESC`, string(scope), scopeID)
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	defer rows.Close()
	var out []*models.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, errors.StoreUnavailable(err)
		}
		out = append(out, snap)
	}
	return out, nil
}

// LatestSnapshot returns the most recent snapshot for a scope, used to
// compute an O(files-changed) diff for the next create_snapshot call.
func (s *Store) LatestSnapshot(ctx context.Context, tx *Tx, scope models.SnapshotScope, scopeID string) (*models.Snapshot, error) {
	row := s.q(tx).QueryRowContext(ctx, snapshotSelect+` WHERE scope=? AND scope_id=? ORDER BY created_at DESC LIMIT 1`, string(scope), scopeID)
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	return snap, nil
}

// DeleteSnapshot is only safe to call once the caller has verified (via
// GC reachability, not enforced here) that no later snapshot is the
// sole referent of this one's blob set.
func (s *Store) DeleteSnapshot(ctx context.Context, tx *Tx, id string) error {
	snap, err := s.GetSnapshot(ctx, tx, id)
	if err != nil {
		return err
	}
	if _, err := s.q(tx).ExecContext(ctx, `DELETE FROM snapshots WHERE id=?`, id); err != nil {
		return errors.StoreUnavailable(err)
	}
	for _, blobHash := range snap.Tree {
		if err := s.touchBlob(ctx, tx, blobHash, -1); err != nil {
			return err
		}
	}
	return nil
}

// GCUnreferencedBlobs deletes every blob row whose ref_count has
// dropped to zero or below, returning the hashes removed so the
// filesystem blob store can delete the corresponding objects.
func (s *Store) GCUnreferencedBlobs(ctx context.Context, tx *Tx) ([]string, error) {
	rows, err := s.q(tx).QueryContext(ctx, `SELECT hash FROM snapshot_blobs WHERE ref_count <= 0`)
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			rows.Close()
			return nil, errors.StoreUnavailable(err)
		}
		hashes = append(hashes, h)
	}
	rows.Close()
	if len(hashes) == 0 {
		return nil, nil
	}
	if _, err := s.q(tx).ExecContext(ctx, `DELETE FROM snapshot_blobs WHERE ref_count <= 0`); err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	return hashes, nil
}

const snapshotSelect = `SELECT id, scope, scope_id, content_hash_root, tree, created_at, reason, by FROM snapshots`

func scanSnapshot(s scanner) (*models.Snapshot, error) {
	var snap models.Snapshot
	var scope, tree, createdAt, reason string
	if err := s.Scan(&snap.ID, &scope, &snap.ScopeID, &snap.ContentHashRoot, &tree, &createdAt, &reason, &snap.By); err != nil {
		return nil, err
	}
	snap.Scope = models.SnapshotScope(scope)
	snap.Reason = models.SnapshotReason(reason)
	_ = json.Unmarshal([]byte(tree), &snap.Tree)
	snap.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &snap, nil
}
