package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/miethe/skillmeat/internal/errors"
	"github.com/miethe/skillmeat/internal/models"
)

// validate runs the struct tag checks on MemoryItem (content length,
// enum membership) that §3.1 requires regardless of which caller built
// the row. A single validator instance is reused across calls; it is
// safe for concurrent use.
var validate = validator.New()

// CreateMemoryItem inserts a candidate row. The (project_id,
// content_hash) unique constraint is the dedup guard against exact
// duplicates (§3.1); a violation returns Conflict(existing_id) so the
// extractor can skip re-insertion instead of erroring the whole batch.
func (s *Store) CreateMemoryItem(ctx context.Context, tx *Tx, m *models.MemoryItem) (*models.MemoryItem, error) {
	if err := validate.Struct(m); err != nil {
		return nil, errors.Validation("invalid memory item: " + err.Error())
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	prov, err := json.Marshal(m.Provenance)
	if err != nil {
		return nil, errors.Validation("invalid provenance").WithCause(err)
	}
	anchors, _ := json.Marshal(m.Anchors)

	_, err = s.q(tx).ExecContext(ctx, `
		INSERT INTO memory_items
			(id, project_id, type, content, confidence, status, provenance, anchors, ttl_policy,
			 content_hash, created_at, updated_at, deprecated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.ProjectID, string(m.Type), m.Content, m.Confidence, string(m.Status), string(prov),
		string(anchors), nullableString(m.TTLPolicy), m.ContentHash,
		m.CreatedAt.Format(time.RFC3339Nano), m.UpdatedAt.Format(time.RFC3339Nano), nullableTime(m.DeprecatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			existing, findErr := s.FindMemoryItemByContentHash(ctx, tx, m.ProjectID, m.ContentHash)
			if findErr == nil && existing != nil {
				return nil, errors.Conflict(existing.ID)
			}
			return nil, errors.Conflict("")
		}
		return nil, errors.StoreUnavailable(err)
	}
	return m, nil
}

func (s *Store) GetMemoryItem(ctx context.Context, tx *Tx, id string) (*models.MemoryItem, error) {
	row := s.q(tx).QueryRowContext(ctx, memoryItemSelect+` WHERE id=?`, id)
	m, err := scanMemoryItem(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("memory_item", id)
	}
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	return m, nil
}

func (s *Store) FindMemoryItemByContentHash(ctx context.Context, tx *Tx, projectID, contentHash string) (*models.MemoryItem, error) {
	row := s.q(tx).QueryRowContext(ctx, memoryItemSelect+` WHERE project_id=? AND content_hash=?`, projectID, contentHash)
	m, err := scanMemoryItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	return m, nil
}

func (s *Store) ListMemoryItemsByStatus(ctx context.Context, tx *Tx, projectID string, status models.MemoryItemStatus) ([]*models.MemoryItem, error) {
	rows, err := s.q(tx).QueryContext(ctx, memoryItemSelect+` WHERE project_id=? AND status=? ORDER BY confidence DESC, created_at DESC`,
		projectID, string(status))
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	defer rows.Close()
	return scanMemoryItems(rows)
}

func (s *Store) ListMemoryItemsByType(ctx context.Context, tx *Tx, projectID string, typ models.MemoryItemType) ([]*models.MemoryItem, error) {
	rows, err := s.q(tx).QueryContext(ctx, memoryItemSelect+` WHERE project_id=? AND type=? ORDER BY confidence DESC, created_at DESC`,
		projectID, string(typ))
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	defer rows.Close()
	return scanMemoryItems(rows)
}

// ListMemoryItemsForPack returns every non-deprecated item for a
// project; C9 does the selector filtering and ranking in-process.
func (s *Store) ListMemoryItemsForPack(ctx context.Context, tx *Tx, projectID string) ([]*models.MemoryItem, error) {
	rows, err := s.q(tx).QueryContext(ctx, memoryItemSelect+` WHERE project_id=? AND status != 'deprecated' ORDER BY confidence DESC, created_at DESC`, projectID)
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	defer rows.Close()
	return scanMemoryItems(rows)
}

// TransitionMemoryItem applies a status change, validating it against
// the candidate->active->stable forward / any->deprecated rule before
// writing (§3.1).
func (s *Store) TransitionMemoryItem(ctx context.Context, tx *Tx, id string, next models.MemoryItemStatus) error {
	m, err := s.GetMemoryItem(ctx, tx, id)
	if err != nil {
		return err
	}
	if !m.CanTransition(next) {
		return errors.Validation("invalid memory item status transition: " + string(m.Status) + " -> " + string(next))
	}
	now := time.Now().UTC()
	var deprecatedAt interface{}
	if next == models.MemoryStatusDeprecated {
		deprecatedAt = now.Format(time.RFC3339Nano)
	}
	_, err = s.q(tx).ExecContext(ctx, `UPDATE memory_items SET status=?, updated_at=?, deprecated_at=? WHERE id=?`,
		string(next), now.Format(time.RFC3339Nano), deprecatedAt, id)
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	return nil
}

func (s *Store) DeleteMemoryItem(ctx context.Context, tx *Tx, id string) error {
	res, err := s.q(tx).ExecContext(ctx, `DELETE FROM memory_items WHERE id=?`, id)
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errors.NotFound("memory_item", id)
	}
	return nil
}

const memoryItemSelect = `SELECT id, project_id, type, content, confidence, status, provenance, anchors,
	ttl_policy, content_hash, created_at, updated_at, deprecated_at FROM memory_items`

func scanMemoryItems(rows *sql.Rows) ([]*models.MemoryItem, error) {
	var out []*models.MemoryItem
	for rows.Next() {
		m, err := scanMemoryItem(rows)
		if err != nil {
			return nil, errors.StoreUnavailable(err)
		}
		out = append(out, m)
	}
	return out, nil
}

func scanMemoryItem(s scanner) (*models.MemoryItem, error) {
	var m models.MemoryItem
	var typ, status, provenance, anchors, ttlPolicy, createdAt, updatedAt string
	var deprecatedAt sql.NullString
	if err := s.Scan(&m.ID, &m.ProjectID, &typ, &m.Content, &m.Confidence, &status, &provenance,
		&anchors, &ttlPolicy, &m.ContentHash, &createdAt, &updatedAt, &deprecatedAt); err != nil {
		return nil, err
	}
	m.Type = models.MemoryItemType(typ)
	m.Status = models.MemoryItemStatus(status)
	m.TTLPolicy = ttlPolicy
	_ = json.Unmarshal([]byte(provenance), &m.Provenance)
	if anchors != "" {
		_ = json.Unmarshal([]byte(anchors), &m.Anchors)
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	m.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	if deprecatedAt.Valid && deprecatedAt.String != "" {
		t, err := time.Parse(time.RFC3339Nano, deprecatedAt.String)
		if err == nil {
			m.DeprecatedAt = &t
		}
	}
	return &m, nil
}
