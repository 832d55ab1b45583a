package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/miethe/skillmeat/internal/errors"
	"github.com/miethe/skillmeat/internal/models"
)

func (s *Store) CreateComposite(ctx context.Context, tx *Tx, c *models.CompositeArtifact) (*models.CompositeArtifact, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	meta, err := json.Marshal(c.Metadata)
	if err != nil {
		return nil, errors.Validation("invalid metadata").WithCause(err)
	}
	_, err = s.q(tx).ExecContext(ctx, `INSERT INTO composite_artifacts (id, collection_id, composite_type, metadata, created_at) VALUES (?,?,?,?,?)`,
		c.ID, c.CollectionID, string(c.CompositeType), string(meta), c.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	return c, nil
}

func (s *Store) GetComposite(ctx context.Context, tx *Tx, id string) (*models.CompositeArtifact, error) {
	row := s.q(tx).QueryRowContext(ctx, `SELECT id, collection_id, composite_type, metadata, created_at FROM composite_artifacts WHERE id=?`, id)
	c, err := scanComposite(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("composite", id)
	}
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	return c, nil
}

func (s *Store) DeleteComposite(ctx context.Context, tx *Tx, id string) error {
	res, err := s.q(tx).ExecContext(ctx, `DELETE FROM composite_artifacts WHERE id=?`, id)
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errors.NotFound("composite", id)
	}
	return nil
}

// AddCompositeMember is ON CONFLICT DO NOTHING: re-importing the same
// (composite_id, child) pair is a no-op, making import idempotent.
func (s *Store) AddCompositeMember(ctx context.Context, tx *Tx, m *models.CompositeMembership) error {
	_, err := s.q(tx).ExecContext(ctx, `
		INSERT INTO composite_memberships (composite_id, child_artifact_uuid, position) VALUES (?,?,?)
		ON CONFLICT(composite_id, child_artifact_uuid) DO NOTHING`,
		m.CompositeID, m.ChildArtifactID, m.Position)
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	return nil
}

func (s *Store) RemoveCompositeMember(ctx context.Context, tx *Tx, compositeID, childUUID string) error {
	_, err := s.q(tx).ExecContext(ctx, `DELETE FROM composite_memberships WHERE composite_id=? AND child_artifact_uuid=?`, compositeID, childUUID)
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	return nil
}

func (s *Store) ListCompositeMembers(ctx context.Context, tx *Tx, compositeID string) ([]*models.CompositeMembership, error) {
	rows, err := s.q(tx).QueryContext(ctx, `SELECT composite_id, child_artifact_uuid, position FROM composite_memberships WHERE composite_id=? ORDER BY position`, compositeID)
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	defer rows.Close()
	var out []*models.CompositeMembership
	for rows.Next() {
		var m models.CompositeMembership
		if err := rows.Scan(&m.CompositeID, &m.ChildArtifactID, &m.Position); err != nil {
			return nil, errors.StoreUnavailable(err)
		}
		out = append(out, &m)
	}
	return out, nil
}

func scanComposite(s scanner) (*models.CompositeArtifact, error) {
	var c models.CompositeArtifact
	var typ, meta, createdAt string
	if err := s.Scan(&c.ID, &c.CollectionID, &typ, &meta, &createdAt); err != nil {
		return nil, err
	}
	c.CompositeType = models.CompositeType(typ)
	if meta != "" {
		_ = json.Unmarshal([]byte(meta), &c.Metadata)
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &c, nil
}
