package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/miethe/skillmeat/internal/errors"
	"github.com/miethe/skillmeat/internal/models"
)

func (s *Store) CreateGroup(ctx context.Context, tx *Tx, g *models.Group) (*models.Group, error) {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	_, err := s.q(tx).ExecContext(ctx, `INSERT INTO groups (id, collection_id, name, created_at) VALUES (?,?,?,?)`,
		g.ID, g.CollectionID, g.Name, g.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Conflict(g.Name)
		}
		return nil, errors.StoreUnavailable(err)
	}
	return g, nil
}

func (s *Store) GetGroup(ctx context.Context, tx *Tx, id string) (*models.Group, error) {
	row := s.q(tx).QueryRowContext(ctx, `SELECT id, collection_id, name, created_at FROM groups WHERE id=?`, id)
	var g models.Group
	var createdAt string
	if err := row.Scan(&g.ID, &g.CollectionID, &g.Name, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("group", id)
		}
		return nil, errors.StoreUnavailable(err)
	}
	g.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &g, nil
}

func (s *Store) DeleteGroup(ctx context.Context, tx *Tx, id string) error {
	res, err := s.q(tx).ExecContext(ctx, `DELETE FROM groups WHERE id=?`, id)
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errors.NotFound("group", id)
	}
	return nil
}

// AddGroupMember inserts a membership row; on conflict it only updates
// the existing row's position, so repeated adds are idempotent, matching
// the composite import protocol's idempotence requirement (§4.4).
func (s *Store) AddGroupMember(ctx context.Context, tx *Tx, m *models.GroupMembership) error {
	_, err := s.q(tx).ExecContext(ctx, `
		INSERT INTO group_memberships (group_id, artifact_uuid, position) VALUES (?,?,?)
		ON CONFLICT(group_id, artifact_uuid) DO UPDATE SET position=excluded.position`,
		m.GroupID, m.ArtifactUUID, m.Position)
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	return nil
}

func (s *Store) RemoveGroupMember(ctx context.Context, tx *Tx, groupID, artifactUUID string) error {
	_, err := s.q(tx).ExecContext(ctx, `DELETE FROM group_memberships WHERE group_id=? AND artifact_uuid=?`, groupID, artifactUUID)
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	return nil
}

// ListGroupMembers returns members ordered by position, the order C4's
// resolution walk depends on.
func (s *Store) ListGroupMembers(ctx context.Context, tx *Tx, groupID string) ([]*models.GroupMembership, error) {
	rows, err := s.q(tx).QueryContext(ctx, `SELECT group_id, artifact_uuid, position FROM group_memberships WHERE group_id=? ORDER BY position`, groupID)
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	defer rows.Close()
	var out []*models.GroupMembership
	for rows.Next() {
		var m models.GroupMembership
		if err := rows.Scan(&m.GroupID, &m.ArtifactUUID, &m.Position); err != nil {
			return nil, errors.StoreUnavailable(err)
		}
		out = append(out, &m)
	}
	return out, nil
}
