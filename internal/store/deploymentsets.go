package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/miethe/skillmeat/internal/errors"
	"github.com/miethe/skillmeat/internal/models"
)

func (s *Store) CreateDeploymentSet(ctx context.Context, tx *Tx, set *models.DeploymentSet) (*models.DeploymentSet, error) {
	if set.CreatedAt.IsZero() {
		set.CreatedAt = time.Now().UTC()
	}
	_, err := s.q(tx).ExecContext(ctx, `INSERT INTO deployment_sets (id, owner_id, name, created_at) VALUES (?,?,?,?)`,
		set.ID, set.OwnerID, set.Name, set.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Conflict(set.Name)
		}
		return nil, errors.StoreUnavailable(err)
	}
	return set, nil
}

func (s *Store) GetDeploymentSet(ctx context.Context, tx *Tx, id string) (*models.DeploymentSet, error) {
	row := s.q(tx).QueryRowContext(ctx, `SELECT id, owner_id, name, created_at FROM deployment_sets WHERE id=?`, id)
	var set models.DeploymentSet
	var createdAt string
	if err := row.Scan(&set.ID, &set.OwnerID, &set.Name, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("deployment_set", id)
		}
		return nil, errors.StoreUnavailable(err)
	}
	set.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &set, nil
}

// DeleteDeploymentSet removes the set row. Rows in other sets'
// deployment_set_members that reference this one via member_set_id
// cascade (FR-10: no dangling references left behind).
func (s *Store) DeleteDeploymentSet(ctx context.Context, tx *Tx, id string) error {
	res, err := s.q(tx).ExecContext(ctx, `DELETE FROM deployment_sets WHERE id=?`, id)
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errors.NotFound("deployment_set", id)
	}
	return nil
}

// AddDeploymentSetMember validates the tagged-union shape in-process
// (defense in depth ahead of the DB CHECK constraint) before inserting.
func (s *Store) AddDeploymentSetMember(ctx context.Context, tx *Tx, setID string, m *models.DeploymentSetMember) error {
	if err := m.Validate(); err != nil {
		return errors.Validation(err.Error())
	}
	m.SetID = setID
	_, err := s.q(tx).ExecContext(ctx, `
		INSERT INTO deployment_set_members (set_id, kind, artifact_uuid, group_id, member_set_id, position)
		VALUES (?,?,?,?,?,?)`,
		m.SetID, string(m.Kind), nullableString(m.ArtifactID), nullableString(m.GroupID), nullableString(m.MemberSetID), m.Position)
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	return nil
}

func (s *Store) RemoveDeploymentSetMember(ctx context.Context, tx *Tx, setID string, m *models.DeploymentSetMember) error {
	var err error
	switch m.Kind {
	case models.MemberKindArtifact:
		_, err = s.q(tx).ExecContext(ctx, `DELETE FROM deployment_set_members WHERE set_id=? AND kind='artifact' AND artifact_uuid=?`, setID, m.ArtifactID)
	case models.MemberKindGroup:
		_, err = s.q(tx).ExecContext(ctx, `DELETE FROM deployment_set_members WHERE set_id=? AND kind='group' AND group_id=?`, setID, m.GroupID)
	case models.MemberKindMemberSet:
		_, err = s.q(tx).ExecContext(ctx, `DELETE FROM deployment_set_members WHERE set_id=? AND kind='member_set' AND member_set_id=?`, setID, m.MemberSetID)
	}
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	return nil
}

func (s *Store) ListDeploymentSetMembers(ctx context.Context, tx *Tx, setID string) ([]*models.DeploymentSetMember, error) {
	rows, err := s.q(tx).QueryContext(ctx, `
		SELECT set_id, kind, COALESCE(artifact_uuid,''), COALESCE(group_id,''), COALESCE(member_set_id,''), position
		FROM deployment_set_members WHERE set_id=? ORDER BY position`, setID)
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	defer rows.Close()
	var out []*models.DeploymentSetMember
	for rows.Next() {
		var m models.DeploymentSetMember
		var kind string
		if err := rows.Scan(&m.SetID, &kind, &m.ArtifactID, &m.GroupID, &m.MemberSetID, &m.Position); err != nil {
			return nil, errors.StoreUnavailable(err)
		}
		m.Kind = models.MemberKind(kind)
		out = append(out, &m)
	}
	return out, nil
}

// ListNestedSetChildren returns the ids of every deployment_set
// directly nested inside setID (i.e. member rows of kind member_set
// whose set_id is setID) — the single-hop descendant edge.
func (s *Store) ListNestedSetChildren(ctx context.Context, tx *Tx, setID string) ([]string, error) {
	rows, err := s.q(tx).QueryContext(ctx, `SELECT member_set_id FROM deployment_set_members WHERE kind='member_set' AND set_id=?`, setID)
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.StoreUnavailable(err)
		}
		out = append(out, id)
	}
	return out, nil
}

// ListNestedSetParents returns the ids of every deployment_set that
// directly contains setID as a member_set — the single-hop edge C4's
// descendant-reachability cycle check walks transitively.
func (s *Store) ListNestedSetParents(ctx context.Context, tx *Tx, setID string) ([]string, error) {
	rows, err := s.q(tx).QueryContext(ctx, `SELECT set_id FROM deployment_set_members WHERE kind='member_set' AND member_set_id=?`, setID)
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.StoreUnavailable(err)
		}
		out = append(out, id)
	}
	return out, nil
}
