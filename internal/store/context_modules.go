package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/miethe/skillmeat/internal/errors"
	"github.com/miethe/skillmeat/internal/models"
)

func (s *Store) CreateContextModule(ctx context.Context, tx *Tx, m *models.ContextModule) (*models.ContextModule, error) {
	selectors, err := json.Marshal(m.Selectors)
	if err != nil {
		return nil, errors.Validation("invalid selectors").WithCause(err)
	}
	members, _ := json.Marshal(m.MemberIDs)
	_, err = s.q(tx).ExecContext(ctx, `INSERT INTO context_modules (id, project_id, name, selectors, member_ids) VALUES (?,?,?,?,?)`,
		m.ID, m.ProjectID, m.Name, string(selectors), string(members))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.Conflict(m.Name)
		}
		return nil, errors.StoreUnavailable(err)
	}
	return m, nil
}

func (s *Store) GetContextModule(ctx context.Context, tx *Tx, id string) (*models.ContextModule, error) {
	row := s.q(tx).QueryRowContext(ctx, `SELECT id, project_id, name, selectors, member_ids FROM context_modules WHERE id=?`, id)
	m, err := scanContextModule(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("context_module", id)
	}
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	return m, nil
}

func (s *Store) ListContextModules(ctx context.Context, tx *Tx, projectID string) ([]*models.ContextModule, error) {
	rows, err := s.q(tx).QueryContext(ctx, `SELECT id, project_id, name, selectors, member_ids FROM context_modules WHERE project_id=? ORDER BY name`, projectID)
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	defer rows.Close()
	var out []*models.ContextModule
	for rows.Next() {
		m, err := scanContextModule(rows)
		if err != nil {
			return nil, errors.StoreUnavailable(err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) DeleteContextModule(ctx context.Context, tx *Tx, id string) error {
	res, err := s.q(tx).ExecContext(ctx, `DELETE FROM context_modules WHERE id=?`, id)
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errors.NotFound("context_module", id)
	}
	return nil
}

func scanContextModule(s scanner) (*models.ContextModule, error) {
	var m models.ContextModule
	var selectors, members string
	if err := s.Scan(&m.ID, &m.ProjectID, &m.Name, &selectors, &members); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(selectors), &m.Selectors)
	if members != "" {
		_ = json.Unmarshal([]byte(members), &m.MemberIDs)
	}
	return &m, nil
}
