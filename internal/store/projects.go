package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/miethe/skillmeat/internal/errors"
	"github.com/miethe/skillmeat/internal/models"
)

func (s *Store) CreateProject(ctx context.Context, tx *Tx, p *models.Project) (*models.Project, error) {
	_, err := s.q(tx).ExecContext(ctx, `INSERT INTO projects (id, name, path, last_deployment, deployment_count) VALUES (?,?,?,?,?)`,
		p.ID, p.Name, p.Path, nullableTime(p.LastDeployment), p.DeploymentCount)
	if err != nil {
		if isUniqueViolation(err) {
			existing, findErr := s.GetProjectByPath(ctx, tx, p.Path)
			if findErr == nil && existing != nil {
				return nil, errors.Conflict(existing.ID)
			}
			return nil, errors.Conflict("")
		}
		return nil, errors.StoreUnavailable(err)
	}
	return p, nil
}

func (s *Store) GetProject(ctx context.Context, tx *Tx, id string) (*models.Project, error) {
	row := s.q(tx).QueryRowContext(ctx, projectSelect+` WHERE id=?`, id)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("project", id)
	}
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	return p, nil
}

func (s *Store) GetProjectByPath(ctx context.Context, tx *Tx, path string) (*models.Project, error) {
	row := s.q(tx).QueryRowContext(ctx, projectSelect+` WHERE path=?`, path)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	return p, nil
}

func (s *Store) ListProjects(ctx context.Context, tx *Tx) ([]*models.Project, error) {
	rows, err := s.q(tx).QueryContext(ctx, projectSelect+` ORDER BY name`)
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	defer rows.Close()
	var out []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, errors.StoreUnavailable(err)
		}
		out = append(out, p)
	}
	return out, nil
}

// RecordDeploymentOnProject bumps last_deployment and
// deployment_count — the materialized fields §3.1 calls out — as part
// of the same transaction as a deploy apply.
func (s *Store) RecordDeploymentOnProject(ctx context.Context, tx *Tx, projectID string, at time.Time) error {
	_, err := s.q(tx).ExecContext(ctx, `UPDATE projects SET last_deployment=?, deployment_count=deployment_count+1 WHERE id=?`,
		at.Format(time.RFC3339Nano), projectID)
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, tx *Tx, id string) error {
	res, err := s.q(tx).ExecContext(ctx, `DELETE FROM projects WHERE id=?`, id)
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errors.NotFound("project", id)
	}
	return nil
}

const projectSelect = `SELECT id, name, path, last_deployment, deployment_count FROM projects`

func scanProject(s scanner) (*models.Project, error) {
	var p models.Project
	var lastDeployment sql.NullString
	if err := s.Scan(&p.ID, &p.Name, &p.Path, &lastDeployment, &p.DeploymentCount); err != nil {
		return nil, err
	}
	if lastDeployment.Valid && lastDeployment.String != "" {
		t, err := time.Parse(time.RFC3339Nano, lastDeployment.String)
		if err == nil {
			p.LastDeployment = &t
		}
	}
	return &p, nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}
