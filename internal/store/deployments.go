package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/miethe/skillmeat/internal/errors"
	"github.com/miethe/skillmeat/internal/models"
)

// UpsertDeployment inserts or refreshes a deployment row. Re-deploying
// an artifact whose content hasn't changed still bumps deployed_at
// (§4.5 idempotence).
func (s *Store) UpsertDeployment(ctx context.Context, tx *Tx, d *models.Deployment) error {
	if d.DeployedAt.IsZero() {
		d.DeployedAt = time.Now().UTC()
	}
	_, err := s.q(tx).ExecContext(ctx, `
		INSERT INTO deployments (artifact_uuid, project_id, profile_id, deployed_at, source_content_hash, deployed_path)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(artifact_uuid, project_id, profile_id) DO UPDATE SET
			deployed_at=excluded.deployed_at,
			source_content_hash=excluded.source_content_hash,
			deployed_path=excluded.deployed_path`,
		d.ArtifactUUID, d.ProjectID, d.ProfileID, d.DeployedAt.Format(time.RFC3339Nano), d.SourceContentHash, d.DeployedPath)
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	return nil
}

func (s *Store) GetDeployment(ctx context.Context, tx *Tx, artifactUUID, projectID, profileID string) (*models.Deployment, error) {
	row := s.q(tx).QueryRowContext(ctx, deploymentSelect+` WHERE artifact_uuid=? AND project_id=? AND profile_id=?`,
		artifactUUID, projectID, profileID)
	d, err := scanDeployment(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("deployment", artifactUUID)
	}
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	return d, nil
}

func (s *Store) ListDeploymentsByProject(ctx context.Context, tx *Tx, projectID string) ([]*models.Deployment, error) {
	rows, err := s.q(tx).QueryContext(ctx, deploymentSelect+` WHERE project_id=? ORDER BY artifact_uuid`, projectID)
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	defer rows.Close()
	var out []*models.Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, errors.StoreUnavailable(err)
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Store) ListDeploymentsByArtifact(ctx context.Context, tx *Tx, artifactUUID string) ([]*models.Deployment, error) {
	rows, err := s.q(tx).QueryContext(ctx, deploymentSelect+` WHERE artifact_uuid=? ORDER BY project_id`, artifactUUID)
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	defer rows.Close()
	var out []*models.Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, errors.StoreUnavailable(err)
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Store) DeleteDeployment(ctx context.Context, tx *Tx, artifactUUID, projectID, profileID string) error {
	res, err := s.q(tx).ExecContext(ctx, `DELETE FROM deployments WHERE artifact_uuid=? AND project_id=? AND profile_id=?`,
		artifactUUID, projectID, profileID)
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errors.NotFound("deployment", artifactUUID)
	}
	return nil
}

const deploymentSelect = `SELECT artifact_uuid, project_id, profile_id, deployed_at, source_content_hash, deployed_path FROM deployments`

func scanDeployment(s scanner) (*models.Deployment, error) {
	var d models.Deployment
	var deployedAt string
	if err := s.Scan(&d.ArtifactUUID, &d.ProjectID, &d.ProfileID, &deployedAt, &d.SourceContentHash, &d.DeployedPath); err != nil {
		return nil, err
	}
	d.DeployedAt, _ = time.Parse(time.RFC3339Nano, deployedAt)
	return &d, nil
}
