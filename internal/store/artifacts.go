package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/miethe/skillmeat/internal/errors"
	"github.com/miethe/skillmeat/internal/models"
)

// CreateArtifact inserts a new artifact row. On a unique-key collision
// (A1: collection_id, type, name) it returns errors.Conflict carrying
// the existing uuid rather than erroring blind, so idempotent import
// (§4.4) can resolve identity without a prior read.
func (s *Store) CreateArtifact(ctx context.Context, tx *Tx, a *models.Artifact) (*models.Artifact, error) {
	tags, err := json.Marshal(a.Tags)
	if err != nil {
		return nil, errors.Validation("invalid tags").WithCause(err)
	}
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return nil, errors.Validation("invalid metadata").WithCause(err)
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	_, err = s.q(tx).ExecContext(ctx, `
		INSERT INTO artifacts
			(uuid, collection_id, name, type, origin, upstream, resolved_version,
			 version_spec, content_hash, path_pattern, tags, metadata, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.UUID, a.CollectionID, a.Name, string(a.Type), string(a.Origin),
		nullableString(a.Upstream), nullableString(a.ResolvedVersion), nullableString(a.VersionSpec),
		a.ContentHash, a.PathPattern, string(tags), string(meta),
		a.CreatedAt.Format(time.RFC3339Nano), a.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueViolation(err) {
			existing, findErr := s.FindArtifactByName(ctx, tx, a.CollectionID, a.Type, a.Name)
			if findErr == nil && existing != nil {
				return nil, errors.Conflict(existing.UUID)
			}
			return nil, errors.Conflict("")
		}
		return nil, errors.StoreUnavailable(err)
	}
	return a, nil
}

// UpdateArtifact overwrites the mutable fields of an existing row.
func (s *Store) UpdateArtifact(ctx context.Context, tx *Tx, a *models.Artifact) error {
	tags, _ := json.Marshal(a.Tags)
	meta, _ := json.Marshal(a.Metadata)
	a.UpdatedAt = time.Now().UTC()
	res, err := s.q(tx).ExecContext(ctx, `
		UPDATE artifacts SET name=?, origin=?, upstream=?, resolved_version=?, version_spec=?,
			content_hash=?, path_pattern=?, tags=?, metadata=?, updated_at=?
		WHERE uuid=?`,
		a.Name, string(a.Origin), nullableString(a.Upstream), nullableString(a.ResolvedVersion),
		nullableString(a.VersionSpec), a.ContentHash, a.PathPattern, string(tags), string(meta),
		a.UpdatedAt.Format(time.RFC3339Nano), a.UUID)
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errors.NotFound("artifact", a.UUID)
	}
	return nil
}

// DeleteArtifact removes an artifact row; composite_memberships,
// group_memberships, and deployments referencing it cascade.
func (s *Store) DeleteArtifact(ctx context.Context, tx *Tx, uuid string) error {
	res, err := s.q(tx).ExecContext(ctx, `DELETE FROM artifacts WHERE uuid=?`, uuid)
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errors.NotFound("artifact", uuid)
	}
	return nil
}

func (s *Store) GetArtifact(ctx context.Context, tx *Tx, uuid string) (*models.Artifact, error) {
	row := s.q(tx).QueryRowContext(ctx, artifactSelect+` WHERE uuid=?`, uuid)
	a, err := scanArtifact(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("artifact", uuid)
	}
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	return a, nil
}

// FindArtifactByContentHash is the first-tier identity resolution step
// from §4.3: a content-hash match always wins.
func (s *Store) FindArtifactByContentHash(ctx context.Context, tx *Tx, collectionID, contentHash string) (*models.Artifact, error) {
	row := s.q(tx).QueryRowContext(ctx, artifactSelect+` WHERE collection_id=? AND content_hash=? LIMIT 1`, collectionID, contentHash)
	return scanArtifactOrNil(row)
}

// FindArtifactByUpstream is the second-tier identity resolution step:
// (origin, upstream, type, name) match.
func (s *Store) FindArtifactByUpstream(ctx context.Context, tx *Tx, collectionID string, origin models.Origin, upstream string, typ models.ArtifactType, name string) (*models.Artifact, error) {
	row := s.q(tx).QueryRowContext(ctx, artifactSelect+
		` WHERE collection_id=? AND origin=? AND upstream=? AND type=? AND name=? LIMIT 1`,
		collectionID, string(origin), upstream, string(typ), name)
	return scanArtifactOrNil(row)
}

func (s *Store) FindArtifactByName(ctx context.Context, tx *Tx, collectionID string, typ models.ArtifactType, name string) (*models.Artifact, error) {
	row := s.q(tx).QueryRowContext(ctx, artifactSelect+
		` WHERE collection_id=? AND type=? AND name=? LIMIT 1`, collectionID, string(typ), name)
	return scanArtifactOrNil(row)
}

// ListArtifactsByCollection is cursor-paginated over (type, name, uuid).
func (s *Store) ListArtifactsByCollection(ctx context.Context, tx *Tx, collectionID string, opts ListOptions) ([]*models.Artifact, Page, error) {
	parts, err := decodeCursor(opts.Cursor)
	if err != nil {
		return nil, Page{}, errors.Validation(err.Error())
	}
	var afterType, afterName, afterUUID string
	if len(parts) == 3 {
		afterType, afterName, afterUUID = parts[0], parts[1], parts[2]
	}
	limit := opts.pageSize()
	query := artifactSelect + ` WHERE collection_id=? AND (type,name,uuid) > (?,?,?) ORDER BY type,name,uuid LIMIT ?`
	rows, err := s.q(tx).QueryContext(ctx, query, collectionID, afterType, afterName, afterUUID, limit+1)
	if err != nil {
		return nil, Page{}, errors.StoreUnavailable(err)
	}
	defer rows.Close()

	var out []*models.Artifact
	for rows.Next() {
		a, err := scanArtifactRows(rows)
		if err != nil {
			return nil, Page{}, errors.StoreUnavailable(err)
		}
		out = append(out, a)
	}
	page := Page{}
	if len(out) > limit {
		last := out[limit-1]
		page.Cursor = encodeCursor(string(last.Type), last.Name, last.UUID)
		page.HasMore = true
		out = out[:limit]
	}
	return out, page, nil
}

const artifactSelect = `SELECT uuid, collection_id, name, type, origin, upstream, resolved_version,
	version_spec, content_hash, path_pattern, tags, metadata, created_at, updated_at FROM artifacts`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanArtifact(row *sql.Row) (*models.Artifact, error)   { return scanArtifactAny(row) }
func scanArtifactRows(rows *sql.Rows) (*models.Artifact, error) { return scanArtifactAny(rows) }

func scanArtifactOrNil(row *sql.Row) (*models.Artifact, error) {
	a, err := scanArtifactAny(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	return a, nil
}

func scanArtifactAny(s scanner) (*models.Artifact, error) {
	var a models.Artifact
	var typ, origin, upstream, resolvedVersion, versionSpec, tags, meta, createdAt, updatedAt sql.NullString
	if err := s.Scan(&a.UUID, &a.CollectionID, &a.Name, &typ, &origin, &upstream, &resolvedVersion,
		&versionSpec, &a.ContentHash, &a.PathPattern, &tags, &meta, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.Type = models.ArtifactType(typ.String)
	a.Origin = models.Origin(origin.String)
	a.Upstream = upstream.String
	a.ResolvedVersion = resolvedVersion.String
	a.VersionSpec = versionSpec.String
	if tags.Valid && tags.String != "" {
		_ = json.Unmarshal([]byte(tags.String), &a.Tags)
	}
	if meta.Valid && meta.String != "" {
		_ = json.Unmarshal([]byte(meta.String), &a.Metadata)
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt.String)
	a.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt.String)
	return &a, nil
}

// splitTags is a small helper used by CLI rendering of the tags set.
func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
