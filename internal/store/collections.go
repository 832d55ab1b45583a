package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/miethe/skillmeat/internal/errors"
	"github.com/miethe/skillmeat/internal/models"
)

func (s *Store) CreateCollection(ctx context.Context, tx *Tx, c *models.Collection) (*models.Collection, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.q(tx).ExecContext(ctx, `INSERT INTO collections (id, name, root, is_active, created_at) VALUES (?,?,?,?,?)`,
		c.ID, c.Name, c.Root, boolToInt(c.IsActive), c.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		if isUniqueViolation(err) {
			existing, findErr := s.GetCollectionByName(ctx, tx, c.Name)
			if findErr == nil && existing != nil {
				return nil, errors.Conflict(existing.ID)
			}
			return nil, errors.Conflict("")
		}
		return nil, errors.StoreUnavailable(err)
	}
	return c, nil
}

func (s *Store) GetCollection(ctx context.Context, tx *Tx, id string) (*models.Collection, error) {
	row := s.q(tx).QueryRowContext(ctx, collectionSelect+` WHERE id=?`, id)
	c, err := scanCollection(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("collection", id)
	}
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	return c, nil
}

func (s *Store) GetCollectionByName(ctx context.Context, tx *Tx, name string) (*models.Collection, error) {
	row := s.q(tx).QueryRowContext(ctx, collectionSelect+` WHERE name=?`, name)
	c, err := scanCollection(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	return c, nil
}

func (s *Store) GetActiveCollection(ctx context.Context, tx *Tx) (*models.Collection, error) {
	row := s.q(tx).QueryRowContext(ctx, collectionSelect+` WHERE is_active=1 LIMIT 1`)
	c, err := scanCollection(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("collection", "active")
	}
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	return c, nil
}

func (s *Store) ListCollections(ctx context.Context, tx *Tx) ([]*models.Collection, error) {
	rows, err := s.q(tx).QueryContext(ctx, collectionSelect+` ORDER BY name`)
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	defer rows.Close()
	var out []*models.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, errors.StoreUnavailable(err)
		}
		out = append(out, c)
	}
	return out, nil
}

// SetActiveCollection clears the active flag from every collection and
// sets it on id, inside the caller's transaction so the swap is atomic.
func (s *Store) SetActiveCollection(ctx context.Context, tx *Tx, id string) error {
	q := s.q(tx)
	if _, err := q.ExecContext(ctx, `UPDATE collections SET is_active=0`); err != nil {
		return errors.StoreUnavailable(err)
	}
	res, err := q.ExecContext(ctx, `UPDATE collections SET is_active=1 WHERE id=?`, id)
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errors.NotFound("collection", id)
	}
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, tx *Tx, id string) error {
	res, err := s.q(tx).ExecContext(ctx, `DELETE FROM collections WHERE id=?`, id)
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errors.NotFound("collection", id)
	}
	return nil
}

const collectionSelect = `SELECT id, name, root, is_active, created_at FROM collections`

func scanCollection(s scanner) (*models.Collection, error) {
	var c models.Collection
	var isActive int
	var createdAt string
	if err := s.Scan(&c.ID, &c.Name, &c.Root, &isActive, &createdAt); err != nil {
		return nil, err
	}
	c.IsActive = isActive != 0
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
