// Package store is the transactional relational Store (C1): the
// authoritative home for artifacts, collections, memberships,
// deployments, snapshots, and memory items. Every mutation goes through
// a transaction handle the Orchestrator can compose multi-repository
// work over.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/miethe/skillmeat/internal/errors"
	"github.com/miethe/skillmeat/internal/logger"
)

// Config configures the underlying sqlite connection.
type Config struct {
	Path        string
	MaxOpenConn int
	MaxIdleConn int
	MaxRetries  int
	RetryDelay  time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Path:        "skillmeat.db",
		MaxOpenConn: 25,
		MaxIdleConn: 5,
		MaxRetries:  3,
		RetryDelay:  100 * time.Millisecond,
	}
}

// Store wraps the sqlite connection pool and exposes typed
// repositories over the SkillMeat schema.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex
	log logger.Logger
}

// Queryer is satisfied by both *sql.DB and *sql.Tx, letting repository
// methods run against either a bare connection or an open transaction.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Tx is an open transaction handle. The Orchestrator composes
// multi-repository work by passing the same Tx to successive
// repository calls, then calling Commit or Rollback once.
type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Commit() error   { return t.tx.Commit() }
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// New opens the sqlite database at config.Path in WAL mode and applies
// the schema (idempotent: CREATE TABLE/INDEX IF NOT EXISTS).
func New(config *Config) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", config.Path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	if config.Path == ":memory:" {
		// An in-memory sqlite database is private per connection; cap the
		// pool at one so every repository call sees the same schema/data.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(config.MaxOpenConn)
	}
	db.SetMaxIdleConns(config.MaxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, errors.StoreUnavailable(err)
	}

	s := &Store{db: db, log: logger.New("store")}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the underlying sqlite connection is reachable, for use
// as a lifecycle health check.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Begin starts a new transaction. The caller must Commit or Rollback.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.StoreUnavailable(err)
	}
	return &Tx{tx: tx}, nil
}

// WithTx runs fn inside a transaction, committing on nil return and
// rolling back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.StoreUnavailable(err)
	}
	return nil
}

// q resolves the Queryer to use for a repository call: the transaction
// when one is supplied, otherwise the bare pooled connection.
func (s *Store) q(tx *Tx) Queryer {
	if tx != nil {
		return tx.tx
	}
	return s.db
}

// isUniqueViolation detects a sqlite UNIQUE constraint error by message
// text, since mattn/go-sqlite3's typed sqlite3.Error requires a build
// tag this module doesn't otherwise need.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "unique_violation")
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
