// Package app wires SkillMeat's collaborators (Store, FS Adapter,
// event bus, Orchestrator) from a loaded config.Config, the same
// bootstrap sequence the CLI and the HTTP API both start from.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/miethe/skillmeat/internal/config"
	skillmeaterrors "github.com/miethe/skillmeat/internal/errors"
	"github.com/miethe/skillmeat/internal/events"
	"github.com/miethe/skillmeat/internal/fsadapter"
	"github.com/miethe/skillmeat/internal/lifecycle"
	"github.com/miethe/skillmeat/internal/logger"
	"github.com/miethe/skillmeat/internal/models"
	"github.com/miethe/skillmeat/internal/orchestrator"
	"github.com/miethe/skillmeat/internal/store"
)

// eventBusBuffer bounds the replay buffer every subscriber can draw
// from (§6.3's at-least-once invalidation contract tolerates a
// subscriber missing events older than this).
const eventBusBuffer = 256

// App holds every long-lived collaborator for one process lifetime.
type App struct {
	Config       *config.Config
	Store        *store.Store
	FS           *fsadapter.Adapter
	Bus          *events.Bus
	Orchestrator *orchestrator.Orchestrator
	Shutdown     *lifecycle.Manager
	Log          logger.Logger
}

// New loads configPath (empty uses defaults plus env overrides), opens
// the store, and wires the Orchestrator. The returned App's Shutdown
// manager already has the store's close registered; callers add their
// own server/listener shutdown hooks on top.
func New(configPath string) (*App, error) {
	mgr := config.NewManager()
	if err := mgr.Load(configPath); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewWithConfig(mgr.Config())
}

// NewWithConfig wires the same collaborators as New but from an
// already-built Config, letting callers (tests, or a CLI flag that
// overrides a loaded config in place) skip the file/env load step.
func NewWithConfig(cfg *config.Config) (*App, error) {
	log := logger.New("app")

	if err := os.MkdirAll(cfg.Collection.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create collection root: %w", err)
	}
	if dir := filepath.Dir(cfg.Store.DSN); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	s, err := store.New(&store.Config{
		Path:        cfg.Store.DSN,
		MaxOpenConn: cfg.Store.MaxOpenConn,
		MaxIdleConn: cfg.Store.MaxIdleConn,
		MaxRetries:  cfg.Store.MaxRetries,
		RetryDelay:  cfg.Store.RetryDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	fs := fsadapter.New()
	bus := events.NewBus(eventBusBuffer)
	blobDir := filepath.Join(filepath.Dir(cfg.Store.DSN), "snapshots")
	orch := orchestrator.New(s, fs, bus, blobDir)

	shutdown := lifecycle.NewManager(cfg.Server.WriteTimeout)
	shutdown.RegisterShutdown("store", 10, func(ctx context.Context) error {
		return s.Close()
	})
	shutdown.RegisterHealthCheck(lifecycle.HealthCheck{
		Name:    "store",
		Check:   s.Ping,
		Timeout: 2 * time.Second,
	})

	return &App{
		Config:       cfg,
		Store:        s,
		FS:           fs,
		Bus:          bus,
		Orchestrator: orch,
		Shutdown:     shutdown,
		Log:          log,
	}, nil
}

// EnsureCollection returns the active collection, creating a default
// one rooted at cfg.Collection.Root on first run.
func (a *App) EnsureCollection(ctx context.Context) (*CollectionRef, error) {
	existing, err := a.Store.GetActiveCollection(ctx, nil)
	if err != nil && !skillmeaterrors.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return &CollectionRef{ID: existing.ID, Root: existing.Root}, nil
	}
	created, err := a.Store.CreateCollection(ctx, nil, &models.Collection{
		ID:       uuid.NewString(),
		Name:     "default",
		Root:     a.Config.Collection.Root,
		IsActive: true,
	})
	if err != nil {
		return nil, err
	}
	return &CollectionRef{ID: created.ID, Root: created.Root}, nil
}

// CollectionRef is the minimal pair callers need to resolve
// collection-relative paths without importing internal/models.
type CollectionRef struct {
	ID   string
	Root string
}
