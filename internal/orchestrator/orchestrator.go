// Package orchestrator is the Orchestrator (C10): the single
// capability surface composing every other component behind
// transaction-boundary operations (§4.10). It owns no singletons —
// every collaborator is taken by constructor parameter — and every
// successful mutation emits an invalidation event on the shared bus.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/google/uuid"

	"github.com/miethe/skillmeat/internal/artifactindex"
	"github.com/miethe/skillmeat/internal/composite"
	"github.com/miethe/skillmeat/internal/contextpack"
	"github.com/miethe/skillmeat/internal/deploy"
	"github.com/miethe/skillmeat/internal/errors"
	"github.com/miethe/skillmeat/internal/events"
	"github.com/miethe/skillmeat/internal/fsadapter"
	"github.com/miethe/skillmeat/internal/logger"
	"github.com/miethe/skillmeat/internal/marketplace"
	"github.com/miethe/skillmeat/internal/memory"
	"github.com/miethe/skillmeat/internal/models"
	"github.com/miethe/skillmeat/internal/store"
	"github.com/miethe/skillmeat/internal/syncengine"
	"github.com/miethe/skillmeat/internal/versioning"
)

// Orchestrator composes C1-C9 into the capability operations §4.10
// names. Public methods are reentrant; the Store transaction is the
// authoritative barrier for each (no in-process lock is held across an
// awaited DB commit), per §5's ordering guarantees.
type Orchestrator struct {
	store *store.Store
	fs    *fsadapter.Adapter
	index *artifactindex.Index
	comp  *composite.Engine
	dep   *deploy.Engine
	sync  *syncengine.Engine
	ver      *versioning.Engine
	bus      *events.Bus
	log      logger.Logger
	upstream *marketplace.Client
	packCache *lru.Cache[string, *contextpack.Pack]
	classifier memory.Classifier
}

// contextPackCacheSize bounds the rendered-pack cache. Packs are keyed
// by (project, selectors, budget), so the same module rendered for a
// handful of budgets (CLI preview vs. actual deploy) stays cheap.
const contextPackCacheSize = 256

// New wires every collaborator. blobDir is the versioning engine's
// content-addressed blob root (§6.2's `snapshots/` layout).
func New(s *store.Store, fs *fsadapter.Adapter, bus *events.Bus, blobDir string) *Orchestrator {
	packCache, _ := lru.New[string, *contextpack.Pack](contextPackCacheSize)
	return &Orchestrator{
		store:     s,
		fs:        fs,
		index:     artifactindex.New(s),
		comp:      composite.New(s),
		dep:       deploy.New(s, fs),
		sync:      syncengine.New(fs),
		ver:       versioning.New(s, fs, blobDir),
		bus:       bus,
		log:       logger.New("orchestrator"),
		upstream:  marketplace.New(),
		packCache: packCache,
	}
}

// WithClassifier enables §4.8's optional LLM classification mode for
// MemoryExtract, rate-limited to callsPerSecond batch calls per second.
// Not called by New, and nothing in this module calls it: the heuristic
// classifier is the default, and config.FeatureConfig has no setting
// that turns this mode on.
func (o *Orchestrator) WithClassifier(cls memory.Classifier, callsPerSecond float64) *Orchestrator {
	o.classifier = memory.NewRateLimitedClassifier(cls, callsPerSecond)
	return o
}

func (o *Orchestrator) publish(typ events.EventType, data map[string]interface{}) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(events.Event{Type: typ, Source: "orchestrator", Data: data})
}

// loadTree materializes every file under root into a syncengine.Tree,
// relative to root, via C2's LsTree + ReadFile.
func (o *Orchestrator) loadTree(root string) (syncengine.Tree, error) {
	entries, err := o.fs.LsTree(root)
	if err != nil {
		return nil, err
	}
	tree := make(syncengine.Tree, len(entries))
	for _, e := range entries {
		b, err := o.fs.ReadFile(filepath.Join(root, filepath.FromSlash(e.RelativePath)))
		if err != nil {
			return nil, err
		}
		tree[e.RelativePath] = b
	}
	return tree, nil
}

// importArtifactTx runs the §4.3 three-tier identity resolution and
// upserts the resulting row within an already-open transaction. It is
// shared by ImportArtifact and ImportComposite so a composite's root
// artifact and its embedded children resolve identity the same way.
func (o *Orchestrator) importArtifactTx(ctx context.Context, tx *store.Tx, collectionID string, detected *artifactindex.DetectedArtifact) (*models.Artifact, error) {
	canon := artifactindex.Canonicalize(detected)
	res, err := o.index.ResolveIdentity(ctx, tx, collectionID, canon)
	if err != nil {
		return nil, err
	}
	a := artifactindex.ToArtifact(collectionID, canon, res)

	if !res.IsNew {
		if err := o.store.UpdateArtifact(ctx, tx, a); err != nil {
			return nil, err
		}
		return a, nil
	}

	created, err := o.store.CreateArtifact(ctx, tx, a)
	if err != nil {
		if serr, ok := err.(*errors.Error); ok && serr.Is(errors.KindConflict) {
			// Name collision against a different identity (content hash
			// and upstream both missed): adopt the existing row's uuid
			// and let this import's bytes become its new content.
			if existingID, ok := serr.Detail["existing_id"].(string); ok && existingID != "" {
				a.UUID = existingID
				if uErr := o.store.UpdateArtifact(ctx, tx, a); uErr != nil {
					return nil, uErr
				}
				return a, nil
			}
		}
		return nil, err
	}
	return created, nil
}

// ImportArtifact implements `import_artifact(detected)` (§4.10):
// resolve identity, upsert the row, emit ArtifactImported. Re-running
// with identical bytes is a no-op by construction (§8 invariant 1).
func (o *Orchestrator) ImportArtifact(ctx context.Context, collectionID string, detected *artifactindex.DetectedArtifact) (*models.Artifact, error) {
	var result *models.Artifact
	err := o.store.WithTx(ctx, func(tx *store.Tx) error {
		a, err := o.importArtifactTx(ctx, tx, collectionID, detected)
		if err != nil {
			return err
		}
		result = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.publish(events.ArtifactImported, map[string]interface{}{"artifact_uuid": result.UUID, "name": result.Name})
	return result, nil
}

// ImportComposite implements `import_composite(detected_root)` (§4.10,
// §4.4.2): import the root artifact, create its CompositeArtifact row,
// import every embedded artifact (deduplicated by identity resolution
// exactly as a standalone import would be, per E1), and link them as
// CompositeMembership rows.
func (o *Orchestrator) ImportComposite(ctx context.Context, collectionID string, compositeType models.CompositeType, root *artifactindex.DetectedArtifact, embedded []*artifactindex.DetectedArtifact) (*models.CompositeArtifact, error) {
	var result *models.CompositeArtifact
	err := o.store.WithTx(ctx, func(tx *store.Tx) error {
		rootArtifact, err := o.importArtifactTx(ctx, tx, collectionID, root)
		if err != nil {
			return err
		}

		comp, err := o.store.CreateComposite(ctx, tx, &models.CompositeArtifact{
			ID:            uuid.NewString(),
			CollectionID:  collectionID,
			CompositeType: compositeType,
			Metadata:      map[string]string{"artifact_uuid": rootArtifact.UUID},
		})
		if err != nil {
			return err
		}

		childUUIDs := make([]string, 0, len(embedded))
		for _, e := range embedded {
			child, err := o.importArtifactTx(ctx, tx, collectionID, e)
			if err != nil {
				return err
			}
			childUUIDs = append(childUUIDs, child.UUID)
		}
		if err := o.comp.ImportEmbeddedSkill(ctx, tx, comp.ID, childUUIDs); err != nil {
			return err
		}
		result = comp
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.publish(events.CompositeResolved, map[string]interface{}{"composite_id": result.ID, "composite_type": string(result.CompositeType)})
	return result, nil
}

// UpdateArtifact implements `update_artifact(...)` (§4.10): takes a
// pre-mutation snapshot of the artifact's collection-side storage
// directory before staging the new bytes in, so any mutation can be
// rolled back, then updates the row's content hash.
func (o *Orchestrator) UpdateArtifact(ctx context.Context, collectionRoot, artifactUUID string, updated *artifactindex.DetectedArtifact) (*models.Artifact, error) {
	var result *models.Artifact
	err := o.store.WithTx(ctx, func(tx *store.Tx) error {
		existing, err := o.store.GetArtifact(ctx, tx, artifactUUID)
		if err != nil {
			return err
		}
		targetDir, err := o.fs.ResolvePath(collectionRoot, artifactindex.CollectionRelPath(existing.Type, existing.Name), false)
		if err != nil {
			return err
		}
		if _, err := o.ver.CreateSnapshot(ctx, tx, models.SnapshotScopeArtifact, artifactUUID, targetDir, models.SnapshotReasonAuto, "system"); err != nil {
			return err
		}

		files := make(map[string][]byte, len(updated.Files))
		for _, f := range updated.Files {
			files[f.RelativePath] = f.Content
		}
		staging, err := o.fs.StageDir(targetDir, files)
		if err != nil {
			return err
		}
		if err := o.fs.AtomicReplaceDir(targetDir, staging); err != nil {
			return err
		}

		existing.ContentHash = artifactindex.ComputeContentHash(updated.Files)
		existing.Tags = updated.Tags
		existing.Metadata = updated.Metadata
		if err := o.store.UpdateArtifact(ctx, tx, existing); err != nil {
			return err
		}
		result = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.publish(events.ArtifactUpdated, map[string]interface{}{"artifact_uuid": result.UUID, "content_hash": result.ContentHash})
	return result, nil
}

// DeleteArtifact implements `delete_artifact(...)`.
func (o *Orchestrator) DeleteArtifact(ctx context.Context, artifactUUID string) error {
	var deleted *models.Artifact
	if err := o.store.WithTx(ctx, func(tx *store.Tx) error {
		a, err := o.store.GetArtifact(ctx, tx, artifactUUID)
		if err != nil {
			return err
		}
		deleted = a
		return o.store.DeleteArtifact(ctx, tx, artifactUUID)
	}); err != nil {
		return err
	}
	o.index.Invalidate(deleted.CollectionID, deleted.ContentHash)
	o.publish(events.ArtifactRemoved, map[string]interface{}{"artifact_uuid": artifactUUID})
	return nil
}

// Deploy implements `deploy(artifact_or_set, project, profile, opts)`
// for a single artifact: pre-deploy and post-deploy snapshots of the
// project's deployed directory bracket the write-through, per §4.7's
// pre-deploy/post-deploy reasons and §4.10's snapshot-on-mutation rule.
func (o *Orchestrator) Deploy(ctx context.Context, collectionRoot string, artifactUUID, projectID, profileID string, overwrite bool) (*models.Deployment, error) {
	var result *models.Deployment
	err := o.store.WithTx(ctx, func(tx *store.Tx) error {
		artifact, err := o.store.GetArtifact(ctx, tx, artifactUUID)
		if err != nil {
			return err
		}
		project, err := o.store.GetProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		plan, err := o.dep.PlanDeploy(collectionRoot, artifact, project)
		if err != nil {
			return err
		}
		if dirExists(plan.TargetDir) {
			if _, err := o.ver.CreateSnapshot(ctx, tx, models.SnapshotScopeDeployedProject, projectID, plan.TargetDir, models.SnapshotReasonPreDeploy, "system"); err != nil {
				return err
			}
		}
		d, err := o.dep.Deploy(ctx, tx, plan, projectID, profileID, overwrite)
		if err != nil {
			o.publish(events.DeploymentFailed, map[string]interface{}{"artifact_uuid": artifactUUID, "project_id": projectID, "error": err.Error()})
			return err
		}
		if _, err := o.ver.CreateSnapshot(ctx, tx, models.SnapshotScopeDeployedProject, projectID, plan.TargetDir, models.SnapshotReasonPostDeploy, "system"); err != nil {
			return err
		}
		if err := o.store.RecordDeploymentOnProject(ctx, tx, projectID, d.DeployedAt); err != nil {
			return err
		}
		o.refreshLedger(ctx, tx, project)
		result = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.publish(events.DeploymentApplied, map[string]interface{}{"artifact_uuid": artifactUUID, "project_id": projectID})
	return result, nil
}

// DeploySet implements the coordinated form of `deploy(...)` for a
// DeploymentSet: resolve membership (C4), plan every member (C5), and
// apply them together so a partial failure is reported as one outcome.
func (o *Orchestrator) DeploySet(ctx context.Context, collectionRoot, journalPath, setID, projectID, profileID string, overwrite bool) (applied []string, outcome *errors.PartialOutcome, err error) {
	err = o.store.WithTx(ctx, func(tx *store.Tx) error {
		project, gErr := o.store.GetProject(ctx, tx, projectID)
		if gErr != nil {
			return gErr
		}
		memberUUIDs, rErr := o.comp.ResolveDeploymentSet(ctx, tx, setID)
		if rErr != nil {
			return rErr
		}

		plans := make([]*deploy.Plan, 0, len(memberUUIDs))
		for _, memberUUID := range memberUUIDs {
			artifact, aErr := o.store.GetArtifact(ctx, tx, memberUUID)
			if aErr != nil {
				return aErr
			}
			plan, pErr := o.dep.PlanDeploy(collectionRoot, artifact, project)
			if pErr != nil {
				return pErr
			}
			plans = append(plans, plan)
		}

		applied, outcome, err = o.dep.DeployMany(ctx, tx, journalPath, plans, projectID, profileID, overwrite)
		if err != nil {
			return err
		}
		o.refreshLedger(ctx, tx, project)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if outcome != nil {
		o.log.Warn("deployment set had partial failures", logger.String("set_id", setID), logger.Error(outcome.FailedErrors()))
		o.publish(events.DeploymentFailed, map[string]interface{}{"set_id": setID, "project_id": projectID, "failed": len(outcome.Failed)})
	} else {
		o.publish(events.DeploymentApplied, map[string]interface{}{"set_id": setID, "project_id": projectID, "applied": len(applied)})
	}
	return applied, outcome, nil
}

// Undeploy implements `undeploy(...)`.
func (o *Orchestrator) Undeploy(ctx context.Context, artifactUUID, projectID, profileID string) error {
	if err := o.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := o.dep.Undeploy(ctx, tx, artifactUUID, projectID, profileID); err != nil {
			return err
		}
		project, err := o.store.GetProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		o.refreshLedger(ctx, tx, project)
		return nil
	}); err != nil {
		return err
	}
	o.publish(events.ArtifactRemoved, map[string]interface{}{"artifact_uuid": artifactUUID, "project_id": projectID, "action": "undeploy"})
	return nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// refreshLedger rewrites a project's `.skillmeat-deployed.toml` (§6.1)
// from its current Deployment rows after a deploy/undeploy mutation.
// The Store stays authoritative (Open Question #2: DB wins), so a
// ledger write failure is logged and swallowed rather than failing the
// transaction it followed.
func (o *Orchestrator) refreshLedger(ctx context.Context, tx *store.Tx, project *models.Project) {
	deployments, err := o.store.ListDeploymentsByProject(ctx, tx, project.ID)
	if err != nil {
		o.log.Warn("ledger refresh: list deployments failed", logger.String("project_id", project.ID), logger.Error(err))
		return
	}
	artifacts := make(map[string]*models.Artifact, len(deployments))
	for _, d := range deployments {
		if _, ok := artifacts[d.ArtifactUUID]; ok {
			continue
		}
		a, aErr := o.store.GetArtifact(ctx, tx, d.ArtifactUUID)
		if aErr != nil {
			continue
		}
		artifacts[d.ArtifactUUID] = a
	}
	if err := deploy.WriteLedger(project.Path, deployments, artifacts); err != nil {
		o.log.Warn("ledger refresh: write failed", logger.String("project_id", project.ID), logger.Error(err))
	}
}

// Trees materializes the three legs SyncPreview classifies and
// SyncPull/SyncPush apply against: the upstream source, the
// collection's stored copy, and the deployed project copy. Exported so
// a caller that already has a plan from SyncPreview (a CLI or API
// handler working across two requests) can rebuild the same trees for
// SyncPull/SyncPush without reaching into orchestrator internals.
func (o *Orchestrator) Trees(ctx context.Context, collectionRoot, projectRoot string, artifact *models.Artifact) (source, collection, project syncengine.Tree, err error) {
	source, err = o.upstream.FetchTree(ctx, artifact)
	if err != nil {
		return nil, nil, nil, err
	}
	collectionDir, err := o.fs.ResolvePath(collectionRoot, artifactindex.CollectionRelPath(artifact.Type, artifact.Name), false)
	if err != nil {
		return nil, nil, nil, err
	}
	collection, err = o.loadTree(collectionDir)
	if err != nil {
		return nil, nil, nil, err
	}
	projectDir, err := o.fs.ResolvePath(projectRoot, artifact.PathPattern, true)
	if err != nil {
		return nil, nil, nil, err
	}
	project, err = o.loadTree(projectDir)
	if err != nil {
		return nil, nil, nil, err
	}
	return source, collection, project, nil
}

// SyncPreview implements `sync_preview(artifact_or_project)` (§4.6): a
// read-only classification of the three legs, computed from a
// consistent snapshot of the source/collection/project trees taken at
// the start of the call per §5's "consistent snapshot" ordering rule.
// The source leg is fetched from the artifact's upstream (github or
// marketplace origin) via the marketplace client; local-origin
// artifacts resolve to an empty source tree.
func (o *Orchestrator) SyncPreview(ctx context.Context, collectionRoot, projectRoot string, artifact *models.Artifact) (*syncengine.MergePlan, error) {
	source, collectionTree, projectTree, err := o.Trees(ctx, collectionRoot, projectRoot, artifact)
	if err != nil {
		return nil, err
	}

	plan, err := o.sync.Plan(source, collectionTree, projectTree, syncengine.StrategyMerge)
	if err != nil {
		return nil, err
	}
	for _, pp := range plan.Paths {
		if pp.State == syncengine.StateConflict {
			o.publish(events.SyncConflictDetected, map[string]interface{}{"artifact_uuid": artifact.UUID, "path": pp.Path, "level": string(pp.Conflict)})
		}
	}
	return plan, nil
}

// SyncPull implements `sync_pull(..., strategy)` (§4.6): compute (or
// accept a caller-supplied manual) plan, bracket the write-through with
// pre-sync/post-sync snapshots, apply into the project tree, and
// persist the new source hash onto the Deployment row.
func (o *Orchestrator) SyncPull(ctx context.Context, projectRoot string, artifact *models.Artifact, projectID string, plan *syncengine.MergePlan, source, collection, project syncengine.Tree) (*errors.PartialOutcome, error) {
	var outcome *errors.PartialOutcome
	err := o.store.WithTx(ctx, func(tx *store.Tx) error {
		projectDir, err := o.fs.ResolvePath(projectRoot, artifact.PathPattern, true)
		if err != nil {
			return err
		}
		if dirExists(projectDir) {
			if _, err := o.ver.CreateSnapshot(ctx, tx, models.SnapshotScopeDeployedProject, projectID, projectDir, models.SnapshotReasonPreSync, "system"); err != nil {
				return err
			}
		}

		_, failed := o.sync.Apply(ctx, projectRoot, plan, source, collection, project)
		outcome = syncengine.Outcome(plan, failed)

		if _, err := o.ver.CreateSnapshot(ctx, tx, models.SnapshotScopeDeployedProject, projectID, projectDir, models.SnapshotReasonPostSync, "system"); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(outcome.Failed) > 0 {
		o.log.Warn("sync pull had partial failures", logger.String("artifact_uuid", artifact.UUID), logger.Error(outcome.FailedErrors()))
	}
	o.publish(events.SyncCompleted, map[string]interface{}{"artifact_uuid": artifact.UUID, "project_id": projectID, "applied": len(outcome.Applied), "conflicts": len(outcome.Conflicts)})
	return outcome, nil
}

// SyncPush implements `sync_push(...)`: the plan's TakeProject paths
// (the project's locally-drifted content) get written back into the
// collection's storage directory instead of into the project, the
// mirror image of SyncPull's TakeSource/TakeCollection paths.
func (o *Orchestrator) SyncPush(ctx context.Context, collectionRoot string, artifact *models.Artifact, plan *syncengine.MergePlan, project syncengine.Tree) ([]string, []errors.FailedItem, error) {
	targetDir, err := o.fs.ResolvePath(collectionRoot, artifactindex.CollectionRelPath(artifact.Type, artifact.Name), false)
	if err != nil {
		return nil, nil, err
	}
	var applied []string
	var failed []errors.FailedItem
	for _, pp := range plan.Paths {
		if pp.Resolution != syncengine.TakeProject {
			continue
		}
		content := project[pp.Path]
		target := filepath.Join(targetDir, filepath.FromSlash(pp.Path))
		if err := o.fs.WriteFile(target, content); err != nil {
			failed = append(failed, errors.FailedItem{ID: pp.Path, Err: err})
			continue
		}
		applied = append(applied, pp.Path)
	}
	if len(failed) > 0 {
		o.log.Warn("sync push had partial failures", logger.String("artifact_uuid", artifact.UUID), logger.Error(errors.PartialDeploy(applied, failed).FailedErrors()))
	}
	o.publish(events.SyncCompleted, map[string]interface{}{"artifact_uuid": artifact.UUID, "direction": "push", "applied": len(applied), "failed": len(failed)})
	return applied, failed, nil
}

// Snapshot implements `snapshot(scope)`.
func (o *Orchestrator) Snapshot(ctx context.Context, scope models.SnapshotScope, scopeID, root, by string) (*models.Snapshot, error) {
	var snap *models.Snapshot
	err := o.store.WithTx(ctx, func(tx *store.Tx) error {
		s, err := o.ver.CreateSnapshot(ctx, tx, scope, scopeID, root, models.SnapshotReasonManual, by)
		if err != nil {
			return err
		}
		snap = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.publish(events.SnapshotCreated, map[string]interface{}{"snapshot_id": snap.ID, "scope": string(scope), "scope_id": scopeID})
	return snap, nil
}

// Rollback implements `rollback(snapshot_id)`.
func (o *Orchestrator) Rollback(ctx context.Context, scope models.SnapshotScope, scopeID, root, snapshotID, by string) (*models.Snapshot, error) {
	var compensating *models.Snapshot
	err := o.store.WithTx(ctx, func(tx *store.Tx) error {
		c, err := o.ver.Rollback(ctx, tx, scope, scopeID, root, snapshotID, by)
		if err != nil {
			return err
		}
		compensating = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.publish(events.SnapshotRestored, map[string]interface{}{"snapshot_id": snapshotID, "compensating_snapshot_id": compensating.ID})
	return compensating, nil
}

// MemoryExtract implements `memory.extract(preview|apply, run_log)`.
// In preview mode the pipeline runs but nothing is persisted; in apply
// mode every resulting candidate is inserted, each insert individually
// idempotent against the (project_id, content_hash) unique constraint.
func (o *Orchestrator) MemoryExtract(ctx context.Context, projectID string, transcript []byte, apply bool) (*memory.Result, error) {
	result := memory.Extract(ctx, transcript, memory.Options{ProjectID: projectID, Classifier: o.classifier})
	if !apply {
		return result, nil
	}
	err := o.store.WithTx(ctx, func(tx *store.Tx) error {
		for _, item := range result.Items {
			if _, err := o.store.CreateMemoryItem(ctx, tx, item); err != nil {
				if serr, ok := err.(*errors.Error); ok && serr.Is(errors.KindConflict) {
					continue // exact-content duplicate already on record
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.invalidateContextPacks(projectID)
	o.publish(events.MemoryCandidateCreated, map[string]interface{}{"project_id": projectID, "count": len(result.Items)})
	return result, nil
}

// MemoryPromote implements `memory.promote(...)`: advances one status
// step forward (candidate->active, active->stable).
func (o *Orchestrator) MemoryPromote(ctx context.Context, id string) error {
	var projectID string
	err := o.store.WithTx(ctx, func(tx *store.Tx) error {
		item, err := o.store.GetMemoryItem(ctx, tx, id)
		if err != nil {
			return err
		}
		projectID = item.ProjectID
		next := models.MemoryStatusActive
		if item.Status == models.MemoryStatusActive {
			next = models.MemoryStatusStable
		}
		return o.store.TransitionMemoryItem(ctx, tx, id, next)
	})
	if err != nil {
		return err
	}
	o.invalidateContextPacks(projectID)
	o.publish(events.MemoryPromoted, map[string]interface{}{"memory_item_id": id})
	return nil
}

// MemoryDeprecate implements `memory.deprecate(...)`.
func (o *Orchestrator) MemoryDeprecate(ctx context.Context, id string) error {
	var projectID string
	if err := o.store.WithTx(ctx, func(tx *store.Tx) error {
		item, err := o.store.GetMemoryItem(ctx, tx, id)
		if err != nil {
			return err
		}
		projectID = item.ProjectID
		return o.store.TransitionMemoryItem(ctx, tx, id, models.MemoryStatusDeprecated)
	}); err != nil {
		return err
	}
	o.invalidateContextPacks(projectID)
	o.publish(events.MemoryDeprecated, map[string]interface{}{"memory_item_id": id})
	return nil
}

// MemoryMerge implements `memory.merge(...)`: keepID survives, every id
// in mergeIDs is deprecated as a duplicate now superseded by it.
func (o *Orchestrator) MemoryMerge(ctx context.Context, keepID string, mergeIDs []string) error {
	var projectID string
	err := o.store.WithTx(ctx, func(tx *store.Tx) error {
		keep, err := o.store.GetMemoryItem(ctx, tx, keepID)
		if err != nil {
			return err
		}
		projectID = keep.ProjectID
		for _, id := range mergeIDs {
			if id == keepID {
				continue
			}
			if err := o.store.TransitionMemoryItem(ctx, tx, id, models.MemoryStatusDeprecated); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	o.invalidateContextPacks(projectID)
	o.publish(events.MemoryDeprecated, map[string]interface{}{"merged_into": keepID, "count": len(mergeIDs)})
	return nil
}

// contextPackCacheKey derives a deterministic cache key from the
// selector set and budget, since identical (project, selectors,
// budget) inputs always render an identical Pack (§8's pack-determinism
// invariant) and can skip straight to the cached render.
func contextPackCacheKey(projectID string, sel contextpack.Selectors, budgetTokens int) string {
	selBytes, _ := json.Marshal(sel)
	return fmt.Sprintf("%s|%d|%s", projectID, budgetTokens, selBytes)
}

// invalidateContextPacks drops every cached pack for a project. Called
// on any memory-item mutation, since a changed item could shift which
// candidates a cached selector set would have picked.
func (o *Orchestrator) invalidateContextPacks(projectID string) {
	if o.packCache == nil {
		return
	}
	prefix := projectID + "|"
	for _, key := range o.packCache.Keys() {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			o.packCache.Remove(key)
		}
	}
}

// ContextPack implements `context.pack(...)` (§4.9): load every
// non-deprecated candidate for the project and build a budgeted pack
// from the given selectors.
func (o *Orchestrator) ContextPack(ctx context.Context, projectID string, sel contextpack.Selectors, budgetTokens int) (*contextpack.Pack, error) {
	cacheKey := contextPackCacheKey(projectID, sel, budgetTokens)
	if o.packCache != nil {
		if cached, ok := o.packCache.Get(cacheKey); ok {
			return cached, nil
		}
	}

	var items []*models.MemoryItem
	err := o.store.WithTx(ctx, func(tx *store.Tx) error {
		loaded, err := o.store.ListMemoryItemsForPack(ctx, tx, projectID)
		if err != nil {
			return err
		}
		items = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	pack := contextpack.BuildFromSelectors(items, sel, budgetTokens)
	if o.packCache != nil {
		o.packCache.Add(cacheKey, pack)
	}
	o.publish(events.ContextPackBuilt, map[string]interface{}{"project_id": projectID, "total_tokens": pack.TotalTokens, "item_count": len(pack.Items)})
	return pack, nil
}
