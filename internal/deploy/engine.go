// Package deploy is the Deployment Engine (C5): applies an artifact's
// (or a resolved set's) files into a project directory atomically,
// records the Deployment, and detects later drift.
package deploy

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/miethe/skillmeat/internal/artifactindex"
	"github.com/miethe/skillmeat/internal/errors"
	"github.com/miethe/skillmeat/internal/fsadapter"
	"github.com/miethe/skillmeat/internal/logger"
	"github.com/miethe/skillmeat/internal/models"
	"github.com/miethe/skillmeat/internal/store"
)

// Engine stages and applies deployments against a Store and an
// Adapter.
type Engine struct {
	store *store.Store
	fs    *fsadapter.Adapter
	log   logger.Logger
}

func New(s *store.Store, fs *fsadapter.Adapter) *Engine {
	return &Engine{store: s, fs: fs, log: logger.New("deploy")}
}

// Plan is the computed outcome of §4.5's plan step: per-artifact target
// directory, file contents, and the expected content hash — ready to
// stage and apply without touching the Store or the filesystem.
type Plan struct {
	ArtifactUUID string
	TargetDir    string
	Files        map[string][]byte
	SourceHash   string
}

// PlanDeploy computes a Plan for one artifact: its files read from the
// collection, its target directory resolved under the project's
// .claude/ tree per its path_pattern.
func (e *Engine) PlanDeploy(collectionRoot string, artifact *models.Artifact, project *models.Project) (*Plan, error) {
	sourceDir, err := e.fs.ResolvePath(collectionRoot, artifactindex.CollectionRelPath(artifact.Type, artifact.Name), false)
	if err != nil {
		return nil, err
	}
	entries, err := e.fs.LsTree(sourceDir)
	if err != nil {
		return nil, err
	}
	files := make(map[string][]byte, len(entries))
	for _, entry := range entries {
		b, err := e.fs.ReadFile(filepath.Join(sourceDir, filepath.FromSlash(entry.RelativePath)))
		if err != nil {
			return nil, err
		}
		files[entry.RelativePath] = b
	}
	targetDir, err := e.fs.ResolvePath(project.Path, artifact.PathPattern, true)
	if err != nil {
		return nil, err
	}
	return &Plan{
		ArtifactUUID: artifact.UUID,
		TargetDir:    targetDir,
		Files:        files,
		SourceHash:   fsadapter.MerkleRoot(entries),
	}, nil
}

// treeHash computes the current on-disk Merkle root of dir, used for
// drift and conflict detection at tree granularity (a deployed artifact
// is usually more than one file, so the single-file DetectChanges isn't
// enough here).
func (e *Engine) treeHash(dir string) (string, error) {
	entries, err := e.fs.LsTree(dir)
	if err != nil {
		return "", err
	}
	return fsadapter.MerkleRoot(entries), nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// IsModified implements is_modified(deployment) ≡ current on-disk hash
// of deployed_path differs from source_content_hash (§4.5).
func (e *Engine) IsModified(deployment *models.Deployment) (bool, error) {
	hash, err := e.treeHash(deployment.DeployedPath)
	if err != nil {
		return false, err
	}
	return hash != deployment.SourceContentHash, nil
}

// Deploy applies a single plan: the conflict policy, idempotence
// short-circuit, and the upsert are all per §4.5.
func (e *Engine) Deploy(ctx context.Context, tx *store.Tx, plan *Plan, projectID, profileID string, overwrite bool) (*models.Deployment, error) {
	existing, err := e.store.GetDeployment(ctx, tx, plan.ArtifactUUID, projectID, profileID)
	if err != nil && !errors.IsNotFound(err) {
		return nil, err
	}

	targetExists := dirExists(plan.TargetDir)
	var currentHash string
	if targetExists {
		currentHash, err = e.treeHash(plan.TargetDir)
		if err != nil {
			return nil, err
		}
	}

	if existing != nil {
		if targetExists && currentHash != existing.SourceContentHash && !overwrite {
			return nil, errors.LocalModificationPresent(plan.TargetDir)
		}
		if targetExists && currentHash == plan.SourceHash {
			existing.DeployedAt = time.Now().UTC()
			if err := e.store.UpsertDeployment(ctx, tx, existing); err != nil {
				return nil, err
			}
			return existing, nil
		}
	} else if targetExists && currentHash != plan.SourceHash && !overwrite {
		return nil, errors.LocalModificationPresent(plan.TargetDir)
	}

	staging, err := e.fs.StageDir(plan.TargetDir, plan.Files)
	if err != nil {
		return nil, err
	}
	if err := e.fs.AtomicReplaceDir(plan.TargetDir, staging); err != nil {
		return nil, err
	}

	d := &models.Deployment{
		ArtifactUUID:      plan.ArtifactUUID,
		ProjectID:         projectID,
		ProfileID:         profileID,
		DeployedAt:        time.Now().UTC(),
		SourceContentHash: plan.SourceHash,
		DeployedPath:      plan.TargetDir,
	}
	if err := e.store.UpsertDeployment(ctx, tx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Undeploy removes the deployment record. It does not remove the
// deployed files — that is a separate, explicit filesystem operation
// the caller opts into, since a missing Deployment row with files still
// on disk is a valid, inspectable state.
func (e *Engine) Undeploy(ctx context.Context, tx *store.Tx, artifactUUID, projectID, profileID string) error {
	return e.store.DeleteDeployment(ctx, tx, artifactUUID, projectID, profileID)
}

// DeployMany is the coordinated deploy for a composite or resolved
// deployment set (§4.5): every member is staged first so a staging
// failure touches nothing, then applied via a single journaled
// AtomicReplaceMulti so a crash mid-apply is resumable and a partial
// failure is reported rather than silently swallowed.
func (e *Engine) DeployMany(ctx context.Context, tx *store.Tx, journalPath string, plans []*Plan, projectID, profileID string, overwrite bool) (applied []string, outcome *errors.PartialOutcome, err error) {
	replacements := make([]fsadapter.Replacement, 0, len(plans))
	byName := make(map[string]*Plan, len(plans))

	for _, plan := range plans {
		existing, gErr := e.store.GetDeployment(ctx, tx, plan.ArtifactUUID, projectID, profileID)
		if gErr != nil && !errors.IsNotFound(gErr) {
			return nil, nil, gErr
		}
		targetExists := dirExists(plan.TargetDir)
		var currentHash string
		if targetExists {
			currentHash, err = e.treeHash(plan.TargetDir)
			if err != nil {
				return nil, nil, err
			}
		}
		if existing != nil && targetExists && currentHash != existing.SourceContentHash && !overwrite {
			return nil, nil, errors.LocalModificationPresent(plan.TargetDir)
		}
		if existing == nil && targetExists && currentHash != plan.SourceHash && !overwrite {
			return nil, nil, errors.LocalModificationPresent(plan.TargetDir)
		}
		if existing != nil && targetExists && currentHash == plan.SourceHash {
			// Idempotent no-op: refresh deployed_at only, no file move.
			existing.DeployedAt = time.Now().UTC()
			if err := e.store.UpsertDeployment(ctx, tx, existing); err != nil {
				return nil, nil, err
			}
			applied = append(applied, plan.ArtifactUUID)
			continue
		}

		staging, sErr := e.fs.StageDir(plan.TargetDir, plan.Files)
		if sErr != nil {
			// Failure before any commit: discard everything staged so far.
			for _, r := range replacements {
				_ = os.RemoveAll(r.StagingDir)
			}
			return nil, nil, sErr
		}
		replacements = append(replacements, fsadapter.Replacement{Name: plan.ArtifactUUID, TargetDir: plan.TargetDir, StagingDir: staging})
		byName[plan.ArtifactUUID] = plan
	}

	if len(replacements) == 0 {
		return applied, nil, nil
	}

	renamed, applyErr := e.fs.AtomicReplaceMulti(journalPath, replacements)
	for _, name := range renamed {
		plan := byName[name]
		if plan == nil {
			continue
		}
		d := &models.Deployment{
			ArtifactUUID:      plan.ArtifactUUID,
			ProjectID:         projectID,
			ProfileID:         profileID,
			DeployedAt:        time.Now().UTC(),
			SourceContentHash: plan.SourceHash,
			DeployedPath:      plan.TargetDir,
		}
		if err := e.store.UpsertDeployment(ctx, tx, d); err != nil {
			return append(applied, renamed...), nil, err
		}
	}
	applied = append(applied, renamed...)

	if applyErr != nil {
		failedNames := map[string]bool{}
		for _, r := range replacements {
			failedNames[r.Name] = true
		}
		for _, name := range renamed {
			delete(failedNames, name)
		}
		var failed []errors.FailedItem
		for name := range failedNames {
			failed = append(failed, errors.FailedItem{ID: name, Err: applyErr})
		}
		return applied, errors.PartialDeploy(applied, failed), nil
	}
	return applied, nil, nil
}
