package syncengine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/miethe/skillmeat/internal/errors"
	"github.com/miethe/skillmeat/internal/fsadapter"
)

// Strategy picks which side wins on a non-manual sync (§4.6).
type Strategy string

const (
	StrategyTheirs Strategy = "theirs" // take source/collection
	StrategyOurs   Strategy = "ours"   // take project
	StrategyManual Strategy = "manual" // caller-supplied plan
	StrategyMerge  Strategy = "merge"  // auto on non-conflicting paths, fail closed on conflicts
)

// Resolution is one path's outcome in a MergePlan.
type Resolution string

const (
	TakeSource     Resolution = "take_source"
	TakeCollection Resolution = "take_collection"
	TakeProject    Resolution = "take_project"
	ManualMerge    Resolution = "manual_merge"
)

// PathPlan is a single path's planned resolution. Bytes is only set for
// ManualMerge.
type PathPlan struct {
	Path       string
	State      State
	Conflict   ConflictLevel
	Resolution Resolution
	Bytes      []byte
}

// MergePlan is the per-path resolution set §4.6 step 4 produces,
// ready to apply atomically.
type MergePlan struct {
	Paths []PathPlan
}

// Tree is a materialized S/C/P leg: path -> file bytes. Engine callers
// build trees from C2 (`fsadapter.LsTree` + `ReadFile`) for collection
// and project legs; the source leg comes from whatever upstream fetch
// produced it (out of this engine's scope — it only consumes bytes).
type Tree map[string][]byte

func treeHashes(t Tree) map[string]string {
	out := make(map[string]string, len(t))
	for path, b := range t {
		out[path] = fsadapter.ComputeContentHash(b)
	}
	return out
}

// Engine computes and applies merge plans.
type Engine struct {
	fs *fsadapter.Adapter
}

func New(fs *fsadapter.Adapter) *Engine {
	return &Engine{fs: fs}
}

// Plan implements §4.6 steps 1-4: classify every path present in any of
// the three legs and produce a MergePlan under the given Strategy.
// StrategyManual requires the caller to build the plan directly instead
// (Plan refuses it).
func (e *Engine) Plan(source, collection, project Tree, strategy Strategy) (*MergePlan, error) {
	if strategy == StrategyManual {
		return nil, errors.Validation("manual strategy requires a caller-supplied plan")
	}

	sHash := treeHashes(source)
	cHash := treeHashes(collection)
	pHash := treeHashes(project)

	paths := map[string]bool{}
	for p := range sHash {
		paths[p] = true
	}
	for p := range cHash {
		paths[p] = true
	}
	for p := range pHash {
		paths[p] = true
	}

	plan := &MergePlan{}
	for path := range paths {
		// A path the source leg does not carry (every path, for a
		// local-origin artifact's empty source tree) is compared on
		// collection vs project only.
		srcHash, inSource := sHash[path]
		if !inSource {
			srcHash = cHash[path]
		}
		state := Classify(srcHash, cHash[path], pHash[path])
		pp := PathPlan{Path: path, State: state}

		switch state {
		case StateInSync:
			pp.Resolution = TakeCollection
		case StateSourceDrift:
			pp.Resolution = TakeSource
		case StateProjectDrift:
			pp.Resolution = TakeProject
		case StateConflict:
			level := ClassifyConflict(string(collection[path]), string(source[path]), string(project[path]))
			pp.Conflict = level
			switch strategy {
			case StrategyTheirs:
				pp.Resolution = TakeSource
			case StrategyOurs:
				pp.Resolution = TakeProject
			case StrategyMerge:
				if level == ConflictHard {
					return nil, errors.Validation(fmt.Sprintf("hard conflict on %s: manual resolution required", path)).
						WithDetail("path", path)
				}
				// Non-overlapping or safely-close edits: prefer the
				// project's working copy, which carries both sides'
				// non-conflicting edits once the caller rebases — this
				// engine doesn't synthesize merged bytes itself.
				pp.Resolution = TakeProject
			}
		}
		plan.Paths = append(plan.Paths, pp)
	}
	return plan, nil
}

// Apply writes each planned path into project (TakeSource/TakeCollection
// pull content down; TakeProject is a no-op locally but still feeds the
// collection push; ManualMerge writes the caller-supplied bytes) and
// returns the paths it applied and the paths whose write failed.
// Persisting anything via C1 is left to the caller (Orchestrator),
// since only it knows the Artifact/Collection identifiers involved.
func (e *Engine) Apply(ctx context.Context, projectRoot string, plan *MergePlan, source, collection, project Tree) (applied []string, failed []errors.FailedItem) {
	for _, pp := range plan.Paths {
		var content []byte
		switch pp.Resolution {
		case TakeSource:
			content = source[pp.Path]
		case TakeCollection:
			content = collection[pp.Path]
		case TakeProject:
			applied = append(applied, pp.Path)
			continue
		case ManualMerge:
			content = pp.Bytes
		}
		target := filepath.Join(projectRoot, filepath.FromSlash(pp.Path))
		if err := e.fs.WriteFile(target, content); err != nil {
			failed = append(failed, errors.FailedItem{ID: pp.Path, Err: err})
			continue
		}
		applied = append(applied, pp.Path)
	}
	return applied, failed
}

// Outcome builds the §7 PartialOutcome for a sync run: applied paths,
// the subset left as unresolved conflicts, and any I/O failures.
func Outcome(plan *MergePlan, failed []errors.FailedItem) *errors.PartialOutcome {
	var applied, conflicts []string
	for _, pp := range plan.Paths {
		if pp.State == StateConflict && pp.Resolution == "" {
			conflicts = append(conflicts, pp.Path)
			continue
		}
		applied = append(applied, pp.Path)
	}
	return errors.PartialSync(applied, conflicts, failed)
}
