// Package composite is the Composite Engine (C4): builds and resolves
// the three composite shapes (plugin/stack/suite, skill-with-embedded,
// DeploymentSet) into deduplicated, acyclic deployment plans.
package composite

import (
	"context"

	"github.com/miethe/skillmeat/internal/errors"
	"github.com/miethe/skillmeat/internal/models"
	"github.com/miethe/skillmeat/internal/store"
)

// MaxDepth is the nesting safety net enforced at resolution time on
// top of the cycle check (§4.4).
const MaxDepth = 20

// Engine resolves composites against the Store.
type Engine struct {
	store *store.Store
}

func New(s *store.Store) *Engine {
	return &Engine{store: s}
}

// ImportEmbeddedSkill implements the skill-with-embedded import
// protocol (§4.4.2): the skill Artifact and its companion
// CompositeArtifact(composite_type=skill) already exist (created by the
// caller via C3); this links each already-resolved child artifact as a
// membership. ON CONFLICT DO NOTHING (enforced in the Store) makes
// re-import idempotent.
func (e *Engine) ImportEmbeddedSkill(ctx context.Context, tx *store.Tx, compositeID string, childUUIDs []string) error {
	for i, childUUID := range childUUIDs {
		if err := e.store.AddCompositeMember(ctx, tx, &models.CompositeMembership{
			CompositeID:     compositeID,
			ChildArtifactID: childUUID,
			Position:        float64(i),
		}); err != nil {
			return err
		}
	}
	return nil
}

// ResolveComposite returns a composite's direct children in membership
// order, dangling-checked against the artifacts table.
func (e *Engine) ResolveComposite(ctx context.Context, tx *store.Tx, compositeID string) ([]string, error) {
	members, err := e.store.ListCompositeMembers(ctx, tx, compositeID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(members))
	for _, m := range members {
		if _, err := e.store.GetArtifact(ctx, tx, m.ChildArtifactID); err != nil {
			return nil, errors.DanglingMember(m.ChildArtifactID)
		}
		out = append(out, m.ChildArtifactID)
	}
	return out, nil
}

// WouldCycle reports whether adding candidateChildSetID as a member of
// parentSetID would create a cycle: true iff parentSetID is reachable
// by walking nested-set descendants starting at candidateChildSetID
// (§4.4's "descendant reachability from the candidate child").
func (e *Engine) WouldCycle(ctx context.Context, tx *store.Tx, parentSetID, candidateChildSetID string) (bool, error) {
	if parentSetID == candidateChildSetID {
		return true, nil
	}
	visited := map[string]bool{}
	var walk func(setID string, depth int) (bool, error)
	walk = func(setID string, depth int) (bool, error) {
		if depth > MaxDepth {
			return false, errors.DepthExceeded(MaxDepth)
		}
		if visited[setID] {
			return false, nil
		}
		visited[setID] = true
		if setID == parentSetID {
			return true, nil
		}
		children, err := e.store.ListNestedSetChildren(ctx, tx, setID)
		if err != nil {
			return false, err
		}
		for _, child := range children {
			hit, err := walk(child, depth+1)
			if err != nil {
				return false, err
			}
			if hit {
				return true, nil
			}
		}
		return false, nil
	}
	return walk(candidateChildSetID, 0)
}

// AddDeploymentSetMember validates the cycle invariant (for
// member_set members) before delegating to the Store.
func (e *Engine) AddDeploymentSetMember(ctx context.Context, tx *store.Tx, setID string, m *models.DeploymentSetMember) error {
	if m.Kind == models.MemberKindMemberSet {
		cyclic, err := e.WouldCycle(ctx, tx, setID, m.MemberSetID)
		if err != nil {
			return err
		}
		if cyclic {
			return errors.CyclicComposite(setID, m.MemberSetID)
		}
	}
	return e.store.AddDeploymentSetMember(ctx, tx, setID, m)
}

// ResolveDeploymentSet performs the deterministic depth-first
// expansion from §4.4: groups and nested sets are expanded, results
// deduplicated by artifact_uuid preserving first-seen order. Resolution
// is read-only and stateless.
func (e *Engine) ResolveDeploymentSet(ctx context.Context, tx *store.Tx, setID string) ([]string, error) {
	seen := map[string]bool{}
	var ordered []string

	var walkSet func(id string, depth int) error
	var walkGroup func(id string) error

	walkGroup = func(groupID string) error {
		members, err := e.store.ListGroupMembers(ctx, tx, groupID)
		if err != nil {
			return err
		}
		for _, m := range members {
			if seen[m.ArtifactUUID] {
				continue
			}
			if _, err := e.store.GetArtifact(ctx, tx, m.ArtifactUUID); err != nil {
				return errors.DanglingMember(m.ArtifactUUID)
			}
			seen[m.ArtifactUUID] = true
			ordered = append(ordered, m.ArtifactUUID)
		}
		return nil
	}

	walkSet = func(id string, depth int) error {
		if depth > MaxDepth {
			return errors.DepthExceeded(MaxDepth)
		}
		members, err := e.store.ListDeploymentSetMembers(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, m := range members {
			switch m.Kind {
			case models.MemberKindArtifact:
				if seen[m.ArtifactID] {
					continue
				}
				if _, err := e.store.GetArtifact(ctx, tx, m.ArtifactID); err != nil {
					return errors.DanglingMember(m.ArtifactID)
				}
				seen[m.ArtifactID] = true
				ordered = append(ordered, m.ArtifactID)
			case models.MemberKindGroup:
				if err := walkGroup(m.GroupID); err != nil {
					return err
				}
			case models.MemberKindMemberSet:
				if err := walkSet(m.MemberSetID, depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := walkSet(setID, 0); err != nil {
		return nil, err
	}
	return ordered, nil
}
