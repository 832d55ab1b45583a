// Package models defines SkillMeat's entities: the rows the Store (C1)
// persists and the FS Adapter (C2) materializes on disk. These types are
// the two projections' shared vocabulary.
package models

import "time"

// ArtifactType enumerates the typed set an Artifact can be.
type ArtifactType string

const (
	ArtifactTypeSkill     ArtifactType = "skill"
	ArtifactTypeCommand   ArtifactType = "command"
	ArtifactTypeAgent     ArtifactType = "agent"
	ArtifactTypeHook      ArtifactType = "hook"
	ArtifactTypeMCPServer ArtifactType = "mcp-server"
	ArtifactTypeContext   ArtifactType = "context"
	ArtifactTypeSpec      ArtifactType = "spec"
	ArtifactTypeRule      ArtifactType = "rule"
)

// Origin identifies where an artifact's bytes came from.
type Origin string

const (
	OriginLocal       Origin = "local"
	OriginGitHub      Origin = "github"
	OriginMarketplace Origin = "marketplace"
)

// Artifact is the canonical record for one named, typed, content-hashed
// unit of agent configuration (§3.1).
type Artifact struct {
	UUID            string            `json:"uuid"`
	CollectionID    string            `json:"collection_id"`
	Name            string            `json:"name"`
	Type            ArtifactType      `json:"type"`
	Origin          Origin            `json:"origin"`
	Upstream        string            `json:"upstream,omitempty"`
	ResolvedVersion string            `json:"resolved_version,omitempty"`
	VersionSpec     string            `json:"version_spec,omitempty"`
	ContentHash     string            `json:"content_hash"`
	PathPattern     string            `json:"path_pattern"`
	Tags            []string          `json:"tags,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Collection is a named logical set of artifacts plus a filesystem root.
type Collection struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Root      string    `json:"root"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Group is a collection-scoped organizational container.
type Group struct {
	ID           string    `json:"id"`
	CollectionID string    `json:"collection_id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
}

// GroupMembership places an artifact in a group at an ordering position.
type GroupMembership struct {
	GroupID      string  `json:"group_id"`
	ArtifactUUID string  `json:"artifact_uuid"`
	Position     float64 `json:"position"`
}

// CompositeType enumerates the bundle shapes C4 resolves.
type CompositeType string

const (
	CompositeTypePlugin CompositeType = "plugin"
	CompositeTypeStack  CompositeType = "stack"
	CompositeTypeSuite  CompositeType = "suite"
	CompositeTypeSkill  CompositeType = "skill"
)

// CompositeArtifact is the entity representing a bundle (§4.4).
type CompositeArtifact struct {
	ID            string            `json:"id"`
	CollectionID  string            `json:"collection_id"`
	CompositeType CompositeType     `json:"composite_type"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// ArtifactUUID returns the back-reference to a skill's companion
// Artifact row when this is a composite_type=skill row, per §4.4.2.
func (c *CompositeArtifact) ArtifactUUID() string {
	if c.Metadata == nil {
		return ""
	}
	return c.Metadata["artifact_uuid"]
}

// CompositeMembership links a composite to one of its children.
type CompositeMembership struct {
	CompositeID     string  `json:"composite_id"`
	ChildArtifactID string  `json:"child_artifact_uuid"`
	Position        float64 `json:"position"`
}

// MemberKind tags which of the three optional references a
// DeploymentSetMember carries — exactly one, per §3.1/§9.
type MemberKind string

const (
	MemberKindArtifact  MemberKind = "artifact"
	MemberKindGroup     MemberKind = "group"
	MemberKindMemberSet MemberKind = "member_set"
)

// DeploymentSet is a user-scoped, nestable bundle.
type DeploymentSet struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// DeploymentSetMember is a tagged-union row: exactly one of
// ArtifactUUID, GroupID, MemberSetID is set, matching Kind. The DB's
// CHECK constraint mirrors this invariant (§9 "dynamic dispatch").
type DeploymentSetMember struct {
	SetID       string     `json:"set_id"`
	Kind        MemberKind `json:"kind"`
	ArtifactID  string     `json:"artifact_uuid,omitempty"`
	GroupID     string     `json:"group_id,omitempty"`
	MemberSetID string     `json:"member_set_id,omitempty"`
	Position    float64    `json:"position"`
}

// Validate enforces the tagged-union shape at the model layer, ahead of
// the Store's CHECK constraint.
func (m *DeploymentSetMember) Validate() error {
	set := 0
	if m.ArtifactID != "" {
		set++
	}
	if m.GroupID != "" {
		set++
	}
	if m.MemberSetID != "" {
		set++
	}
	if set != 1 {
		return errInvalidMember
	}
	return nil
}

// Deployment records one artifact deployed to one project under one
// platform profile.
type Deployment struct {
	ArtifactUUID      string    `json:"artifact_uuid"`
	ProjectID         string    `json:"project_id"`
	ProfileID         string    `json:"profile_id"`
	DeployedAt        time.Time `json:"deployed_at"`
	SourceContentHash string    `json:"source_content_hash"`
	DeployedPath      string    `json:"deployed_path"`
}

// Project is a destination directory with a .claude/ subtree.
type Project struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Path            string     `json:"path"`
	LastDeployment  *time.Time `json:"last_deployment,omitempty"`
	DeploymentCount int        `json:"deployment_count"`
}

// MemoryItemType enumerates the kinds of learning extraction produces.
type MemoryItemType string

const (
	MemoryTypeDecision  MemoryItemType = "decision"
	MemoryTypeConstraint MemoryItemType = "constraint"
	MemoryTypeGotcha    MemoryItemType = "gotcha"
	MemoryTypeStyleRule MemoryItemType = "style_rule"
	MemoryTypeLearning  MemoryItemType = "learning"
)

// MemoryItemStatus enumerates the lifecycle states (§3.1).
type MemoryItemStatus string

const (
	MemoryStatusCandidate  MemoryItemStatus = "candidate"
	MemoryStatusActive     MemoryItemStatus = "active"
	MemoryStatusStable     MemoryItemStatus = "stable"
	MemoryStatusDeprecated MemoryItemStatus = "deprecated"
)

// Provenance records where a memory item came from (§4.8 step 8).
type Provenance struct {
	SourceType  string    `json:"source"`
	SessionID   string    `json:"session_id"`
	MessageUUID string    `json:"message_uuid,omitempty"`
	GitBranch   string    `json:"git_branch,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// MemoryItem is a project-scoped atomic learning.
type MemoryItem struct {
	ID           string           `json:"id" validate:"required"`
	ProjectID    string           `json:"project_id" validate:"required"`
	Type         MemoryItemType   `json:"type" validate:"required,oneof=decision constraint gotcha style_rule learning"`
	Content      string           `json:"content" validate:"required,max=2000"`
	Confidence   float64          `json:"confidence" validate:"gte=0,lte=1"`
	Status       MemoryItemStatus `json:"status" validate:"required,oneof=candidate active stable deprecated"`
	Provenance   Provenance       `json:"provenance"`
	Anchors      []string         `json:"anchors,omitempty"`
	TTLPolicy    string           `json:"ttl_policy,omitempty"`
	ContentHash  string           `json:"content_hash" validate:"required"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	DeprecatedAt *time.Time       `json:"deprecated_at,omitempty"`
}

// validTransitions enumerates allowed MemoryItemStatus moves (§3.1):
// candidate -> active -> stable forward, any state -> deprecated.
var validTransitions = map[MemoryItemStatus]map[MemoryItemStatus]bool{
	MemoryStatusCandidate: {MemoryStatusActive: true, MemoryStatusDeprecated: true},
	MemoryStatusActive:    {MemoryStatusStable: true, MemoryStatusDeprecated: true},
	MemoryStatusStable:    {MemoryStatusDeprecated: true},
}

// CanTransition reports whether moving from the item's current status to
// next is allowed.
func (m *MemoryItem) CanTransition(next MemoryItemStatus) bool {
	if next == m.Status {
		return false
	}
	allowed, ok := validTransitions[m.Status]
	return ok && allowed[next]
}

// ContextModuleSelectors filters which memory items a ContextModule
// pulls in.
type ContextModuleSelectors struct {
	Types         []MemoryItemType `json:"types,omitempty"`
	MinConfidence float64          `json:"min_confidence"`
	FileAnchors   []string         `json:"file_anchors,omitempty"`
	WorkflowStages []string        `json:"workflow_stages,omitempty"`
	Priority      int              `json:"priority"`
}

// ContextModule names an ordered, selector-filtered set of memory items.
type ContextModule struct {
	ID         string                 `json:"id"`
	ProjectID  string                 `json:"project_id"`
	Name       string                 `json:"name"`
	Selectors  ContextModuleSelectors `json:"selectors"`
	MemberIDs  []string               `json:"member_ids,omitempty"`
}

// SnapshotScope identifies what a Snapshot captures.
type SnapshotScope string

const (
	SnapshotScopeArtifact        SnapshotScope = "artifact"
	SnapshotScopeDeployedProject SnapshotScope = "deployed_project"
)

// SnapshotReason records why a snapshot was taken.
type SnapshotReason string

const (
	SnapshotReasonAuto     SnapshotReason = "auto"
	SnapshotReasonManual   SnapshotReason = "manual"
	SnapshotReasonPreSync  SnapshotReason = "pre-sync"
	SnapshotReasonPostSync SnapshotReason = "post-sync"
	SnapshotReasonPreDeploy  SnapshotReason = "pre-deploy"
	SnapshotReasonPostDeploy SnapshotReason = "post-deploy"
)

// Snapshot is a content-addressed capture of a tree of files.
type Snapshot struct {
	ID              string            `json:"id"`
	Scope           SnapshotScope     `json:"scope"`
	ScopeID         string            `json:"scope_id"`
	ContentHashRoot string            `json:"content_hash_root"`
	Tree            map[string]string `json:"tree"` // relative_path -> blob hash
	CreatedAt       time.Time         `json:"created_at"`
	Reason          SnapshotReason    `json:"reason"`
	By              string            `json:"by"`
}
