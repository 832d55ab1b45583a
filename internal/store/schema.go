package store

import "context"

// schema creates every table the Store owns plus the mandatory indexes
// from §4.1. Statements are additive (IF NOT EXISTS) so migrate can run
// on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS collections (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	root       TEXT NOT NULL,
	is_active  INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS artifacts (
	uuid             TEXT PRIMARY KEY,
	collection_id    TEXT NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
	name             TEXT NOT NULL,
	type             TEXT NOT NULL,
	origin           TEXT NOT NULL,
	upstream         TEXT,
	resolved_version TEXT,
	version_spec     TEXT,
	content_hash     TEXT NOT NULL,
	path_pattern     TEXT NOT NULL,
	tags             TEXT,
	metadata         TEXT,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL,
	UNIQUE(collection_id, type, name)
);
CREATE INDEX IF NOT EXISTS idx_artifacts_collection_type_name ON artifacts(collection_id, type, name);
CREATE INDEX IF NOT EXISTS idx_artifacts_content_hash ON artifacts(content_hash);
CREATE INDEX IF NOT EXISTS idx_artifacts_origin_upstream ON artifacts(origin, upstream, type, name);

CREATE TABLE IF NOT EXISTS groups (
	id            TEXT PRIMARY KEY,
	collection_id TEXT NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
	name          TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	UNIQUE(collection_id, name)
);

CREATE TABLE IF NOT EXISTS group_memberships (
	group_id      TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
	artifact_uuid TEXT NOT NULL REFERENCES artifacts(uuid) ON DELETE CASCADE,
	position      REAL NOT NULL,
	PRIMARY KEY (group_id, artifact_uuid)
);

CREATE TABLE IF NOT EXISTS composite_artifacts (
	id             TEXT PRIMARY KEY,
	collection_id  TEXT NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
	composite_type TEXT NOT NULL CHECK (composite_type IN ('plugin','stack','suite','skill')),
	metadata       TEXT,
	created_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS composite_memberships (
	composite_id      TEXT NOT NULL REFERENCES composite_artifacts(id) ON DELETE CASCADE,
	child_artifact_uuid TEXT NOT NULL REFERENCES artifacts(uuid) ON DELETE CASCADE,
	position          REAL NOT NULL,
	PRIMARY KEY (composite_id, child_artifact_uuid)
);
CREATE INDEX IF NOT EXISTS idx_composite_memberships_composite ON composite_memberships(composite_id);
CREATE INDEX IF NOT EXISTS idx_composite_memberships_child ON composite_memberships(child_artifact_uuid);

CREATE TABLE IF NOT EXISTS deployment_sets (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	name       TEXT NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE(owner_id, name)
);

CREATE TABLE IF NOT EXISTS deployment_set_members (
	set_id        TEXT NOT NULL REFERENCES deployment_sets(id) ON DELETE CASCADE,
	kind          TEXT NOT NULL CHECK (kind IN ('artifact','group','member_set')),
	artifact_uuid TEXT REFERENCES artifacts(uuid) ON DELETE CASCADE,
	group_id      TEXT REFERENCES groups(id) ON DELETE CASCADE,
	member_set_id TEXT REFERENCES deployment_sets(id) ON DELETE CASCADE,
	position      REAL NOT NULL,
	CHECK (
		(kind = 'artifact'   AND artifact_uuid IS NOT NULL AND group_id IS NULL AND member_set_id IS NULL) OR
		(kind = 'group'      AND group_id IS NOT NULL AND artifact_uuid IS NULL AND member_set_id IS NULL) OR
		(kind = 'member_set' AND member_set_id IS NOT NULL AND artifact_uuid IS NULL AND group_id IS NULL)
	)
);
CREATE INDEX IF NOT EXISTS idx_deployment_set_members_set ON deployment_set_members(set_id);

CREATE TABLE IF NOT EXISTS projects (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	path             TEXT NOT NULL UNIQUE,
	last_deployment  TEXT,
	deployment_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS deployments (
	artifact_uuid       TEXT NOT NULL REFERENCES artifacts(uuid) ON DELETE CASCADE,
	project_id          TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	profile_id          TEXT NOT NULL,
	deployed_at         TEXT NOT NULL,
	source_content_hash TEXT NOT NULL,
	deployed_path       TEXT NOT NULL,
	PRIMARY KEY (artifact_uuid, project_id, profile_id)
);
CREATE INDEX IF NOT EXISTS idx_deployments_project ON deployments(project_id);
CREATE INDEX IF NOT EXISTS idx_deployments_artifact ON deployments(artifact_uuid);

CREATE TABLE IF NOT EXISTS memory_items (
	id            TEXT PRIMARY KEY,
	project_id    TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	type          TEXT NOT NULL,
	content       TEXT NOT NULL,
	confidence    REAL NOT NULL,
	status        TEXT NOT NULL,
	provenance    TEXT NOT NULL,
	anchors       TEXT,
	ttl_policy    TEXT,
	content_hash  TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL,
	deprecated_at TEXT,
	UNIQUE(project_id, content_hash)
);
CREATE INDEX IF NOT EXISTS idx_memory_items_project_status ON memory_items(project_id, status);
CREATE INDEX IF NOT EXISTS idx_memory_items_project_type ON memory_items(project_id, type);
CREATE INDEX IF NOT EXISTS idx_memory_items_content_hash ON memory_items(content_hash);

CREATE TABLE IF NOT EXISTS context_modules (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	selectors  TEXT NOT NULL,
	member_ids TEXT,
	UNIQUE(project_id, name)
);

CREATE TABLE IF NOT EXISTS snapshots (
	id                TEXT PRIMARY KEY,
	scope             TEXT NOT NULL,
	scope_id          TEXT NOT NULL,
	content_hash_root TEXT NOT NULL,
	tree              TEXT NOT NULL,
	created_at        TEXT NOT NULL,
	reason            TEXT NOT NULL,
	by                TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_scope_created ON snapshots(scope, created_at);

CREATE TABLE IF NOT EXISTS snapshot_blobs (
	hash        TEXT PRIMARY KEY,
	size_bytes  INTEGER NOT NULL,
	ref_count   INTEGER NOT NULL DEFAULT 0
);
`

// migrate applies schema. SQLite CHECK constraints cannot be widened
// in place (no ALTER TABLE ... ADD CONSTRAINT); widening
// composite_type's allowed set requires the create-copy-rename-drop
// table rebuild this function would perform for any future migration
// step, following the teacher's own initSchema rebuild pattern.
func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return errors.StoreUnavailable(err)
	}
	return nil
}
