// Package artifactindex is the Artifact Index (C3): the canonical view
// over artifacts that turns a raw DetectedArtifact (an external
// discovery input) into a normalized, identity-resolved row ready for
// the Store.
package artifactindex

import (
	"context"
	"path"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/google/uuid"

	"github.com/miethe/skillmeat/internal/fsadapter"
	"github.com/miethe/skillmeat/internal/models"
	"github.com/miethe/skillmeat/internal/store"
)

// identityCacheSize bounds the content-hash identity cache. A
// collection re-scan touches every artifact it already indexed, so
// this is sized generously rather than tuned to a specific collection.
const identityCacheSize = 4096

// DetectedFile is one file belonging to a DetectedArtifact, as
// produced by discovery (out of this core's scope — discovery hands
// the index raw bytes per file).
type DetectedFile struct {
	RelativePath string
	Content      []byte
}

// DetectedArtifact is discovery's raw output: an un-indexed candidate
// artifact awaiting canonicalization and identity resolution.
type DetectedArtifact struct {
	Name            string
	Type            models.ArtifactType
	Origin          models.Origin
	Upstream        string
	ResolvedVersion string
	VersionSpec     string
	PathPattern     string
	Tags            []string
	Metadata        map[string]string
	Files           []DetectedFile
}

// Index resolves DetectedArtifact identity against a collection.
type Index struct {
	store *store.Store
	cache *lru.Cache[string, Resolution]
}

func New(s *store.Store) *Index {
	cache, _ := lru.New[string, Resolution](identityCacheSize)
	return &Index{store: s, cache: cache}
}

func identityCacheKey(collectionID, contentHash string) string {
	return collectionID + "|" + contentHash
}

// Canonicalize normalizes name, type, and path pattern into the stored
// form: lowercase type, trimmed name, path pattern forced to start
// under `.claude/`.
func Canonicalize(d *DetectedArtifact) *DetectedArtifact {
	out := *d
	out.Name = strings.TrimSpace(d.Name)
	out.Type = models.ArtifactType(strings.ToLower(string(d.Type)))
	out.PathPattern = canonicalPathPattern(out.Type, out.Name, d.PathPattern)
	return &out
}

func canonicalPathPattern(typ models.ArtifactType, name, given string) string {
	if given != "" {
		if strings.HasPrefix(given, ".claude/") {
			return given
		}
		return path.Join(".claude", given)
	}
	return path.Join(".claude", typePlural(typ), name)
}

func typePlural(typ models.ArtifactType) string {
	plural := map[models.ArtifactType]string{
		models.ArtifactTypeSkill:     "skills",
		models.ArtifactTypeCommand:   "commands",
		models.ArtifactTypeAgent:     "agents",
		models.ArtifactTypeHook:      "hooks",
		models.ArtifactTypeMCPServer: "mcp-servers",
		models.ArtifactTypeContext:   "context",
		models.ArtifactTypeSpec:      "specs",
		models.ArtifactTypeRule:      "rules",
	}[typ]
	if plural == "" {
		plural = string(typ) + "s"
	}
	return plural
}

// CollectionRelPath returns an artifact's canonical storage location
// under a collection root — `artifacts/<type_plural>/<name>` (§6.1) —
// distinct from PathPattern, which is the project-side deploy target
// under `.claude/`.
func CollectionRelPath(typ models.ArtifactType, name string) string {
	return path.Join("artifacts", typePlural(typ), name)
}

// ComputeContentHash hashes the sorted (relative_path, file_hash) list
// of an artifact's files into a single Merkle root — stable content
// identity across re-imports with identical bytes in any file order.
func ComputeContentHash(files []DetectedFile) string {
	entries := make([]fsadapter.TreeEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, fsadapter.TreeEntry{
			RelativePath: f.RelativePath,
			Hash:         fsadapter.ComputeContentHash(f.Content),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].RelativePath < entries[j].RelativePath })
	return fsadapter.MerkleRoot(entries)
}

// Resolution is the outcome of identity resolution: the uuid to use
// and whether it is newly minted.
type Resolution struct {
	UUID        string
	IsNew       bool
	ContentHash string
}

// ResolveIdentity implements the three-tier lookup from §4.3:
// content-hash match wins outright (reuse uuid as-is); else an
// (origin, upstream, type, name) match keeps its uuid but adopts the
// new content hash; else a fresh uuid is minted.
func (idx *Index) ResolveIdentity(ctx context.Context, tx *store.Tx, collectionID string, d *DetectedArtifact) (*Resolution, error) {
	contentHash := ComputeContentHash(d.Files)
	cacheKey := identityCacheKey(collectionID, contentHash)

	if idx.cache != nil {
		if cached, ok := idx.cache.Get(cacheKey); ok {
			res := cached
			return &res, nil
		}
	}

	if byHash, err := idx.store.FindArtifactByContentHash(ctx, tx, collectionID, contentHash); err != nil {
		return nil, err
	} else if byHash != nil {
		res := Resolution{UUID: byHash.UUID, IsNew: false, ContentHash: contentHash}
		idx.remember(cacheKey, res)
		return &res, nil
	}

	if d.Origin != "" && d.Upstream != "" {
		if byUpstream, err := idx.store.FindArtifactByUpstream(ctx, tx, collectionID, d.Origin, d.Upstream, d.Type, d.Name); err != nil {
			return nil, err
		} else if byUpstream != nil {
			res := Resolution{UUID: byUpstream.UUID, IsNew: false, ContentHash: contentHash}
			idx.remember(cacheKey, res)
			return &res, nil
		}
	}

	// Not cached: the caller may not go on to persist this uuid (e.g. a
	// dry-run scan), so remembering it here could serve a dangling uuid
	// to a later real import of the same bytes.
	return &Resolution{UUID: uuid.NewString(), IsNew: true, ContentHash: contentHash}, nil
}

func (idx *Index) remember(cacheKey string, res Resolution) {
	if idx.cache != nil {
		idx.cache.Add(cacheKey, res)
	}
}

// Invalidate drops a collection/content-hash pair from the identity
// cache. Callers must invoke this on artifact deletion: otherwise a
// re-import of identical bytes after a delete would resolve to the
// deleted row's now-dangling uuid instead of minting a fresh one.
func (idx *Index) Invalidate(collectionID, contentHash string) {
	if idx.cache != nil {
		idx.cache.Remove(identityCacheKey(collectionID, contentHash))
	}
}

// ToArtifact builds the Store row for a resolved DetectedArtifact.
func ToArtifact(collectionID string, d *DetectedArtifact, res *Resolution) *models.Artifact {
	return &models.Artifact{
		UUID:            res.UUID,
		CollectionID:    collectionID,
		Name:            d.Name,
		Type:            d.Type,
		Origin:          d.Origin,
		Upstream:        d.Upstream,
		ResolvedVersion: d.ResolvedVersion,
		VersionSpec:     d.VersionSpec,
		ContentHash:     res.ContentHash,
		PathPattern:     d.PathPattern,
		Tags:            d.Tags,
		Metadata:        d.Metadata,
	}
}
