// Package discovery walks a `.claude`-shaped directory tree (a
// project's deploy target or a collection's `artifacts/` root) and
// groups files into raw DetectedArtifact candidates for the Artifact
// Index (C3) to canonicalize and resolve. It only reads bytes; it
// never talks to the Store.
package discovery

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/miethe/skillmeat/internal/artifactindex"
	"github.com/miethe/skillmeat/internal/fsadapter"
	"github.com/miethe/skillmeat/internal/models"
)

// typeSingular maps a top-level type-plural directory name (§6.1) back
// to its ArtifactType, the reverse of artifactindex's typePlural.
var typeSingular = map[string]models.ArtifactType{
	"skills":      models.ArtifactTypeSkill,
	"commands":    models.ArtifactTypeCommand,
	"agents":      models.ArtifactTypeAgent,
	"hooks":       models.ArtifactTypeHook,
	"mcp-servers": models.ArtifactTypeMCPServer,
	"context":     models.ArtifactTypeContext,
	"specs":       models.ArtifactTypeSpec,
	"rules":       models.ArtifactTypeRule,
}

// Scan groups every file under root into one DetectedArtifact per
// `<type_plural>/<name>/` directory. A file that isn't at least two
// directories deep under root, or whose first segment isn't a known
// type-plural, is skipped: it isn't part of an artifact's own tree
// (stray top-level files under a project's `.claude/` are not this
// core's concern).
func Scan(fs *fsadapter.Adapter, root string) ([]*artifactindex.DetectedArtifact, error) {
	groups := map[string]*artifactindex.DetectedArtifact{}
	var order []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, werr error) error {
		if werr != nil {
			return werr
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		parts := strings.SplitN(rel, "/", 3)
		if len(parts) < 3 {
			return nil
		}
		typ, ok := typeSingular[parts[0]]
		if !ok {
			return nil
		}
		name := parts[1]
		key := parts[0] + "/" + name
		da, exists := groups[key]
		if !exists {
			da = &artifactindex.DetectedArtifact{Name: name, Type: typ, Origin: models.OriginLocal}
			groups[key] = da
			order = append(order, key)
		}
		content, readErr := fs.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		da.Files = append(da.Files, artifactindex.DetectedFile{RelativePath: parts[2], Content: content})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	sort.Strings(order)
	out := make([]*artifactindex.DetectedArtifact, 0, len(order))
	for _, k := range order {
		sort.Slice(groups[k].Files, func(i, j int) bool {
			return groups[k].Files[i].RelativePath < groups[k].Files[j].RelativePath
		})
		out = append(out, groups[k])
	}
	return out, nil
}
