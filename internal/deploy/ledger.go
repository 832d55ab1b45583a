package deploy

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/miethe/skillmeat/internal/errors"
	"github.com/miethe/skillmeat/internal/models"
)

// LedgerEntry is one deployed artifact's row in a project's
// `.skillmeat-deployed.toml` (§6.1) — the project-local projection of
// the Deployment table, read by the CLI when the Store isn't reachable.
type LedgerEntry struct {
	UUID              string    `toml:"uuid"`
	Type              string    `toml:"type"`
	Name              string    `toml:"name"`
	SourceContentHash string    `toml:"source_content_hash"`
	DeployedAt        time.Time `toml:"deployed_at"`
	ProfileID         string    `toml:"profile_id"`
}

type ledgerFile struct {
	Deployments []LedgerEntry `toml:"deployments"`
}

// LedgerPath is the fixed project-relative filename (§6.1).
const LedgerPath = ".skillmeat-deployed.toml"

// WriteLedger re-derives the full ledger for a project from its current
// Deployment rows and atomically replaces the file on disk. The Store
// is authoritative (Open Question #2: DB wins on disagreement) so this
// is always a full overwrite, never an incremental patch.
func WriteLedger(projectRoot string, deployments []*models.Deployment, artifacts map[string]*models.Artifact) error {
	lf := ledgerFile{Deployments: make([]LedgerEntry, 0, len(deployments))}
	for _, d := range deployments {
		a := artifacts[d.ArtifactUUID]
		entry := LedgerEntry{
			UUID:              d.ArtifactUUID,
			SourceContentHash: d.SourceContentHash,
			DeployedAt:        d.DeployedAt,
			ProfileID:         d.ProfileID,
		}
		if a != nil {
			entry.Type = string(a.Type)
			entry.Name = a.Name
		}
		lf.Deployments = append(lf.Deployments, entry)
	}

	data, err := toml.Marshal(lf)
	if err != nil {
		return errors.FilesystemError("marshal_ledger", projectRoot, err)
	}

	path := filepath.Join(projectRoot, LedgerPath)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.FilesystemError("write_ledger", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.AtomicReplaceFailed(projectRoot, err)
	}
	return nil
}

// ReadLedger loads a project's ledger for offline inspection. A missing
// file is not an error: it just means nothing has ever been deployed
// with ledger support, or the project predates it.
func ReadLedger(projectRoot string) ([]LedgerEntry, error) {
	path := filepath.Join(projectRoot, LedgerPath)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.FilesystemError("read_ledger", path, err)
	}
	var lf ledgerFile
	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, errors.FilesystemError("parse_ledger", path, err)
	}
	return lf.Deployments, nil
}
