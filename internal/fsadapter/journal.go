package fsadapter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/miethe/skillmeat/internal/errors"
)

// Replacement is one member of a coordinated multi-directory deploy:
// stagingDir gets atomically renamed into targetDir.
type Replacement struct {
	Name       string `json:"name"`
	TargetDir  string `json:"target_dir"`
	StagingDir string `json:"staging_dir"`
}

// JournalEntry records the outcome of one Replacement, written to the
// journal file as each rename completes so a crash mid-apply leaves a
// file describing exactly which members landed.
type JournalEntry struct {
	Name      string    `json:"name"`
	Applied   bool      `json:"applied"`
	Error     string    `json:"error,omitempty"`
	AppliedAt time.Time `json:"applied_at"`
}

// Journal is the on-disk record of an in-progress coordinated deploy.
type Journal struct {
	Path    string         `json:"-"`
	Entries []JournalEntry `json:"entries"`
}

func newJournal(path string) *Journal {
	return &Journal{Path: path}
}

func (j *Journal) append(entry JournalEntry) error {
	j.Entries = append(j.Entries, entry)
	b, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return errors.FilesystemError("journal_write", j.Path, err)
	}
	if err := os.WriteFile(j.Path, b, 0o644); err != nil {
		return errors.FilesystemError("journal_write", j.Path, err)
	}
	return nil
}

// LoadJournal reads a journal file left behind by an interrupted
// AtomicReplaceMulti call, so a resume can skip members already marked
// applied.
func LoadJournal(path string) (*Journal, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Journal{Path: path}, nil
	}
	if err != nil {
		return nil, errors.FilesystemError("journal_read", path, err)
	}
	var j Journal
	if err := json.Unmarshal(b, &j); err != nil {
		return nil, errors.FilesystemError("journal_read", path, err)
	}
	j.Path = path
	return &j, nil
}

// AtomicReplaceMulti applies a coordinated deploy: each Replacement is
// renamed into place in order, with the journal updated after every
// member so an interrupted run is both detectable (journal exists with
// entries) and resumable (skip members already marked applied).
//
// On the first failure, already-applied members are NOT rolled back
// here — §4.5 requires the caller to record a PartialDeploy with the
// exact applied/failed split rather than attempt cross-member rollback.
func (a *Adapter) AtomicReplaceMulti(journalPath string, replacements []Replacement) (applied []string, failErr error) {
	j, err := LoadJournal(journalPath)
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(j.Entries))
	for _, e := range j.Entries {
		if e.Applied {
			done[e.Name] = true
			applied = append(applied, e.Name)
		}
	}

	for _, r := range replacements {
		if done[r.Name] {
			continue
		}
		if err := a.AtomicReplaceDir(r.TargetDir, r.StagingDir); err != nil {
			_ = j.append(JournalEntry{Name: r.Name, Applied: false, Error: err.Error(), AppliedAt: timeNow()})
			return applied, err
		}
		applied = append(applied, r.Name)
		if err := j.append(JournalEntry{Name: r.Name, Applied: true, AppliedAt: timeNow()}); err != nil {
			return applied, err
		}
	}
	// Every member applied cleanly: the journal has done its job.
	os.Remove(journalPath)
	return applied, nil
}

func timeNow() time.Time { return time.Now().UTC() }

// JournalPathFor derives a per-deploy journal file path under the
// project's .claude/ root.
func JournalPathFor(projectRoot, deployID string) string {
	return filepath.Join(projectRoot, ".claude", ".skillmeat-journal-"+deployID+".json")
}
