// Package fsadapter is the FS Adapter (C2): the only component that
// touches the filesystem. Every read, write, hash, and directory
// replace the rest of the core needs goes through here so path safety
// and atomicity are enforced in exactly one place.
package fsadapter

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/miethe/skillmeat/internal/errors"
	"github.com/miethe/skillmeat/internal/logger"
)

// Adapter is stateless beyond its logger; every operation takes its
// root/path arguments explicitly (no global working directory).
type Adapter struct {
	log logger.Logger
}

func New() *Adapter {
	return &Adapter{log: logger.New("fsadapter")}
}

// ResolvePath joins root and relative, rejecting traversal outside
// root. requireClaudeDir additionally enforces the path lands under a
// `.claude/` prefix, for deploy and context operations (§4.2).
func (a *Adapter) ResolvePath(root, relative string, requireClaudeDir bool) (string, error) {
	if filepath.IsAbs(relative) {
		return "", errors.PathOutsideRoot(relative)
	}
	cleanRel := filepath.Clean(relative)
	if cleanRel == ".." || strings.HasPrefix(cleanRel, ".."+string(filepath.Separator)) {
		return "", errors.PathOutsideRoot(relative)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", errors.FilesystemError("resolve_path", root, err)
	}
	full := filepath.Join(absRoot, cleanRel)
	rel, err := filepath.Rel(absRoot, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.PathOutsideRoot(relative)
	}
	if requireClaudeDir {
		segs := strings.Split(filepath.ToSlash(cleanRel), "/")
		if len(segs) == 0 || segs[0] != ".claude" {
			return "", errors.PathOutsideRoot(relative).WithDetail("reason", "not under .claude/")
		}
	}
	return full, nil
}

// ReadFile reads and returns raw bytes.
func (a *Adapter) ReadFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FilesystemError("read", path, err)
	}
	return b, nil
}

// ReadFileWithHash reads a file and returns its bytes alongside the
// canonical content hash.
func (a *Adapter) ReadFileWithHash(path string) ([]byte, string, error) {
	b, err := a.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return b, ComputeContentHash(b), nil
}

// WriteFile writes bytes atomically: a temp file on the same
// directory, fsync, then rename over the destination.
func (a *Adapter) WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.FilesystemError("mkdir", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".skillmeat-write-*")
	if err != nil {
		return errors.FilesystemError("write", path, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.FilesystemError("write", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.FilesystemError("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.FilesystemError("write", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.AtomicReplaceFailed(path, err)
	}
	return nil
}

// ComputeContentHash hashes canonicalized bytes: CRLF line endings are
// normalized to LF before hashing so files differing only in line
// ending hash identically (§8 invariant 2), and the trailing newline
// (if present) is preserved as-is.
func ComputeContentHash(b []byte) string {
	canon := canonicalize(b)
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:])
}

func canonicalize(b []byte) []byte {
	if !strings.Contains(string(b), "\r\n") {
		return b
	}
	return []byte(strings.ReplaceAll(string(b), "\r\n", "\n"))
}

// DetectChanges reports whether the file at path differs from
// expectedHash. A missing or unreadable file is treated as unchanged
// (the safer default per §4.2 — a vanished file is a different failure
// mode than a modified one).
func (a *Adapter) DetectChanges(expectedHash, path string) bool {
	b, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return ComputeContentHash(b) != expectedHash
}

// TreeEntry is one leaf of an ls_tree walk.
type TreeEntry struct {
	RelativePath string
	Hash         string
}

// LsTree walks root and returns a sorted (relative_path, hash) list —
// the Merkle-style leaf set used for content-addressed snapshots and
// three-way sync diffing.
func (a *Adapter) LsTree(root string) ([]TreeEntry, error) {
	var entries []TreeEntry
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		entries = append(entries, TreeEntry{RelativePath: filepath.ToSlash(rel), Hash: ComputeContentHash(b)})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.FilesystemError("ls_tree", root, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].RelativePath < entries[j].RelativePath })
	return entries, nil
}

// MerkleRoot folds a sorted tree entry list into a single root hash by
// hashing the concatenation of "path\x00hash\n" for every leaf, in
// path order — deterministic and stable under entry reordering inputs.
func MerkleRoot(entries []TreeEntry) string {
	sorted := make([]TreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RelativePath < sorted[j].RelativePath })
	h := sha256.New()
	for _, e := range sorted {
		io.WriteString(h, e.RelativePath)
		h.Write([]byte{0})
		io.WriteString(h, e.Hash)
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// StageDir creates a fresh staging directory alongside target (same
// filesystem, so the later rename is atomic) and writes every file
// into it.
func (a *Adapter) StageDir(targetDir string, files map[string][]byte) (string, error) {
	parent := filepath.Dir(targetDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", errors.FilesystemError("mkdir", parent, err)
	}
	staging := filepath.Join(parent, ".skillmeat-staging-"+uuid.NewString())
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return "", errors.FilesystemError("mkdir", staging, err)
	}
	for rel, data := range files {
		full := filepath.Join(staging, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			os.RemoveAll(staging)
			return "", errors.FilesystemError("mkdir", filepath.Dir(full), err)
		}
		if err := os.WriteFile(full, data, 0o644); err != nil {
			os.RemoveAll(staging)
			return "", errors.FilesystemError("write", full, err)
		}
	}
	return staging, nil
}

// AtomicReplaceDir swaps stagingDir into targetDir's place. A prior
// target (if any) is moved aside first so the operation can be undone
// if the final rename fails, per the deploy-set primitive in §4.2:
// rename is atomic per directory on the filesystems this targets.
func (a *Adapter) AtomicReplaceDir(targetDir, stagingDir string) error {
	backup := targetDir + ".bak-" + uuid.NewString()
	hadTarget := false
	if _, err := os.Stat(targetDir); err == nil {
		if err := os.Rename(targetDir, backup); err != nil {
			return errors.AtomicReplaceFailed(targetDir, err)
		}
		hadTarget = true
	}
	if err := os.Rename(stagingDir, targetDir); err != nil {
		if hadTarget {
			_ = os.Rename(backup, targetDir)
		}
		return errors.AtomicReplaceFailed(targetDir, err)
	}
	if hadTarget {
		os.RemoveAll(backup)
	}
	return nil
}
