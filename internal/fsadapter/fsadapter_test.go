package fsadapter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePathRejectsTraversal(t *testing.T) {
	a := New()
	root := t.TempDir()

	_, err := a.ResolvePath(root, "../etc/passwd", false)
	require.Error(t, err)

	_, err = a.ResolvePath(root, "/etc/passwd", false)
	require.Error(t, err)

	p, err := a.ResolvePath(root, "skills/foo/SKILL.md", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "skills/foo/SKILL.md"), p)
}

func TestResolvePathRequiresClaudeDir(t *testing.T) {
	a := New()
	root := t.TempDir()

	_, err := a.ResolvePath(root, "skills/foo/SKILL.md", true)
	require.Error(t, err)

	p, err := a.ResolvePath(root, ".claude/skills/foo/SKILL.md", true)
	require.NoError(t, err)
	assert.Contains(t, p, ".claude")
}

func TestContentHashCanonicalizesLineEndings(t *testing.T) {
	lf := []byte("hello\nworld\n")
	crlf := []byte("hello\r\nworld\r\n")
	assert.Equal(t, ComputeContentHash(lf), ComputeContentHash(crlf))

	assert.NotEqual(t, ComputeContentHash(lf), ComputeContentHash([]byte("hello\nworld!\n")))
}

func TestWriteFileAtomicAndDetectChanges(t *testing.T) {
	a := New()
	dir := t.TempDir()
	path := filepath.Join(dir, "SKILL.md")

	require.NoError(t, a.WriteFile(path, []byte("v1")))
	_, hash, err := a.ReadFileWithHash(path)
	require.NoError(t, err)

	assert.False(t, a.DetectChanges(hash, path))

	require.NoError(t, a.WriteFile(path, []byte("v2")))
	assert.True(t, a.DetectChanges(hash, path))

	assert.False(t, a.DetectChanges(hash, filepath.Join(dir, "missing.md")))
}

func TestLsTreeAndMerkleRoot(t *testing.T) {
	a := New()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("A"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("B"), 0o644))

	entries, err := a.LsTree(root)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.txt", entries[0].RelativePath)
	assert.Equal(t, "sub/b.txt", entries[1].RelativePath)

	root1 := MerkleRoot(entries)
	root2 := MerkleRoot([]TreeEntry{entries[1], entries[0]})
	assert.Equal(t, root1, root2, "merkle root is order-independent")
}

func TestAtomicReplaceDir(t *testing.T) {
	a := New()
	base := t.TempDir()
	target := filepath.Join(base, "deployed")
	require.NoError(t, os.MkdirAll(target, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(target, "old.txt"), []byte("old"), 0o644))

	staging, err := a.StageDir(target, map[string][]byte{"new.txt": []byte("new")})
	require.NoError(t, err)

	require.NoError(t, a.AtomicReplaceDir(target, staging))

	b, err := os.ReadFile(filepath.Join(target, "new.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(b))
	_, err = os.Stat(filepath.Join(target, "old.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestAtomicReplaceMultiJournalsProgress(t *testing.T) {
	a := New()
	base := t.TempDir()
	journalPath := filepath.Join(base, "journal.json")

	target1 := filepath.Join(base, "skill")
	target2 := filepath.Join(base, "command")
	staging1, err := a.StageDir(target1, map[string][]byte{"SKILL.md": []byte("s")})
	require.NoError(t, err)
	staging2, err := a.StageDir(target2, map[string][]byte{"deploy.md": []byte("c")})
	require.NoError(t, err)

	applied, err := a.AtomicReplaceMulti(journalPath, []Replacement{
		{Name: "skill", TargetDir: target1, StagingDir: staging1},
		{Name: "command", TargetDir: target2, StagingDir: staging2},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"skill", "command"}, applied)
	_, err = os.Stat(journalPath)
	assert.True(t, os.IsNotExist(err), "journal is removed after a fully-applied run")
}
