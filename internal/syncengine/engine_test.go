package syncengine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miethe/skillmeat/internal/fsadapter"
)

func TestPlanClassifiesEachLeg(t *testing.T) {
	e := New(fsadapter.New())

	source := Tree{"a.md": []byte("source version")}
	collection := Tree{"a.md": []byte("base"), "b.md": []byte("same")}
	project := Tree{"a.md": []byte("base"), "b.md": []byte("same")}

	plan, err := e.Plan(source, collection, project, StrategyMerge)
	require.NoError(t, err)

	byPath := map[string]PathPlan{}
	for _, pp := range plan.Paths {
		byPath[pp.Path] = pp
	}
	assert.Equal(t, StateSourceDrift, byPath["a.md"].State)
	assert.Equal(t, TakeSource, byPath["a.md"].Resolution)
	assert.Equal(t, StateInSync, byPath["b.md"].State)
}

func TestPlanMergeFailsClosedOnHardConflict(t *testing.T) {
	e := New(fsadapter.New())

	ancestor := "line1\nline2\nline3\n"
	source := Tree{"a.md": []byte("line1\nSOURCE-CHANGE\nline3\n")}
	collection := Tree{"a.md": []byte(ancestor)}
	project := Tree{"a.md": []byte("line1\nPROJECT-CHANGE\nline3\n")}

	_, err := e.Plan(source, collection, project, StrategyMerge)
	require.Error(t, err)
}

func TestApplyWritesResolvedFiles(t *testing.T) {
	e := New(fsadapter.New())
	dir := t.TempDir()

	source := Tree{"a.md": []byte("new from source")}
	collection := Tree{"a.md": []byte("old")}
	project := Tree{"a.md": []byte("old")}

	plan, err := e.Plan(source, collection, project, StrategyTheirs)
	require.NoError(t, err)

	applied, failed := e.Apply(context.Background(), dir, plan, source, collection, project)
	assert.Empty(t, failed)
	assert.Contains(t, applied, "a.md")

	b, err := os.ReadFile(filepath.Join(dir, "a.md"))
	require.NoError(t, err)
	assert.Equal(t, "new from source", string(b))
}
