package deploy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miethe/skillmeat/internal/models"
)

func TestWriteAndReadLedgerRoundTrip(t *testing.T) {
	root := t.TempDir()

	deployments := []*models.Deployment{
		{ArtifactUUID: "a1", ProjectID: "p1", ProfileID: "default", SourceContentHash: "hash-1", DeployedAt: time.Now().UTC().Truncate(time.Second)},
		{ArtifactUUID: "a2", ProjectID: "p1", ProfileID: "default", SourceContentHash: "hash-2", DeployedAt: time.Now().UTC().Truncate(time.Second)},
	}
	artifacts := map[string]*models.Artifact{
		"a1": {UUID: "a1", Name: "deploy", Type: models.ArtifactTypeCommand},
		"a2": {UUID: "a2", Name: "build", Type: models.ArtifactTypeSkill},
	}

	require.NoError(t, WriteLedger(root, deployments, artifacts))

	entries, err := ReadLedger(root)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byUUID := map[string]LedgerEntry{}
	for _, e := range entries {
		byUUID[e.UUID] = e
	}
	assert.Equal(t, "deploy", byUUID["a1"].Name)
	assert.Equal(t, string(models.ArtifactTypeCommand), byUUID["a1"].Type)
	assert.Equal(t, "hash-1", byUUID["a1"].SourceContentHash)
	assert.Equal(t, "build", byUUID["a2"].Name)

	_, statErr := os.Stat(filepath.Join(root, LedgerPath+".tmp"))
	assert.True(t, os.IsNotExist(statErr), "tmp file must not survive a successful write")
}

func TestReadLedgerMissingFileIsNotError(t *testing.T) {
	root := t.TempDir()

	entries, err := ReadLedger(root)
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestWriteLedgerOverwritesPriorContent(t *testing.T) {
	root := t.TempDir()

	first := []*models.Deployment{
		{ArtifactUUID: "a1", ProjectID: "p1", ProfileID: "default", SourceContentHash: "hash-1", DeployedAt: time.Now().UTC().Truncate(time.Second)},
	}
	require.NoError(t, WriteLedger(root, first, map[string]*models.Artifact{"a1": {UUID: "a1", Name: "deploy", Type: models.ArtifactTypeCommand}}))

	second := []*models.Deployment{
		{ArtifactUUID: "a2", ProjectID: "p1", ProfileID: "default", SourceContentHash: "hash-2", DeployedAt: time.Now().UTC().Truncate(time.Second)},
	}
	require.NoError(t, WriteLedger(root, second, map[string]*models.Artifact{"a2": {UUID: "a2", Name: "build", Type: models.ArtifactTypeSkill}}))

	entries, err := ReadLedger(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a2", entries[0].UUID)
}
