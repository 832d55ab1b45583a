package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/miethe/skillmeat/internal/artifactindex"
	skillmeaterrors "github.com/miethe/skillmeat/internal/errors"
	"github.com/miethe/skillmeat/internal/models"
	"github.com/miethe/skillmeat/internal/store"
)

// listArtifacts implements GET /artifacts: cursor-paginated per
// store.ListOptions, mirroring the CLI's `list artifacts` command.
func (s *Server) listArtifacts(c *gin.Context) {
	ctx := c.Request.Context()
	ref, err := s.app.EnsureCollection(ctx)
	if err != nil {
		respondErr(c, err)
		return
	}
	pageSize := 0
	if v := c.Query("page_size"); v != "" {
		pageSize, _ = strconv.Atoi(v)
	}
	items, page, err := s.app.Store.ListArtifactsByCollection(ctx, nil, ref.ID, store.ListOptions{
		Cursor:   c.Query("cursor"),
		PageSize: pageSize,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"artifacts": items, "cursor": page.Cursor, "has_more": page.HasMore})
}

// detectedFileDTO is the JSON-friendly mirror of artifactindex.DetectedFile.
type detectedFileDTO struct {
	RelativePath string `json:"relative_path" binding:"required"`
	Content      string `json:"content"`
}

// importRequest is the JSON-friendly mirror of artifactindex.DetectedArtifact.
// binding tags drive gin's ShouldBindJSON validation (go-playground/
// validator under the hood, the same library C1 uses for MemoryItem).
type importRequest struct {
	Name            string            `json:"name" binding:"required"`
	Type            string            `json:"type" binding:"required"`
	Origin          string            `json:"origin"`
	Upstream        string            `json:"upstream"`
	ResolvedVersion string            `json:"resolved_version"`
	VersionSpec     string            `json:"version_spec"`
	PathPattern     string            `json:"path_pattern"`
	Tags            []string          `json:"tags"`
	Metadata        map[string]string `json:"metadata"`
	Files           []detectedFileDTO `json:"files" binding:"required,min=1,dive"`
}

func (r importRequest) toDetected() *artifactindex.DetectedArtifact {
	files := make([]artifactindex.DetectedFile, len(r.Files))
	for i, f := range r.Files {
		files[i] = artifactindex.DetectedFile{RelativePath: f.RelativePath, Content: []byte(f.Content)}
	}
	return &artifactindex.DetectedArtifact{
		Name:            r.Name,
		Type:            models.ArtifactType(r.Type),
		Origin:          models.Origin(r.Origin),
		Upstream:        r.Upstream,
		ResolvedVersion: r.ResolvedVersion,
		VersionSpec:     r.VersionSpec,
		PathPattern:     r.PathPattern,
		Tags:            r.Tags,
		Metadata:        r.Metadata,
		Files:           files,
	}
}

// importArtifact implements POST /artifacts/import: resolve identity
// and upsert one artifact from an inline file set (the HTTP analogue
// of the CLI's directory-scanning `import` command).
func (s *Server) importArtifact(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, skillmeaterrors.Validation(err.Error()))
		return
	}
	ctx := c.Request.Context()
	ref, err := s.app.EnsureCollection(ctx)
	if err != nil {
		respondErr(c, err)
		return
	}
	artifact, err := s.app.Orchestrator.ImportArtifact(ctx, ref.ID, req.toDetected())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, artifact)
}

// updateArtifact implements PATCH /artifacts/:uuid: re-detect content
// for an already-imported artifact and persist the new version.
func (s *Server) updateArtifact(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, skillmeaterrors.Validation(err.Error()))
		return
	}
	ctx := c.Request.Context()
	ref, err := s.app.EnsureCollection(ctx)
	if err != nil {
		respondErr(c, err)
		return
	}
	artifact, err := s.app.Orchestrator.UpdateArtifact(ctx, ref.Root, c.Param("uuid"), req.toDetected())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, artifact)
}

func (s *Server) deleteArtifact(c *gin.Context) {
	if err := s.app.Orchestrator.DeleteArtifact(c.Request.Context(), c.Param("uuid")); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
