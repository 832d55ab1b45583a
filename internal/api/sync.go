package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	skillmeaterrors "github.com/miethe/skillmeat/internal/errors"
)

type syncArtifactRequest struct {
	ArtifactUUID string `json:"artifact_uuid" binding:"required"`
	ProjectID    string `json:"project_id" binding:"required"`
}

func (s *Server) syncPreview(c *gin.Context) {
	var req syncArtifactRequest
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
	artifact, err := s.app.Store.GetArtifact(ctx, nil, req.ArtifactUUID)
	if err != nil {
		respondErr(c, err)
		return
	}
	project, err := s.app.Store.GetProject(ctx, nil, req.ProjectID)
	if err != nil {
		respondErr(c, err)
		return
	}
	plan, err := s.app.Orchestrator.SyncPreview(ctx, ref.Root, project.Path, artifact)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (s *Server) syncPull(c *gin.Context) {
	var req syncArtifactRequest
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
	artifact, err := s.app.Store.GetArtifact(ctx, nil, req.ArtifactUUID)
	if err != nil {
		respondErr(c, err)
		return
	}
	project, err := s.app.Store.GetProject(ctx, nil, req.ProjectID)
	if err != nil {
		respondErr(c, err)
		return
	}
	plan, err := s.app.Orchestrator.SyncPreview(ctx, ref.Root, project.Path, artifact)
	if err != nil {
		respondErr(c, err)
		return
	}
	source, collection, projectTree, err := s.app.Orchestrator.Trees(ctx, ref.Root, project.Path, artifact)
	if err != nil {
		respondErr(c, err)
		return
	}
	outcome, err := s.app.Orchestrator.SyncPull(ctx, project.Path, artifact, req.ProjectID, plan, source, collection, projectTree)
	if err != nil {
		respondErr(c, err)
		return
	}
	status := http.StatusOK
	if len(outcome.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, outcome)
}

func (s *Server) syncPush(c *gin.Context) {
	var req syncArtifactRequest
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
	artifact, err := s.app.Store.GetArtifact(ctx, nil, req.ArtifactUUID)
	if err != nil {
		respondErr(c, err)
		return
	}
	project, err := s.app.Store.GetProject(ctx, nil, req.ProjectID)
	if err != nil {
		respondErr(c, err)
		return
	}
	plan, err := s.app.Orchestrator.SyncPreview(ctx, ref.Root, project.Path, artifact)
	if err != nil {
		respondErr(c, err)
		return
	}
	_, _, projectTree, err := s.app.Orchestrator.Trees(ctx, ref.Root, project.Path, artifact)
	if err != nil {
		respondErr(c, err)
		return
	}
	applied, failed, err := s.app.Orchestrator.SyncPush(ctx, ref.Root, artifact, plan, projectTree)
	if err != nil {
		respondErr(c, err)
		return
	}
	status := http.StatusOK
	if len(failed) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{"applied": applied, "failed": failed})
}
