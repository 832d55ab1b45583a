package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	skillmeaterrors "github.com/miethe/skillmeat/internal/errors"
	"github.com/miethe/skillmeat/internal/fsadapter"
)

type deployRequest struct {
	ArtifactUUID string `json:"artifact_uuid" binding:"required"`
	ProjectID    string `json:"project_id" binding:"required"`
	ProfileID    string `json:"profile_id" binding:"required"`
	Overwrite    bool   `json:"overwrite"`
}

func (s *Server) deploy(c *gin.Context) {
	var req deployRequest
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
	d, err := s.app.Orchestrator.Deploy(ctx, ref.Root, req.ArtifactUUID, req.ProjectID, req.ProfileID, req.Overwrite)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

type deploySetRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
	ProfileID string `json:"profile_id" binding:"required"`
	Overwrite bool   `json:"overwrite"`
}

func (s *Server) deploySet(c *gin.Context) {
	var req deploySetRequest
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
	project, err := s.app.Store.GetProject(ctx, nil, req.ProjectID)
	if err != nil {
		respondErr(c, err)
		return
	}
	setID := c.Param("id")
	journalPath := fsadapter.JournalPathFor(project.Path, setID)
	applied, outcome, err := s.app.Orchestrator.DeploySet(ctx, ref.Root, journalPath, setID, req.ProjectID, req.ProfileID, req.Overwrite)
	if err != nil {
		respondErr(c, err)
		return
	}
	if outcome != nil && len(outcome.Failed) > 0 {
		c.JSON(http.StatusMultiStatus, gin.H{"applied": applied, "failed": outcome.Failed})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"applied": applied})
}

func (s *Server) undeploy(c *gin.Context) {
	projectID := c.Query("project_id")
	profileID := c.Query("profile_id")
	if projectID == "" || profileID == "" {
		respondErr(c, skillmeaterrors.Validation("project_id and profile_id query parameters are required"))
		return
	}
	if err := s.app.Orchestrator.Undeploy(c.Request.Context(), c.Param("artifactUUID"), projectID, profileID); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
