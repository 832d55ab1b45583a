package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	skillmeaterrors "github.com/miethe/skillmeat/internal/errors"
	"github.com/miethe/skillmeat/internal/models"
)

type snapshotRequest struct {
	Scope   string `json:"scope" binding:"required"`
	ScopeID string `json:"scope_id" binding:"required"`
	Root    string `json:"root" binding:"required"`
	By      string `json:"by" binding:"required"`
}

func (s *Server) createSnapshot(c *gin.Context) {
	var req snapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, skillmeaterrors.Validation(err.Error()))
		return
	}
	snap, err := s.app.Orchestrator.Snapshot(c.Request.Context(), models.SnapshotScope(req.Scope), req.ScopeID, req.Root, req.By)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

type rollbackRequest struct {
	Scope   string `json:"scope" binding:"required"`
	ScopeID string `json:"scope_id" binding:"required"`
	Root    string `json:"root" binding:"required"`
	By      string `json:"by" binding:"required"`
}

func (s *Server) rollbackSnapshot(c *gin.Context) {
	var req rollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, skillmeaterrors.Validation(err.Error()))
		return
	}
	compensating, err := s.app.Orchestrator.Rollback(c.Request.Context(), models.SnapshotScope(req.Scope), req.ScopeID, req.Root, c.Param("id"), req.By)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, compensating)
}
