package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	skillmeaterrors "github.com/miethe/skillmeat/internal/errors"
)

type extractRequest struct {
	ProjectID  string `json:"project_id" binding:"required"`
	Transcript string `json:"transcript" binding:"required"`
	Apply      bool   `json:"apply"`
}

func (s *Server) extractMemory(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, skillmeaterrors.Validation(err.Error()))
		return
	}
	result, err := s.app.Orchestrator.MemoryExtract(c.Request.Context(), req.ProjectID, []byte(req.Transcript), req.Apply)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) promoteMemory(c *gin.Context) {
	if err := s.app.Orchestrator.MemoryPromote(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deprecateMemory(c *gin.Context) {
	if err := s.app.Orchestrator.MemoryDeprecate(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type mergeRequest struct {
	KeepID   string   `json:"keep_id" binding:"required"`
	MergeIDs []string `json:"merge_ids" binding:"required,min=1"`
}

func (s *Server) mergeMemory(c *gin.Context) {
	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, skillmeaterrors.Validation(err.Error()))
		return
	}
	if err := s.app.Orchestrator.MemoryMerge(c.Request.Context(), req.KeepID, req.MergeIDs); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
