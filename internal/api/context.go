package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/miethe/skillmeat/internal/contextpack"
	"github.com/miethe/skillmeat/internal/models"
)

// contextPack implements GET /projects/:id/context-pack?types=a,b&min_confidence=0.5&budget=4000.
func (s *Server) contextPack(c *gin.Context) {
	sel := models.ContextModuleSelectors{}
	if v := c.Query("types"); v != "" {
		for _, t := range strings.Split(v, ",") {
			sel.Types = append(sel.Types, models.MemoryItemType(strings.TrimSpace(t)))
		}
	}
	if v := c.Query("min_confidence"); v != "" {
		sel.MinConfidence, _ = strconv.ParseFloat(v, 64)
	}
	budget := 4000
	if v := c.Query("budget"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			budget = parsed
		}
	}
	pack, err := s.app.Orchestrator.ContextPack(c.Request.Context(), c.Param("id"), contextpack.Selectors(sel), budget)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, pack)
}
