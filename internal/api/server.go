// Package api is the HTTP surface (§1): a thin gin router exposing the
// Orchestrator's capability operations as routes, one operation per
// route, returning the errors.Error envelope on failure. It owns no
// business logic of its own, grounded on driftmgr's internal/api
// handler-struct-per-concern layering.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/miethe/skillmeat/internal/app"
)

// Server wraps a gin.Engine wired against one App's collaborators.
type Server struct {
	engine *gin.Engine
	app    *app.App
}

// NewServer builds the route tree. allowedOrigins mirrors
// config.ServerConfig's CORS allowlist; an empty slice allows any
// origin, matching the teacher's permissive default.
func NewServer(a *app.App, allowedOrigins []string) *Server {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsMW := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	engine.Use(func(c *gin.Context) {
		corsMW.HandlerFunc(c.Writer, c.Request)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	s := &Server{engine: engine, app: a}
	s.routes()
	return s
}

// Handler returns the underlying http.Handler for use with
// http.Server, matching the teacher's server-construction split
// between route wiring and listener ownership.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() {
	s.engine.GET("/health", s.health)

	artifacts := s.engine.Group("/artifacts")
	{
		artifacts.GET("", s.listArtifacts)
		artifacts.POST("/import", s.importArtifact)
		artifacts.PATCH("/:uuid", s.updateArtifact)
		artifacts.DELETE("/:uuid", s.deleteArtifact)
	}

	s.engine.POST("/deployments", s.deploy)
	s.engine.POST("/deployment-sets/:id/deploy", s.deploySet)
	s.engine.DELETE("/deployments/:artifactUUID", s.undeploy)

	sync := s.engine.Group("/sync")
	{
		sync.POST("/preview", s.syncPreview)
		sync.POST("/pull", s.syncPull)
		sync.POST("/push", s.syncPush)
	}

	s.engine.POST("/snapshots", s.createSnapshot)
	s.engine.POST("/snapshots/:id/rollback", s.rollbackSnapshot)

	memory := s.engine.Group("/memory")
	{
		memory.POST("/extract", s.extractMemory)
		memory.POST("/:id/promote", s.promoteMemory)
		memory.POST("/:id/deprecate", s.deprecateMemory)
		memory.POST("/merge", s.mergeMemory)
	}

	s.engine.GET("/projects/:id/context-pack", s.contextPack)
}

// health reports the App's lifecycle.Manager health checks (currently
// just store connectivity), returning 503 the moment any check fails
// rather than a static "healthy" regardless of store state.
func (s *Server) health(c *gin.Context) {
	status, err := s.app.Shutdown.CheckHealth(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "unknown", "error": err.Error()})
		return
	}
	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
