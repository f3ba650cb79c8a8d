// Package api exposes the §6.1 RPC alphabet as JSON-over-HTTP endpoints
// using gin-gonic/gin, grounded on the teacher's pkg/api handler-per-route
// layout (one handler function per route, a shared error mapper).
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/swarmrouter/core/pkg/artifactstore"
	"github.com/swarmrouter/core/pkg/models"
	"github.com/swarmrouter/core/pkg/queue"
	"github.com/swarmrouter/core/pkg/ranker"
	"github.com/swarmrouter/core/pkg/store"
	"github.com/swarmrouter/core/pkg/version"
)

// Server is the HTTP API server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	store                store.Store
	artifacts            *artifactstore.Store
	admitter             *queue.Admitter
	ranker               *ranker.Ranker
	completionConfigured bool
}

// NewServer wires the store, artifact store, queue admitter and ranker
// into a gin.Engine and registers every route of §4.7.
func NewServer(st store.Store, artifacts *artifactstore.Store, admitter *queue.Admitter, rk *ranker.Ranker, completionConfigured bool) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:               engine,
		store:                st,
		artifacts:            artifacts,
		admitter:             admitter,
		ranker:               rk,
		completionConfigured: completionConfigured,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.healthHandler)

	s.engine.POST("/runs", s.createRunHandler)
	s.engine.GET("/runs", s.listRunsHandler)
	s.engine.GET("/runs/:id", s.getRunStatusHandler)
	s.engine.GET("/runs/:id/result", s.getRunResultHandler)
	s.engine.POST("/runs/:id/cancel", s.cancelRunHandler)

	s.engine.GET("/artifacts/:run_id/:node_id", s.getArtifactHandler)
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.engine}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener. Used
// by tests serving on a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.engine}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// healthHandler handles GET /health (§6.1).
func (s *Server) healthHandler(c *gin.Context) {
	resp := healthResponse{
		Version:              version.Full(),
		CompletionConfigured: s.completionConfigured,
		RankingReachable:     s.rankingReachable(),
		StoreWritable:        s.storeWritable(c.Request.Context()),
		ArtifactWritable:     s.artifactWritable(),
		WorkerAlive:          s.admitter != nil,
	}

	status := http.StatusOK
	if !resp.CompletionConfigured || !resp.StoreWritable || !resp.ArtifactWritable || !resp.WorkerAlive {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

func (s *Server) rankingReachable() bool {
	if s.ranker == nil {
		return false
	}
	return s.ranker.Status().ModelCount > 0
}

func (s *Server) storeWritable(ctx context.Context) bool {
	reqCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := s.store.ListRuns(reqCtx, "", 1)
	return err == nil
}

// artifactWritable probes writability by re-writing a fixed healthcheck
// blob each call; the content-addressed path never accumulates garbage.
func (s *Server) artifactWritable() bool {
	if s.artifacts == nil {
		return false
	}
	_, err := s.artifacts.Write("healthcheck", "probe", models.ArtifactLog, []byte("ok"))
	return err == nil
}
