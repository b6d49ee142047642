// Package server exposes the analysis pipeline over HTTP: submit runs,
// poll results, stream progress, and manage the playbook.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"clausecheck/internal/config"
	"clausecheck/internal/events"
	"clausecheck/internal/pipeline"
	"clausecheck/internal/playbook"
	"clausecheck/internal/store"
)

// Server wires the HTTP routes to the pipeline, store, playbook manager,
// and event bus.
type Server struct {
	cfg          config.ServerConfig
	store        *store.Store
	orchestrator *pipeline.Orchestrator
	bus          *events.Bus
	playbook     *playbook.Manager
	logger       *zap.Logger
	engine       *gin.Engine
}

func New(
	cfg config.ServerConfig,
	st *store.Store,
	orchestrator *pipeline.Orchestrator,
	bus *events.Bus,
	manager *playbook.Manager,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:          cfg,
		store:        st,
		orchestrator: orchestrator,
		bus:          bus,
		playbook:     manager,
		logger:       logger,
	}
	s.engine = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	if s.cfg.RateLimitPerSecond > 0 {
		burst := s.cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		router.Use(newRateLimiter(s.cfg.RateLimitPerSecond, burst).middleware())
	}

	router.GET("/health", s.handleHealth)
	router.POST("/analyze", s.handleAnalyze)
	router.GET("/analysis/:id", s.handleGetAnalysis)
	router.GET("/analysis/:id/stream", s.handleStreamAnalysis)
	router.GET("/playbook", s.handleGetPlaybook)
	router.PUT("/playbook", s.handleUpdatePlaybook)
	router.GET("/playbook/versions", s.handleListVersions)
	router.GET("/playbook/versions/:id", s.handleGetVersion)
	router.POST("/playbook/reindex", s.handleReindex)
	return router
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("http server listening", zap.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
