// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api serves the REST surface over the pipeline and searcher:
// search, stats, incremental updates, and paper maintenance under /api/v1,
// plus Prometheus metrics at /metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdiddy/arxiv-scout/internal/pipeline"
	"github.com/pdiddy/arxiv-scout/pkg/types"
)

// Runner is the pipeline surface the API drives.
type Runner interface {
	IncrementalUpdate(ctx context.Context, opts pipeline.Options) (pipeline.Report, error)
	AddPapersFromJSON(ctx context.Context, jsonPath string) (pipeline.Report, error)
	DeletePapers(ctx context.Context, ids []string) (pipeline.Report, error)
	Stats(ctx context.Context) (pipeline.StatsReport, error)
}

// Searcher is the ranked-query surface.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]types.MergedResult, error)
}

// Server hosts the REST API.
type Server struct {
	cfg      types.Config
	runner   Runner
	searcher Searcher
	log      *slog.Logger
	engine   *gin.Engine
}

// New assembles the router. log must not be nil.
func New(cfg types.Config, runner Runner, searcher Searcher, log *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &Server{
		cfg:      cfg,
		runner:   runner,
		searcher: searcher,
		log:      log,
		engine:   engine,
	}

	engine.Use(gin.Recovery())
	engine.Use(requestLogger(log))
	engine.Use(collectMetrics())

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := engine.Group("/api/v1")
	{
		v1.GET("/health", s.health)
		v1.GET("/stats", s.stats)
		v1.POST("/search", s.search)
		v1.POST("/incremental_update", s.incrementalUpdate)
		v1.POST("/papers", s.addPapers)
		v1.DELETE("/papers/:id", s.deletePaper)
	}

	return s
}

// Handler exposes the assembled router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.API.Host, s.cfg.API.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", addr)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return <-errCh
}
