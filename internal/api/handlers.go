// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/arxiv-scout/internal/pipeline"
	"github.com/pdiddy/arxiv-scout/internal/search"
	"github.com/pdiddy/arxiv-scout/pkg/metrics"
	"github.com/pdiddy/arxiv-scout/pkg/types"
)

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type searchResponse struct {
	Results      []types.MergedResult `json:"results"`
	Query        string               `json:"query"`
	TopK         int                  `json:"top_k"`
	TotalResults int                  `json:"total_results"`
}

type updateRequest struct {
	MaxResults int `json:"max_results"`
	BatchSize  int `json:"batch_size"`
}

type addPapersRequest struct {
	JSONPath string `json:"json_path"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "arxiv-scout"})
}

func (s *Server) stats(c *gin.Context) {
	report, err := s.runner.Stats(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter"})
		return
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.cfg.Search.DefaultTopK
	}
	if topK <= 0 {
		topK = search.DefaultTopK
	}

	start := time.Now()
	results, err := s.searcher.Search(c.Request.Context(), req.Query, topK)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		s.fail(c, err)
		return
	}
	metrics.SearchesTotal.WithLabelValues("ok").Inc()
	metrics.SearchDuration.Observe(time.Since(start).Seconds())

	if results == nil {
		results = []types.MergedResult{}
	}
	c.JSON(http.StatusOK, searchResponse{
		Results:      results,
		Query:        req.Query,
		TopK:         topK,
		TotalResults: len(results),
	})
}

func (s *Server) incrementalUpdate(c *gin.Context) {
	// The body is optional; an empty POST runs with configured defaults.
	var req updateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	report, err := s.runner.IncrementalUpdate(c.Request.Context(), pipeline.Options{
		MaxResults: req.MaxResults,
		BatchSize:  req.BatchSize,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": fmt.Sprintf("added %d new papers", report.Added),
		"report":  report,
	})
}

func (s *Server) addPapers(c *gin.Context) {
	var req addPapersRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.JSONPath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing json_path parameter"})
		return
	}
	if _, err := os.Stat(req.JSONPath); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("file not found: %s", req.JSONPath)})
		return
	}

	report, err := s.runner.AddPapersFromJSON(c.Request.Context(), req.JSONPath)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": fmt.Sprintf("added %d papers", report.Added),
		"report":  report,
	})
}

func (s *Server) deletePaper(c *gin.Context) {
	paperID := c.Param("id")

	report, err := s.runner.DeletePapers(c.Request.Context(), []string{paperID})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"message":        fmt.Sprintf("deleted paper %s", paperID),
		"papers_deleted": report.Deleted,
	})
}

// fail maps pipeline errors onto HTTP statuses. A run already holding the
// pipeline is a conflict; a store that was never built is unavailable.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrCheckpointMissing):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, fs.ErrNotExist):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		s.log.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
