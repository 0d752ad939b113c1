// Package server exposes the analysis artifacts over HTTP. Structured
// results are served as JSON; reports are rendered from markdown to HTML.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/mhavryliuk/reviewlens/internal/collect"
	"github.com/mhavryliuk/reviewlens/internal/config"
	"github.com/mhavryliuk/reviewlens/internal/corpus"
	"github.com/mhavryliuk/reviewlens/internal/database"
	"github.com/mhavryliuk/reviewlens/internal/pipeline"
	"github.com/mhavryliuk/reviewlens/internal/ratings"
	"github.com/mhavryliuk/reviewlens/internal/report"
)

var md = goldmark.New()

// Server is the HTTP server for serving review analytics.
type Server struct {
	cfg       *config.Config
	db        *database.DB
	pipe      *pipeline.Pipeline
	collector *collect.Collector
	search    *collect.SearchClient
	mux       *http.ServeMux
}

// New creates a new Server around an already-constructed pipeline.
func New(cfg *config.Config, db *database.DB, pipe *pipeline.Pipeline) *Server {
	s := &Server{
		cfg:       cfg,
		db:        db,
		pipe:      pipe,
		collector: collect.NewCollector(cfg),
		search:    collect.NewSearchClient(),
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/search", s.handleSearch)
	s.mux.HandleFunc("/api/apps", s.handleApps)
	s.mux.HandleFunc("/api/apps/", s.handleApp)
	s.mux.HandleFunc("/api/runs", s.handleRuns)
	s.mux.HandleFunc("/report/", s.handleReport)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("term"))
	if term == "" {
		writeError(w, http.StatusBadRequest, "term is required")
		return
	}
	country := r.URL.Query().Get("country")
	if country == "" {
		country = "us"
	}

	candidates, err := s.search.Search(r.Context(), term, country)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if s.db != nil {
		for _, c := range candidates {
			seller, bundle := c.Seller, c.BundleID
			if err := s.db.UpsertApp(c.AppID, c.Name, &seller, &bundle, &country); err != nil {
				log.Printf("recording app %d: %v", c.AppID, err)
			}
		}
	}
	writeJSON(w, http.StatusOK, candidates)
}

func (s *Server) handleApps(w http.ResponseWriter, r *http.Request) {
	apps, err := s.db.GetApps()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing apps")
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

// handleApp dispatches /api/apps/{id}/{action}.
func (s *Server) handleApp(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/apps/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}

	appID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || appID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid app id")
		return
	}

	switch parts[1] {
	case "collect":
		s.handleCollect(w, r, appID)
	case "process":
		s.handleProcess(w, r, appID)
	case "analyze":
		s.handleAnalyze(w, r, appID)
	case "metrics":
		s.handleMetrics(w, appID)
	case "insights":
		s.handleInsights(w, appID)
	case "hierarchy":
		s.handleHierarchy(w, appID)
	case "processed":
		s.handleProcessed(w, appID)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request, appID int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	res, err := s.collector.Collect(r.Context(), appID)
	if errors.Is(err, collect.ErrAppNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"app_id":    appID,
		"total":     res.Total,
		"countries": res.Countries,
	})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request, appID int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	c, err := s.pipe.Process(appID)
	if errors.Is(err, corpus.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"app_id":  appID,
		"cleaned": len(c.Reviews),
		"skipped": c.Skipped,
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request, appID int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	res := s.pipe.Run(r.Context(), appID)
	status := http.StatusOK
	if res.Failed() {
		status = http.StatusInternalServerError
		for _, step := range res.Steps {
			if errors.Is(step.Err, corpus.ErrNotFound) {
				status = http.StatusNotFound
			}
		}
	}

	steps := make([]map[string]string, 0, len(res.Steps))
	for _, step := range res.Steps {
		entry := map[string]string{"name": step.Name, "summary": step.Summary}
		if step.Err != nil {
			entry["error"] = step.Err.Error()
		}
		steps = append(steps, entry)
	}
	writeJSON(w, status, map[string]any{
		"run_id": res.RunID,
		"app_id": appID,
		"steps":  steps,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, appID int64) {
	m, err := ratings.LoadJSON(s.cfg.MetricsDir(appID))
	if err != nil {
		notFoundOrError(w, err, "rating metrics not computed yet")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleInsights(w http.ResponseWriter, appID int64) {
	f, err := s.pipe.LoadInsights(appID)
	if err != nil {
		notFoundOrError(w, err, "insights not generated yet")
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleHierarchy(w http.ResponseWriter, appID int64) {
	data, err := os.ReadFile(filepath.Join(s.cfg.InsightsDir(appID), "sentiment_hierarchy.json"))
	if err != nil {
		notFoundOrError(w, err, "hierarchy not generated yet")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleProcessed(w http.ResponseWriter, appID int64) {
	c, err := corpus.LoadCleaned(s.cfg.ProcessedPath(appID), appID)
	if err != nil {
		notFoundOrError(w, err, "no processed reviews")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"app_id":        appID,
		"total_entries": len(c.Reviews),
		"entries":       c.Reviews,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := s.db.GetRecentRuns(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing runs")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/report/")
	appID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || appID <= 0 {
		http.NotFound(w, r)
		return
	}

	markdown, err := report.Load(s.cfg.ReportsDir(appID), appID)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		writeError(w, http.StatusInternalServerError, "rendering report")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func notFoundOrError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, corpus.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		writeError(w, http.StatusNotFound, msg)
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// Serve starts the HTTP server on the configured port.
func Serve(cfg *config.Config, db *database.DB) error {
	pipe := pipeline.New(cfg, db)
	srv := New(cfg, db, pipe)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
