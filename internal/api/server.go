// Package api exposes the HTTP interface for the jobscout service.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jobscout/jobscout/internal/alert"
	"github.com/jobscout/jobscout/internal/jobs"
	"github.com/jobscout/jobscout/internal/metrics"
	"github.com/jobscout/jobscout/internal/pipeline"
)

// crawlResponseCap bounds how many postings a crawl response echoes back.
const crawlResponseCap = 50

// Crawler runs one crawl invocation.
type Crawler interface {
	Crawl(ctx context.Context, q jobs.Query) (pipeline.Result, error)
}

// AlertSender dispatches one alert email.
type AlertSender interface {
	Dispatch(ctx context.Context, email, role, location, source string) (alert.Outcome, error)
}

// Options control response verbosity.
type Options struct {
	// Development attaches stack traces to 500 responses.
	Development bool
	// RequestTimeout bounds every request; crawls hold it the longest.
	RequestTimeout time.Duration
}

// Server wires HTTP handlers to the pipeline, store, and alert dispatcher.
type Server struct {
	router  chi.Router
	crawler Crawler
	store   jobs.Store
	alerts  AlertSender
	clock   jobs.Clock
	opts    Options
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(crawler Crawler, store jobs.Store, alerts AlertSender, clock jobs.Clock, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 180 * time.Second
	}
	s := &Server{
		crawler: crawler,
		store:   store,
		alerts:  alerts,
		clock:   clock,
		opts:    opts,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(opts.RequestTimeout))

	r.Get("/health", s.health)
	r.Get("/metrics", metrics.Handler().ServeHTTP)
	r.Route("/api", func(r chi.Router) {
		r.Post("/crawl", s.crawl)
		r.Get("/jobs", s.listJobs)
		r.Post("/alert", s.sendAlert)
		r.Get("/verify-db", s.verifyDB)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

type crawlRequest struct {
	Role       string `json:"role"`
	Location   string `json:"location"`
	Source     string `json:"source"`
	Experience string `json:"experience"`
}

type crawlResponse struct {
	Success    bool                `json:"success"`
	TotalJobs  int                 `json:"totalJobs"`
	NewJobs    int                 `json:"newJobs"`
	Duplicates int                 `json:"duplicates"`
	Duration   string              `json:"duration"`
	Jobs       []jobs.RawJobRecord `json:"jobs"`
}

func (s *Server) crawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Role == "" || req.Location == "" {
		writeError(w, http.StatusBadRequest, "role and location are required")
		return
	}
	source, err := jobs.ParseSource(req.Source)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.crawler.Crawl(r.Context(), jobs.Query{
		Role:       req.Role,
		Location:   req.Location,
		Experience: req.Experience,
		Source:     source,
	})
	if err != nil {
		s.logger.Error("crawl failed",
			zap.String("source", string(source)),
			zap.String("role", req.Role),
			zap.Error(err),
		)
		s.writeInternalError(w, err)
		return
	}

	echoed := result.Jobs
	if len(echoed) > crawlResponseCap {
		echoed = echoed[:crawlResponseCap]
	}
	writeJSON(w, http.StatusOK, crawlResponse{
		Success:    true,
		TotalJobs:  len(result.Jobs),
		NewJobs:    result.Persist.Inserted,
		Duplicates: result.Persist.Duplicates,
		Duration:   result.Duration.Round(time.Millisecond).String(),
		Jobs:       echoed,
	})
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := intParam(q.Get("page"), 1)
	limit := intParam(q.Get("limit"), 20)

	result, err := s.store.Find(r.Context(), jobs.Filter{
		Role:     q.Get("role"),
		Location: q.Get("location"),
		Source:   q.Get("source"),
	}, page, limit)
	if err != nil {
		s.logger.Error("job query failed", zap.Error(err))
		s.writeInternalError(w, err)
		return
	}

	items := result.Items
	if items == nil {
		items = []jobs.JobPosting{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(items),
		"total":   result.Total,
		"page":    result.Page,
		"pages":   result.PageCount,
		"jobs":    items,
	})
}

type alertRequest struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	Location string `json:"location"`
	Source   string `json:"source"`
}

func (s *Server) sendAlert(w http.ResponseWriter, r *http.Request) {
	var req alertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Email == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "email and role are required")
		return
	}
	if req.Source != "" {
		if _, err := jobs.ParseSource(req.Source); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	outcome, err := s.alerts.Dispatch(r.Context(), req.Email, req.Role, req.Location, req.Source)
	if err != nil {
		s.logger.Error("alert dispatch failed", zap.String("email", req.Email), zap.Error(err))
		s.writeInternalError(w, err)
		return
	}

	message := "alert sent"
	switch {
	case outcome.Sent == 0:
		message = "no matching jobs in the last 24 hours"
	case !outcome.Delivered:
		message = "matching jobs found but delivery failed"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": outcome.Delivered,
		"sent":    outcome.Sent,
		"message": message,
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.CountAll(r.Context())
	status := "ok"
	if err != nil {
		s.logger.Warn("health job count failed", zap.Error(err))
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"jobCount":  count,
		"timestamp": s.clock.Now().Format(time.RFC3339),
	})
}

func (s *Server) verifyDB(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Verify(r.Context()))
}

// writeInternalError maps failures to 500. The error message is always part
// of the body; a stack trace is attached only in development mode.
func (s *Server) writeInternalError(w http.ResponseWriter, err error) {
	payload := map[string]any{
		"success": false,
		"error":   err.Error(),
	}
	if s.opts.Development {
		payload["stack"] = string(debug.Stack())
	}
	writeJSON(w, http.StatusInternalServerError, payload)
}

func intParam(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
