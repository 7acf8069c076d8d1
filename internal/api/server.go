// Package api hosts the HTTP control surface consumed by the dashboard.
// Notable routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - /v1/domains for domain CRUD, scheduling control and listings.
//   - GET /v1/changes/recent and /v1/analytics for reporting.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitewatch/internal/config"
	"github.com/JakeFAU/sitewatch/internal/crawler"
	"github.com/JakeFAU/sitewatch/internal/metrics"
	"github.com/JakeFAU/sitewatch/internal/middleware"
	"github.com/JakeFAU/sitewatch/internal/scheduler"
	"github.com/JakeFAU/sitewatch/internal/store"
)

// Server wires HTTP handlers to the store, scheduler and crawler.
type Server struct {
	router    chi.Router
	store     *store.Store
	scheduler *scheduler.Scheduler
	crawler   *crawler.Crawler
	cfg       config.Config
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(st *store.Store, sched *scheduler.Scheduler, cr *crawler.Crawler, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:     st,
		scheduler: sched,
		crawler:   cr,
		cfg:       cfg,
		logger:    logger,
	}

	metrics.Init()

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(middleware.Metrics)
	r.Use(timeoutMiddleware(requestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/domains", func(r chi.Router) {
			r.Get("/", s.listDomains)
			r.Post("/", s.createDomain)
			r.Route("/{domain_id}", func(r chi.Router) {
				r.Get("/", s.getDomain)
				r.Patch("/", s.updateDomain)
				r.Delete("/", s.deleteDomain)
				r.Post("/toggle", s.toggleDomain)
				r.Post("/scrape", s.scrapeNow)
				r.Get("/pages", s.listPages)
				r.Get("/runs", s.listRuns)
				r.Get("/changes", s.listChanges)
				r.Get("/files", s.listFiles)
			r.Get("/links", s.linkStats)
				r.Get("/subdomains", s.probeSubdomains)
			})
		})
		r.Get("/changes/recent", s.recentChanges)
		r.Get("/analytics", s.analytics)
		r.Post("/maintenance/fix", s.runMaintenance)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, errInvalidLimit
	}
	return limit, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Error("write JSON failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
