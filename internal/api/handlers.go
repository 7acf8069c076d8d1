package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitewatch/internal/monitor"
	"github.com/JakeFAU/sitewatch/internal/store"
)

var errInvalidLimit = errors.New("limit must be a non-negative integer")

const (
	// requestTimeout is the router-wide handler budget.
	requestTimeout = 60 * time.Second
	// probeTimeout must stay inside requestTimeout so a slow subdomain
	// sweep answers with partial results instead of the router's 503.
	probeTimeout = 45 * time.Second
)

type createDomainRequest struct {
	URL        string `json:"url"`
	Email      string `json:"email"`
	Interval   int    `json:"interval_minutes"`
	CrawlDepth int    `json:"crawl_depth"`
	MaxPages   int    `json:"max_pages"`
}

type updateDomainRequest struct {
	Email      *string `json:"email,omitempty"`
	Interval   *int    `json:"interval_minutes,omitempty"`
	CrawlDepth *int    `json:"crawl_depth,omitempty"`
	MaxPages   *int    `json:"max_pages,omitempty"`
}

func (s *Server) createDomain(w http.ResponseWriter, r *http.Request) {
	var req createDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Interval <= 0 {
		req.Interval = 60
	}
	if req.CrawlDepth <= 0 {
		req.CrawlDepth = s.cfg.Crawler.MaxDepthDefault
	}
	if req.MaxPages <= 0 {
		req.MaxPages = s.cfg.Crawler.MaxPagesDefault
	}

	domain, err := s.store.AddDomain(req.URL, req.Email, req.Interval, req.CrawlDepth, req.MaxPages)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.scheduler.Schedule(domain.ID, domain.Interval); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	// First crawl runs immediately in the background.
	go func() {
		if err := s.scheduler.TriggerNow(context.Background(), domain.ID); err != nil {
			s.logger.Error("Initial crawl failed", zap.String("domain_id", domain.ID), zap.Error(err))
		}
	}()
	writeJSON(w, http.StatusCreated, map[string]any{"domain": domain})
}

func (s *Server) listDomains(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"domains": s.store.AllDomains()})
}

func (s *Server) getDomain(w http.ResponseWriter, r *http.Request) {
	domain, ok := s.store.GetDomain(chi.URLParam(r, "domain_id"))
	if !ok {
		writeError(w, http.StatusNotFound, "domain not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"domain": domain})
}

func (s *Server) updateDomain(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "domain_id")
	var req updateDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Interval != nil && *req.Interval <= 0 {
		writeError(w, http.StatusBadRequest, "interval_minutes must be positive")
		return
	}
	if req.CrawlDepth != nil && *req.CrawlDepth < 0 {
		writeError(w, http.StatusBadRequest, "crawl_depth must not be negative")
		return
	}
	if req.MaxPages != nil && *req.MaxPages <= 0 {
		writeError(w, http.StatusBadRequest, "max_pages must be positive")
		return
	}

	err := s.store.UpdateDomain(id, func(d *monitor.Domain) {
		if req.Email != nil {
			d.Email = *req.Email
		}
		if req.Interval != nil {
			d.Interval = *req.Interval
		}
		if req.CrawlDepth != nil {
			d.CrawlDepth = *req.CrawlDepth
		}
		if req.MaxPages != nil {
			d.MaxPages = *req.MaxPages
		}
	})
	switch {
	case errors.Is(err, store.ErrDomainNotFound):
		writeError(w, http.StatusNotFound, "domain not found")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	domain, _ := s.store.GetDomain(id)
	if domain.IsActive {
		if err := s.scheduler.Schedule(domain.ID, domain.Interval); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"domain": domain})
}

func (s *Server) toggleDomain(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "domain_id")
	if err := s.store.UpdateDomain(id, func(d *monitor.Domain) {
		d.IsActive = !d.IsActive
	}); err != nil {
		writeError(w, http.StatusNotFound, "domain not found")
		return
	}

	domain, _ := s.store.GetDomain(id)
	if domain.IsActive {
		if err := s.scheduler.Schedule(domain.ID, domain.Interval); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	} else {
		s.scheduler.Unschedule(domain.ID)
	}
	writeJSON(w, http.StatusOK, map[string]any{"domain": domain})
}

func (s *Server) deleteDomain(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "domain_id")
	if _, ok := s.store.GetDomain(id); !ok {
		writeError(w, http.StatusNotFound, "domain not found")
		return
	}
	s.scheduler.Unschedule(id)
	s.store.DeleteDomain(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) scrapeNow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "domain_id")
	if _, ok := s.store.GetDomain(id); !ok {
		writeError(w, http.StatusNotFound, "domain not found")
		return
	}
	go func() {
		if err := s.scheduler.TriggerNow(context.Background(), id); err != nil {
			s.logger.Error("On-demand crawl failed", zap.String("domain_id", id), zap.Error(err))
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

func (s *Server) listPages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"pages": s.store.DomainPages(chi.URLParam(r, "domain_id")),
	})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"runs": s.store.DomainRuns(chi.URLParam(r, "domain_id")),
	})
}

func (s *Server) listChanges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"changes": s.store.DomainChanges(chi.URLParam(r, "domain_id")),
	})
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"files": s.store.DomainFiles(chi.URLParam(r, "domain_id")),
	})
}

func (s *Server) linkStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "domain_id")
	if _, ok := s.store.GetDomain(id); !ok {
		writeError(w, http.StatusNotFound, "domain not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"links": s.store.DomainLinkStats(id)})
}

func (s *Server) probeSubdomains(w http.ResponseWriter, r *http.Request) {
	domain, ok := s.store.GetDomain(chi.URLParam(r, "domain_id"))
	if !ok {
		writeError(w, http.StatusNotFound, "domain not found")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()
	found, err := s.crawler.ProbeSubdomains(ctx, domain.URL)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subdomains": found})
}

func (s *Server) recentChanges(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changes": s.store.RecentChanges(limit)})
}

func (s *Server) analytics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"analytics": s.store.Analytics()})
}

func (s *Server) runMaintenance(w http.ResponseWriter, _ *http.Request) {
	titles := s.store.FixMissingTitles()
	flags := s.store.FixNotifiedFlags()
	writeJSON(w, http.StatusOK, map[string]int{
		"titles_fixed":         titles,
		"notified_flags_fixed": flags,
	})
}
