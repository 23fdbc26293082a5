package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger is satisfied by the store and the cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthReporter is satisfied by journal publishers.
type HealthReporter interface {
	Healthy() bool
	Backend() string
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store   Pinger
	journal HealthReporter
	cache   Pinger
}

// NewHealthHandler creates a new health handler. journal and cache may be nil.
func NewHealthHandler(st Pinger, journal HealthReporter, cache Pinger) *HealthHandler {
	return &HealthHandler{
		store:   st,
		journal: journal,
		cache:   cache,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database unreachable",
		})
		return
	}

	if h.journal != nil && !h.journal.Healthy() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": h.journal.Backend() + " not connected",
		})
		return
	}

	resp := map[string]string{"status": "ready"}
	// cache is optional; a failing cache degrades to direct reads
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			resp["cache"] = "unavailable"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
