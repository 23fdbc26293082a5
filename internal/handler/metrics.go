package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/adsdsdsdad/uMBLER01/internal/cache"
	"github.com/adsdsdsdad/uMBLER01/internal/middleware"
	"github.com/adsdsdsdad/uMBLER01/internal/model"
	"github.com/adsdsdsdad/uMBLER01/internal/service"
	"github.com/adsdsdsdad/uMBLER01/pkg/logger"
)

// MetricsHandler serves dashboard rollups.
type MetricsHandler struct {
	service *service.MetricsService
	cache   cache.Cache
	logger  *logger.Logger
}

// NewMetricsHandler creates a new metrics handler. A nil cache disables caching.
func NewMetricsHandler(svc *service.MetricsService, c cache.Cache, log *logger.Logger) *MetricsHandler {
	if c == nil {
		c = cache.Noop{}
	}
	return &MetricsHandler{
		service: svc,
		cache:   c,
		logger:  log,
	}
}

// System handles GET /api/v1/metrics
func (h *MetricsHandler) System(w http.ResponseWriter, r *http.Request) {
	var sm model.SystemMetrics
	h.serveCached(w, r, cache.KeySystemMetrics, &sm, func(ctx context.Context) (any, error) {
		return h.service.System(ctx)
	})
}

// SiteCustomerStats handles GET /api/v1/site-customers/stats
func (h *MetricsHandler) SiteCustomerStats(w http.ResponseWriter, r *http.Request) {
	var stats model.SiteCustomerStats
	h.serveCached(w, r, cache.KeySiteCustomerStats, &stats, func(ctx context.Context) (any, error) {
		return h.service.SiteCustomerStats(ctx)
	})
}

// SiteCustomers handles GET /api/v1/site-customers
func (h *MetricsHandler) SiteCustomers(w http.ResponseWriter, r *http.Request) {
	convs, err := h.service.Conversations(r.Context(), true)
	if err != nil {
		writeStoreError(w, h.logger, err, "site customers not found", "list site customers")
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

// Agent handles GET /api/v1/agents/{name}/metrics
func (h *MetricsHandler) Agent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := middleware.ValidateAgentName(name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	am, err := h.service.Agent(r.Context(), name)
	if err != nil {
		writeStoreError(w, h.logger, err, "agent not found", "compute agent metrics")
		return
	}
	writeJSON(w, http.StatusOK, am)
}

// serveCached answers from the cache when possible. Cache errors fall back to
// computing the value.
func (h *MetricsHandler) serveCached(w http.ResponseWriter, r *http.Request, key string, dst any, compute func(context.Context) (any, error)) {
	ctx := r.Context()

	found, err := h.cache.Get(ctx, key, dst)
	if err != nil {
		h.logger.Warn("metrics cache read failed", zap.String("key", key), zap.Error(err))
	}
	if found {
		writeJSON(w, http.StatusOK, dst)
		return
	}

	v, err := compute(ctx)
	if err != nil {
		writeStoreError(w, h.logger, err, "not found", "compute "+key)
		return
	}
	if err := h.cache.Set(ctx, key, v); err != nil {
		h.logger.Warn("metrics cache write failed", zap.String("key", key), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, v)
}
