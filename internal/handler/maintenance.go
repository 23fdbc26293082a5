package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/adsdsdsdad/uMBLER01/internal/cache"
	"github.com/adsdsdsdad/uMBLER01/internal/service"
	"github.com/adsdsdsdad/uMBLER01/pkg/logger"
)

// MaintenanceHandler exposes administrative batch operations.
type MaintenanceHandler struct {
	recomputer *service.Recomputer
	cache      cache.Cache
	logger     *logger.Logger
}

// NewMaintenanceHandler creates a new maintenance handler.
func NewMaintenanceHandler(rc *service.Recomputer, c cache.Cache, log *logger.Logger) *MaintenanceHandler {
	if c == nil {
		c = cache.Noop{}
	}
	return &MaintenanceHandler{
		recomputer: rc,
		cache:      c,
		logger:     log,
	}
}

// Recompute handles POST /api/v1/maintenance/recompute
func (h *MaintenanceHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	result, err := h.recomputer.Recompute(r.Context())
	if err != nil {
		h.logger.Error("recompute failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.cache.Delete(r.Context(), cache.KeySystemMetrics, cache.KeySiteCustomerStats); err != nil {
		h.logger.Warn("failed to invalidate metrics cache", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, result)
}
