package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/adsdsdsdad/uMBLER01/internal/cache"
	"github.com/adsdsdsdad/uMBLER01/internal/middleware"
	"github.com/adsdsdsdad/uMBLER01/internal/model"
	"github.com/adsdsdsdad/uMBLER01/internal/service"
	"github.com/adsdsdsdad/uMBLER01/pkg/logger"
)

// EventDispatcher processes one webhook event.
type EventDispatcher interface {
	Dispatch(ctx context.Context, ev *model.WebhookEvent) (*model.WebhookResult, error)
}

// WebhookHandler receives provider webhooks.
type WebhookHandler struct {
	dispatcher EventDispatcher
	cache      cache.Cache
	logger     *logger.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(d EventDispatcher, c cache.Cache, log *logger.Logger) *WebhookHandler {
	if c == nil {
		c = cache.Noop{}
	}
	return &WebhookHandler{
		dispatcher: d,
		cache:      c,
		logger:     log,
	}
}

// Receive handles POST /api/webhook/umbler
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.With(zap.String("correlation_id", middleware.GetCorrelationID(ctx)))

	var ev model.WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.dispatcher.Dispatch(ctx, &ev)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			log.Info("webhook rejected",
				zap.String("event_id", ev.EventID),
				zap.String("field", verr.Field),
			)
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		log.Error("failed to process webhook",
			zap.String("event_id", ev.EventID),
			zap.String("event_type", ev.Type),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if result.Processed {
		if err := h.cache.Delete(ctx, cache.KeySystemMetrics, cache.KeySiteCustomerStats); err != nil {
			log.Warn("failed to invalidate metrics cache", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// Describe handles GET /api/webhook/umbler
func (h *WebhookHandler) Describe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Webhook endpoint da Umbler está funcionando",
		"timestamp": time.Now().UTC(),
		"expected_format": map[string]any{
			"Type":      "Message | ChatClosed | MemberTransfer | ChatSectorChanged | ChatPrivateStatusChanged",
			"EventDate": "2024-02-07T18:44:01.3135533Z",
			"Payload": map[string]string{
				"Type":    "Chat",
				"Content": "BasicChatModel object",
			},
			"EventId": "ZcPPcWpimiD3EiER",
		},
	})
}
