package handler

import (
	"net/http"

	"github.com/adsdsdsdad/uMBLER01/internal/middleware"
	"github.com/adsdsdsdad/uMBLER01/internal/service"
	"github.com/adsdsdsdad/uMBLER01/pkg/logger"
)

// MessageHandler handles message ledger endpoints.
type MessageHandler struct {
	service *service.ConversationService
	logger  *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(svc *service.ConversationService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		service: svc,
		logger:  log,
	}
}

// List handles GET /api/v1/conversations/{id}/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := conversationParam(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Messages(r.Context(), conversationID)
	if err != nil {
		writeStoreError(w, h.logger, err, "conversation not found", "list messages")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Recent handles GET /api/v1/debug/recent-messages
func (h *MessageHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := middleware.ParseLimit(r.URL.Query().Get("limit"), service.DefaultRecentLimit, service.MaxRecentLimit)

	msgs, err := h.service.RecentMessages(r.Context(), limit)
	if err != nil {
		writeStoreError(w, h.logger, err, "messages not found", "list recent messages")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages": msgs,
		"total":    len(msgs),
		"limit":    limit,
	})
}
