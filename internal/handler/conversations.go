// Package handler provides HTTP handlers for the API.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adsdsdsdad/uMBLER01/internal/middleware"
	"github.com/adsdsdsdad/uMBLER01/internal/service"
	"github.com/adsdsdsdad/uMBLER01/pkg/logger"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	service *service.ConversationService
	metrics *service.MetricsService
	logger  *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(svc *service.ConversationService, metrics *service.MetricsService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: svc,
		metrics: metrics,
		logger:  log,
	}
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	siteOnly := r.URL.Query().Get("site") == "true"

	resp, err := h.metrics.Conversations(r.Context(), siteOnly)
	if err != nil {
		writeStoreError(w, h.logger, err, "conversations not found", "list conversations")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := conversationParam(w, r)
	if !ok {
		return
	}

	detail, err := h.service.Get(r.Context(), conversationID)
	if err != nil {
		writeStoreError(w, h.logger, err, "conversation not found", "get conversation")
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// ResponseTimes handles GET /api/v1/conversations/{id}/response-times
func (h *ConversationHandler) ResponseTimes(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := conversationParam(w, r)
	if !ok {
		return
	}

	rts, err := h.service.ResponseTimes(r.Context(), conversationID)
	if err != nil {
		writeStoreError(w, h.logger, err, "conversation not found", "list response times")
		return
	}

	writeJSON(w, http.StatusOK, rts)
}

// Metrics handles GET /api/v1/conversations/{id}/metrics
func (h *ConversationHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := conversationParam(w, r)
	if !ok {
		return
	}

	cm, err := h.metrics.Conversation(r.Context(), conversationID)
	if err != nil {
		writeStoreError(w, h.logger, err, "conversation not found", "compute conversation metrics")
		return
	}

	writeJSON(w, http.StatusOK, cm)
}

func conversationParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return conversationID, true
}
