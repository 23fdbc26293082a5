package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/adsdsdsdad/uMBLER01/internal/store"
	"github.com/adsdsdsdad/uMBLER01/pkg/logger"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeStoreError maps a read failure to 404 or 500.
func writeStoreError(w http.ResponseWriter, log *logger.Logger, err error, notFound, op string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, notFound)
		return
	}
	log.Error("failed to "+op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}
