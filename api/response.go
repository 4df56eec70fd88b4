package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alfredlabs/zettel/internal/suggest"
	"github.com/alfredlabs/zettel/internal/zettel"
)

// writeJSON writes a JSON response. Encoding failures after
// WriteHeader cannot reach the client; they are only logged.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse is the JSON error envelope. Error carries a stable
// machine-readable kind; Message is human-readable detail.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, ErrorResponse{Error: kind, Message: message})
}

// writeDomainError maps core sentinel errors to HTTP responses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, zettel.ErrInvalid):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, zettel.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, zettel.ErrDuplicateLink):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, zettel.ErrReviewCompleted):
		writeError(w, http.StatusConflict, "state_error", err.Error())
	case errors.Is(err, suggest.ErrProvider):
		writeError(w, http.StatusBadGateway, "provider_error", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
