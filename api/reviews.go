package api

import (
	"encoding/json"
	"net/http"

	"github.com/alfredlabs/zettel/internal/log"
	"github.com/alfredlabs/zettel/internal/zettel"
)

// ReviewHandler handles spaced-repetition review endpoints.
type ReviewHandler struct {
	store  Store
	logger log.Logger
}

// NewReviewHandler creates a review handler.
func NewReviewHandler(store Store, logger log.Logger) *ReviewHandler {
	return &ReviewHandler{store: store, logger: logger}
}

// RegisterRoutes registers review routes on the mux.
func (h *ReviewHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/reviews/due", h.due)
	mux.HandleFunc("POST /api/reviews/{id}/complete", h.complete)
	mux.HandleFunc("GET /api/reviews/stats", h.stats)
}

func (h *ReviewHandler) due(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", DefaultListLimit, 1, MaxListLimit)

	reviews, err := h.store.DueReviews(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list due reviews", "error", err,
			"request_id", RequestID(r.Context()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews, "total": len(reviews)})
}

// CompleteReviewRequest carries the optional recall score.
type CompleteReviewRequest struct {
	Score *float64 `json:"score"`
}

// CompleteReviewResponse returns the completed review and its
// scheduled successor.
type CompleteReviewResponse struct {
	Completed *zettel.Review `json:"completed"`
	Next      *zettel.Review `json:"next"`
}

func (h *ReviewHandler) complete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req CompleteReviewRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "invalid request body")
			return
		}
	}

	done, next, err := h.store.CompleteReview(r.Context(), id, req.Score)
	if err != nil {
		h.logger.Error("failed to complete review", "error", err, "review_id", id,
			"request_id", RequestID(r.Context()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CompleteReviewResponse{Completed: done, Next: next})
}

func (h *ReviewHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to read review stats", "error", err,
			"request_id", RequestID(r.Context()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
