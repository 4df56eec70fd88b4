package api

import (
	"net/http"

	"github.com/alfredlabs/zettel/internal/log"
	"github.com/alfredlabs/zettel/internal/suggest"
)

// SuggestHandler handles embedding and link suggestion endpoints.
type SuggestHandler struct {
	store  Store
	engine Suggester
	logger log.Logger
}

// NewSuggestHandler creates a suggestion handler.
func NewSuggestHandler(store Store, engine Suggester, logger log.Logger) *SuggestHandler {
	return &SuggestHandler{store: store, engine: engine, logger: logger}
}

// RegisterRoutes registers suggestion routes on the mux.
func (h *SuggestHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/cards/{id}/embedding", h.embed)
	mux.HandleFunc("GET /api/cards/{id}/similar", h.similar)
	mux.HandleFunc("GET /api/cards/{id}/suggestions", h.suggestions)
}

// embed computes and persists the card's embedding. Idempotent: an
// already-embedded card costs no provider call.
func (h *SuggestHandler) embed(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	card, err := h.store.GetCard(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	card, err = h.engine.EnsureEmbedding(r.Context(), card)
	if err != nil {
		h.logger.Error("failed to compute embedding", "error", err, "card_id", id,
			"request_id", RequestID(r.Context()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"card_id":    card.ID,
		"dimensions": len(card.Embedding),
	})
}

func (h *SuggestHandler) similar(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	threshold := parseFloatParam(r, "threshold", suggest.DefaultThreshold, 0.01, 1)
	limit := parseIntParam(r, "limit", suggest.DefaultLimit, 1, MaxListLimit)

	matches, err := h.engine.FindSimilar(r.Context(), id, threshold, limit)
	if err != nil {
		h.logger.Error("failed to find similar cards", "error", err, "card_id", id,
			"request_id", RequestID(r.Context()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches, "total": len(matches)})
}

func (h *SuggestHandler) suggestions(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	minConfidence := parseFloatParam(r, "min_confidence", suggest.DefaultMinConfidence, 0.01, 1)
	limit := parseIntParam(r, "limit", suggest.DefaultLimit, 1, MaxListLimit)

	suggestions, err := h.engine.SuggestLinks(r.Context(), id, minConfidence, limit)
	if err != nil {
		h.logger.Error("failed to build suggestions", "error", err, "card_id", id,
			"request_id", RequestID(r.Context()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions, "total": len(suggestions)})
}
