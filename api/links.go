package api

import (
	"encoding/json"
	"net/http"

	"github.com/alfredlabs/zettel/internal/log"
	"github.com/alfredlabs/zettel/internal/zettel"
)

// LinkHandler handles link endpoints.
type LinkHandler struct {
	store  Store
	logger log.Logger
}

// NewLinkHandler creates a link handler.
func NewLinkHandler(store Store, logger log.Logger) *LinkHandler {
	return &LinkHandler{store: store, logger: logger}
}

// RegisterRoutes registers link routes on the mux.
func (h *LinkHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/links", h.create)
	mux.HandleFunc("GET /api/cards/{id}/links", h.listForCard)
}

// CreateLinkRequest mirrors zettel.CreateLinkParams with bidirectional
// defaulting to true when omitted.
type CreateLinkRequest struct {
	FromCardID    int64  `json:"from_card_id"`
	ToCardID      int64  `json:"to_card_id"`
	Type          string `json:"link_type"`
	Context       string `json:"context"`
	Bidirectional *bool  `json:"bidirectional"`
}

func (h *LinkHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}

	bidirectional := true
	if req.Bidirectional != nil {
		bidirectional = *req.Bidirectional
	}

	links, err := h.store.CreateLink(r.Context(), zettel.CreateLinkParams{
		FromCardID:    req.FromCardID,
		ToCardID:      req.ToCardID,
		Type:          req.Type,
		Context:       req.Context,
		Bidirectional: bidirectional,
	})
	if err != nil {
		h.logger.Error("failed to create link", "error", err,
			"from", req.FromCardID, "to", req.ToCardID,
			"request_id", RequestID(r.Context()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"links": links})
}

func (h *LinkHandler) listForCard(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	links, err := h.store.ListLinks(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"links": links, "total": len(links)})
}
