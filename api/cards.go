package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/alfredlabs/zettel/internal/log"
	"github.com/alfredlabs/zettel/internal/zettel"
)

// Card listing bounds.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
	MaxListOffset    = 100000
)

// CardHandler handles card CRUD endpoints.
type CardHandler struct {
	store  Store
	logger log.Logger
}

// NewCardHandler creates a card handler.
func NewCardHandler(store Store, logger log.Logger) *CardHandler {
	return &CardHandler{store: store, logger: logger}
}

// RegisterRoutes registers card routes on the mux.
func (h *CardHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/cards", h.create)
	mux.HandleFunc("GET /api/cards", h.list)
	mux.HandleFunc("GET /api/cards/{id}", h.get)
	mux.HandleFunc("PATCH /api/cards/{id}", h.update)
	mux.HandleFunc("POST /api/cards/{id}/archive", h.archive)
}

// CreateCardResponse bundles the new card with its first review.
type CreateCardResponse struct {
	Card   *zettel.Card   `json:"card"`
	Review *zettel.Review `json:"review"`
}

func (h *CardHandler) create(w http.ResponseWriter, r *http.Request) {
	var req zettel.CreateCardParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}

	card, review, err := h.store.CreateCard(r.Context(), req)
	if err != nil {
		h.logger.Error("failed to create card", "error", err, "request_id", RequestID(r.Context()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateCardResponse{Card: card, Review: review})
}

func (h *CardHandler) list(w http.ResponseWriter, r *http.Request) {
	// Listings default to active cards; archived rows need an explicit
	// status=archived or status=all.
	status := zettel.Status(r.URL.Query().Get("status"))
	switch status {
	case "":
		status = zettel.StatusActive
	case "all":
		status = ""
	}

	params := zettel.ListCardsParams{
		Query:  r.URL.Query().Get("q"),
		Topic:  r.URL.Query().Get("topic"),
		Tag:    r.URL.Query().Get("tag"),
		Status: status,
		Limit:  parseIntParam(r, "limit", DefaultListLimit, 1, MaxListLimit),
		Offset: parseIntParam(r, "offset", 0, 0, MaxListOffset),
	}

	cards, err := h.store.ListCards(r.Context(), params)
	if err != nil {
		h.logger.Error("failed to list cards", "error", err, "request_id", RequestID(r.Context()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cards":  cards,
		"total":  len(cards),
		"limit":  params.Limit,
		"offset": params.Offset,
	})
}

func (h *CardHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	card, err := h.store.GetCard(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (h *CardHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req zettel.UpdateCardParams
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid request body")
		return
	}

	card, err := h.store.UpdateCard(r.Context(), id, req)
	if err != nil {
		h.logger.Error("failed to update card", "error", err, "card_id", id,
			"request_id", RequestID(r.Context()))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (h *CardHandler) archive(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	card, err := h.store.ArchiveCard(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// parseID extracts the {id} path value; on failure it writes a 400 and
// returns ok=false.
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid id")
		return 0, false
	}
	return id, true
}

// parseIntParam parses an integer query parameter with bounds clamping.
func parseIntParam(r *http.Request, name string, defaultVal, min, max int) int {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultVal
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// parseFloatParam parses a float query parameter with bounds clamping.
func parseFloatParam(r *http.Request, name string, defaultVal, min, max float64) float64 {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultVal
	}
	val, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return defaultVal
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
