// Package zettel implements the zettelkasten core: atomic note cards,
// typed links between them, and spaced-repetition reviews backed by
// PostgreSQL.
package zettel

import "time"

// Status describes a card's lifecycle state.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Valid reports whether s is a known card status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusArchived
}

// Link types carried on card_links rows. The set is open; these are the
// conventional values.
const (
	LinkTypeReference  = "reference"
	LinkTypeSupports   = "supports"
	LinkTypeContradict = "contradicts"
	LinkTypeExtends    = "extends"
	LinkTypeRelated    = "related"
)

// Card is an atomic note in the zettelkasten. Embedding is nil until an
// embedding has been computed for the card's current text; editing the
// title, content or summary invalidates it.
type Card struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	Content    string     `json:"content,omitempty"`
	Summary    string     `json:"summary,omitempty"`
	Tags       []string   `json:"tags"`
	Topic      string     `json:"topic,omitempty"`
	SourceURL  string     `json:"source_url,omitempty"`
	DocumentID string     `json:"document_id,omitempty"`
	Status     Status     `json:"status"`
	Importance int        `json:"importance"`
	Confidence float64    `json:"confidence"`
	Embedding  []float32  `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Link is a directed, typed edge between two cards. A bidirectional
// link is stored as two mirrored rows created in one transaction.
type Link struct {
	ID            int64     `json:"id"`
	FromCardID    int64     `json:"from_card_id"`
	ToCardID      int64     `json:"to_card_id"`
	Type          string    `json:"link_type"`
	Context       string    `json:"context,omitempty"`
	Bidirectional bool      `json:"bidirectional"`
	CreatedAt     time.Time `json:"created_at"`
}

// Review is one step of a card's spaced-repetition schedule. A review
// with a nil CompletedAt is open; each card has at most one open review.
type Review struct {
	ID          int64      `json:"id"`
	CardID      int64      `json:"card_id"`
	Stage       int        `json:"stage"`
	Iteration   int        `json:"iteration"`
	DueAt       time.Time  `json:"due_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Score       *float64   `json:"score,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Open reports whether the review has not been completed yet.
func (r *Review) Open() bool { return r.CompletedAt == nil }

// CreateCardParams holds the caller-supplied fields for a new card.
// Title is required; everything else is optional.
type CreateCardParams struct {
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Summary    string   `json:"summary"`
	Tags       []string `json:"tags"`
	Topic      string   `json:"topic"`
	SourceURL  string   `json:"source_url"`
	DocumentID string   `json:"document_id"`
	Importance int      `json:"importance"`
	Confidence float64  `json:"confidence"`
}

// UpdateCardParams holds a partial card update. Nil fields are left
// unchanged. Changing Title, Content or Summary clears the stored
// embedding so it is recomputed from the new text.
type UpdateCardParams struct {
	Title      *string   `json:"title"`
	Content    *string   `json:"content"`
	Summary    *string   `json:"summary"`
	Tags       *[]string `json:"tags"`
	Topic      *string   `json:"topic"`
	SourceURL  *string   `json:"source_url"`
	DocumentID *string   `json:"document_id"`
	Importance *int      `json:"importance"`
	Confidence *float64  `json:"confidence"`
	Status     *Status   `json:"status"`
}

// CreateLinkParams holds the caller-supplied fields for a new link.
type CreateLinkParams struct {
	FromCardID    int64  `json:"from_card_id"`
	ToCardID      int64  `json:"to_card_id"`
	Type          string `json:"link_type"`
	Context       string `json:"context"`
	Bidirectional bool   `json:"bidirectional"`
}

// ListCardsParams filters and pages a card listing. All filters are
// optional and combine with AND.
type ListCardsParams struct {
	Query  string
	Topic  string
	Tag    string
	Status Status
	Limit  int
	Offset int
}

// ReviewStats summarizes the review queue.
type ReviewStats struct {
	Open int64 `json:"open"`
	Due  int64 `json:"due"`
}
