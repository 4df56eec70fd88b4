package zettel

import "errors"

// Sentinel errors for zettelkasten operations.
// These errors are part of the Store's public API and should be checked
// using errors.Is().
//
// Example:
//
//	card, err := store.GetCard(ctx, id)
//	if errors.Is(err, zettel.ErrNotFound) {
//	    // Handle missing card
//	}
var (
	// ErrInvalid indicates malformed input at the core boundary
	// (empty title, score out of range). Never retried.
	ErrInvalid = errors.New("invalid input")

	// ErrNotFound indicates the referenced card or review does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateLink indicates an edge with the same
	// (from_card_id, to_card_id, link_type) already exists.
	// Duplicate creation fails loudly; it is never a silent no-op.
	ErrDuplicateLink = errors.New("duplicate link")

	// ErrReviewCompleted indicates an attempt to complete a review that
	// already has a completed_at timestamp.
	ErrReviewCompleted = errors.New("review already completed")
)
