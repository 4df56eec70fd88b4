package api

import (
	"context"

	"github.com/alfredlabs/zettel/internal/suggest"
	"github.com/alfredlabs/zettel/internal/zettel"
)

// Store is the slice of the zettel store the handlers need. Defined on
// the consumer side so tests can substitute fakes.
type Store interface {
	CreateCard(ctx context.Context, p zettel.CreateCardParams) (*zettel.Card, *zettel.Review, error)
	GetCard(ctx context.Context, id int64) (*zettel.Card, error)
	ListCards(ctx context.Context, p zettel.ListCardsParams) ([]*zettel.Card, error)
	UpdateCard(ctx context.Context, id int64, p zettel.UpdateCardParams) (*zettel.Card, error)
	ArchiveCard(ctx context.Context, id int64) (*zettel.Card, error)
	CreateLink(ctx context.Context, p zettel.CreateLinkParams) ([]*zettel.Link, error)
	ListLinks(ctx context.Context, cardID int64) ([]*zettel.Link, error)
	DueReviews(ctx context.Context, limit int) ([]*zettel.Review, error)
	CompleteReview(ctx context.Context, id int64, score *float64) (*zettel.Review, *zettel.Review, error)
	Stats(ctx context.Context) (*zettel.ReviewStats, error)
}

// Suggester is the suggestion engine surface the handlers need.
type Suggester interface {
	EnsureEmbedding(ctx context.Context, card *zettel.Card) (*zettel.Card, error)
	FindSimilar(ctx context.Context, cardID int64, threshold float64, limit int) ([]*suggest.Match, error)
	SuggestLinks(ctx context.Context, cardID int64, minConfidence float64, limit int) ([]*suggest.Suggestion, error)
}

// Pinger reports backing-store health for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}
