package suggest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alfredlabs/zettel/internal/log"
	"github.com/alfredlabs/zettel/internal/zettel"
)

const (
	// DefaultThreshold is the minimum semantic similarity for a
	// candidate to be considered at all.
	DefaultThreshold = 0.7

	// DefaultMinConfidence is the minimum composite score for a
	// suggestion to be returned.
	DefaultMinConfidence = 0.6

	// DefaultLimit caps the number of results.
	DefaultLimit = 10
)

// CardSource is the slice of the card store the engine needs.
type CardSource interface {
	GetCard(ctx context.Context, id int64) (*zettel.Card, error)
	ActiveCards(ctx context.Context) ([]*zettel.Card, error)
	LinkedCardIDs(ctx context.Context, cardID int64) (map[int64]bool, error)
	SetEmbedding(ctx context.Context, id int64, embedding []float32) (time.Time, error)
}

// Match pairs a similar card with its quality breakdown.
type Match struct {
	Card    *zettel.Card `json:"card"`
	Quality Quality      `json:"quality"`
}

// Suggestion is an ephemeral link recommendation. Suggestions are
// produced on demand and never persisted.
type Suggestion struct {
	ToCardID int64    `json:"to_card_id"`
	ToTitle  string   `json:"to_title"`
	ToTopic  string   `json:"to_topic,omitempty"`
	ToTags   []string `json:"to_tags"`
	Reason   string   `json:"reason"`
	Quality  Quality  `json:"scores"`
}

// Engine ranks unlinked card pairs by embedding similarity plus
// metadata overlap.
type Engine struct {
	cards    CardSource
	embedder Embedder
	logger   log.Logger
}

// NewEngine creates a suggestion engine over the given card source and
// embedding provider.
func NewEngine(cards CardSource, embedder Embedder, logger log.Logger) *Engine {
	return &Engine{cards: cards, embedder: embedder, logger: logger}
}

// EmbedText builds the text blob embedded for a card: title, summary
// and content joined with whitespace, empty fields skipped.
func EmbedText(card *zettel.Card) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{card.Title, card.Summary, card.Content} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// EnsureEmbedding returns the card with its embedding populated,
// computing and persisting it on first call. An already-embedded card
// is returned unchanged without a provider call.
func (e *Engine) EnsureEmbedding(ctx context.Context, card *zettel.Card) (*zettel.Card, error) {
	if len(card.Embedding) > 0 {
		return card, nil
	}

	text := EmbedText(card)
	if text == "" {
		return nil, fmt.Errorf("%w: card %d has no text to embed", zettel.ErrInvalid, card.ID)
	}

	embedding, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding card %d: %w", card.ID, err)
	}
	updatedAt, err := e.cards.SetEmbedding(ctx, card.ID, embedding)
	if err != nil {
		return nil, err
	}

	card.Embedding = embedding
	card.UpdatedAt = updatedAt
	e.logger.Debug("embedding computed", "card_id", card.ID, "dimensions", len(embedding))
	return card, nil
}

// FindSimilar returns active, unlinked cards whose embedding cosine
// similarity to the base card meets threshold, ranked by composite
// quality score. A cold cache costs one provider call per unembedded
// candidate; individual candidate failures are skipped, not fatal.
func (e *Engine) FindSimilar(ctx context.Context, cardID int64, threshold float64, limit int) ([]*Match, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	base, err := e.cards.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if base, err = e.EnsureEmbedding(ctx, base); err != nil {
		return nil, err
	}

	linked, err := e.cards.LinkedCardIDs(ctx, cardID)
	if err != nil {
		return nil, err
	}
	candidates, err := e.cards.ActiveCards(ctx)
	if err != nil {
		return nil, err
	}

	matches := []*Match{}
	skipped := 0
	for _, candidate := range candidates {
		if candidate.ID == base.ID || linked[candidate.ID] {
			continue
		}
		embedding, ok := e.candidateEmbedding(ctx, candidate)
		if !ok {
			skipped++
			continue
		}
		semantic := CosineSimilarity(base.Embedding, embedding)
		if semantic < threshold {
			continue
		}
		matches = append(matches, &Match{
			Card:    candidate,
			Quality: scoreQuality(base, candidate, semantic),
		})
	}
	if skipped > 0 {
		e.logger.Warn("candidates skipped during similarity scan",
			"card_id", cardID, "skipped", skipped)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Quality.CompositeScore != matches[j].Quality.CompositeScore {
			return matches[i].Quality.CompositeScore > matches[j].Quality.CompositeScore
		}
		return matches[i].Card.ID < matches[j].Card.ID
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// candidateEmbedding fetches or computes a candidate's embedding,
// reporting failures as a skip instead of an error so one bad
// candidate cannot abort the whole scan.
func (e *Engine) candidateEmbedding(ctx context.Context, candidate *zettel.Card) ([]float32, bool) {
	if len(candidate.Embedding) > 0 {
		return candidate.Embedding, true
	}
	if _, err := e.EnsureEmbedding(ctx, candidate); err != nil {
		e.logger.Debug("skipping candidate", "card_id", candidate.ID, "error", err)
		return nil, false
	}
	return candidate.Embedding, true
}

// SuggestLinks returns ranked link suggestions for a card whose
// composite score meets minConfidence. Fewer than limit results is
// normal, never an error.
func (e *Engine) SuggestLinks(ctx context.Context, cardID int64, minConfidence float64, limit int) ([]*Suggestion, error) {
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	// Search wider than limit: the semantic threshold is looser than
	// the composite cutoff applied below.
	matches, err := e.FindSimilar(ctx, cardID, minConfidence, 2*limit)
	if err != nil {
		return nil, err
	}

	suggestions := []*Suggestion{}
	for _, m := range matches {
		if m.Quality.CompositeScore < minConfidence {
			continue
		}
		suggestions = append(suggestions, &Suggestion{
			ToCardID: m.Card.ID,
			ToTitle:  m.Card.Title,
			ToTopic:  m.Card.Topic,
			ToTags:   m.Card.Tags,
			Reason:   m.Quality.reason(),
			Quality:  m.Quality,
		})
		if len(suggestions) == limit {
			break
		}
	}
	return suggestions, nil
}
