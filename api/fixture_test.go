package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alfredlabs/zettel/internal/log"
	"github.com/alfredlabs/zettel/internal/suggest"
	"github.com/alfredlabs/zettel/internal/zettel"
)

// fakeStore is an in-memory Store for handler tests. Only the
// behaviors the tests exercise are modeled.
type fakeStore struct {
	cards   map[int64]*zettel.Card
	links   map[int64][]*zettel.Link
	reviews map[int64]*zettel.Review
	nextID  int64
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		cards:   make(map[int64]*zettel.Card),
		links:   make(map[int64][]*zettel.Link),
		reviews: make(map[int64]*zettel.Review),
	}
}

func (f *fakeStore) addCard(title string) *zettel.Card {
	f.nextID++
	card := &zettel.Card{
		ID: f.nextID, Title: title, Status: zettel.StatusActive,
		Tags: []string{}, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	f.cards[card.ID] = card
	return card
}

func (f *fakeStore) CreateCard(_ context.Context, p zettel.CreateCardParams) (*zettel.Card, *zettel.Review, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	if p.Title == "" {
		return nil, nil, fmt.Errorf("%w: title must not be blank", zettel.ErrInvalid)
	}
	card := f.addCard(p.Title)
	review := &zettel.Review{ID: card.ID, CardID: card.ID, Stage: 1, Iteration: 1, DueAt: time.Now()}
	f.reviews[review.ID] = review
	return card, review, nil
}

func (f *fakeStore) GetCard(_ context.Context, id int64) (*zettel.Card, error) {
	if f.err != nil {
		return nil, f.err
	}
	card, ok := f.cards[id]
	if !ok {
		return nil, fmt.Errorf("card %d: %w", id, zettel.ErrNotFound)
	}
	return card, nil
}

func (f *fakeStore) ListCards(_ context.Context, p zettel.ListCardsParams) ([]*zettel.Card, error) {
	if f.err != nil {
		return nil, f.err
	}
	cards := []*zettel.Card{}
	for id := int64(1); id <= f.nextID; id++ {
		card, ok := f.cards[id]
		if !ok {
			continue
		}
		if p.Status != "" && card.Status != p.Status {
			continue
		}
		cards = append(cards, card)
	}
	return cards, nil
}

func (f *fakeStore) UpdateCard(ctx context.Context, id int64, p zettel.UpdateCardParams) (*zettel.Card, error) {
	card, err := f.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Title != nil {
		if *p.Title == "" {
			return nil, fmt.Errorf("%w: title must not be blank", zettel.ErrInvalid)
		}
		card.Title = *p.Title
	}
	if p.Topic != nil {
		card.Topic = *p.Topic
	}
	return card, nil
}

func (f *fakeStore) ArchiveCard(ctx context.Context, id int64) (*zettel.Card, error) {
	card, err := f.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}
	card.Status = zettel.StatusArchived
	return card, nil
}

func (f *fakeStore) CreateLink(_ context.Context, p zettel.CreateLinkParams) ([]*zettel.Link, error) {
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.cards[p.FromCardID]; !ok {
		return nil, fmt.Errorf("card %d: %w", p.FromCardID, zettel.ErrNotFound)
	}
	if _, ok := f.cards[p.ToCardID]; !ok {
		return nil, fmt.Errorf("card %d: %w", p.ToCardID, zettel.ErrNotFound)
	}
	for _, l := range f.links[p.FromCardID] {
		if l.ToCardID == p.ToCardID && l.Type == p.Type {
			return nil, fmt.Errorf("link: %w", zettel.ErrDuplicateLink)
		}
	}
	links := []*zettel.Link{{ID: 1, FromCardID: p.FromCardID, ToCardID: p.ToCardID, Type: p.Type, Bidirectional: p.Bidirectional}}
	if p.Bidirectional {
		links = append(links, &zettel.Link{ID: 2, FromCardID: p.ToCardID, ToCardID: p.FromCardID, Type: p.Type, Bidirectional: true})
	}
	f.links[p.FromCardID] = append(f.links[p.FromCardID], links...)
	return links, nil
}

func (f *fakeStore) ListLinks(_ context.Context, cardID int64) ([]*zettel.Link, error) {
	if _, ok := f.cards[cardID]; !ok {
		return nil, fmt.Errorf("card %d: %w", cardID, zettel.ErrNotFound)
	}
	links := f.links[cardID]
	if links == nil {
		links = []*zettel.Link{}
	}
	return links, nil
}

func (f *fakeStore) DueReviews(_ context.Context, _ int) ([]*zettel.Review, error) {
	if f.err != nil {
		return nil, f.err
	}
	reviews := []*zettel.Review{}
	for id := int64(1); id <= f.nextID; id++ {
		if r, ok := f.reviews[id]; ok && r.Open() {
			reviews = append(reviews, r)
		}
	}
	return reviews, nil
}

func (f *fakeStore) CompleteReview(_ context.Context, id int64, score *float64) (*zettel.Review, *zettel.Review, error) {
	review, ok := f.reviews[id]
	if !ok {
		return nil, nil, fmt.Errorf("review %d: %w", id, zettel.ErrNotFound)
	}
	if !review.Open() {
		return nil, nil, fmt.Errorf("review %d: %w", id, zettel.ErrReviewCompleted)
	}
	if score != nil && (*score < 0 || *score > 1) {
		return nil, nil, fmt.Errorf("%w: score out of range", zettel.ErrInvalid)
	}
	now := time.Now()
	review.CompletedAt = &now
	review.Score = score
	next := &zettel.Review{ID: id + 1000, CardID: review.CardID, Stage: review.Stage + 1, Iteration: review.Iteration, DueAt: now.Add(24 * time.Hour)}
	return review, next, nil
}

func (f *fakeStore) Stats(_ context.Context) (*zettel.ReviewStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	stats := &zettel.ReviewStats{}
	for _, r := range f.reviews {
		if r.Open() {
			stats.Open++
			stats.Due++
		}
	}
	return stats, nil
}

// fakeSuggester returns canned suggestion results.
type fakeSuggester struct {
	matches     []*suggest.Match
	suggestions []*suggest.Suggestion
	err         error
}

func (f *fakeSuggester) EnsureEmbedding(_ context.Context, card *zettel.Card) (*zettel.Card, error) {
	if f.err != nil {
		return nil, f.err
	}
	if card.Embedding == nil {
		card.Embedding = []float32{0.1, 0.2}
	}
	return card, nil
}

func (f *fakeSuggester) FindSimilar(_ context.Context, _ int64, _ float64, _ int) ([]*suggest.Match, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

func (f *fakeSuggester) SuggestLinks(_ context.Context, _ int64, _ float64, _ int) ([]*suggest.Suggestion, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.suggestions, nil
}

// fakePinger reports configurable database health.
type fakePinger struct{ err error }

func (f *fakePinger) Ping(_ context.Context) error { return f.err }

func newTestServer(store *fakeStore, engine *fakeSuggester) *Server {
	return NewServer(store, engine, &fakePinger{}, log.NewNop(), Options{})
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}
