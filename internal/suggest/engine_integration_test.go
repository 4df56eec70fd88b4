package suggest_test

import (
	"context"
	"testing"

	"github.com/alfredlabs/zettel/internal/suggest"
	"github.com/alfredlabs/zettel/internal/testutil"
	"github.com/alfredlabs/zettel/internal/zettel"
)

const embeddingDims = 768

// vec768 pads a small vector to the dimensionality of the embedding
// column.
func vec768(vals ...float32) []float32 {
	v := make([]float32, embeddingDims)
	copy(v, vals)
	return v
}

func setupEngine(t *testing.T) (*suggest.Engine, *zettel.Store, *testutil.MockEmbedder) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	embedder := testutil.NewMockEmbedder(embeddingDims)
	store := zettel.NewStore(tdb.Pool, nil, testutil.DiscardLogger())
	return suggest.NewEngine(store, embedder, testutil.DiscardLogger()), store, embedder
}

func TestEngine_EmbeddingPersistedAcrossCalls(t *testing.T) {
	engine, store, embedder := setupEngine(t)
	ctx := context.Background()

	card, _, err := store.CreateCard(ctx, zettel.CreateCardParams{
		Title:   "Attention mechanisms",
		Content: "Queries, keys and values.",
	})
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}

	if _, err := engine.EnsureEmbedding(ctx, card); err != nil {
		t.Fatalf("EnsureEmbedding: %v", err)
	}
	if embedder.Calls() != 1 {
		t.Fatalf("provider calls = %d, want 1", embedder.Calls())
	}

	// A fresh load carries the stored embedding, so no second call.
	reloaded, err := store.GetCard(ctx, card.ID)
	if err != nil {
		t.Fatalf("GetCard: %v", err)
	}
	if len(reloaded.Embedding) != embeddingDims {
		t.Fatalf("stored embedding dims = %d, want %d", len(reloaded.Embedding), embeddingDims)
	}
	if _, err := engine.EnsureEmbedding(ctx, reloaded); err != nil {
		t.Fatalf("EnsureEmbedding (cached): %v", err)
	}
	if embedder.Calls() != 1 {
		t.Errorf("provider calls after cached path = %d, want 1", embedder.Calls())
	}
}

func TestEngine_SuggestLinks_EndToEnd(t *testing.T) {
	engine, store, embedder := setupEngine(t)
	ctx := context.Background()

	base, _, err := store.CreateCard(ctx, zettel.CreateCardParams{
		Title: "Transformer architecture",
		Tags:  []string{"ai", "nlp"},
		Topic: "deep-learning",
	})
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	near, _, err := store.CreateCard(ctx, zettel.CreateCardParams{
		Title: "Self-attention explained",
		Tags:  []string{"ai", "nlp"},
		Topic: "deep-learning",
	})
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	far, _, err := store.CreateCard(ctx, zettel.CreateCardParams{
		Title: "Sourdough starter care",
		Tags:  []string{"baking"},
		Topic: "cooking",
	})
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	linked, _, err := store.CreateCard(ctx, zettel.CreateCardParams{
		Title: "Positional encodings",
		Tags:  []string{"ai", "nlp"},
		Topic: "deep-learning",
	})
	if err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	if _, err := store.CreateLink(ctx, zettel.CreateLinkParams{
		FromCardID: base.ID, ToCardID: linked.ID, Type: zettel.LinkTypeRelated,
	}); err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	embedder.SetVector(suggest.EmbedText(base), vec768(1, 0))
	embedder.SetVector(suggest.EmbedText(near), vec768(0.95, 0.3122))
	embedder.SetVector(suggest.EmbedText(far), vec768(0, 1))
	embedder.SetVector(suggest.EmbedText(linked), vec768(1, 0))

	suggestions, err := engine.SuggestLinks(ctx, base.ID, 0.6, 10)
	if err != nil {
		t.Fatalf("SuggestLinks: %v", err)
	}
	if len(suggestions) != 1 {
		t.Fatalf("got %d suggestions, want 1 (orthogonal and linked cards excluded)", len(suggestions))
	}
	got := suggestions[0]
	if got.ToCardID != near.ID {
		t.Errorf("suggested card = %d, want %d", got.ToCardID, near.ID)
	}
	if got.Quality.Confidence != "high" {
		t.Errorf("confidence = %q, want high", got.Quality.Confidence)
	}
	if got.Reason == "" {
		t.Error("suggestion has empty reason")
	}
}
