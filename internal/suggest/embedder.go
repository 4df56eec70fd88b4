// Package suggest implements embedding-backed link suggestion: it
// embeds card text through a provider, compares cards with cosine
// similarity, and ranks unlinked candidates by a composite quality
// score.
package suggest

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
)

// ErrProvider wraps embedding provider failures. Direct calls
// propagate it; the bulk candidate scan converts it into a
// per-candidate skip.
var ErrProvider = errors.New("embedding provider failure")

// Embedder turns a text blob into a fixed-length vector. Implemented
// by genkitEmbedder in production and by call-counting fakes in tests.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type genkitEmbedder struct {
	embedder ai.Embedder
}

// NewGenkitEmbedder adapts a genkit embedder to the Embedder interface.
func NewGenkitEmbedder(embedder ai.Embedder) Embedder {
	return &genkitEmbedder{embedder: embedder}
}

func (g *genkitEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{ai.DocumentFromText(text, nil)},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: provider returned no embedding", ErrProvider)
	}
	return resp.Embeddings[0].Embedding, nil
}
