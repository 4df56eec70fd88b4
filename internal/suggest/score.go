package suggest

import (
	"fmt"
	"math"
	"strings"

	"github.com/alfredlabs/zettel/internal/zettel"
)

// Composite score weights. Semantic similarity dominates; metadata
// overlap signals refine the ranking.
const (
	weightSemantic = 0.60
	weightTags     = 0.15
	weightTopic    = 0.10
	weightCitation = 0.10
	weightTemporal = 0.05

	// temporalWindowDays is the horizon beyond which two cards'
	// update times contribute nothing to the score.
	temporalWindowDays = 30.0

	confidenceHigh   = 0.80
	confidenceMedium = 0.60
)

// Quality breaks a suggestion's composite score into its components.
// All float components are rounded to 4 decimal places; sorting uses
// the rounded composite with candidate ID as tie-break.
type Quality struct {
	SemanticScore         float64 `json:"semantic_score"`
	TagOverlap            float64 `json:"tag_overlap"`
	TopicMatch            bool    `json:"topic_match"`
	CitationOverlap       int     `json:"citation_overlap"`
	TemporalProximityDays float64 `json:"temporal_proximity_days"`
	CompositeScore        float64 `json:"composite_score"`
	Confidence            string  `json:"confidence"`
}

// CosineSimilarity computes dot(a,b) / (||a||*||b||). Mismatched
// dimensions, empty vectors and zero vectors all score 0.0 rather than
// erroring.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// scoreQuality computes the composite quality of linking base to
// candidate given their semantic similarity.
func scoreQuality(base, candidate *zettel.Card, semantic float64) Quality {
	tagOverlap := jaccard(base.Tags, candidate.Tags)
	topicMatch := base.Topic != "" && candidate.Topic != "" && base.Topic == candidate.Topic

	citations := 0
	if base.DocumentID != "" && base.DocumentID == candidate.DocumentID {
		citations++
	}
	if base.SourceURL != "" && base.SourceURL == candidate.SourceURL {
		citations++
	}

	temporalDays := math.Abs(base.UpdatedAt.Sub(candidate.UpdatedAt).Hours()) / 24
	temporalWeight := math.Max(0, 1-math.Min(temporalWindowDays, temporalDays)/temporalWindowDays)

	composite := weightSemantic * semantic
	composite += weightTags * tagOverlap
	if topicMatch {
		composite += weightTopic
	}
	composite += weightCitation * math.Min(1, float64(citations))
	composite += weightTemporal * temporalWeight

	composite = round4(composite)
	return Quality{
		SemanticScore:         round4(semantic),
		TagOverlap:            round4(tagOverlap),
		TopicMatch:            topicMatch,
		CitationOverlap:       citations,
		TemporalProximityDays: round4(temporalDays),
		CompositeScore:        composite,
		Confidence:            confidenceLabel(composite),
	}
}

// reason renders the contributing factors as a human-readable string,
// omitting zero factors. Factor order is fixed.
func (q Quality) reason() string {
	var parts []string
	if q.SemanticScore > 0 {
		parts = append(parts, fmt.Sprintf("%.0f%% semantic similarity", q.SemanticScore*100))
	}
	if q.TagOverlap > 0 {
		parts = append(parts, fmt.Sprintf("%.0f%% tag overlap", q.TagOverlap*100))
	}
	if q.TopicMatch {
		parts = append(parts, "same topic")
	}
	if q.CitationOverlap > 0 {
		parts = append(parts, "shared source")
	}
	return strings.Join(parts, ", ")
}

func confidenceLabel(composite float64) string {
	switch {
	case composite >= confidenceHigh:
		return "high"
	case composite >= confidenceMedium:
		return "medium"
	default:
		return "low"
	}
}

// jaccard computes set overlap of two tag lists, 0.0 when both are
// empty.
func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0.0
	}
	setA := make(map[string]bool, len(a))
	for _, tag := range a {
		setA[tag] = true
	}
	setB := make(map[string]bool, len(b))
	for _, tag := range b {
		setB[tag] = true
	}
	intersection := 0
	for tag := range setB {
		if setA[tag] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
