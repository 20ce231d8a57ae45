package oneiro

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zoobzio/capitan"
)

// RetrievalResult pairs a knowledge-base entry with its relevance score.
// Scores are cosine similarity rescaled to [0, 1].
type RetrievalResult struct {
	Entry SymbolEntry `json:"entry"`
	Score float64     `json:"relevance_score"`
}

// DreamQuery builds the retrieval query text for a dream's content.
func DreamQuery(dream *DreamContent) string {
	query := fmt.Sprintf("dream symbols: %s emotional tone: %s",
		strings.Join(dream.Symbols, " "), dream.Emotion)
	return fmt.Sprintf("%s intensity: %.2f lucid: %t", query, dream.Intensity, dream.Lucid)
}

// Search embeds the query and returns the top-k entries by descending
// relevance. Ties resolve to knowledge-base insertion order. k is clamped
// to the corpus size; an empty corpus returns an empty result, not an error.
func (kb *KnowledgeBase) Search(ctx context.Context, query string, k int) ([]RetrievalResult, error) {
	if len(kb.entries) == 0 || k <= 0 {
		return nil, nil
	}
	if k > len(kb.entries) {
		k = len(kb.entries)
	}

	embedder, err := ResolveEmbedder(ctx, kb.embedder)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	queryEmbedding, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: failed to embed query: %w", err)
	}

	results := make([]RetrievalResult, len(kb.entries))
	for i, entry := range kb.entries {
		results[i] = RetrievalResult{
			Entry: entry,
			Score: (Cosine(entry.Embedding, queryEmbedding) + 1) / 2,
		}
	}

	// Stable sort keeps insertion order within equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	results = results[:k]

	capitan.Emit(ctx, RetrievalCompleted,
		FieldQuery.Field(query),
		FieldResultCount.Field(len(results)),
		FieldTopScore.Field(float32(results[0].Score)),
	)

	return results, nil
}
