package oneiro

import (
	"context"
	"fmt"
	"strings"

	"github.com/zoobzio/capitan"
)

// KnowledgeBaseVersion identifies the builtin symbol corpus revision.
// Bump when entry text changes; cached embeddings are only comparable
// within one version.
const KnowledgeBaseVersion = "2024.2"

// SymbolEntry is one symbol's interpretation record. Entries are created at
// knowledge-base initialization and never mutated; the embedding is computed
// once from the entry text and cached.
type SymbolEntry struct {
	Symbol           string            `json:"symbol"`
	Jungian          string            `json:"jung_interpretation"`
	Freudian         string            `json:"freud_interpretation"`
	Neuroscience     string            `json:"modern_neuroscience"`
	CulturalContexts map[string]string `json:"cultural_contexts"`
	Clinical         string            `json:"clinical_significance"`
	Therapeutic      string            `json:"therapeutic_applications"`
	Embedding        Vector            `json:"-"`
}

// embedText is the text representation embedded for retrieval.
func (e *SymbolEntry) embedText() string {
	return fmt.Sprintf("%s %s %s", e.Symbol, e.Jungian, e.Freudian)
}

// KnowledgeBase is a fixed, versioned symbol corpus with cached embeddings.
// It is immutable after initialization and safe for concurrent searches.
type KnowledgeBase struct {
	entries  []SymbolEntry
	embedder Embedder
}

// NewKnowledgeBase embeds each entry once via the resolved embedder and
// caches the vectors. Embedding failures abort initialization; the corpus is
// a hard dependency of retrieval, so a partially embedded base is useless.
func NewKnowledgeBase(ctx context.Context, entries []SymbolEntry, embedder Embedder) (*KnowledgeBase, error) {
	resolved, err := ResolveEmbedder(ctx, embedder)
	if err != nil {
		return nil, fmt.Errorf("knowledge base: %w", err)
	}

	indexed := make([]SymbolEntry, len(entries))
	copy(indexed, entries)
	for i := range indexed {
		embedding, err := resolved.Embed(ctx, indexed[i].embedText())
		if err != nil {
			return nil, fmt.Errorf("knowledge base: failed to embed %q: %w", indexed[i].Symbol, err)
		}
		indexed[i].Embedding = embedding
	}

	capitan.Emit(ctx, KnowledgeIndexed,
		FieldEntryCount.Field(len(indexed)),
	)

	return &KnowledgeBase{entries: indexed, embedder: resolved}, nil
}

// Size returns the number of entries in the corpus.
func (kb *KnowledgeBase) Size() int {
	return len(kb.entries)
}

// Entries returns the corpus in insertion order.
func (kb *KnowledgeBase) Entries() []SymbolEntry {
	return kb.entries
}

// BuiltinSymbolEntries returns the builtin 10-symbol corpus.
func BuiltinSymbolEntries() []SymbolEntry {
	entries := []SymbolEntry{
		{
			Symbol:       "water",
			Jungian:      "Represents the unconscious mind, emotional depths, and the flow of psychic energy",
			Freudian:     "Often relates to birth trauma, maternal connections, or sexual symbolism",
			Neuroscience: "Associated with default mode network activation and emotional memory consolidation",
			CulturalContexts: map[string]string{
				"western":    "Purification, emotional cleansing, baptism, renewal",
				"eastern":    "Flow of life energy (qi), spiritual transformation, yin energy",
				"indigenous": "Connection to ancestors, spiritual realms, life-giving force",
			},
			Clinical:    "May indicate processing of emotional memories or need for emotional release",
			Therapeutic: "Useful for trauma processing, emotional regulation work",
		},
		{
			Symbol:       "flying",
			Jungian:      "Desire for spiritual transcendence, individuation, rising above earthly concerns",
			Freudian:     "Wish fulfillment, escape from repression, sexual liberation",
			Neuroscience: "Motor cortex activation during REM, spatial processing integration",
			CulturalContexts: map[string]string{
				"western":  "Freedom from earthly constraints, achievement, ambition",
				"shamanic": "Soul travel, spiritual journeying, connection to spirit world",
				"buddhist": "Liberation from attachment, enlightenment, transcendence",
			},
			Clinical:    "Often correlates with personal empowerment and overcoming limitations",
			Therapeutic: "Empowerment therapy, overcoming phobias, building confidence",
		},
		{
			Symbol:       "falling",
			Jungian:      "Fear of losing control, descent into the unconscious, ego dissolution",
			Freudian:     "Anxiety about failure, loss of support, sexual anxiety",
			Neuroscience: "Hypnic jerks, vestibular system activation, anxiety processing",
			CulturalContexts: map[string]string{
				"universal": "Loss of control, insecurity, fear of failure",
				"western":   "Performance anxiety, career concerns, relationship instability",
				"eastern":   "Karmic consequences, spiritual testing, ego attachment",
			},
			Clinical:    "Common in anxiety disorders, stress-related conditions",
			Therapeutic: "Anxiety management, control issues therapy, grounding techniques",
		},
	}

	additional := []struct {
		symbol  string
		meaning string
	}{
		{"animals", "Instinctual nature, repressed desires, spiritual guides, or aspects of the self"},
		{"people", "Relationships, social aspects, projected parts of self, or unresolved conflicts"},
		{"buildings", "Life structure, security, accomplishments, personal boundaries, or psychic architecture"},
		{"nature", "Growth, natural cycles, peace, authenticity, or connection to the collective unconscious"},
		{"vehicles", "Life direction, personal control, means of progress, or journey of individuation"},
		{"light", "Consciousness, enlightenment, divine connection, or emerging awareness"},
		{"darkness", "The shadow, unknown aspects, fear, or potential for growth and transformation"},
	}

	for _, a := range additional {
		entries = append(entries, SymbolEntry{
			Symbol:           a.symbol,
			Jungian:          fmt.Sprintf("Relates to %s in the context of individuation", a.meaning),
			Freudian:         fmt.Sprintf("May represent repressed aspects connected to %s", strings.ToLower(a.meaning)),
			Neuroscience:     fmt.Sprintf("Neural processing related to %s memories and associations", a.symbol),
			CulturalContexts: map[string]string{"universal": a.meaning},
			Clinical:         fmt.Sprintf("Therapeutic relevance depends on personal associations with %s", a.symbol),
			Therapeutic:      fmt.Sprintf("Can be used in therapy focusing on themes of %s", strings.ToLower(a.meaning)),
		})
	}

	return entries
}
