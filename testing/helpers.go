// Package oneirotest provides test utilities for oneiro.
package oneirotest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/oneiro"
	"github.com/zoobzio/zyn"
)

// MockEmbedder implements oneiro.Embedder without a network dependency.
// Each vocabulary symbol occupies its own dimension, so cosine similarity
// between two texts reflects exactly the symbols they share.
type MockEmbedder struct {
	mu    sync.Mutex
	calls int
}

// NewMockEmbedder creates a deterministic keyword embedder.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

// Embed counts symbol occurrences into a fixed-dimension vector.
func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	lower := strings.ToLower(text)
	v := make([]float32, len(oneiro.SymbolVocabulary))
	for i, symbol := range oneiro.SymbolVocabulary {
		v[i] = float32(strings.Count(lower, symbol))
	}
	return v, nil
}

// Dimensions returns the embedding dimensionality.
func (m *MockEmbedder) Dimensions() int {
	return len(oneiro.SymbolVocabulary)
}

// Calls reports how many embeddings were requested.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var _ oneiro.Embedder = (*MockEmbedder)(nil)

// MockProvider implements oneiro.Provider, answering every transform call
// with a fixed interpretation text. Set Err to force the degraded path.
type MockProvider struct {
	Output string
	Err    error

	mu    sync.Mutex
	calls int
}

// NewMockProvider creates a provider that always returns output.
func NewMockProvider(output string) *MockProvider {
	return &MockProvider{Output: output}
}

// Call returns the configured output wrapped in a transform response.
func (m *MockProvider) Call(_ context.Context, messages []zyn.Message, _ float32) (*zyn.ProviderResponse, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	content, err := json.Marshal(map[string]any{
		"output":     m.Output,
		"confidence": 0.9,
		"changes":    []string{"Synthesized interpretation"},
		"reasoning":  []string{"Combined dream content with corpus knowledge"},
	})
	if err != nil {
		return nil, err
	}

	return &zyn.ProviderResponse{
		Content: string(content),
		Usage: zyn.TokenUsage{
			Prompt:     20,
			Completion: 40,
			Total:      60,
		},
	}, nil
}

// Name identifies the mock provider.
func (m *MockProvider) Name() string {
	return "mock-provider"
}

// Calls reports how many generation calls were made.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var _ oneiro.Provider = (*MockProvider)(nil)

// MockArchive implements oneiro.Archive in memory.
type MockArchive struct {
	mu       sync.RWMutex
	sessions map[string]*oneiro.SessionRow
	dreams   map[string][]oneiro.DreamRecord
	embedder oneiro.Embedder
}

// NewMockArchive creates an empty in-memory archive.
func NewMockArchive() *MockArchive {
	return &MockArchive{
		sessions: make(map[string]*oneiro.SessionRow),
		dreams:   make(map[string][]oneiro.DreamRecord),
	}
}

// WithEmbedder sets the embedder used to index dream interpretations.
func (m *MockArchive) WithEmbedder(e oneiro.Embedder) *MockArchive {
	m.embedder = e
	return m
}

// SaveSession stores the session summary and its analyzed dreams.
func (m *MockArchive) SaveSession(ctx context.Context, record *oneiro.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.sessions[record.ID] = &oneiro.SessionRow{
		ID:             record.ID,
		StartedAt:      record.StartedAt,
		CycleCount:     len(record.Cycles),
		DreamCount:     record.DreamCount,
		REMCount:       record.REMCount,
		MeanConfidence: record.MeanConfidence,
		Incomplete:     record.Incomplete,
		Created:        now,
	}

	for _, c := range record.Cycles {
		if c.Failed || c.Dream == nil || !c.Dream.HasDream || c.Analysis == nil {
			continue
		}

		dream := oneiro.DreamRecord{
			SessionID:      record.ID,
			CycleIndex:     c.Index,
			Stage:          string(c.Stage.Stage),
			Symbols:        strings.Join(c.Dream.Symbols, ", "),
			Emotion:        string(c.Dream.Emotion),
			Intensity:      c.Dream.Intensity,
			Lucid:          c.Dream.Lucid,
			Interpretation: c.Analysis.Interpretation,
			Confidence:     c.Analysis.Confidence,
			Created:        now,
		}
		if m.embedder != nil {
			if embedding, err := m.embedder.Embed(ctx, c.Analysis.Interpretation); err == nil {
				dream.Embedding = embedding
			}
		}
		m.dreams[record.ID] = append(m.dreams[record.ID], dream)
	}
	return nil
}

// GetSession loads a stored session and its dreams.
func (m *MockArchive) GetSession(_ context.Context, id string) (*oneiro.SessionRow, []oneiro.DreamRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.sessions[id]
	if !ok {
		return nil, nil, fmt.Errorf("session not found: %s", id)
	}
	return row, m.dreams[id], nil
}

// ListSessions returns all stored session summaries.
func (m *MockArchive) ListSessions(_ context.Context) ([]*oneiro.SessionRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]*oneiro.SessionRow, 0, len(m.sessions))
	for _, row := range m.sessions {
		rows = append(rows, row)
	}
	return rows, nil
}

// SearchDreams ranks embedded dreams by cosine similarity to the query.
func (m *MockArchive) SearchDreams(_ context.Context, embedding oneiro.Vector, limit int) ([]*oneiro.DreamRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []*oneiro.DreamRecord
	for id := range m.dreams {
		for i := range m.dreams[id] {
			d := m.dreams[id][i]
			if len(d.Embedding) == 0 {
				continue
			}
			results = append(results, &d)
		}
	}

	for i := 0; i < len(results); i++ {
		for j := i + 1; j < len(results); j++ {
			if oneiro.Cosine(results[j].Embedding, embedding) > oneiro.Cosine(results[i].Embedding, embedding) {
				results[i], results[j] = results[j], results[i]
			}
		}
	}

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

var _ oneiro.Archive = (*MockArchive)(nil)

// NewTestKnowledgeBase builds the builtin symbol corpus over a MockEmbedder.
func NewTestKnowledgeBase(t *testing.T) *oneiro.KnowledgeBase {
	t.Helper()
	kb, err := oneiro.NewKnowledgeBase(context.Background(), oneiro.BuiltinSymbolEntries(), NewMockEmbedder())
	if err != nil {
		t.Fatalf("failed to build knowledge base: %v", err)
	}
	return kb
}

// RequireProtocol asserts the analysis selects the expected protocol type.
func RequireProtocol(t *testing.T, analysis *oneiro.DreamAnalysis, want oneiro.ProtocolType) {
	t.Helper()
	protocol := oneiro.NewSelector().Select(context.Background(), analysis)
	if protocol.Type != want {
		t.Fatalf("expected protocol %s, got %s", want, protocol.Type)
	}
}
