package oneiro

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/zoobz-io/zyn"
)

// keywordEmbedder maps each vocabulary symbol onto its own dimension, so
// cosine similarity between texts reflects their shared symbols exactly.
type keywordEmbedder struct {
	calls int
}

func (m *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls++
	lower := strings.ToLower(text)
	v := make([]float32, len(SymbolVocabulary))
	for i, symbol := range SymbolVocabulary {
		v[i] = float32(strings.Count(lower, symbol))
	}
	return v, nil
}

func (m *keywordEmbedder) Dimensions() int {
	return len(SymbolVocabulary)
}

// failingEmbedder always errors, for exercising degraded retrieval paths.
type failingEmbedder struct{}

func (m *failingEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, fmt.Errorf("%w: embedding service unavailable", ErrExternalService)
}

func (m *failingEmbedder) Dimensions() int {
	return len(SymbolVocabulary)
}

// mockInterpretProvider implements Provider for the zyn Transform synapse
// used by the interpreter.
type mockInterpretProvider struct {
	calls int
}

func (m *mockInterpretProvider) Call(_ context.Context, messages []zyn.Message, _ float32) (*zyn.ProviderResponse, error) {
	m.calls++

	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	return &zyn.ProviderResponse{
		Content: `{"output": "The dream weaves its imagery around a steady emotional undercurrent, suggesting active consolidation of recent experience.", "confidence": 0.9, "changes": ["Synthesized interpretation from signal features"], "reasoning": ["Combined symbols with corpus knowledge"]}`,
		Usage: zyn.TokenUsage{
			Prompt:     20,
			Completion: 40,
			Total:      60,
		},
	}, nil
}

func (m *mockInterpretProvider) Name() string {
	return "mock-interpret"
}

// mockFailingProvider always errors, forcing the templated fallback.
type mockFailingProvider struct {
	calls int
}

func (m *mockFailingProvider) Call(_ context.Context, _ []zyn.Message, _ float32) (*zyn.ProviderResponse, error) {
	m.calls++
	return nil, fmt.Errorf("provider unavailable")
}

func (m *mockFailingProvider) Name() string {
	return "mock-failing"
}

// mockSlowProvider blocks until the caller's context expires.
type mockSlowProvider struct{}

func (m *mockSlowProvider) Call(ctx context.Context, _ []zyn.Message, _ float32) (*zyn.ProviderResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (m *mockSlowProvider) Name() string {
	return "mock-slow"
}

// newTestKnowledgeBase builds the builtin corpus over the keyword embedder.
func newTestKnowledgeBase(t *testing.T) *KnowledgeBase {
	t.Helper()
	kb, err := NewKnowledgeBase(context.Background(), BuiltinSymbolEntries(), &keywordEmbedder{})
	if err != nil {
		t.Fatalf("failed to build knowledge base: %v", err)
	}
	return kb
}
