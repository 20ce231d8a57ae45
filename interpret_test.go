package oneiro

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"
)

func testDream(symbols []string, emotion Emotion, intensity float64, lucid bool) *DreamContent {
	return &DreamContent{
		HasDream:   true,
		Stage:      StageREM,
		Symbols:    symbols,
		Emotion:    emotion,
		Intensity:  intensity,
		Lucid:      lucid,
		Confidence: 0.75,
	}
}

func TestAnalyzeGeneratedInterpretation(t *testing.T) {
	kb := newTestKnowledgeBase(t)
	provider := &mockInterpretProvider{}
	interpreter := NewInterpreter(kb).WithProvider(provider)

	dream := testDream([]string{"water", "flying"}, EmotionJoyful, 0.5, false)
	analysis, err := interpreter.Analyze(context.Background(), dream)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if analysis.Degraded {
		t.Error("expected generated interpretation, got degraded")
	}
	if !strings.Contains(analysis.Interpretation, "The dream weaves") {
		t.Errorf("expected provider text, got %q", analysis.Interpretation)
	}
	if provider.calls == 0 {
		t.Error("expected provider to be called")
	}
	if analysis.Confidence != 0.75 {
		t.Errorf("expected confidence 0.75, got %f", analysis.Confidence)
	}
	// k = symbol count + 2.
	if len(analysis.Retrieved) != 4 {
		t.Errorf("expected 4 retrieval results, got %d", len(analysis.Retrieved))
	}
	if analysis.Emotion != EmotionJoyful {
		t.Errorf("expected emotion carried over, got %s", analysis.Emotion)
	}
	if len(analysis.Symbols) != 2 {
		t.Errorf("expected symbols carried over, got %v", analysis.Symbols)
	}
}

func TestAnalyzeFallsBackOnProviderFailure(t *testing.T) {
	kb := newTestKnowledgeBase(t)
	interpreter := NewInterpreter(kb).WithProvider(&mockFailingProvider{})

	dream := testDream([]string{"water"}, EmotionCalm, 0.5, false)
	analysis, err := interpreter.Analyze(context.Background(), dream)
	if err != nil {
		t.Fatalf("expected fallback, not error: %v", err)
	}

	if !analysis.Degraded {
		t.Error("expected degraded analysis")
	}
	if want := 0.75 - degradedConfidencePenalty; math.Abs(analysis.Confidence-want) > 1e-9 {
		t.Errorf("expected penalized confidence %f, got %f", want, analysis.Confidence)
	}
	// Template draws on the top retrieval result.
	if !strings.Contains(analysis.Interpretation, "water") {
		t.Errorf("expected templated text to mention the symbol, got %q", analysis.Interpretation)
	}
	if !strings.Contains(analysis.Interpretation, "unconscious") {
		t.Errorf("expected templated text to use corpus knowledge, got %q", analysis.Interpretation)
	}
}

func TestAnalyzeFallsBackOnTimeout(t *testing.T) {
	kb := newTestKnowledgeBase(t)
	interpreter := NewInterpreter(kb).
		WithProvider(&mockSlowProvider{}).
		WithTimeout(50 * time.Millisecond)

	dream := testDream([]string{"light"}, EmotionCalm, 0.3, false)
	analysis, err := interpreter.Analyze(context.Background(), dream)
	if err != nil {
		t.Fatalf("expected fallback, not error: %v", err)
	}

	if !analysis.Degraded {
		t.Error("expected degraded analysis after timeout")
	}
	if analysis.Interpretation == "" {
		t.Error("expected non-empty templated interpretation")
	}
}

func TestAnalyzeNoProviderFallsBack(t *testing.T) {
	kb := newTestKnowledgeBase(t)
	interpreter := NewInterpreter(kb)

	dream := testDream([]string{"water"}, EmotionCalm, 0.5, false)
	analysis, err := interpreter.Analyze(context.Background(), dream)
	if err != nil {
		t.Fatalf("expected fallback, not error: %v", err)
	}
	if !analysis.Degraded {
		t.Error("expected degraded analysis without a provider")
	}
}

func TestAnalyzeToleratesRetrievalFailure(t *testing.T) {
	kb := newTestKnowledgeBase(t)
	kb.embedder = &failingEmbedder{}
	interpreter := NewInterpreter(kb).WithProvider(&mockInterpretProvider{})

	dream := testDream([]string{"water"}, EmotionCalm, 0.5, false)
	analysis, err := interpreter.Analyze(context.Background(), dream)
	if err != nil {
		t.Fatalf("expected degraded retrieval, not error: %v", err)
	}

	if len(analysis.Retrieved) != 0 {
		t.Errorf("expected empty retrieval context, got %d results", len(analysis.Retrieved))
	}
	if analysis.Interpretation == "" {
		t.Error("expected interpretation despite retrieval failure")
	}
}

func TestAnalyzeEmptyKnowledgeBase(t *testing.T) {
	kb, err := NewKnowledgeBase(context.Background(), nil, &keywordEmbedder{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	interpreter := NewInterpreter(kb).WithProvider(&mockInterpretProvider{})

	dream := testDream([]string{"water"}, EmotionCalm, 0.5, false)
	analysis, err := interpreter.Analyze(context.Background(), dream)
	if err != nil {
		t.Fatalf("expected empty retrieval context, not error: %v", err)
	}

	if len(analysis.Retrieved) != 0 {
		t.Errorf("expected no retrieval results, got %d", len(analysis.Retrieved))
	}
	if analysis.Degraded {
		t.Error("expected generation to proceed without corpus context")
	}
	if analysis.Interpretation == "" {
		t.Error("expected non-empty interpretation")
	}
}

func TestAnalyzeNoDream(t *testing.T) {
	kb := newTestKnowledgeBase(t)
	interpreter := NewInterpreter(kb).WithProvider(&mockInterpretProvider{})

	analysis, err := interpreter.Analyze(context.Background(), &DreamContent{
		HasDream:   false,
		Stage:      StageN2,
		Confidence: 0.7,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(analysis.Interpretation, "No significant dream activity") {
		t.Errorf("expected no-dream text, got %q", analysis.Interpretation)
	}
	if len(analysis.Recommendations) != 2 {
		t.Errorf("expected 2 baseline recommendations, got %d", len(analysis.Recommendations))
	}
	if analysis.Confidence != 0.7 {
		t.Errorf("expected stage confidence carried, got %f", analysis.Confidence)
	}
}

func TestAnalyzeTraumaAndAttention(t *testing.T) {
	kb := newTestKnowledgeBase(t)
	interpreter := NewInterpreter(kb).WithProvider(&mockInterpretProvider{})

	// Fearful falling at extreme intensity trips both trauma rules and both
	// attention flags.
	dream := testDream([]string{"falling"}, EmotionFearful, 0.9, false)
	analysis, err := interpreter.Analyze(context.Background(), dream)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(analysis.TraumaIndicators) != 2 {
		t.Errorf("expected 2 trauma indicators, got %v", analysis.TraumaIndicators)
	}
	if len(analysis.AttentionFlags) != 2 {
		t.Errorf("expected 2 attention flags, got %v", analysis.AttentionFlags)
	}
	if len(analysis.GrowthIndicators) != 0 {
		t.Errorf("expected no growth indicators, got %v", analysis.GrowthIndicators)
	}

	var foundConsultation bool
	for _, flag := range analysis.AttentionFlags {
		if strings.Contains(flag, "professional consultation") {
			foundConsultation = true
		}
	}
	if !foundConsultation {
		t.Errorf("expected consultation flag, got %v", analysis.AttentionFlags)
	}
}

func TestAnalyzeGrowthIndicators(t *testing.T) {
	kb := newTestKnowledgeBase(t)
	interpreter := NewInterpreter(kb).WithProvider(&mockInterpretProvider{})

	dream := testDream([]string{"flying"}, EmotionJoyful, 0.5, true)
	analysis, err := interpreter.Analyze(context.Background(), dream)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(analysis.GrowthIndicators) != 2 {
		t.Errorf("expected flying and lucidity growth indicators, got %v", analysis.GrowthIndicators)
	}
	if len(analysis.TraumaIndicators) != 0 {
		t.Errorf("expected no trauma indicators, got %v", analysis.TraumaIndicators)
	}
}

func TestRecommendationsCappedAndUnique(t *testing.T) {
	// Anxious tone (3), water (1), flying (1), lucid (1), high intensity (1):
	// seven candidates capped at five.
	dream := testDream([]string{"water", "flying"}, EmotionAnxious, 0.8, true)

	recs := recommendations(dream)

	if len(recs) != 5 {
		t.Fatalf("expected 5 recommendations, got %d", len(recs))
	}
	seen := make(map[string]bool)
	for _, r := range recs {
		if seen[r] {
			t.Errorf("duplicate recommendation %q", r)
		}
		seen[r] = true
	}
	if !strings.Contains(recs[0], "progressive muscle relaxation") {
		t.Errorf("expected anxiety recommendations first, got %q", recs[0])
	}
}

func TestDreamAnalysisClone(t *testing.T) {
	original := &DreamAnalysis{
		Interpretation:   "text",
		Symbols:          []string{"water"},
		TraumaIndicators: []string{"indicator"},
		Recommendations:  []string{"rec"},
	}

	clone := original.Clone()
	clone.Symbols[0] = "changed"
	clone.TraumaIndicators = append(clone.TraumaIndicators, "extra")

	if original.Symbols[0] != "water" {
		t.Error("clone shares symbol slice with original")
	}
	if len(original.TraumaIndicators) != 1 {
		t.Error("clone mutation leaked into original")
	}
}
