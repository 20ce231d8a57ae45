package benchmarks_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/zoobzio/oneiro"
	oneirotest "github.com/zoobzio/oneiro/testing"
)

func benchFrame(b *testing.B) *oneiro.NeuralFrame {
	b.Helper()
	frame, err := oneiro.NewSynthesizer().Synthesize(time.Second, 14, rand.New(rand.NewSource(1)))
	if err != nil {
		b.Fatalf("failed to synthesize frame: %v", err)
	}
	return frame
}

func BenchmarkSynthesize(b *testing.B) {
	synth := oneiro.NewSynthesizer()
	rng := rand.New(rand.NewSource(1))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := synth.Synthesize(time.Second, 14, rng)
		if err != nil {
			b.Fatalf("synthesis failed: %v", err)
		}
	}
}

func BenchmarkBandPowerAnalysis(b *testing.B) {
	frame := benchFrame(b)
	analyzer := oneiro.NewBandPowerAnalyzer()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := analyzer.Analyze(frame)
		if err != nil {
			b.Fatalf("analysis failed: %v", err)
		}
	}
}

func BenchmarkStageClassification(b *testing.B) {
	frame := benchFrame(b)
	profile, err := oneiro.NewBandPowerAnalyzer().Analyze(frame)
	if err != nil {
		b.Fatalf("analysis failed: %v", err)
	}

	classifier := oneiro.NewStageClassifier()
	rng := rand.New(rand.NewSource(1))
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = classifier.Classify(ctx, profile, rng)
	}
}

func BenchmarkDreamExtraction(b *testing.B) {
	frame := benchFrame(b)
	extractor := oneiro.NewExtractor()
	stage := oneiro.StageResult{Stage: oneiro.StageREM, Confidence: 0.75}
	rng := rand.New(rand.NewSource(1))
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = extractor.Extract(ctx, frame, stage, rng)
	}
}

func BenchmarkKnowledgeSearch(b *testing.B) {
	ctx := context.Background()
	kb, err := oneiro.NewKnowledgeBase(ctx, oneiro.BuiltinSymbolEntries(), oneirotest.NewMockEmbedder())
	if err != nil {
		b.Fatalf("failed to build knowledge base: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := kb.Search(ctx, "dream symbols: water flying emotional tone: calm", 5)
		if err != nil {
			b.Fatalf("search failed: %v", err)
		}
	}
}

func BenchmarkFullCycle(b *testing.B) {
	ctx := context.Background()
	kb, err := oneiro.NewKnowledgeBase(ctx, oneiro.BuiltinSymbolEntries(), oneirotest.NewMockEmbedder())
	if err != nil {
		b.Fatalf("failed to build knowledge base: %v", err)
	}

	provider := oneirotest.NewMockProvider("A benchmark interpretation.")
	orch := oneiro.NewOrchestrator(kb).
		WithInterpreter(oneiro.NewInterpreter(kb).WithProvider(provider))
	rng := rand.New(rand.NewSource(1))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := orch.Run(ctx, 1, time.Second, rng)
		if err != nil {
			b.Fatalf("run failed: %v", err)
		}
	}
}
