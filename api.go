// Package oneiro provides a synthetic dream-analysis pipeline for Go.
//
// oneiro ingests simulated multi-channel EEG signals and turns them into a
// structured, explainable interpretation plus a stimulation-protocol
// recommendation. The pipeline runs in fixed stages each sleep cycle:
//
//	signal synthesis → band-power extraction → sleep-stage classification →
//	dream-content extraction → symbol retrieval → interpretation synthesis →
//	protocol selection → session aggregation
//
// # Core Types
//
//   - [NeuralFrame] - One cycle's multi-channel waveform data
//   - [BandPowerProfile] - Per-channel and averaged frequency-band power
//   - [StageResult] - Classified sleep stage with confidence
//   - [DreamContent] - Symbols, emotion, and signal features for a REM cycle
//   - [DreamAnalysis] - Interpretation, clinical insights, recommendations
//   - [Protocol] - Selected stimulation protocol with safety bounds
//   - [SessionRecord] - Ordered cycle records for one full session
//
// # Pipeline Stages
//
// Each stage is an independent component with explicit inputs:
//
//   - [Synthesizer] - Generates synthetic EEG frames
//   - [BandPowerAnalyzer] - Extracts delta/theta/alpha/beta/gamma power
//   - [StageClassifier] - Ordered-rule sleep staging with seedable REM draw
//   - [Extractor] - Derives dream content from REM frames
//   - [KnowledgeBase] - Embedded symbol corpus with top-k retrieval
//   - [Interpreter] - LLM interpretation with templated fallback
//   - [Selector] - Rule-based protocol selection
//   - [Orchestrator] - Runs cycles and aggregates the session
//
// # Running Sessions
//
// Use [NewOrchestrator] to wire the stages, then Run:
//
//	orch := oneiro.NewOrchestrator(kb).WithChannels(8)
//	record, err := orch.Run(ctx, 3, 30*time.Second, rand.New(rand.NewSource(42)))
//
// Cancellation between cycles returns a frozen partial record marked
// incomplete. A failure inside one cycle is recorded on that cycle and the
// session continues.
//
// # Provider & Embedder
//
// Embedding and free-text generation are delegated to external services
// behind two narrow interfaces. Both use a resolution hierarchy:
//
//  1. Explicit parameter (.WithProvider(p), .WithEmbedder(e))
//  2. Context value (oneiro.WithProvider(ctx, p))
//  3. Global default (oneiro.SetProvider(p))
//
// A slow or failed generation call degrades output quality via the templated
// fallback; it never blocks a session or aborts completed cycles.
//
// # Persistence
//
// The [SoyArchive] implementation uses soy for PostgreSQL persistence of
// session and dream records, with pgvector for semantic search over past
// dreams:
//
//	archive, err := oneiro.NewSoyArchive(db)
//
// # Observability
//
// oneiro emits capitan signals throughout execution. See signals.go for the
// complete list, including SessionStarted, CycleCompleted, StageClassified,
// DreamExtracted, RetrievalCompleted, InterpretFellBack, and ProtocolSelected.
package oneiro
