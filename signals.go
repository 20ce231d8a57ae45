package oneiro

import "github.com/zoobzio/capitan"

// Signal definitions for pipeline events.
// Signals follow the pattern: oneiro.<entity>.<event>.
var (
	// Session lifecycle signals.
	SessionStarted = capitan.NewSignal(
		"oneiro.session.started",
		"New analysis session initiated with cycle count and session ID",
	)
	SessionCompleted = capitan.NewSignal(
		"oneiro.session.completed",
		"Session finished with all requested cycles",
	)
	SessionCancelled = capitan.NewSignal(
		"oneiro.session.cancelled",
		"Session stopped between cycles; partial record frozen",
	)

	// Cycle execution signals.
	CycleStarted = capitan.NewSignal(
		"oneiro.cycle.started",
		"Sleep cycle began processing",
	)
	CycleCompleted = capitan.NewSignal(
		"oneiro.cycle.completed",
		"Sleep cycle finished successfully",
	)
	CycleFailed = capitan.NewSignal(
		"oneiro.cycle.failed",
		"Sleep cycle encountered an error and was excluded from aggregates",
	)

	// Stage analysis signals.
	StageClassified = capitan.NewSignal(
		"oneiro.stage.classified",
		"Band powers mapped to a sleep stage with confidence",
	)
	DreamExtracted = capitan.NewSignal(
		"oneiro.dream.extracted",
		"Dream content derived from a REM-stage frame",
	)

	// Retrieval signals.
	KnowledgeIndexed = capitan.NewSignal(
		"oneiro.knowledge.indexed",
		"Symbol corpus embedded and cached",
	)
	RetrievalCompleted = capitan.NewSignal(
		"oneiro.retrieval.completed",
		"Top-k symbol entries returned for a query",
	)

	// Interpretation signals.
	InterpretCompleted = capitan.NewSignal(
		"oneiro.interpret.completed",
		"Dream analysis synthesized from retrieval and generation",
	)
	InterpretFellBack = capitan.NewSignal(
		"oneiro.interpret.fellback",
		"Generative call failed or timed out; templated interpretation used",
	)

	// Protocol signals.
	ProtocolSelected = capitan.NewSignal(
		"oneiro.protocol.selected",
		"Stimulation protocol chosen from the selection rules",
	)

	// Archive signals.
	SessionArchived = capitan.NewSignal(
		"oneiro.archive.saved",
		"Session record and dreams persisted to the archive",
	)
	ArchiveEmbedFailed = capitan.NewSignal(
		"oneiro.archive.embed_failed",
		"Dream interpretation could not be embedded; persisted without vector",
	)
)

// Field keys for oneiro event data.
var (
	// Session metadata.
	FieldSessionID  = capitan.NewStringKey("session_id")
	FieldCycleCount = capitan.NewIntKey("cycle_count")
	FieldDreamCount = capitan.NewIntKey("dream_count")

	// Cycle metadata.
	FieldCycleIndex   = capitan.NewIntKey("cycle_index")
	FieldChannelCount = capitan.NewIntKey("channel_count")

	// Stage metadata.
	FieldStage        = capitan.NewStringKey("stage")
	FieldConfidence   = capitan.NewFloat32Key("confidence")
	FieldDominantBand = capitan.NewStringKey("dominant_band")

	// Dream metadata.
	FieldSymbolCount = capitan.NewIntKey("symbol_count")
	FieldEmotion     = capitan.NewStringKey("emotion")
	FieldIntensity   = capitan.NewFloat32Key("intensity")
	FieldLucid       = capitan.NewStringKey("lucid")

	// Retrieval metadata.
	FieldQuery       = capitan.NewStringKey("query")
	FieldResultCount = capitan.NewIntKey("result_count")
	FieldEntryCount  = capitan.NewIntKey("entry_count")
	FieldTopScore    = capitan.NewFloat32Key("top_score")

	// Protocol metadata.
	FieldProtocolType = capitan.NewStringKey("protocol_type")
	FieldFrequency    = capitan.NewFloat32Key("frequency_hz")

	// Timing.
	FieldCycleDuration = capitan.NewDurationKey("cycle_duration")

	// Error information.
	FieldError = capitan.NewErrorKey("error")
)
