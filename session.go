package oneiro

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
)

// Cycle is the value threaded through one pass of the per-cycle pipeline.
// Stages fill it in order: frame, profile, stage, dream, analysis, protocol.
type Cycle struct {
	Index    int
	Frame    *NeuralFrame
	Profile  *BandPowerProfile
	Stage    StageResult
	Dream    *DreamContent
	Analysis *DreamAnalysis
	Protocol *Protocol

	rng *rand.Rand
}

// Clone implements pipz.Cloner. Stage outputs are copied by reference; each
// is written once and read-only afterward. The RNG is intentionally shared:
// it is the session's single source of randomness.
func (c *Cycle) Clone() *Cycle {
	clone := *c
	return &clone
}

// CycleRecord is the durable outcome of one cycle. Failed cycles carry the
// error text and are excluded from session aggregates.
type CycleRecord struct {
	Index     int            `json:"cycle"`
	Timestamp time.Time      `json:"timestamp"`
	Stage     StageResult    `json:"stage"`
	Dream     *DreamContent  `json:"dream_content,omitempty"`
	Analysis  *DreamAnalysis `json:"analysis,omitempty"`
	Protocol  *Protocol      `json:"enhancement,omitempty"`
	Failed    bool           `json:"failed,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// SessionRecord aggregates one session's cycles. It is mutated only by the
// orchestrator during Run and is frozen once Run returns; the caller owns it
// thereafter for display, export, or archiving.
type SessionRecord struct {
	ID             string        `json:"session_id"`
	StartedAt      time.Time     `json:"timestamp"`
	Cycles         []CycleRecord `json:"cycles"`
	DreamCount     int           `json:"total_dreams"`
	REMCount       int           `json:"rem_periods"`
	MeanConfidence float64       `json:"avg_confidence"`
	Incomplete     bool          `json:"incomplete,omitempty"`
}

// Orchestrator runs repeated dream-analysis cycles and aggregates them into
// a SessionRecord. It is the only component with cross-cycle state.
type Orchestrator struct {
	synth       *Synthesizer
	analyzer    *BandPowerAnalyzer
	classifier  *StageClassifier
	extractor   *Extractor
	interpreter *Interpreter
	selector    *Selector
	channels    int
	progress    func(completed, total int)
}

// NewOrchestrator wires the pipeline stages with defaults over the given
// knowledge base.
func NewOrchestrator(kb *KnowledgeBase) *Orchestrator {
	return &Orchestrator{
		synth:       NewSynthesizer(),
		analyzer:    NewBandPowerAnalyzer(),
		classifier:  NewStageClassifier(),
		extractor:   NewExtractor(),
		interpreter: NewInterpreter(kb),
		selector:    NewSelector(),
		channels:    8,
	}
}

// WithChannels sets the requested channel count per frame.
func (o *Orchestrator) WithChannels(n int) *Orchestrator {
	o.channels = n
	return o
}

// WithSynthesizer replaces the signal synthesizer.
func (o *Orchestrator) WithSynthesizer(s *Synthesizer) *Orchestrator {
	o.synth = s
	return o
}

// WithClassifier replaces the sleep-stage classifier.
func (o *Orchestrator) WithClassifier(c *StageClassifier) *Orchestrator {
	o.classifier = c
	return o
}

// WithExtractor replaces the dream-content extractor.
func (o *Orchestrator) WithExtractor(e *Extractor) *Orchestrator {
	o.extractor = e
	return o
}

// WithInterpreter replaces the interpretation synthesizer.
func (o *Orchestrator) WithInterpreter(in *Interpreter) *Orchestrator {
	o.interpreter = in
	return o
}

// WithSelector replaces the protocol selector.
func (o *Orchestrator) WithSelector(s *Selector) *Orchestrator {
	o.selector = s
	return o
}

// WithProgress sets a callback invoked after each completed cycle.
func (o *Orchestrator) WithProgress(fn func(completed, total int)) *Orchestrator {
	o.progress = fn
	return o
}

// Start runs a session sized in minutes: one 30-second frame per 10-minute
// mini-cycle, at least one cycle. This is the entry point the UI layer
// calls; Run gives direct control over cycle count and duration.
func (o *Orchestrator) Start(ctx context.Context, durationMinutes int, rng *rand.Rand) (*SessionRecord, error) {
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("%w: session duration must be positive, got %d minutes", ErrInvalidParameter, durationMinutes)
	}
	cycles := durationMinutes / 10
	if cycles < 1 {
		cycles = 1
	}
	return o.Run(ctx, cycles, 30*time.Second, rng)
}

// Run executes cycles sequentially and returns the aggregated record.
//
// Parameter validation failures are the only fatal errors. A failure inside
// one cycle marks that cycle failed and the session continues. Cancelling
// ctx stops the run between cycles; the returned record then contains only
// completed cycles and is marked incomplete.
func (o *Orchestrator) Run(ctx context.Context, cycles int, cycleDuration time.Duration, rng *rand.Rand) (*SessionRecord, error) {
	if cycles <= 0 {
		return nil, fmt.Errorf("%w: cycle count must be positive, got %d", ErrInvalidParameter, cycles)
	}
	if cycleDuration <= 0 {
		return nil, fmt.Errorf("%w: cycle duration must be positive, got %s", ErrInvalidParameter, cycleDuration)
	}
	if o.channels <= 0 {
		return nil, fmt.Errorf("%w: channel count must be positive, got %d", ErrInvalidParameter, o.channels)
	}

	record := &SessionRecord{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
	}

	capitan.Emit(ctx, SessionStarted,
		FieldSessionID.Field(record.ID),
		FieldCycleCount.Field(cycles),
		FieldChannelCount.Field(o.channels),
	)

	pipeline := o.pipeline(cycleDuration)

	for i := 0; i < cycles; i++ {
		if ctx.Err() != nil {
			return o.freeze(ctx, record), nil
		}

		start := time.Now()
		capitan.Emit(ctx, CycleStarted,
			FieldSessionID.Field(record.ID),
			FieldCycleIndex.Field(i),
		)

		cycle, err := pipeline.Process(ctx, &Cycle{Index: i, rng: rng})
		if err != nil {
			// Cancellation mid-cycle discards the partial cycle rather
			// than recording it as a failure.
			if ctx.Err() != nil {
				return o.freeze(ctx, record), nil
			}

			record.Cycles = append(record.Cycles, CycleRecord{
				Index:     i,
				Timestamp: start,
				Failed:    true,
				Error:     err.Error(),
			})
			capitan.Error(ctx, CycleFailed,
				FieldSessionID.Field(record.ID),
				FieldCycleIndex.Field(i),
				FieldError.Field(err),
			)
			continue
		}

		record.Cycles = append(record.Cycles, CycleRecord{
			Index:     i,
			Timestamp: start,
			Stage:     cycle.Stage,
			Dream:     cycle.Dream,
			Analysis:  cycle.Analysis,
			Protocol:  cycle.Protocol,
		})
		if cycle.Stage.Stage == StageREM {
			record.REMCount++
		}
		if cycle.Dream != nil && cycle.Dream.HasDream && cycle.Analysis != nil {
			record.DreamCount++
		}

		capitan.Emit(ctx, CycleCompleted,
			FieldSessionID.Field(record.ID),
			FieldCycleIndex.Field(i),
			FieldStage.Field(string(cycle.Stage.Stage)),
			FieldCycleDuration.Field(time.Since(start)),
		)

		if o.progress != nil {
			o.progress(i+1, cycles)
		}
	}

	finalizeAggregates(record)
	capitan.Emit(ctx, SessionCompleted,
		FieldSessionID.Field(record.ID),
		FieldCycleCount.Field(len(record.Cycles)),
		FieldDreamCount.Field(record.DreamCount),
	)

	return record, nil
}

// pipeline builds the per-cycle sequence. Interpretation and protocol
// selection pass through untouched on non-dream cycles.
func (o *Orchestrator) pipeline(cycleDuration time.Duration) *pipz.Sequence[*Cycle] {
	synthesize := pipz.Apply(pipz.Name("synthesize"), func(_ context.Context, c *Cycle) (*Cycle, error) {
		frame, err := o.synth.Synthesize(cycleDuration, o.channels, c.rng)
		if err != nil {
			return c, err
		}
		c.Frame = frame
		return c, nil
	})

	bandpower := pipz.Apply(pipz.Name("bandpower"), func(_ context.Context, c *Cycle) (*Cycle, error) {
		profile, err := o.analyzer.Analyze(c.Frame)
		if err != nil {
			return c, err
		}
		c.Profile = profile
		return c, nil
	})

	classify := pipz.Apply(pipz.Name("classify"), func(ctx context.Context, c *Cycle) (*Cycle, error) {
		c.Stage = o.classifier.Classify(ctx, c.Profile, c.rng)
		return c, nil
	})

	extract := pipz.Apply(pipz.Name("extract"), func(ctx context.Context, c *Cycle) (*Cycle, error) {
		c.Dream = o.extractor.Extract(ctx, c.Frame, c.Stage, c.rng)
		// The frame is not persisted; downstream stages work from the
		// extracted content only.
		c.Frame = nil
		return c, nil
	})

	interpret := pipz.Apply(pipz.Name("interpret"), func(ctx context.Context, c *Cycle) (*Cycle, error) {
		if c.Dream == nil || !c.Dream.HasDream {
			return c, nil
		}
		analysis, err := o.interpreter.Analyze(ctx, c.Dream)
		if err != nil {
			return c, err
		}
		c.Analysis = analysis
		return c, nil
	})

	selectProtocol := pipz.Apply(pipz.Name("select-protocol"), func(ctx context.Context, c *Cycle) (*Cycle, error) {
		if c.Analysis == nil || c.Dream == nil || !c.Dream.HasDream {
			return c, nil
		}
		protocol := o.selector.Select(ctx, c.Analysis)
		c.Protocol = &protocol
		return c, nil
	})

	return pipz.NewSequence(pipz.Name("dream-cycle"),
		synthesize, bandpower, classify, extract, interpret, selectProtocol)
}

// freeze marks a cancelled record incomplete and emits the cancel signal.
func (o *Orchestrator) freeze(ctx context.Context, record *SessionRecord) *SessionRecord {
	record.Incomplete = true
	finalizeAggregates(record)
	capitan.Emit(ctx, SessionCancelled,
		FieldSessionID.Field(record.ID),
		FieldCycleCount.Field(len(record.Cycles)),
		FieldDreamCount.Field(record.DreamCount),
	)
	return record
}

// finalizeAggregates computes MeanConfidence over non-failed cycles.
func finalizeAggregates(record *SessionRecord) {
	var sum float64
	var n int
	for _, c := range record.Cycles {
		if c.Failed {
			continue
		}
		sum += c.Stage.Confidence
		n++
	}
	if n > 0 {
		record.MeanConfidence = sum / float64(n)
	}
}

// ProtocolCounts tallies selected protocol types across the session.
func (s *SessionRecord) ProtocolCounts() map[ProtocolType]int {
	counts := make(map[ProtocolType]int)
	for _, c := range s.Cycles {
		if c.Protocol != nil {
			counts[c.Protocol.Type]++
		}
	}
	return counts
}
