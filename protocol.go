package oneiro

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zoobzio/capitan"
)

// ProtocolType names a stimulation protocol.
type ProtocolType string

// The five protocols.
const (
	ProtocolCreativity          ProtocolType = "creativity"
	ProtocolRelaxation          ProtocolType = "relaxation"
	ProtocolMemoryConsolidation ProtocolType = "memory_consolidation"
	ProtocolLucidDreaming       ProtocolType = "lucid_dreaming"
	ProtocolAnxietyReduction    ProtocolType = "anxiety_reduction"
)

// Safety bounds every emitted protocol stays within. The protocol table is
// fixed, so these hold by construction; they are asserted in tests.
const (
	MaxProtocolIntensity   = 0.5
	MaxProtocolDuration    = 30 * time.Minute
	MinProtocolFrequencyHz = 0.5
	MaxProtocolFrequencyHz = 100
)

// protocolSafetyNote is attached to every emitted protocol.
const protocolSafetyNote = "All protocols within safe neuroplasticity parameters"

// Protocol is a stimulation-protocol recommendation. One per dream.
type Protocol struct {
	Type        ProtocolType  `json:"protocol_type"`
	FrequencyHz float64       `json:"frequency_hz"`
	Duration    time.Duration `json:"duration"`
	Intensity   float64       `json:"intensity"`
	Target      string        `json:"target"`
	Rationale   string        `json:"rationale"`
	SafetyNote  string        `json:"safety_notes"`
}

// protocolTable holds the fixed protocol parameters.
var protocolTable = map[ProtocolType]Protocol{
	ProtocolCreativity: {
		Type:        ProtocolCreativity,
		FrequencyHz: 40,
		Duration:    10 * time.Minute,
		Intensity:   0.3,
		Target:      "Gamma enhancement for creative insights",
	},
	ProtocolRelaxation: {
		Type:        ProtocolRelaxation,
		FrequencyHz: 8,
		Duration:    15 * time.Minute,
		Intensity:   0.2,
		Target:      "Alpha enhancement for relaxation",
	},
	ProtocolMemoryConsolidation: {
		Type:        ProtocolMemoryConsolidation,
		FrequencyHz: 6,
		Duration:    20 * time.Minute,
		Intensity:   0.25,
		Target:      "Theta enhancement for memory",
	},
	ProtocolLucidDreaming: {
		Type:        ProtocolLucidDreaming,
		FrequencyHz: 12,
		Duration:    5 * time.Minute,
		Intensity:   0.4,
		Target:      "Beta enhancement for lucidity",
	},
	ProtocolAnxietyReduction: {
		Type:        ProtocolAnxietyReduction,
		FrequencyHz: 10,
		Duration:    12 * time.Minute,
		Intensity:   0.15,
		Target:      "Alpha enhancement for calm",
	},
}

// selectionRule pairs a predicate over a DreamAnalysis with the protocol it
// selects. Rules evaluate top-down; the first match wins, so the order is
// part of the contract.
type selectionRule struct {
	name     string
	applies  func(a *DreamAnalysis) bool
	protocol ProtocolType
}

// Selector chooses a stimulation protocol from a DreamAnalysis. Selection
// is a pure function of the analysis: the same analysis always yields the
// same protocol.
type Selector struct {
	rules []selectionRule
}

// NewSelector creates a selector with the standard precedence:
// trauma indicators → anxiety_reduction; anxious/fearful tone → relaxation;
// flying symbol or creativity cue → creativity; lucidity → lucid_dreaming;
// otherwise memory_consolidation.
func NewSelector() *Selector {
	return &Selector{
		rules: []selectionRule{
			{
				name: "trauma-present",
				applies: func(a *DreamAnalysis) bool {
					return len(a.TraumaIndicators) > 0
				},
				protocol: ProtocolAnxietyReduction,
			},
			{
				name: "anxious-tone",
				applies: func(a *DreamAnalysis) bool {
					return a.Emotion == EmotionAnxious || a.Emotion == EmotionFearful
				},
				protocol: ProtocolRelaxation,
			},
			{
				name: "creative-content",
				applies: func(a *DreamAnalysis) bool {
					if strings.Contains(strings.ToLower(a.Interpretation), "creativity") {
						return true
					}
					for _, s := range a.Symbols {
						if s == "flying" {
							return true
						}
					}
					return false
				},
				protocol: ProtocolCreativity,
			},
			{
				name: "lucid",
				applies: func(a *DreamAnalysis) bool {
					return a.Lucid
				},
				protocol: ProtocolLucidDreaming,
			},
			{
				name: "default",
				applies: func(_ *DreamAnalysis) bool {
					return true
				},
				protocol: ProtocolMemoryConsolidation,
			},
		},
	}
}

// Select returns the protocol for an analysis, with rationale and safety
// note attached.
func (s *Selector) Select(ctx context.Context, analysis *DreamAnalysis) Protocol {
	var selected ProtocolType
	for _, rule := range s.rules {
		if rule.applies(analysis) {
			selected = rule.protocol
			break
		}
	}

	protocol := protocolTable[selected]
	protocol.Rationale = fmt.Sprintf("Selected based on %s emotional tone and clinical indicators", analysis.Emotion)
	protocol.SafetyNote = protocolSafetyNote

	capitan.Emit(ctx, ProtocolSelected,
		FieldProtocolType.Field(string(protocol.Type)),
		FieldFrequency.Field(float32(protocol.FrequencyHz)),
		FieldEmotion.Field(string(analysis.Emotion)),
	)

	return protocol
}
