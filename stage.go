package oneiro

import (
	"context"
	"math/rand"

	"github.com/zoobzio/capitan"
)

// Stage is a discrete sleep stage.
type Stage string

// The four recognized sleep stages.
const (
	StageN1  Stage = "N1"
	StageN2  Stage = "N2"
	StageN3  Stage = "N3"
	StageREM Stage = "REM"
)

// StageResult is the outcome of classifying one cycle's band powers.
// Computed once per cycle; immutable afterward.
type StageResult struct {
	Stage        Stage   `json:"stage"`
	Confidence   float64 `json:"confidence"`
	DominantBand Band    `json:"dominant_band"`
}

// stageRule pairs a predicate over averaged band powers with an outcome.
// Rules evaluate top-down; the first match wins, so rule order is part of
// the classification contract.
type stageRule struct {
	name    string
	applies func(avg map[Band]float64) bool
	outcome func(rng *rand.Rand) (Stage, float64)
}

// StageClassifier maps a BandPowerProfile to a sleep stage. The theta-
// dominant branch draws REM vs N2 from the supplied RNG, so a fixed seed
// yields a fixed classification.
type StageClassifier struct {
	remProbability float64
}

// NewStageClassifier creates a classifier with the default REM probability.
func NewStageClassifier() *StageClassifier {
	return &StageClassifier{remProbability: DefaultREMProbability}
}

// WithREMProbability overrides the chance the theta-dominant branch
// resolves to REM rather than N2.
func (c *StageClassifier) WithREMProbability(p float64) *StageClassifier {
	c.remProbability = p
	return c
}

// rules returns the ordered decision list:
//
//  1. delta > 2×theta          → N3,  confidence 0.85
//  2. theta > 1.5×alpha        → REM with probability remProbability,
//     else N2; confidence 0.75
//  3. alpha > beta             → N1,  confidence 0.65
//  4. otherwise                → N2,  confidence 0.70
func (c *StageClassifier) rules() []stageRule {
	return []stageRule{
		{
			name: "deep-sleep",
			applies: func(avg map[Band]float64) bool {
				return avg[BandDelta] > 2*avg[BandTheta]
			},
			outcome: func(_ *rand.Rand) (Stage, float64) {
				return StageN3, 0.85
			},
		},
		{
			name: "theta-dominant",
			applies: func(avg map[Band]float64) bool {
				return avg[BandTheta] > 1.5*avg[BandAlpha]
			},
			outcome: func(rng *rand.Rand) (Stage, float64) {
				if rng.Float64() < c.remProbability {
					return StageREM, 0.75
				}
				return StageN2, 0.75
			},
		},
		{
			name: "alpha-dominant",
			applies: func(avg map[Band]float64) bool {
				return avg[BandAlpha] > avg[BandBeta]
			},
			outcome: func(_ *rand.Rand) (Stage, float64) {
				return StageN1, 0.65
			},
		},
		{
			name: "default",
			applies: func(_ map[Band]float64) bool {
				return true
			},
			outcome: func(_ *rand.Rand) (Stage, float64) {
				return StageN2, 0.70
			},
		},
	}
}

// Classify maps averaged band powers to a stage and confidence. The only
// stochastic branch is the REM/N2 tie-break, drawn from rng.
func (c *StageClassifier) Classify(ctx context.Context, profile *BandPowerProfile, rng *rand.Rand) StageResult {
	var stage Stage
	var confidence float64
	for _, rule := range c.rules() {
		if rule.applies(profile.Average) {
			stage, confidence = rule.outcome(rng)
			break
		}
	}

	result := StageResult{
		Stage:        stage,
		Confidence:   confidence,
		DominantBand: dominantBand(profile.Average),
	}

	capitan.Emit(ctx, StageClassified,
		FieldStage.Field(string(result.Stage)),
		FieldConfidence.Field(float32(result.Confidence)),
		FieldDominantBand.Field(string(result.DominantBand)),
	)

	return result
}

// dominantBand is the argmax of the averaged profile. Ties resolve to the
// band declared first (delta, theta, alpha, beta, gamma).
func dominantBand(avg map[Band]float64) Band {
	dominant := Bands[0]
	best := avg[dominant]
	for _, band := range Bands[1:] {
		if avg[band] > best {
			dominant = band
			best = avg[band]
		}
	}
	return dominant
}
