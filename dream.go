package oneiro

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/zoobzio/capitan"
)

// Emotion labels the dominant emotional tone of a dream.
type Emotion string

// The fixed emotion set.
const (
	EmotionCalm        Emotion = "calm"
	EmotionAnxious     Emotion = "anxious"
	EmotionExcited     Emotion = "excited"
	EmotionMelancholic Emotion = "melancholic"
	EmotionFearful     Emotion = "fearful"
	EmotionJoyful      Emotion = "joyful"
)

// SymbolVocabulary is the fixed set of dream symbols the extractor samples
// from. DreamContent.Symbols is always a subset of this list.
var SymbolVocabulary = []string{
	"water", "flying", "falling", "animals", "people",
	"buildings", "nature", "vehicles", "light", "darkness",
}

// Features holds the raw signal statistics dream content derives from.
type Features struct {
	Entropy    float64 `json:"signal_entropy"`
	Complexity int     `json:"complexity"`
	Valence    float64 `json:"emotional_valence"`
	Intensity  float64 `json:"intensity"`
	Coherence  float64 `json:"coherence"`
}

// DreamContent is the symbolic content extracted from a REM-stage frame.
// HasDream is false for non-REM cycles; only Stage is meaningful then.
type DreamContent struct {
	HasDream    bool     `json:"has_dream"`
	Stage       Stage    `json:"stage"`
	Symbols     []string `json:"symbols,omitempty"`
	Emotion     Emotion  `json:"emotion,omitempty"`
	Intensity   float64  `json:"intensity"`
	Lucid       bool     `json:"is_lucid"`
	Description string   `json:"visual_description,omitempty"`
	Features    Features `json:"neural_features"`
	Confidence  float64  `json:"confidence"`
}

// Extractor derives symbolic dream content from REM-stage signals.
type Extractor struct {
	referenceChannels [2]string
	histogramBins     int
	diffThreshold     float64
}

// NewExtractor creates an extractor with the frontal reference pair and
// default feature parameters.
func NewExtractor() *Extractor {
	return &Extractor{
		referenceChannels: [2]string{"F3", "F4"},
		histogramBins:     50,
		diffThreshold:     0.1,
	}
}

// WithReferenceChannels overrides the coherence reference pair.
func (e *Extractor) WithReferenceChannels(a, b string) *Extractor {
	e.referenceChannels = [2]string{a, b}
	return e
}

// Extract derives dream content from a frame classified as REM. Non-REM
// stages return a no-dream result with the stage attached. Symbol sampling
// and emotion choice draw from rng; fixed seed and frame give fixed output.
func (e *Extractor) Extract(ctx context.Context, frame *NeuralFrame, stage StageResult, rng *rand.Rand) *DreamContent {
	if stage.Stage != StageREM {
		return &DreamContent{HasDream: false, Stage: stage.Stage}
	}

	// All channel signals concatenated in montage order; feature math is
	// over the combined sequence.
	var combined []float64
	for _, channel := range frame.Channels() {
		combined = append(combined, frame.Signals[channel]...)
	}

	features := Features{
		Entropy:    histogramEntropy(combined, e.histogramBins),
		Complexity: complexityCount(combined, e.diffThreshold),
		Valence:    mean(combined),
		Intensity:  stddev(combined),
		Coherence:  e.coherence(frame),
	}

	symbolCount := int(math.Round(float64(features.Complexity) / 5000))
	if symbolCount < 1 {
		symbolCount = 1
	}
	if symbolCount > 4 {
		symbolCount = 4
	}
	symbols := sampleSymbols(symbolCount, rng)

	intensity := clamp01(features.Intensity)
	emotion := pickEmotion(features.Valence, intensity, rng)
	lucid := features.Coherence > 0.7 && intensity > 0.4

	dream := &DreamContent{
		HasDream:    true,
		Stage:       stage.Stage,
		Symbols:     symbols,
		Emotion:     emotion,
		Intensity:   intensity,
		Lucid:       lucid,
		Description: fmt.Sprintf("Vivid dream involving %s with %s emotional tone", strings.Join(symbols, ", "), emotion),
		Features:    features,
		Confidence:  stage.Confidence,
	}

	capitan.Emit(ctx, DreamExtracted,
		FieldStage.Field(string(dream.Stage)),
		FieldSymbolCount.Field(len(dream.Symbols)),
		FieldEmotion.Field(string(dream.Emotion)),
		FieldIntensity.Field(float32(dream.Intensity)),
		FieldLucid.Field(strconv.FormatBool(dream.Lucid)),
	)

	return dream
}

// coherence is the Pearson correlation between the two reference channels,
// defaulting to 0.5 when the frame lacks either.
func (e *Extractor) coherence(frame *NeuralFrame) float64 {
	a, okA := frame.Signals[e.referenceChannels[0]]
	b, okB := frame.Signals[e.referenceChannels[1]]
	if !okA || !okB || len(a) != len(b) || len(a) < 2 {
		return 0.5
	}
	return pearson(a, b)
}

// pickEmotion applies the valence/arousal rules:
// positive valence with intensity above 0.3 draws from the positive group,
// valence below -0.1 draws from the negative group, otherwise calm.
func pickEmotion(valence, intensity float64, rng *rand.Rand) Emotion {
	switch {
	case valence > 0 && intensity > 0.3:
		group := []Emotion{EmotionJoyful, EmotionExcited, EmotionCalm}
		return group[rng.Intn(len(group))]
	case valence < -0.1:
		group := []Emotion{EmotionAnxious, EmotionMelancholic, EmotionFearful}
		return group[rng.Intn(len(group))]
	}
	return EmotionCalm
}

// sampleSymbols draws n symbols without replacement from the vocabulary.
func sampleSymbols(n int, rng *rand.Rand) []string {
	perm := rng.Perm(len(SymbolVocabulary))
	symbols := make([]string, n)
	for i := 0; i < n; i++ {
		symbols[i] = SymbolVocabulary[perm[i]]
	}
	return symbols
}

// histogramEntropy bins the signal and returns the negative sum of bin
// probabilities times their log, guarded against log(0).
func histogramEntropy(signal []float64, bins int) float64 {
	if len(signal) == 0 || bins < 1 {
		return 0
	}

	lo, hi := signal[0], signal[0]
	for _, v := range signal {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		return 0
	}

	counts := make([]float64, bins)
	width := (hi - lo) / float64(bins)
	for _, v := range signal {
		bin := int((v - lo) / width)
		if bin >= bins {
			bin = bins - 1
		}
		counts[bin]++
	}

	const epsilon = 1e-10
	var entropy float64
	total := float64(len(signal))
	for _, c := range counts {
		p := c / total
		entropy -= p * math.Log(p+epsilon)
	}
	return entropy
}

// complexityCount counts adjacent-sample differences exceeding threshold.
func complexityCount(signal []float64, threshold float64) int {
	var count int
	for i := 1; i < len(signal); i++ {
		if math.Abs(signal[i]-signal[i-1]) > threshold {
			count++
		}
	}
	return count
}

func mean(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	var sum float64
	for _, v := range signal {
		sum += v
	}
	return sum / float64(len(signal))
}

func stddev(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	m := mean(signal)
	var sum float64
	for _, v := range signal {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(signal)))
}

func pearson(a, b []float64) float64 {
	ma, mb := mean(a), mean(b)
	var cov, varA, varB float64
	for i := range a {
		da, db := a[i]-ma, b[i]-mb
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
