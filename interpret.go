package oneiro

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pipz"
	"github.com/zoobz-io/zyn"
)

// DreamAnalysis is the structured interpretation of one dream. Built once
// per dream; immutable afterward.
type DreamAnalysis struct {
	Interpretation   string            `json:"interpretation"`
	Degraded         bool              `json:"degraded"`
	Symbols          []string          `json:"symbols_analyzed"`
	Emotion          Emotion           `json:"emotional_tone"`
	Intensity        float64           `json:"intensity_score"`
	Lucid            bool              `json:"lucidity_detected"`
	TraumaIndicators []string          `json:"trauma_indicators"`
	GrowthIndicators []string          `json:"growth_indicators"`
	AttentionFlags   []string          `json:"clinical_attention"`
	Recommendations  []string          `json:"therapeutic_recommendations"`
	Retrieved        []RetrievalResult `json:"relevant_knowledge"`
	Confidence       float64           `json:"confidence_score"`
}

// Clone returns a deep copy. Required by pipz connectors that isolate
// processor inputs.
func (a *DreamAnalysis) Clone() *DreamAnalysis {
	clone := *a
	clone.Symbols = append([]string(nil), a.Symbols...)
	clone.TraumaIndicators = append([]string(nil), a.TraumaIndicators...)
	clone.GrowthIndicators = append([]string(nil), a.GrowthIndicators...)
	clone.AttentionFlags = append([]string(nil), a.AttentionFlags...)
	clone.Recommendations = append([]string(nil), a.Recommendations...)
	clone.Retrieved = append([]RetrievalResult(nil), a.Retrieved...)
	return &clone
}

// degradedConfidencePenalty is subtracted from the stage confidence when
// the templated fallback replaces generated text.
const degradedConfidencePenalty = 0.2

// Interpreter combines retrieval, feature context, and an external
// generative provider into a DreamAnalysis. Generation runs under an
// explicit timeout; failure or expiry degrades to a templated
// interpretation and never aborts the cycle.
type Interpreter struct {
	kb          *KnowledgeBase
	provider    Provider
	timeout     time.Duration
	temperature float32
	maxWords    int
}

// NewInterpreter creates an interpreter over the given knowledge base.
func NewInterpreter(kb *KnowledgeBase) *Interpreter {
	return &Interpreter{
		kb:          kb,
		timeout:     DefaultGenerateTimeout,
		temperature: DefaultGenerateTemperature,
		maxWords:    250,
	}
}

// WithProvider sets a specific provider for this interpreter.
// This takes precedence over context and global providers.
func (in *Interpreter) WithProvider(p Provider) *Interpreter {
	in.provider = p
	return in
}

// WithTimeout bounds the generation call.
func (in *Interpreter) WithTimeout(d time.Duration) *Interpreter {
	in.timeout = d
	return in
}

// WithTemperature sets the generation temperature.
func (in *Interpreter) WithTemperature(temp float32) *Interpreter {
	in.temperature = temp
	return in
}

// WithMaxWords caps the requested interpretation length.
func (in *Interpreter) WithMaxWords(n int) *Interpreter {
	in.maxWords = n
	return in
}

// Analyze builds the full analysis for a dream. Retrieval and generation
// failures degrade the output (empty retrieval context, templated text with
// a confidence penalty); they are never returned as errors.
func (in *Interpreter) Analyze(ctx context.Context, dream *DreamContent) (*DreamAnalysis, error) {
	if !dream.HasDream {
		return &DreamAnalysis{
			Interpretation: "No significant dream activity detected during this REM period.",
			Recommendations: []string{
				"Focus on sleep hygiene",
				"Consider dream recall techniques",
			},
			Confidence: dream.Confidence,
		}, nil
	}

	var retrieved []RetrievalResult
	if in.kb == nil || in.kb.Size() == 0 {
		capitan.Error(ctx, InterpretFellBack,
			FieldError.Field(ErrEmptyKnowledgeBase),
		)
	} else {
		var err error
		retrieved, err = in.kb.Search(ctx, DreamQuery(dream), len(dream.Symbols)+2)
		if err != nil {
			// Degraded retrieval context; generation and the template
			// both tolerate an empty result set.
			capitan.Error(ctx, InterpretFellBack,
				FieldError.Field(err),
			)
			retrieved = nil
		}
	}

	analysis := &DreamAnalysis{
		Symbols:    append([]string(nil), dream.Symbols...),
		Emotion:    dream.Emotion,
		Intensity:  dream.Intensity,
		Lucid:      dream.Lucid,
		Retrieved:  retrieved,
		Confidence: dream.Confidence,
	}

	prompt := in.buildPrompt(dream, retrieved)

	generate := pipz.Apply(pipz.Name("generate"), func(ctx context.Context, a *DreamAnalysis) (*DreamAnalysis, error) {
		text, err := in.generate(ctx, prompt)
		if err != nil {
			return a, err
		}
		a.Interpretation = text
		return a, nil
	})

	template := pipz.Apply(pipz.Name("template"), func(ctx context.Context, a *DreamAnalysis) (*DreamAnalysis, error) {
		a.Interpretation = templateInterpretation(dream, retrieved)
		a.Degraded = true
		a.Confidence = clamp01(a.Confidence - degradedConfidencePenalty)
		capitan.Emit(ctx, InterpretFellBack,
			FieldEmotion.Field(string(dream.Emotion)),
			FieldConfidence.Field(float32(a.Confidence)),
		)
		return a, nil
	})

	pipeline := pipz.NewFallback(pipz.Name("interpretation"),
		pipz.NewTimeout(pipz.Name("generate-bounded"), generate, in.timeout),
		template,
	)

	analysis, err := pipeline.Process(ctx, analysis)
	if err != nil {
		return nil, fmt.Errorf("interpretation pipeline: %w", err)
	}

	analysis.TraumaIndicators = applyInsightRules(traumaRules, dream)
	analysis.GrowthIndicators = applyInsightRules(growthRules, dream)
	analysis.AttentionFlags = attentionFlags(dream, len(analysis.TraumaIndicators))
	analysis.Recommendations = recommendations(dream)

	capitan.Emit(ctx, InterpretCompleted,
		FieldEmotion.Field(string(analysis.Emotion)),
		FieldIntensity.Field(float32(analysis.Intensity)),
		FieldResultCount.Field(len(analysis.Retrieved)),
		FieldConfidence.Field(float32(analysis.Confidence)),
	)

	return analysis, nil
}

// generate delegates free-text interpretation to the resolved provider via
// a zyn Transform synapse. All failures are wrapped as ErrExternalService
// so the fallback path can classify them.
func (in *Interpreter) generate(ctx context.Context, prompt string) (string, error) {
	provider, err := ResolveProvider(ctx, in.provider)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExternalService, err)
	}

	synapse, err := zyn.Transform(
		"Synthesize a personalized dream interpretation from signal features and symbol knowledge",
		provider,
	)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create transform synapse: %v", ErrExternalService, err)
	}

	text, err := synapse.FireWithInput(ctx, zyn.NewSession(), zyn.TransformInput{
		Text:        prompt,
		Context:     "Provide a personalized interpretation integrating these elements.",
		Style:       fmt.Sprintf("grounded, specific, non-clinical prose; at most %d words", in.maxWords),
		Temperature: in.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: generation failed: %v", ErrExternalService, err)
	}

	return strings.TrimSpace(text), nil
}

// buildPrompt renders the interpretation context: dream content, stage
// confidence, and the top-3 retrieval results' primary interpretation.
func (in *Interpreter) buildPrompt(dream *DreamContent, retrieved []RetrievalResult) string {
	var b strings.Builder
	b.WriteString("Dream Analysis Context:\n")
	fmt.Fprintf(&b, "Symbols: %s\n", strings.Join(dream.Symbols, ", "))
	fmt.Fprintf(&b, "Emotional tone: %s\n", dream.Emotion)
	fmt.Fprintf(&b, "Intensity: %.2f/1.0\n", dream.Intensity)
	fmt.Fprintf(&b, "Lucid dream: %s\n", yesNo(dream.Lucid))
	fmt.Fprintf(&b, "Neural confidence: %.2f\n", dream.Confidence)
	b.WriteString("\nRelevant psychological interpretations:\n")

	top := retrieved
	if len(top) > 3 {
		top = top[:3]
	}
	for _, r := range top {
		fmt.Fprintf(&b, "- %s: %s\n", r.Entry.Symbol, r.Entry.Jungian)
	}

	return b.String()
}

// templateInterpretation is the degraded-path text, built from the top
// retrieval result when one exists.
func templateInterpretation(dream *DreamContent, retrieved []RetrievalResult) string {
	symbols := strings.Join(dream.Symbols, ", ")
	if len(retrieved) == 0 {
		return fmt.Sprintf(
			"Dream involving %s with a %s emotional tone at %.2f intensity. No corpus interpretation was available for this cycle.",
			symbols, dream.Emotion, dream.Intensity)
	}

	top := retrieved[0].Entry
	return fmt.Sprintf(
		"Dream centered on %s with a %s emotional tone. %s. %s.",
		symbols, dream.Emotion, top.Jungian, top.Clinical)
}

// insightRule pairs a predicate over dream content with the insight text it
// contributes. Rules evaluate independently; every applicable rule fires.
type insightRule struct {
	name    string
	applies func(d *DreamContent) bool
	text    string
}

var traumaRules = []insightRule{
	{
		name: "high-intensity-anxiety",
		applies: func(d *DreamContent) bool {
			return (d.Emotion == EmotionFearful || d.Emotion == EmotionAnxious) && d.Intensity > 0.6
		},
		text: "High-intensity anxiety dreams may indicate unprocessed trauma",
	},
	{
		name: "fearful-falling",
		applies: func(d *DreamContent) bool {
			return hasSymbol(d, "falling") && d.Emotion == EmotionFearful
		},
		text: "Falling dreams with fear may suggest loss of control or security concerns",
	},
}

var growthRules = []insightRule{
	{
		name: "positive-flying",
		applies: func(d *DreamContent) bool {
			return hasSymbol(d, "flying") && (d.Emotion == EmotionJoyful || d.Emotion == EmotionExcited)
		},
		text: "Flying dreams with positive emotion suggest personal empowerment",
	},
	{
		name: "lucidity",
		applies: func(d *DreamContent) bool {
			return d.Lucid
		},
		text: "Lucid dreaming indicates increased self-awareness and cognitive control",
	},
}

func applyInsightRules(rules []insightRule, dream *DreamContent) []string {
	var insights []string
	for _, rule := range rules {
		if rule.applies(dream) {
			insights = append(insights, rule.text)
		}
	}
	return insights
}

// attentionFlags depends on how many trauma rules fired, so it evaluates
// after the trauma list is built.
func attentionFlags(dream *DreamContent, traumaCount int) []string {
	var flags []string
	if traumaCount > 1 {
		flags = append(flags, "Multiple trauma indicators - consider professional consultation")
	}
	if dream.Intensity > 0.8 && (dream.Emotion == EmotionFearful || dream.Emotion == EmotionAnxious) {
		flags = append(flags, "Extremely intense anxiety dreams - may benefit from sleep disorder evaluation")
	}
	return flags
}

// recommendations assembles the therapeutic list in fixed priority order:
// emotion templates, then symbol templates, then lucidity, then intensity.
// Deduplicated and truncated to the first 5.
func recommendations(dream *DreamContent) []string {
	var recs []string

	switch dream.Emotion {
	case EmotionAnxious, EmotionFearful:
		recs = append(recs,
			"Practice progressive muscle relaxation before sleep",
			"Consider Image Rehearsal Therapy (IRT) for recurring nightmares",
			"Implement mindfulness meditation to reduce pre-sleep anxiety",
		)
	case EmotionJoyful, EmotionExcited:
		recs = append(recs,
			"Use dream journaling to capture positive insights",
			"Consider creative expression to integrate dream inspiration",
		)
	}

	if hasSymbol(dream, "water") {
		recs = append(recs, "Water dreams suggest emotional processing - consider emotional regulation therapy")
	}
	if hasSymbol(dream, "flying") {
		recs = append(recs, "Flying dreams indicate empowerment - explore areas where you seek more control")
	}

	if dream.Lucid {
		recs = append(recs, "Lucid dreaming detected - consider lucid dream therapy for trauma processing")
	}

	if dream.Intensity > 0.7 {
		recs = append(recs, "High dream intensity - ensure adequate sleep hygiene and stress management")
	}

	seen := make(map[string]struct{}, len(recs))
	deduped := recs[:0]
	for _, r := range recs {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		deduped = append(deduped, r)
	}

	if len(deduped) > 5 {
		deduped = deduped[:5]
	}
	return deduped
}

func hasSymbol(dream *DreamContent, symbol string) bool {
	for _, s := range dream.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
