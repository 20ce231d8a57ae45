package oneiro

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// ChannelVocabulary is the fixed 14-channel headset montage. Requested
// channel counts beyond this are silently clipped to the vocabulary size.
var ChannelVocabulary = []string{
	"AF3", "F7", "F3", "FC5", "T7", "P7", "O1",
	"O2", "P8", "T8", "FC6", "F4", "F8", "AF4",
}

// NeuralFrame holds one cycle's multi-channel waveform data. Frames are
// created fresh per cycle, read-only afterward, and discarded once the
// cycle's downstream computation completes.
type NeuralFrame struct {
	Signals    map[string][]float64
	SampleRate int
	Duration   time.Duration
	Timestamp  time.Time
}

// Channels returns the frame's channel identifiers in montage order.
func (f *NeuralFrame) Channels() []string {
	channels := make([]string, 0, len(f.Signals))
	for _, ch := range ChannelVocabulary {
		if _, ok := f.Signals[ch]; ok {
			channels = append(channels, ch)
		}
	}
	return channels
}

// Band component frequencies and base amplitudes for synthesis.
var bandComponents = []struct {
	band      Band
	frequency float64
	amplitude float64
}{
	{BandDelta, 2, 0.5},
	{BandTheta, 6, 0.3},
	{BandAlpha, 10, 0.4},
	{BandBeta, 20, 0.2},
	{BandGamma, 40, 0.1},
}

// Synthesizer produces synthetic multi-channel EEG frames. Each channel's
// waveform is the weighted sum of five fixed-frequency sinusoids modulated
// by channel-role coefficients plus additive Gaussian noise. Occipital
// channels amplify alpha; frontal channels amplify beta and gamma.
type Synthesizer struct {
	sampleRate     int
	noiseAmplitude float64
	coefficients   map[string]map[Band]float64
}

// NewSynthesizer creates a synthesizer with the default sample rate and
// noise floor.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{
		sampleRate:     DefaultSampleRate,
		noiseAmplitude: 0.1,
	}
}

// WithSampleRate overrides the sampling rate in Hz.
func (s *Synthesizer) WithSampleRate(rate int) *Synthesizer {
	s.sampleRate = rate
	return s
}

// WithNoiseAmplitude overrides the additive noise amplitude.
func (s *Synthesizer) WithNoiseAmplitude(amplitude float64) *Synthesizer {
	s.noiseAmplitude = amplitude
	return s
}

// WithBandCoefficients sets channel-specific band coefficient overrides.
// An override replaces the role-derived coefficient for that channel+band.
func (s *Synthesizer) WithBandCoefficients(channel string, coefficients map[Band]float64) *Synthesizer {
	if s.coefficients == nil {
		s.coefficients = make(map[string]map[Band]float64)
	}
	s.coefficients[channel] = coefficients
	return s
}

// roleCoefficient returns the channel-role multiplier for a band.
// Occipital channels (O1, O2) amplify alpha; frontal channels (F prefix
// groups) amplify beta and gamma.
func roleCoefficient(channel string, band Band) float64 {
	switch {
	case strings.Contains(channel, "O") && band == BandAlpha:
		return 1.5
	case strings.Contains(channel, "F") && band == BandBeta:
		return 1.3
	case strings.Contains(channel, "F") && band == BandGamma:
		return 1.2
	}
	return 1.0
}

// Synthesize generates a frame covering min(channels, vocabulary) channels.
// The requested channel count is silently clipped rather than rejected; the
// original hardware montage caps at 14 channels and over-large requests are
// treated as "all channels".
//
// Per-channel synthesis runs in parallel. Each channel derives its own RNG
// seed from rng in montage order before fan-out, so results depend only on
// the seed, never on goroutine scheduling.
func (s *Synthesizer) Synthesize(duration time.Duration, channels int, rng *rand.Rand) (*NeuralFrame, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive, got %s", ErrInvalidParameter, duration)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("%w: channel count must be positive, got %d", ErrInvalidParameter, channels)
	}

	if channels > len(ChannelVocabulary) {
		channels = len(ChannelVocabulary)
	}

	samples := int(duration.Seconds() * float64(s.sampleRate))
	if samples < 1 {
		samples = 1
	}

	// Seeds drawn sequentially in montage order keep the fan-out
	// deterministic for a fixed rng.
	seeds := make([]int64, channels)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	signals := make(map[string][]float64, channels)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < channels; i++ {
		wg.Add(1)
		go func(channel string, seed int64) {
			defer wg.Done()
			signal := s.synthesizeChannel(channel, samples, rand.New(rand.NewSource(seed)))
			mu.Lock()
			signals[channel] = signal
			mu.Unlock()
		}(ChannelVocabulary[i], seeds[i])
	}
	wg.Wait()

	return &NeuralFrame{
		Signals:    signals,
		SampleRate: s.sampleRate,
		Duration:   duration,
		Timestamp:  time.Now(),
	}, nil
}

// synthesizeChannel renders one channel's waveform.
func (s *Synthesizer) synthesizeChannel(channel string, samples int, rng *rand.Rand) []float64 {
	type component struct {
		frequency float64
		amplitude float64
		phase     float64
	}

	components := make([]component, len(bandComponents))
	for i, bc := range bandComponents {
		amplitude := bc.amplitude * roleCoefficient(channel, bc.band)
		if overrides, ok := s.coefficients[channel]; ok {
			if c, ok := overrides[bc.band]; ok {
				amplitude = bc.amplitude * c
			}
		}
		components[i] = component{
			frequency: bc.frequency,
			amplitude: amplitude,
			phase:     rng.NormFloat64(),
		}
	}

	signal := make([]float64, samples)
	for n := range signal {
		t := float64(n) / float64(s.sampleRate)
		var v float64
		for _, c := range components {
			v += c.amplitude * math.Sin(2*math.Pi*c.frequency*t+c.phase)
		}
		signal[n] = v + s.noiseAmplitude*rng.NormFloat64()
	}
	return signal
}
