package oneiro

import (
	"fmt"
	"math"
	"sync"
)

// Band names a frequency band of the EEG spectrum.
type Band string

// The five bands, in declaration order. Declaration order is part of the
// contract: dominant-band ties resolve to the earlier band.
const (
	BandDelta Band = "delta"
	BandTheta Band = "theta"
	BandAlpha Band = "alpha"
	BandBeta  Band = "beta"
	BandGamma Band = "gamma"
)

// Bands lists all bands in declaration order.
var Bands = []Band{BandDelta, BandTheta, BandAlpha, BandBeta, BandGamma}

// bandRanges maps each band to its half-open frequency range [low, high) Hz.
var bandRanges = map[Band]struct{ Low, High float64 }{
	BandDelta: {1, 4},
	BandTheta: {4, 8},
	BandAlpha: {8, 12},
	BandBeta:  {12, 30},
	BandGamma: {30, 100},
}

// BandPowerProfile holds per-channel and channel-averaged band power.
// All powers are non-negative; they are averaged spectral magnitudes.
type BandPowerProfile struct {
	PerChannel map[string]map[Band]float64
	Average    map[Band]float64
}

// BandPowerAnalyzer computes frequency-band power from a NeuralFrame.
// Per-channel transforms are independent and run in parallel; results merge
// by channel key so parallelism is observationally transparent.
type BandPowerAnalyzer struct{}

// NewBandPowerAnalyzer creates a band power analyzer.
func NewBandPowerAnalyzer() *BandPowerAnalyzer {
	return &BandPowerAnalyzer{}
}

// Analyze computes per-channel band powers and the session-level average.
// Returns ErrInsufficientData if any channel holds fewer than 2 samples.
func (a *BandPowerAnalyzer) Analyze(frame *NeuralFrame) (*BandPowerProfile, error) {
	for channel, signal := range frame.Signals {
		if len(signal) < 2 {
			return nil, fmt.Errorf("%w: channel %s has %d samples, need at least 2",
				ErrInsufficientData, channel, len(signal))
		}
	}

	channels := frame.Channels()
	perChannel := make(map[string]map[Band]float64, len(channels))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, channel := range channels {
		wg.Add(1)
		go func(channel string, signal []float64) {
			defer wg.Done()
			powers := channelBandPowers(signal, frame.SampleRate)
			mu.Lock()
			perChannel[channel] = powers
			mu.Unlock()
		}(channel, frame.Signals[channel])
	}
	wg.Wait()

	average := make(map[Band]float64, len(Bands))
	for _, band := range Bands {
		var sum float64
		for _, channel := range channels {
			sum += perChannel[channel][band]
		}
		average[band] = sum / float64(len(channels))
	}

	return &BandPowerProfile{
		PerChannel: perChannel,
		Average:    average,
	}, nil
}

// channelBandPowers computes the mean spectral magnitude within each band.
// Bin k of an N-sample signal sits at k*sampleRate/N Hz; only bins inside
// the 1-100 Hz analysis range are evaluated, via Goertzel, so the cost
// scales with the band widths rather than the full spectrum.
func channelBandPowers(signal []float64, sampleRate int) map[Band]float64 {
	n := len(signal)
	binWidth := float64(sampleRate) / float64(n)

	powers := make(map[Band]float64, len(Bands))
	for _, band := range Bands {
		r := bandRanges[band]

		// First bin at or above the low edge; bins strictly below the
		// high edge belong to the band.
		kLow := int(math.Ceil(r.Low / binWidth))
		kHigh := int(math.Ceil(r.High / binWidth))
		if kHigh > n/2 {
			kHigh = n / 2
		}

		var sum float64
		var count int
		for k := kLow; k < kHigh; k++ {
			sum += goertzelMagnitude(signal, k)
			count++
		}

		if count > 0 {
			powers[band] = sum / float64(count)
		} else {
			powers[band] = 0
		}
	}
	return powers
}

// goertzelMagnitude evaluates |X(k)| for one DFT bin.
func goertzelMagnitude(signal []float64, k int) float64 {
	n := len(signal)
	omega := 2 * math.Pi * float64(k) / float64(n)
	coeff := 2 * math.Cos(omega)

	var s0, s1, s2 float64
	for _, x := range signal {
		s0 = x + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}

	real := s1 - s2*math.Cos(omega)
	imag := s2 * math.Sin(omega)
	return math.Sqrt(real*real + imag*imag)
}
