package oneiro

import (
	"time"

	"github.com/zoobz-io/zyn"
)

// Default configuration for pipeline stages.
// These can be overridden per-stage using builder methods.
var (
	// DefaultSampleRate is the fixed sampling rate for synthesized
	// frames, in Hz.
	DefaultSampleRate = 256

	// DefaultREMProbability is the chance the theta-dominant branch
	// classifies as REM rather than N2.
	DefaultREMProbability = 0.7

	// DefaultGenerateTimeout bounds the free-text generation call.
	// Expiry triggers the templated fallback, never a session abort.
	DefaultGenerateTimeout = 15 * time.Second

	// DefaultGenerateTemperature is used for interpretation synthesis.
	// Creative rather than deterministic: interpretation text is prose.
	DefaultGenerateTemperature = zyn.DefaultTemperatureCreative
)
