// Package enroll runs the biometric enrollment lifecycle: collect
// index-addressed samples for one (identity, context), then train and
// persist the profile for that modality.
//
// State machine per session:
//
//	Idle -> Collecting -> Training -> Complete
//	                         |
//	                         +-> back to Collecting on failure
//
// Voice enrollment has no training phase; its session completes when
// the template is averaged and persisted.
package enroll

import "errors"

// Enrollment errors.
var (
	// ErrInsufficientSamples indicates completion was requested before
	// the required sample count was reached.
	ErrInsufficientSamples = errors.New("enroll: insufficient samples")

	// ErrIndexOutOfRange indicates a sample index outside [0, required).
	ErrIndexOutOfRange = errors.New("enroll: sample index out of range")

	// ErrTrainingInProgress indicates a sample arrived while the
	// session's model was training.
	ErrTrainingInProgress = errors.New("enroll: training in progress")

	// ErrBadSample indicates a sample that fails structural validation.
	ErrBadSample = errors.New("enroll: invalid sample")
)

// State is an enrollment session state.
type State int

const (
	StateIdle State = iota
	StateCollecting
	StateTraining
	StateComplete
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	case StateTraining:
		return "training"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Modality names an enrollment pipeline.
type Modality string

const (
	ModalityKeystroke Modality = "keystroke"
	ModalityVoice     Modality = "voice"
)

// Progress is a snapshot of one session's advancement.
type Progress struct {
	SessionID string
	State     State
	Collected int
	Required  int
	// LastError carries the most recent training failure message while
	// the session is back in Collecting; empty otherwise.
	LastError string
}

// Defaults for enrollment configuration.
const (
	DefaultRequiredKeystroke  = 5
	DefaultRequiredVoice      = 3
	DefaultAugmentationFactor = 3
	DefaultNoiseLevel         = 0.05
	DefaultThresholdFloor     = 0.03
)

// Config tunes the enrollment pipeline.
type Config struct {
	// RequiredKeystroke is the keystroke sample count that triggers
	// training.
	RequiredKeystroke int
	// RequiredVoice is the voice sample count that completes enrollment.
	RequiredVoice int
	// VectorLength is the per-series keystroke feature length.
	VectorLength int
	// AugmentationFactor is the number of noisy variants generated per
	// original sample.
	AugmentationFactor int
	// NoiseLevel bounds the uniform per-feature augmentation noise.
	NoiseLevel float64
	// ThresholdFloor is the minimum accept threshold.
	ThresholdFloor float64
	// Epochs and LearningRate are passed through to training.
	Epochs       int
	LearningRate float64
	// Seed makes training reproducible when nonzero.
	Seed int64
}

// DefaultConfig returns the standard enrollment configuration.
func DefaultConfig() Config {
	return Config{
		RequiredKeystroke:  DefaultRequiredKeystroke,
		RequiredVoice:      DefaultRequiredVoice,
		VectorLength:       11,
		AugmentationFactor: DefaultAugmentationFactor,
		NoiseLevel:         DefaultNoiseLevel,
		ThresholdFloor:     DefaultThresholdFloor,
	}
}

// normalized fills zero fields with defaults.
func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.RequiredKeystroke <= 0 {
		c.RequiredKeystroke = d.RequiredKeystroke
	}
	if c.RequiredVoice <= 0 {
		c.RequiredVoice = d.RequiredVoice
	}
	if c.VectorLength <= 0 {
		c.VectorLength = d.VectorLength
	}
	if c.AugmentationFactor <= 0 {
		c.AugmentationFactor = d.AugmentationFactor
	}
	if c.NoiseLevel <= 0 {
		c.NoiseLevel = d.NoiseLevel
	}
	if c.ThresholdFloor <= 0 {
		c.ThresholdFloor = d.ThresholdFloor
	}
	return c
}
