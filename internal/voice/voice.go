// Package voice extracts speaker-characteristic acoustic features from
// short spoken phrases and scores the similarity of two such profiles.
//
// The pipeline is: mono audio buffer -> overlapping analysis frames ->
// per-frame cepstral and spectral measures -> one aggregated profile per
// utterance. Raw audio is never retained; only the aggregated statistics
// leave this package.
package voice

import "errors"

// Extraction errors.
var (
	// ErrEmptyAudio indicates an empty or nil sample buffer.
	ErrEmptyAudio = errors.New("voice: empty audio buffer")

	// ErrInvalidSampleRate indicates a non-positive sample rate.
	ErrInvalidSampleRate = errors.New("voice: invalid sample rate")

	// ErrNoFrames indicates the buffer produced no valid analysis frames.
	ErrNoFrames = errors.New("voice: no valid analysis frames")

	// ErrNoTemplates indicates template averaging was requested with no
	// input samples.
	ErrNoTemplates = errors.New("voice: no samples to average")
)

// Config holds the analysis parameters. Zero values fall back to the
// defaults below.
type Config struct {
	// FrameSize is the analysis window length in samples.
	FrameSize int
	// HopSize is the slide between consecutive windows in samples.
	HopSize int
	// NumCepstral is the number of cepstral coefficients per frame.
	NumCepstral int
}

// Default analysis parameters.
const (
	DefaultFrameSize   = 1024
	DefaultHopSize     = 512
	DefaultNumCepstral = 13

	// Plausible human fundamental frequency range for pitch tracking.
	MinPitchHz = 50.0
	MaxPitchHz = 500.0
)

func (c Config) withDefaults() Config {
	if c.FrameSize <= 0 {
		c.FrameSize = DefaultFrameSize
	}
	if c.HopSize <= 0 {
		c.HopSize = DefaultHopSize
	}
	if c.NumCepstral <= 0 {
		c.NumCepstral = DefaultNumCepstral
	}
	return c
}

// FrameFeatures holds the measures of one analysis window. Spectral
// centroid and rolloff are normalized frequencies (fraction of Nyquist,
// 0..1) so they compose with the dimensionless measures downstream.
type FrameFeatures struct {
	Cepstral         []float64
	SpectralCentroid float64
	SpectralFlatness float64
	SpectralRolloff  float64
	ZeroCrossingRate float64
	RMSEnergy        float64
	Energy           float64
}

// AggregatedFeatures is the per-utterance voice profile: mean and
// variance of every frame measure plus pitch statistics. This is the
// unit compared at verification time.
type AggregatedFeatures struct {
	CepstralMean     []float64 `json:"cepstral_mean"`
	CepstralVariance []float64 `json:"cepstral_variance"`

	CentroidMean     float64 `json:"centroid_mean"`
	CentroidVariance float64 `json:"centroid_variance"`
	FlatnessMean     float64 `json:"flatness_mean"`
	FlatnessVariance float64 `json:"flatness_variance"`
	RolloffMean      float64 `json:"rolloff_mean"`
	RolloffVariance  float64 `json:"rolloff_variance"`

	ZCRMean         float64 `json:"zcr_mean"`
	ZCRVariance     float64 `json:"zcr_variance"`
	RMSMean         float64 `json:"rms_mean"`
	RMSVariance     float64 `json:"rms_variance"`
	EnergyMean      float64 `json:"energy_mean"`
	EnergyVariance  float64 `json:"energy_variance"`

	PitchMean     float64 `json:"pitch_mean"`
	PitchVariance float64 `json:"pitch_variance"`
	PitchRange    float64 `json:"pitch_range"`

	FrameCount int `json:"frame_count"`
}
