// Package profile defines the persisted biometric profile records and
// their canonical serialization. Every record carries an explicit kind
// tag and schema version so the store and the verification engine can
// switch on profile kind instead of sniffing fields.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"

	"cadenced/internal/autoencoder"
	"cadenced/internal/voice"
)

// Version is the current profile schema version.
const Version = 1

// Kind tags a persisted record.
type Kind string

const (
	// KindKeystroke is a trained keystroke anomaly model.
	KindKeystroke Kind = "keystroke-profile"
	// KindVoice is a voice reference template.
	KindVoice Kind = "voice-profile"
	// KindSamples is an in-progress enrollment sample set.
	KindSamples Kind = "enrollment-samples"
)

// Decoding errors.
var (
	// ErrKindMismatch indicates a payload tagged with a different kind
	// than the caller expected.
	ErrKindMismatch = errors.New("profile: record kind mismatch")

	// ErrVersionUnsupported indicates a payload from an incompatible
	// schema version.
	ErrVersionUnsupported = errors.New("profile: unsupported schema version")
)

// Keystroke is the persisted keystroke profile: the trained anomaly
// model, the frozen normalization statistics, and the accept threshold.
// It is created once per (identity, context) and replaced wholesale on
// re-enrollment.
type Keystroke struct {
	Kind        Kind                       `json:"kind"`
	Version     int                        `json:"version"`
	Model       *autoencoder.Model         `json:"model"`
	Norm        *autoencoder.Params        `json:"norm"`
	Threshold   float64                    `json:"threshold"`
	Stats       *autoencoder.TrainingStats `json:"stats"`
	SampleCount int                        `json:"sample_count"`
	CreatedAtNs int64                      `json:"created_at_ns"`
}

// Voice is the persisted voice profile: the averaged reference template
// for one enrolled identity. Same lifecycle rules as Keystroke.
type Voice struct {
	Kind        Kind                      `json:"kind"`
	Version     int                       `json:"version"`
	Template    *voice.AggregatedFeatures `json:"template"`
	SampleCount int                       `json:"sample_count"`
	CreatedAtNs int64                     `json:"created_at_ns"`
}

// KeystrokeSamples holds the raw feature vectors collected so far for
// an in-progress keystroke enrollment, addressed by submission index.
type KeystrokeSamples struct {
	Kind    Kind                 `json:"kind"`
	Version int                  `json:"version"`
	Samples map[string][]float64 `json:"samples"`
}

// VoiceSamples holds the aggregated features collected so far for an
// in-progress voice enrollment, addressed by submission index.
type VoiceSamples struct {
	Kind    Kind                                 `json:"kind"`
	Version int                                  `json:"version"`
	Samples map[string]*voice.AggregatedFeatures `json:"samples"`
}

// EncodeKeystroke serializes a keystroke profile canonically, stamping
// kind and version.
func EncodeKeystroke(p *Keystroke) ([]byte, error) {
	p.Kind = KindKeystroke
	p.Version = Version
	return json.Marshal(p)
}

// DecodeKeystroke parses and validates a keystroke profile payload.
func DecodeKeystroke(data []byte) (*Keystroke, error) {
	var p Keystroke
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode keystroke profile: %w", err)
	}
	if p.Kind != KindKeystroke {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrKindMismatch, p.Kind, KindKeystroke)
	}
	if p.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersionUnsupported, p.Version)
	}
	return &p, nil
}

// EncodeVoice serializes a voice profile canonically.
func EncodeVoice(p *Voice) ([]byte, error) {
	p.Kind = KindVoice
	p.Version = Version
	return json.Marshal(p)
}

// DecodeVoice parses and validates a voice profile payload.
func DecodeVoice(data []byte) (*Voice, error) {
	var p Voice
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode voice profile: %w", err)
	}
	if p.Kind != KindVoice {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrKindMismatch, p.Kind, KindVoice)
	}
	if p.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersionUnsupported, p.Version)
	}
	return &p, nil
}

// EncodeKeystrokeSamples serializes an in-progress keystroke sample set.
func EncodeKeystrokeSamples(s *KeystrokeSamples) ([]byte, error) {
	s.Kind = KindSamples
	s.Version = Version
	return json.Marshal(s)
}

// DecodeKeystrokeSamples parses an in-progress keystroke sample set.
func DecodeKeystrokeSamples(data []byte) (*KeystrokeSamples, error) {
	var s KeystrokeSamples
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode keystroke samples: %w", err)
	}
	if s.Kind != KindSamples {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrKindMismatch, s.Kind, KindSamples)
	}
	if s.Samples == nil {
		s.Samples = make(map[string][]float64)
	}
	return &s, nil
}

// EncodeVoiceSamples serializes an in-progress voice sample set.
func EncodeVoiceSamples(s *VoiceSamples) ([]byte, error) {
	s.Kind = KindSamples
	s.Version = Version
	return json.Marshal(s)
}

// DecodeVoiceSamples parses an in-progress voice sample set.
func DecodeVoiceSamples(data []byte) (*VoiceSamples, error) {
	var s VoiceSamples
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode voice samples: %w", err)
	}
	if s.Kind != KindSamples {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrKindMismatch, s.Kind, KindSamples)
	}
	if s.Samples == nil {
		s.Samples = make(map[string]*voice.AggregatedFeatures)
	}
	return &s, nil
}
