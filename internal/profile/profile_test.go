package profile

import (
	"errors"
	"testing"

	"cadenced/internal/autoencoder"
	"cadenced/internal/voice"
)

func TestKeystrokeRoundTripStampsKindAndVersion(t *testing.T) {
	p := &Keystroke{
		Norm:      &autoencoder.Params{Min: []float64{0}, Max: []float64{1}},
		Threshold: 0.05,
	}
	data, err := EncodeKeystroke(p)
	if err != nil {
		t.Fatalf("EncodeKeystroke failed: %v", err)
	}

	got, err := DecodeKeystroke(data)
	if err != nil {
		t.Fatalf("DecodeKeystroke failed: %v", err)
	}
	if got.Kind != KindKeystroke || got.Version != Version {
		t.Errorf("kind=%q version=%d, want %q/%d", got.Kind, got.Version, KindKeystroke, Version)
	}
	if got.Threshold != 0.05 {
		t.Errorf("threshold = %v, want 0.05", got.Threshold)
	}
}

func TestDecodeRejectsWrongKind(t *testing.T) {
	v := &Voice{Template: &voice.AggregatedFeatures{}}
	data, err := EncodeVoice(v)
	if err != nil {
		t.Fatalf("EncodeVoice failed: %v", err)
	}

	// A voice payload is not a keystroke profile, whatever its version.
	if _, err := DecodeKeystroke(data); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("expected ErrKindMismatch, got %v", err)
	}
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	data := []byte(`{"kind":"keystroke-profile","version":99}`)
	if _, err := DecodeKeystroke(data); !errors.Is(err, ErrVersionUnsupported) {
		t.Errorf("expected ErrVersionUnsupported, got %v", err)
	}
}

func TestSamplesDecodeInitializesMap(t *testing.T) {
	ks, err := DecodeKeystrokeSamples([]byte(`{"kind":"enrollment-samples","version":1}`))
	if err != nil {
		t.Fatalf("DecodeKeystrokeSamples failed: %v", err)
	}
	if ks.Samples == nil {
		t.Error("nil samples map after decode")
	}

	vs, err := DecodeVoiceSamples([]byte(`{"kind":"enrollment-samples","version":1}`))
	if err != nil {
		t.Fatalf("DecodeVoiceSamples failed: %v", err)
	}
	if vs.Samples == nil {
		t.Error("nil samples map after decode")
	}
}
