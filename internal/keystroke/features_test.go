package keystroke

import (
	"math"
	"testing"
)

// typeWord builds a press/release sequence with the given per-key hold
// and inter-press gap, both in milliseconds.
func typeWord(keys []string, holdMs, gapMs int64) []Event {
	var events []Event
	ts := int64(0)
	for _, k := range keys {
		events = append(events,
			Event{Key: k, Kind: Press, TimestampNs: ts * 1e6},
			Event{Key: k, Kind: Release, TimestampNs: (ts + holdMs) * 1e6},
		)
		ts += gapMs
	}
	return events
}

func TestExtractVectorLength(t *testing.T) {
	for _, length := range []int{3, 7, 11, 20} {
		fv, err := Extract(typeWord([]string{"h", "e", "l", "l", "o"}, 80, 150), length)
		if err != nil {
			t.Fatalf("Extract failed for L=%d: %v", length, err)
		}
		if got, want := len(fv.Vector), VectorLength(length); got != want {
			t.Errorf("L=%d: vector length = %d, want %d", length, got, want)
		}
		for i, v := range fv.Vector {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("L=%d: non-finite value at index %d", length, i)
			}
		}
	}
}

func TestExtractTimings(t *testing.T) {
	fv, err := Extract(typeWord([]string{"a", "b", "c"}, 80, 150), DefaultLength)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(fv.HoldTimes) != 3 {
		t.Fatalf("expected 3 hold times, got %d", len(fv.HoldTimes))
	}
	for _, h := range fv.HoldTimes {
		if math.Abs(h-80) > 1e-9 {
			t.Errorf("hold time = %v, want 80", h)
		}
	}

	if len(fv.PressPressDeltas) != 2 {
		t.Fatalf("expected 2 press-press deltas, got %d", len(fv.PressPressDeltas))
	}
	for _, d := range fv.PressPressDeltas {
		if math.Abs(d-150) > 1e-9 {
			t.Errorf("press-press delta = %v, want 150", d)
		}
	}

	// Flight = next press - previous release = 150 - 80 = 70ms.
	for _, f := range fv.FlightDeltas {
		if math.Abs(f-70) > 1e-9 {
			t.Errorf("flight delta = %v, want 70", f)
		}
	}
}

func TestExtractUnmatchedPressFallsBack(t *testing.T) {
	// Second press has no release; its flight pair must fall back to the
	// press-press delta.
	events := []Event{
		{Key: "a", Kind: Press, TimestampNs: 0},
		{Key: "a", Kind: Release, TimestampNs: 60e6},
		{Key: "b", Kind: Press, TimestampNs: 150e6},
		{Key: "c", Kind: Press, TimestampNs: 300e6},
		{Key: "c", Kind: Release, TimestampNs: 360e6},
	}
	fv, err := Extract(events, DefaultLength)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if len(fv.HoldTimes) != 2 {
		t.Errorf("expected 2 hold times (unmatched press dropped), got %d", len(fv.HoldTimes))
	}
	if len(fv.FlightDeltas) != 2 {
		t.Fatalf("expected 2 flight deltas, got %d", len(fv.FlightDeltas))
	}
	// a->b: 150 - 60 = 90. b->c: no release for b, fallback to pp = 150.
	if math.Abs(fv.FlightDeltas[0]-90) > 1e-9 {
		t.Errorf("flight[0] = %v, want 90", fv.FlightDeltas[0])
	}
	if math.Abs(fv.FlightDeltas[1]-150) > 1e-9 {
		t.Errorf("flight[1] = %v, want 150 (press-press fallback)", fv.FlightDeltas[1])
	}
}

func TestExtractCorrections(t *testing.T) {
	events := typeWord([]string{"a", "Backspace", "b", "Delete", "c"}, 80, 150)
	fv, err := Extract(events, DefaultLength)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if fv.CorrectionCount != 2 {
		t.Errorf("correction count = %v, want 2", fv.CorrectionCount)
	}
}

func TestExtractEmpty(t *testing.T) {
	if _, err := Extract(nil, DefaultLength); err != ErrEmptySample {
		t.Errorf("expected ErrEmptySample, got %v", err)
	}
	// Releases only: no press events at all.
	events := []Event{{Key: "a", Kind: Release, TimestampNs: 1e6}}
	if _, err := Extract(events, DefaultLength); err != ErrEmptySample {
		t.Errorf("expected ErrEmptySample for release-only input, got %v", err)
	}
}

func TestExtractSinglePressHasHoldOnly(t *testing.T) {
	events := []Event{
		{Key: "a", Kind: Press, TimestampNs: 0},
		{Key: "a", Kind: Release, TimestampNs: 90e6},
	}
	fv, err := Extract(events, DefaultLength)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(fv.HoldTimes) != 1 || len(fv.PressPressDeltas) != 0 {
		t.Errorf("unexpected series lengths: hold=%d pp=%d", len(fv.HoldTimes), len(fv.PressPressDeltas))
	}
}

func TestExtractNoTimings(t *testing.T) {
	// A lone press with no release yields neither holds nor deltas.
	events := []Event{{Key: "a", Kind: Press, TimestampNs: 0}}
	if _, err := Extract(events, DefaultLength); err != ErrNoTimings {
		t.Errorf("expected ErrNoTimings, got %v", err)
	}
}

func TestExtractTypingSpeedFinite(t *testing.T) {
	// Zero-duration sample must hit the floor, not divide by zero.
	events := []Event{
		{Key: "a", Kind: Press, TimestampNs: 0},
		{Key: "a", Kind: Release, TimestampNs: 0},
		{Key: "b", Kind: Press, TimestampNs: 0},
		{Key: "b", Kind: Release, TimestampNs: 0},
	}
	fv, err := Extract(events, DefaultLength)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if math.IsInf(fv.TypingSpeed, 0) || math.IsNaN(fv.TypingSpeed) {
		t.Errorf("typing speed not finite: %v", fv.TypingSpeed)
	}
}

func TestFilterBiometric(t *testing.T) {
	events := []Event{
		{Key: "Shift", Kind: Press},
		{Key: "h", Kind: Press},
		{Key: "ArrowLeft", Kind: Press},
		{Key: "Backspace", Kind: Press},
		{Key: "F5", Kind: Press},
	}
	filtered := FilterBiometric(events)
	if len(filtered) != 2 {
		t.Fatalf("expected 2 events after filter, got %d", len(filtered))
	}
	if filtered[0].Key != "h" || filtered[1].Key != "Backspace" {
		t.Errorf("unexpected filtered keys: %v, %v", filtered[0].Key, filtered[1].Key)
	}
}

func TestExtractDeterministic(t *testing.T) {
	events := typeWord([]string{"s", "e", "c", "r", "e", "t"}, 75, 140)
	a, err := Extract(events, DefaultLength)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	b, err := Extract(events, DefaultLength)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	for i := range a.Vector {
		if a.Vector[i] != b.Vector[i] {
			t.Fatalf("vectors differ at %d: %v vs %v", i, a.Vector[i], b.Vector[i])
		}
	}
}
