// Package keystroke extracts biometric timing features from keyboard
// event sequences.
//
// IMPORTANT: This package works on timing only - it never needs to know
// what text was typed. Key identifiers are used solely to pair a press
// with its release and to recognize correction keys. Events are ephemeral
// and discarded once a feature vector has been extracted.
package keystroke

import "errors"

// Kind distinguishes press from release events.
type Kind uint8

const (
	// Press is a key-down event.
	Press Kind = iota
	// Release is a key-up event.
	Release
)

// Event is a single timestamped key press or release.
// TimestampNs is taken from a monotonic clock.
type Event struct {
	Key         string `json:"key"`
	Kind        Kind   `json:"kind"`
	TimestampNs int64  `json:"timestamp_ns"`
}

// Extraction errors.
var (
	// ErrEmptySample indicates no usable events were supplied.
	ErrEmptySample = errors.New("keystroke: empty sample")

	// ErrNonFinite indicates a NaN or Inf crept into the feature vector.
	ErrNonFinite = errors.New("keystroke: non-finite feature value")

	// ErrNoTimings indicates both the hold-time and press-press series
	// were empty, so no rhythm can be derived.
	ErrNoTimings = errors.New("keystroke: no usable timing data")
)

// nonBiometric lists keys that carry no typing-rhythm signal and are
// discarded before feature extraction: modifiers, navigation, function
// keys. Correction keys (Backspace, Delete) are kept - the correction
// rate is itself a feature.
var nonBiometric = map[string]bool{
	"Shift": true, "ShiftLeft": true, "ShiftRight": true,
	"Control": true, "ControlLeft": true, "ControlRight": true,
	"Alt": true, "AltLeft": true, "AltRight": true,
	"Meta": true, "MetaLeft": true, "MetaRight": true,
	"CapsLock": true, "NumLock": true, "ScrollLock": true,
	"Escape": true, "Tab": true,
	"ArrowUp": true, "ArrowDown": true, "ArrowLeft": true, "ArrowRight": true,
	"Home": true, "End": true, "PageUp": true, "PageDown": true, "Insert": true,
	"F1": true, "F2": true, "F3": true, "F4": true, "F5": true, "F6": true,
	"F7": true, "F8": true, "F9": true, "F10": true, "F11": true, "F12": true,
}

// correctionKeys are presses counted toward the correction-count feature.
var correctionKeys = map[string]bool{
	"Backspace": true,
	"Delete":    true,
}

// IsBiometric reports whether a key contributes timing signal.
func IsBiometric(key string) bool {
	return !nonBiometric[key]
}

// FilterBiometric returns the events with non-biometric keys removed,
// preserving order. The input slice is not modified.
func FilterBiometric(events []Event) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if IsBiometric(e.Key) {
			out = append(out, e)
		}
	}
	return out
}
