package main

import (
	"encoding/json"
	"fmt"
	"os"

	"cadenced/internal/keystroke"
	"cadenced/internal/schema"
	"cadenced/internal/voice"
)

// keystrokeCapture is the on-disk keystroke sample format.
type keystrokeCapture struct {
	Events []capturedEvent `json:"events"`
}

type capturedEvent struct {
	Key         string `json:"key"`
	Kind        string `json:"kind"`
	TimestampNs int64  `json:"timestamp_ns"`
}

// audioCapture is the on-disk voice sample format: mono PCM as floats.
type audioCapture struct {
	SampleRate int       `json:"sample_rate"`
	Samples    []float64 `json:"samples"`
}

// readKeystrokeCapture loads, schema-validates, and converts a capture
// file into extractor events.
func readKeystrokeCapture(path string) ([]keystroke.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sample: %w", err)
	}
	if err := schema.ValidateKeystrokeCapture(data); err != nil {
		return nil, err
	}

	var capture keystrokeCapture
	if err := json.Unmarshal(data, &capture); err != nil {
		return nil, fmt.Errorf("decode sample: %w", err)
	}

	events := make([]keystroke.Event, 0, len(capture.Events))
	for _, e := range capture.Events {
		kind := keystroke.Press
		if e.Kind == "release" {
			kind = keystroke.Release
		}
		events = append(events, keystroke.Event{
			Key:         e.Key,
			Kind:        kind,
			TimestampNs: e.TimestampNs,
		})
	}
	return events, nil
}

// readAudioCapture loads and schema-validates an audio capture file.
func readAudioCapture(path string) (*audioCapture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sample: %w", err)
	}
	if err := schema.ValidateAudioCapture(data); err != nil {
		return nil, err
	}

	var capture audioCapture
	if err := json.Unmarshal(data, &capture); err != nil {
		return nil, fmt.Errorf("decode sample: %w", err)
	}
	return &capture, nil
}

// extractVoice runs the acoustic pipeline on a capture with the
// configured analysis parameters.
func (a *app) extractVoice(capture *audioCapture) (*voice.AggregatedFeatures, error) {
	return voice.Extract(capture.Samples, capture.SampleRate, voice.Config{
		FrameSize:   a.cfg.Voice.FrameSize,
		HopSize:     a.cfg.Voice.HopSize,
		NumCepstral: a.cfg.Voice.NumCepstral,
	})
}
