package schema

import "testing"

func TestKeystrokeCapture(t *testing.T) {
	valid := `{
		"events": [
			{"key": "a", "kind": "press", "timestamp_ns": 0},
			{"key": "a", "kind": "release", "timestamp_ns": 80000000}
		]
	}`
	if err := ValidateKeystrokeCapture([]byte(valid)); err != nil {
		t.Fatalf("valid capture rejected: %v", err)
	}

	cases := map[string]string{
		"empty events":    `{"events": []}`,
		"missing events":  `{}`,
		"bad kind":        `{"events": [{"key": "a", "kind": "tap", "timestamp_ns": 0}]}`,
		"negative ts":     `{"events": [{"key": "a", "kind": "press", "timestamp_ns": -1}]}`,
		"extra field":     `{"events": [{"key": "a", "kind": "press", "timestamp_ns": 0}], "x": 1}`,
		"not json":        `{events}`,
		"empty key":       `{"events": [{"key": "", "kind": "press", "timestamp_ns": 0}]}`,
	}
	for name, body := range cases {
		if err := ValidateKeystrokeCapture([]byte(body)); err == nil {
			t.Errorf("%s: invalid capture accepted", name)
		}
	}
}

func TestAudioCapture(t *testing.T) {
	valid := `{"sample_rate": 16000, "samples": [0.1, -0.2, 0.05]}`
	if err := ValidateAudioCapture([]byte(valid)); err != nil {
		t.Fatalf("valid capture rejected: %v", err)
	}

	cases := map[string]string{
		"no samples":      `{"sample_rate": 16000, "samples": []}`,
		"low sample rate": `{"sample_rate": 300, "samples": [0.1]}`,
		"missing rate":    `{"samples": [0.1]}`,
		"string sample":   `{"sample_rate": 16000, "samples": ["loud"]}`,
	}
	for name, body := range cases {
		if err := ValidateAudioCapture([]byte(body)); err == nil {
			t.Errorf("%s: invalid capture accepted", name)
		}
	}
}
