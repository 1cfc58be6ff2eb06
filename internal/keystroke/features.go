package keystroke

import (
	"math"
	"sort"
)

// DefaultLength is the default per-series feature length L.
// The assembled vector always has exactly 3L+1 entries.
const DefaultLength = 11

// minSpeedWindowSec floors the typing-speed denominator so a degenerate
// sample cannot divide by zero.
const minSpeedWindowSec = 0.001

// FeatureVector is one derived keystroke biometric sample. The timing
// series are kept in milliseconds; Vector is the fixed-length padded
// form fed to the model.
type FeatureVector struct {
	HoldTimes        []float64 `json:"hold_times"`
	PressPressDeltas []float64 `json:"press_press_deltas"`
	FlightDeltas     []float64 `json:"flight_deltas"`
	TypingSpeed      float64   `json:"typing_speed"`
	MeanFlightTime   float64   `json:"mean_flight_time"`
	CorrectionCount  float64   `json:"correction_count"`
	HoldTimeSpread   float64   `json:"hold_time_spread"`
	Vector           []float64 `json:"vector"`
}

// VectorLength returns the assembled vector length for a series length L.
func VectorLength(length int) int {
	return 3*length + 1
}

// Extract derives a fixed-length feature vector from one ordered attempt.
// length is the configured series length L; the result vector has exactly
// 3L+1 entries. Extract is a pure function of its input.
func Extract(events []Event, length int) (*FeatureVector, error) {
	if length <= 0 {
		length = DefaultLength
	}
	if len(events) == 0 {
		return nil, ErrEmptySample
	}

	presses := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Kind == Press {
			presses = append(presses, e)
		}
	}
	if len(presses) == 0 {
		return nil, ErrEmptySample
	}

	// Pair each press with its first subsequent release of the same key.
	// Presses with no matching release keep releaseNs < 0.
	releaseNs := matchReleases(events, presses)

	fv := &FeatureVector{}
	corrections := 0

	for i, p := range presses {
		if correctionKeys[p.Key] {
			corrections++
		}
		if releaseNs[i] >= 0 {
			fv.HoldTimes = append(fv.HoldTimes, nsToMs(releaseNs[i]-p.TimestampNs))
		}
	}

	for i := 1; i < len(presses); i++ {
		pp := nsToMs(presses[i].TimestampNs - presses[i-1].TimestampNs)
		fv.PressPressDeltas = append(fv.PressPressDeltas, pp)

		// Flight: next press minus the previous press's matched release.
		// No release means no flight gap is measurable; the press-press
		// delta stands in for that pair.
		if releaseNs[i-1] >= 0 {
			fv.FlightDeltas = append(fv.FlightDeltas, nsToMs(presses[i].TimestampNs-releaseNs[i-1]))
		} else {
			fv.FlightDeltas = append(fv.FlightDeltas, pp)
		}
	}

	if len(fv.HoldTimes) == 0 && len(fv.PressPressDeltas) == 0 {
		return nil, ErrNoTimings
	}

	fv.CorrectionCount = float64(corrections)
	fv.MeanFlightTime = mean(fv.FlightDeltas)
	fv.HoldTimeSpread = populationStdDev(fv.HoldTimes)
	fv.TypingSpeed = typingSpeed(len(presses), fv.HoldTimes, fv.PressPressDeltas, fv.FlightDeltas)

	fv.Vector = assemble(fv, length)

	for _, v := range fv.Vector {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrNonFinite
		}
	}
	return fv, nil
}

// matchReleases returns, for each press, the timestamp of its first
// subsequent release of the same key, or -1 when none exists. Each
// release is consumed by at most one press.
func matchReleases(events []Event, presses []Event) []int64 {
	out := make([]int64, len(presses))
	used := make([]bool, len(events))

	for i, p := range presses {
		out[i] = -1
		for j, e := range events {
			if used[j] || e.Kind != Release || e.Key != p.Key {
				continue
			}
			if e.TimestampNs >= p.TimestampNs {
				out[i] = e.TimestampNs
				used[j] = true
				break
			}
		}
	}
	return out
}

// typingSpeed is presses per second over the longest cumulative timing
// series, floored to avoid division by zero.
func typingSpeed(pressCount int, hold, pp, flight []float64) float64 {
	windowSec := math.Max(sum(hold), math.Max(sum(pp), sum(flight))) / 1000.0
	if windowSec < minSpeedWindowSec {
		windowSec = minSpeedWindowSec
	}
	return float64(pressCount) / windowSec
}

// assemble lays out the padded vector: L hold times, L-1 press-press
// deltas, L-1 flight deltas, then the four scalars, clamped to exactly
// 3L+1 entries.
func assemble(fv *FeatureVector, length int) []float64 {
	target := VectorLength(length)
	out := make([]float64, 0, target+4)

	out = appendCapped(out, fv.HoldTimes, length)
	out = appendCapped(out, fv.PressPressDeltas, length-1)
	out = appendCapped(out, fv.FlightDeltas, length-1)
	out = append(out, fv.TypingSpeed, fv.MeanFlightTime, fv.CorrectionCount, fv.HoldTimeSpread)

	if len(out) > target {
		out = out[:target]
	}
	for len(out) < target {
		out = append(out, 0)
	}
	return out
}

func appendCapped(dst, src []float64, limit int) []float64 {
	n := len(src)
	if n > limit {
		n = limit
	}
	return append(dst, src[:n]...)
}

func nsToMs(ns int64) float64 {
	return float64(ns) / 1e6
}

func sum(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return sum(xs) / float64(len(xs))
}

// populationStdDev is the population (not sample) standard deviation.
func populationStdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	variance := 0.0
	for _, x := range xs {
		d := x - m
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(xs)))
}

// Median is exported for diagnostics and threshold tooling.
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
