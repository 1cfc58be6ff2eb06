package voice

// minPitchCorrelation rejects autocorrelation peaks too weak to be a
// real fundamental.
const minPitchCorrelation = 0.3

// estimatePitch estimates the fundamental frequency of a frame by
// normalized autocorrelation, restricted to the plausible human range.
// Returns (0, false) when no credible pitch is found.
func estimatePitch(frame []float64, sampleRate int) (float64, bool) {
	if len(frame) == 0 || sampleRate <= 0 {
		return 0, false
	}

	minLag := int(float64(sampleRate) / MaxPitchHz)
	maxLag := int(float64(sampleRate) / MinPitchHz)
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(frame) {
		maxLag = len(frame) - 1
	}
	if maxLag <= minLag {
		return 0, false
	}

	var energy float64
	for _, s := range frame {
		energy += s * s
	}
	if energy == 0 {
		return 0, false
	}

	bestLag, bestCorr := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var corr float64
		for i := 0; i+lag < len(frame); i++ {
			corr += frame[i] * frame[i+lag]
		}
		corr /= energy
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}

	if bestLag == 0 || bestCorr < minPitchCorrelation {
		return 0, false
	}

	pitch := float64(sampleRate) / float64(bestLag)
	if pitch < MinPitchHz || pitch > MaxPitchHz {
		return 0, false
	}
	return pitch, true
}
