package voice

import "math"

// Extract computes the aggregated voice profile of one decoded mono
// utterance. It is a pure function of its input.
func Extract(samples []float64, sampleRate int, cfg Config) (*AggregatedFeatures, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyAudio
	}
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	cfg = cfg.withDefaults()

	window := hammingWindow(cfg.FrameSize)
	windowed := make([]float64, cfg.FrameSize)

	var frames []FrameFeatures
	var pitches []float64

	for start := 0; start+cfg.FrameSize <= len(samples); start += cfg.HopSize {
		frame := samples[start : start+cfg.FrameSize]
		for i, s := range frame {
			windowed[i] = s * window[i]
		}

		ff := analyzeFrame(windowed, frame, cfg.NumCepstral)
		if !frameValid(ff) {
			continue
		}
		frames = append(frames, ff)

		if pitch, ok := estimatePitch(frame, sampleRate); ok {
			pitches = append(pitches, pitch)
		}
	}

	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	return aggregate(frames, pitches, cfg.NumCepstral), nil
}

// analyzeFrame computes the per-window measures. Spectral measures use
// the windowed samples; time-domain measures use the raw frame.
func analyzeFrame(windowed, raw []float64, numCepstral int) FrameFeatures {
	mag := magnitudeSpectrum(windowed)
	energy := frameEnergy(raw)

	return FrameFeatures{
		Cepstral:         cepstralCoefficients(mag, numCepstral),
		SpectralCentroid: spectralCentroid(mag),
		SpectralFlatness: spectralFlatness(mag),
		SpectralRolloff:  spectralRolloff(mag),
		ZeroCrossingRate: zeroCrossingRate(raw),
		RMSEnergy:        math.Sqrt(energy),
		Energy:           energy,
	}
}

// frameValid rejects frames with empty coefficients or non-finite
// scalar measures.
func frameValid(ff FrameFeatures) bool {
	if len(ff.Cepstral) == 0 {
		return false
	}
	for _, c := range ff.Cepstral {
		if !finite(c) {
			return false
		}
	}
	scalars := []float64{
		ff.SpectralCentroid, ff.SpectralFlatness, ff.SpectralRolloff,
		ff.ZeroCrossingRate, ff.RMSEnergy, ff.Energy,
	}
	for _, s := range scalars {
		if !finite(s) {
			return false
		}
	}
	return true
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// aggregate reduces per-frame measures to one profile: mean and
// population variance of every measure, pitch statistics over valid
// estimates only.
func aggregate(frames []FrameFeatures, pitches []float64, numCepstral int) *AggregatedFeatures {
	agg := &AggregatedFeatures{
		CepstralMean:     make([]float64, numCepstral),
		CepstralVariance: make([]float64, numCepstral),
		FrameCount:       len(frames),
	}

	n := float64(len(frames))

	for _, f := range frames {
		for i, c := range f.Cepstral {
			agg.CepstralMean[i] += c
		}
		agg.CentroidMean += f.SpectralCentroid
		agg.FlatnessMean += f.SpectralFlatness
		agg.RolloffMean += f.SpectralRolloff
		agg.ZCRMean += f.ZeroCrossingRate
		agg.RMSMean += f.RMSEnergy
		agg.EnergyMean += f.Energy
	}
	for i := range agg.CepstralMean {
		agg.CepstralMean[i] /= n
	}
	agg.CentroidMean /= n
	agg.FlatnessMean /= n
	agg.RolloffMean /= n
	agg.ZCRMean /= n
	agg.RMSMean /= n
	agg.EnergyMean /= n

	for _, f := range frames {
		for i, c := range f.Cepstral {
			d := c - agg.CepstralMean[i]
			agg.CepstralVariance[i] += d * d
		}
		agg.CentroidVariance += sq(f.SpectralCentroid - agg.CentroidMean)
		agg.FlatnessVariance += sq(f.SpectralFlatness - agg.FlatnessMean)
		agg.RolloffVariance += sq(f.SpectralRolloff - agg.RolloffMean)
		agg.ZCRVariance += sq(f.ZeroCrossingRate - agg.ZCRMean)
		agg.RMSVariance += sq(f.RMSEnergy - agg.RMSMean)
		agg.EnergyVariance += sq(f.Energy - agg.EnergyMean)
	}
	for i := range agg.CepstralVariance {
		agg.CepstralVariance[i] /= n
	}
	agg.CentroidVariance /= n
	agg.FlatnessVariance /= n
	agg.RolloffVariance /= n
	agg.ZCRVariance /= n
	agg.RMSVariance /= n
	agg.EnergyVariance /= n

	if len(pitches) > 0 {
		pn := float64(len(pitches))
		minP, maxP := pitches[0], pitches[0]
		for _, p := range pitches {
			agg.PitchMean += p
			if p < minP {
				minP = p
			}
			if p > maxP {
				maxP = p
			}
		}
		agg.PitchMean /= pn
		for _, p := range pitches {
			agg.PitchVariance += sq(p - agg.PitchMean)
		}
		agg.PitchVariance /= pn
		agg.PitchRange = maxP - minP
	}

	return agg
}

func sq(x float64) float64 { return x * x }

// AverageTemplate builds the enrollment reference template: the
// element-wise mean of the aggregated features across all enrollment
// samples.
func AverageTemplate(samples []*AggregatedFeatures) (*AggregatedFeatures, error) {
	if len(samples) == 0 {
		return nil, ErrNoTemplates
	}

	numCepstral := len(samples[0].CepstralMean)
	tpl := &AggregatedFeatures{
		CepstralMean:     make([]float64, numCepstral),
		CepstralVariance: make([]float64, numCepstral),
	}

	n := float64(len(samples))
	for _, s := range samples {
		for i := 0; i < numCepstral && i < len(s.CepstralMean); i++ {
			tpl.CepstralMean[i] += s.CepstralMean[i]
		}
		for i := 0; i < numCepstral && i < len(s.CepstralVariance); i++ {
			tpl.CepstralVariance[i] += s.CepstralVariance[i]
		}
		tpl.CentroidMean += s.CentroidMean
		tpl.CentroidVariance += s.CentroidVariance
		tpl.FlatnessMean += s.FlatnessMean
		tpl.FlatnessVariance += s.FlatnessVariance
		tpl.RolloffMean += s.RolloffMean
		tpl.RolloffVariance += s.RolloffVariance
		tpl.ZCRMean += s.ZCRMean
		tpl.ZCRVariance += s.ZCRVariance
		tpl.RMSMean += s.RMSMean
		tpl.RMSVariance += s.RMSVariance
		tpl.EnergyMean += s.EnergyMean
		tpl.EnergyVariance += s.EnergyVariance
		tpl.PitchMean += s.PitchMean
		tpl.PitchVariance += s.PitchVariance
		tpl.PitchRange += s.PitchRange
		tpl.FrameCount += s.FrameCount
	}

	for i := range tpl.CepstralMean {
		tpl.CepstralMean[i] /= n
		tpl.CepstralVariance[i] /= n
	}
	tpl.CentroidMean /= n
	tpl.CentroidVariance /= n
	tpl.FlatnessMean /= n
	tpl.FlatnessVariance /= n
	tpl.RolloffMean /= n
	tpl.RolloffVariance /= n
	tpl.ZCRMean /= n
	tpl.ZCRVariance /= n
	tpl.RMSMean /= n
	tpl.RMSVariance /= n
	tpl.EnergyMean /= n
	tpl.EnergyVariance /= n
	tpl.PitchMean /= n
	tpl.PitchVariance /= n
	tpl.PitchRange /= n
	tpl.FrameCount = int(float64(tpl.FrameCount) / n)

	return tpl, nil
}
