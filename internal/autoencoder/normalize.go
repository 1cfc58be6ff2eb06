package autoencoder

// Params holds per-feature min-max scaling statistics. They are fitted
// once on the training corpus and frozen: verification always reuses the
// stored values and never recomputes them.
type Params struct {
	Min []float64 `json:"min"`
	Max []float64 `json:"max"`
}

// Fit computes per-feature minima and maxima over the corpus. All
// samples must share the first sample's dimensionality; shorter samples
// contribute only the dimensions they have.
func Fit(corpus [][]float64) (*Params, error) {
	if len(corpus) == 0 || len(corpus[0]) == 0 {
		return nil, ErrEmptyCorpus
	}

	dim := len(corpus[0])
	p := &Params{
		Min: make([]float64, dim),
		Max: make([]float64, dim),
	}
	copy(p.Min, corpus[0])
	copy(p.Max, corpus[0])

	for _, sample := range corpus[1:] {
		for i := 0; i < dim && i < len(sample); i++ {
			if sample[i] < p.Min[i] {
				p.Min[i] = sample[i]
			}
			if sample[i] > p.Max[i] {
				p.Max[i] = sample[i]
			}
		}
	}
	return p, nil
}

// Dim returns the fitted feature dimensionality.
func (p *Params) Dim() int {
	return len(p.Min)
}

// Apply scales a sample into [0,1] per feature. Dimensions beyond the
// fitted length are dropped; missing dimensions are zero-filled. A
// feature with zero range maps to 0.
func (p *Params) Apply(x []float64) []float64 {
	out := make([]float64, len(p.Min))
	for i := range out {
		if i >= len(x) {
			break
		}
		span := p.Max[i] - p.Min[i]
		if span == 0 {
			continue
		}
		out[i] = (x[i] - p.Min[i]) / span
	}
	return out
}

// ApplyAll normalizes every sample in the corpus.
func (p *Params) ApplyAll(corpus [][]float64) [][]float64 {
	out := make([][]float64, len(corpus))
	for i, sample := range corpus {
		out[i] = p.Apply(sample)
	}
	return out
}
