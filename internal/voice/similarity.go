package voice

import "math"

// Similarity weights: cepstral shape dominates, spectral envelope and
// temporal character refine.
const (
	weightCepstral = 0.5
	weightSpectral = 0.3
	weightTemporal = 0.2
)

// Similarity is the breakdown of a comparison between two aggregated
// voice profiles.
type Similarity struct {
	Cepstral   float64 `json:"cepstral"`
	Spectral   float64 `json:"spectral"`
	Temporal   float64 `json:"temporal"`
	Overall    float64 `json:"overall"`
	Confidence float64 `json:"confidence"`
}

// Compare scores how alike two voice profiles are. Overall is clamped
// to [0,1]; Confidence equals the clamped overall score.
func Compare(a, b *AggregatedFeatures) Similarity {
	s := Similarity{
		Cepstral: cosineSimilarity(a.CepstralMean, b.CepstralMean),
		Spectral: 1 - (math.Abs(a.CentroidMean-b.CentroidMean)+
			math.Abs(a.FlatnessMean-b.FlatnessMean)+
			math.Abs(a.RolloffMean-b.RolloffMean))/3,
		Temporal: 1 - (math.Abs(a.ZCRMean-b.ZCRMean)+
			math.Abs(a.RMSMean-b.RMSMean)+
			math.Abs(a.EnergyMean-b.EnergyMean))/3,
	}

	s.Overall = clamp01(weightCepstral*s.Cepstral + weightSpectral*s.Spectral + weightTemporal*s.Temporal)
	s.Confidence = s.Overall
	return s
}

// cosineSimilarity of two vectors, defined as 0 when either magnitude
// is 0.
func cosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, magA, magB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	for _, v := range a {
		magA += v * v
	}
	for _, v := range b {
		magB += v * v
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
