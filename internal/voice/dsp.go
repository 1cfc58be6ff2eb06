package voice

import "math"

// hammingWindow returns a Hamming window of length n.
func hammingWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// fft computes an in-place iterative radix-2 FFT. The input length must
// be a power of two; callers zero-pad beforehand.
func fft(re, im []float64) {
	n := len(re)
	if n <= 1 {
		return
	}

	// Bit-reversal permutation.
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
	}

	for length := 2; length <= n; length <<= 1 {
		angle := -2 * math.Pi / float64(length)
		wRe, wIm := math.Cos(angle), math.Sin(angle)
		for start := 0; start < n; start += length {
			curRe, curIm := 1.0, 0.0
			half := length / 2
			for k := 0; k < half; k++ {
				evenRe, evenIm := re[start+k], im[start+k]
				oddRe := re[start+k+half]*curRe - im[start+k+half]*curIm
				oddIm := re[start+k+half]*curIm + im[start+k+half]*curRe

				re[start+k], im[start+k] = evenRe+oddRe, evenIm+oddIm
				re[start+k+half], im[start+k+half] = evenRe-oddRe, evenIm-oddIm

				curRe, curIm = curRe*wRe-curIm*wIm, curRe*wIm+curIm*wRe
			}
		}
	}
}

// nextPow2 returns the smallest power of two >= n.
func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// magnitudeSpectrum returns the magnitude of the first half of the FFT
// of the windowed frame (bins 0..N/2-1).
func magnitudeSpectrum(frame []float64) []float64 {
	n := nextPow2(len(frame))
	re := make([]float64, n)
	im := make([]float64, n)
	copy(re, frame)
	fft(re, im)

	half := n / 2
	mag := make([]float64, half)
	for i := 0; i < half; i++ {
		mag[i] = math.Hypot(re[i], im[i])
	}
	return mag
}

// dct2 computes the first k coefficients of the DCT-II of x.
func dct2(x []float64, k int) []float64 {
	n := len(x)
	out := make([]float64, k)
	if n == 0 {
		return out
	}
	for c := 0; c < k; c++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += x[i] * math.Cos(math.Pi*float64(c)*(2*float64(i)+1)/(2*float64(n)))
		}
		out[c] = sum
	}
	return out
}

const logFloor = 1e-10

// cepstralCoefficients computes k cepstral coefficients from a magnitude
// spectrum: log-magnitude followed by DCT-II. The DC term is dropped so
// the coefficients describe spectral shape independent of signal level.
func cepstralCoefficients(mag []float64, k int) []float64 {
	logMag := make([]float64, len(mag))
	for i, m := range mag {
		logMag[i] = math.Log(m + logFloor)
	}
	return dct2(logMag, k+1)[1:]
}

// spectralCentroid returns the magnitude-weighted mean bin as a fraction
// of Nyquist (0..1).
func spectralCentroid(mag []float64) float64 {
	var weighted, total float64
	for i, m := range mag {
		weighted += float64(i) * m
		total += m
	}
	if total == 0 {
		return 0
	}
	return weighted / total / float64(len(mag))
}

// spectralFlatness is the geometric mean over arithmetic mean of the
// power spectrum: 1 for white noise, near 0 for pure tones.
func spectralFlatness(mag []float64) float64 {
	if len(mag) == 0 {
		return 0
	}
	var logSum, sum float64
	for _, m := range mag {
		p := m*m + logFloor
		logSum += math.Log(p)
		sum += p
	}
	arithmetic := sum / float64(len(mag))
	geometric := math.Exp(logSum / float64(len(mag)))
	if arithmetic == 0 {
		return 0
	}
	return geometric / arithmetic
}

// rolloffFraction is the share of total spectral energy below the
// rolloff point.
const rolloffFraction = 0.85

// spectralRolloff returns the bin below which rolloffFraction of the
// spectral energy lies, as a fraction of Nyquist (0..1).
func spectralRolloff(mag []float64) float64 {
	var total float64
	for _, m := range mag {
		total += m * m
	}
	if total == 0 {
		return 0
	}
	target := total * rolloffFraction
	var cum float64
	for i, m := range mag {
		cum += m * m
		if cum >= target {
			return float64(i) / float64(len(mag))
		}
	}
	return 1
}

// zeroCrossingRate is the fraction of adjacent sample pairs that change
// sign.
func zeroCrossingRate(frame []float64) float64 {
	if len(frame) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(frame); i++ {
		if (frame[i-1] >= 0) != (frame[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(frame)-1)
}

// frameEnergy returns the mean squared amplitude (power) of the frame.
func frameEnergy(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		sum += s * s
	}
	return sum / float64(len(frame))
}
