package autoencoder

import (
	"math"
	"math/rand"
	"sort"
)

// Default training parameters.
const (
	DefaultEpochs       = 200
	DefaultLearningRate = 0.01
)

// thresholdPercentile is the fraction of training samples whose
// reconstruction error falls at or below the selected threshold.
const thresholdPercentile = 0.95

// TrainingStats records the per-epoch average loss and the error
// statistics needed for threshold selection and confidence scaling.
type TrainingStats struct {
	EpochLosses []float64 `json:"epoch_losses"`
	FinalLoss   float64   `json:"final_loss"`
	MeanError   float64   `json:"mean_error"`
	MaxError    float64   `json:"max_error"`
}

// Train minimizes the mean-squared reconstruction error over the corpus
// with stochastic gradient descent, full backpropagation through all
// three layers, shuffling sample order each epoch. Non-finite weights
// abort with ErrModelCorrupt; the model must then be discarded and
// training retried from fresh weights.
func (m *Model) Train(corpus [][]float64, epochs int, learningRate float64, rng *rand.Rand) (*TrainingStats, error) {
	if len(corpus) == 0 {
		return nil, ErrEmptyCorpus
	}
	for _, sample := range corpus {
		if len(sample) != m.InputSize {
			return nil, ErrDimensionMismatch
		}
	}
	if epochs <= 0 {
		epochs = DefaultEpochs
	}
	if learningRate <= 0 {
		learningRate = DefaultLearningRate
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	stats := &TrainingStats{EpochLosses: make([]float64, 0, epochs)}
	order := make([]int, len(corpus))
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})

		var epochLoss float64
		for _, idx := range order {
			loss := m.step(corpus[idx], learningRate)
			epochLoss += loss
		}
		epochLoss /= float64(len(corpus))
		stats.EpochLosses = append(stats.EpochLosses, epochLoss)

		if !m.Finite() {
			return nil, ErrModelCorrupt
		}
	}

	stats.FinalLoss = stats.EpochLosses[len(stats.EpochLosses)-1]
	return stats, nil
}

// step runs one forward/backward pass for a single sample and applies
// the gradient update in place. Returns the sample's pre-update loss.
func (m *Model) step(x []float64, lr float64) float64 {
	// Forward pass, retaining activations for backprop.
	hidden := affineReLU(m.W1, m.B1, x)
	bottleneck := affineReLU(m.W2, m.B2, hidden)
	out := affine(m.W3, m.B3, bottleneck)

	n := float64(m.InputSize)
	loss := mse(x, out)

	// Output layer is linear: dL/dout_k = 2(out_k - x_k)/n.
	deltaOut := make([]float64, m.InputSize)
	for k := range deltaOut {
		deltaOut[k] = 2 * (out[k] - x[k]) / n
	}

	// Backpropagate into the bottleneck through W3.
	deltaBottleneck := backpropDelta(m.W3, deltaOut, bottleneck)
	// And into the hidden layer through W2.
	deltaHidden := backpropDelta(m.W2, deltaBottleneck, hidden)

	// Gradient updates, output layer first so the deltas above were
	// computed against the pre-update weights.
	updateLayer(m.W3, m.B3, deltaOut, bottleneck, lr)
	updateLayer(m.W2, m.B2, deltaBottleneck, hidden, lr)
	updateLayer(m.W1, m.B1, deltaHidden, x, lr)

	return loss
}

// backpropDelta propagates the downstream delta through weights w into
// a ReLU layer whose post-activation values are activation.
func backpropDelta(w [][]float64, downstream, activation []float64) []float64 {
	delta := make([]float64, len(activation))
	for j := range delta {
		if activation[j] <= 0 {
			continue // ReLU gradient is zero for inactive units
		}
		var sum float64
		for k := range downstream {
			sum += w[k][j] * downstream[k]
		}
		delta[j] = sum
	}
	return delta
}

// updateLayer applies w -= lr * delta ⊗ input, b -= lr * delta.
func updateLayer(w [][]float64, b []float64, delta, input []float64, lr float64) {
	for j := range w {
		for i := range w[j] {
			w[j][i] -= lr * delta[j] * input[i]
		}
		b[j] -= lr * delta[j]
	}
}

// SelectThreshold computes the accept/reject boundary from the original
// (non-augmented) training samples: the 95th-percentile reconstruction
// error, floored at the configured minimum. It also fills the stats'
// mean and max error, which the verifier uses for confidence scaling.
func (m *Model) SelectThreshold(originals [][]float64, floor float64, stats *TrainingStats) (float64, error) {
	if len(originals) == 0 {
		return 0, ErrEmptyCorpus
	}

	errs := make([]float64, 0, len(originals))
	var sum, maxErr float64
	for _, sample := range originals {
		e, err := m.ReconstructionError(sample)
		if err != nil {
			return 0, err
		}
		errs = append(errs, e)
		sum += e
		if e > maxErr {
			maxErr = e
		}
	}
	sort.Float64s(errs)

	idx := int(math.Ceil(thresholdPercentile*float64(len(errs)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(errs) {
		idx = len(errs) - 1
	}

	threshold := errs[idx]
	if threshold < floor {
		threshold = floor
	}

	if stats != nil {
		stats.MeanError = sum / float64(len(errs))
		stats.MaxError = maxErr
	}
	return threshold, nil
}
