// Package autoencoder implements the small feed-forward network used as
// a one-class anomaly detector over keystroke feature vectors, together
// with the min-max normalizer whose statistics travel with the trained
// model.
//
// The reconstruction error of a sample (mean-squared difference between
// input and output) is the anomaly score: a model trained on one
// person's samples reconstructs that person's rhythm well and anything
// else poorly.
package autoencoder

import (
	"errors"
	"math"
	"math/rand"
)

// Model errors.
var (
	// ErrEmptyCorpus indicates training or fitting on no samples.
	ErrEmptyCorpus = errors.New("autoencoder: empty training corpus")

	// ErrDimensionMismatch indicates an input whose length does not
	// match the model's input layer.
	ErrDimensionMismatch = errors.New("autoencoder: input dimension mismatch")

	// ErrModelCorrupt indicates a non-finite weight or bias was produced
	// during training. A corrupt model must be discarded, never
	// persisted.
	ErrModelCorrupt = errors.New("autoencoder: non-finite weights, model corrupt")
)

// Default layer sizes.
const (
	DefaultHiddenSize     = 16
	DefaultBottleneckSize = 8
)

// biasInitScale bounds the small random bias initialization.
const biasInitScale = 0.01

// Config describes the network architecture.
type Config struct {
	InputSize      int
	HiddenSize     int
	BottleneckSize int
}

func (c Config) withDefaults() Config {
	if c.HiddenSize <= 0 {
		c.HiddenSize = DefaultHiddenSize
	}
	if c.BottleneckSize <= 0 {
		c.BottleneckSize = DefaultBottleneckSize
	}
	return c
}

// Model is a three-stage autoencoder: input -> hidden (ReLU) ->
// bottleneck (ReLU) -> output (linear). All fields are exported so a
// trained model round-trips through the profile store.
type Model struct {
	InputSize      int `json:"input_size"`
	HiddenSize     int `json:"hidden_size"`
	BottleneckSize int `json:"bottleneck_size"`

	// Weights are row-major: W1[j][i] connects input i to hidden j.
	W1 [][]float64 `json:"w1"`
	B1 []float64   `json:"b1"`
	W2 [][]float64 `json:"w2"`
	B2 []float64   `json:"b2"`
	W3 [][]float64 `json:"w3"`
	B3 []float64   `json:"b3"`
}

// New creates a model with Glorot-uniform weights and small random
// biases, drawn from rng. Pass a seeded rng for reproducible tests.
func New(cfg Config, rng *rand.Rand) (*Model, error) {
	cfg = cfg.withDefaults()
	if cfg.InputSize <= 0 {
		return nil, ErrDimensionMismatch
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	m := &Model{
		InputSize:      cfg.InputSize,
		HiddenSize:     cfg.HiddenSize,
		BottleneckSize: cfg.BottleneckSize,
	}
	m.W1, m.B1 = initLayer(rng, cfg.HiddenSize, cfg.InputSize)
	m.W2, m.B2 = initLayer(rng, cfg.BottleneckSize, cfg.HiddenSize)
	m.W3, m.B3 = initLayer(rng, cfg.InputSize, cfg.BottleneckSize)
	return m, nil
}

// initLayer builds a rows x cols weight matrix with Glorot-uniform
// entries in +-sqrt(6/(fanIn+fanOut)) and near-zero random biases.
func initLayer(rng *rand.Rand, rows, cols int) ([][]float64, []float64) {
	limit := math.Sqrt(6.0 / float64(rows+cols))
	w := make([][]float64, rows)
	for j := range w {
		w[j] = make([]float64, cols)
		for i := range w[j] {
			w[j][i] = (2*rng.Float64() - 1) * limit
		}
	}
	b := make([]float64, rows)
	for j := range b {
		b[j] = (2*rng.Float64() - 1) * biasInitScale
	}
	return w, b
}

// Forward runs the deterministic three-stage pass and returns the
// reconstruction of x.
func (m *Model) Forward(x []float64) ([]float64, error) {
	if len(x) != m.InputSize {
		return nil, ErrDimensionMismatch
	}
	hidden := affineReLU(m.W1, m.B1, x)
	bottleneck := affineReLU(m.W2, m.B2, hidden)
	return affine(m.W3, m.B3, bottleneck), nil
}

// ReconstructionError returns the mean-squared error between x and its
// reconstruction.
func (m *Model) ReconstructionError(x []float64) (float64, error) {
	out, err := m.Forward(x)
	if err != nil {
		return 0, err
	}
	return mse(x, out), nil
}

// Finite reports whether every weight and bias is a finite number.
func (m *Model) Finite() bool {
	for _, layer := range [][][]float64{m.W1, m.W2, m.W3} {
		for _, row := range layer {
			for _, w := range row {
				if math.IsNaN(w) || math.IsInf(w, 0) {
					return false
				}
			}
		}
	}
	for _, biases := range [][]float64{m.B1, m.B2, m.B3} {
		for _, b := range biases {
			if math.IsNaN(b) || math.IsInf(b, 0) {
				return false
			}
		}
	}
	return true
}

func affine(w [][]float64, b []float64, x []float64) []float64 {
	out := make([]float64, len(w))
	for j, row := range w {
		sum := b[j]
		for i, wi := range row {
			sum += wi * x[i]
		}
		out[j] = sum
	}
	return out
}

func affineReLU(w [][]float64, b []float64, x []float64) []float64 {
	out := affine(w, b, x)
	for j, v := range out {
		if v < 0 {
			out[j] = 0
		}
	}
	return out
}

func mse(want, got []float64) float64 {
	var sum float64
	for i := range want {
		d := got[i] - want[i]
		sum += d * d
	}
	return sum / float64(len(want))
}
