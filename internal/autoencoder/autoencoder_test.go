package autoencoder

import (
	"math"
	"math/rand"
	"testing"
)

// trainingCorpus builds near-identical normalized samples around a base
// pattern, the same shape the enrollment pipeline produces.
func trainingCorpus(rng *rand.Rand, n, dim int) [][]float64 {
	base := make([]float64, dim)
	for i := range base {
		base[i] = rng.Float64()
	}
	corpus := make([][]float64, n)
	for s := range corpus {
		sample := make([]float64, dim)
		for i := range sample {
			sample[i] = base[i] + (2*rng.Float64()-1)*0.02
		}
		corpus[s] = sample
	}
	return corpus
}

func TestFitAndApply(t *testing.T) {
	corpus := [][]float64{
		{1, 10, 5},
		{3, 20, 5},
		{2, 15, 5},
	}
	p, err := Fit(corpus)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if p.Min[0] != 1 || p.Max[0] != 3 {
		t.Errorf("feature 0 range = [%v,%v], want [1,3]", p.Min[0], p.Max[0])
	}

	got := p.Apply([]float64{2, 10, 5})
	if math.Abs(got[0]-0.5) > 1e-12 {
		t.Errorf("normalized[0] = %v, want 0.5", got[0])
	}
	if got[1] != 0 {
		t.Errorf("normalized[1] = %v, want 0", got[1])
	}
	// Zero-range feature maps to 0, not NaN.
	if got[2] != 0 {
		t.Errorf("zero-range feature = %v, want 0", got[2])
	}
}

func TestApplyDimensionHandling(t *testing.T) {
	p := &Params{Min: []float64{0, 0, 0}, Max: []float64{1, 1, 1}}

	// Extra dimensions dropped.
	if got := p.Apply([]float64{0.5, 0.5, 0.5, 99, 99}); len(got) != 3 {
		t.Errorf("extra dims not dropped: len=%d", len(got))
	}
	// Missing dimensions zero-filled.
	got := p.Apply([]float64{0.5})
	if len(got) != 3 || got[1] != 0 || got[2] != 0 {
		t.Errorf("missing dims not zero-filled: %v", got)
	}
}

func TestFitEmpty(t *testing.T) {
	if _, err := Fit(nil); err != ErrEmptyCorpus {
		t.Errorf("expected ErrEmptyCorpus, got %v", err)
	}
}

func TestForwardShapeAndDeterminism(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m, err := New(Config{InputSize: 34}, rng)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	x := make([]float64, 34)
	for i := range x {
		x[i] = rng.Float64()
	}

	out1, err := m.Forward(x)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if len(out1) != 34 {
		t.Fatalf("output length = %d, want 34", len(out1))
	}
	out2, _ := m.Forward(x)
	for i := range out1 {
		if out1[i] != out2[i] {
			t.Fatalf("forward pass not deterministic at %d", i)
		}
	}

	if _, err := m.Forward(make([]float64, 10)); err != ErrDimensionMismatch {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestTrainLossDecreases(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	corpus := trainingCorpus(rng, 20, 34)

	m, err := New(Config{InputSize: 34}, rng)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	stats, err := m.Train(corpus, 200, 0.01, rng)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	if len(stats.EpochLosses) != 200 {
		t.Fatalf("epoch losses = %d, want 200", len(stats.EpochLosses))
	}

	firstTen := meanOf(stats.EpochLosses[:10])
	lastTen := meanOf(stats.EpochLosses[190:])
	if lastTen >= firstTen {
		t.Errorf("loss did not decrease: first ten avg %v, last ten avg %v", firstTen, lastTen)
	}
	if !m.Finite() {
		t.Error("trained model has non-finite weights")
	}
}

func TestTrainDivergenceDetected(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	corpus := trainingCorpus(rng, 10, 34)

	m, err := New(Config{InputSize: 34}, rng)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	// An absurd learning rate must blow the weights up to non-finite
	// values, which training reports rather than persists.
	if _, err := m.Train(corpus, 200, 1e9, rng); err != ErrModelCorrupt {
		t.Errorf("expected ErrModelCorrupt, got %v", err)
	}
}

func TestTrainValidation(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	m, _ := New(Config{InputSize: 4}, rng)

	if _, err := m.Train(nil, 10, 0.01, rng); err != ErrEmptyCorpus {
		t.Errorf("expected ErrEmptyCorpus, got %v", err)
	}
	if _, err := m.Train([][]float64{{1, 2}}, 10, 0.01, rng); err != ErrDimensionMismatch {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSelectThresholdCoversTrainingCorpus(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	corpus := trainingCorpus(rng, 20, 34)

	m, err := New(Config{InputSize: 34}, rng)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	stats, err := m.Train(corpus, 300, 0.05, rng)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	threshold, err := m.SelectThreshold(corpus, 0.03, stats)
	if err != nil {
		t.Fatalf("SelectThreshold failed: %v", err)
	}
	if threshold < 0.03 {
		t.Errorf("threshold %v below floor 0.03", threshold)
	}

	// By construction of the percentile rule at least 95% of training
	// samples score at or below the threshold.
	within := 0
	for _, sample := range corpus {
		e, err := m.ReconstructionError(sample)
		if err != nil {
			t.Fatalf("ReconstructionError failed: %v", err)
		}
		if e <= threshold {
			within++
		}
	}
	if ratio := float64(within) / float64(len(corpus)); ratio < 0.95 {
		t.Errorf("only %v of training corpus within threshold, want >= 0.95", ratio)
	}

	if stats.MaxError <= 0 {
		t.Errorf("max training error not recorded: %v", stats.MaxError)
	}
	if stats.MeanError <= 0 || stats.MeanError > stats.MaxError {
		t.Errorf("mean training error %v inconsistent with max %v", stats.MeanError, stats.MaxError)
	}
}

func TestThresholdFloorApplies(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	corpus := trainingCorpus(rng, 10, 12)

	m, _ := New(Config{InputSize: 12}, rng)
	if _, err := m.Train(corpus, 400, 0.05, rng); err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	// With a huge floor the percentile cannot win.
	threshold, err := m.SelectThreshold(corpus, 10.0, nil)
	if err != nil {
		t.Fatalf("SelectThreshold failed: %v", err)
	}
	if threshold != 10.0 {
		t.Errorf("threshold = %v, want floor 10.0", threshold)
	}
}

func TestGlorotInitBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	m, _ := New(Config{InputSize: 34, HiddenSize: 16, BottleneckSize: 8}, rng)

	limit := math.Sqrt(6.0 / float64(16+34))
	for _, row := range m.W1 {
		for _, w := range row {
			if math.Abs(w) > limit {
				t.Fatalf("W1 weight %v outside +-%v", w, limit)
			}
		}
	}
	for _, b := range m.B1 {
		if math.Abs(b) > biasInitScale {
			t.Fatalf("bias %v outside +-%v", b, biasInitScale)
		}
	}
}

func meanOf(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
