package enroll

import (
	"errors"
	"math/rand"
	"testing"

	"cadenced/internal/keystroke"
	"cadenced/internal/profile"
	"cadenced/internal/store"
	"cadenced/internal/voice"
)

func testStore(t *testing.T) *store.IntegrityStore {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}
	s, err := store.NewIntegrityStore(store.NewMemory(), key)
	if err != nil {
		t.Fatalf("NewIntegrityStore failed: %v", err)
	}
	return s
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.VectorLength = 3 // 10-dim vectors keep training fast
	cfg.Epochs = 60
	cfg.LearningRate = 0.05
	cfg.Seed = 42
	return cfg
}

// sampleVector builds one plausible raw feature vector near a base
// rhythm, in the shape the extractor emits for L=3.
func sampleVector(rng *rand.Rand, dim int) []float64 {
	v := make([]float64, dim)
	for i := range v {
		v[i] = 50 + 10*rng.Float64()
	}
	return v
}

func voiceSample(seed float64) *voice.AggregatedFeatures {
	return &voice.AggregatedFeatures{
		CepstralMean:     []float64{1 + seed, 2, 3},
		CepstralVariance: []float64{0.1, 0.1, 0.1},
		CentroidMean:     0.3 + seed/100,
		FlatnessMean:     0.2,
		RolloffMean:      0.6,
		ZCRMean:          0.1,
		RMSMean:          0.05,
		EnergyMean:       0.01,
		PitchMean:        120,
		FrameCount:       40,
	}
}

func TestKeystrokeEnrollmentCompletes(t *testing.T) {
	st := testStore(t)
	cfg := testConfig()
	c := NewController(st, cfg, nil, nil)

	rng := rand.New(rand.NewSource(9))
	dim := keystroke.VectorLength(cfg.VectorLength)

	var last Progress
	for i := 0; i < cfg.RequiredKeystroke; i++ {
		p, err := c.AddKeystrokeSample("alice", "login", i, sampleVector(rng, dim))
		if err != nil {
			t.Fatalf("AddKeystrokeSample %d failed: %v", i, err)
		}
		last = p
	}
	if last.State != StateTraining {
		t.Fatalf("state after final sample = %v, want training", last.State)
	}

	if err := c.Wait(); err != nil {
		t.Fatalf("training failed: %v", err)
	}

	p, ok := c.Status("alice", "login", ModalityKeystroke)
	if !ok || p.State != StateComplete {
		t.Fatalf("status = %+v ok=%v, want complete", p, ok)
	}

	// Trained profile persisted, in-progress samples consumed.
	payload, err := st.Load(store.Key{Context: "login", Identity: "alice", Kind: store.KindKeystrokeProfile})
	if err != nil || payload == nil {
		t.Fatalf("profile not persisted: payload=%v err=%v", payload, err)
	}
	prof, err := profile.DecodeKeystroke(payload)
	if err != nil {
		t.Fatalf("DecodeKeystroke failed: %v", err)
	}
	if prof.Threshold < cfg.ThresholdFloor {
		t.Errorf("threshold %v below floor %v", prof.Threshold, cfg.ThresholdFloor)
	}
	if prof.SampleCount != cfg.RequiredKeystroke {
		t.Errorf("sample count = %d, want %d", prof.SampleCount, cfg.RequiredKeystroke)
	}

	leftovers, err := st.Load(store.Key{Context: "login", Identity: "alice", Kind: store.KindKeystrokeSamples})
	if err != nil {
		t.Fatalf("Load samples failed: %v", err)
	}
	if leftovers != nil {
		t.Error("in-progress samples not deleted after completion")
	}
}

func TestDuplicateIndexIsIdempotent(t *testing.T) {
	cfg := testConfig()
	c := NewController(testStore(t), cfg, nil, nil)
	dim := keystroke.VectorLength(cfg.VectorLength)
	rng := rand.New(rand.NewSource(2))

	p1, err := c.AddKeystrokeSample("alice", "login", 0, sampleVector(rng, dim))
	if err != nil {
		t.Fatalf("first add failed: %v", err)
	}
	p2, err := c.AddKeystrokeSample("alice", "login", 0, sampleVector(rng, dim))
	if err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	if p1.Collected != 1 || p2.Collected != 1 {
		t.Errorf("collected = %d then %d, want 1 and 1", p1.Collected, p2.Collected)
	}
	if p1.SessionID != p2.SessionID {
		t.Error("duplicate index started a new session")
	}
}

func TestSampleValidation(t *testing.T) {
	cfg := testConfig()
	c := NewController(testStore(t), cfg, nil, nil)
	dim := keystroke.VectorLength(cfg.VectorLength)
	rng := rand.New(rand.NewSource(3))

	if _, err := c.AddKeystrokeSample("alice", "login", cfg.RequiredKeystroke, sampleVector(rng, dim)); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
	if _, err := c.AddKeystrokeSample("alice", "login", 0, make([]float64, 3)); !errors.Is(err, ErrBadSample) {
		t.Errorf("expected ErrBadSample for wrong length, got %v", err)
	}
	if _, err := c.AddKeystrokeSample("", "login", 0, sampleVector(rng, dim)); !errors.Is(err, ErrBadSample) {
		t.Errorf("expected ErrBadSample for empty identity, got %v", err)
	}
	if _, err := c.AddVoiceSample("alice", "login", 0, nil); !errors.Is(err, ErrBadSample) {
		t.Errorf("expected ErrBadSample for nil voice sample, got %v", err)
	}
}

func TestSamplesSurviveControllerRestart(t *testing.T) {
	st := testStore(t)
	cfg := testConfig()
	dim := keystroke.VectorLength(cfg.VectorLength)
	rng := rand.New(rand.NewSource(4))

	c1 := NewController(st, cfg, nil, nil)
	for i := 0; i < 2; i++ {
		if _, err := c1.AddKeystrokeSample("alice", "login", i, sampleVector(rng, dim)); err != nil {
			t.Fatalf("AddKeystrokeSample failed: %v", err)
		}
	}

	// A new controller over the same store picks the collection up
	// where it left off.
	c2 := NewController(st, cfg, nil, nil)
	var last Progress
	for i := 2; i < cfg.RequiredKeystroke; i++ {
		p, err := c2.AddKeystrokeSample("alice", "login", i, sampleVector(rng, dim))
		if err != nil {
			t.Fatalf("AddKeystrokeSample failed: %v", err)
		}
		last = p
	}
	if last.State != StateTraining {
		t.Fatalf("state = %v, want training after %d total samples", last.State, cfg.RequiredKeystroke)
	}
	if err := c2.Wait(); err != nil {
		t.Fatalf("training failed: %v", err)
	}
}

func TestVoiceEnrollmentCompletes(t *testing.T) {
	st := testStore(t)
	cfg := testConfig()
	c := NewController(st, cfg, nil, nil)

	var last Progress
	for i := 0; i < cfg.RequiredVoice; i++ {
		p, err := c.AddVoiceSample("alice", "login", i, voiceSample(float64(i)))
		if err != nil {
			t.Fatalf("AddVoiceSample %d failed: %v", i, err)
		}
		last = p
	}
	if last.State != StateComplete {
		t.Fatalf("state = %v, want complete", last.State)
	}

	payload, err := st.Load(store.Key{Context: "login", Identity: "alice", Kind: store.KindVoiceProfile})
	if err != nil || payload == nil {
		t.Fatalf("voice profile not persisted: payload=%v err=%v", payload, err)
	}
	prof, err := profile.DecodeVoice(payload)
	if err != nil {
		t.Fatalf("DecodeVoice failed: %v", err)
	}
	if prof.SampleCount != cfg.RequiredVoice {
		t.Errorf("sample count = %d, want %d", prof.SampleCount, cfg.RequiredVoice)
	}
	// Template is the mean across samples; cepstral[0] inputs were 1,2,3.
	if got := prof.Template.CepstralMean[0]; got != 2 {
		t.Errorf("averaged cepstral[0] = %v, want 2", got)
	}
}

func TestReenrollmentReplacesProfile(t *testing.T) {
	st := testStore(t)
	cfg := testConfig()
	c := NewController(st, cfg, nil, nil)

	for round := 0; round < 2; round++ {
		for i := 0; i < cfg.RequiredVoice; i++ {
			if _, err := c.AddVoiceSample("alice", "login", i, voiceSample(float64(round*10+i))); err != nil {
				t.Fatalf("round %d AddVoiceSample failed: %v", round, err)
			}
		}
	}

	payload, err := st.Load(store.Key{Context: "login", Identity: "alice", Kind: store.KindVoiceProfile})
	if err != nil || payload == nil {
		t.Fatalf("voice profile missing: %v", err)
	}
	prof, _ := profile.DecodeVoice(payload)
	// Second round inputs were 11,12,13 in cepstral[0].
	if got := prof.Template.CepstralMean[0]; got != 12 {
		t.Errorf("cepstral[0] = %v, want 12 from the second enrollment", got)
	}
}

func TestStatusUnknownSession(t *testing.T) {
	c := NewController(testStore(t), testConfig(), nil, nil)
	if _, ok := c.Status("nobody", "login", ModalityKeystroke); ok {
		t.Error("expected no session for unknown identity")
	}
}
