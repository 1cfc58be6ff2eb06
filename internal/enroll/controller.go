package enroll

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"cadenced/internal/autoencoder"
	"cadenced/internal/keystroke"
	"cadenced/internal/metrics"
	"cadenced/internal/profile"
	"cadenced/internal/store"
	"cadenced/internal/voice"
)

type sessionKey struct {
	identity string
	context  string
	modality Modality
}

type session struct {
	id        string
	state     State
	collected int
	lastErr   string
}

// Controller owns enrollment sessions and drives sample collection
// through training to a persisted profile. One session exists per
// (identity, context, modality); the session table is mutex-protected,
// training runs on background goroutines.
type Controller struct {
	store *store.IntegrityStore
	cfg   Config
	log   *slog.Logger
	met   *metrics.Metrics

	mu       sync.Mutex
	sessions map[sessionKey]*session
	group    errgroup.Group
}

// NewController creates a controller over the given profile store.
// logger and met may be nil.
func NewController(st *store.IntegrityStore, cfg Config, logger *slog.Logger, met *metrics.Metrics) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:    st,
		cfg:      cfg.normalized(),
		log:      logger.With("component", "enroll"),
		met:      met,
		sessions: make(map[sessionKey]*session),
	}
}

// Wait blocks until all background training runs started so far have
// finished, returning the first training error if any. Intended for
// shutdown and tests.
func (c *Controller) Wait() error {
	return c.group.Wait()
}

// Status reports the session for (identity, context, modality), or
// ok=false when none exists.
func (c *Controller) Status(identity, context string, modality Modality) (Progress, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.sessions[sessionKey{identity, context, modality}]
	if !ok {
		return Progress{}, false
	}
	return c.progressLocked(sess, modality), true
}

// AddKeystrokeSample records one keystroke feature vector for the
// session, starting it if needed. A repeated index overwrites the
// earlier submission without advancing the count. Reaching the required
// count dispatches training in the background and returns immediately.
func (c *Controller) AddKeystrokeSample(identity, context string, index int, vector []float64) (Progress, error) {
	if identity == "" || context == "" {
		return Progress{}, fmt.Errorf("%w: empty identity or context", ErrBadSample)
	}
	if index < 0 || index >= c.cfg.RequiredKeystroke {
		return Progress{}, fmt.Errorf("%w: index %d, required %d", ErrIndexOutOfRange, index, c.cfg.RequiredKeystroke)
	}
	want := keystroke.VectorLength(c.cfg.VectorLength)
	if len(vector) != want {
		return Progress{}, fmt.Errorf("%w: vector length %d, want %d", ErrBadSample, len(vector), want)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := sessionKey{identity, context, ModalityKeystroke}
	sess, err := c.activeSessionLocked(key)
	if err != nil {
		return Progress{}, err
	}

	samplesKey := store.Key{Context: context, Identity: identity, Kind: store.KindKeystrokeSamples}
	samples, err := c.loadKeystrokeSamplesLocked(samplesKey)
	if err != nil {
		return Progress{}, err
	}
	samples.Samples[strconv.Itoa(index)] = append([]float64(nil), vector...)

	payload, err := profile.EncodeKeystrokeSamples(samples)
	if err != nil {
		return Progress{}, fmt.Errorf("encode samples: %w", err)
	}
	if err := c.store.Persist(samplesKey, payload); err != nil {
		return Progress{}, err
	}

	sess.collected = len(samples.Samples)
	sess.state = StateCollecting

	if sess.collected >= c.cfg.RequiredKeystroke {
		sess.state = StateTraining
		originals := orderedVectors(samples.Samples, c.cfg.RequiredKeystroke)
		c.group.Go(func() error {
			return c.trainKeystroke(identity, context, samplesKey, originals)
		})
	}
	return c.progressLocked(sess, ModalityKeystroke), nil
}

// AddVoiceSample records one aggregated voice sample. Reaching the
// required count averages the template and persists the voice profile
// synchronously; there is no training phase.
func (c *Controller) AddVoiceSample(identity, context string, index int, sample *voice.AggregatedFeatures) (Progress, error) {
	if identity == "" || context == "" {
		return Progress{}, fmt.Errorf("%w: empty identity or context", ErrBadSample)
	}
	if sample == nil {
		return Progress{}, fmt.Errorf("%w: nil voice sample", ErrBadSample)
	}
	if index < 0 || index >= c.cfg.RequiredVoice {
		return Progress{}, fmt.Errorf("%w: index %d, required %d", ErrIndexOutOfRange, index, c.cfg.RequiredVoice)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := sessionKey{identity, context, ModalityVoice}
	sess, err := c.activeSessionLocked(key)
	if err != nil {
		return Progress{}, err
	}

	samplesKey := store.Key{Context: context, Identity: identity, Kind: store.KindVoiceSamples}
	samples, err := c.loadVoiceSamplesLocked(samplesKey)
	if err != nil {
		return Progress{}, err
	}
	samples.Samples[strconv.Itoa(index)] = sample

	payload, err := profile.EncodeVoiceSamples(samples)
	if err != nil {
		return Progress{}, fmt.Errorf("encode samples: %w", err)
	}
	if err := c.store.Persist(samplesKey, payload); err != nil {
		return Progress{}, err
	}

	sess.collected = len(samples.Samples)
	sess.state = StateCollecting

	if sess.collected >= c.cfg.RequiredVoice {
		if err := c.completeVoiceLocked(identity, context, samplesKey, samples); err != nil {
			sess.lastErr = err.Error()
			c.met.ObserveEnrollment(metrics.ModalityVoice, metrics.OutcomeError)
			return c.progressLocked(sess, ModalityVoice), err
		}
		sess.state = StateComplete
		sess.lastErr = ""
		c.met.ObserveEnrollment(metrics.ModalityVoice, metrics.OutcomeAccepted)
		c.met.SessionEnded()
		c.log.Info("voice enrollment complete",
			"identity", identity, "context", context, "samples", sess.collected)
	}
	return c.progressLocked(sess, ModalityVoice), nil
}

// activeSessionLocked returns the session to collect into, creating a
// fresh one when none exists or the previous one finished. A training
// session rejects new samples.
func (c *Controller) activeSessionLocked(key sessionKey) (*session, error) {
	sess, ok := c.sessions[key]
	switch {
	case !ok, sess.state == StateComplete, sess.state == StateFailed:
		sess = &session{id: uuid.NewString(), state: StateCollecting}
		c.sessions[key] = sess
		c.met.SessionStarted()
		c.log.Info("enrollment session started",
			"session", sess.id, "identity", key.identity,
			"context", key.context, "modality", string(key.modality))
	case sess.state == StateTraining:
		return nil, ErrTrainingInProgress
	}
	return sess, nil
}

// loadKeystrokeSamplesLocked returns the persisted in-progress sample
// set, or a fresh one when absent or tampered. A tampered in-progress
// record is discarded rather than surfaced: the samples are replaceable.
func (c *Controller) loadKeystrokeSamplesLocked(key store.Key) (*profile.KeystrokeSamples, error) {
	payload, err := c.store.Load(key)
	if err != nil {
		if errors.Is(err, store.ErrIntegrity) {
			c.met.ObserveIntegrityFailure()
			c.log.Warn("discarding tampered in-progress samples",
				"identity", key.Identity, "context", key.Context)
			return &profile.KeystrokeSamples{Samples: make(map[string][]float64)}, nil
		}
		return nil, err
	}
	if payload == nil {
		return &profile.KeystrokeSamples{Samples: make(map[string][]float64)}, nil
	}
	return profile.DecodeKeystrokeSamples(payload)
}

func (c *Controller) loadVoiceSamplesLocked(key store.Key) (*profile.VoiceSamples, error) {
	payload, err := c.store.Load(key)
	if err != nil {
		if errors.Is(err, store.ErrIntegrity) {
			c.met.ObserveIntegrityFailure()
			c.log.Warn("discarding tampered in-progress samples",
				"identity", key.Identity, "context", key.Context)
			return &profile.VoiceSamples{Samples: make(map[string]*voice.AggregatedFeatures)}, nil
		}
		return nil, err
	}
	if payload == nil {
		return &profile.VoiceSamples{Samples: make(map[string]*voice.AggregatedFeatures)}, nil
	}
	return profile.DecodeVoiceSamples(payload)
}

// trainKeystroke runs the full training pipeline for one session and
// persists the resulting profile. On failure the session drops back to
// Collecting with nothing persisted, so the caller may retry.
func (c *Controller) trainKeystroke(identity, context string, samplesKey store.Key, originals [][]float64) error {
	start := time.Now()
	prof, err := c.buildKeystrokeProfile(originals)
	if err == nil {
		err = c.persistKeystrokeProfile(identity, context, samplesKey, prof)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	sess := c.sessions[sessionKey{identity, context, ModalityKeystroke}]

	if err != nil {
		if sess != nil {
			sess.state = StateCollecting
			sess.lastErr = err.Error()
		}
		c.met.ObserveEnrollment(metrics.ModalityKeystroke, metrics.OutcomeError)
		c.log.Error("keystroke training failed",
			"identity", identity, "context", context, "error", err)
		return fmt.Errorf("train keystroke profile for %q: %w", identity, err)
	}

	if sess != nil {
		sess.state = StateComplete
		sess.lastErr = ""
	}
	c.met.ObserveTraining(time.Since(start))
	c.met.ObserveEnrollment(metrics.ModalityKeystroke, metrics.OutcomeAccepted)
	c.met.SessionEnded()
	c.log.Info("keystroke enrollment complete",
		"identity", identity, "context", context,
		"threshold", prof.Threshold, "elapsed", time.Since(start))
	return nil
}

// buildKeystrokeProfile augments the originals, fits normalization on
// the augmented corpus, trains the model, and selects the threshold
// from the original samples only.
func (c *Controller) buildKeystrokeProfile(originals [][]float64) (*profile.Keystroke, error) {
	rng := c.newRand()

	augmented := augment(originals, c.cfg.AugmentationFactor, c.cfg.NoiseLevel, rng)
	params, err := autoencoder.Fit(augmented)
	if err != nil {
		return nil, err
	}

	model, err := autoencoder.New(autoencoder.Config{
		InputSize: keystroke.VectorLength(c.cfg.VectorLength),
	}, rng)
	if err != nil {
		return nil, err
	}

	stats, err := model.Train(params.ApplyAll(augmented), c.cfg.Epochs, c.cfg.LearningRate, rng)
	if err != nil {
		return nil, err
	}

	threshold, err := model.SelectThreshold(params.ApplyAll(originals), c.cfg.ThresholdFloor, stats)
	if err != nil {
		return nil, err
	}

	return &profile.Keystroke{
		Model:       model,
		Norm:        params,
		Threshold:   threshold,
		Stats:       stats,
		SampleCount: len(originals),
		CreatedAtNs: time.Now().UnixNano(),
	}, nil
}

// persistKeystrokeProfile replaces any previous profile wholesale and
// clears the consumed in-progress samples.
func (c *Controller) persistKeystrokeProfile(identity, context string, samplesKey store.Key, prof *profile.Keystroke) error {
	payload, err := profile.EncodeKeystroke(prof)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	profileKey := store.Key{Context: context, Identity: identity, Kind: store.KindKeystrokeProfile}
	if err := c.store.Persist(profileKey, payload); err != nil {
		return err
	}
	return c.store.Delete(samplesKey)
}

// completeVoiceLocked averages the collected samples into the reference
// template and persists the voice profile.
func (c *Controller) completeVoiceLocked(identity, context string, samplesKey store.Key, samples *profile.VoiceSamples) error {
	ordered := make([]*voice.AggregatedFeatures, 0, len(samples.Samples))
	for i := 0; i < c.cfg.RequiredVoice; i++ {
		s, ok := samples.Samples[strconv.Itoa(i)]
		if !ok {
			return ErrInsufficientSamples
		}
		ordered = append(ordered, s)
	}

	template, err := voice.AverageTemplate(ordered)
	if err != nil {
		return err
	}

	payload, err := profile.EncodeVoice(&profile.Voice{
		Template:    template,
		SampleCount: len(ordered),
		CreatedAtNs: time.Now().UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	profileKey := store.Key{Context: context, Identity: identity, Kind: store.KindVoiceProfile}
	if err := c.store.Persist(profileKey, payload); err != nil {
		return err
	}
	return c.store.Delete(samplesKey)
}

func (c *Controller) progressLocked(sess *session, modality Modality) Progress {
	required := c.cfg.RequiredKeystroke
	if modality == ModalityVoice {
		required = c.cfg.RequiredVoice
	}
	return Progress{
		SessionID: sess.id,
		State:     sess.state,
		Collected: sess.collected,
		Required:  required,
		LastError: sess.lastErr,
	}
}

func (c *Controller) newRand() *rand.Rand {
	seed := c.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// orderedVectors lists samples by numeric index. Missing indexes cannot
// occur here: the count only reaches required when every index is set.
func orderedVectors(samples map[string][]float64, required int) [][]float64 {
	out := make([][]float64, 0, required)
	for i := 0; i < required; i++ {
		if v, ok := samples[strconv.Itoa(i)]; ok {
			out = append(out, v)
		}
	}
	return out
}

// augment returns the originals plus factor noisy variants of each,
// with uniform per-feature noise in [-noise, +noise] clamped at zero.
// Timing features are non-negative by construction, so the clamp keeps
// variants inside the feasible space.
func augment(originals [][]float64, factor int, noise float64, rng *rand.Rand) [][]float64 {
	out := make([][]float64, 0, len(originals)*(factor+1))
	for _, o := range originals {
		out = append(out, append([]float64(nil), o...))
		for v := 0; v < factor; v++ {
			variant := make([]float64, len(o))
			for i, x := range o {
				x += (2*rng.Float64() - 1) * noise
				if x < 0 {
					x = 0
				}
				variant[i] = x
			}
			out = append(out, variant)
		}
	}
	return out
}
