// Package verify authenticates a claimed identity against its stored
// biometric profile. Verification is read-only and total: apart from
// ErrNotEnrolled and programmer errors, every failure resolves to a
// not-authenticated Result carrying a reason.
package verify

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cadenced/internal/keystroke"
	"cadenced/internal/metrics"
	"cadenced/internal/profile"
	"cadenced/internal/store"
	"cadenced/internal/voice"
)

// Verification errors.
var (
	// ErrNotEnrolled indicates no usable profile exists for the
	// identity. Integrity failures collapse into this error so a caller
	// cannot distinguish a tampered profile from an absent one.
	ErrNotEnrolled = errors.New("verify: identity not enrolled")

	// ErrBadInput indicates a structurally invalid verification sample.
	ErrBadInput = errors.New("verify: invalid input")
)

// DefaultVoiceThreshold is the minimum overall similarity accepted when
// the caller does not supply a threshold.
const DefaultVoiceThreshold = 0.75

// Result is the outcome of one verification attempt.
type Result struct {
	// Authenticated reports whether the sample matched the profile.
	Authenticated bool
	// Confidence is the match confidence in [0, 1].
	Confidence float64
	// Score is the raw decision measure: reconstruction error for
	// keystroke, overall similarity for voice.
	Score float64
	// Threshold is the boundary the score was compared against.
	Threshold float64
	// Reason explains a rejection that was not a biometric mismatch,
	// such as a storage failure. Empty on clean decisions.
	Reason string
}

// Engine verifies samples against persisted profiles. It never mutates
// the store.
type Engine struct {
	store *store.IntegrityStore
	log   *slog.Logger
	met   *metrics.Metrics
}

// NewEngine creates a verification engine. logger and met may be nil.
func NewEngine(st *store.IntegrityStore, logger *slog.Logger, met *metrics.Metrics) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store: st,
		log:   logger.With("component", "verify"),
		met:   met,
	}
}

// VerifyKeystroke scores a raw keystroke feature vector against the
// stored profile: normalize with the frozen parameters, reconstruct,
// and accept when the reconstruction error is at or below the stored
// threshold.
func (e *Engine) VerifyKeystroke(identity, context string, raw []float64) (Result, error) {
	start := time.Now()
	if identity == "" || context == "" || len(raw) == 0 {
		return Result{}, fmt.Errorf("%w: empty identity, context, or vector", ErrBadInput)
	}

	prof, res, err := e.loadKeystrokeProfile(identity, context)
	if prof == nil {
		e.observeKeystroke(res, err, start)
		return res, err
	}

	normalized := prof.Norm.Apply(raw)
	recErr, ferr := prof.Model.ReconstructionError(normalized)
	if ferr != nil {
		return Result{}, ferr
	}

	res = Result{
		Authenticated: recErr <= prof.Threshold,
		Confidence:    keystrokeConfidence(recErr, prof),
		Score:         recErr,
		Threshold:     prof.Threshold,
	}
	e.observeKeystroke(res, nil, start)
	e.log.Debug("keystroke verification",
		"identity", identity, "context", context,
		"error", recErr, "threshold", prof.Threshold,
		"authenticated", res.Authenticated)
	return res, nil
}

// VerifyVoice scores an aggregated voice sample against the stored
// template. threshold <= 0 selects DefaultVoiceThreshold.
func (e *Engine) VerifyVoice(identity, context string, sample *voice.AggregatedFeatures, threshold float64) (Result, error) {
	start := time.Now()
	if identity == "" || context == "" || sample == nil {
		return Result{}, fmt.Errorf("%w: empty identity, context, or sample", ErrBadInput)
	}
	if threshold <= 0 {
		threshold = DefaultVoiceThreshold
	}

	prof, res, err := e.loadVoiceProfile(identity, context)
	if prof == nil {
		e.observeVoice(res, err, start)
		return res, err
	}

	sim := voice.Compare(prof.Template, sample)
	res = Result{
		Authenticated: sim.Overall >= threshold,
		Confidence:    sim.Confidence,
		Score:         sim.Overall,
		Threshold:     threshold,
	}
	e.observeVoice(res, nil, start)
	e.log.Debug("voice verification",
		"identity", identity, "context", context,
		"similarity", sim.Overall, "threshold", threshold,
		"authenticated", res.Authenticated)
	return res, nil
}

// loadKeystrokeProfile resolves the stored profile. A nil profile means
// the attempt is already decided: either err is ErrNotEnrolled, or the
// Result rejects with a reason.
func (e *Engine) loadKeystrokeProfile(identity, context string) (*profile.Keystroke, Result, error) {
	key := store.Key{Context: context, Identity: identity, Kind: store.KindKeystrokeProfile}
	payload, err := e.store.Load(key)
	if err != nil {
		if errors.Is(err, store.ErrIntegrity) {
			e.met.ObserveIntegrityFailure()
			e.log.Warn("keystroke profile failed integrity check",
				"identity", identity, "context", context)
			return nil, Result{}, ErrNotEnrolled
		}
		return nil, Result{Reason: fmt.Sprintf("storage failure: %v", err)}, nil
	}
	if payload == nil {
		return nil, Result{}, ErrNotEnrolled
	}

	prof, derr := profile.DecodeKeystroke(payload)
	if derr != nil {
		return nil, Result{Reason: fmt.Sprintf("undecodable profile: %v", derr)}, nil
	}
	if prof.Model == nil || prof.Norm == nil || !prof.Model.Finite() {
		return nil, Result{Reason: "profile model unusable"}, nil
	}
	return prof, Result{}, nil
}

func (e *Engine) loadVoiceProfile(identity, context string) (*profile.Voice, Result, error) {
	key := store.Key{Context: context, Identity: identity, Kind: store.KindVoiceProfile}
	payload, err := e.store.Load(key)
	if err != nil {
		if errors.Is(err, store.ErrIntegrity) {
			e.met.ObserveIntegrityFailure()
			e.log.Warn("voice profile failed integrity check",
				"identity", identity, "context", context)
			return nil, Result{}, ErrNotEnrolled
		}
		return nil, Result{Reason: fmt.Sprintf("storage failure: %v", err)}, nil
	}
	if payload == nil {
		return nil, Result{}, ErrNotEnrolled
	}

	prof, derr := profile.DecodeVoice(payload)
	if derr != nil {
		return nil, Result{Reason: fmt.Sprintf("undecodable profile: %v", derr)}, nil
	}
	if prof.Template == nil {
		return nil, Result{Reason: "profile template unusable"}, nil
	}
	return prof, Result{}, nil
}

// keystrokeConfidence scales the reconstruction error against twice the
// worst training error: a perfect reconstruction scores 1, an error at
// double the training maximum scores 0. Falls back to the threshold
// when training stats are unavailable.
func keystrokeConfidence(recErr float64, prof *profile.Keystroke) float64 {
	ref := prof.Threshold
	if prof.Stats != nil && prof.Stats.MaxError > 0 {
		ref = prof.Stats.MaxError
	}
	if ref <= 0 {
		return 0
	}
	c := 1 - recErr/(2*ref)
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func (e *Engine) observeKeystroke(res Result, err error, start time.Time) {
	e.met.ObserveVerification(metrics.ModalityKeystroke, outcome(res, err), time.Since(start))
}

func (e *Engine) observeVoice(res Result, err error, start time.Time) {
	e.met.ObserveVerification(metrics.ModalityVoice, outcome(res, err), time.Since(start))
}

func outcome(res Result, err error) string {
	switch {
	case err != nil, res.Reason != "":
		return metrics.OutcomeError
	case res.Authenticated:
		return metrics.OutcomeAccepted
	default:
		return metrics.OutcomeRejected
	}
}

// ExtractAndVerifyKeystroke is the convenience path from raw events to
// a decision, using the profile's expected vector length.
func (e *Engine) ExtractAndVerifyKeystroke(identity, context string, events []keystroke.Event, length int) (Result, error) {
	fv, err := keystroke.Extract(keystroke.FilterBiometric(events), length)
	if err != nil {
		return Result{}, err
	}
	return e.VerifyKeystroke(identity, context, fv.Vector)
}
