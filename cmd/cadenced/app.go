package main

import (
	"fmt"

	"cadenced/internal/config"
	"cadenced/internal/enroll"
	"cadenced/internal/logging"
	"cadenced/internal/metrics"
	"cadenced/internal/security"
	"cadenced/internal/store"
	"cadenced/internal/verify"
)

// app bundles the wired pipeline for one CLI invocation.
type app struct {
	cfg        *config.Config
	log        *logging.Logger
	store      *store.IntegrityStore
	controller *enroll.Controller
	engine     *verify.Engine
	met        *metrics.Metrics
}

// newApp wires config, logging, secret material, storage, and the
// pipeline components.
func newApp(cfg *config.Config) (*app, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(&logging.Config{
		Level:     level,
		Format:    format,
		Output:    cfg.Logging.Output,
		Component: "cadenced",
	})
	if err != nil {
		return nil, err
	}

	secret, err := security.LoadOrCreateSecret(cfg.Security.SecretPath)
	if err != nil {
		return nil, err
	}
	tagKey, err := security.DeriveKeyWithLabel(secret, "store-integrity", security.RecommendedKeySize)
	if err != nil {
		return nil, err
	}

	var backend store.Backend
	switch cfg.Storage.Type {
	case "memory":
		backend = store.NewMemory()
	default:
		backend, err = store.OpenSQLite(cfg.Storage.DatabasePath)
		if err != nil {
			return nil, err
		}
	}

	st, err := store.NewIntegrityStore(backend, tagKey)
	if err != nil {
		backend.Close()
		return nil, err
	}

	var met *metrics.Metrics
	if cfg.Metrics.Enabled {
		met = metrics.New()
		met.Serve(cfg.Metrics.ListenAddr)
	}

	controller := enroll.NewController(st, enroll.Config{
		RequiredKeystroke:  cfg.Keystroke.RequiredSamples,
		RequiredVoice:      cfg.Voice.RequiredSamples,
		VectorLength:       cfg.Keystroke.VectorLength,
		AugmentationFactor: cfg.Training.AugmentationFactor,
		NoiseLevel:         cfg.Training.NoiseLevel,
		ThresholdFloor:     cfg.Keystroke.ThresholdFloor,
		Epochs:             cfg.Training.Epochs,
		LearningRate:       cfg.Training.LearningRate,
	}, logger.Logger, met)

	return &app{
		cfg:        cfg,
		log:        logger,
		store:      st,
		controller: controller,
		engine:     verify.NewEngine(st, logger.Logger, met),
		met:        met,
	}, nil
}

// Close flushes background work and releases the store.
func (a *app) Close() error {
	if err := a.controller.Wait(); err != nil {
		a.store.Close()
		return fmt.Errorf("pending training: %w", err)
	}
	return a.store.Close()
}
