package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadTOMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
version = 1

[keystroke]
vector_length = 8
required_samples = 7
threshold_floor = 0.05

[voice]
similarity_threshold = 0.8

[logging]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Keystroke.VectorLength)
	assert.Equal(t, 7, cfg.Keystroke.RequiredSamples)
	assert.Equal(t, 0.05, cfg.Keystroke.ThresholdFloor)
	assert.Equal(t, 0.8, cfg.Voice.SimilarityThreshold)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep defaults.
	assert.Equal(t, 1024, cfg.Voice.FrameSize)
	assert.Equal(t, 200, cfg.Training.Epochs)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
training:
  epochs: 150
  learning_rate: 0.02
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 150, cfg.Training.Epochs)
	assert.Equal(t, 0.02, cfg.Training.LearningRate)
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Type = "postgres"
	cfg.Keystroke.VectorLength = 0
	cfg.Voice.SimilarityThreshold = 2
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"storage.type", "vector_length", "similarity_threshold", "logging.level"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestEncodeTOMLRoundTrip(t *testing.T) {
	data, err := DefaultConfig().EncodeTOML()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, data, 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestWriteDefaultRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, WriteDefault(path))

	err := WriteDefault(path)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "already exists"))
}

func TestLoaderHotReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 1\n"), 0600))

	l := NewLoader(path)
	defer l.Close()

	_, err := l.Load()
	require.NoError(t, err)
	require.Equal(t, 200, l.Config().Training.Epochs)

	var reloads atomic.Int32
	l.OnChange(func(*Config) { reloads.Add(1) })
	require.NoError(t, l.Watch())

	body := "version = 1\n\n[training]\nepochs = 99\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if reloads.Load() > 0 && l.Config().Training.Epochs == 99 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("config not reloaded: epochs=%d reloads=%d", l.Config().Training.Epochs, reloads.Load())
}

func TestLoaderKeepsPreviousOnInvalidEdit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 1\n"), 0600))

	l := NewLoader(path)
	defer l.Close()
	_, err := l.Load()
	require.NoError(t, err)
	require.NoError(t, l.Watch())

	require.NoError(t, os.WriteFile(path, []byte("[[[broken"), 0600))
	time.Sleep(300 * time.Millisecond)

	assert.Equal(t, 200, l.Config().Training.Epochs, "previous config should survive a broken edit")
}
