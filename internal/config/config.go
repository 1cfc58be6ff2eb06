// Package config handles configuration loading, validation, and
// hot-reloading for cadenced.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete pipeline configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	Storage   StorageConfig   `toml:"storage" json:"storage" yaml:"storage"`
	Security  SecurityConfig  `toml:"security" json:"security" yaml:"security"`
	Keystroke KeystrokeConfig `toml:"keystroke" json:"keystroke" yaml:"keystroke"`
	Voice     VoiceConfig     `toml:"voice" json:"voice" yaml:"voice"`
	Training  TrainingConfig  `toml:"training" json:"training" yaml:"training"`
	Logging   LoggingConfig   `toml:"logging" json:"logging" yaml:"logging"`
	Metrics   MetricsConfig   `toml:"metrics" json:"metrics" yaml:"metrics"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	// Type is the storage backend type: "sqlite" or "memory".
	Type string `toml:"type" json:"type" yaml:"type"`
	// DatabasePath is the SQLite database location.
	DatabasePath string `toml:"database_path" json:"database_path" yaml:"database_path"`
}

// SecurityConfig holds secret material configuration.
type SecurityConfig struct {
	// SecretPath is where the installation master secret lives.
	SecretPath string `toml:"secret_path" json:"secret_path" yaml:"secret_path"`
}

// KeystrokeConfig tunes keystroke feature extraction and enrollment.
type KeystrokeConfig struct {
	// VectorLength is the per-series feature length L; the assembled
	// vector has 3L+1 entries.
	VectorLength int `toml:"vector_length" json:"vector_length" yaml:"vector_length"`
	// RequiredSamples is the enrollment sample count.
	RequiredSamples int `toml:"required_samples" json:"required_samples" yaml:"required_samples"`
	// ThresholdFloor is the minimum accept threshold.
	ThresholdFloor float64 `toml:"threshold_floor" json:"threshold_floor" yaml:"threshold_floor"`
}

// VoiceConfig tunes voice feature extraction and matching.
type VoiceConfig struct {
	// FrameSize is the analysis window in samples.
	FrameSize int `toml:"frame_size" json:"frame_size" yaml:"frame_size"`
	// HopSize is the window advance in samples.
	HopSize int `toml:"hop_size" json:"hop_size" yaml:"hop_size"`
	// NumCepstral is the cepstral coefficient count per frame.
	NumCepstral int `toml:"num_cepstral" json:"num_cepstral" yaml:"num_cepstral"`
	// RequiredSamples is the enrollment sample count.
	RequiredSamples int `toml:"required_samples" json:"required_samples" yaml:"required_samples"`
	// SimilarityThreshold is the minimum overall similarity to accept.
	SimilarityThreshold float64 `toml:"similarity_threshold" json:"similarity_threshold" yaml:"similarity_threshold"`
}

// TrainingConfig tunes model training.
type TrainingConfig struct {
	Epochs       int     `toml:"epochs" json:"epochs" yaml:"epochs"`
	LearningRate float64 `toml:"learning_rate" json:"learning_rate" yaml:"learning_rate"`
	// AugmentationFactor is the noisy variants generated per sample.
	AugmentationFactor int `toml:"augmentation_factor" json:"augmentation_factor" yaml:"augmentation_factor"`
	// NoiseLevel bounds the uniform augmentation noise per feature.
	NoiseLevel float64 `toml:"noise_level" json:"noise_level" yaml:"noise_level"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`
	// Format is "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`
	// Output is "stdout", "stderr", or a file path.
	Output string `toml:"output" json:"output" yaml:"output"`
}

// MetricsConfig holds the scrape endpoint configuration.
type MetricsConfig struct {
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`
	// ListenAddr is the scrape endpoint bind address.
	ListenAddr string `toml:"listen_addr" json:"listen_addr" yaml:"listen_addr"`
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() *Config {
	dir := DataDir()
	return &Config{
		Version: Version,
		Storage: StorageConfig{
			Type:         "sqlite",
			DatabasePath: filepath.Join(dir, "profiles.db"),
		},
		Security: SecurityConfig{
			SecretPath: filepath.Join(dir, "secret.key"),
		},
		Keystroke: KeystrokeConfig{
			VectorLength:    11,
			RequiredSamples: 5,
			ThresholdFloor:  0.03,
		},
		Voice: VoiceConfig{
			FrameSize:           1024,
			HopSize:             512,
			NumCepstral:         13,
			RequiredSamples:     3,
			SimilarityThreshold: 0.75,
		},
		Training: TrainingConfig{
			Epochs:             200,
			LearningRate:       0.01,
			AugmentationFactor: 3,
			NoiseLevel:         0.05,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: "127.0.0.1:9321",
		},
	}
}

// DataDir returns the default data directory.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cadenced"
	}
	return filepath.Join(home, ".cadenced")
}

// ConfigPath returns the default configuration file location.
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.toml")
}

// Load reads configuration from path, layered over the defaults. A
// missing file yields the defaults. TOML, YAML, and JSON formats are
// selected by extension.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = ConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration, collecting every problem rather
// than stopping at the first.
func (c *Config) Validate() error {
	var problems []string

	if c.Storage.Type != "sqlite" && c.Storage.Type != "memory" {
		problems = append(problems, fmt.Sprintf("storage.type %q (want sqlite or memory)", c.Storage.Type))
	}
	if c.Storage.Type == "sqlite" && c.Storage.DatabasePath == "" {
		problems = append(problems, "storage.database_path is required for sqlite")
	}
	if c.Keystroke.VectorLength <= 1 {
		problems = append(problems, "keystroke.vector_length must be > 1")
	}
	if c.Keystroke.RequiredSamples < 2 {
		problems = append(problems, "keystroke.required_samples must be >= 2")
	}
	if c.Keystroke.ThresholdFloor <= 0 {
		problems = append(problems, "keystroke.threshold_floor must be > 0")
	}
	if c.Voice.FrameSize <= 0 || c.Voice.HopSize <= 0 {
		problems = append(problems, "voice.frame_size and voice.hop_size must be > 0")
	}
	if c.Voice.HopSize > c.Voice.FrameSize {
		problems = append(problems, "voice.hop_size must not exceed voice.frame_size")
	}
	if c.Voice.NumCepstral <= 0 {
		problems = append(problems, "voice.num_cepstral must be > 0")
	}
	if c.Voice.RequiredSamples < 1 {
		problems = append(problems, "voice.required_samples must be >= 1")
	}
	if c.Voice.SimilarityThreshold <= 0 || c.Voice.SimilarityThreshold > 1 {
		problems = append(problems, "voice.similarity_threshold must be in (0, 1]")
	}
	if c.Training.Epochs <= 0 {
		problems = append(problems, "training.epochs must be > 0")
	}
	if c.Training.LearningRate <= 0 || c.Training.LearningRate >= 1 {
		problems = append(problems, "training.learning_rate must be in (0, 1)")
	}
	if c.Training.AugmentationFactor < 0 {
		problems = append(problems, "training.augmentation_factor must be >= 0")
	}
	if c.Training.NoiseLevel < 0 {
		problems = append(problems, "training.noise_level must be >= 0")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q", c.Logging.Format))
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		problems = append(problems, "metrics.listen_addr is required when metrics are enabled")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

// EncodeTOML renders the configuration as TOML, for config-init.
func (c *Config) EncodeTOML() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteDefault writes the default configuration to path, refusing to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	data, err := DefaultConfig().EncodeTOML()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
