package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	BrightData BrightDataConfig `yaml:"bright_data"`
	Validation ValidationConfig `yaml:"validation"`
	Sample     SampleConfig     `yaml:"sample"`
	Denoise    DenoiseConfig    `yaml:"denoise"`
	VoiceOnly  VoiceOnlyConfig  `yaml:"voice_only"`
	Output     OutputConfig     `yaml:"output"`
}

// BrightDataConfig holds the scraping job API configuration.
type BrightDataConfig struct {
	APIToken        string        `yaml:"api_token" envconfig:"BRIGHT_DATA_API_TOKEN"`
	DatasetID       string        `yaml:"dataset_id" envconfig:"BRIGHT_DATA_DATASET_ID" default:"gd_lwxmeb2u1cniijd7t4"`
	BaseURL         string        `yaml:"base_url" envconfig:"BRIGHT_DATA_BASE_URL" default:"https://api.brightdata.com/datasets/v3"`
	MaxSnapshotWait time.Duration `yaml:"max_snapshot_wait" envconfig:"MAX_SNAPSHOT_WAIT" default:"10m"`
}

// ValidationConfig holds account existence check configuration.
type ValidationConfig struct {
	Timeout  time.Duration `yaml:"timeout" envconfig:"VALIDATION_TIMEOUT" default:"10s"`
	DelayMin time.Duration `yaml:"delay_min" envconfig:"VALIDATION_DELAY_MIN" default:"1500ms"`
	DelayMax time.Duration `yaml:"delay_max" envconfig:"VALIDATION_DELAY_MAX" default:"3500ms"`
}

// SampleConfig holds voice sample extraction configuration.
type SampleConfig struct {
	MinDuration    int           `yaml:"min_duration" envconfig:"MIN_SAMPLE_DURATION" default:"30"`
	MaxDuration    int           `yaml:"max_duration" envconfig:"MAX_SAMPLE_DURATION" default:"3600"`
	Quality        string        `yaml:"quality" envconfig:"SAMPLE_QUALITY" default:"192"`
	InterItemDelay time.Duration `yaml:"inter_item_delay" envconfig:"SAMPLE_INTER_ITEM_DELAY" default:"2s"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout" envconfig:"SAMPLE_PROBE_TIMEOUT" default:"30s"`
	ListingTimeout time.Duration `yaml:"listing_timeout" envconfig:"SAMPLE_LISTING_TIMEOUT" default:"120s"`
}

// DenoiseConfig holds noise reduction configuration.
type DenoiseConfig struct {
	SampleRate int           `yaml:"sample_rate" envconfig:"DENOISE_SAMPLE_RATE" default:"16000"`
	HighpassHz int           `yaml:"highpass_hz" envconfig:"DENOISE_HIGHPASS_HZ" default:"80"`
	LowpassHz  int           `yaml:"lowpass_hz" envconfig:"DENOISE_LOWPASS_HZ" default:"6000"`
	NoiseDB    float64       `yaml:"noise_db" envconfig:"DENOISE_NOISE_DB" default:"24"`
	FloorDB    float64       `yaml:"floor_db" envconfig:"DENOISE_FLOOR_DB" default:"12"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"DENOISE_TIMEOUT" default:"2m"`
}

// VoiceOnlyConfig holds voice-only isolation configuration.
type VoiceOnlyConfig struct {
	MinConfidence      float64       `yaml:"min_confidence" envconfig:"VOICE_ONLY_MIN_CONFIDENCE" default:"0.6"`
	MinSegmentSeconds  float64       `yaml:"min_segment_seconds" envconfig:"VOICE_ONLY_MIN_SEGMENT_SECONDS" default:"2.0"`
	SilenceThresholdDB int           `yaml:"silence_threshold_db" envconfig:"VOICE_ONLY_SILENCE_THRESHOLD_DB" default:"-35"`
	Timeout            time.Duration `yaml:"timeout" envconfig:"VOICE_ONLY_TIMEOUT" default:"2m"`
}

// OutputConfig holds output layout configuration.
type OutputConfig struct {
	Dir string `yaml:"dir" envconfig:"OUTPUT_DIR" default:"output"`
}

// Load reads configuration from an optional YAML file and the environment.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required values are set and bounds are sane.
func (c *Config) Validate() error {
	if c.BrightData.APIToken == "" {
		return fmt.Errorf("BRIGHT_DATA_API_TOKEN is required")
	}
	if c.Sample.MinDuration <= 0 {
		return fmt.Errorf("sample min_duration must be positive")
	}
	if c.Sample.MaxDuration < c.Sample.MinDuration {
		return fmt.Errorf("sample max_duration (%d) must be >= min_duration (%d)",
			c.Sample.MaxDuration, c.Sample.MinDuration)
	}
	if c.Validation.DelayMax < c.Validation.DelayMin {
		return fmt.Errorf("validation delay_max must be >= delay_min")
	}
	if c.VoiceOnly.MinConfidence < 0 || c.VoiceOnly.MinConfidence > 1 {
		return fmt.Errorf("voice_only min_confidence must be within [0,1]")
	}
	return nil
}

// SamplesDir is where extracted voice samples land.
func (c *OutputConfig) SamplesDir() string {
	return filepath.Join(c.Dir, "voice_samples")
}

// AnalysisDir is where denoised audio and analysis artifacts land.
func (c *OutputConfig) AnalysisDir() string {
	return filepath.Join(c.Dir, "voice_analysis")
}

// RegistryPath is the snapshot registry database file.
func (c *OutputConfig) RegistryPath() string {
	return filepath.Join(c.Dir, "snapshots", "registry.db")
}

// CheckerLogPath is the persistent account check log.
func (c *OutputConfig) CheckerLogPath() string {
	return filepath.Join(c.Dir, "processed_accounts.json")
}
