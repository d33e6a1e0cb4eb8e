// Package config provides configuration management for wellspring.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultWorkerPort is the port the HTTP worker listens on.
	DefaultWorkerPort = 37820

	// DefaultSampleIntervalSeconds is the visual sampling cadence during an
	// active session.
	DefaultSampleIntervalSeconds = 5

	// DefaultAnalysisTimeoutSeconds bounds each analysis service call.
	DefaultAnalysisTimeoutSeconds = 10

	dataDirName  = ".wellspring"
	dbFileName   = "wellspring.db"
	settingsFile = "settings.yaml"
)

// Config holds all runtime settings.
type Config struct {
	WorkerPort int `yaml:"worker_port"`
	MaxConns   int `yaml:"max_conns"`

	SampleIntervalSeconds int `yaml:"sample_interval_seconds"`

	// Analysis service endpoints. An empty URL disables that call and the
	// scoring pipeline degrades accordingly.
	FrameAnalysisURL  string `yaml:"frame_analysis_url"`
	AudioAnalysisURL  string `yaml:"audio_analysis_url"`
	VisualAnalysisURL string `yaml:"visual_analysis_url"`
	TextAnalysisURL   string `yaml:"text_analysis_url"`
	FusionURL         string `yaml:"fusion_url"`

	AnalysisTimeoutSeconds int `yaml:"analysis_timeout_seconds"`

	// Media gateway endpoint for stream acquisition and frame capture.
	MediaGatewayURL     string `yaml:"media_gateway_url"`
	MediaTimeoutSeconds int    `yaml:"media_timeout_seconds"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		WorkerPort:             DefaultWorkerPort,
		MaxConns:               4,
		SampleIntervalSeconds:  DefaultSampleIntervalSeconds,
		AnalysisTimeoutSeconds: DefaultAnalysisTimeoutSeconds,
		MediaTimeoutSeconds:    10,
		LogLevel:               "info",
	}
}

// DataDir returns the wellspring data directory (~/.wellspring).
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, dataDirName)
}

// DBPath returns the SQLite database path.
func DBPath() string {
	return filepath.Join(DataDir(), dbFileName)
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), settingsFile)
}

// EnsureDataDir creates the data directory if missing.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// EnsureSettings writes a default settings file if none exists.
func EnsureSettings() error {
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// EnsureAll initializes the data directory and settings file.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	return EnsureSettings()
}

// Load reads the settings file over the defaults. A missing or malformed
// file yields the defaults; loading never fails the caller.
func Load() (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(SettingsPath())
	if err != nil {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return Default(), nil
	}

	if cfg.WorkerPort <= 0 {
		cfg.WorkerPort = DefaultWorkerPort
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 4
	}
	if cfg.SampleIntervalSeconds <= 0 {
		cfg.SampleIntervalSeconds = DefaultSampleIntervalSeconds
	}
	if cfg.AnalysisTimeoutSeconds <= 0 {
		cfg.AnalysisTimeoutSeconds = DefaultAnalysisTimeoutSeconds
	}
	if cfg.MediaTimeoutSeconds <= 0 {
		cfg.MediaTimeoutSeconds = 10
	}
	return cfg, nil
}

var (
	globalMu  sync.RWMutex
	globalCfg *Config
)

// Get returns the cached global configuration, loading it on first use.
func Get() *Config {
	globalMu.RLock()
	cfg := globalCfg
	globalMu.RUnlock()
	if cfg != nil {
		return cfg
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalCfg == nil {
		globalCfg, _ = Load()
	}
	return globalCfg
}

// Reset clears the cached global configuration. Used after the settings
// watcher observes a change.
func Reset() {
	globalMu.Lock()
	globalCfg = nil
	globalMu.Unlock()
}

// GetWorkerPort returns the worker port, preferring the environment
// variable over the settings file.
func GetWorkerPort() int {
	if v := os.Getenv("WELLSPRING_WORKER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			return port
		}
	}
	return Get().WorkerPort
}
