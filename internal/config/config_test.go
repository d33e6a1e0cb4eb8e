// Package config provides configuration management for wellspring.
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigSuite is a test suite for config operations.
type ConfigSuite struct {
	suite.Suite
	tempDir     string
	origHomeDir string
}

func (s *ConfigSuite) SetupTest() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "config-test-*")
	s.Require().NoError(err)

	// Save and override HOME
	s.origHomeDir = os.Getenv("HOME")
	os.Setenv("HOME", s.tempDir)
	Reset()
}

func (s *ConfigSuite) TearDownTest() {
	os.Setenv("HOME", s.origHomeDir)
	os.RemoveAll(s.tempDir)
	Reset()
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

// TestDefault tests default configuration values.
func (s *ConfigSuite) TestDefault() {
	cfg := Default()

	s.Equal(DefaultWorkerPort, cfg.WorkerPort)
	s.Equal(4, cfg.MaxConns)
	s.Equal(DefaultSampleIntervalSeconds, cfg.SampleIntervalSeconds)
	s.Equal(DefaultAnalysisTimeoutSeconds, cfg.AnalysisTimeoutSeconds)
	s.Equal(10, cfg.MediaTimeoutSeconds)
	s.Equal("info", cfg.LogLevel)
	s.Empty(cfg.FusionURL, "no analysis endpoints out of the box")
}

// TestDataDir tests data directory path.
func (s *ConfigSuite) TestDataDir() {
	dir := DataDir()
	s.Contains(dir, ".wellspring")
}

// TestDBPath tests database path.
func (s *ConfigSuite) TestDBPath() {
	path := DBPath()
	s.Contains(path, "wellspring.db")
}

// TestSettingsPath tests settings file path.
func (s *ConfigSuite) TestSettingsPath() {
	path := SettingsPath()
	s.Contains(path, "settings.yaml")
}

// TestEnsureDataDir tests data directory creation.
func (s *ConfigSuite) TestEnsureDataDir() {
	err := EnsureDataDir()
	s.NoError(err)

	dir := DataDir()
	info, err := os.Stat(dir)
	s.NoError(err)
	s.True(info.IsDir())
}

// TestEnsureSettings tests settings file creation.
func (s *ConfigSuite) TestEnsureSettings() {
	// First ensure data dir exists
	err := EnsureDataDir()
	s.NoError(err)

	// Ensure settings creates default file
	err = EnsureSettings()
	s.NoError(err)

	path := SettingsPath()
	info, err := os.Stat(path)
	s.NoError(err)
	s.False(info.IsDir())

	// Second call should not error (file exists)
	err = EnsureSettings()
	s.NoError(err)
}

// TestEnsureAll tests full initialization.
func (s *ConfigSuite) TestEnsureAll() {
	err := EnsureAll()
	s.NoError(err)

	// Verify dir and settings exist
	_, err = os.Stat(DataDir())
	s.NoError(err)
	_, err = os.Stat(SettingsPath())
	s.NoError(err)
}

// TestLoad_TableDriven tests configuration loading with various scenarios.
func (s *ConfigSuite) TestLoad_TableDriven() {
	tests := []struct {
		name          string
		settingsYAML  string
		expectedPort  int
		expectedFreq  int
		expectedLevel string
	}{
		{
			name:          "no settings file",
			settingsYAML:  "",
			expectedPort:  DefaultWorkerPort,
			expectedFreq:  DefaultSampleIntervalSeconds,
			expectedLevel: "info",
		},
		{
			name:          "custom port",
			settingsYAML:  "worker_port: 38888\nlog_level: info\n",
			expectedPort:  38888,
			expectedFreq:  DefaultSampleIntervalSeconds,
			expectedLevel: "info",
		},
		{
			name:          "custom sampling cadence",
			settingsYAML:  "sample_interval_seconds: 10\nlog_level: info\n",
			expectedPort:  DefaultWorkerPort,
			expectedFreq:  10,
			expectedLevel: "info",
		},
		{
			name:          "multiple settings",
			settingsYAML:  "worker_port: 39999\nsample_interval_seconds: 2\nlog_level: debug\n",
			expectedPort:  39999,
			expectedFreq:  2,
			expectedLevel: "debug",
		},
		{
			name:          "invalid YAML returns defaults",
			settingsYAML:  "worker_port: [not a port",
			expectedPort:  DefaultWorkerPort,
			expectedFreq:  DefaultSampleIntervalSeconds,
			expectedLevel: "info",
		},
		{
			name:          "zero values replaced with defaults",
			settingsYAML:  "worker_port: 0\nsample_interval_seconds: 0\nlog_level: info\n",
			expectedPort:  DefaultWorkerPort,
			expectedFreq:  DefaultSampleIntervalSeconds,
			expectedLevel: "info",
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			// Create fresh temp dir
			tempDir, err := os.MkdirTemp("", "config-test-*")
			s.Require().NoError(err)
			defer os.RemoveAll(tempDir)

			os.Setenv("HOME", tempDir)

			// Create data dir
			err = os.MkdirAll(filepath.Join(tempDir, ".wellspring"), 0750)
			s.Require().NoError(err)

			if tt.settingsYAML != "" {
				writeErr := os.WriteFile(
					filepath.Join(tempDir, ".wellspring", "settings.yaml"),
					[]byte(tt.settingsYAML),
					0600,
				)
				s.Require().NoError(writeErr)
			}

			cfg, err := Load()
			s.NoError(err)
			s.NotNil(cfg)
			s.Equal(tt.expectedPort, cfg.WorkerPort)
			s.Equal(tt.expectedFreq, cfg.SampleIntervalSeconds)
			s.Equal(tt.expectedLevel, cfg.LogLevel)
		})
	}
}

// TestLoad_AnalysisEndpoints tests endpoint settings loading.
func TestLoad_AnalysisEndpoints(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	origHome := os.Getenv("HOME")
	os.Setenv("HOME", tempDir)
	defer os.Setenv("HOME", origHome)

	err = os.MkdirAll(filepath.Join(tempDir, ".wellspring"), 0750)
	require.NoError(t, err)

	settingsYAML := `fusion_url: http://localhost:9100/fusion
text_analysis_url: http://localhost:9101/text
media_gateway_url: http://localhost:9200
analysis_timeout_seconds: 30
`
	err = os.WriteFile(
		filepath.Join(tempDir, ".wellspring", "settings.yaml"),
		[]byte(settingsYAML),
		0600,
	)
	require.NoError(t, err)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9100/fusion", cfg.FusionURL)
	assert.Equal(t, "http://localhost:9101/text", cfg.TextAnalysisURL)
	assert.Equal(t, "http://localhost:9200", cfg.MediaGatewayURL)
	assert.Equal(t, 30, cfg.AnalysisTimeoutSeconds)
}

// TestGet tests the global config getter.
func TestGet(t *testing.T) {
	// Save and restore HOME
	origHome := os.Getenv("HOME")
	tempDir, err := os.MkdirTemp("", "config-get-test-*")
	require.NoError(t, err)
	defer func() {
		os.Setenv("HOME", origHome)
		os.RemoveAll(tempDir)
		Reset()
	}()
	os.Setenv("HOME", tempDir)
	Reset()

	// Create data dir
	err = os.MkdirAll(filepath.Join(tempDir, ".wellspring"), 0750)
	require.NoError(t, err)

	// Get() should return a valid config, and cache it
	cfg := Get()
	require.NotNil(t, cfg)
	assert.Greater(t, cfg.WorkerPort, 0)
	assert.Same(t, cfg, Get())
}

// TestGetWorkerPort_WithEnv tests GetWorkerPort with environment variable.
func TestGetWorkerPort_WithEnv(t *testing.T) {
	// Save original env
	origEnv := os.Getenv("WELLSPRING_WORKER_PORT")
	defer os.Setenv("WELLSPRING_WORKER_PORT", origEnv)

	// Test with valid port in env
	os.Setenv("WELLSPRING_WORKER_PORT", "45678")
	port := GetWorkerPort()
	assert.Equal(t, 45678, port)

	// Test with invalid port (should fall back to config)
	os.Setenv("WELLSPRING_WORKER_PORT", "not-a-number")
	port = GetWorkerPort()
	assert.Greater(t, port, 0)

	// Test with zero port (should fall back to config)
	os.Setenv("WELLSPRING_WORKER_PORT", "0")
	port = GetWorkerPort()
	assert.Greater(t, port, 0)

	// Test with no env (should use config)
	os.Unsetenv("WELLSPRING_WORKER_PORT")
	port = GetWorkerPort()
	assert.Greater(t, port, 0)
}
