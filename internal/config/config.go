package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Defaults mirror the shipped settings file. Values read from disk or
// the environment are clamped back to sane ranges instead of failing.
const (
	DefaultSessionSeconds         = 90
	DefaultDistanceThreshold      = 0.35
	DefaultDuplicateWindowMinutes = 10
	DefaultStableFrames           = 4
	DefaultStableWindow           = 8
	DefaultSamplesPerUser         = 80

	minSessionSeconds = 10
)

// Config holds all recognized settings for the attendance station.
type Config struct {
	// Camera selection. A non-empty URL selects the MJPEG stream
	// source; otherwise CameraIndex picks a subdirectory of FramesDir.
	CameraIndex int    `yaml:"camera_index"`
	CameraURL   string `yaml:"camera_url"`
	FramesDir   string `yaml:"frames_dir"`

	// Session policy.
	SessionSeconds         int     `yaml:"session_seconds"`
	DistanceThreshold      float64 `yaml:"distance_threshold"`
	DuplicateWindowMinutes int     `yaml:"duplicate_window_minutes"`
	StableFrames           int     `yaml:"stable_frames"`
	StableWindow           int     `yaml:"stable_window"`
	StopOnSuccess          bool    `yaml:"stop_on_success"`

	// Enrollment policy.
	SamplesPerUser int `yaml:"samples_per_user"`

	// Operating modes. Privacy mode refuses enrollment and training.
	// Kiosk mode hides admin surfaces; it is not a security boundary.
	PrivacyMode bool `yaml:"privacy_mode"`
	KioskMode   bool `yaml:"kiosk_mode"`

	// ConsentAccepted records that the operator acknowledged the data
	// retention notice. Stored for the control surfaces to check; the
	// capture pipeline itself is gated by PrivacyMode.
	ConsentAccepted bool `yaml:"consent_accepted"`

	// DataDir is the writable runtime root for the ledger database,
	// the trained model and the face sample dataset.
	DataDir string `yaml:"data_dir"`

	// CascadePath points at the binary detection cascade.
	CascadePath string `yaml:"cascade_path"`
}

// DatabasePath returns the location of the attendance ledger file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "attendance.db")
}

// ModelPath returns the location of the trained recognizer artifact.
// Absence of the file means "untrained", not an error.
func (c *Config) ModelPath() string {
	return filepath.Join(c.DataDir, "models", "recognizer.bin")
}

// SamplesDir returns the root of the labeled face sample dataset.
func (c *Config) SamplesDir() string {
	return filepath.Join(c.DataDir, "dataset")
}

// SettingsPath returns the settings file location inside dataDir.
func SettingsPath(dataDir string) string {
	return filepath.Join(dataDir, "settings.yaml")
}

func defaults() *Config {
	return &Config{
		CameraIndex:            0,
		SessionSeconds:         DefaultSessionSeconds,
		DistanceThreshold:      DefaultDistanceThreshold,
		DuplicateWindowMinutes: DefaultDuplicateWindowMinutes,
		StableFrames:           DefaultStableFrames,
		StableWindow:           DefaultStableWindow,
		StopOnSuccess:          false,
		SamplesPerUser:         DefaultSamplesPerUser,
		DataDir:                "data",
		CascadePath:            filepath.Join("assets", "facefinder"),
	}
}

// envInt reads an environment variable and parses it as an integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

// envBool reads an environment variable as a boolean flag.
func envBool(key string, defaultVal bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// Load builds the effective configuration: defaults, then the settings
// file under dataDir (if present), then environment overrides.
func Load(dataDir string) *Config {
	cfg := defaults()
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	cfg.DataDir = envString("FACEATTEND_DATA_DIR", cfg.DataDir)

	if raw, err := os.ReadFile(SettingsPath(cfg.DataDir)); err == nil {
		// A broken settings file falls back to defaults; the station
		// must stay operable.
		_ = yaml.Unmarshal(raw, cfg)
	}

	cfg.CameraIndex = envInt("FACEATTEND_CAMERA_INDEX", cfg.CameraIndex)
	cfg.CameraURL = envString("FACEATTEND_CAMERA_URL", cfg.CameraURL)
	cfg.FramesDir = envString("FACEATTEND_FRAMES_DIR", cfg.FramesDir)
	cfg.SessionSeconds = envInt("FACEATTEND_SESSION_SECONDS", cfg.SessionSeconds)
	cfg.DistanceThreshold = envFloat("FACEATTEND_DISTANCE_THRESHOLD", cfg.DistanceThreshold)
	cfg.DuplicateWindowMinutes = envInt("FACEATTEND_DUPLICATE_WINDOW_MINUTES", cfg.DuplicateWindowMinutes)
	cfg.SamplesPerUser = envInt("FACEATTEND_SAMPLES_PER_USER", cfg.SamplesPerUser)
	cfg.PrivacyMode = envBool("FACEATTEND_PRIVACY_MODE", cfg.PrivacyMode)
	cfg.KioskMode = envBool("FACEATTEND_KIOSK_MODE", cfg.KioskMode)
	cfg.ConsentAccepted = envBool("FACEATTEND_CONSENT_ACCEPTED", cfg.ConsentAccepted)
	cfg.CascadePath = envString("FACEATTEND_CASCADE_PATH", cfg.CascadePath)

	cfg.clamp()
	return cfg
}

// clamp pulls out-of-range values back to usable ones.
func (c *Config) clamp() {
	if c.CameraIndex < 0 {
		c.CameraIndex = 0
	}
	if c.SessionSeconds < minSessionSeconds {
		c.SessionSeconds = minSessionSeconds
	}
	if c.DistanceThreshold < 0 {
		c.DistanceThreshold = DefaultDistanceThreshold
	}
	if c.DuplicateWindowMinutes < 0 {
		c.DuplicateWindowMinutes = 0
	}
	if c.StableFrames < 1 {
		c.StableFrames = 1
	}
	if c.StableWindow < c.StableFrames {
		c.StableWindow = c.StableFrames
	}
	if c.SamplesPerUser < 1 {
		c.SamplesPerUser = DefaultSamplesPerUser
	}
}

// Save writes the settings file under the configured data directory.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	payload, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}
	if err := os.WriteFile(SettingsPath(c.DataDir), payload, 0o644); err != nil {
		return fmt.Errorf("writing settings file: %w", err)
	}
	return nil
}
