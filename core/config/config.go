package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the configuration for both the camera node agent and the
// controller. Each binary only reads its own fields, but they share one file
// format so a host can run both.
type Config struct {
	// Node agent settings
	NodeAddr        string  `json:"node_addr"`
	NodePort        int     `json:"node_port"`
	Cam0Device      string  `json:"cam0_device"`
	Cam1Device      string  `json:"cam1_device"`
	OutputRoot      string  `json:"output_root"`
	CaptureBackend  string  `json:"capture_backend"` // "ffmpeg" or "gocv"
	DesyncTolerance float64 `json:"desync_tolerance"`
	GraceSeconds    int     `json:"grace_seconds"`

	// Controller settings
	DatabasePath        string `json:"database_path"`
	PrepareTimeoutSecs  int    `json:"prepare_timeout_seconds"`
	CommandTimeoutSecs  int    `json:"command_timeout_seconds"`
	BestEffort          bool   `json:"best_effort"`
	PollIntervalSeconds int    `json:"poll_interval_seconds"`

	LogPath  string `json:"log_path"`
	LogLevel string `json:"log_level"`
}

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	dataDir := "."

	homeDir, err := os.UserHomeDir()
	if err == nil && homeDir != "" {
		dataDir = filepath.Join(homeDir, "dual-camera")

		if err := os.MkdirAll(dataDir, 0755); err != nil {
			dataDir = "."
		}
	}

	return &Config{
		NodeAddr:            "0.0.0.0",
		NodePort:            5000,
		Cam0Device:          "/dev/video0",
		Cam1Device:          "/dev/video2",
		OutputRoot:          filepath.Join(dataDir, "captures"),
		CaptureBackend:      "ffmpeg",
		DesyncTolerance:     0.01,
		GraceSeconds:        5,
		DatabasePath:        filepath.Join(dataDir, "dual-camera.db"),
		PrepareTimeoutSecs:  5,
		CommandTimeoutSecs:  5,
		BestEffort:          false,
		PollIntervalSeconds: 2,
		LogPath:             "logs",
		LogLevel:            "info",
	}
}

// LoadConfig loads the configuration from a JSON file. A missing file yields
// the defaults so first runs work without setup.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.NodePort <= 0 || c.NodePort > 65535 {
		return fmt.Errorf("invalid node port: %d", c.NodePort)
	}
	if c.Cam0Device == c.Cam1Device {
		return fmt.Errorf("cam0 and cam1 must be distinct devices: %s", c.Cam0Device)
	}
	if c.CaptureBackend != "ffmpeg" && c.CaptureBackend != "gocv" {
		return fmt.Errorf("unknown capture backend: %s", c.CaptureBackend)
	}
	if c.DesyncTolerance < 0 || c.DesyncTolerance >= 1 {
		return fmt.Errorf("desync tolerance must be in [0, 1): %f", c.DesyncTolerance)
	}
	if c.GraceSeconds <= 0 {
		return fmt.Errorf("grace period must be positive: %d", c.GraceSeconds)
	}
	return nil
}

// SaveConfig saves the configuration to a JSON file
func (c *Config) SaveConfig(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config file: %w", err)
	}

	return nil
}
