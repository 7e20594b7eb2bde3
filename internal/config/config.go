// Package config provides TOML configuration loading for viofeat.
//
// The configuration file supports the following structure:
//
//	[tracker]
//	max_cnt = 150
//	min_dist = 30.0
//	flow_back = true
//	equalize = false
//	show_track = true
//	f_threshold = 1.0
//	focal_length = 460.0
//
//	[camera]
//	calib = ["config/cam0.yaml", "config/cam1.yaml"]
//	device_id = 0
//	width = 640
//	height = 480
//	fps = 30
//
//	[metrics]
//	enabled = true
//	listen = ":9100"
//
// Example usage:
//
//	cfg, err := config.Load("config.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Max landmarks: %d\n", cfg.Tracker.MaxCnt)
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config represents the complete configuration for viofeat.
type Config struct {
	Tracker TrackerConfig `toml:"tracker"`
	Camera  CameraConfig  `toml:"camera"`
	Metrics MetricsConfig `toml:"metrics"`
}

// TrackerConfig holds the feature tracker parameters.
type TrackerConfig struct {
	// MaxCnt is the upper bound on simultaneously tracked landmarks (default: 150).
	MaxCnt int `toml:"max_cnt"`
	// MinDist is the minimum pixel distance between landmarks (default: 30).
	MinDist float32 `toml:"min_dist"`
	// FlowBack enables the forward/backward optical flow consistency check (default: true).
	FlowBack bool `toml:"flow_back"`
	// Equalize applies CLAHE to every input image before tracking (default: false).
	Equalize bool `toml:"equalize"`
	// ShowTrack enables rendering of the debug overlay image (default: true).
	ShowTrack bool `toml:"show_track"`
	// FThreshold is the RANSAC epipolar distance threshold in pixels (default: 1.0).
	FThreshold float32 `toml:"f_threshold"`
	// FocalLength is the synthetic pinhole focal used for epipolar rejection (default: 460).
	FocalLength float32 `toml:"focal_length"`
}

// CameraConfig holds capture and calibration settings.
type CameraConfig struct {
	// Calib lists calibration file paths. One path selects monocular mode,
	// two paths enable stereo.
	Calib []string `toml:"calib"`
	// DeviceID is the live camera device index (default: 0).
	DeviceID int `toml:"device_id"`
	// Width is the capture width in pixels (default: 640).
	Width int `toml:"width"`
	// Height is the capture height in pixels (default: 480).
	Height int `toml:"height"`
	// FPS is the capture frame rate (default: 30).
	FPS int `toml:"fps"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	// Enabled turns on the /metrics HTTP endpoint (default: false).
	Enabled bool `toml:"enabled"`
	// Listen is the address the metrics server binds to (default: ":9100").
	Listen string `toml:"listen"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Tracker: TrackerConfig{
			MaxCnt:      150,
			MinDist:     30,
			FlowBack:    true,
			Equalize:    false,
			ShowTrack:   true,
			FThreshold:  1.0,
			FocalLength: 460,
		},
		Camera: CameraConfig{
			DeviceID: 0,
			Width:    640,
			Height:   480,
			FPS:      30,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  ":9100",
		},
	}
}

// Load reads and parses a TOML configuration file.
// If the file does not exist, it returns the default configuration.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Tracker.MaxCnt <= 0 {
		return fmt.Errorf("tracker max_cnt must be positive, got %d", c.Tracker.MaxCnt)
	}
	if c.Tracker.MinDist <= 0 {
		return fmt.Errorf("tracker min_dist must be positive, got %f", c.Tracker.MinDist)
	}
	if c.Tracker.FThreshold <= 0 {
		return fmt.Errorf("tracker f_threshold must be positive, got %f", c.Tracker.FThreshold)
	}
	if c.Tracker.FocalLength <= 0 {
		return fmt.Errorf("tracker focal_length must be positive, got %f", c.Tracker.FocalLength)
	}
	if len(c.Camera.Calib) > 2 {
		return fmt.Errorf("at most two calibration files are supported, got %d", len(c.Camera.Calib))
	}
	if c.Camera.Width <= 0 {
		return fmt.Errorf("camera width must be positive, got %d", c.Camera.Width)
	}
	if c.Camera.Height <= 0 {
		return fmt.Errorf("camera height must be positive, got %d", c.Camera.Height)
	}
	if c.Camera.FPS <= 0 {
		return fmt.Errorf("camera FPS must be positive, got %d", c.Camera.FPS)
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		return fmt.Errorf("metrics listen address must be set when metrics are enabled")
	}
	return nil
}
