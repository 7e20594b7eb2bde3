package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Tracker.MaxCnt != 150 {
		t.Errorf("expected MaxCnt 150, got %d", cfg.Tracker.MaxCnt)
	}
	if cfg.Tracker.MinDist != 30 {
		t.Errorf("expected MinDist 30, got %f", cfg.Tracker.MinDist)
	}
	if !cfg.Tracker.FlowBack {
		t.Error("expected FlowBack to be true")
	}
	if cfg.Tracker.Equalize {
		t.Error("expected Equalize to be false")
	}
	if !cfg.Tracker.ShowTrack {
		t.Error("expected ShowTrack to be true")
	}
	if cfg.Tracker.FThreshold != 1.0 {
		t.Errorf("expected FThreshold 1.0, got %f", cfg.Tracker.FThreshold)
	}
	if cfg.Tracker.FocalLength != 460 {
		t.Errorf("expected FocalLength 460, got %f", cfg.Tracker.FocalLength)
	}
	if cfg.Camera.Width != 640 {
		t.Errorf("expected Width 640, got %d", cfg.Camera.Width)
	}
	if cfg.Camera.Height != 480 {
		t.Errorf("expected Height 480, got %d", cfg.Camera.Height)
	}
	if cfg.Camera.FPS != 30 {
		t.Errorf("expected FPS 30, got %d", cfg.Camera.FPS)
	}
	if cfg.Metrics.Enabled {
		t.Error("expected Metrics.Enabled to be false")
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config")
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("unexpected error for non-existent file: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config for non-existent file")
	}
}

func TestLoad_ValidFile(t *testing.T) {
	content := `
[tracker]
max_cnt = 200
min_dist = 20.0
flow_back = false
equalize = true
show_track = false
f_threshold = 2.0
focal_length = 500.0

[camera]
calib = ["cam0.yaml", "cam1.yaml"]
device_id = 1
width = 752
height = 480
fps = 20

[metrics]
enabled = true
listen = ":9200"
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Tracker.MaxCnt != 200 {
		t.Errorf("expected MaxCnt 200, got %d", cfg.Tracker.MaxCnt)
	}
	if cfg.Tracker.MinDist != 20 {
		t.Errorf("expected MinDist 20, got %f", cfg.Tracker.MinDist)
	}
	if cfg.Tracker.FlowBack {
		t.Error("expected FlowBack to be false")
	}
	if !cfg.Tracker.Equalize {
		t.Error("expected Equalize to be true")
	}
	if cfg.Tracker.FThreshold != 2.0 {
		t.Errorf("expected FThreshold 2.0, got %f", cfg.Tracker.FThreshold)
	}
	if len(cfg.Camera.Calib) != 2 {
		t.Fatalf("expected 2 calibration paths, got %d", len(cfg.Camera.Calib))
	}
	if cfg.Camera.Calib[1] != "cam1.yaml" {
		t.Errorf("expected second calib cam1.yaml, got %s", cfg.Camera.Calib[1])
	}
	if cfg.Camera.Width != 752 {
		t.Errorf("expected Width 752, got %d", cfg.Camera.Width)
	}
	if !cfg.Metrics.Enabled {
		t.Error("expected Metrics.Enabled to be true")
	}
	if cfg.Metrics.Listen != ":9200" {
		t.Errorf("expected Metrics.Listen :9200, got %s", cfg.Metrics.Listen)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "invalid.toml")
	if err := os.WriteFile(path, []byte("invalid [ toml"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestValidate_InvalidMaxCnt(t *testing.T) {
	cfg := Default()
	cfg.Tracker.MaxCnt = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for max_cnt 0")
	}
}

func TestValidate_InvalidMinDist(t *testing.T) {
	cfg := Default()
	cfg.Tracker.MinDist = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative min_dist")
	}
}

func TestValidate_InvalidFThreshold(t *testing.T) {
	cfg := Default()
	cfg.Tracker.FThreshold = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for f_threshold 0")
	}
}

func TestValidate_TooManyCalibFiles(t *testing.T) {
	cfg := Default()
	cfg.Camera.Calib = []string{"a.yaml", "b.yaml", "c.yaml"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for three calibration files")
	}
}

func TestValidate_InvalidDimensions(t *testing.T) {
	cfg := Default()
	cfg.Camera.Width = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid width")
	}

	cfg = Default()
	cfg.Camera.Height = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid height")
	}

	cfg = Default()
	cfg.Camera.FPS = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid FPS")
	}
}

func TestValidate_MetricsListen(t *testing.T) {
	cfg := Default()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Listen = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for enabled metrics without listen address")
	}
}
