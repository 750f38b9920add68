// Package config loads the fingerspell settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/ayusman/fingerspell/internal/capture"
	"github.com/ayusman/fingerspell/internal/detector"
	"github.com/ayusman/fingerspell/internal/session"
)

// AppName names the data directory and the database file.
const AppName = "fingerspell"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// CameraConfig selects the capture device.
type CameraConfig struct {
	Device int `yaml:"device"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`
}

// DetectorConfig configures the hand landmark sidecar.
type DetectorConfig struct {
	ModelPaths             []string `yaml:"model_paths"`
	RunningMode            string   `yaml:"running_mode"`
	MaxHands               int      `yaml:"max_hands"`
	MinDetectionConfidence float64  `yaml:"min_detection_confidence"`
	MinPresenceConfidence  float64  `yaml:"min_presence_confidence"`
	Script                 string   `yaml:"script"`
	Python                 string   `yaml:"python"`
}

// ClassifierConfig lists where to look for the letter model.
type ClassifierConfig struct {
	ModelPaths []string `yaml:"model_paths"`
}

// Config holds all application settings.
type Config struct {
	Addr       string           `yaml:"addr"`
	DataDir    string           `yaml:"data_dir"`
	StaticDir  string           `yaml:"static_dir"`
	Interval   time.Duration    `yaml:"interval"`
	Tray       bool             `yaml:"tray"`
	Camera     CameraConfig     `yaml:"camera"`
	Detector   DetectorConfig   `yaml:"detector"`
	Classifier ClassifierConfig `yaml:"classifier"`
}

// Default returns the built-in settings.
func Default() Config {
	dataDir := "." + AppName
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, "."+AppName)
	}

	d := detector.DefaultConfig()
	return Config{
		Addr:     "127.0.0.1:8080",
		DataDir:  dataDir,
		Interval: session.DefaultInterval,
		Tray:     true,
		Camera: CameraConfig{
			Device: 0,
			Width:  capture.DefaultWidth,
			Height: capture.DefaultHeight,
			FPS:    capture.DefaultFPS,
		},
		Detector: DetectorConfig{
			ModelPaths:             d.ModelPaths,
			RunningMode:            d.RunningMode,
			MaxHands:               d.MaxHands,
			MinDetectionConfidence: d.MinDetectionConfidence,
			MinPresenceConfidence:  d.MinPresenceConfidence,
		},
		Classifier: ClassifierConfig{
			ModelPaths: []string{
				"models/fingerspell.onnx",
				"../models/fingerspell.onnx",
				filepath.Join(dataDir, "models", "fingerspell.onnx"),
			},
		},
	}
}

// LoadFromFile reads a YAML settings file on top of the defaults. A missing
// file is not an error.
func LoadFromFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the settings as YAML, creating parent directories.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr is empty", ErrInvalid)
	case c.Interval <= 0:
		return fmt.Errorf("%w: interval must be positive, got %s", ErrInvalid, c.Interval)
	case c.Camera.Device < 0:
		return fmt.Errorf("%w: camera device %d", ErrInvalid, c.Camera.Device)
	case c.Camera.Width <= 0 || c.Camera.Height <= 0:
		return fmt.Errorf("%w: camera size %dx%d", ErrInvalid, c.Camera.Width, c.Camera.Height)
	case c.Camera.FPS <= 0:
		return fmt.Errorf("%w: camera fps %d", ErrInvalid, c.Camera.FPS)
	case c.Detector.MaxHands < 1 || c.Detector.MaxHands > 2:
		return fmt.Errorf("%w: max_hands must be 1 or 2, got %d", ErrInvalid, c.Detector.MaxHands)
	case !unit(c.Detector.MinDetectionConfidence):
		return fmt.Errorf("%w: min_detection_confidence %v", ErrInvalid, c.Detector.MinDetectionConfidence)
	case !unit(c.Detector.MinPresenceConfidence):
		return fmt.Errorf("%w: min_presence_confidence %v", ErrInvalid, c.Detector.MinPresenceConfidence)
	case c.Detector.RunningMode != detector.RunningModeImage && c.Detector.RunningMode != detector.RunningModeVideo:
		return fmt.Errorf("%w: running_mode must be IMAGE or VIDEO, got %q", ErrInvalid, c.Detector.RunningMode)
	case len(c.Detector.ModelPaths) == 0:
		return fmt.Errorf("%w: no hand model paths", ErrInvalid)
	}
	return nil
}

// DetectorSettings converts to the detector package configuration.
func (c Config) DetectorSettings() detector.Config {
	d := detector.DefaultConfig()
	d.ModelPaths = c.Detector.ModelPaths
	d.RunningMode = c.Detector.RunningMode
	d.MaxHands = c.Detector.MaxHands
	d.MinDetectionConfidence = c.Detector.MinDetectionConfidence
	d.MinPresenceConfidence = c.Detector.MinPresenceConfidence
	if c.Detector.Script != "" {
		d.Script = c.Detector.Script
	}
	if c.Detector.Python != "" {
		d.Python = c.Detector.Python
	}
	return d
}

// DatabasePath is the history database location.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, AppName+".db")
}

// DefaultPath is where the settings file lives unless --config says
// otherwise.
func DefaultPath() string {
	return filepath.Join(Default().DataDir, "config.yaml")
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}
