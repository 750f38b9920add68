package detector

import (
	"errors"

	"gocv.io/x/gocv"
)

// ErrModelUnavailable is returned when no candidate landmark model could be loaded.
var ErrModelUnavailable = errors.New("hand landmark model unavailable")

// RunningModeImage processes every frame independently, with no tracking state.
const RunningModeImage = "IMAGE"

// RunningModeVideo tracks hands across consecutive frames.
const RunningModeVideo = "VIDEO"

// Detector defines the interface for hand landmark providers.
type Detector interface {
	// Detect analyzes a video frame and returns image-space and world-space
	// landmarks for up to MaxHands hands. A frame without hands yields an
	// empty Result, not an error.
	Detect(frame *gocv.Mat) (*Result, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// RunningMode is passed to the landmark engine (default: IMAGE).
	RunningMode string

	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinDetectionConfidence is the palm detection threshold (0.0-1.0).
	MinDetectionConfidence float64

	// MinPresenceConfidence is the hand presence threshold (0.0-1.0).
	MinPresenceConfidence float64

	// ModelPaths are candidate hand_landmarker.task locations, tried in order.
	ModelPaths []string

	// Script is the sidecar service script. Empty means search the usual places.
	Script string

	// Python is the interpreter. Empty means prefer a venv, then python3.
	Python string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		RunningMode:            RunningModeImage,
		MaxHands:               2,
		MinDetectionConfidence: 0.5,
		MinPresenceConfidence:  0.5,
		ModelPaths: []string{
			"models/hand_landmarker.task",
			"../models/hand_landmarker.task",
		},
	}
}
