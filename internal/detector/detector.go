package detector

import "gocv.io/x/gocv"

// Detector defines the interface for hand landmark providers.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases the inference handle.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect. The scene only
	// follows one hand.
	MaxHands int `yaml:"maxHands" env:"MAX_HANDS"`

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64 `yaml:"minConfidence" env:"MIN_CONFIDENCE"`

	// ScriptPath overrides the lookup of mediapipe_service.py.
	ScriptPath string `yaml:"scriptPath" env:"SCRIPT_PATH"`

	// PythonPath overrides the interpreter lookup.
	PythonPath string `yaml:"pythonPath" env:"PYTHON_PATH"`
}

// DefaultConfig returns a Config tuned for single-hand scene control.
func DefaultConfig() Config {
	return Config{
		MaxHands:      1,
		MinConfidence: 0.5,
	}
}
