package detector

import "gocv.io/x/gocv"

// Detector defines the interface for face landmark implementations.
type Detector interface {
	// Detect analyzes a BGR video frame taken at timestampMs and returns the
	// faces found. Timestamps must not decrease across calls on one stream.
	// Returns a Result with no faces if nothing is detected.
	Detect(frame *gocv.Mat, timestampMs int64) (*Result, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for face landmark detection.
type Config struct {
	// ModelPath is the face landmarker model asset (default: face_landmarker.task).
	ModelPath string `yaml:"model"`

	// MaxFaces is the maximum number of faces to detect (default: 1).
	MaxFaces int `yaml:"max_faces"`

	// Blendshapes enables blendshape output.
	Blendshapes bool `yaml:"blendshapes"`

	// ScriptPath overrides the sidecar script lookup when set.
	ScriptPath string `yaml:"script"`

	// Python overrides the interpreter lookup when set.
	Python string `yaml:"python"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ModelPath:   "face_landmarker.task",
		MaxFaces:    1,
		Blendshapes: true,
	}
}
