package detector

import (
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results, either one result for
// every call or a per-call script.
type MockDetector struct {
	mu         sync.Mutex
	result     *Result
	script     map[int]*Result
	err        error
	timestamps []int64
	closed     bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{
		script: make(map[int]*Result),
	}
}

// SetFaces sets the faces that will be returned by every unscripted Detect call.
func (m *MockDetector) SetFaces(faces []Face) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = &Result{Faces: faces}
}

// SetResultAt scripts the result of the call with the given zero-based index.
func (m *MockDetector) SetResultAt(call int, result *Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script[call] = result
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect records the timestamp and returns the configured result or error.
func (m *MockDetector) Detect(frame *gocv.Mat, timestampMs int64) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := len(m.timestamps)
	m.timestamps = append(m.timestamps, timestampMs)

	if m.err != nil {
		return nil, m.err
	}
	if r, ok := m.script[call]; ok {
		return r, nil
	}
	if m.result != nil {
		return m.result, nil
	}
	return &Result{}, nil
}

// Timestamps returns the timestamps passed to Detect, in call order.
func (m *MockDetector) Timestamps() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, len(m.timestamps))
	copy(out, m.timestamps)
	return out
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close marks the mock as closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// EllipseFace returns a face whose full landmark mesh lies on an ellipse
// centred in the frame, with the given blendshapes attached.
// Every index resolves, so any index subset yields a usable outline.
func EllipseFace(blendshapes ...Category) Face {
	points := make([]Point3D, NumFaceLandmarks)
	for i := range points {
		angle := 2 * math.Pi * float64(i) / float64(NumFaceLandmarks)
		points[i] = Point3D{
			X: 0.5 + 0.2*math.Cos(angle),
			Y: 0.5 + 0.3*math.Sin(angle),
		}
	}

	return Face{
		Landmarks:   points,
		Blendshapes: blendshapes,
	}
}

// SmilingFace returns an EllipseFace with both mouth corners raised.
func SmilingFace() Face {
	return EllipseFace(
		Category{Name: "mouthSmileLeft", Score: 0.8},
		Category{Name: "mouthSmileRight", Score: 0.8},
	)
}
