// Package app wires capture, landmark detection, annotation and output into
// the per-frame expression pipeline.
package app

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/abhinaya/internal/capture"
	"github.com/ayusman/abhinaya/internal/config"
	"github.com/ayusman/abhinaya/internal/detector"
	"github.com/ayusman/abhinaya/internal/expression"
	"github.com/ayusman/abhinaya/internal/logging"
	"github.com/ayusman/abhinaya/internal/overlay"
	"github.com/ayusman/abhinaya/internal/sink"
)

// DefaultStopKey ends the session when pressed in the display window.
const DefaultStopKey = 'q'

// ErrOpenCamera wraps any failure to open the frame source at startup.
var ErrOpenCamera = errors.New("could not open webcam")

// State is the pipeline lifecycle state.
type State int

const (
	// StateIdle means Run has not been called yet.
	StateIdle State = iota
	// StateRunning means frames are being processed.
	StateRunning
	// StateStopped is terminal.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// FrameInfo describes one processed frame.
type FrameInfo struct {
	Index       int              `json:"index"`
	TimestampMs int64            `json:"timestamp_ms"`
	Detected    bool             `json:"detected"`
	Classified  bool             `json:"classified"`
	Label       expression.Label `json:"label,omitempty"`
	Caption     string           `json:"caption,omitempty"`
}

// FrameCallback observes each annotated frame after it was written and shown.
// The frame is only valid for the duration of the call.
type FrameCallback func(info FrameInfo, frame *gocv.Mat)

// Components are the external collaborators the pipeline exclusively owns.
type Components struct {
	Camera   capture.Camera
	Detector detector.Detector
	Writer   sink.Writer
	Display  sink.Display
}

// Options tune the pipeline.
type Options struct {
	// FrameDurationMs is the timeline step. Zero means 1000/30.
	FrameDurationMs int64
	// StopKey is the key code that ends the session. Zero means 'q'.
	StopKey int
	// Logger receives pipeline logs. Nil discards them.
	Logger logrus.FieldLogger
}

// Pipeline is the single-threaded frame loop.
type Pipeline struct {
	components Components
	options    Options
	annotator  *overlay.Annotator
	log        logrus.FieldLogger

	mu        sync.RWMutex
	state     State
	callbacks []FrameCallback
}

// New creates a Pipeline over already opened components. A nil Display is
// replaced with a headless one.
func New(c Components, opts Options) *Pipeline {
	if c.Display == nil {
		c.Display = sink.Headless{}
	}
	if opts.FrameDurationMs <= 0 {
		opts.FrameDurationMs = FrameDuration(capture.DefaultFPS)
	}
	if opts.StopKey == 0 {
		opts.StopKey = DefaultStopKey
	}

	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	return &Pipeline{
		components: c,
		options:    opts,
		annotator:  overlay.NewAnnotator(),
		log:        log,
		state:      StateIdle,
	}
}

// RegisterFrameCallback adds fn to the per-frame observers.
func (p *Pipeline) RegisterFrameCallback(fn FrameCallback) {
	if fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callbacks = append(p.callbacks, fn)
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
}

// Close releases every component. It is safe on a pipeline whose components
// are partly nil and may be called more than once.
func (p *Pipeline) Close() error {
	return closeComponents(p.components, p.log)
}

func closeComponents(c Components, log logrus.FieldLogger) error {
	var errs []error

	if c.Camera != nil {
		if err := c.Camera.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close camera: %w", err))
		}
	}
	if c.Writer != nil {
		if err := c.Writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close writer: %w", err))
		}
	}
	if c.Display != nil {
		if err := c.Display.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close display: %w", err))
		}
	}
	if c.Detector != nil {
		if err := c.Detector.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close detector: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil && log != nil {
		log.WithError(err).Warn("Error releasing resources")
	}
	return err
}

// Factory builds the real components from configuration. Fields are swapped
// out in tests.
type Factory struct {
	NewDetector func(cfg detector.Config) (detector.Detector, error)
	NewCamera   func(device, width, height int) capture.Camera
	NewWriter   func(path, codec string, fps float64, width, height int) (sink.Writer, error)
	NewDisplay  func(window string) sink.Display
}

// DefaultFactory returns the OpenCV and MediaPipe backed factory.
func DefaultFactory() Factory {
	return Factory{
		NewDetector: func(cfg detector.Config) (detector.Detector, error) {
			return detector.NewMediaPipeDetector(cfg)
		},
		NewCamera: capture.NewCameraWithSize,
		NewWriter: func(path, codec string, fps float64, width, height int) (sink.Writer, error) {
			return sink.NewVideoWriter(path, codec, fps, width, height)
		},
		NewDisplay: func(window string) sink.Display {
			return sink.NewWindow(window)
		},
	}
}

// Open acquires the landmark engine, camera, writer and display in that order.
// On failure everything acquired so far is released. A camera that cannot be
// opened yields an error wrapping ErrOpenCamera.
func (f Factory) Open(cfg config.Config, log logrus.FieldLogger) (*Pipeline, error) {
	var c Components
	fail := func(err error) (*Pipeline, error) {
		closeComponents(c, log)
		return nil, err
	}

	d, err := f.NewDetector(cfg.Detector)
	if err != nil {
		return fail(fmt.Errorf("landmark engine: %w", err))
	}
	c.Detector = d

	cam := f.NewCamera(cfg.Device, cfg.Width, cfg.Height)
	cam.SetFPS(cfg.FPS)
	if err := cam.Open(); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrOpenCamera, err))
	}
	c.Camera = cam

	width, height := cam.Size()
	w, err := f.NewWriter(cfg.Output, cfg.Codec, float64(cam.FPS()), width, height)
	if err != nil {
		return fail(fmt.Errorf("video writer: %w", err))
	}
	c.Writer = w

	if cfg.Headless {
		c.Display = sink.Headless{}
	} else {
		c.Display = f.NewDisplay(cfg.Window)
	}

	if log != nil {
		log.WithFields(logrus.Fields{
			"device": cfg.Device,
			"size":   fmt.Sprintf("%dx%d", width, height),
			"fps":    cam.FPS(),
			"output": cfg.Output,
		}).Info("Capture opened")
	}

	return New(c, Options{
		FrameDurationMs: cfg.FrameDurationMs(),
		Logger:          log,
	}), nil
}
