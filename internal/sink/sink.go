// Package sink persists and displays annotated frames.
package sink

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// Default output settings.
const (
	DefaultOutput = "output_video.mp4"
	DefaultCodec  = "mp4v"
	DefaultWindow = "Advanced Face Detection with Expressions"
)

// KeyNone is returned by PollKey when no key was pressed.
const KeyNone = -1

// ErrWriterClosed is returned when writing to a closed writer.
var ErrWriterClosed = errors.New("video writer is closed")

// Writer appends frames to an output stream.
type Writer interface {
	Write(frame *gocv.Mat) error
	Close() error
}

// Display shows frames live and reports key presses.
type Display interface {
	Show(frame *gocv.Mat)
	// PollKey waits up to timeoutMs for a key and returns it, or KeyNone.
	PollKey(timeoutMs int) int
	Close() error
}

// VideoWriter writes frames to a video file through OpenCV.
type VideoWriter struct {
	path   string
	writer *gocv.VideoWriter
}

// NewVideoWriter opens path for writing with the given four character codec,
// frame rate and frame size.
func NewVideoWriter(path, codec string, fps float64, width, height int) (*VideoWriter, error) {
	if len(codec) != 4 {
		return nil, fmt.Errorf("codec %q: must be four characters", codec)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}

	w, err := gocv.VideoWriterFile(path, codec, fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("open video writer %s: %w", path, err)
	}
	if !w.IsOpened() {
		w.Close()
		return nil, fmt.Errorf("open video writer %s: codec %s not available", path, codec)
	}

	return &VideoWriter{path: path, writer: w}, nil
}

// Path returns the output file path.
func (v *VideoWriter) Path() string {
	return v.path
}

// Write appends frame to the file.
func (v *VideoWriter) Write(frame *gocv.Mat) error {
	if v.writer == nil {
		return ErrWriterClosed
	}
	return v.writer.Write(*frame)
}

// Close flushes and closes the file. Safe to call more than once.
func (v *VideoWriter) Close() error {
	if v.writer == nil {
		return nil
	}
	err := v.writer.Close()
	v.writer = nil
	return err
}

// Window is a HighGUI display window.
type Window struct {
	window *gocv.Window
}

// NewWindow opens a named window.
func NewWindow(name string) *Window {
	return &Window{window: gocv.NewWindow(name)}
}

// Show draws frame into the window.
func (w *Window) Show(frame *gocv.Mat) {
	if w.window == nil {
		return
	}
	w.window.IMShow(*frame)
}

// PollKey pumps the window event loop for timeoutMs and returns the key.
func (w *Window) PollKey(timeoutMs int) int {
	if w.window == nil {
		return KeyNone
	}
	return w.window.WaitKey(timeoutMs)
}

// Close destroys the window. Safe to call more than once.
func (w *Window) Close() error {
	if w.window == nil {
		return nil
	}
	err := w.window.Close()
	w.window = nil
	return err
}

// Headless is a Display that shows nothing and never reports a key.
type Headless struct{}

func (Headless) Show(*gocv.Mat)  {}
func (Headless) PollKey(int) int { return KeyNone }
func (Headless) Close() error    { return nil }
