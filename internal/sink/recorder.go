package sink

import (
	"sync"

	"gocv.io/x/gocv"
)

// Recorder is an in-memory Writer and Display that keeps clones of every
// frame it receives. Keys queued with PressAfter are reported by PollKey.
type Recorder struct {
	mu     sync.Mutex
	frames []gocv.Mat
	shown  int
	keys   map[int]int
	closed bool
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{keys: make(map[int]int)}
}

// PressAfter makes PollKey return key after the n-th shown frame (1-based).
func (r *Recorder) PressAfter(n, key int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[n] = key
}

func (r *Recorder) Write(frame *gocv.Mat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrWriterClosed
	}
	r.frames = append(r.frames, frame.Clone())
	return nil
}

func (r *Recorder) Show(*gocv.Mat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown++
}

func (r *Recorder) PollKey(int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if key, ok := r.keys[r.shown]; ok {
		return key
	}
	return KeyNone
}

// Frames returns the recorded frames. They stay owned by the Recorder.
func (r *Recorder) Frames() []gocv.Mat {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Shown returns how many frames were displayed.
func (r *Recorder) Shown() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shown
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Close marks the recorder closed. Recorded frames stay readable until Release.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Release frees the recorded frames.
func (r *Recorder) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.frames {
		r.frames[i].Close()
	}
	r.frames = nil
}
