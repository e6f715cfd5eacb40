package server

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/abhinaya/internal/app"
)

const (
	frameBuffer = 1
	infoBuffer  = 16
)

// Hub fans out annotated frames and their FrameInfo to preview clients.
// Publish never blocks: a client that falls behind misses updates.
type Hub struct {
	mu     sync.RWMutex
	frames map[chan []byte]struct{}
	infos  map[chan app.FrameInfo]struct{}
	latest app.FrameInfo
	seen   bool
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		frames: make(map[chan []byte]struct{}),
		infos:  make(map[chan app.FrameInfo]struct{}),
	}
}

// Publish is an app.FrameCallback. The frame is JPEG encoded only when a
// stream client is connected.
func (h *Hub) Publish(info app.FrameInfo, frame *gocv.Mat) {
	h.mu.Lock()
	h.latest = info
	h.seen = true
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.infos {
		select {
		case ch <- info:
		default:
		}
	}

	if len(h.frames) == 0 || frame == nil || frame.Empty() {
		return
	}

	jpeg, err := encodeJPEG(frame)
	if err != nil {
		return
	}
	for ch := range h.frames {
		select {
		case ch <- jpeg:
		default:
		}
	}
}

// Latest returns the most recently published FrameInfo.
func (h *Hub) Latest() (app.FrameInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest, h.seen
}

// Subscribe registers for FrameInfo updates. The returned cancel func
// unregisters and closes the channel.
func (h *Hub) Subscribe() (<-chan app.FrameInfo, func()) {
	ch := make(chan app.FrameInfo, infoBuffer)

	h.mu.Lock()
	h.infos[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.infos, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// SubscribeFrames registers for JPEG encoded frames.
func (h *Hub) SubscribeFrames() (<-chan []byte, func()) {
	ch := make(chan []byte, frameBuffer)

	h.mu.Lock()
	h.frames[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.frames, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Clients returns the number of info and frame subscribers.
func (h *Hub) Clients() (infos, frames int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.infos), len(h.frames)
}

func encodeJPEG(frame *gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
