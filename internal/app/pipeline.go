package app

import (
	"context"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/abhinaya/internal/expression"
	"github.com/ayusman/abhinaya/internal/overlay"
	"github.com/ayusman/abhinaya/internal/sink"
)

// StopReason tells why Run returned.
type StopReason string

const (
	StopEndOfStream StopReason = "end of stream"
	StopKey         StopReason = "stop key"
	StopCancelled   StopReason = "cancelled"
)

// Summary reports what a Run processed.
type Summary struct {
	Frames      int                      `json:"frames"`
	Detections  int                      `json:"detections"`
	Classified  int                      `json:"classified"`
	Labels      map[expression.Label]int `json:"labels"`
	TimestampMs int64                    `json:"timestamp_ms"`
	Reason      StopReason               `json:"reason"`
}

func (s *Summary) add(info FrameInfo) {
	s.Frames++
	if info.Detected {
		s.Detections++
	}
	if info.Classified {
		s.Classified++
		s.Labels[info.Label]++
	}
}

// Run processes frames until the source runs dry, the stop key is pressed or
// ctx is done. The stop conditions are checked once per processed frame, after
// it was written and shown. Run may only be called once.
//
// Per frame:
// 1. Read a frame, stopping on failure
// 2. Detect landmarks at the timeline's timestamp, then advance the timeline
// 3. Outline the first face and caption its expression, if any
// 4. Write and show the annotated frame
// 5. Notify frame callbacks
func (p *Pipeline) Run(ctx context.Context) Summary {
	p.setState(StateRunning)
	defer p.setState(StateStopped)

	timeline := NewTimeline(p.options.FrameDurationMs)
	summary := Summary{Labels: make(map[expression.Label]int)}

	for index := 0; ; index++ {
		frame, err := p.components.Camera.ReadFrame()
		if err != nil {
			p.log.WithError(err).WithField("frame", index).Info("Frame source ended")
			summary.Reason = StopEndOfStream
			break
		}

		info := p.processFrame(frame, index, timeline)
		p.emit(info, frame)
		frame.Close()
		summary.add(info)

		if reason, stop := p.shouldStop(ctx); stop {
			summary.Reason = reason
			break
		}
	}

	summary.TimestampMs = timeline.Now()
	p.log.WithFields(logrus.Fields{
		"frames":     summary.Frames,
		"detections": summary.Detections,
		"classified": summary.Classified,
		"reason":     summary.Reason,
	}).Info("Pipeline stopped")

	return summary
}

// processFrame runs detection and annotation on frame in place, then writes
// and shows it.
func (p *Pipeline) processFrame(frame *gocv.Mat, index int, timeline *Timeline) FrameInfo {
	info := FrameInfo{Index: index, TimestampMs: timeline.Now()}

	result, err := p.components.Detector.Detect(frame, info.TimestampMs)
	timeline.Advance()
	if err != nil {
		p.log.WithError(err).WithField("frame", index).Warn("Landmark detection failed")
		result = nil
	}

	face := result.First()
	info.Detected = face != nil

	ann := p.annotator.Annotate(overlay.NewMatCanvas(frame), face)
	info.Classified = ann.Classified
	info.Label = ann.Label
	info.Caption = ann.Caption

	if err := p.components.Writer.Write(frame); err != nil {
		p.log.WithError(err).WithField("frame", index).Warn("Error writing frame")
	}
	p.components.Display.Show(frame)

	if info.Classified {
		p.log.WithFields(logrus.Fields{
			"frame":     index,
			"timestamp": info.TimestampMs,
			"label":     info.Label,
		}).Debug("Expression classified")
	}

	return info
}

func (p *Pipeline) emit(info FrameInfo, frame *gocv.Mat) {
	p.mu.RLock()
	callbacks := make([]FrameCallback, len(p.callbacks))
	copy(callbacks, p.callbacks)
	p.mu.RUnlock()

	for _, cb := range callbacks {
		cb(info, frame)
	}
}

// shouldStop polls the display for the stop key and checks ctx. The display
// is always polled so that the window keeps processing events.
func (p *Pipeline) shouldStop(ctx context.Context) (StopReason, bool) {
	key := p.components.Display.PollKey(1)
	if key != sink.KeyNone && key&0xFF == p.options.StopKey {
		return StopKey, true
	}

	select {
	case <-ctx.Done():
		return StopCancelled, true
	default:
		return "", false
	}
}
