package app

// Timeline is the synthetic per-stream clock handed to the landmark engine.
// It starts at 0 and moves by a fixed step per processed frame, independent of
// wall-clock time, so timestamps strictly increase.
type Timeline struct {
	now  int64
	step int64
}

// NewTimeline creates a Timeline advancing stepMs per frame. Steps below 1ms
// are raised to 1ms.
func NewTimeline(stepMs int64) *Timeline {
	if stepMs < 1 {
		stepMs = 1
	}
	return &Timeline{step: stepMs}
}

// FrameDuration returns the step for a nominal frame rate, 1000/fps with
// integer division.
func FrameDuration(fps int) int64 {
	if fps <= 0 {
		return 0
	}
	return int64(1000 / fps)
}

// Now returns the timestamp for the current frame.
func (t *Timeline) Now() int64 {
	return t.now
}

// Advance moves to the next frame and returns the new timestamp.
func (t *Timeline) Advance() int64 {
	t.now += t.step
	return t.now
}

// Step returns the per-frame increment.
func (t *Timeline) Step() int64 {
	return t.step
}
