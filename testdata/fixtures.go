// Package testdata generates synthetic frames for pipeline tests.
package testdata

import (
	"gocv.io/x/gocv"
)

// Default fixture frame size.
const (
	Width  = 64
	Height = 48
)

// GrayFrame returns a BGR frame filled with the given gray level.
func GrayFrame(level uint8, width, height int) *gocv.Mat {
	v := float64(level)
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), height, width, gocv.MatTypeCV8UC3)
	return &mat
}

// GraySequence returns n frames whose gray level encodes their position:
// frame i is filled with Level(i).
func GraySequence(n, width, height int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		frames[i] = GrayFrame(Level(i), width, height)
	}
	return frames
}

// Level is the gray level used for frame i of a GraySequence.
func Level(i int) uint8 {
	return uint8(10 + (i*20)%240)
}

// CloseAll releases frames.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		if f != nil {
			f.Close()
		}
	}
}
