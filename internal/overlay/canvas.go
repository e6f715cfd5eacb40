package overlay

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Canvas is the drawing surface the annotator needs.
type Canvas interface {
	// Size returns the surface width and height in pixels.
	Size() (width, height int)
	// Polylines draws a polyline through pts, closing it when closed is set.
	Polylines(pts []image.Point, closed bool, c color.RGBA, thickness int)
	// PutText draws text with its bottom-left corner at org.
	PutText(text string, org image.Point, scale float64, c color.RGBA, thickness int)
}

// MatCanvas draws onto a gocv Mat in place.
type MatCanvas struct {
	mat *gocv.Mat
}

// NewMatCanvas wraps mat. The caller keeps ownership of mat.
func NewMatCanvas(mat *gocv.Mat) *MatCanvas {
	return &MatCanvas{mat: mat}
}

// Size returns the Mat columns and rows.
func (c *MatCanvas) Size() (int, int) {
	return c.mat.Cols(), c.mat.Rows()
}

// Polylines draws onto the Mat with gocv.Polylines.
func (c *MatCanvas) Polylines(pts []image.Point, closed bool, col color.RGBA, thickness int) {
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{pts})
	defer pv.Close()
	gocv.Polylines(c.mat, pv, closed, col, thickness)
}

// PutText draws text in the Hershey Simplex face.
func (c *MatCanvas) PutText(text string, org image.Point, scale float64, col color.RGBA, thickness int) {
	gocv.PutText(c.mat, text, org, gocv.FontHersheySimplex, scale, col, thickness)
}
