// Package overlay draws face outlines and expression captions onto frames.
package overlay

import (
	"image"

	"github.com/ayusman/abhinaya/internal/detector"
)

// FaceOval lists the face mesh indices that trace the face silhouette.
// The order is the traversal order around the contour, not index order;
// sorting it would turn the outline into a scrambled line.
var FaceOval = []int{
	10, 338, 297, 332, 284, 251, 389, 356, 454, 323, 361, 288,
	397, 365, 379, 378, 400, 377, 152, 148, 176, 149, 150, 136,
	172, 58, 132, 93, 234, 127, 162, 21, 54, 103, 67, 109,
}

// Outline denormalizes the selected landmarks into pixel coordinates, keeping
// the order of indices. Coordinates are truncated toward zero. Indices outside
// the landmark slice are skipped, so an empty landmark set yields no points.
func Outline(landmarks []detector.Point3D, indices []int, width, height int) []image.Point {
	points := make([]image.Point, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(landmarks) {
			continue
		}
		lm := landmarks[idx]
		points = append(points, image.Point{
			X: int(lm.X * float64(width)),
			Y: int(lm.Y * float64(height)),
		})
	}
	return points
}
