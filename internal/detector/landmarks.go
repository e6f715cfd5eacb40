// Package detector provides face landmark interfaces and types for expression analysis.
package detector

// NumFaceLandmarks is the size of the MediaPipe face mesh with irises.
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
const NumFaceLandmarks = 478

// Point3D is a landmark position. X and Y are normalized to [0,1] relative to
// frame width and height; Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Category is a named blendshape score in [0,1].
type Category struct {
	Name  string  `json:"category_name"`
	Score float64 `json:"score"`
}

// Face is one detected face.
type Face struct {
	Landmarks   []Point3D  `json:"landmarks"`
	Blendshapes []Category `json:"blendshapes,omitempty"`
}

// Result is the outcome of one detection call.
type Result struct {
	Faces []Face `json:"faces"`
}

// First returns the first detected face, or nil if there is none.
func (r *Result) First() *Face {
	if r == nil || len(r.Faces) == 0 {
		return nil
	}
	return &r.Faces[0]
}

// HasBlendshapes reports whether the face carries blendshape scores.
func (f *Face) HasBlendshapes() bool {
	return f != nil && len(f.Blendshapes) > 0
}

// Blendshape returns the score for name, or 0 if it is absent.
func (f *Face) Blendshape(name string) float64 {
	if f == nil {
		return 0
	}
	for _, c := range f.Blendshapes {
		if c.Name == name {
			return c.Score
		}
	}
	return 0
}
