package overlay

import (
	"image"
	"image/color"

	"github.com/ayusman/abhinaya/internal/detector"
	"github.com/ayusman/abhinaya/internal/expression"
)

// Drawing defaults.
var (
	OutlineColor  = color.RGBA{R: 0, G: 0, B: 255, A: 0}
	CaptionColor  = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	CaptionOrigin = image.Point{X: 10, Y: 30}
)

const (
	OutlineThickness = 2
	CaptionScale     = 1.0
	CaptionThickness = 2
)

// Annotation describes what was drawn for one frame.
type Annotation struct {
	// Outlined is true when a face outline was drawn.
	Outlined bool
	// Classified is true when blendshapes were present and a caption drawn.
	Classified bool
	Label      expression.Label
	Caption    string
}

// Annotator draws the face outline and expression caption.
type Annotator struct {
	indices    []int
	classifier *expression.Classifier
}

// NewAnnotator creates an Annotator using FaceOval and the default rules.
func NewAnnotator() *Annotator {
	return &Annotator{
		indices:    FaceOval,
		classifier: expression.NewClassifier(expression.DefaultRules, expression.Neutral),
	}
}

// DrawOutline draws a closed polygon through points. Nothing is drawn for an
// empty point list. Reports whether a drawing call was made.
func DrawOutline(canvas Canvas, points []image.Point) bool {
	if len(points) == 0 {
		return false
	}
	canvas.Polylines(points, true, OutlineColor, OutlineThickness)
	return true
}

// Annotate draws onto canvas for face, which may be nil when nothing was
// detected. Blendshapes are only classified when the face carries them.
func (a *Annotator) Annotate(canvas Canvas, face *detector.Face) Annotation {
	var ann Annotation
	if face == nil {
		return ann
	}

	width, height := canvas.Size()
	points := Outline(face.Landmarks, a.indices, width, height)
	ann.Outlined = DrawOutline(canvas, points)

	if !face.HasBlendshapes() {
		return ann
	}

	ann.Classified = true
	ann.Label = a.classifier.Classify(expression.ScoresFromBlendshapes(face.Blendshapes))
	ann.Caption = ann.Label.Caption()
	canvas.PutText(ann.Caption, CaptionOrigin, CaptionScale, CaptionColor, CaptionThickness)

	return ann
}
