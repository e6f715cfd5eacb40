// Package expression classifies coarse facial expressions from blendshape scores.
package expression

import "github.com/ayusman/abhinaya/internal/detector"

// Label is a discrete facial expression.
type Label string

const (
	Neutral   Label = "Neutral"
	Happy     Label = "Happy"
	Sad       Label = "Sad"
	Angry     Label = "Angry"
	Surprised Label = "Surprised"
)

// Labels lists every label in rule order, Neutral last.
var Labels = []Label{Happy, Sad, Angry, Surprised, Neutral}

// Blendshape category names read by the classifier.
const (
	CategorySmileLeft  = "mouthSmileLeft"
	CategorySmileRight = "mouthSmileRight"
	CategoryFrownLeft  = "mouthFrownLeft"
	CategoryBrowDown   = "browDownLeft"
	CategoryJawOpen    = "jawOpen"
	CategoryEyeWide    = "eyeWideLeft"
)

// Threshold is the activation a score must strictly exceed to count.
const Threshold = 0.5

// Scores holds the six blendshape activations the classifier looks at.
// Values are expected in [0,1] but are not range checked.
type Scores struct {
	SmileLeft  float64 `json:"smile_left"`
	SmileRight float64 `json:"smile_right"`
	FrownLeft  float64 `json:"frown_left"`
	BrowDown   float64 `json:"brow_down"`
	JawOpen    float64 `json:"jaw_open"`
	EyeWide    float64 `json:"eye_wide"`
}

// ScoresFromBlendshapes picks the classifier inputs out of a blendshape set.
// Missing categories score 0; if a name repeats, the first occurrence wins.
func ScoresFromBlendshapes(categories []detector.Category) Scores {
	face := &detector.Face{Blendshapes: categories}

	return Scores{
		SmileLeft:  face.Blendshape(CategorySmileLeft),
		SmileRight: face.Blendshape(CategorySmileRight),
		FrownLeft:  face.Blendshape(CategoryFrownLeft),
		BrowDown:   face.Blendshape(CategoryBrowDown),
		JawOpen:    face.Blendshape(CategoryJawOpen),
		EyeWide:    face.Blendshape(CategoryEyeWide),
	}
}

// Caption returns the overlay text for the label.
func (l Label) Caption() string {
	return "You seem " + string(l) + "!"
}

// String implements fmt.Stringer.
func (l Label) String() string {
	return string(l)
}

// Valid reports whether l is one of the known labels.
func (l Label) Valid() bool {
	for _, known := range Labels {
		if l == known {
			return true
		}
	}
	return false
}
