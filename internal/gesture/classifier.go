// Package gesture classifies a single frame of hand landmarks into a
// discrete gesture and a continuous rotation signal.
package gesture

import (
	"fmt"

	"github.com/ayusman/gesturetree/internal/detector"
)

// Gesture is a discrete hand pose classification for one frame.
type Gesture int32

const (
	None Gesture = iota
	OpenPalm
	Fist
	Pinch
	Point
)

var gestureNames = [...]string{
	None:     "NONE",
	OpenPalm: "OPEN_PALM",
	Fist:     "FIST",
	Pinch:    "PINCH",
	Point:    "POINT",
}

func (g Gesture) String() string {
	if g < 0 || int(g) >= len(gestureNames) {
		return fmt.Sprintf("Gesture(%d)", int32(g))
	}
	return gestureNames[g]
}

// MarshalText implements encoding.TextMarshaler.
func (g Gesture) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Gesture) UnmarshalText(text []byte) error {
	for i, name := range gestureNames {
		if name == string(text) {
			*g = Gesture(i)
			return nil
		}
	}
	return fmt.Errorf("unknown gesture %q", text)
}

// Thresholds are the distance ratios and cut-offs used by Classify.
type Thresholds struct {
	// FistRatio: both fingertip distances at or below this multiple of the
	// wrist-to-index-knuckle distance classify as a fist.
	FistRatio float64 `yaml:"fistRatio"`
	// OpenRatio: both fingertip distances at or above this multiple classify
	// as an open palm.
	OpenRatio float64 `yaml:"openRatio"`
	// PinchDistance is the thumb-to-index tip distance, in normalized image
	// units, below which the hand pinches.
	PinchDistance float64 `yaml:"pinchDistance"`
	// RotationGain scales the mirrored wrist offset into HandRotation.
	RotationGain float64 `yaml:"rotationGain"`
}

// DefaultThresholds returns the stock classification thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FistRatio:     1.2,
		OpenRatio:     1.6,
		PinchDistance: 0.04,
		RotationGain:  4,
	}
}

// Result is the outcome of classifying one frame.
type Result struct {
	Gesture Gesture
	// Rotation is only meaningful when Hand is true.
	Rotation float64
	// Hand is false when the frame had no usable hand. Callers keep their
	// previous rotation in that case.
	Hand bool
}

// Classifier turns landmark frames into gestures. It holds no per-frame
// state, so a single value may be shared between goroutines.
type Classifier struct {
	th Thresholds
}

// NewClassifier creates a Classifier. Zero fields in th fall back to the defaults.
func NewClassifier(th Thresholds) *Classifier {
	def := DefaultThresholds()
	if th.FistRatio <= 0 {
		th.FistRatio = def.FistRatio
	}
	if th.OpenRatio <= 0 {
		th.OpenRatio = def.OpenRatio
	}
	if th.PinchDistance <= 0 {
		th.PinchDistance = def.PinchDistance
	}
	if th.RotationGain == 0 {
		th.RotationGain = def.RotationGain
	}
	return &Classifier{th: th}
}

// Thresholds returns the thresholds in use.
func (c *Classifier) Thresholds() Thresholds {
	return c.th
}

// ClassifyHand classifies a detected hand. A nil hand means none was detected.
func (c *Classifier) ClassifyHand(hand *detector.HandLandmarks) Result {
	if hand == nil {
		return Result{Gesture: None}
	}
	return c.Classify(hand.Points[:])
}

// Classify classifies one frame of landmarks. A frame with the wrong number
// of points, or with any point outside the unit square, is treated the same
// as no hand.
//
// FIST and OPEN_PALM are checked before PINCH, so a closed hand whose thumb
// happens to touch the index tip is still a fist.
func (c *Classifier) Classify(points []detector.Point3D) Result {
	if len(points) != detector.NumLandmarks {
		return Result{Gesture: None}
	}
	for _, p := range points {
		if !p.InFrame() {
			return Result{Gesture: None}
		}
	}

	wrist := points[detector.Wrist]
	indexTip := points[detector.IndexTip]
	pinkyTip := points[detector.PinkyTip]

	distIndex := detector.Distance2D(wrist, indexTip)
	distPinky := detector.Distance2D(wrist, pinkyTip)
	distBase := detector.Distance2D(wrist, points[detector.IndexMCP])

	res := Result{
		Hand:     true,
		Rotation: (1 - wrist.X - 0.5) * c.th.RotationGain,
	}

	fistLimit := distBase * c.th.FistRatio
	openLimit := distBase * c.th.OpenRatio

	switch {
	case distIndex <= fistLimit && distPinky <= fistLimit:
		res.Gesture = Fist
	case distIndex >= openLimit && distPinky >= openLimit:
		res.Gesture = OpenPalm
	case detector.Distance2D(indexTip, points[detector.ThumbTip]) < c.th.PinchDistance:
		res.Gesture = Pinch
	default:
		res.Gesture = None
	}

	return res
}
