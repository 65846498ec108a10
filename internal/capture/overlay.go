package capture

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/gesturetree/internal/detector"
)

var (
	boneColor  = color.RGBA{R: 212, G: 175, B: 55, A: 255}
	jointColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	labelColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}
)

// DrawHands draws the skeleton of every valid hand onto frame. Landmarks
// are normalized, so they are scaled to the frame size.
func DrawHands(frame *gocv.Mat, hands []detector.HandLandmarks) {
	if frame == nil || frame.Empty() {
		return
	}
	w, h := frame.Cols(), frame.Rows()

	for i := range hands {
		hand := &hands[i]
		if !hand.Valid() {
			continue
		}

		for _, c := range detector.Connections {
			gocv.Line(frame, pixel(hand.Points[c[0]], w, h), pixel(hand.Points[c[1]], w, h), boneColor, 2)
		}
		for _, p := range hand.Points {
			gocv.Circle(frame, pixel(p, w, h), 4, jointColor, -1)
		}
	}
}

// DrawLabel writes text in the top-left corner of frame.
func DrawLabel(frame *gocv.Mat, text string) {
	if frame == nil || frame.Empty() || text == "" {
		return
	}
	gocv.PutText(frame, text, image.Pt(10, 30), gocv.FontHersheySimplex, 0.8, labelColor, 2)
}

func pixel(p detector.Point3D, w, h int) image.Point {
	return image.Pt(int(p.X*float64(w)), int(p.Y*float64(h)))
}
