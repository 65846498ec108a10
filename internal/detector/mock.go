package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a Detector whose results are set by the caller. It is used
// when no MediaPipe service is installed and by tests.
type MockDetector struct {
	mu     sync.Mutex
	hands  []HandLandmarks
	err    error
	calls  int
	closed bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Calls returns how many times Detect has run.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close marks the detector released.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// restingHand returns a right hand centred on (wristX, 0.8) with every
// landmark inside the frame. Presets override the joints they care about.
func restingHand(wristX float64) HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.95}
	for i := range h.Points {
		h.Points[i] = Point3D{X: wristX, Y: 0.72}
	}
	h.Points[Wrist] = Point3D{X: wristX, Y: 0.8}
	h.Points[IndexMCP] = Point3D{X: wristX + 0.05, Y: 0.68}
	h.Points[MiddleMCP] = Point3D{X: wristX, Y: 0.66}
	h.Points[RingMCP] = Point3D{X: wristX - 0.05, Y: 0.68}
	h.Points[PinkyMCP] = Point3D{X: wristX - 0.10, Y: 0.70}
	return h
}

// FistLandmarks returns a closed hand: both index and pinky tips are curled
// back within 1.2x the wrist-to-index-knuckle distance. The thumb rests away
// from the index tip.
func FistLandmarks() HandLandmarks {
	h := restingHand(0.5)
	h.Points[ThumbCMC] = Point3D{X: 0.54, Y: 0.76}
	h.Points[ThumbMCP] = Point3D{X: 0.57, Y: 0.72}
	h.Points[ThumbIP] = Point3D{X: 0.58, Y: 0.69}
	h.Points[ThumbTip] = Point3D{X: 0.58, Y: 0.66}

	h.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.66}
	h.Points[IndexDIP] = Point3D{X: 0.54, Y: 0.70}
	h.Points[IndexTip] = Point3D{X: 0.53, Y: 0.72}

	h.Points[MiddleTip] = Point3D{X: 0.49, Y: 0.72}
	h.Points[RingTip] = Point3D{X: 0.46, Y: 0.73}

	h.Points[PinkyPIP] = Point3D{X: 0.41, Y: 0.68}
	h.Points[PinkyDIP] = Point3D{X: 0.42, Y: 0.72}
	h.Points[PinkyTip] = Point3D{X: 0.44, Y: 0.74}
	return h
}

// OpenPalmLandmarks returns a hand with all fingers extended.
func OpenPalmLandmarks() HandLandmarks {
	h := restingHand(0.5)

	h.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	h.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	h.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	h.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	h.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55}
	h.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45}
	h.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35}

	h.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52}
	h.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40}
	h.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28}

	h.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55}
	h.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45}
	h.Points[RingTip] = Point3D{X: 0.42, Y: 0.35}

	h.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60}
	h.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50}
	h.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42}
	return h
}

// PinchLandmarks returns a hand with the index finger raised and the thumb
// tip touching it while the pinky stays curled, so neither the fist nor the
// open-palm ratio holds.
func PinchLandmarks() HandLandmarks {
	h := restingHand(0.5)
	h.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.70}
	h.Points[ThumbIP] = Point3D{X: 0.60, Y: 0.63}
	h.Points[ThumbTip] = Point3D{X: 0.60, Y: 0.57}

	h.Points[IndexPIP] = Point3D{X: 0.58, Y: 0.62}
	h.Points[IndexDIP] = Point3D{X: 0.60, Y: 0.58}
	h.Points[IndexTip] = Point3D{X: 0.62, Y: 0.55}

	h.Points[PinkyTip] = Point3D{X: 0.40, Y: 0.70}
	return h
}

// PointLandmarks is PinchLandmarks with the thumb pulled away from the index
// tip. It classifies as no gesture.
func PointLandmarks() HandLandmarks {
	h := PinchLandmarks()
	h.Points[ThumbIP] = Point3D{X: 0.66, Y: 0.72}
	h.Points[ThumbTip] = Point3D{X: 0.70, Y: 0.70}
	return h
}
