package app

import (
	"errors"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/gesturetree/internal/detector"
	"github.com/ayusman/gesturetree/internal/gesture"
	"github.com/ayusman/gesturetree/internal/scene"
)

func testFrames(t *testing.T) (black, white gocv.Mat) {
	t.Helper()
	black = gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	white = gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))
	t.Cleanup(func() {
		black.Close()
		white.Close()
	})
	return black, white
}

func TestPipeline_IdleActiveSwitching(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.OpenPalmLandmarks()})
	a := newTestApp(t, Config{Detector: det})

	black, white := testFrames(t)
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	start := time.Unix(100, 0)

	// Baseline frame: idle, detector untouched.
	a.track(&black, det, start, ticker)
	if a.gate.Active() || det.Calls() != 0 {
		t.Fatalf("expected idle without detection, active=%v calls=%d", a.gate.Active(), det.Calls())
	}

	// Motion wakes the gate and the hand explodes the tree.
	a.track(&white, det, start.Add(200*time.Millisecond), ticker)
	if !a.gate.Active() {
		t.Fatal("expected active after motion")
	}
	if det.Calls() != 1 {
		t.Errorf("expected one detection, got %d", det.Calls())
	}
	if a.State().Mode() != scene.ModeChaos || a.State().Gesture() != gesture.OpenPalm {
		t.Errorf("expected CHAOS/OPEN_PALM, got %s/%s", a.State().Mode(), a.State().Gesture())
	}

	// A visible hand keeps the gate active without motion.
	a.track(&white, det, start.Add(2*time.Second), ticker)
	a.track(&white, det, start.Add(3500*time.Millisecond), ticker)
	if !a.gate.Active() {
		t.Error("expected a visible hand to keep the gate active")
	}

	// Hand gone, no motion: idle after the timeout and the gesture clears.
	det.SetHands(nil)
	a.track(&white, det, start.Add(4*time.Second), ticker)
	a.track(&white, det, start.Add(7*time.Second), ticker)
	if a.gate.Active() {
		t.Error("expected idle after the timeout")
	}
	if a.State().Gesture() != gesture.None {
		t.Errorf("expected NONE after going idle, got %s", a.State().Gesture())
	}
	if a.State().Mode() != scene.ModeChaos {
		t.Errorf("expected the scene to stay exploded, got %s", a.State().Mode())
	}

	if data, seq := a.Preview().Latest(); seq == 0 || len(data) == 0 {
		t.Error("expected preview frames to be published")
	}
}

func TestPipeline_DetectorErrorKeepsState(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.OpenPalmLandmarks()})
	a := newTestApp(t, Config{Detector: det})

	black, white := testFrames(t)
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	start := time.Unix(100, 0)

	a.track(&black, det, start, ticker)
	a.track(&white, det, start.Add(100*time.Millisecond), ticker)

	det.SetError(errors.New("service crashed"))
	a.track(&black, det, start.Add(200*time.Millisecond), ticker)

	if a.State().Gesture() != gesture.OpenPalm {
		t.Errorf("expected stale OPEN_PALM after a detector error, got %s", a.State().Gesture())
	}
	if a.State().Mode() != scene.ModeChaos {
		t.Errorf("expected CHAOS, got %s", a.State().Mode())
	}
}
