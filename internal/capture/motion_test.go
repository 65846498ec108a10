package capture

import (
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func TestNewMotionDetector(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
	}{
		{
			name:      "default threshold",
			threshold: 1.0,
		},
		{
			name:      "high threshold",
			threshold: 5.0,
		},
		{
			name:      "low threshold",
			threshold: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := NewMotionDetector(tt.threshold)
			if md == nil {
				t.Fatal("NewMotionDetector returned nil")
			}
			defer md.Close()

			if md.threshold != tt.threshold {
				t.Errorf("threshold = %f, want %f", md.threshold, tt.threshold)
			}

			if md.initialized {
				t.Error("motion detector should not be initialized initially")
			}
		})
	}
}

func TestMotionDetector_NoMotion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0) // 1% threshold
	defer md.Close()

	frame1 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame1.Close()

	frame2 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	// First frame initializes the detector
	detected, changePercent := md.Detect(&frame1)
	if detected {
		t.Error("first frame should not detect motion")
	}
	if changePercent != 0 {
		t.Errorf("first frame changePercent = %f, want 0", changePercent)
	}

	// Second identical frame should not detect motion
	detected, changePercent = md.Detect(&frame2)
	if detected {
		t.Errorf("identical frames should not detect motion, changePercent = %f", changePercent)
	}
}

func TestMotionDetector_WithMotion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0) // 1% threshold
	defer md.Close()

	blackFrame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer blackFrame.Close()

	whiteFrame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer whiteFrame.Close()

	whiteFrame.SetTo(gocv.NewScalar(255, 255, 255, 0))

	// First frame initializes the detector
	detected, _ := md.Detect(&blackFrame)
	if detected {
		t.Error("first frame should not detect motion")
	}

	// Second frame is completely different, should detect motion
	detected, changePercent := md.Detect(&whiteFrame)
	if !detected {
		t.Errorf("black to white should detect motion, changePercent = %f", changePercent)
	}

	// Change percent should be high (close to 100% since all pixels changed)
	if changePercent < 50.0 {
		t.Errorf("changePercent = %f, expected > 50%% for black to white transition", changePercent)
	}
}

func TestMotionDetector_Reset(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()

	// Create a frame and initialize the detector
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	md.Detect(&frame)

	if !md.initialized {
		t.Error("detector should be initialized after first Detect")
	}

	// Reset should clear state
	md.Reset()

	if md.initialized {
		t.Error("detector should not be initialized after Reset")
	}

	if !md.prevGray.Empty() {
		t.Error("prevGray should be empty after Reset")
	}
}

func TestMotionDetector_SetThreshold(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	if md.threshold != 1.0 {
		t.Errorf("initial threshold = %f, want 1.0", md.threshold)
	}

	md.SetThreshold(5.0)
	if md.threshold != 5.0 {
		t.Errorf("threshold = %f, want 5.0 after SetThreshold", md.threshold)
	}

	md.SetThreshold(0.5)
	if md.threshold != 0.5 {
		t.Errorf("threshold = %f, want 0.5 after SetThreshold", md.threshold)
	}
}

func TestMotionDetector_SizeChangeResetsBaseline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()

	small := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	defer small.Close()
	large := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer large.Close()
	large.SetTo(gocv.NewScalar(255, 255, 255, 0))

	md.Detect(&small)
	detected, changePercent := md.Detect(&large)
	if detected || changePercent != 0 {
		t.Errorf("size change should start a new baseline, got %v %f", detected, changePercent)
	}
}

func TestMotionDetector_SetThreshold_Negative(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	// Setting negative threshold should be ignored
	md.SetThreshold(-1.0)
	if md.threshold != 1.0 {
		t.Errorf("negative threshold should be ignored, got %f, want 1.0", md.threshold)
	}
}

func TestMotionDetector_Close_Multiple(t *testing.T) {
	md := NewMotionDetector(1.0)

	// Close multiple times should not panic
	md.Close()
	md.Close()
}

func TestMotionDetector_Detect_AfterClose(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	md.Detect(&frame)
	md.Close()

	// Detect after close should handle gracefully (re-initialize)
	detected, _ := md.Detect(&frame)
	if detected {
		t.Error("first frame after close should not detect motion")
	}
}

func TestGate_IdleUntilMotion(t *testing.T) {
	g := NewGate(nil, 5, 15, 2*time.Second)
	now := time.Unix(0, 0)

	if g.FPS() != 5 || g.Active() {
		t.Fatalf("expected idle gate at 5 fps, got %d active=%v", g.FPS(), g.Active())
	}

	fps, changed := g.observe(false, now)
	if fps != 5 || changed {
		t.Errorf("expected no change without motion, got %d %v", fps, changed)
	}

	fps, changed = g.observe(true, now)
	if fps != 15 || !changed {
		t.Errorf("expected switch to 15 fps on motion, got %d %v", fps, changed)
	}

	fps, changed = g.observe(true, now.Add(100*time.Millisecond))
	if fps != 15 || changed {
		t.Errorf("expected to stay active, got %d %v", fps, changed)
	}
}

func TestGate_IdleTimeout(t *testing.T) {
	g := NewGate(nil, 5, 15, 2*time.Second)
	start := time.Unix(0, 0)

	g.observe(true, start)

	if fps, changed := g.observe(false, start.Add(2*time.Second)); fps != 15 || changed {
		t.Errorf("expected active at exactly the timeout, got %d %v", fps, changed)
	}

	fps, changed := g.observe(false, start.Add(2*time.Second+time.Millisecond))
	if fps != 5 || !changed {
		t.Errorf("expected idle after timeout, got %d %v", fps, changed)
	}
}

func TestGate_KeepExtendsActivity(t *testing.T) {
	g := NewGate(nil, 5, 15, 2*time.Second)
	start := time.Unix(0, 0)

	g.Keep(start)
	if g.Active() {
		t.Fatal("Keep should not wake an idle gate")
	}

	g.observe(true, start)
	g.Keep(start.Add(1500 * time.Millisecond))

	if fps, _ := g.observe(false, start.Add(3*time.Second)); fps != 15 {
		t.Errorf("expected hand to keep gate active, got %d", fps)
	}
	if fps, _ := g.observe(false, start.Add(4*time.Second)); fps != 5 {
		t.Errorf("expected idle once the hand is gone, got %d", fps)
	}
}

func TestGate_Reset(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	g := NewGate(md, 5, 15, time.Second)
	g.observe(true, time.Unix(0, 0))
	g.Reset()

	if g.Active() || g.FPS() != 5 {
		t.Errorf("expected idle after reset, got %d", g.FPS())
	}
}

func TestNewGate_Defaults(t *testing.T) {
	g := NewGate(nil, 0, 1, time.Second)
	if g.idleFPS != DefaultFPS || g.activeFPS != DefaultFPS {
		t.Errorf("expected %d/%d, got %d/%d", DefaultFPS, DefaultFPS, g.idleFPS, g.activeFPS)
	}
}

func TestGate_Observe(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()
	g := NewGate(md, 5, 15, time.Second)

	black := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer black.Close()
	white := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer white.Close()
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))

	now := time.Unix(0, 0)
	if fps, _ := g.Observe(&black, now); fps != 5 {
		t.Errorf("expected idle on baseline frame, got %d", fps)
	}
	if fps, changed := g.Observe(&white, now); fps != 15 || !changed {
		t.Errorf("expected active after motion, got %d %v", fps, changed)
	}
}
