package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Motion detection constants
const (
	// BlurKernel is the Gaussian kernel size applied before differencing.
	BlurKernel = 21
	// DiffThreshold is the per-pixel intensity change that counts as changed.
	DiffThreshold = 25
)

// MotionDetector compares consecutive frames and reports the share of
// pixels that changed.
type MotionDetector struct {
	threshold   float64
	prevGray    gocv.Mat
	initialized bool
	mu          sync.Mutex
}

// NewMotionDetector creates a MotionDetector. threshold is a percentage of
// the frame: 1.0 means motion once 1% of the pixels changed.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{
		threshold: threshold,
		prevGray:  gocv.NewMat(),
	}
}

// Detect reports whether frame differs from the previous one by more than
// the threshold, and the percentage of pixels that changed. The first frame
// after creation or Reset only sets the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	prepare(frame, &blurred)

	if !m.initialized || m.prevGray.Rows() != blurred.Rows() || m.prevGray.Cols() != blurred.Cols() {
		blurred.CopyTo(&m.prevGray)
		m.initialized = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	changed := gocv.NewMat()
	defer changed.Close()
	gocv.Threshold(diff, &changed, DiffThreshold, 255, gocv.ThresholdBinary)

	percent := float64(gocv.CountNonZero(changed)) / float64(changed.Rows()*changed.Cols()) * 100.0

	blurred.CopyTo(&m.prevGray)

	return percent > m.threshold, percent
}

// prepare writes the blurred grayscale version of frame into dst.
func prepare(frame *gocv.Mat, dst *gocv.Mat) {
	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	gocv.GaussianBlur(gray, dst, image.Point{X: BlurKernel, Y: BlurKernel}, 0, 0, gocv.BorderDefault)
}

// Reset drops the baseline so the next frame starts a new comparison.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clear()
}

// Close releases the baseline frame. The detector can still be used; it
// starts over as after Reset.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clear()
}

func (m *MotionDetector) clear() {
	if !m.prevGray.Empty() {
		m.prevGray.Close()
		m.prevGray = gocv.NewMat()
	}
	m.initialized = false
}

// SetThreshold sets the motion percentage. Values less than or equal to 0 are ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.threshold = threshold
}

// Gate decides the camera rate. It runs at the idle rate until motion is
// seen, stays at the active rate while motion or a hand keeps it alive, and
// drops back once nothing happened for the idle timeout.
type Gate struct {
	motion    *MotionDetector
	idleFPS   int
	activeFPS int
	timeout   time.Duration

	mu       sync.Mutex
	active   bool
	lastSeen time.Time
}

// NewGate creates a Gate that starts idle. motion may be nil when only
// Keep and the internal clock drive the gate.
func NewGate(motion *MotionDetector, idleFPS, activeFPS int, timeout time.Duration) *Gate {
	if idleFPS <= 0 {
		idleFPS = DefaultFPS
	}
	if activeFPS < idleFPS {
		activeFPS = idleFPS
	}
	return &Gate{
		motion:    motion,
		idleFPS:   idleFPS,
		activeFPS: activeFPS,
		timeout:   timeout,
	}
}

// Observe feeds a frame through motion detection. It returns the rate the
// camera should run at and whether that rate just changed.
func (g *Gate) Observe(frame *gocv.Mat, now time.Time) (int, bool) {
	moved := false
	if g.motion != nil {
		moved, _ = g.motion.Detect(frame)
	}
	return g.observe(moved, now)
}

func (g *Gate) observe(moved bool, now time.Time) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	was := g.active
	if moved {
		g.active = true
		g.lastSeen = now
	} else if g.active && now.Sub(g.lastSeen) > g.timeout {
		g.active = false
	}
	return g.fps(), was != g.active
}

// Keep marks activity without a frame, e.g. when a hand is visible but
// holding still.
func (g *Gate) Keep(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active {
		g.lastSeen = now
	}
}

// Active reports whether the gate is running at the active rate.
func (g *Gate) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// FPS returns the current target rate.
func (g *Gate) FPS() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fps()
}

func (g *Gate) fps() int {
	if g.active {
		return g.activeFPS
	}
	return g.idleFPS
}

// Reset returns the gate to idle and drops the motion baseline.
func (g *Gate) Reset() {
	g.mu.Lock()
	g.active = false
	g.lastSeen = time.Time{}
	g.mu.Unlock()

	if g.motion != nil {
		g.motion.Reset()
	}
}
