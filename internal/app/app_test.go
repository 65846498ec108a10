package app

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/gesturetree/internal/capture"
	"github.com/ayusman/gesturetree/internal/config"
	"github.com/ayusman/gesturetree/internal/detector"
	"github.com/ayusman/gesturetree/internal/geom"
	"github.com/ayusman/gesturetree/internal/gesture"
	"github.com/ayusman/gesturetree/internal/particle"
	"github.com/ayusman/gesturetree/internal/photo"
	"github.com/ayusman/gesturetree/internal/scene"
	"github.com/ayusman/gesturetree/internal/store"
)

// recorder is a Publisher that keeps everything it is given.
type recorder struct {
	mu     sync.Mutex
	frames int
	last   []byte
	texts  map[string][][]byte
}

func newRecorder() *recorder {
	return &recorder{texts: make(map[string][][]byte)}
}

func (r *recorder) PublishFrame(frame []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames++
	r.last = append(r.last[:0], frame...)
}

func (r *recorder) PublishText(kind string, msg []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts[kind] = append(r.texts[kind], msg)
}

func (r *recorder) count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.texts[kind])
}

func (r *recorder) frameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

func testSettings(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Scene.Seed = 7
	cfg.Scene.Foliage.Count = 50
	cfg.Scene.Boxes.Count = 5
	cfg.Scene.Baubles.Count = 5
	return &cfg
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestApp(t *testing.T, cfg Config) *App {
	t.Helper()
	if cfg.Settings == nil {
		cfg.Settings = testSettings(t)
	}
	if cfg.Store == nil {
		cfg.Store = testStore(t)
	}
	if cfg.Camera == nil {
		cfg.Camera = capture.NewMockCamera(nil, false)
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a
}

func addPhoto(t *testing.T, a *App, id string) {
	t.Helper()
	p := &store.Photo{ID: id, Name: id + ".png", ContentType: "image/png", Width: 4, Height: 3}
	if err := a.AddPhoto(p, []byte{1, 2, 3}); err != nil {
		t.Fatalf("AddPhoto(%s) error = %v", id, err)
	}
}

func TestNew_RequiresSettingsAndStore(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error without settings and store")
	}
}

func TestNew_InvalidScene(t *testing.T) {
	cfg := testSettings(t)
	cfg.Scene.Palette = nil
	if _, err := New(Config{Settings: cfg, Store: testStore(t)}); err == nil {
		t.Error("expected error for invalid scene config")
	}
}

func TestApp_ObserveDrivesScene(t *testing.T) {
	a := newTestApp(t, Config{})
	addPhoto(t, a, "p1")
	a.Machine().Force(scene.ModeFormed)

	steps := []struct {
		hands    []detector.HandLandmarks
		gesture  gesture.Gesture
		wantMode scene.Mode
	}{
		{[]detector.HandLandmarks{detector.OpenPalmLandmarks()}, gesture.OpenPalm, scene.ModeChaos},
		{[]detector.HandLandmarks{detector.PinchLandmarks()}, gesture.Pinch, scene.ModePhotoZoom},
		{[]detector.HandLandmarks{detector.OpenPalmLandmarks()}, gesture.OpenPalm, scene.ModeChaos},
		{[]detector.HandLandmarks{detector.FistLandmarks()}, gesture.Fist, scene.ModeFormed},
	}

	for i, step := range steps {
		res := a.Observe(step.hands)
		if res.Gesture != step.gesture {
			t.Errorf("step %d: expected gesture %s, got %s", i, step.gesture, res.Gesture)
		}
		if a.State().Mode() != step.wantMode {
			t.Errorf("step %d: expected mode %s, got %s", i, step.wantMode, a.State().Mode())
		}
	}
}

func TestApp_ObserveWithoutHandKeepsRotation(t *testing.T) {
	a := newTestApp(t, Config{})

	a.Observe([]detector.HandLandmarks{detector.OpenPalmLandmarks()})
	rotation := a.State().HandRotation()

	res := a.Observe(nil)
	if res.Gesture != gesture.None || res.Hand {
		t.Errorf("expected no hand, got %+v", res)
	}
	if a.State().Gesture() != gesture.None {
		t.Errorf("expected gesture NONE, got %s", a.State().Gesture())
	}
	if a.State().HandRotation() != rotation {
		t.Errorf("expected rotation %f kept, got %f", rotation, a.State().HandRotation())
	}
	if a.State().Mode() != scene.ModeChaos {
		t.Errorf("expected mode unchanged, got %s", a.State().Mode())
	}
}

func TestApp_AddPhotoExplodes(t *testing.T) {
	a := newTestApp(t, Config{})
	addPhoto(t, a, "p1")

	if a.State().Mode() != scene.ModeChaos {
		t.Errorf("expected CHAOS after upload, got %s", a.State().Mode())
	}

	photos := a.State().Photos()
	if len(photos) != 1 || photos[0].URL != "/api/photos/p1/image" {
		t.Fatalf("unexpected photos %+v", photos)
	}
	if photos[0].AspectRatio < 1.33 || photos[0].AspectRatio > 1.34 {
		t.Errorf("expected aspect ratio 4:3, got %f", photos[0].AspectRatio)
	}

	a.Engine().Update(0.016, 0.016)
	if n := a.Engine().Population(particle.Photos).Len(); n != 1 {
		t.Errorf("expected 1 photo card, got %d", n)
	}
}

func TestApp_RemoveActivePhotoLeavesZoom(t *testing.T) {
	a := newTestApp(t, Config{})
	addPhoto(t, a, "p1")

	a.Observe([]detector.HandLandmarks{detector.PinchLandmarks()})
	if a.State().Mode() != scene.ModePhotoZoom || a.State().ActivePhotoID() != "p1" {
		t.Fatalf("expected zoom on p1, got %s %q", a.State().Mode(), a.State().ActivePhotoID())
	}

	if err := a.RemovePhoto("p1"); err != nil {
		t.Fatalf("RemovePhoto() error = %v", err)
	}

	if a.State().Mode() == scene.ModePhotoZoom {
		t.Error("expected to leave PHOTO_ZOOM")
	}
	if a.State().ActivePhotoID() != "" {
		t.Errorf("expected no active photo, got %q", a.State().ActivePhotoID())
	}
	if len(a.State().Photos()) != 0 {
		t.Error("expected empty photo list")
	}

	if err := a.RemovePhoto("p1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for second removal, got %v", err)
	}
}

func TestApp_RemovePhotoWhilePinching(t *testing.T) {
	a := newTestApp(t, Config{})

	for round := 0; round < 20; round++ {
		addPhoto(t, a, "p1")

		stop := make(chan struct{})
		done := make(chan struct{})
		go func() {
			defer close(done)
			pinch := []detector.HandLandmarks{detector.PinchLandmarks()}
			for {
				select {
				case <-stop:
					return
				default:
					a.Observe(pinch)
				}
			}
		}()

		if err := a.RemovePhoto("p1"); err != nil {
			t.Fatalf("RemovePhoto() error = %v", err)
		}
		close(stop)
		<-done

		if a.State().Mode() == scene.ModePhotoZoom || a.State().ActivePhotoID() != "" {
			t.Fatalf("round %d: zoomed on a deleted photo: %s %q", round, a.State().Mode(), a.State().ActivePhotoID())
		}
	}
}

func TestApp_RestoresLibrary(t *testing.T) {
	s := testStore(t)
	settings := testSettings(t)

	first := newTestApp(t, Config{Settings: settings, Store: s})
	addPhoto(t, first, "a")
	addPhoto(t, first, "b")
	cam := photo.Camera{Position: geom.V3(0, 4, 30), LookAt: geom.V3(0, 4, 0), FOV: 40}
	if err := first.SetCamera(cam); err != nil {
		t.Fatalf("SetCamera() error = %v", err)
	}

	second := newTestApp(t, Config{Settings: settings, Store: s})

	if got := second.State().Photos(); len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("expected photos a, b restored, got %+v", got)
	}
	if second.State().Mode() != scene.ModeFormed {
		t.Errorf("expected a fresh scene to start FORMED, got %s", second.State().Mode())
	}
	if second.Camera() != cam {
		t.Errorf("expected stored camera, got %+v", second.Camera())
	}
}

func TestApp_SetCameraRejectsInvalid(t *testing.T) {
	a := newTestApp(t, Config{})
	before := a.Camera()

	if err := a.SetCamera(photo.Camera{FOV: 50}); !errors.Is(err, photo.ErrInvalidCamera) {
		t.Errorf("expected ErrInvalidCamera, got %v", err)
	}
	if a.Camera() != before {
		t.Error("camera should be unchanged")
	}
}

func TestFrameLoop_Publishes(t *testing.T) {
	rec := newRecorder()
	a := newTestApp(t, Config{Publisher: rec})
	f := frameLoop{app: a}

	f.step(0.016, 0.016)
	f.step(0.016, 0.032)

	if rec.frameCount() != 2 {
		t.Errorf("expected 2 frames, got %d", rec.frameCount())
	}
	if rec.count(KindLayout) != 1 {
		t.Errorf("expected one layout message, got %d", rec.count(KindLayout))
	}
	if rec.count(KindState) != 1 {
		t.Errorf("expected one state message while nothing changes, got %d", rec.count(KindState))
	}

	decoded, err := particle.DecodeFrame(rec.last)
	if err != nil {
		t.Fatalf("DecodeFrame() error = %v", err)
	}
	if len(decoded.Populations) != 5 {
		t.Errorf("expected 5 populations, got %d", len(decoded.Populations))
	}

	addPhoto(t, a, "p1")
	f.step(0.016, 0.048)

	if rec.count(KindLayout) != 2 {
		t.Errorf("expected a new layout after upload, got %d", rec.count(KindLayout))
	}
	if rec.count(KindState) != 2 {
		t.Errorf("expected a state message after the mode change, got %d", rec.count(KindState))
	}

	var msg struct {
		Type string `json:"type"`
		Mode string `json:"mode"`
	}
	rec.mu.Lock()
	json.Unmarshal(rec.texts[KindState][1], &msg)
	rec.mu.Unlock()
	if msg.Type != KindState || msg.Mode != "CHAOS" {
		t.Errorf("unexpected state message %+v", msg)
	}
}

func TestFrameLoop_ClampsDelta(t *testing.T) {
	a := newTestApp(t, Config{})

	// The star starts on the tree top and rises once the tree explodes.
	if _, err := a.Machine().Force(scene.ModeChaos); err != nil {
		t.Fatalf("Force() error = %v", err)
	}
	star := a.Engine().Population(particle.Star)
	before := star.Transform(0).Position

	f := frameLoop{app: a}
	f.step(10, 10)

	after := star.Transform(0).Position
	_, target := star.Targets(0)
	if after.Dist(target) < 1e-3 {
		t.Error("a long stall should not snap objects to their targets")
	}
	if after == before {
		t.Error("expected the star to move")
	}
}

func TestApp_StartWithoutCamera(t *testing.T) {
	cam := capture.NewMockCamera(nil, false)
	cam.FailOpen(capture.ErrCameraUnavailable)
	det := detector.NewMockDetector()

	a := newTestApp(t, Config{Camera: cam, Detector: det, Publisher: newRecorder()})
	a.Start(context.Background())
	defer a.Stop()

	status := a.State().Tracker()
	if status.Phase != scene.TrackerUnavailable || status.Reason == "" {
		t.Errorf("expected unavailable tracker with reason, got %+v", status)
	}
	if a.IsEnabled() {
		t.Error("tracker should not be running")
	}
	if cam.IsOpen() {
		t.Error("camera should not be held")
	}
}

func TestApp_StartDetectorFailureReleasesCamera(t *testing.T) {
	cam := capture.NewMockCamera(nil, false)
	settings := testSettings(t)
	settings.Detector.ScriptPath = filepath.Join(t.TempDir(), "missing.py")

	a := newTestApp(t, Config{Settings: settings, Camera: cam})
	a.Start(context.Background())
	defer a.Stop()

	if a.State().Tracker().Phase != scene.TrackerUnavailable {
		t.Errorf("expected unavailable tracker, got %+v", a.State().Tracker())
	}
	if cam.IsOpen() {
		t.Error("camera should be released when the detector cannot start")
	}
}

func TestApp_StartStop(t *testing.T) {
	rec := newRecorder()
	cam := capture.NewMockCamera(nil, false)
	det := detector.NewMockDetector()

	a := newTestApp(t, Config{Camera: cam, Detector: det, Publisher: rec})
	a.Start(context.Background())

	if a.State().Tracker().Phase != scene.TrackerLive {
		t.Errorf("expected live tracker, got %+v", a.State().Tracker())
	}
	if !a.IsEnabled() || !cam.IsOpen() {
		t.Error("expected tracker running with the camera open")
	}

	deadline := time.Now().Add(2 * time.Second)
	for rec.frameCount() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected frames to be published, got %d", rec.frameCount())
		}
		time.Sleep(10 * time.Millisecond)
	}

	a.Stop()

	if a.State().Tracker().Phase != scene.TrackerStopped {
		t.Errorf("expected stopped tracker, got %+v", a.State().Tracker())
	}
	if cam.IsOpen() {
		t.Error("camera should be closed after Stop")
	}
	if !det.Closed() {
		t.Error("detector should be closed after Stop")
	}

	n := rec.frameCount()
	time.Sleep(50 * time.Millisecond)
	if rec.frameCount() != n {
		t.Error("frames published after Stop")
	}
}

func TestApp_SetEnabled(t *testing.T) {
	cam := capture.NewMockCamera(nil, false)
	settings := testSettings(t)
	settings.Camera.Enabled = false

	a := newTestApp(t, Config{Settings: settings, Camera: cam, Detector: detector.NewMockDetector()})

	if err := a.SetEnabled(true); err == nil {
		t.Error("expected error before Start")
	}

	a.Start(context.Background())
	defer a.Stop()

	if a.IsEnabled() {
		t.Fatal("tracker should stay off when the camera is disabled")
	}

	if err := a.SetEnabled(true); err != nil {
		t.Fatalf("SetEnabled(true) error = %v", err)
	}
	if !a.IsEnabled() || a.State().Tracker().Phase != scene.TrackerLive {
		t.Error("expected tracker live")
	}

	a.Observe([]detector.HandLandmarks{detector.OpenPalmLandmarks()})
	if err := a.SetEnabled(false); err != nil {
		t.Fatalf("SetEnabled(false) error = %v", err)
	}
	if a.IsEnabled() || cam.IsOpen() {
		t.Error("expected tracker stopped and camera released")
	}
	if a.State().Gesture() != gesture.None {
		t.Errorf("expected gesture reset to NONE, got %s", a.State().Gesture())
	}
	if cam.Opens() != 1 {
		t.Errorf("expected one camera open, got %d", cam.Opens())
	}
}
