// Package app wires hand tracking, the scene state machine and the particle
// engine together and runs their loops.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ayusman/gesturetree/internal/capture"
	"github.com/ayusman/gesturetree/internal/config"
	"github.com/ayusman/gesturetree/internal/detector"
	"github.com/ayusman/gesturetree/internal/gesture"
	"github.com/ayusman/gesturetree/internal/particle"
	"github.com/ayusman/gesturetree/internal/photo"
	"github.com/ayusman/gesturetree/internal/scene"
	"github.com/ayusman/gesturetree/internal/server/api"
	"github.com/ayusman/gesturetree/internal/store"
)

// Publisher receives what the frame loop produces.
type Publisher interface {
	// PublishFrame is called once per frame; frame is reused afterwards.
	PublishFrame(frame []byte)
	// PublishText replaces the latest JSON message of the given kind.
	PublishText(kind string, msg []byte)
}

// Config holds what the application needs beyond the loaded settings.
type Config struct {
	Settings  *config.Config
	Store     *store.Store
	Publisher Publisher

	// Camera and Detector replace the webcam and the MediaPipe service.
	// Both are optional.
	Camera   capture.Camera
	Detector detector.Detector
}

// App owns the scene and the tracker.
type App struct {
	settings  *config.Config
	store     *store.Store
	publisher Publisher

	state      *scene.State
	machine    *scene.Machine
	engine     *particle.Engine
	classifier *gesture.Classifier

	camera   capture.Camera
	motion   *capture.MotionDetector
	gate     *capture.Gate
	preview  *capture.Preview
	detector detector.Detector

	mu            sync.Mutex
	ctx           context.Context
	stopFrames    context.CancelFunc
	framesDone    chan struct{}
	stopTracker   context.CancelFunc
	trackerDone   chan struct{}
	activeTracker detector.Detector
}

// New builds the scene from the settings and restores the photo library
// and renderer camera from the store. Nothing is acquired or started.
func New(cfg Config) (*App, error) {
	if cfg.Settings == nil || cfg.Store == nil {
		return nil, errors.New("app: settings and store are required")
	}
	s := cfg.Settings

	state := scene.NewState()
	engine, err := particle.New(s.Scene, state)
	if err != nil {
		return nil, err
	}

	camera := cfg.Camera
	if camera == nil {
		camera = capture.NewCamera(capture.CameraConfig{DeviceID: s.Camera.ID, FPS: s.Camera.IdleFPS})
	}
	motion := capture.NewMotionDetector(s.Camera.MotionThreshold)

	a := &App{
		settings:   s,
		store:      cfg.Store,
		publisher:  cfg.Publisher,
		state:      state,
		machine:    scene.NewMachine(state, nil),
		engine:     engine,
		classifier: gesture.NewClassifier(s.Gesture),
		camera:     camera,
		motion:     motion,
		gate:       capture.NewGate(motion, s.Camera.IdleFPS, s.Camera.ActiveFPS, s.Camera.IdleTimeout),
		preview:    capture.NewPreview(),
		detector:   cfg.Detector,
	}

	if err := a.restore(); err != nil {
		return nil, err
	}
	return a, nil
}

// restore loads the stored photos and camera. An unreadable camera setting
// is logged and the configured camera is kept.
func (a *App) restore() error {
	photos, err := a.store.Photos().List()
	if err != nil {
		return fmt.Errorf("load photos: %w", err)
	}

	resources := make([]photo.Resource, 0, len(photos))
	for _, p := range photos {
		r := toResource(p)
		resources = append(resources, r)
		a.engine.AddPhoto(r)
	}
	a.state.SetPhotos(resources)

	var cam photo.Camera
	switch err := a.store.Settings().Get(store.SettingCamera, &cam); {
	case err == nil:
		if verr := cam.Validate(); verr != nil {
			log.Printf("Ignoring stored camera: %v", verr)
		} else {
			a.engine.SetCamera(cam)
		}
	case errors.Is(err, store.ErrNotFound):
	default:
		log.Printf("Failed to load camera setting: %v", err)
	}

	log.Printf("Loaded %d photos from database", len(photos))
	return nil
}

// Start runs the frame loop and, if the camera is enabled in the settings,
// the tracker. A tracker that cannot be acquired is reported through the
// tracker status; the scene runs regardless. Both loops stop when ctx is
// cancelled or Stop is called.
func (a *App) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopFrames != nil {
		return
	}

	a.ctx = ctx
	frameCtx, cancel := context.WithCancel(ctx)
	a.stopFrames = cancel
	a.framesDone = make(chan struct{})
	go a.runFrames(frameCtx, a.framesDone)
	log.Printf("Frame loop started at %d fps", a.settings.FPS)

	if a.settings.Camera.Enabled {
		if err := a.startTracker(); err != nil {
			log.Printf("Hand tracking unavailable: %v", err)
		}
	}
}

// Stop halts both loops and releases the camera, motion detector and
// detector handle. It waits for the loops to exit.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopTrackerLocked()

	if a.stopFrames != nil {
		a.stopFrames()
		<-a.framesDone
		a.stopFrames = nil
		log.Println("Frame loop stopped")
	}
	a.ctx = nil

	a.motion.Close()
}

// SetEnabled starts or stops hand tracking while the app is running.
func (a *App) SetEnabled(enabled bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ctx == nil {
		return errors.New("app not started")
	}
	if enabled {
		return a.startTracker()
	}
	a.stopTrackerLocked()
	return nil
}

// IsEnabled reports whether the tracker loop is running.
func (a *App) IsEnabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopTracker != nil
}

// startTracker acquires the camera and the detector, in that order, and
// starts the tracker loop. On failure everything acquired so far is
// released. a.mu must be held.
func (a *App) startTracker() error {
	if a.stopTracker != nil {
		return nil
	}

	a.state.SetTracker(scene.TrackerStatus{Phase: scene.TrackerStarting})

	if err := a.camera.Open(); err != nil {
		return a.unavailable(fmt.Errorf("open camera: %w", err))
	}

	det := a.detector
	if det == nil {
		mp, err := detector.NewMediaPipeDetector(a.settings.Detector)
		if err != nil {
			a.closeCamera()
			return a.unavailable(fmt.Errorf("start detector: %w", err))
		}
		det = mp
	}

	a.gate.Reset()
	a.camera.SetFPS(a.gate.FPS())

	ctx, cancel := context.WithCancel(a.ctx)
	a.stopTracker = cancel
	a.trackerDone = make(chan struct{})
	a.activeTracker = det
	go a.runTracker(ctx, det, a.trackerDone)

	a.setTracker(scene.TrackerStatus{Phase: scene.TrackerLive})
	return nil
}

// stopTrackerLocked stops the tracker loop and releases what it holds.
// a.mu must be held.
func (a *App) stopTrackerLocked() {
	if a.stopTracker == nil {
		return
	}

	a.stopTracker()
	<-a.trackerDone
	a.stopTracker = nil

	a.closeCamera()
	a.motion.Reset()
	if err := a.activeTracker.Close(); err != nil {
		log.Printf("Error closing detector: %v", err)
	}
	a.activeTracker = nil

	// Nobody is steering any more.
	a.state.SetGesture(gesture.None)
	a.setTracker(scene.TrackerStatus{Phase: scene.TrackerStopped})
}

func (a *App) closeCamera() {
	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
}

func (a *App) unavailable(err error) error {
	a.setTracker(scene.TrackerStatus{Phase: scene.TrackerUnavailable, Reason: err.Error()})
	return err
}

func (a *App) setTracker(status scene.TrackerStatus) {
	a.state.SetTracker(status)
	if status.Reason != "" {
		log.Printf("Tracker %s: %s", status.Phase, status.Reason)
	} else {
		log.Printf("Tracker %s", status.Phase)
	}
}

// State returns the shared scene signals.
func (a *App) State() *scene.State { return a.state }

// Machine returns the scene state machine.
func (a *App) Machine() *scene.Machine { return a.machine }

// Engine returns the particle engine.
func (a *App) Engine() *particle.Engine { return a.engine }

// Preview returns the annotated camera preview.
func (a *App) Preview() *capture.Preview { return a.preview }

// Camera returns the renderer camera the zoom target is computed against.
func (a *App) Camera() photo.Camera { return a.engine.Camera() }

// SetCamera validates, persists and applies a renderer camera.
func (a *App) SetCamera(c photo.Camera) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := a.store.Settings().Set(store.SettingCamera, c); err != nil {
		return fmt.Errorf("save camera: %w", err)
	}
	a.engine.SetCamera(c)
	return nil
}

// AddPhoto stores an uploaded photo, adds it to the scene and explodes the
// tree so the new card is visible.
func (a *App) AddPhoto(p *store.Photo, data []byte) error {
	if err := a.store.Photos().Create(p, data); err != nil {
		return fmt.Errorf("store photo: %w", err)
	}

	r := toResource(p)
	a.state.AddPhoto(r)
	a.engine.AddPhoto(r)
	if _, err := a.machine.Force(scene.ModeChaos); err != nil {
		return err
	}

	log.Printf("Photo added: %s (%s, %dx%d)", p.ID, p.Name, p.Width, p.Height)
	return nil
}

// RemovePhoto deletes a photo. If it was being zoomed on, the scene leaves
// PHOTO_ZOOM. Returns store.ErrNotFound for unknown ids.
//
// The photo leaves the shared list before the machine is told, so a pinch
// racing with the removal either never sees it or is undone by PhotoRemoved.
func (a *App) RemovePhoto(id string) error {
	if err := a.store.Photos().Delete(id); err != nil {
		return err
	}

	a.state.RemovePhoto(id)
	a.machine.PhotoRemoved(id)
	a.engine.RemovePhoto(id)

	log.Printf("Photo removed: %s", id)
	return nil
}

func toResource(p *store.Photo) photo.Resource {
	return photo.Resource{
		ID:          p.ID,
		URL:         api.ImageURL(p.ID),
		AspectRatio: float32(p.AspectRatio()),
	}
}
