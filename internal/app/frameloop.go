package app

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/ayusman/gesturetree/internal/gesture"
	"github.com/ayusman/gesturetree/internal/particle"
	"github.com/ayusman/gesturetree/internal/scene"
)

// maxDelta caps the frame time so a stall does not make objects jump.
const maxDelta = 0.1

// Message kinds sent to the renderer besides binary frames.
const (
	KindLayout = "layout"
	KindState  = "state"
)

type layoutMessage struct {
	Type string `json:"type"`
	*particle.Layout
}

// stateMessage is the discrete part of the scene state. Hand rotation is
// left out since it changes every frame and reaches the renderer through
// the population yaw.
type stateMessage struct {
	Type          string              `json:"type"`
	Mode          scene.Mode          `json:"mode"`
	Gesture       gesture.Gesture     `json:"gesture"`
	ActivePhotoID string              `json:"activePhotoId,omitempty"`
	Tracker       scene.TrackerStatus `json:"tracker"`
}

// runFrames advances the engine at the configured rate and publishes each
// frame, plus the layout and state whenever they change.
func (a *App) runFrames(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Second / time.Duration(a.settings.FPS))
	defer ticker.Stop()

	start := time.Now()
	last := start
	f := frameLoop{app: a}

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			f.step(float32(now.Sub(last).Seconds()), float32(now.Sub(start).Seconds()))
			last = now
		}
	}
}

// frameLoop is the state carried between frames.
type frameLoop struct {
	app           *App
	buf           []byte
	layoutVersion uint64
	state         stateMessage
	sentState     bool
}

func (f *frameLoop) step(delta, elapsed float32) {
	if delta > maxDelta {
		delta = maxDelta
	}

	a := f.app
	a.engine.Update(delta, elapsed)
	if a.publisher == nil {
		return
	}

	if l := a.engine.Layout(); l != nil && l.Version != f.layoutVersion {
		f.layoutVersion = l.Version
		f.publish(KindLayout, layoutMessage{Type: KindLayout, Layout: l})
	}

	snap := a.state.Snapshot()
	msg := stateMessage{
		Type:          KindState,
		Mode:          snap.Mode,
		Gesture:       snap.Gesture,
		ActivePhotoID: snap.ActivePhotoID,
		Tracker:       snap.Tracker,
	}
	if !f.sentState || msg != f.state {
		f.state = msg
		f.sentState = true
		f.publish(KindState, msg)
	}

	f.buf = a.engine.Encode(f.buf)
	a.publisher.PublishFrame(f.buf)
}

func (f *frameLoop) publish(kind string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("Error encoding %s message: %v", kind, err)
		return
	}
	f.app.publisher.PublishText(kind, data)
}
