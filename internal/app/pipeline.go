package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/gesturetree/internal/capture"
	"github.com/ayusman/gesturetree/internal/detector"
	"github.com/ayusman/gesturetree/internal/gesture"
)

// runTracker reads the camera at the gate's rate. While idle it only looks
// for motion; while active every frame goes through the detector and the
// classifier into the scene.
func (a *App) runTracker(ctx context.Context, det detector.Detector, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval(a.gate.FPS()))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			log.Printf("Error reading frame: %v", err)
			continue
		}

		a.track(frame, det, time.Now(), ticker)
		frame.Close()
	}
}

// track handles one camera frame.
func (a *App) track(frame *gocv.Mat, det detector.Detector, now time.Time, ticker *time.Ticker) {
	fps, changed := a.gate.Observe(frame, now)
	if changed {
		a.camera.SetFPS(fps)
		ticker.Reset(interval(fps))
		if a.gate.Active() {
			log.Printf("Switched to active mode (%d fps)", fps)
		} else {
			log.Printf("Switched to idle mode (%d fps)", fps)
			// The hand has been gone for the whole timeout.
			a.Observe(nil)
		}
	}

	if !a.gate.Active() {
		a.publishPreview(frame, nil, "")
		return
	}

	hands, err := det.Detect(frame)
	if err != nil {
		log.Printf("Error detecting hands: %v", err)
		return
	}

	res := a.Observe(hands)
	if res.Hand {
		a.gate.Keep(now)
	}
	a.publishPreview(frame, hands, fmt.Sprintf("%s  %s", a.state.Mode(), res.Gesture))
}

// Observe classifies one frame of detected hands and feeds the result to
// the scene. Only the first hand counts. Without a usable hand the gesture
// becomes NONE and the hand rotation keeps its last value.
func (a *App) Observe(hands []detector.HandLandmarks) gesture.Result {
	var hand *detector.HandLandmarks
	if len(hands) > 0 {
		hand = &hands[0]
	}

	res := a.classifier.ClassifyHand(hand)
	a.state.SetGesture(res.Gesture)
	if res.Hand {
		a.state.SetHandRotation(res.Rotation)
	}
	a.machine.Apply(res.Gesture)
	return res
}

func (a *App) publishPreview(frame *gocv.Mat, hands []detector.HandLandmarks, label string) {
	capture.DrawHands(frame, hands)
	capture.DrawLabel(frame, label)
	if err := a.preview.Publish(frame); err != nil {
		log.Printf("Error publishing preview: %v", err)
	}
}

func interval(fps int) time.Duration {
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	return time.Second / time.Duration(fps)
}
