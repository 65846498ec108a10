// Package testdata holds recorded landmark frames shared by tests.
package testdata

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ayusman/gesturetree/internal/detector"
)

//go:embed landmarks/*.json
var landmarksFS embed.FS

// Hand is one hand of a recorded frame. Points is a slice, not an array,
// so recordings can hold truncated hands.
type Hand struct {
	Points     []detector.Point3D `json:"points"`
	Handedness string             `json:"handedness"`
	Score      float64            `json:"score"`
}

// Frame is a recorded detector response in the MediaPipe service wire shape.
type Frame struct {
	Hands []Hand `json:"hands"`
}

// LoadFrame loads a recorded frame by file name.
func LoadFrame(name string) (*Frame, error) {
	data, err := landmarksFS.ReadFile("landmarks/" + name)
	if err != nil {
		return nil, fmt.Errorf("load landmarks %s: %w", name, err)
	}

	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode landmarks %s: %w", name, err)
	}
	return &f, nil
}

// LoadPoints returns the first hand's points of a recorded frame, or nil if
// the frame has no hand.
func LoadPoints(name string) ([]detector.Point3D, error) {
	f, err := LoadFrame(name)
	if err != nil {
		return nil, err
	}
	if len(f.Hands) == 0 {
		return nil, nil
	}
	return f.Hands[0].Points, nil
}

// LoadHands converts a recorded frame into detector hands. Hands with the
// wrong number of points are dropped, as the live detector does.
func LoadHands(name string) ([]detector.HandLandmarks, error) {
	f, err := LoadFrame(name)
	if err != nil {
		return nil, err
	}

	var hands []detector.HandLandmarks
	for _, h := range f.Hands {
		if len(h.Points) != detector.NumLandmarks {
			continue
		}
		lm := detector.HandLandmarks{Handedness: h.Handedness, Score: h.Score}
		copy(lm.Points[:], h.Points)
		hands = append(hands, lm)
	}
	return hands, nil
}

// Names lists the recorded frames.
func Names() []string {
	entries, err := landmarksFS.ReadDir("landmarks")
	if err != nil {
		return nil
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}
