// Package hook runs external programs when the scene changes mode, for
// example a script that dims the room lights once the tree has formed.
//
// Each hook lives in its own directory under the hooks directory, next to a
// hook.json manifest. On a matching transition the hook's executable is run
// with an Event as JSON on stdin and must print a Response as JSON on stdout.
package hook

import (
	"encoding/json"

	"github.com/ayusman/gesturetree/internal/scene"
)

// ManifestFile is the manifest looked for in each hook directory.
const ManifestFile = "hook.json"

// Manifest describes a hook.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Executable  string `json:"executable"`
	// Modes lists the modes whose entry runs the hook. Empty means any
	// mode change.
	Modes  []string        `json:"modes,omitempty"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Event is written to a hook's stdin.
type Event struct {
	Event         string          `json:"event"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	Gesture       string          `json:"gesture"`
	ActivePhotoID string          `json:"activePhotoId,omitempty"`
	Config        json.RawMessage `json:"config,omitempty"`
}

// EventTransition is the only event sent so far.
const EventTransition = "transition"

// NewEvent describes a mode change for h.
func NewEvent(h *Hook, t scene.Transition) *Event {
	return &Event{
		Event:         EventTransition,
		From:          t.From.String(),
		To:            t.To.String(),
		Gesture:       t.Gesture.String(),
		ActivePhotoID: t.ActivePhotoID,
		Config:        h.Manifest.Config,
	}
}

// Response is what a hook prints on stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Hook is a discovered hook.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Wants reports whether entering mode should run the hook.
func (h *Hook) Wants(mode scene.Mode) bool {
	if len(h.Manifest.Modes) == 0 {
		return true
	}
	for _, m := range h.Manifest.Modes {
		if m == mode.String() {
			return true
		}
	}
	return false
}
