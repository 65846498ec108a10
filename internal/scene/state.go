// Package scene holds the process-wide signals shared between the hand
// tracker, the mode machine and the particle engine, and the machine that
// moves the scene between modes.
package scene

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/ayusman/gesturetree/internal/gesture"
	"github.com/ayusman/gesturetree/internal/photo"
)

// Mode is the scene layout every population converges toward.
type Mode int32

const (
	ModeFormed Mode = iota
	ModeChaos
	ModePhotoZoom
)

var modeNames = [...]string{
	ModeFormed:    "FORMED",
	ModeChaos:     "CHAOS",
	ModePhotoZoom: "PHOTO_ZOOM",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int32(m))
	}
	return modeNames[m]
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	for i, name := range modeNames {
		if name == string(text) {
			*m = Mode(i)
			return nil
		}
	}
	return fmt.Errorf("unknown mode %q", text)
}

// Chaotic reports whether objects follow their chaos targets in m.
func (m Mode) Chaotic() bool {
	return m == ModeChaos || m == ModePhotoZoom
}

// TrackerPhase is the lifecycle of the hand tracker as shown to the user.
type TrackerPhase string

const (
	TrackerStarting    TrackerPhase = "starting"
	TrackerLive        TrackerPhase = "live"
	TrackerUnavailable TrackerPhase = "unavailable"
	TrackerStopped     TrackerPhase = "stopped"
)

// TrackerStatus is the tracker phase plus a human readable reason, set when
// the camera or detector could not be acquired.
type TrackerStatus struct {
	Phase  TrackerPhase `json:"phase"`
	Reason string       `json:"reason,omitempty"`
}

// State is the shared context injected into every component.
//
// Each field has exactly one writer: the tracker writes Gesture and
// HandRotation, the Machine writes Mode and ActivePhotoID, and the photo
// library writes the photo list. Readers never lock.
type State struct {
	mode     atomic.Int32
	gesture  atomic.Int32
	rotation atomic.Uint64
	active   atomic.Pointer[string]
	photos   atomic.Pointer[[]photo.Resource]
	tracker  atomic.Pointer[TrackerStatus]

	// photoMu serialises library writers; the copy-on-write slice keeps
	// readers lock-free.
	photoMu sync.Mutex
}

// NewState returns a State in FORMED with no photos.
func NewState() *State {
	s := &State{}
	s.photos.Store(&[]photo.Resource{})
	s.tracker.Store(&TrackerStatus{Phase: TrackerStopped})
	return s
}

// Mode returns the current mode.
func (s *State) Mode() Mode { return Mode(s.mode.Load()) }

// Gesture returns the most recently classified gesture.
func (s *State) Gesture() gesture.Gesture { return gesture.Gesture(s.gesture.Load()) }

// HandRotation returns the last rotation signal. It holds its value while no
// hand is visible.
func (s *State) HandRotation() float64 {
	return math.Float64frombits(s.rotation.Load())
}

// ActivePhotoID returns the zoomed photo, or "" when none is active.
func (s *State) ActivePhotoID() string {
	if p := s.active.Load(); p != nil {
		return *p
	}
	return ""
}

// Photos returns the current photo list. The slice must not be modified.
func (s *State) Photos() []photo.Resource {
	return *s.photos.Load()
}

// Tracker returns the tracker status.
func (s *State) Tracker() TrackerStatus {
	return *s.tracker.Load()
}

// SetGesture records the latest classification.
func (s *State) SetGesture(g gesture.Gesture) { s.gesture.Store(int32(g)) }

// SetHandRotation records the latest rotation signal.
func (s *State) SetHandRotation(r float64) { s.rotation.Store(math.Float64bits(r)) }

// SetTracker records the tracker status.
func (s *State) SetTracker(status TrackerStatus) { s.tracker.Store(&status) }

func (s *State) setMode(m Mode) { s.mode.Store(int32(m)) }

func (s *State) setActive(id string) {
	if id == "" {
		s.active.Store(nil)
		return
	}
	s.active.Store(&id)
}

// SetPhotos replaces the photo list.
func (s *State) SetPhotos(list []photo.Resource) {
	s.photoMu.Lock()
	defer s.photoMu.Unlock()
	cp := make([]photo.Resource, len(list))
	copy(cp, list)
	s.photos.Store(&cp)
}

// AddPhoto appends r to the photo list.
func (s *State) AddPhoto(r photo.Resource) {
	s.photoMu.Lock()
	defer s.photoMu.Unlock()
	old := *s.photos.Load()
	next := make([]photo.Resource, len(old), len(old)+1)
	copy(next, old)
	next = append(next, r)
	s.photos.Store(&next)
}

// RemovePhoto drops the photo with id and reports whether it was present.
func (s *State) RemovePhoto(id string) bool {
	s.photoMu.Lock()
	defer s.photoMu.Unlock()
	old := *s.photos.Load()
	next := make([]photo.Resource, 0, len(old))
	for _, r := range old {
		if r.ID != id {
			next = append(next, r)
		}
	}
	if len(next) == len(old) {
		return false
	}
	s.photos.Store(&next)
	return true
}

// Snapshot is a point-in-time copy of the shared signals.
type Snapshot struct {
	Mode          Mode             `json:"mode"`
	Gesture       gesture.Gesture  `json:"gesture"`
	HandRotation  float64          `json:"handRotation"`
	ActivePhotoID string           `json:"activePhotoId,omitempty"`
	Tracker       TrackerStatus    `json:"tracker"`
	Photos        []photo.Resource `json:"photos"`
}

// Snapshot reads every signal once, mode before the active id. A snapshot
// taken while zoom is being entered that shows PHOTO_ZOOM also has the id.
// One taken while zoom is being left can show PHOTO_ZOOM with an empty id;
// readers treat that as no selection.
func (s *State) Snapshot() Snapshot {
	mode := s.Mode()
	return Snapshot{
		Mode:          mode,
		Gesture:       s.Gesture(),
		HandRotation:  s.HandRotation(),
		ActivePhotoID: s.ActivePhotoID(),
		Tracker:       s.Tracker(),
		Photos:        s.Photos(),
	}
}
