package scene

import (
	"errors"
	"log"
	"sync"

	"github.com/ayusman/gesturetree/internal/gesture"
	"github.com/ayusman/gesturetree/internal/photo"
)

// ErrInvalidMode is returned by Force for modes that cannot be entered directly.
var ErrInvalidMode = errors.New("invalid mode")

// Transition describes one evaluation of the machine.
type Transition struct {
	From    Mode
	To      Mode
	Gesture gesture.Gesture
	// ActivePhotoID is the selection after the transition.
	ActivePhotoID string
	// Changed is false when the evaluation left the mode as it was.
	Changed bool
}

// Machine moves the scene between FORMED, CHAOS and PHOTO_ZOOM. It is the
// only writer of the mode and the active photo.
type Machine struct {
	state  *State
	picker photo.Picker

	// mu serialises writers (the tracker and HTTP handlers). Readers go
	// through State and never take it.
	mu        sync.Mutex
	listeners []func(Transition)
}

// NewMachine creates a machine writing to state. A nil picker picks uniformly
// at random.
func NewMachine(state *State, picker photo.Picker) *Machine {
	if picker == nil {
		picker = photo.NewRandomPicker(nil)
	}
	return &Machine{state: state, picker: picker}
}

// OnTransition adds fn to the functions called after every mode change, in
// registration order. fn runs on the caller's goroutine with the machine
// locked, so it must not call back into the machine.
func (m *Machine) OnTransition(fn func(Transition)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Apply evaluates one classified gesture against the current mode and photo
// list, both read at call time.
//
// A fist always returns to FORMED and clears the selection; doing so while
// already formed changes nothing. A pinch without photos is ignored.
func (m *Machine) Apply(g gesture.Gesture) Transition {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.state.Mode()
	t := Transition{From: from, To: from, Gesture: g, ActivePhotoID: m.state.ActivePhotoID()}

	switch {
	case g == gesture.Fist && from != ModeFormed:
		m.leave(ModeFormed, &t)
	case g == gesture.OpenPalm && from == ModePhotoZoom:
		m.leave(ModeChaos, &t)
	case g == gesture.OpenPalm && from == ModeFormed:
		m.state.setMode(ModeChaos)
		t.To, t.Changed = ModeChaos, true
	case g == gesture.Pinch && from == ModeChaos:
		id, ok := photo.Select(m.picker, m.state.Photos())
		if !ok {
			break
		}
		m.state.setActive(id)
		m.state.setMode(ModePhotoZoom)
		t.To, t.Changed, t.ActivePhotoID = ModePhotoZoom, true, id
	}

	m.report(t)
	return t
}

// Force switches to FORMED or CHAOS regardless of gesture, as the manual
// toggles and photo upload do. PHOTO_ZOOM needs a selection and is rejected.
func (m *Machine) Force(mode Mode) (Transition, error) {
	if mode != ModeFormed && mode != ModeChaos {
		return Transition{}, ErrInvalidMode
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.state.Mode()
	t := Transition{From: from, To: from, Gesture: m.state.Gesture(), ActivePhotoID: m.state.ActivePhotoID()}
	if from != mode {
		m.leave(mode, &t)
	}

	m.report(t)
	return t, nil
}

// PhotoRemoved drops the selection if id is the zoomed photo, falling back
// to CHAOS. It reports whether the mode changed.
func (m *Machine) PhotoRemoved(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.state.Mode()
	if from != ModePhotoZoom || m.state.ActivePhotoID() != id {
		return false
	}

	t := Transition{From: from, Gesture: m.state.Gesture()}
	m.leave(ModeChaos, &t)
	m.report(t)
	return true
}

// leave writes the new mode before clearing the selection, so a reader that
// still sees PHOTO_ZOOM still finds its photo.
func (m *Machine) leave(to Mode, t *Transition) {
	m.state.setMode(to)
	m.state.setActive("")
	t.To, t.Changed, t.ActivePhotoID = to, true, ""
}

func (m *Machine) report(t Transition) {
	if !t.Changed {
		return
	}
	if t.ActivePhotoID != "" {
		log.Printf("Scene: %s -> %s (%s, photo %s)", t.From, t.To, t.Gesture, t.ActivePhotoID)
	} else {
		log.Printf("Scene: %s -> %s (%s)", t.From, t.To, t.Gesture)
	}
	for _, fn := range m.listeners {
		fn(t)
	}
}
