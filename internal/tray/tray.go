// Package tray provides a system tray menu showing the scene state, with
// form/explode toggles and a hand tracking switch.
package tray

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/ayusman/gesturetree/internal/scene"
)

// refreshInterval is how often the status lines are redrawn.
const refreshInterval = 250 * time.Millisecond

// Tray represents the system tray application.
type Tray struct {
	state *scene.State

	onMode   func(mode scene.Mode)
	onToggle func(enabled bool)
	onOpen   func()
	onQuit   func()
	enabled  bool
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuMode     *systray.MenuItem
	menuGesture  *systray.MenuItem
	menuTracker  *systray.MenuItem
	menuToggle   *systray.MenuItem
	lastSnapshot status
}

// status is what the menu shows.
type status struct {
	mode    string
	gesture string
	tracker string
}

// New creates a Tray reading from state. enabled is the initial tracking state.
func New(state *scene.State, enabled bool) *Tray {
	return &Tray{
		state:   state,
		enabled: enabled,
	}
}

// OnMode sets the callback for the Form and Explode items.
func (t *Tray) OnMode(fn func(mode scene.Mode)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMode = fn
}

// OnToggle sets the callback function to be called when hand tracking is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpen sets the callback for the "Open Renderer" item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application and refreshes the status lines
// until ctx is done. It blocks until the tray quits, and quits the tray
// when ctx is done.
func (t *Tray) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(func() { t.onReady(ctx) }, t.onExit)
}

func (t *Tray) onReady(ctx context.Context) {
	systray.SetTitle("GestureTree")
	systray.SetTooltip("GestureTree hand-controlled scene")

	t.mu.Lock()
	t.menuMode = systray.AddMenuItem("Mode: -", "Scene mode")
	t.menuMode.Disable()
	t.menuGesture = systray.AddMenuItem("Gesture: -", "Last classified gesture")
	t.menuGesture.Disable()
	t.menuTracker = systray.AddMenuItem("Tracker: -", "Hand tracker status")
	t.menuTracker.Disable()
	systray.AddSeparator()

	menuForm := systray.AddMenuItem("Form Tree", "Assemble the tree")
	menuExplode := systray.AddMenuItem("Explode", "Scatter the tree")
	systray.AddSeparator()

	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle hand tracking")
	menuOpen := systray.AddMenuItem("Open Renderer...", "Open the scene in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit GestureTree")
	t.mu.Unlock()

	t.Refresh()

	// Handle menu item clicks in a separate goroutine
	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.Refresh()
			case <-menuForm.ClickedCh:
				t.handleMode(scene.ModeFormed)
			case <-menuExplode.ClickedCh:
				t.handleMode(scene.ModeChaos)
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// Refresh redraws the status lines if anything changed. It is safe to call
// from any goroutine, before the tray is ready included.
func (t *Tray) Refresh() {
	s := statusOf(t.state.Snapshot())

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.menuMode == nil || s == t.lastSnapshot {
		return
	}
	t.lastSnapshot = s
	t.menuMode.SetTitle(s.mode)
	t.menuGesture.SetTitle(s.gesture)
	t.menuTracker.SetTitle(s.tracker)
}

func statusOf(snap scene.Snapshot) status {
	mode := "Mode: " + snap.Mode.String()
	if snap.Mode == scene.ModePhotoZoom && snap.ActivePhotoID != "" {
		mode += " (" + shortID(snap.ActivePhotoID) + ")"
	}

	tracker := "Tracker: " + string(snap.Tracker.Phase)
	if snap.Tracker.Reason != "" {
		tracker = fmt.Sprintf("%s (%s)", tracker, snap.Tracker.Reason)
	}

	return status{
		mode:    mode,
		gesture: "Gesture: " + snap.Gesture.String(),
		tracker: tracker,
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Tracking"
	}
	return "○ Tracking Off"
}

func (t *Tray) handleMode(mode scene.Mode) {
	t.mu.RLock()
	callback := t.onMode
	t.mu.RUnlock()

	if callback != nil {
		callback(mode)
	}
}

// handleToggle flips tracking. The callback runs outside the lock.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// IsEnabled returns the current tracking state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
