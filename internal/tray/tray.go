// Package tray provides a system tray menu for hearttree: gesture and scene
// toggles, the last recognised gesture, and a link to the viewer.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onGestures func(enabled bool) (active bool)
	onScene    func()
	onOpen     func()
	onQuit     func()
	gestures   bool
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuGestures    *systray.MenuItem
	menuScene       *systray.MenuItem
	menuLastGesture *systray.MenuItem
}

// New creates a new Tray with gesture input shown as off.
func New() *Tray {
	return &Tray{}
}

// OnGestures sets the callback run when gesture input is toggled. It
// returns whether gesture input actually became active, which the menu
// then reflects.
func (t *Tray) OnGestures(fn func(enabled bool) (active bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onGestures = fn
}

// OnScene sets the callback run when the gather/scatter item is clicked.
func (t *Tray) OnScene(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onScene = fn
}

// OnOpen sets the callback run when the viewer menu item is clicked.
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

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Hearttree")
	systray.SetTooltip("Hearttree particle tree")

	t.mu.Lock()
	t.menuGestures = systray.AddMenuItem(gesturesTitle(t.gestures), "Toggle hand gesture control")
	t.menuScene = systray.AddMenuItem("Gather / Scatter", "Toggle the tree formation")
	systray.AddSeparator()

	t.menuLastGesture = systray.AddMenuItem("Last: none", "Last recognised gesture")
	t.menuLastGesture.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Viewer...", "Open the tree in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Hearttree")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuGestures.ClickedCh:
				t.handleGestures()
			case <-t.menuScene.ClickedCh:
				t.handleScene()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

func gesturesTitle(active bool) string {
	if active {
		return "● Gestures On"
	}
	return "○ Gestures Off"
}

// handleGestures flips gesture input and shows the resulting state.
func (t *Tray) handleGestures() {
	t.mu.RLock()
	want := !t.gestures
	callback := t.onGestures
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	active := want
	if callback != nil {
		active = callback(want)
	}
	t.SetGesturesActive(active)
}

// handleScene handles the gather/scatter menu item click.
func (t *Tray) handleScene() {
	t.mu.RLock()
	callback := t.onScene
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleOpen handles the viewer menu item click.
func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetGesturesActive updates the gesture toggle without running the
// callback, e.g. after the detector failed.
func (t *Tray) SetGesturesActive(active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.gestures = active
	if t.menuGestures != nil {
		t.menuGestures.SetTitle(gesturesTitle(active))
	}
}

// SetLastGesture updates the last gesture display in the menu.
func (t *Tray) SetLastGesture(name string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLastGesture != nil {
		if name == "" {
			t.menuLastGesture.SetTitle("Last: none")
		} else {
			t.menuLastGesture.SetTitle("Last: " + name)
		}
	}
}

// GesturesActive returns the gesture state shown in the menu.
func (t *Tray) GesturesActive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.gestures
}
