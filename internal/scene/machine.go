// Package scene holds the scene state machine and the angular photo
// selector.
package scene

import (
	"errors"
	"fmt"

	"github.com/ayusman/hearttree/internal/gesture"
)

// NoFocus is the Focused value when no photo is focused.
const NoFocus = -1

var (
	// ErrSelectNotAllowed is returned by ClickSelect while gestures are
	// enabled or the scene is gathered.
	ErrSelectNotAllowed = errors.New("click select not allowed in current mode")

	// ErrIndexOutOfRange is returned for a photo index outside the list.
	ErrIndexOutOfRange = errors.New("photo index out of range")
)

// State is a terminal scene configuration.
type State int

const (
	// Gathered is the tree formation. It is the initial state.
	Gathered State = iota
	// Scattered is the heart and gallery formation.
	Scattered
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case Gathered:
		return "gathered"
	case Scattered:
		return "scattered"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	v, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseState parses a state name.
func ParseState(name string) (State, error) {
	switch name {
	case "gathered":
		return Gathered, nil
	case "scattered":
		return Scattered, nil
	default:
		return Gathered, fmt.Errorf("unknown scene state %q", name)
	}
}

// Snapshot is an atomic view of the machine.
type Snapshot struct {
	State           State `json:"state"`
	Focused         int   `json:"focused"`
	GesturesEnabled bool  `json:"gestures_enabled"`
}

// HasFocus reports whether a photo is focused.
func (s Snapshot) HasFocus() bool {
	return s.Focused != NoFocus
}

// Transition describes the effect of one event.
type Transition struct {
	From        State
	To          State
	PrevFocused int
	Focused     int
}

// Changed reports whether the event changed state or focus.
func (t Transition) Changed() bool {
	return t.From != t.To || t.PrevFocused != t.Focused
}

// Machine maps gestures and manual controls onto scene state. Every method
// updates state and focus together; there is no observable partial
// transition.
//
// A Machine is not safe for concurrent use. The app drives it from a single
// goroutine.
type Machine struct {
	state           State
	focused         int
	gesturesEnabled bool
	edge            gesture.EdgeDetector
}

// NewMachine returns a machine in the Gathered state with no focus and
// gestures disabled.
func NewMachine() *Machine {
	return &Machine{
		state:   Gathered,
		focused: NoFocus,
	}
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		State:           m.state,
		Focused:         m.focused,
		GesturesEnabled: m.gesturesEnabled,
	}
}

// State returns the current scene state.
func (m *Machine) State() State {
	return m.state
}

// Focused returns the focused photo index or NoFocus.
func (m *Machine) Focused() int {
	return m.focused
}

// GesturesEnabled reports whether gesture events are processed.
func (m *Machine) GesturesEnabled() bool {
	return m.gesturesEnabled
}

// SetGesturesEnabled turns gesture processing on or off. The edge detector
// is reset either way so a pinch held across the switch is not an edge
// from stale history.
func (m *Machine) SetGesturesEnabled(enabled bool) {
	m.gesturesEnabled = enabled
	m.edge.Reset()
}

// HandleGesture applies one classified gesture. photoCount is the current
// length of the photo list. Gestures are ignored while disabled.
//
//   - Fist: Gathered, focus cleared.
//   - Open: Scattered, focus cleared.
//   - Pinch on a rising edge while Scattered with photos: focus the photo
//     nearest the camera's view angle.
//   - Anything else: no change.
func (m *Machine) HandleGesture(g gesture.State, photoCount int) Transition {
	if !m.gesturesEnabled {
		return m.noop()
	}

	rising := m.edge.Observe(g.Label, gesture.Pinch)

	switch g.Label {
	case gesture.Fist:
		return m.set(Gathered, NoFocus)
	case gesture.Open:
		return m.set(Scattered, NoFocus)
	case gesture.Pinch:
		if !rising || m.state != Scattered || photoCount <= 0 {
			return m.noop()
		}
		idx, ok := Select(DirectionalViewAngle(g.Directional), photoCount)
		if !ok {
			return m.noop()
		}
		return m.set(m.state, idx)
	default:
		return m.noop()
	}
}

// Toggle flips Gathered and Scattered and clears focus. It works whether
// or not gestures are enabled.
func (m *Machine) Toggle() Transition {
	next := Scattered
	if m.state == Scattered {
		next = Gathered
	}
	return m.set(next, NoFocus)
}

// SetState moves to s and clears focus.
func (m *Machine) SetState(s State) Transition {
	return m.set(s, NoFocus)
}

// ClickSelect focuses the clicked photo, or clears focus when the same
// photo is clicked again. It is only allowed while gestures are disabled
// and the scene is Scattered.
func (m *Machine) ClickSelect(index, photoCount int) (Transition, error) {
	if m.gesturesEnabled || m.state != Scattered {
		return m.noop(), ErrSelectNotAllowed
	}
	if index < 0 || index >= photoCount {
		return m.noop(), fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, photoCount)
	}

	if m.focused == index {
		return m.set(m.state, NoFocus), nil
	}
	return m.set(m.state, index), nil
}

// PhotoRemoved keeps focus consistent after the photo at index was removed
// from the list: focus on it is cleared, focus past it shifts down by one.
func (m *Machine) PhotoRemoved(index int) Transition {
	switch {
	case m.focused == NoFocus:
		return m.noop()
	case m.focused == index:
		return m.set(m.state, NoFocus)
	case m.focused > index:
		return m.set(m.state, m.focused-1)
	default:
		return m.noop()
	}
}

func (m *Machine) set(state State, focused int) Transition {
	// Focus only exists while scattered.
	if state == Gathered {
		focused = NoFocus
	}
	t := Transition{
		From:        m.state,
		To:          state,
		PrevFocused: m.focused,
		Focused:     focused,
	}
	m.state = state
	m.focused = focused
	return t
}

func (m *Machine) noop() Transition {
	return Transition{
		From:        m.state,
		To:          m.state,
		PrevFocused: m.focused,
		Focused:     m.focused,
	}
}
