// Package dropzone turns drag gestures into at most one selected path per drop.
//
// Two sources feed a target: pointer events on the target region (enter,
// leave, over, drop) and whole-window OS file-drop events that carry real
// filesystem paths but do not know which region they landed on. A target only
// accepts OS events while a pointer is over it or right after a pointer drop
// that exposed no path.
package dropzone

import "fmt"

// Channel names of the OS-level drop events.
const (
	ChannelHover     = "file-drop-hover"
	ChannelDrop      = "file-drop"
	ChannelCancelled = "file-drop-cancelled"
)

// Phase is the coarse state of a target.
type Phase int

const (
	// Idle: no drag in progress over this target.
	Idle Phase = iota
	// Hovering: a pointer drag is inside the region (Depth > 0).
	Hovering
	// Armed: a pointer drop without a path happened; the OS drop is expected next.
	Armed
)

func (p Phase) String() string {
	switch p {
	case Hovering:
		return "hovering"
	case Armed:
		return "armed"
	default:
		return "idle"
	}
}

// State is the full machine state. Depth counts nested enter events so that
// crossing child elements does not end the hover.
type State struct {
	Phase Phase
	Depth int
}

// IsDragging reports whether the target should be highlighted.
func (s State) IsDragging() bool { return s.Phase == Hovering }

// accepting reports whether OS events are meant for this target.
func (s State) accepting() bool { return s.Phase != Idle }

// EventKind enumerates the inputs of the machine.
type EventKind int

const (
	Enter EventKind = iota
	Leave
	Over
	PointerDrop
	OSHover
	OSDrop
	OSCancel
)

var kindNames = map[EventKind]string{
	Enter:       "enter",
	Leave:       "leave",
	Over:        "over",
	PointerDrop: "drop",
	OSHover:     ChannelHover,
	OSDrop:      ChannelDrop,
	OSCancel:    ChannelCancelled,
}

func (k EventKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// ParseKind maps an event name to its kind.
func ParseKind(name string) (EventKind, error) {
	for k, s := range kindNames {
		if s == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown drop event %q", name)
}

// Event is one input. Paths is the OS payload for OSDrop, or the resolved
// path of the dropped item (if any) for PointerDrop.
type Event struct {
	Kind  EventKind
	Paths []string
}

// Next applies ev to s. It returns the new state and, when the event
// completes a drop, the selected path with ok set.
func Next(s State, ev Event) (next State, path string, ok bool) {
	switch ev.Kind {
	case Enter:
		return State{Phase: Hovering, Depth: s.Depth + 1}, "", false

	case Leave:
		depth := s.Depth - 1
		if depth <= 0 {
			return State{}, "", false
		}
		return State{Phase: s.Phase, Depth: depth}, "", false

	case PointerDrop:
		if p := first(ev.Paths); p != "" {
			return State{}, p, true
		}
		return State{Phase: Armed}, "", false

	case OSDrop:
		if !s.accepting() {
			return s, "", false
		}
		if p := first(ev.Paths); p != "" {
			return State{}, p, true
		}
		return State{}, "", false

	case OSCancel:
		if !s.accepting() {
			return s, "", false
		}
		return State{}, "", false

	default:
		// Over and OSHover carry no state change.
		return s, "", false
	}
}

// first returns the first path, or "" when there is none. Only the first
// entry of a multi-path drop is used.
func first(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	return paths[0]
}
