package dropzone

import (
	"fmt"
	"sync"
)

// Target is one drop region. Targets never share state.
type Target struct {
	name string

	mu       sync.Mutex
	state    State
	onDrop   func(path string)
	onChange func(dragging bool)
}

// NewTarget creates a target that calls onDrop once per completed drop.
func NewTarget(name string, onDrop func(path string)) *Target {
	return &Target{name: name, onDrop: onDrop}
}

// Name returns the target name.
func (t *Target) Name() string { return t.name }

// OnDrop replaces the drop callback.
func (t *Target) OnDrop(fn func(path string)) {
	t.mu.Lock()
	t.onDrop = fn
	t.mu.Unlock()
}

// OnDraggingChange registers a callback for highlight changes.
func (t *Target) OnDraggingChange(fn func(dragging bool)) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// Handle feeds one event. Callbacks run after the lock is released.
func (t *Target) Handle(ev Event) (string, bool) {
	t.mu.Lock()
	before := t.state.IsDragging()
	next, path, ok := Next(t.state, ev)
	t.state = next
	after := next.IsDragging()
	onDrop, onChange := t.onDrop, t.onChange
	t.mu.Unlock()

	if before != after && onChange != nil {
		onChange(after)
	}
	if ok && onDrop != nil {
		onDrop(path)
	}
	return path, ok
}

// State returns the current machine state.
func (t *Target) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// IsDragging reports whether a pointer drag is over the target.
func (t *Target) IsDragging() bool {
	return t.State().IsDragging()
}

// Reset returns the target to idle without emitting.
func (t *Target) Reset() {
	t.mu.Lock()
	t.state = State{}
	t.mu.Unlock()
}

// Group holds named targets and fans OS-level events out to all of them;
// each target decides for itself whether the event is meant for it.
type Group struct {
	targets []*Target
}

// NewGroup creates a group of targets.
func NewGroup(targets ...*Target) *Group {
	return &Group{targets: targets}
}

// Get returns the named target.
func (g *Group) Get(name string) (*Target, error) {
	for _, t := range g.targets {
		if t.name == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("unknown drop target %q", name)
}

// Broadcast sends ev to every target.
func (g *Group) Broadcast(ev Event) {
	for _, t := range g.targets {
		t.Handle(ev)
	}
}

// Reset idles every target.
func (g *Group) Reset() {
	for _, t := range g.targets {
		t.Reset()
	}
}
