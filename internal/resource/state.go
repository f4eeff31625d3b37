package resource

import (
	"sync"
	"sync/atomic"
)

// State is the lifecycle state of a fetchable component.
type State int32

const (
	Unloaded State = iota
	Loading
	Loaded
	Error
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Listener is called after every state transition.
type Listener func(name string, from, to State)

// StateMonitor holds a lifecycle state in a single atomic slot.
// Reads never block, so it can be checked while a fetch holds other locks.
type StateMonitor struct {
	name  string
	state atomic.Int32

	mu        sync.RWMutex
	listeners []Listener
}

// NewStateMonitor returns a monitor in the Unloaded state.
func NewStateMonitor(name string) *StateMonitor {
	return &StateMonitor{name: name}
}

func (m *StateMonitor) Get() State {
	return State(m.state.Load())
}

// Set stores s unconditionally and notifies listeners if the value changed.
func (m *StateMonitor) Set(s State) {
	old := State(m.state.Swap(int32(s)))
	if old != s {
		m.notify(old, s)
	}
}

// CompareAndSet moves the state from expected to next. It reports false,
// leaving the state untouched, when the current value is not expected.
func (m *StateMonitor) CompareAndSet(expected, next State) bool {
	if !m.state.CompareAndSwap(int32(expected), int32(next)) {
		return false
	}
	if expected != next {
		m.notify(expected, next)
	}
	return true
}

// AddListener registers l for future transitions.
func (m *StateMonitor) AddListener(l Listener) {
	if l == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

func (m *StateMonitor) notify(from, to State) {
	m.mu.RLock()
	ls := append([]Listener(nil), m.listeners...)
	m.mu.RUnlock()

	for _, l := range ls {
		l(m.name, from, to)
	}
}
