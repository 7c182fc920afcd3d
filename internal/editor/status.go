package editor

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type Status string

const (
	StatusIdle          Status = "idle"
	StatusLoading       Status = "loading"
	StatusSaving        Status = "saving"
	StatusSaved         Status = "saved"
	StatusError         Status = "error"
	StatusUnsavedChange Status = "unsaved_change"
)

type Action int

const (
	ActionInitContent Action = iota
	ActionContentLoaded
	ActionEdit
	ActionSave
	ActionCreatingThought
	ActionSaveSucceeded
	// ActionSaveFailed covers every failed store write, not only saves.
	ActionSaveFailed
)

// StatusMachine is the status lifecycle of one editing session.
//
// Saved, error and unsaved_change fall back to idle after a quiet period.
// One timer is kept per machine: every status change stops it and, when
// the new status resets, arms it again, so only the latest change counts.
type StatusMachine struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	delay    time.Duration
	status   Status
	unsaved  bool
	creating bool
	loaded   bool
	timer    clockwork.Timer
	gen      uint64
	onChange func(Status)
}

// NewStatusMachine starts in idle. onChange, if non-nil, is called with
// every new status, including auto-resets; it must not call back into the
// machine.
func NewStatusMachine(clock clockwork.Clock, delay time.Duration, onChange func(Status)) *StatusMachine {
	return &StatusMachine{
		clock:    clock,
		delay:    delay,
		status:   StatusIdle,
		onChange: onChange,
	}
}

// Dispatch applies an action and returns the resulting status.
func (m *StatusMachine) Dispatch(a Action) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.status
	switch a {
	case ActionInitContent:
		next, m.loaded, m.unsaved = StatusLoading, false, false
	case ActionContentLoaded:
		next, m.loaded, m.unsaved = StatusIdle, true, false
	case ActionEdit:
		m.unsaved = true
		if m.status == StatusIdle || m.status == StatusSaved {
			next = StatusUnsavedChange
		}
	case ActionSave:
		next = StatusSaving
	case ActionCreatingThought:
		next, m.creating = StatusSaving, true
	case ActionSaveSucceeded:
		next = StatusIdle
		if m.creating {
			next = StatusSaved
		}
		m.creating, m.unsaved = false, false
	case ActionSaveFailed:
		next, m.creating = StatusError, false
	}

	m.set(next)
	return m.status
}

// set must be called with mu held.
func (m *StatusMachine) set(next Status) {
	if next == m.status {
		return
	}
	m.status = next
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if resets(next) {
		gen := m.gen
		m.timer = m.clock.AfterFunc(m.delay, func() { m.reset(gen) })
	}
	if m.onChange != nil {
		m.onChange(next)
	}
}

func resets(s Status) bool {
	return s == StatusSaved || s == StatusError || s == StatusUnsavedChange
}

func (m *StatusMachine) reset(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	m.set(StatusIdle)
}

// Status returns the visible status.
func (m *StatusMachine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Unsaved reports whether edits exist that no save has persisted.
func (m *StatusMachine) Unsaved() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unsaved
}

// Creating reports whether the first save of a new thought is in flight.
func (m *StatusMachine) Creating() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creating
}

// Loaded reports whether content finished loading.
func (m *StatusMachine) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// Stop cancels a pending reset.
func (m *StatusMachine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
