// Package statemachine provides a small generic state machine in the
// state-function style: each state is a function that does its work on the
// entity and returns the next state, or nil to terminate.
package statemachine

import (
	"sync"
)

// StateFn is a single state. It receives the entity the machine drives and
// returns the state to run next; nil ends the machine.
type StateFn[T any] func(*T) StateFn[T]

// Machine drives an entity through StateFn transitions. It is safe for
// concurrent inspection while one goroutine steps it.
type Machine[T any] struct {
	entity *T
	fn     StateFn[T]
	mu     sync.RWMutex
}

// New returns a machine positioned at initial.
func New[T any](entity *T, initial StateFn[T]) *Machine[T] {
	return &Machine[T]{entity: entity, fn: initial}
}

// Step runs the current state once and stores the returned state. It reports
// whether the machine can still make progress.
func (m *Machine[T]) Step() bool {
	m.mu.RLock()
	fn := m.fn
	m.mu.RUnlock()

	if fn == nil {
		return false
	}
	next := fn(m.entity)

	m.mu.Lock()
	m.fn = next
	m.mu.Unlock()
	return next != nil
}

// Run steps the machine until a state returns nil.
func (m *Machine[T]) Run() {
	for m.Step() {
	}
}

// Current returns the state the machine will run next; nil if terminated.
func (m *Machine[T]) Current() StateFn[T] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fn
}

// Set repositions the machine without running anything.
func (m *Machine[T]) Set(fn StateFn[T]) {
	m.mu.Lock()
	m.fn = fn
	m.mu.Unlock()
}
