package state

import (
	"errors"
	"fmt"
	"sync"
)

// 状态机接口
type StateMachine interface {
	Current() State
	Can(to string) bool
	Transition(to string) error
}

// 状态接口
type State interface {
	OnEnter()
	OnExit()
	GetID() string
}

// Guard may veto a registered transition.
type Guard func() bool

var (
	// ErrTransitionNotAllowed is returned when no edge is registered between
	// two states or its guard rejects the change.
	ErrTransitionNotAllowed = errors.New("state transition not allowed")
	ErrUnknownState         = errors.New("unknown state")
)

type edge struct {
	from, to string
}

// BaseStateMachine moves between registered states along registered edges only.
type BaseStateMachine struct {
	current   State
	states    map[string]State
	edges     map[edge]Guard
	observers []func(from, to string)
	mutex     sync.RWMutex
}

// NewBaseStateMachine registers every given state and enters initial.
func NewBaseStateMachine(initial State, others ...State) *BaseStateMachine {
	sm := &BaseStateMachine{
		current: initial,
		states:  make(map[string]State, len(others)+1),
		edges:   make(map[edge]Guard),
	}
	sm.states[initial.GetID()] = initial
	for _, s := range others {
		sm.states[s.GetID()] = s
	}
	initial.OnEnter()
	return sm
}

// Allow registers the edge from -> to. A nil guard always passes.
func (sm *BaseStateMachine) Allow(from, to string, guard Guard) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	if _, ok := sm.states[from]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownState, from)
	}
	if _, ok := sm.states[to]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownState, to)
	}
	sm.edges[edge{from, to}] = guard
	return nil
}

// Observe registers fn to run after every successful transition.
func (sm *BaseStateMachine) Observe(fn func(from, to string)) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.observers = append(sm.observers, fn)
}

func (sm *BaseStateMachine) Current() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.current
}

func (sm *BaseStateMachine) Can(to string) bool {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.allowed(to)
}

func (sm *BaseStateMachine) allowed(to string) bool {
	guard, ok := sm.edges[edge{sm.current.GetID(), to}]
	return ok && (guard == nil || guard())
}

// Transition runs OnExit of the current state and OnEnter of the target.
func (sm *BaseStateMachine) Transition(to string) error {
	sm.mutex.Lock()
	from := sm.current.GetID()
	if !sm.allowed(to) {
		sm.mutex.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, from, to)
	}

	next := sm.states[to]
	sm.current.OnExit()
	sm.current = next
	next.OnEnter()

	observers := make([]func(from, to string), len(sm.observers))
	copy(observers, sm.observers)
	sm.mutex.Unlock()

	for _, fn := range observers {
		fn(from, to)
	}
	return nil
}
