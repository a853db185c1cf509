package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wfunc/nightwatch/logger"
)

const (
	StateInactive = "inactive"
	StateActive   = "active"

	ActionOpen  = "open"
	ActionClose = "close"
)

var (
	ErrAlreadyActive    = errors.New("game already active")
	ErrNotActive        = errors.New("game not active")
	ErrUnknownSide      = errors.New("unknown door side")
	ErrUnknownCharacter = errors.New("unknown character")
	ErrInvalidAction    = errors.New("invalid door action")
)

// CharacterState is the full record of one character. Updates replace it whole.
type CharacterState struct {
	Position string   `json:"position"`
	Visible  bool     `json:"visible"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
}

// clone copies the coordinates so callers never share them with the game.
func (c CharacterState) clone() CharacterState {
	if c.X != nil {
		x := *c.X
		c.X = &x
	}
	if c.Y != nil {
		y := *c.Y
		c.Y = &y
	}
	return c
}

// Settings is the fixed game content plus the policies applied by Game.
type Settings struct {
	EnergyCeiling int
	Doors         []string
	// Characters maps character type to its starting position.
	Characters   map[string]string
	ResetOnStart bool
	NightPolicy  NightPolicy
	Now          func() time.Time
}

// Snapshot is a copy of the shared session state.
type Snapshot struct {
	Active     bool                      `json:"active"`
	Night      int                       `json:"night"`
	Energy     int                       `json:"energy"`
	Doors      map[string]bool           `json:"doors"`
	Characters map[string]CharacterState `json:"characters"`
	StartedAt  time.Time                 `json:"started_at"`
	EndedAt    time.Time                 `json:"ended_at"`
}

// Result describes a finished game.
type Result struct {
	Night     int
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
}

// Game owns the session state and moves it between the inactive and active states.
type Game struct {
	settings Settings
	machine  *BaseStateMachine
	inactive *InactiveState
	active   *ActiveState

	night      int
	energy     int
	doors      map[string]bool
	characters map[string]CharacterState
	startedAt  time.Time
	endedAt    time.Time

	mutex sync.RWMutex
}

func NewGame(settings Settings) *Game {
	if settings.NightPolicy == nil {
		settings.NightPolicy = KeepNight{}
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	if settings.EnergyCeiling < 0 {
		settings.EnergyCeiling = 0
	}

	g := &Game{
		settings: settings,
		night:    1,
	}
	g.resetContent()

	g.inactive = &InactiveState{game: g}
	g.active = &ActiveState{game: g}
	g.machine = NewBaseStateMachine(g.inactive, g.active)
	g.machine.Allow(StateInactive, StateActive, nil)
	g.machine.Allow(StateActive, StateInactive, nil)
	g.machine.Observe(func(from, to string) {
		logger.Log.Debugw("Game state changed", "from", from, "to", to, "night", g.night)
	})
	return g
}

// resetContent restores energy, doors and characters to their configured defaults.
func (g *Game) resetContent() {
	g.energy = g.settings.EnergyCeiling
	g.doors = make(map[string]bool, len(g.settings.Doors))
	for _, side := range g.settings.Doors {
		g.doors[side] = false
	}
	g.characters = make(map[string]CharacterState, len(g.settings.Characters))
	for kind, position := range g.settings.Characters {
		g.characters[kind] = CharacterState{Position: position}
	}
}

func (g *Game) isActive() bool {
	return g.machine.Current().GetID() == StateActive
}

func (g *Game) Active() bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.isActive()
}

func (g *Game) Night() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.night
}

// Start moves the game to active. Starting an active game fails without touching state.
func (g *Game) Start() (Snapshot, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if !g.machine.Can(StateActive) {
		return Snapshot{}, ErrAlreadyActive
	}
	if err := g.machine.Transition(StateActive); err != nil {
		return Snapshot{}, fmt.Errorf("start game: %w", err)
	}
	return g.snapshot(), nil
}

// End moves the game to inactive and consults the night policy.
func (g *Game) End() (Result, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if !g.machine.Can(StateInactive) {
		return Result{}, ErrNotActive
	}
	if err := g.machine.Transition(StateInactive); err != nil {
		return Result{}, fmt.Errorf("end game: %w", err)
	}

	result := Result{
		Night:     g.night,
		StartedAt: g.startedAt,
		EndedAt:   g.endedAt,
		Duration:  g.endedAt.Sub(g.startedAt),
	}
	if next := g.settings.NightPolicy.NextNight(g.night, result); next > g.night {
		g.night = next
	}
	return result, nil
}

// ParseDoorAction maps an action literal to the resulting open state.
func ParseDoorAction(action string) (bool, error) {
	switch action {
	case ActionOpen:
		return true, nil
	case ActionClose:
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
}

// SetDoor opens or closes one door and returns its new state.
func (g *Game) SetDoor(side, action string) (bool, error) {
	open, err := ParseDoorAction(action)
	if err != nil {
		return false, err
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.doors[side]; !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownSide, side)
	}
	g.doors[side] = open
	return open, nil
}

// HasCharacter reports whether kind is a configured character.
func (g *Game) HasCharacter(kind string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.characters[kind]
	return ok
}

// Character returns the current record of a character.
func (g *Game) Character(kind string) (CharacterState, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	c, ok := g.characters[kind]
	if !ok {
		return CharacterState{}, fmt.Errorf("%w: %q", ErrUnknownCharacter, kind)
	}
	return c.clone(), nil
}

// SetCharacter overwrites the full record of a character.
func (g *Game) SetCharacter(kind string, next CharacterState) (CharacterState, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.characters[kind]; !ok {
		return CharacterState{}, fmt.Errorf("%w: %q", ErrUnknownCharacter, kind)
	}
	g.characters[kind] = next.clone()
	return next.clone(), nil
}

// DrainEnergy removes amount from the energy pool, never going below zero.
func (g *Game) DrainEnergy(amount int) (int, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if !g.isActive() {
		return g.energy, ErrNotActive
	}
	if amount > 0 {
		g.energy -= amount
		if g.energy < 0 {
			g.energy = 0
		}
	}
	return g.energy, nil
}

func (g *Game) Snapshot() Snapshot {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.snapshot()
}

func (g *Game) snapshot() Snapshot {
	doors := make(map[string]bool, len(g.doors))
	for k, v := range g.doors {
		doors[k] = v
	}
	characters := make(map[string]CharacterState, len(g.characters))
	for k, v := range g.characters {
		characters[k] = v.clone()
	}
	return Snapshot{
		Active:     g.isActive(),
		Night:      g.night,
		Energy:     g.energy,
		Doors:      doors,
		Characters: characters,
		StartedAt:  g.startedAt,
		EndedAt:    g.endedAt,
	}
}

// InactiveState 游戏未开始（或已结束）
type InactiveState struct {
	game *Game
}

func (s *InactiveState) GetID() string { return StateInactive }

func (s *InactiveState) OnEnter() {
	if !s.game.startedAt.IsZero() {
		s.game.endedAt = s.game.settings.Now()
	}
}

func (s *InactiveState) OnExit() {}

// ActiveState 游戏进行中
type ActiveState struct {
	game *Game
}

func (s *ActiveState) GetID() string { return StateActive }

func (s *ActiveState) OnEnter() {
	g := s.game
	g.startedAt = g.settings.Now()
	g.endedAt = time.Time{}
	if g.settings.ResetOnStart {
		g.resetContent()
	}
}

func (s *ActiveState) OnExit() {}
