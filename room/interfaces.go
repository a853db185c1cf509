package room

import (
	"time"

	"github.com/wfunc/nightwatch/state"
)

// Transport delivers outbound events to live connections. It is defined here
// to break the import cycle between room and broadcast.
type Transport interface {
	Send(connectionID, event string, payload interface{}) error
	Close(connectionID string) error
}

// Credentials checks the admin secret and issues bearer tokens.
type Credentials interface {
	CheckAdminSecret(secret string) error
	Issue(playerID string) (string, error)
}

// Metrics is the subset of the monitor used by the room.
type Metrics interface {
	SetOnlineParticipants(n int)
	SetGameActive(active bool)
	SetEnergy(energy int)
	IncEventReceived(event string)
	IncEventRejected(event, code string)
	ObserveEventLatency(d time.Duration)
}

// MovePredicate reports whether a character may go from one state to the next.
type MovePredicate func(kind string, from, to state.CharacterState) bool

// AnyMove accepts every move.
func AnyMove(string, state.CharacterState, state.CharacterState) bool { return true }

type noopMetrics struct{}

func (noopMetrics) SetOnlineParticipants(int)         {}
func (noopMetrics) SetGameActive(bool)                {}
func (noopMetrics) SetEnergy(int)                     {}
func (noopMetrics) IncEventReceived(string)           {}
func (noopMetrics) IncEventRejected(string, string)   {}
func (noopMetrics) ObserveEventLatency(time.Duration) {}
