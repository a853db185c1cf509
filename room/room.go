// room/room.go
package room

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wfunc/nightwatch/audit"
	"github.com/wfunc/nightwatch/logger"
	"github.com/wfunc/nightwatch/network"
	"github.com/wfunc/nightwatch/session"
	"github.com/wfunc/nightwatch/state"
)

const Version = "1.0"

type handlerFunc func(connectionID string, payload json.RawMessage) (*outcome, error)

// Options 房间依赖与策略
type Options struct {
	Registry    *session.Registry
	Game        *state.Game
	Transport   Transport
	Credentials Credentials
	Sink        audit.Sink
	Metrics     Metrics

	MovePredicate MovePredicate
	// Drain is consulted on every DrainEnergy tick. Nil disables draining.
	Drain state.DrainPolicy

	GuardOnlyDoors          bool
	RequireActiveForActions bool

	Now func() time.Time
}

// Room routes inbound events for the single shared session. One mutex
// serializes every handler so registry and game mutations never interleave.
type Room struct {
	registry    *session.Registry
	game        *state.Game
	transport   Transport
	credentials Credentials
	sink        audit.Sink
	metrics     Metrics
	canMove     MovePredicate
	drain       state.DrainPolicy

	guardOnlyDoors          bool
	requireActiveForActions bool

	handlers map[string]handlerFunc
	now      func() time.Time
	mutex    sync.Mutex
}

func New(opts Options) *Room {
	r := &Room{
		registry:                opts.Registry,
		game:                    opts.Game,
		transport:               opts.Transport,
		credentials:             opts.Credentials,
		sink:                    opts.Sink,
		metrics:                 opts.Metrics,
		canMove:                 opts.MovePredicate,
		drain:                   opts.Drain,
		guardOnlyDoors:          opts.GuardOnlyDoors,
		requireActiveForActions: opts.RequireActiveForActions,
		now:                     opts.Now,
	}
	if r.registry == nil {
		r.registry = session.NewRegistry()
	}
	if r.sink == nil {
		r.sink = audit.Discard{}
	}
	if r.metrics == nil {
		r.metrics = noopMetrics{}
	}
	if r.canMove == nil {
		r.canMove = AnyMove
	}
	if r.now == nil {
		r.now = time.Now
	}

	r.handlers = map[string]handlerFunc{
		network.EventAuthenticate:      r.handleAuthenticate,
		network.EventDoorAction:        r.handleDoorAction,
		network.EventCharacterMove:     r.handleCharacterMove,
		network.EventPing:              r.handlePing,
		network.EventStartGame:         r.handleStartGame,
		network.EventEndGame:           r.handleEndGame,
		network.EventRequestPlayerList: r.handleRequestPlayerList,
		network.EventKickPlayer:        r.handleKickPlayer,
	}

	r.metrics.SetGameActive(r.game.Active())
	r.metrics.SetEnergy(r.game.Snapshot().Energy)
	return r
}

// OnConnect is called by the transport once a connection is open. Nothing is
// registered until the connection authenticates.
func (r *Room) OnConnect(connectionID string) {
	logger.Log.Debugw("Connection opened", "connection_id", connectionID)
}

// OnEvent dispatches one inbound event.
func (r *Room) OnEvent(connectionID, event string, payload json.RawMessage) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	start := r.now()
	defer func() { r.metrics.ObserveEventLatency(r.now().Sub(start)) }()

	handler, ok := r.handlers[event]
	if !ok {
		r.metrics.IncEventReceived("unknown")
		r.reject(connectionID, event, fmt.Errorf("%w: %q", ErrUnknownEvent, event))
		return
	}
	r.metrics.IncEventReceived(event)

	out, err := handler(connectionID, payload)
	if err != nil {
		r.reject(connectionID, event, err)
		if event == network.EventAuthenticate {
			if _, lookupErr := r.registry.Lookup(connectionID); lookupErr != nil {
				r.terminate(connectionID)
			}
		}
		return
	}
	r.apply(connectionID, out)
}

// OnMalformed answers a frame that could not be decoded.
func (r *Room) OnMalformed(connectionID string, cause error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reject(connectionID, "", fmt.Errorf("%w: %v", ErrInvalidPayload, cause))
}

// OnDisconnect removes the participant and tells the others.
func (r *Room) OnDisconnect(connectionID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	p, err := r.registry.Unregister(connectionID)
	if err != nil {
		// 未认证或已被踢出
		return
	}
	r.metrics.SetOnlineParticipants(r.registry.Len())
	logger.Log.Infow("Participant left", "connection_id", p.ConnectionID, "name", p.DisplayName, "role", p.Role)

	out := &outcome{}
	out.send(All, network.EventParticipantLeft, leftPayload(p))
	r.apply(connectionID, out)
}

// DrainEnergy applies one tick of the drain policy while a game is running.
func (r *Room) DrainEnergy() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.drain == nil || !r.game.Active() {
		return
	}
	amount := r.drain.Amount(r.game.Snapshot())
	if amount == 0 {
		return
	}
	before := r.game.Snapshot().Energy
	energy, err := r.game.DrainEnergy(amount)
	if err != nil || energy == before {
		return
	}
	r.metrics.SetEnergy(energy)

	out := &outcome{}
	out.send(All, network.EventEnergyUpdate, EnergyUpdate{Energy: energy})
	r.apply("", out)
}

func (r *Room) Status() Status {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	snap := r.game.Snapshot()
	return Status{
		Status:       "online",
		Players:      r.registry.Len(),
		CurrentNight: snap.Night,
		GameActive:   snap.Active,
		Energy:       snap.Energy,
		Version:      Version,
	}
}

// Snapshot returns a copy of the shared game state.
func (r *Room) Snapshot() state.Snapshot {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.game.Snapshot()
}

// Participants lists registered participants in join order.
func (r *Room) Participants() []session.Participant {
	return r.registry.List()
}

// apply emits messages, then closes terminated connections, then records audits.
func (r *Room) apply(sender string, out *outcome) {
	if out == nil {
		return
	}
	for _, msg := range out.messages {
		for _, id := range r.recipients(sender, msg) {
			r.deliver(id, msg.Event, msg.Payload)
		}
	}
	for _, id := range out.terminate {
		r.terminate(id)
	}
	for _, rec := range out.audits {
		r.sink.Record(rec.kind, rec.fields)
	}
}

func (r *Room) recipients(sender string, msg Message) []string {
	switch msg.FanOut {
	case SenderOnly:
		if sender == "" {
			return nil
		}
		return []string{sender}
	case TargetOnly:
		if msg.Target == "" {
			return nil
		}
		return []string{msg.Target}
	case AdminOnly:
		if admin, ok := r.registry.Admin(); ok {
			return []string{admin}
		}
		return nil
	}

	participants := r.registry.List()
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		if msg.FanOut == AllExceptSender && p.ConnectionID == sender {
			continue
		}
		ids = append(ids, p.ConnectionID)
	}
	return ids
}

func (r *Room) deliver(connectionID, event string, payload interface{}) {
	if r.transport == nil {
		return
	}
	if err := r.transport.Send(connectionID, event, payload); err != nil {
		logger.Log.Debugw("Send failed", "connection_id", connectionID, "event", event, "error", err)
	}
}

func (r *Room) terminate(connectionID string) {
	if r.transport == nil {
		return
	}
	if err := r.transport.Close(connectionID); err != nil {
		logger.Log.Debugw("Close failed", "connection_id", connectionID, "error", err)
	}
}

// reject replies to the sender only.
func (r *Room) reject(connectionID, event string, err error) {
	code := ErrorCode(err)
	label := event
	if _, ok := r.handlers[event]; !ok {
		label = "unknown"
	}
	r.metrics.IncEventRejected(label, code)
	if code == CodeInternal {
		logger.Log.Errorw("Event failed", "connection_id", connectionID, "event", event, "error", err)
	} else {
		logger.Log.Infow("Event rejected", "connection_id", connectionID, "event", event, "code", code, "error", err)
	}

	reply := ErrorReply{Event: event, Code: code, Message: err.Error()}
	if event == network.EventAuthenticate {
		r.deliver(connectionID, network.EventAuthError, reply)
	} else {
		r.deliver(connectionID, network.EventError, reply)
	}
}

// participant resolves the sender, mapping an unknown connection to ErrNotRegistered.
func (r *Room) participant(connectionID string) (session.Participant, error) {
	p, err := r.registry.Lookup(connectionID)
	if errors.Is(err, session.ErrNotFound) {
		return p, ErrNotRegistered
	}
	return p, err
}

func (r *Room) requireAdmin(connectionID string) (session.Participant, error) {
	p, err := r.participant(connectionID)
	if err != nil {
		return p, err
	}
	if p.Role != session.RoleAdmin {
		return p, ErrNotAdmin
	}
	return p, nil
}

// decode unmarshals an optional payload.
func decode(payload json.RawMessage, v interface{}) error {
	if len(payload) == 0 || string(payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func leftPayload(p session.Participant) ParticipantLeft {
	return ParticipantLeft{ID: p.ConnectionID, Name: p.DisplayName, Role: string(p.Role)}
}
