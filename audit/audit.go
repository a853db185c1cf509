// Package audit records historical game events without blocking the room.
package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wfunc/nightwatch/logger"
)

// Kind names an auditable event.
type Kind string

const (
	KindPlayerLogin  Kind = "player_login"
	KindDoorEvent    Kind = "door_event"
	KindSessionStart Kind = "session_start"
	KindSessionEnd   Kind = "session_end"
)

// Fields carries the data of one audit record. Only the fields relevant to
// the kind are set.
type Fields struct {
	PlayerID      string
	PlayerName    string
	Role          string
	CharacterType string

	Side   string
	Action string
	Open   bool

	Night    int
	Winner   string
	Duration time.Duration
	// Players lists the participants at session end, keyed by connection id with their role.
	Players map[string]string

	At time.Time
}

type Event struct {
	Kind   Kind
	Fields Fields
}

// Sink is what the room writes audit records to. Record must not block.
type Sink interface {
	Record(kind Kind, fields Fields)
}

// Handler persists one event.
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

// Discard drops every record.
type Discard struct{}

func (Discard) Record(Kind, Fields) {}

// Recorder queues events and hands them to a Handler on a single worker goroutine.
// A full queue drops the event; handler errors are logged and swallowed.
type Recorder struct {
	handler Handler
	events  chan Event
	timeout time.Duration
	onError func(kind Kind, err error)
	now     func() time.Time

	dropped atomic.Int64
	failed  atomic.Int64

	closeOnce sync.Once
	closed    bool
	mutex     sync.RWMutex
	done      chan struct{}
}

type Option func(*Recorder)

// WithTimeout bounds each handler call.
func WithTimeout(d time.Duration) Option {
	return func(r *Recorder) { r.timeout = d }
}

// WithErrorHook is called for every dropped or failed event.
func WithErrorHook(fn func(kind Kind, err error)) Option {
	return func(r *Recorder) { r.onError = fn }
}

func NewRecorder(handler Handler, buffer int, opts ...Option) *Recorder {
	if buffer <= 0 {
		buffer = 1
	}
	r := &Recorder{
		handler: handler,
		events:  make(chan Event, buffer),
		timeout: 5 * time.Second,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.run()
	return r
}

func (r *Recorder) Record(kind Kind, fields Fields) {
	if fields.At.IsZero() {
		fields.At = r.now()
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()
	if r.closed {
		return
	}

	select {
	case r.events <- Event{Kind: kind, Fields: fields}:
	default:
		r.dropped.Add(1)
		logger.Log.Warnw("audit queue full, dropping event", "kind", kind)
		if r.onError != nil {
			r.onError(kind, ErrQueueFull)
		}
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for ev := range r.events {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		err := r.handler.Handle(ctx, ev)
		cancel()
		if err != nil {
			r.failed.Add(1)
			logger.Log.Errorw("audit record failed", "kind", ev.Kind, "error", err)
			if r.onError != nil {
				r.onError(ev.Kind, err)
			}
		}
	}
}

// Close stops accepting events and waits for the queue to drain.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		r.mutex.Lock()
		r.closed = true
		close(r.events)
		r.mutex.Unlock()
	})
	<-r.done
}

// Dropped reports how many events were discarded because the queue was full.
func (r *Recorder) Dropped() int64 { return r.dropped.Load() }

// Failed reports how many events the handler rejected.
func (r *Recorder) Failed() int64 { return r.failed.Load() }
