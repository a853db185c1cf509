package room

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/nightwatch/audit"
	"github.com/wfunc/nightwatch/auth"
	"github.com/wfunc/nightwatch/session"
	"github.com/wfunc/nightwatch/state"
)

const testSecret = "letmein"

type sentMessage struct {
	Event   string
	Payload interface{}
}

// FakeTransport records everything the room emits.
type FakeTransport struct {
	mutex  sync.Mutex
	sent   map[string][]sentMessage
	closed map[string]bool
}

func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		sent:   make(map[string][]sentMessage),
		closed: make(map[string]bool),
	}
}

func (f *FakeTransport) Send(connectionID, event string, payload interface{}) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.sent[connectionID] = append(f.sent[connectionID], sentMessage{Event: event, Payload: payload})
	return nil
}

func (f *FakeTransport) Close(connectionID string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.closed[connectionID] = true
	return nil
}

func (f *FakeTransport) Events(connectionID string) []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	var events []string
	for _, m := range f.sent[connectionID] {
		events = append(events, m.Event)
	}
	return events
}

// Last returns the most recent payload of event sent to connectionID.
func (f *FakeTransport) Last(connectionID, event string) (interface{}, bool) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	msgs := f.sent[connectionID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Event == event {
			return msgs[i].Payload, true
		}
	}
	return nil, false
}

func (f *FakeTransport) Count(connectionID, event string) int {
	n := 0
	for _, e := range f.Events(connectionID) {
		if e == event {
			n++
		}
	}
	return n
}

func (f *FakeTransport) Closed(connectionID string) bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.closed[connectionID]
}

func (f *FakeTransport) Reset() {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.sent = make(map[string][]sentMessage)
}

// MockSink is a test double for audit.Sink.
type MockSink struct {
	mutex  sync.Mutex
	events []audit.Event
}

func (m *MockSink) Record(kind audit.Kind, fields audit.Fields) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.events = append(m.events, audit.Event{Kind: kind, Fields: fields})
}

func (m *MockSink) Kinds() []audit.Kind {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	kinds := make([]audit.Kind, 0, len(m.events))
	for _, e := range m.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func (m *MockSink) Count(kind audit.Kind) int {
	n := 0
	for _, k := range m.Kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

func (m *MockSink) Last(kind audit.Kind) (audit.Fields, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].Kind == kind {
			return m.events[i].Fields, true
		}
	}
	return audit.Fields{}, false
}

type testRoom struct {
	*Room
	transport *FakeTransport
	sink      *MockSink
}

func newTestRoom(t *testing.T, configure ...func(*Options)) *testRoom {
	t.Helper()

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	game := state.NewGame(state.Settings{
		EnergyCeiling: 240,
		Doors:         []string{"left", "right"},
		Characters:    map[string]string{"freddy": "stage", "foxy": "cove"},
		ResetOnStart:  true,
		Now:           now,
	})
	transport := NewFakeTransport()
	sink := &MockSink{}

	opts := Options{
		Registry:       session.NewRegistry(),
		Game:           game,
		Transport:      transport,
		Credentials:    auth.New(testSecret, "signing-key", 0),
		Sink:           sink,
		GuardOnlyDoors: true,
		Now:            now,
	}
	for _, fn := range configure {
		fn(&opts)
	}
	return &testRoom{Room: New(opts), transport: transport, sink: sink}
}

func raw(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func (r *testRoom) authenticate(id, role, name, password, animatronic string) {
	r.OnEvent(id, "authenticate", raw(map[string]string{
		"role":             role,
		"name":             name,
		"password":         password,
		"animatronic_type": animatronic,
	}))
}

func (r *testRoom) errorCode(t *testing.T, id, event string) string {
	t.Helper()
	payload, ok := r.transport.Last(id, event)
	if !ok {
		t.Fatalf("%s received no %s", id, event)
	}
	reply, ok := payload.(ErrorReply)
	if !ok {
		t.Fatalf("unexpected %s payload %T", event, payload)
	}
	return reply.Code
}
