package room

import (
	"errors"
	"fmt"
	"testing"

	"github.com/wfunc/nightwatch/audit"
	"github.com/wfunc/nightwatch/auth"
	"github.com/wfunc/nightwatch/session"
	"github.com/wfunc/nightwatch/state"
)

func TestRoom_EndToEnd(t *testing.T) {
	r := newTestRoom(t)

	r.authenticate("A", "admin", "Boss", testSecret, "")
	payload, ok := r.transport.Last("A", "auth_success")
	if !ok {
		t.Fatalf("admin should be authenticated, got %v", r.transport.Events("A"))
	}
	success := payload.(AuthSuccess)
	if !success.IsAdmin || success.Role != "admin" || success.Night != 1 {
		t.Errorf("unexpected auth_success %+v", success)
	}
	if success.Token == "" {
		t.Error("auth_success should carry a token")
	}

	r.authenticate("B", "guard", "Alice", "", "")
	if _, ok := r.transport.Last("B", "auth_success"); !ok {
		t.Fatal("guard should be authenticated")
	}
	joined, ok := r.transport.Last("A", "participant_joined")
	if !ok {
		t.Fatal("admin should be told about the guard")
	}
	p := joined.(session.Participant)
	if p.ConnectionID != "B" || p.DisplayName != "Alice" || p.Role != session.RoleGuard {
		t.Errorf("unexpected participant_joined %+v", p)
	}
	if r.transport.Count("B", "participant_joined") != 0 {
		t.Error("participant_joined should not go back to the sender")
	}

	r.OnEvent("A", "startGame", nil)
	for _, id := range []string{"A", "B"} {
		payload, ok := r.transport.Last(id, "game_started")
		if !ok {
			t.Fatalf("%s should receive game_started", id)
		}
		started := payload.(GameStarted)
		if started.Night != 1 || started.Energy != 240 {
			t.Errorf("unexpected game_started %+v", started)
		}
	}

	r.OnEvent("B", "doorAction", raw(map[string]string{"side": "left", "action": "open"}))
	payload, ok = r.transport.Last("A", "door_update")
	if !ok {
		t.Fatal("admin should receive door_update")
	}
	if update := payload.(DoorUpdate); update.Side != "left" || !update.State {
		t.Errorf("unexpected door_update %+v", update)
	}
	if r.transport.Count("B", "door_update") != 0 {
		t.Error("door_update should not go back to the sender")
	}
	if r.sink.Count(audit.KindDoorEvent) != 1 {
		t.Errorf("Expected one door_event audit, got %v", r.sink.Kinds())
	}

	r.OnDisconnect("B")
	payload, ok = r.transport.Last("A", "participant_left")
	if !ok {
		t.Fatal("admin should receive participant_left")
	}
	if left := payload.(ParticipantLeft); left.ID != "B" || left.Name != "Alice" || left.Role != "guard" {
		t.Errorf("unexpected participant_left %+v", left)
	}

	want := []audit.Kind{audit.KindPlayerLogin, audit.KindPlayerLogin, audit.KindSessionStart, audit.KindDoorEvent}
	got := r.sink.Kinds()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Expected audit kinds %v, got %v", want, got)
	}
}

func TestRoom_AdminUniqueness(t *testing.T) {
	r := newTestRoom(t)

	r.authenticate("A", "admin", "", testSecret, "")
	r.authenticate("C", "admin", "", testSecret, "")

	if code := r.errorCode(t, "C", "auth_error"); code != CodeRoleConflict {
		t.Errorf("Expected %s, got %s", CodeRoleConflict, code)
	}
	if !r.transport.Closed("C") {
		t.Error("failed authentication should terminate the connection")
	}
	if admin, _ := r.registry.Admin(); admin != "A" {
		t.Errorf("admin slot should still belong to A, got %q", admin)
	}
}

func TestRoom_WrongAdminSecret(t *testing.T) {
	r := newTestRoom(t)

	r.authenticate("A", "admin", "", "wrong", "")
	if code := r.errorCode(t, "A", "auth_error"); code != CodeInvalidCredentials {
		t.Errorf("Expected %s, got %s", CodeInvalidCredentials, code)
	}
	if !r.transport.Closed("A") {
		t.Error("connection should be terminated")
	}
	if _, err := r.registry.Lookup("A"); !errors.Is(err, session.ErrNotFound) {
		t.Error("connection should not be registered")
	}
	if r.sink.Count(audit.KindPlayerLogin) != 0 {
		t.Error("failed login should not be audited")
	}
}

func TestRoom_AuthenticateValidation(t *testing.T) {
	tests := []struct {
		name        string
		role        string
		animatronic string
		code        string
	}{
		{"unknown role", "janitor", "", CodeInvalidRole},
		{"missing role", "", "", CodeInvalidRole},
		{"animatronic without type", "animatronic", "", CodeUnknownCharacter},
		{"unconfigured character", "animatronic", "springtrap", CodeUnknownCharacter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRoom(t)
			r.authenticate("X", tt.role, "x", "", tt.animatronic)
			if code := r.errorCode(t, "X", "auth_error"); code != tt.code {
				t.Errorf("Expected %s, got %s", tt.code, code)
			}
			if r.registry.Len() != 0 {
				t.Error("nothing should be registered")
			}
		})
	}
}

func TestRoom_AlreadyRegistered(t *testing.T) {
	r := newTestRoom(t)

	r.authenticate("B", "guard", "Alice", "", "")
	r.authenticate("B", "animatronic", "Alice", "", "freddy")

	if code := r.errorCode(t, "B", "auth_error"); code != CodeAlreadyRegistered {
		t.Errorf("Expected %s, got %s", CodeAlreadyRegistered, code)
	}
	if r.transport.Closed("B") {
		t.Error("a registered connection should stay open")
	}
	p, _ := r.registry.Lookup("B")
	if p.Role != session.RoleGuard {
		t.Errorf("role must not change, got %s", p.Role)
	}
}

func TestRoom_DefaultDisplayName(t *testing.T) {
	r := newTestRoom(t)
	r.authenticate("B", "guard", "  ", "", "")

	payload, _ := r.transport.Last("B", "auth_success")
	if name := payload.(AuthSuccess).Name; name != session.DefaultDisplayName {
		t.Errorf("Expected %s, got %s", session.DefaultDisplayName, name)
	}
}

func TestRoom_DoorActionIdempotent(t *testing.T) {
	r := newTestRoom(t)
	r.authenticate("A", "admin", "", testSecret, "")
	r.authenticate("B", "guard", "Alice", "", "")

	door := raw(map[string]string{"side": "right", "action": "close"})
	r.OnEvent("B", "doorAction", door)
	r.OnEvent("B", "doorAction", door)

	if n := r.transport.Count("A", "door_update"); n != 2 {
		t.Errorf("each door action should broadcast, got %d", n)
	}
	if r.Snapshot().Doors["right"] {
		t.Error("right door should be closed")
	}
	if r.sink.Count(audit.KindDoorEvent) != 2 {
		t.Errorf("Expected two door audits, got %d", r.sink.Count(audit.KindDoorEvent))
	}
}

func TestRoom_DoorActionRequiresGuard(t *testing.T) {
	r := newTestRoom(t)
	r.authenticate("A", "admin", "", testSecret, "")
	r.authenticate("B", "guard", "Alice", "", "")
	r.authenticate("F", "animatronic", "Fred", "", "freddy")
	r.transport.Reset()

	r.OnEvent("F", "doorAction", raw(map[string]string{"side": "left", "action": "open"}))

	if code := r.errorCode(t, "F", "error"); code != CodeForbidden {
		t.Errorf("Expected %s, got %s", CodeForbidden, code)
	}
	if r.transport.Count("B", "door_update") != 0 || r.transport.Count("A", "door_update") != 0 {
		t.Error("rejected door action must not be broadcast")
	}
	if r.sink.Count(audit.KindDoorEvent) != 0 {
		t.Error("rejected door action must not be audited")
	}
	if r.Snapshot().Doors["left"] {
		t.Error("door state must not change")
	}

	if events := r.transport.Events("F"); len(events) != 1 || events[0] != "error" {
		t.Errorf("sender should receive exactly one error, got %v", events)
	}
	if len(r.transport.Events("A")) != 0 {
		t.Errorf("admin should receive nothing, got %v", r.transport.Events("A"))
	}
	if len(r.transport.Events("B")) != 0 {
		t.Errorf("guard should receive nothing, got %v", r.transport.Events("B"))
	}
}

func TestRoom_DoorActionAnyRoleWhenPolicyDisabled(t *testing.T) {
	r := newTestRoom(t, func(o *Options) { o.GuardOnlyDoors = false })
	r.authenticate("F", "animatronic", "Fred", "", "freddy")

	r.OnEvent("F", "doorAction", raw(map[string]string{"side": "left", "action": "open"}))
	if r.transport.Count("F", "error") != 0 {
		t.Errorf("door action should be accepted, got %v", r.transport.Events("F"))
	}
	if !r.Snapshot().Doors["left"] {
		t.Error("left door should be open")
	}
}

func TestRoom_DoorActionValidation(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		code    string
	}{
		{"unknown side", `{"side":"top","action":"open"}`, CodeUnknownSide},
		{"invalid action", `{"side":"left","action":"slam"}`, CodeInvalidAction},
		{"malformed", `{"side":`, CodeInvalidPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRoom(t)
			r.authenticate("B", "guard", "Alice", "", "")
			r.OnEvent("B", "doorAction", []byte(tt.payload))
			if code := r.errorCode(t, "B", "error"); code != tt.code {
				t.Errorf("Expected %s, got %s", tt.code, code)
			}
			snap := r.Snapshot()
			if len(snap.Doors) != 2 || snap.Doors["left"] || snap.Doors["right"] {
				t.Errorf("doors must be untouched, got %v", snap.Doors)
			}
		})
	}
}

func TestRoom_RequireActiveForActions(t *testing.T) {
	r := newTestRoom(t, func(o *Options) { o.RequireActiveForActions = true })
	r.authenticate("A", "admin", "", testSecret, "")
	r.authenticate("B", "guard", "Alice", "", "")

	door := raw(map[string]string{"side": "left", "action": "open"})
	r.OnEvent("B", "doorAction", door)
	if code := r.errorCode(t, "B", "error"); code != CodeNotActive {
		t.Errorf("Expected %s, got %s", CodeNotActive, code)
	}

	r.OnEvent("A", "startGame", nil)
	r.OnEvent("B", "doorAction", door)
	if r.transport.Count("A", "door_update") != 1 {
		t.Error("door action should be accepted once the game is active")
	}
}

func TestRoom_StartGameTwice(t *testing.T) {
	r := newTestRoom(t, func(o *Options) { o.Drain = state.DoorDrain{Base: 10} })
	r.authenticate("A", "admin", "", testSecret, "")

	r.OnEvent("A", "startGame", nil)
	r.DrainEnergy()
	before := r.Snapshot()

	r.OnEvent("A", "startGame", nil)
	if code := r.errorCode(t, "A", "error"); code != CodeAlreadyActive {
		t.Errorf("Expected %s, got %s", CodeAlreadyActive, code)
	}
	after := r.Snapshot()
	if after.Energy != before.Energy || after.Night != before.Night || !after.Active {
		t.Errorf("second start must not mutate state: before %+v after %+v", before, after)
	}
	if r.transport.Count("A", "game_started") != 1 {
		t.Error("only one game_started expected")
	}
}

func TestRoom_AdminOnlyEvents(t *testing.T) {
	events := []string{"startGame", "endGame", "requestPlayerList", "kickPlayer"}
	for _, event := range events {
		t.Run(event, func(t *testing.T) {
			r := newTestRoom(t)
			r.authenticate("B", "guard", "Alice", "", "")
			r.OnEvent("B", event, raw(map[string]string{"id": "B"}))
			if code := r.errorCode(t, "B", "error"); code != CodeNotAdmin {
				t.Errorf("Expected %s, got %s", CodeNotAdmin, code)
			}

			r.OnEvent("stranger", event, nil)
			if code := r.errorCode(t, "stranger", "error"); code != CodeNotRegistered {
				t.Errorf("Expected %s, got %s", CodeNotRegistered, code)
			}
		})
	}
}

func TestRoom_KickByNonAdmin(t *testing.T) {
	r := newTestRoom(t)
	r.authenticate("B", "guard", "Alice", "", "")
	r.authenticate("F", "animatronic", "Fred", "", "freddy")

	r.OnEvent("F", "kickPlayer", raw(map[string]string{"id": "B"}))
	if code := r.errorCode(t, "F", "error"); code != CodeNotAdmin {
		t.Errorf("Expected %s, got %s", CodeNotAdmin, code)
	}
	if _, err := r.registry.Lookup("B"); err != nil {
		t.Error("target should remain registered")
	}
	if r.transport.Closed("B") || r.transport.Count("B", "kicked") != 0 {
		t.Error("target must not be kicked")
	}
}

func TestRoom_Kick(t *testing.T) {
	r := newTestRoom(t)
	r.authenticate("A", "admin", "", testSecret, "")
	r.authenticate("B", "guard", "Alice", "", "")
	r.authenticate("F", "animatronic", "Fred", "", "freddy")

	r.OnEvent("A", "kickPlayer", raw(map[string]string{"id": "B"}))

	events := r.transport.Events("B")
	if len(events) == 0 || events[len(events)-1] != "kicked" {
		t.Errorf("target should be told it was kicked, got %v", events)
	}
	if !r.transport.Closed("B") {
		t.Error("target connection should be terminated")
	}
	if _, err := r.registry.Lookup("B"); err == nil {
		t.Error("target should be unregistered")
	}
	if _, ok := r.transport.Last("F", "participant_left"); !ok {
		t.Error("remaining participants should see participant_left")
	}

	// The transport reports the closed connection; nothing more is sent.
	r.transport.Reset()
	r.OnDisconnect("B")
	if len(r.transport.Events("A")) != 0 {
		t.Errorf("disconnect of a kicked connection should be silent, got %v", r.transport.Events("A"))
	}

	r.OnEvent("A", "kickPlayer", raw(map[string]string{"id": "B"}))
	if code := r.errorCode(t, "A", "error"); code != CodeNotFound {
		t.Errorf("Expected %s, got %s", CodeNotFound, code)
	}

	r.OnEvent("A", "kickPlayer", raw(map[string]string{"id": "A"}))
	if code := r.errorCode(t, "A", "error"); code != CodeForbidden {
		t.Errorf("Expected %s, got %s", CodeForbidden, code)
	}

	r.OnEvent("A", "kickPlayer", nil)
	if code := r.errorCode(t, "A", "error"); code != CodeInvalidPayload {
		t.Errorf("Expected %s, got %s", CodeInvalidPayload, code)
	}
}

func TestRoom_AdminDisconnectFreesSlot(t *testing.T) {
	r := newTestRoom(t)
	r.authenticate("A", "admin", "", testSecret, "")
	r.OnDisconnect("A")

	r.authenticate("A2", "admin", "", testSecret, "")
	payload, ok := r.transport.Last("A2", "auth_success")
	if !ok {
		t.Fatalf("new admin should authenticate, got %v", r.transport.Events("A2"))
	}
	if !payload.(AuthSuccess).IsAdmin {
		t.Error("new admin should be admin")
	}
}

func TestRoom_CharacterMove(t *testing.T) {
	r := newTestRoom(t)
	r.authenticate("B", "guard", "Alice", "", "")
	r.authenticate("F", "animatronic", "Fred", "", "freddy")

	x := 12.5
	r.OnEvent("F", "characterMove", raw(map[string]interface{}{
		"type": "freddy", "position": "hall", "visible": true, "x": x,
	}))
	for _, id := range []string{"B", "F"} {
		payload, ok := r.transport.Last(id, "character_update")
		if !ok {
			t.Fatalf("%s should receive character_update", id)
		}
		update := payload.(CharacterUpdate)
		if update.Type != "freddy" || update.Position != "hall" || !update.Visible || update.X == nil || *update.X != x {
			t.Errorf("unexpected character_update %+v", update)
		}
	}

	// Full overwrite: the omitted coordinate is cleared.
	r.OnEvent("F", "characterMove", raw(map[string]interface{}{"type": "freddy", "position": "vent"}))
	c := r.Snapshot().Characters["freddy"]
	if c.Position != "vent" || c.Visible || c.X != nil {
		t.Errorf("character should be overwritten, got %+v", c)
	}
}

func TestRoom_CharacterMoveRejections(t *testing.T) {
	tests := []struct {
		name    string
		sender  string
		payload map[string]interface{}
		code    string
	}{
		{"guard cannot move", "B", map[string]interface{}{"type": "freddy", "position": "hall"}, CodeForbidden},
		{"other character", "F", map[string]interface{}{"type": "foxy", "position": "hall"}, CodeForbidden},
		{"unknown character", "F", map[string]interface{}{"type": "springtrap", "position": "hall"}, CodeUnknownCharacter},
		{"missing position", "F", map[string]interface{}{"type": "freddy"}, CodeInvalidPayload},
		{"blocked by predicate", "F", map[string]interface{}{"type": "freddy", "position": "office"}, CodeInvalidMove},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRoom(t, func(o *Options) {
				o.MovePredicate = func(kind string, from, to state.CharacterState) bool {
					return to.Position != "office"
				}
			})
			r.authenticate("B", "guard", "Alice", "", "")
			r.authenticate("F", "animatronic", "Fred", "", "freddy")

			r.OnEvent(tt.sender, "characterMove", raw(tt.payload))
			if code := r.errorCode(t, tt.sender, "error"); code != tt.code {
				t.Errorf("Expected %s, got %s", tt.code, code)
			}
			if r.Snapshot().Characters["freddy"].Position != "stage" {
				t.Error("character must not move")
			}
		})
	}
}

func TestRoom_EndGame(t *testing.T) {
	r := newTestRoom(t)
	r.authenticate("A", "admin", "", testSecret, "")
	r.authenticate("B", "guard", "Alice", "", "")

	r.OnEvent("A", "endGame", nil)
	if code := r.errorCode(t, "A", "error"); code != CodeNotActive {
		t.Errorf("Expected %s, got %s", CodeNotActive, code)
	}

	r.OnEvent("A", "startGame", nil)
	r.OnEvent("A", "endGame", raw(map[string]string{"winner": "robots"}))
	if code := r.errorCode(t, "A", "error"); code != CodeInvalidPayload {
		t.Errorf("Expected %s, got %s", CodeInvalidPayload, code)
	}
	if !r.Snapshot().Active {
		t.Fatal("invalid endGame must not end the game")
	}

	r.OnEvent("A", "endGame", raw(map[string]string{"winner": "guard"}))
	payload, ok := r.transport.Last("B", "game_ended")
	if !ok {
		t.Fatal("guard should receive game_ended")
	}
	if ended := payload.(GameEnded); ended.Night != 1 || ended.Winner != "guard" {
		t.Errorf("unexpected game_ended %+v", ended)
	}

	fields, ok := r.sink.Last(audit.KindSessionEnd)
	if !ok {
		t.Fatal("session_end should be audited")
	}
	if fields.Winner != "guard" || fields.Players["B"] != "guard" || fields.Players["A"] != "admin" {
		t.Errorf("unexpected session_end fields %+v", fields)
	}
	if r.Snapshot().Active {
		t.Error("game should be inactive")
	}
}

func TestRoom_RequestPlayerList(t *testing.T) {
	r := newTestRoom(t)
	r.authenticate("A", "admin", "", testSecret, "")
	r.authenticate("B", "guard", "Alice", "", "")
	r.authenticate("F", "animatronic", "Fred", "", "freddy")
	r.transport.Reset()

	r.OnEvent("A", "requestPlayerList", nil)
	payload, ok := r.transport.Last("A", "player_list")
	if !ok {
		t.Fatal("admin should receive player_list")
	}
	list := payload.(PlayerList)
	if list.GameActive || len(list.Players) != 3 {
		t.Fatalf("unexpected player_list %+v", list)
	}
	for i, id := range []string{"A", "B", "F"} {
		if list.Players[i].ConnectionID != id {
			t.Errorf("player %d: expected %s, got %s", i, id, list.Players[i].ConnectionID)
		}
	}
	if len(r.transport.Events("B")) != 0 {
		t.Error("player_list is sender-only")
	}
}

func TestRoom_UnknownEventAndUnregistered(t *testing.T) {
	r := newTestRoom(t)

	r.OnEvent("X", "flyAway", nil)
	if code := r.errorCode(t, "X", "error"); code != CodeUnknownEvent {
		t.Errorf("Expected %s, got %s", CodeUnknownEvent, code)
	}

	r.OnEvent("X", "doorAction", raw(map[string]string{"side": "left", "action": "open"}))
	if code := r.errorCode(t, "X", "error"); code != CodeNotRegistered {
		t.Errorf("Expected %s, got %s", CodeNotRegistered, code)
	}

	r.OnMalformed("X", errors.New("bad frame"))
	if code := r.errorCode(t, "X", "error"); code != CodeInvalidPayload {
		t.Errorf("Expected %s, got %s", CodeInvalidPayload, code)
	}
	if r.transport.Closed("X") {
		t.Error("only failed authentication terminates a connection")
	}
}

func TestRoom_RejectionsStayWithSender(t *testing.T) {
	r := newTestRoom(t)
	r.authenticate("A", "admin", "", testSecret, "")
	r.transport.Reset()

	for i := 0; i < 50; i++ {
		r.OnEvent("X", "flyAway", nil)
		r.OnMalformed("X", errors.New("bad frame"))
	}

	if n := r.transport.Count("X", "error"); n != 100 {
		t.Errorf("Expected 100 errors for the sender, got %d", n)
	}
	if len(r.transport.Events("A")) != 0 {
		t.Errorf("admin should receive nothing, got %d messages", len(r.transport.Events("A")))
	}
}

func TestRoom_Ping(t *testing.T) {
	r := newTestRoom(t)
	r.OnEvent("X", "ping", nil)
	if _, ok := r.transport.Last("X", "pong"); !ok {
		t.Error("ping should be answered")
	}
}

func TestRoom_DrainEnergy(t *testing.T) {
	r := newTestRoom(t, func(o *Options) {
		o.Drain = state.DoorDrain{Base: 1, PerClosedDoor: 2}
	})
	r.authenticate("A", "admin", "", testSecret, "")
	r.authenticate("B", "guard", "Alice", "", "")

	r.DrainEnergy()
	if r.Snapshot().Energy != 240 || r.transport.Count("B", "energy_update") != 0 {
		t.Error("energy must not drain while inactive")
	}

	r.OnEvent("A", "startGame", nil)
	r.DrainEnergy()
	payload, ok := r.transport.Last("B", "energy_update")
	if !ok {
		t.Fatal("guard should receive energy_update")
	}
	if energy := payload.(EnergyUpdate).Energy; energy != 235 {
		t.Errorf("Expected 235, got %d", energy)
	}

	r.OnEvent("B", "doorAction", raw(map[string]string{"side": "left", "action": "open"}))
	r.DrainEnergy()
	if energy := r.Snapshot().Energy; energy != 232 {
		t.Errorf("Expected 232, got %d", energy)
	}
}

func TestRoom_DrainEnergyStopsAtZero(t *testing.T) {
	r := newTestRoom(t, func(o *Options) { o.Drain = state.DoorDrain{Base: 300} })
	r.authenticate("A", "admin", "", testSecret, "")
	r.authenticate("B", "guard", "Alice", "", "")
	r.OnEvent("A", "startGame", nil)

	r.DrainEnergy()
	payload, ok := r.transport.Last("B", "energy_update")
	if !ok || payload.(EnergyUpdate).Energy != 0 {
		t.Fatalf("Expected energy_update with 0, got %v", payload)
	}

	r.DrainEnergy()
	r.DrainEnergy()
	if n := r.transport.Count("B", "energy_update"); n != 1 {
		t.Errorf("depleted energy should not be rebroadcast, got %d updates", n)
	}
}

func TestRoom_Status(t *testing.T) {
	r := newTestRoom(t)
	r.authenticate("A", "admin", "", testSecret, "")
	r.authenticate("B", "guard", "Alice", "", "")
	r.OnEvent("A", "startGame", nil)

	s := r.Status()
	want := Status{Status: "online", Players: 2, CurrentNight: 1, GameActive: true, Energy: 240, Version: "1.0"}
	if s != want {
		t.Errorf("Expected %+v, got %+v", want, s)
	}
}

func TestRoom_NoCredentialsRejectsAdmin(t *testing.T) {
	r := newTestRoom(t, func(o *Options) { o.Credentials = nil })
	r.authenticate("A", "admin", "", testSecret, "")
	if code := r.errorCode(t, "A", "auth_error"); code != CodeInvalidCredentials {
		t.Errorf("Expected %s, got %s", CodeInvalidCredentials, code)
	}

	r.authenticate("B", "guard", "Alice", "", "")
	payload, _ := r.transport.Last("B", "auth_success")
	if payload.(AuthSuccess).Token != "" {
		t.Error("no token without credentials")
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{session.ErrRoleConflict, CodeRoleConflict},
		{fmt.Errorf("wrapped: %w", state.ErrUnknownSide), CodeUnknownSide},
		{auth.ErrInvalidCredentials, CodeInvalidCredentials},
		{ErrNotAdmin, CodeNotAdmin},
		{errors.New("boom"), CodeInternal},
	}
	for _, tt := range tests {
		if got := ErrorCode(tt.err); got != tt.code {
			t.Errorf("ErrorCode(%v) = %s, want %s", tt.err, got, tt.code)
		}
	}
}
