package room

import (
	"encoding/json"
	"strings"

	"github.com/wfunc/nightwatch/audit"
	"github.com/wfunc/nightwatch/auth"
	"github.com/wfunc/nightwatch/logger"
	"github.com/wfunc/nightwatch/network"
	"github.com/wfunc/nightwatch/session"
	"github.com/wfunc/nightwatch/state"
)

func (r *Room) handleAuthenticate(connectionID string, payload json.RawMessage) (*outcome, error) {
	if _, err := r.registry.Lookup(connectionID); err == nil {
		return nil, session.ErrAlreadyRegistered
	}

	var req authenticateRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	role, err := session.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}

	characterType := ""
	switch role {
	case session.RoleAdmin:
		if r.credentials == nil {
			return nil, auth.ErrInvalidCredentials
		}
		if err := r.credentials.CheckAdminSecret(req.Password); err != nil {
			return nil, err
		}
	case session.RoleAnimatronic:
		characterType = strings.TrimSpace(req.AnimatronicType)
		if !r.game.HasCharacter(characterType) {
			return nil, state.ErrUnknownCharacter
		}
	}

	p, err := r.registry.Register(connectionID, role, req.Name, characterType)
	if err != nil {
		return nil, err
	}
	r.metrics.SetOnlineParticipants(r.registry.Len())
	logger.Log.Infow("Participant authenticated", "connection_id", connectionID, "name", p.DisplayName, "role", p.Role)

	var token string
	if r.credentials != nil {
		token, err = r.credentials.Issue(connectionID)
		if err != nil {
			logger.Log.Warnw("Token not issued", "connection_id", connectionID, "error", err)
			token = ""
		}
	}

	out := &outcome{}
	out.send(SenderOnly, network.EventAuthSuccess, AuthSuccess{
		Token:           token,
		PlayerID:        p.ConnectionID,
		Name:            p.DisplayName,
		Role:            string(p.Role),
		AnimatronicType: p.CharacterType,
		IsAdmin:         p.Role == session.RoleAdmin,
		Night:           r.game.Night(),
	})
	if p.Role != session.RoleAdmin {
		out.send(AllExceptSender, network.EventParticipantJoined, p)
	}
	out.record(audit.KindPlayerLogin, audit.Fields{
		PlayerID:      p.ConnectionID,
		PlayerName:    p.DisplayName,
		Role:          string(p.Role),
		CharacterType: p.CharacterType,
		At:            p.JoinedAt,
	})
	return out, nil
}

func (r *Room) handleDoorAction(connectionID string, payload json.RawMessage) (*outcome, error) {
	p, err := r.participant(connectionID)
	if err != nil {
		return nil, err
	}
	if r.guardOnlyDoors && p.Role != session.RoleGuard {
		return nil, ErrForbidden
	}
	if r.requireActiveForActions && !r.game.Active() {
		return nil, state.ErrNotActive
	}

	var req doorActionRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	open, err := r.game.SetDoor(req.Side, req.Action)
	if err != nil {
		return nil, err
	}

	out := &outcome{}
	out.send(AllExceptSender, network.EventDoorUpdate, DoorUpdate{Side: req.Side, State: open, Action: req.Action})
	out.record(audit.KindDoorEvent, audit.Fields{
		PlayerID:   p.ConnectionID,
		PlayerName: p.DisplayName,
		Role:       string(p.Role),
		Side:       req.Side,
		Action:     req.Action,
		Open:       open,
		At:         r.now(),
	})
	return out, nil
}

func (r *Room) handleCharacterMove(connectionID string, payload json.RawMessage) (*outcome, error) {
	p, err := r.participant(connectionID)
	if err != nil {
		return nil, err
	}
	if p.Role != session.RoleAnimatronic {
		return nil, ErrForbidden
	}

	var req characterMoveRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if !r.game.HasCharacter(req.Type) {
		return nil, state.ErrUnknownCharacter
	}
	if req.Type != p.CharacterType {
		return nil, ErrForbidden
	}
	if req.Position == "" {
		return nil, ErrInvalidPayload
	}
	if r.requireActiveForActions && !r.game.Active() {
		return nil, state.ErrNotActive
	}

	current, err := r.game.Character(req.Type)
	if err != nil {
		return nil, err
	}
	next := state.CharacterState{Position: req.Position, Visible: req.Visible, X: req.X, Y: req.Y}
	if !r.canMove(req.Type, current, next) {
		return nil, ErrInvalidMove
	}
	if _, err := r.game.SetCharacter(req.Type, next); err != nil {
		return nil, err
	}

	out := &outcome{}
	out.send(All, network.EventCharacterUpdate, CharacterUpdate{
		Type:     req.Type,
		Position: next.Position,
		Visible:  next.Visible,
		X:        next.X,
		Y:        next.Y,
	})
	return out, nil
}

func (r *Room) handlePing(connectionID string, _ json.RawMessage) (*outcome, error) {
	out := &outcome{}
	out.send(SenderOnly, network.EventPong, Pong{Time: r.now().UnixMilli()})
	return out, nil
}
