package room

import (
	"encoding/json"
	"fmt"

	"github.com/wfunc/nightwatch/audit"
	"github.com/wfunc/nightwatch/logger"
	"github.com/wfunc/nightwatch/models"
	"github.com/wfunc/nightwatch/network"
)

const kickReason = "removed by admin"

func (r *Room) handleStartGame(connectionID string, _ json.RawMessage) (*outcome, error) {
	if _, err := r.requireAdmin(connectionID); err != nil {
		return nil, err
	}
	snap, err := r.game.Start()
	if err != nil {
		return nil, err
	}
	r.metrics.SetGameActive(true)
	r.metrics.SetEnergy(snap.Energy)
	logger.Log.Infow("Game started", "night", snap.Night, "energy", snap.Energy)

	out := &outcome{}
	out.send(All, network.EventGameStarted, GameStarted{Night: snap.Night, Energy: snap.Energy, StartedAt: snap.StartedAt})
	out.record(audit.KindSessionStart, audit.Fields{Night: snap.Night, At: snap.StartedAt})
	return out, nil
}

func (r *Room) handleEndGame(connectionID string, payload json.RawMessage) (*outcome, error) {
	if _, err := r.requireAdmin(connectionID); err != nil {
		return nil, err
	}
	var req endGameRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if req.Winner != "" && !models.ValidWinner(req.Winner) {
		return nil, fmt.Errorf("%w: winner must be %q or %q", ErrInvalidPayload, models.WinnerGuard, models.WinnerAnimatronics)
	}

	result, err := r.game.End()
	if err != nil {
		return nil, err
	}
	r.metrics.SetGameActive(false)
	logger.Log.Infow("Game ended", "night", result.Night, "duration", result.Duration, "winner", req.Winner)

	players := make(map[string]string)
	for _, p := range r.registry.List() {
		players[p.ConnectionID] = string(p.Role)
	}

	out := &outcome{}
	out.send(All, network.EventGameEnded, GameEnded{
		Night:           result.Night,
		NextNight:       r.game.Night(),
		DurationSeconds: int(result.Duration.Seconds()),
		Winner:          req.Winner,
	})
	out.record(audit.KindSessionEnd, audit.Fields{
		Night:    result.Night,
		Winner:   req.Winner,
		Duration: result.Duration,
		Players:  players,
		At:       result.EndedAt,
	})
	return out, nil
}

func (r *Room) handleRequestPlayerList(connectionID string, _ json.RawMessage) (*outcome, error) {
	if _, err := r.requireAdmin(connectionID); err != nil {
		return nil, err
	}
	out := &outcome{}
	out.send(SenderOnly, network.EventPlayerList, PlayerList{
		Players:    r.registry.List(),
		GameActive: r.game.Active(),
	})
	return out, nil
}

// handleKickPlayer 通知目标后断开其连接
func (r *Room) handleKickPlayer(connectionID string, payload json.RawMessage) (*outcome, error) {
	if _, err := r.requireAdmin(connectionID); err != nil {
		return nil, err
	}
	var req kickRequest
	if err := decode(payload, &req); err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidPayload)
	}
	if req.ID == connectionID {
		return nil, fmt.Errorf("%w: cannot kick yourself", ErrForbidden)
	}

	target, err := r.registry.Unregister(req.ID)
	if err != nil {
		return nil, err
	}
	r.metrics.SetOnlineParticipants(r.registry.Len())
	logger.Log.Infow("Participant kicked", "connection_id", target.ConnectionID, "name", target.DisplayName, "by", connectionID)

	out := &outcome{}
	out.sendTo(target.ConnectionID, network.EventKicked, Kicked{Reason: kickReason})
	out.send(All, network.EventParticipantLeft, leftPayload(target))
	out.terminate = append(out.terminate, target.ConnectionID)
	return out, nil
}
