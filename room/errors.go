package room

import (
	"errors"

	"github.com/wfunc/nightwatch/auth"
	"github.com/wfunc/nightwatch/session"
	"github.com/wfunc/nightwatch/state"
)

var (
	ErrNotAdmin       = errors.New("admin privileges required")
	ErrNotRegistered  = errors.New("connection is not authenticated")
	ErrForbidden      = errors.New("action not allowed for this participant")
	ErrInvalidMove    = errors.New("move rejected")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrUnknownEvent   = errors.New("unknown event")
)

// Error codes sent to clients.
const (
	CodeRoleConflict       = "role_conflict"
	CodeAlreadyRegistered  = "already_registered"
	CodeInvalidCredentials = "invalid_credentials"
	CodeNotAdmin           = "not_admin"
	CodeNotActive          = "not_active"
	CodeAlreadyActive      = "already_active"
	CodeUnknownSide        = "unknown_side"
	CodeUnknownCharacter   = "unknown_character"
	CodeInvalidAction      = "invalid_action"
	CodeNotFound           = "not_found"
	CodeNotRegistered      = "not_registered"
	CodeForbidden          = "forbidden"
	CodeInvalidMove        = "invalid_move"
	CodeInvalidRole        = "invalid_role"
	CodeInvalidPayload     = "invalid_payload"
	CodeUnknownEvent       = "unknown_event"
	CodeInternal           = "internal"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{session.ErrRoleConflict, CodeRoleConflict},
	{session.ErrAlreadyRegistered, CodeAlreadyRegistered},
	{session.ErrInvalidRole, CodeInvalidRole},
	{session.ErrNotFound, CodeNotFound},
	{auth.ErrInvalidCredentials, CodeInvalidCredentials},
	{state.ErrAlreadyActive, CodeAlreadyActive},
	{state.ErrNotActive, CodeNotActive},
	{state.ErrUnknownSide, CodeUnknownSide},
	{state.ErrUnknownCharacter, CodeUnknownCharacter},
	{state.ErrInvalidAction, CodeInvalidAction},
	{ErrNotAdmin, CodeNotAdmin},
	{ErrNotRegistered, CodeNotRegistered},
	{ErrForbidden, CodeForbidden},
	{ErrInvalidMove, CodeInvalidMove},
	{ErrInvalidPayload, CodeInvalidPayload},
	{ErrUnknownEvent, CodeUnknownEvent},
}

// ErrorCode maps an error returned by a handler to its client code.
func ErrorCode(err error) string {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return CodeInternal
}
