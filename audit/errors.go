package audit

import "errors"

var (
	ErrQueueFull   = errors.New("audit queue full")
	ErrUnknownKind = errors.New("unknown audit kind")
)
