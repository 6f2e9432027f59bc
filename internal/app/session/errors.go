package session

import "errors"

// Sentinel errors for the session context.
var (
	ErrClosed         = errors.New("session context closed")
	ErrAlreadyStarted = errors.New("session context already started")
)
