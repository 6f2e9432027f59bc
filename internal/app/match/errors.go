package match

import "errors"

// Sentinel errors for the match orchestrator.
var (
	ErrAlreadyMatching = errors.New("match already in progress for event")
	ErrClosed          = errors.New("match orchestrator closed")
)
