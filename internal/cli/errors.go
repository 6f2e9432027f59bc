package cli

import "errors"

// Sentinel errors for command handling.
var (
	ErrUsage          = errors.New("usage error")
	ErrUnknownCommand = errors.New("unknown command")
	ErrStorage        = errors.New("open session storage")
	ErrLoginRequired  = errors.New("login required")
)
