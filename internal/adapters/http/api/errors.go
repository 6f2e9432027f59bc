package api

import "errors"

// ErrServe wraps listener and shutdown failures of the status server.
var ErrServe = errors.New("status server failed")
