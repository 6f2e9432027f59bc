package storage

import "errors"

// Sentinel errors returned by the storage adapters.
var (
	ErrClosed     = errors.New("storage closed")
	ErrInvalidKey = errors.New("invalid storage key")
	ErrConnect    = errors.New("storage connect failed")
)
