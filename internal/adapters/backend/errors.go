package backend

import (
	"errors"
	"fmt"
)

// Sentinel kinds for backend errors.
var (
	ErrNetwork        = errors.New("backend unreachable")
	ErrAPI            = errors.New("backend rejected request")
	ErrDecode         = errors.New("backend response undecodable")
	ErrInvalidRequest = errors.New("invalid request")
)

// NetworkError reports a transport failure: the request never produced an
// HTTP response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrNetwork, e.Err)
}

// Unwrap exposes both the ErrNetwork kind and the transport cause.
func (e *NetworkError) Unwrap() []error { return []error{ErrNetwork, e.Err} }

// APIError reports a non-success status. Detail holds the backend's "detail"
// message when the body carries one.
type APIError struct {
	Op     string
	Status int
	Body   []byte
	Detail string
}

func (e *APIError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = string(e.Body)
	}
	if msg == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, msg)
}

func (e *APIError) Unwrap() error { return ErrAPI }
