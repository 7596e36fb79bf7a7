package voicesession

import (
	"errors"
	"fmt"
)

var (
	ErrMissingAgentID   = errors.New("voicesession: agent ID is required")
	ErrNotConnected     = errors.New("voicesession: not connected")
	ErrAlreadyConnected = errors.New("voicesession: already connected")
)

// AuthError means the voice service rejected the credentials.
type AuthError struct {
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("voicesession: authentication failed (HTTP %d): %v", e.StatusCode, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NetworkError covers dial and read failures that are not auth related.
type NetworkError struct {
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("voicesession: connection failed (HTTP %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("voicesession: connection failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

type PushError struct {
	Err error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("voicesession: context push failed: %v", e.Err)
}

func (e *PushError) Unwrap() error { return e.Err }
