package entities

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput covers missing or malformed tenant id, phone or message.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidPhone means the phone number is empty after normalization.
	ErrInvalidPhone = errors.New("invalid phone number")
	// ErrUnauthorized means the shared API credential is missing or wrong.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTimeout means delivery exceeded the configured deadline. The provider
	// may still deliver the message late; the ledger records it as failed.
	ErrTimeout = errors.New("send timed out")
	// ErrUpstream means the chat provider rejected the request.
	ErrUpstream = errors.New("upstream send failure")
	// ErrNotConfigured means a required server secret is missing.
	ErrNotConfigured = errors.New("server not configured")
)

// SessionNotReadyError is returned when a send is attempted while the
// tenant's session is not in the ready state. It carries the current status
// so callers can tell "scan the QR" apart from "session dropped".
type SessionNotReadyError struct {
	TenantID string
	Status   SessionStatus
}

func (e *SessionNotReadyError) Error() string {
	return fmt.Sprintf("session for tenant %s not ready (status: %s)", e.TenantID, e.Status)
}

// IsSessionNotReady unwraps err into a SessionNotReadyError if it is one.
func IsSessionNotReady(err error) (*SessionNotReadyError, bool) {
	var snr *SessionNotReadyError
	if errors.As(err, &snr) {
		return snr, true
	}
	return nil, false
}
