package entities

import "time"

// SessionStatus is the lifecycle state of a tenant's WhatsApp session.
type SessionStatus string

const (
	SessionInitializing  SessionStatus = "initializing"
	SessionQR            SessionStatus = "qr"
	SessionAuthenticated SessionStatus = "authenticated"
	SessionReady         SessionStatus = "ready"
	SessionAuthFailure   SessionStatus = "auth_failure"
	SessionDisconnected  SessionStatus = "disconnected"
	SessionError         SessionStatus = "error"
	SessionLoggedOut     SessionStatus = "logged_out"
)

// Terminal reports whether the session can never transition again.
func (s SessionStatus) Terminal() bool {
	return s == SessionLoggedOut
}

// SessionSnapshot is a point-in-time copy of a session's observable state,
// safe to hand out across goroutines.
type SessionSnapshot struct {
	TenantID    string
	Status      SessionStatus
	QRCode      string
	LastError   string
	LastEventAt time.Time
}

// HasQR reports whether a scannable QR payload is currently available.
func (s SessionSnapshot) HasQR() bool {
	return s.Status == SessionQR && s.QRCode != ""
}
