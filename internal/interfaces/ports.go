package interfaces

import (
	"context"

	"cobrazap/internal/entities"
)

// TransportEvent is one lifecycle signal from the chat provider. Status is
// the state the provider wants the session to move to; QRCode and Err carry
// the payload for the qr and failure states respectively.
type TransportEvent struct {
	Status entities.SessionStatus
	QRCode string
	Err    string
}

// ChatTransport is the capability the session manager needs from a chat
// provider connection. The whatsmeow client implements it in production;
// tests use a fake so every state transition is exercisable offline.
type ChatTransport interface {
	// Initialize starts connecting. It returns once the connection attempt
	// is underway; lifecycle progress arrives via the OnStateChange callback.
	Initialize(ctx context.Context) error
	// OnStateChange registers the event callback. Must be called before
	// Initialize.
	OnStateChange(fn func(TransportEvent))
	// Send delivers a text message to a normalized phone number (digits
	// only, country code included). Honors ctx cancellation.
	Send(ctx context.Context, to, message string) error
	// Destroy logs out and tears down the connection, cancelling any
	// in-flight operations. Stored credentials are invalidated.
	Destroy() error
	// Close disconnects without logging out, keeping credentials on disk so
	// the session resumes after a process restart.
	Close()
}

// TransportFactory builds a transport for one tenant.
type TransportFactory func(tenantID string) (ChatTransport, error)
