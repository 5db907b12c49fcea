package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"cobrazap/internal/entities"
	"cobrazap/internal/interfaces"
)

// WhatsAppTransport is the whatsmeow-backed ChatTransport. Authentication
// material lives in a per-tenant sqlite file so a restarted process resumes
// the session without a new QR scan.
type WhatsAppTransport struct {
	client   *whatsmeow.Client
	tenantID string

	mu      sync.Mutex
	onState func(interfaces.TransportEvent)
}

// NewWhatsAppTransport opens (or creates) the tenant's credential store under
// baseDir and builds a disconnected client.
func NewWhatsAppTransport(baseDir, tenantID string) (interfaces.ChatTransport, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	dbPath := filepath.Join(baseDir, fmt.Sprintf("tenant_%s.db", tenantID))
	dbLog := waLog.Noop
	container, err := sqlstore.New(context.Background(), "sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)", dbLog)
	if err != nil {
		return nil, fmt.Errorf("open credential store for tenant %s: %w", tenantID, err)
	}

	deviceStore, err := container.GetFirstDevice(context.Background())
	if err != nil {
		return nil, fmt.Errorf("get device for tenant %s: %w", tenantID, err)
	}

	client := whatsmeow.NewClient(deviceStore, waLog.Noop)
	return &WhatsAppTransport{client: client, tenantID: tenantID}, nil
}

func (w *WhatsAppTransport) OnStateChange(fn func(interfaces.TransportEvent)) {
	w.mu.Lock()
	w.onState = fn
	w.mu.Unlock()
}

func (w *WhatsAppTransport) emit(evt interfaces.TransportEvent) {
	w.mu.Lock()
	fn := w.onState
	w.mu.Unlock()
	if fn != nil {
		fn(evt)
	}
}

// Initialize connects the underlying client. With stored credentials the
// session goes straight to ready on the Connected event; without them the QR
// channel drives the qr -> authenticated leg of the state machine.
func (w *WhatsAppTransport) Initialize(ctx context.Context) error {
	w.client.AddEventHandler(func(evt interface{}) {
		switch v := evt.(type) {
		case *events.Connected:
			w.emit(interfaces.TransportEvent{Status: entities.SessionReady})
		case *events.LoggedOut:
			w.emit(interfaces.TransportEvent{
				Status: entities.SessionAuthFailure,
				Err:    fmt.Sprintf("logged out by provider (reason: %s)", v.Reason),
			})
		case *events.Disconnected:
			w.emit(interfaces.TransportEvent{
				Status: entities.SessionDisconnected,
				Err:    "connection to provider lost",
			})
		case *events.StreamError:
			w.emit(interfaces.TransportEvent{
				Status: entities.SessionDisconnected,
				Err:    "stream error: " + v.Code,
			})
		}
	})

	if w.client.Store.ID == nil {
		// No stored credentials, new login via QR
		qrChan, err := w.client.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("get qr channel: %w", err)
		}
		if err := w.client.Connect(); err != nil {
			return fmt.Errorf("connect: %w", err)
		}

		go func() {
			for evt := range qrChan {
				switch evt.Event {
				case "code":
					w.emit(interfaces.TransportEvent{Status: entities.SessionQR, QRCode: evt.Code})
				case "success":
					w.emit(interfaces.TransportEvent{Status: entities.SessionAuthenticated})
				case "timeout":
					w.emit(interfaces.TransportEvent{
						Status: entities.SessionAuthFailure,
						Err:    "qr scan timed out",
					})
				default:
					w.emit(interfaces.TransportEvent{
						Status: entities.SessionAuthFailure,
						Err:    "login failed: " + evt.Event,
					})
				}
			}
		}()
		return nil
	}

	// Credentials on disk, resume the existing session
	if err := w.client.Connect(); err != nil {
		return fmt.Errorf("connect with stored session: %w", err)
	}
	return nil
}

// Send delivers a plain text message. to is a normalized number (digits only,
// country code included); ctx carries the caller's deadline, so a timeout
// genuinely cancels the in-flight send.
func (w *WhatsAppTransport) Send(ctx context.Context, to, message string) error {
	jid, err := types.ParseJID(to + "@s.whatsapp.net")
	if err != nil {
		return fmt.Errorf("invalid number format: %w", err)
	}

	_, err = w.client.SendMessage(ctx, jid, &waProto.Message{
		Conversation: &message,
	})
	return err
}

func (w *WhatsAppTransport) Destroy() error {
	err := w.client.Logout(context.Background())
	w.client.Disconnect()
	return err
}

func (w *WhatsAppTransport) Close() {
	w.client.Disconnect()
}
