package infrastructure

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"cobrazap/internal/entities"
	"cobrazap/internal/interfaces"
	"cobrazap/internal/metrics"
)

// Session is one tenant's live messaging session. All state behind the mutex;
// callers only ever see snapshots.
type Session struct {
	tenantID string

	mu          sync.RWMutex
	status      entities.SessionStatus
	qrCode      string
	lastError   string
	lastEventAt time.Time
	transport   interfaces.ChatTransport
}

// apply advances the state machine by one transport event. Transitions are
// monotonic: stale events (a QR refresh arriving after authentication, any
// event after logout) are dropped. Returns whether the event was accepted.
func (s *Session) apply(evt interfaces.TransportEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.Terminal() {
		return false
	}

	switch evt.Status {
	case entities.SessionQR:
		// Only reachable while waiting for the first scan; QR refreshes
		// replace the payload in place.
		if s.status != entities.SessionInitializing && s.status != entities.SessionQR {
			return false
		}
		s.status = entities.SessionQR
		s.qrCode = evt.QRCode
	case entities.SessionAuthenticated:
		if s.status != entities.SessionInitializing && s.status != entities.SessionQR {
			return false
		}
		s.status = entities.SessionAuthenticated
	case entities.SessionReady:
		s.status = entities.SessionReady
		s.qrCode = ""
		s.lastError = ""
	case entities.SessionAuthFailure, entities.SessionDisconnected:
		s.status = evt.Status
		s.lastError = evt.Err
		s.qrCode = ""
	case entities.SessionError:
		// Initialization failure only; a live session that breaks reports
		// disconnected instead.
		if s.status != entities.SessionInitializing {
			return false
		}
		s.status = entities.SessionError
		s.lastError = evt.Err
	default:
		return false
	}

	s.lastEventAt = time.Now()
	return true
}

func (s *Session) snapshot() entities.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return entities.SessionSnapshot{
		TenantID:    s.tenantID,
		Status:      s.status,
		QRCode:      s.qrCode,
		LastError:   s.lastError,
		LastEventAt: s.lastEventAt,
	}
}

// sendHandle returns the current status and, when ready, the transport.
func (s *Session) sendHandle() (entities.SessionStatus, interfaces.ChatTransport) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.status != entities.SessionReady {
		return s.status, nil
	}
	return s.status, s.transport
}

func (s *Session) setTransport(t interfaces.ChatTransport) {
	s.mu.Lock()
	s.transport = t
	s.mu.Unlock()
}

func (s *Session) markLoggedOut() interfaces.ChatTransport {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = entities.SessionLoggedOut
	s.qrCode = ""
	s.lastEventAt = time.Now()
	return s.transport
}

// SessionManager owns the per-tenant session registry. Sessions are created
// lazily on first use and live for the process lifetime unless logged out.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	factory interfaces.TransportFactory
	log     *logrus.Logger

	// OnSessionDown, when set, is called whenever a session drops to
	// auth_failure or disconnected. Used for operator alerts.
	OnSessionDown func(tenantID string, snap entities.SessionSnapshot)
}

func NewSessionManager(factory interfaces.TransportFactory, log *logrus.Logger) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		factory:  factory,
		log:      log,
	}
}

// EnsureSession returns the tenant's session, creating and asynchronously
// initializing one if absent. Idempotent; never blocks on the provider.
func (m *SessionManager) EnsureSession(tenantID string) entities.SessionSnapshot {
	return m.ensure(tenantID).snapshot()
}

func (m *SessionManager) ensure(tenantID string) *Session {
	m.mu.RLock()
	sess, exists := m.sessions[tenantID]
	m.mu.RUnlock()
	if exists {
		return sess
	}

	m.mu.Lock()
	if sess, exists = m.sessions[tenantID]; exists {
		m.mu.Unlock()
		return sess
	}
	sess = &Session{
		tenantID:    tenantID,
		status:      entities.SessionInitializing,
		lastEventAt: time.Now(),
	}
	m.sessions[tenantID] = sess
	m.mu.Unlock()

	go m.initialize(sess)
	return sess
}

func (m *SessionManager) initialize(sess *Session) {
	transport, err := m.factory(sess.tenantID)
	if err != nil {
		m.applyAndReport(sess, interfaces.TransportEvent{
			Status: entities.SessionError,
			Err:    err.Error(),
		})
		return
	}

	sess.setTransport(transport)
	transport.OnStateChange(func(evt interfaces.TransportEvent) {
		m.applyAndReport(sess, evt)
	})

	if err := transport.Initialize(context.Background()); err != nil {
		m.applyAndReport(sess, interfaces.TransportEvent{
			Status: entities.SessionError,
			Err:    err.Error(),
		})
	}
}

func (m *SessionManager) applyAndReport(sess *Session, evt interfaces.TransportEvent) {
	if !sess.apply(evt) {
		return
	}

	m.log.WithFields(logrus.Fields{
		"tenant": sess.tenantID,
		"status": evt.Status,
	}).Info("session state changed")
	metrics.SessionsReady.Set(float64(m.ReadyCount()))

	if evt.Status == entities.SessionAuthFailure || evt.Status == entities.SessionDisconnected {
		if fn := m.OnSessionDown; fn != nil {
			fn(sess.tenantID, sess.snapshot())
		}
	}
}

// Status returns a snapshot without creating a session.
func (m *SessionManager) Status(tenantID string) (entities.SessionSnapshot, bool) {
	m.mu.RLock()
	sess, exists := m.sessions[tenantID]
	m.mu.RUnlock()
	if !exists {
		return entities.SessionSnapshot{}, false
	}
	return sess.snapshot(), true
}

// Send delivers one message through the tenant's session, creating the
// session if absent. Fails with SessionNotReadyError unless the session is
// ready; performs no provider call in that case.
func (m *SessionManager) Send(ctx context.Context, tenantID, to, message string) error {
	sess := m.ensure(tenantID)
	status, transport := sess.sendHandle()
	if transport == nil {
		return &entities.SessionNotReadyError{TenantID: tenantID, Status: status}
	}
	return transport.Send(ctx, to, message)
}

// Logout tears the session down and removes it from the registry. The next
// call for the tenant creates a brand-new initializing session. Returns
// whether a session existed.
func (m *SessionManager) Logout(tenantID string) bool {
	m.mu.Lock()
	sess, exists := m.sessions[tenantID]
	if exists {
		delete(m.sessions, tenantID)
	}
	m.mu.Unlock()

	if !exists {
		return false
	}

	transport := sess.markLoggedOut()
	metrics.SessionsReady.Set(float64(m.ReadyCount()))
	if transport != nil {
		if err := transport.Destroy(); err != nil {
			m.log.WithField("tenant", tenantID).Warnf("logout teardown: %v", err)
		}
	}
	return true
}

// ReadyCount returns how many sessions are currently ready.
func (m *SessionManager) ReadyCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, sess := range m.sessions {
		if snap := sess.snapshot(); snap.Status == entities.SessionReady {
			n++
		}
	}
	return n
}

// Shutdown disconnects all sessions (for graceful shutdown). Credential
// stores stay on disk, so sessions resume without a QR scan on the next start.
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.mu.RLock()
		transport := sess.transport
		sess.mu.RUnlock()
		if transport != nil {
			transport.Close()
		}
	}
}
