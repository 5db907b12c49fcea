package infrastructure

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cobrazap/internal/entities"
	"cobrazap/internal/interfaces"
)

type fakeTransport struct {
	mu        sync.Mutex
	onState   func(interfaces.TransportEvent)
	initDone  bool
	destroyed bool
	closed    bool
	sends     []string
	initErr   error
}

func (f *fakeTransport) Initialize(ctx context.Context) error {
	f.mu.Lock()
	f.initDone = true
	f.mu.Unlock()
	return f.initErr
}

func (f *fakeTransport) OnStateChange(fn func(interfaces.TransportEvent)) {
	f.mu.Lock()
	f.onState = fn
	f.mu.Unlock()
}

func (f *fakeTransport) Send(ctx context.Context, to, message string) error {
	f.mu.Lock()
	f.sends = append(f.sends, to)
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Destroy() error {
	f.mu.Lock()
	f.destroyed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeTransport) emit(evt interfaces.TransportEvent) {
	f.mu.Lock()
	fn := f.onState
	f.mu.Unlock()
	fn(evt)
}

func (f *fakeTransport) initialized() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initDone
}

type fakeFactory struct {
	mu         sync.Mutex
	transports []*fakeTransport
	err        error
}

func (f *fakeFactory) build(tenantID string) (interfaces.ChatTransport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	transport := &fakeTransport{}
	f.transports = append(f.transports, transport)
	return transport, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transports)
}

func (f *fakeFactory) last() *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transports[len(f.transports)-1]
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestManager(t *testing.T) (*SessionManager, *fakeFactory) {
	factory := &fakeFactory{}
	return NewSessionManager(factory.build, quietLogger()), factory
}

// waitInit blocks until the async initialize goroutine has run.
func waitInit(t *testing.T, factory *fakeFactory) *fakeTransport {
	t.Helper()
	require.Eventually(t, func() bool {
		return factory.count() > 0 && factory.last().initialized()
	}, time.Second, 5*time.Millisecond)
	return factory.last()
}

func TestEnsureSessionIsIdempotent(t *testing.T) {
	m, factory := newTestManager(t)

	first := m.EnsureSession("t1")
	assert.Equal(t, entities.SessionInitializing, first.Status)

	waitInit(t, factory)
	second := m.EnsureSession("t1")
	assert.Equal(t, "t1", second.TenantID)
	assert.Equal(t, 1, factory.count(), "second EnsureSession must reuse the session")
}

func TestSessionQRFlow(t *testing.T) {
	m, factory := newTestManager(t)
	m.EnsureSession("t1")
	transport := waitInit(t, factory)

	transport.emit(interfaces.TransportEvent{Status: entities.SessionQR, QRCode: "qr-payload"})
	snap, ok := m.Status("t1")
	require.True(t, ok)
	assert.Equal(t, entities.SessionQR, snap.Status)
	assert.True(t, snap.HasQR())
	assert.Equal(t, "qr-payload", snap.QRCode)

	transport.emit(interfaces.TransportEvent{Status: entities.SessionAuthenticated})
	transport.emit(interfaces.TransportEvent{Status: entities.SessionReady})

	snap, _ = m.Status("t1")
	assert.Equal(t, entities.SessionReady, snap.Status)
	assert.Empty(t, snap.QRCode, "QR payload cleared upon ready")
	assert.Empty(t, snap.LastError)
}

func TestStaleQREventIgnoredAfterReady(t *testing.T) {
	m, factory := newTestManager(t)
	m.EnsureSession("t1")
	transport := waitInit(t, factory)

	transport.emit(interfaces.TransportEvent{Status: entities.SessionReady})
	transport.emit(interfaces.TransportEvent{Status: entities.SessionQR, QRCode: "late"})

	snap, _ := m.Status("t1")
	assert.Equal(t, entities.SessionReady, snap.Status)
	assert.Empty(t, snap.QRCode)
}

func TestSendRequiresReadySession(t *testing.T) {
	m, factory := newTestManager(t)

	err := m.Send(context.Background(), "t1", "5511999998888", "oi")
	snr, ok := entities.IsSessionNotReady(err)
	require.True(t, ok)
	assert.Equal(t, entities.SessionInitializing, snr.Status)

	transport := waitInit(t, factory)
	assert.Empty(t, transport.sends, "no provider call while not ready")

	transport.emit(interfaces.TransportEvent{Status: entities.SessionReady})
	require.NoError(t, m.Send(context.Background(), "t1", "5511999998888", "oi"))
	assert.Equal(t, []string{"5511999998888"}, transport.sends)
}

func TestLogoutCreatesFreshSessionNextTime(t *testing.T) {
	m, factory := newTestManager(t)
	m.EnsureSession("t1")
	transport := waitInit(t, factory)
	transport.emit(interfaces.TransportEvent{Status: entities.SessionReady})

	require.True(t, m.Logout("t1"))
	transport.mu.Lock()
	destroyed := transport.destroyed
	transport.mu.Unlock()
	assert.True(t, destroyed)

	_, ok := m.Status("t1")
	assert.False(t, ok, "session removed from registry")

	snap := m.EnsureSession("t1")
	assert.Equal(t, entities.SessionInitializing, snap.Status)
	require.Eventually(t, func() bool { return factory.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestLogoutUnknownTenant(t *testing.T) {
	m, _ := newTestManager(t)
	assert.False(t, m.Logout("ghost"))
}

func TestFactoryErrorMarksSessionError(t *testing.T) {
	factory := &fakeFactory{err: assert.AnError}
	m := NewSessionManager(factory.build, quietLogger())

	m.EnsureSession("t1")
	require.Eventually(t, func() bool {
		snap, _ := m.Status("t1")
		return snap.Status == entities.SessionError
	}, time.Second, 5*time.Millisecond)

	snap, _ := m.Status("t1")
	assert.NotEmpty(t, snap.LastError)
}

func TestDisconnectRecordsReason(t *testing.T) {
	m, factory := newTestManager(t)

	var downTenant string
	var downMu sync.Mutex
	m.OnSessionDown = func(tenantID string, snap entities.SessionSnapshot) {
		downMu.Lock()
		downTenant = tenantID
		downMu.Unlock()
	}

	m.EnsureSession("t1")
	transport := waitInit(t, factory)
	transport.emit(interfaces.TransportEvent{Status: entities.SessionReady})
	transport.emit(interfaces.TransportEvent{
		Status: entities.SessionDisconnected,
		Err:    "connection to provider lost",
	})

	snap, _ := m.Status("t1")
	assert.Equal(t, entities.SessionDisconnected, snap.Status)
	assert.Equal(t, "connection to provider lost", snap.LastError)

	downMu.Lock()
	assert.Equal(t, "t1", downTenant)
	downMu.Unlock()
}

func TestReadyCount(t *testing.T) {
	m, factory := newTestManager(t)
	m.EnsureSession("t1")
	waitInit(t, factory).emit(interfaces.TransportEvent{Status: entities.SessionReady})
	m.EnsureSession("t2")
	require.Eventually(t, func() bool { return factory.count() == 2 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, m.ReadyCount())
}
