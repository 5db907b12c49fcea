package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cobrazap/internal/entities"
)

type gatewayCall struct {
	tenantID string
	to       string
	message  string
}

// fakeGateway stands in for the session manager.
type fakeGateway struct {
	calls    []gatewayCall
	failTo   map[string]error
	notReady map[string]entities.SessionStatus
	block    bool
}

func (f *fakeGateway) Send(ctx context.Context, tenantID, to, message string) error {
	if status, ok := f.notReady[tenantID]; ok {
		return &entities.SessionNotReadyError{TenantID: tenantID, Status: status}
	}
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	f.calls = append(f.calls, gatewayCall{tenantID, to, message})
	if err := f.failTo[to]; err != nil {
		return err
	}
	return nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestDispatcherSendNormalizesPhone(t *testing.T) {
	gw := &fakeGateway{}
	d := NewDispatcher(gw, time.Second, testLogger())

	err := d.Send(context.Background(), "t1", "(11) 99999-8888", "oi")
	require.NoError(t, err)
	require.Len(t, gw.calls, 1)
	assert.Equal(t, "5511999998888", gw.calls[0].to)
}

func TestDispatcherSendInvalidInput(t *testing.T) {
	gw := &fakeGateway{}
	d := NewDispatcher(gw, time.Second, testLogger())

	err := d.Send(context.Background(), "", "11999998888", "oi")
	assert.True(t, errors.Is(err, entities.ErrInvalidInput))

	err = d.Send(context.Background(), "t1", "11999998888", "  ")
	assert.True(t, errors.Is(err, entities.ErrInvalidInput))

	err = d.Send(context.Background(), "t1", "---", "oi")
	assert.True(t, errors.Is(err, entities.ErrInvalidPhone))

	assert.Empty(t, gw.calls, "no delivery attempt for invalid input")
}

func TestDispatcherSendSessionNotReady(t *testing.T) {
	gw := &fakeGateway{notReady: map[string]entities.SessionStatus{
		"t1": entities.SessionQR,
	}}
	d := NewDispatcher(gw, time.Second, testLogger())

	err := d.Send(context.Background(), "t1", "11999998888", "oi")
	snr, ok := entities.IsSessionNotReady(err)
	require.True(t, ok)
	assert.Equal(t, entities.SessionQR, snr.Status)
	assert.Empty(t, gw.calls)
}

func TestDispatcherSendTimeout(t *testing.T) {
	gw := &fakeGateway{block: true}
	d := NewDispatcher(gw, 20*time.Millisecond, testLogger())

	err := d.Send(context.Background(), "t1", "11999998888", "oi")
	assert.True(t, errors.Is(err, entities.ErrTimeout))
}

func TestDispatcherSendUpstreamFailure(t *testing.T) {
	gw := &fakeGateway{failTo: map[string]error{
		"5511999998888": errors.New("provider said no"),
	}}
	d := NewDispatcher(gw, time.Second, testLogger())

	err := d.Send(context.Background(), "t1", "11999998888", "oi")
	assert.True(t, errors.Is(err, entities.ErrUpstream))
}

func TestDispatcherSendBatchPartialFailure(t *testing.T) {
	gw := &fakeGateway{failTo: map[string]error{
		"5511999990002": errors.New("number not on network"),
	}}
	d := NewDispatcher(gw, time.Second, testLogger())

	items := []BatchItem{
		{TenantID: "t1", To: "11999990001", Message: "a"},
		{TenantID: "t1", To: "11999990002", Message: "b"},
		{TenantID: "t1", To: "11999990003", Message: "c"},
	}

	result := d.SendBatch(context.Background(), items)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Results, 3)

	assert.True(t, result.Results[0].OK)
	assert.False(t, result.Results[1].OK)
	assert.Contains(t, result.Results[1].Error, "number not on network")
	assert.True(t, result.Results[2].OK)

	// One item's failure never stops the rest
	require.Len(t, gw.calls, 3)
}

func TestDispatcherSendBatchPreservesOrder(t *testing.T) {
	gw := &fakeGateway{}
	d := NewDispatcher(gw, time.Second, testLogger())

	items := []BatchItem{
		{TenantID: "t1", To: "11999990001", Message: "first"},
		{TenantID: "t2", To: "11999990002", Message: "second"},
	}

	result := d.SendBatch(context.Background(), items)
	require.Equal(t, 0, result.Failed)
	require.Len(t, gw.calls, 2)
	assert.Equal(t, "first", gw.calls[0].message)
	assert.Equal(t, "second", gw.calls[1].message)
	assert.Equal(t, "t2", gw.calls[1].tenantID)
}
