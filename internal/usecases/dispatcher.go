package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"cobrazap/internal/entities"
)

// SessionGateway is the slice of the session manager the dispatcher needs.
// Send creates the tenant's session lazily if absent and fails with
// SessionNotReadyError unless it is ready.
type SessionGateway interface {
	Send(ctx context.Context, tenantID, to, message string) error
}

// DefaultSendTimeout bounds a single delivery attempt unless configured.
const DefaultSendTimeout = 120 * time.Second

// BatchItem is one requested send within a batch.
type BatchItem struct {
	TenantID string `json:"tenant_id"`
	To       string `json:"to"`
	Message  string `json:"message"`
}

// BatchItemResult is the per-item outcome; recorded for every item whether or
// not it succeeded.
type BatchItemResult struct {
	OK       bool   `json:"ok"`
	TenantID string `json:"tenant_id"`
	To       string `json:"to"`
	Error    string `json:"error,omitempty"`
}

// BatchResult aggregates a batch send.
type BatchResult struct {
	Total   int               `json:"total"`
	Failed  int               `json:"failed"`
	Results []BatchItemResult `json:"results"`
}

// Dispatcher submits messages through tenant sessions with a bounded timeout
// per attempt.
type Dispatcher struct {
	sessions SessionGateway
	timeout  time.Duration
	log      *logrus.Logger
}

func NewDispatcher(sessions SessionGateway, timeout time.Duration, log *logrus.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &Dispatcher{sessions: sessions, timeout: timeout, log: log}
}

// Send validates, normalizes and delivers one message. The attempt is
// cancelled when the timeout elapses; the provider may still deliver a
// message whose frame left the socket before cancellation, which the ledger
// cannot detect.
func (d *Dispatcher) Send(ctx context.Context, tenantID, to, message string) error {
	if strings.TrimSpace(tenantID) == "" || strings.TrimSpace(message) == "" {
		return fmt.Errorf("tenant id and message are required: %w", entities.ErrInvalidInput)
	}

	phone, err := NormalizePhone(to)
	if err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err = d.sessions.Send(sendCtx, tenantID, phone, message)
	if err == nil {
		return nil
	}
	if _, notReady := entities.IsSessionNotReady(err); notReady {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || sendCtx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("send to %s for tenant %s: %w", phone, tenantID, entities.ErrTimeout)
	}
	return fmt.Errorf("send to %s for tenant %s: %v: %w", phone, tenantID, err, entities.ErrUpstream)
}

// SendBatch processes items sequentially so sends through one tenant's
// session never race the provider's per-connection limits. One item's
// failure never stops the rest; every item gets a result entry.
func (d *Dispatcher) SendBatch(ctx context.Context, items []BatchItem) BatchResult {
	result := BatchResult{
		Total:   len(items),
		Results: make([]BatchItemResult, 0, len(items)),
	}

	for _, item := range items {
		itemResult := BatchItemResult{OK: true, TenantID: item.TenantID, To: item.To}

		if err := d.Send(ctx, item.TenantID, item.To, item.Message); err != nil {
			itemResult.OK = false
			itemResult.Error = err.Error()
			result.Failed++
			d.log.WithFields(logrus.Fields{
				"tenant": item.TenantID,
				"to":     item.To,
			}).Warnf("batch item failed: %v", err)
		}

		result.Results = append(result.Results, itemResult)
	}

	return result
}
