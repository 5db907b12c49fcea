package usecases

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"cobrazap/internal/entities"
	"cobrazap/internal/metrics"
)

// maxStoredError bounds the provider failure payload persisted on the ledger.
const maxStoredError = 500

// staleQueuedTTL is how long a queued ledger row may sit before a pass marks
// it failed. A row stuck in queued means a previous run crashed mid-dispatch;
// the delivery outcome is unknown.
const staleQueuedTTL = 24 * time.Hour

// SettingsStore reads per-tenant automation settings.
type SettingsStore interface {
	ListEnabled(ctx context.Context) ([]entities.AutomationSettings, error)
}

// InstallmentStore reads the loan application's notifiable-installment view.
type InstallmentStore interface {
	// ListDueForContact returns the tenant's unpaid installments with a due
	// date at or before today+earlyDays. No lower bound: overdue rows stay
	// eligible until paid.
	ListDueForContact(ctx context.Context, tenantID string, today time.Time, earlyDays int) ([]entities.DueInstallment, error)
}

// Ledger is the dedup ledger plus delivery log.
type Ledger interface {
	// NotifiedSet returns the set of kind|installment keys already logged
	// for the tenant on sendDate, regardless of status.
	NotifiedSet(ctx context.Context, tenantID string, sendDate time.Time) (map[string]struct{}, error)
	InsertQueued(ctx context.Context, entry *entities.MessageLogEntry) error
	MarkSent(ctx context.Context, entry *entities.MessageLogEntry) error
	MarkFailed(ctx context.Context, entry *entities.MessageLogEntry, sendErr string) error
	// MarkStaleQueuedFailed resolves queued rows older than before to failed.
	MarkStaleQueuedFailed(ctx context.Context, before time.Time) (int64, error)
}

// Sender delivers one message; the Dispatcher satisfies it.
type Sender interface {
	Send(ctx context.Context, tenantID, to, message string) error
}

// RunReport is the accounting for one notification pass.
type RunReport struct {
	Tenants      int `json:"tenants"`
	Selected     int `json:"selected"`
	SkippedDedup int `json:"skipped_dedup"`
	SkippedBlank int `json:"skipped_blank"`
	Sent         int `json:"sent"`
	Failed       int `json:"failed"`
}

// Notifier runs the dispatch pipeline: select -> dedup -> render -> deliver
// -> log, per enabled tenant.
type Notifier struct {
	settings     SettingsStore
	installments InstallmentStore
	ledger       Ledger
	sender       Sender
	log          *logrus.Logger

	// now is swappable for tests.
	now func() time.Time
}

func NewNotifier(settings SettingsStore, installments InstallmentStore, ledger Ledger, sender Sender, log *logrus.Logger) *Notifier {
	return &Notifier{
		settings:     settings,
		installments: installments,
		ledger:       ledger,
		sender:       sender,
		log:          log,
		now:          time.Now,
	}
}

// Run executes one complete pass. Per-tenant failures are logged and skip
// the tenant; they never abort the pass. Returns an error only when the
// settings read itself fails.
func (n *Notifier) Run(ctx context.Context) (RunReport, error) {
	var report RunReport
	now := n.now()
	today := dateOf(now, now.Location())

	// Surface crashed attempts from earlier runs before selecting. The dedup
	// read counts these rows either way, so a crash mid-dispatch still blocks
	// re-sends for the rest of the day.
	if stale, err := n.ledger.MarkStaleQueuedFailed(ctx, now.Add(-staleQueuedTTL)); err != nil {
		n.log.Warnf("stale queued cleanup failed: %v", err)
	} else if stale > 0 {
		n.log.Warnf("marked %d stale queued entries as failed", stale)
	}

	tenants, err := n.settings.ListEnabled(ctx)
	if err != nil {
		return report, err
	}
	report.Tenants = len(tenants)

	for _, cfg := range tenants {
		n.runTenant(ctx, cfg, now, today, &report)
	}

	metrics.SchedulerRuns.Inc()
	return report, nil
}

func (n *Notifier) runTenant(ctx context.Context, cfg entities.AutomationSettings, now, today time.Time, report *RunReport) {
	tlog := n.log.WithField("tenant", cfg.TenantID)

	rows, err := n.installments.ListDueForContact(ctx, cfg.TenantID, today, cfg.EarlyDays)
	if err != nil {
		tlog.Errorf("installment query failed: %v", err)
		return
	}

	targets := SelectTargets(now, cfg, rows)
	report.Selected += len(targets)
	if len(targets) == 0 {
		return
	}

	notified, err := n.ledger.NotifiedSet(ctx, cfg.TenantID, today)
	if err != nil {
		// Without the dedup read we cannot guarantee at-most-once; skip the
		// tenant and let the next pass retry.
		tlog.Errorf("dedup read failed, skipping tenant: %v", err)
		return
	}

	for _, target := range targets {
		if _, seen := notified[entities.DedupKey(target.Kind, target.InstallmentID)]; seen {
			report.SkippedDedup++
			continue
		}

		message := RenderTemplate(cfg.TemplateFor(target.Kind), target.TemplateData())
		if BlankMessage(message) {
			// Misconfigured template: no ledger entry, no dispatch.
			report.SkippedBlank++
			tlog.WithField("installment", target.InstallmentID).
				Warn("rendered message blank, target skipped")
			continue
		}

		n.dispatch(ctx, target, message, today, report, tlog)
	}
}

// dispatch writes the queued ledger entry, attempts delivery, then resolves
// the entry to sent or failed. Ledger write failures after the attempt are
// swallowed so they never mask the delivery outcome.
func (n *Notifier) dispatch(ctx context.Context, target entities.NotificationTarget, message string, today time.Time, report *RunReport, tlog *logrus.Entry) {
	entry := &entities.MessageLogEntry{
		TenantID:      target.TenantID,
		Kind:          target.Kind,
		InstallmentID: target.InstallmentID,
		LoanID:        target.LoanID,
		ClientID:      target.ClientID,
		ToPhone:       target.Phone,
		Message:       message,
		Status:        entities.MessageQueued,
		SendDate:      today,
	}

	if err := n.ledger.InsertQueued(ctx, entry); err != nil {
		// Likely a concurrent run already claimed the dedup key; either way
		// dispatching without a ledger row would break at-most-once.
		report.SkippedDedup++
		tlog.WithField("installment", target.InstallmentID).
			Warnf("queued insert failed, target skipped: %v", err)
		return
	}

	if err := n.sender.Send(ctx, target.TenantID, target.Phone, message); err != nil {
		report.Failed++
		metrics.MessagesFailed.WithLabelValues(target.TenantID, string(target.Kind)).Inc()
		if lerr := n.ledger.MarkFailed(ctx, entry, truncateError(err.Error())); lerr != nil {
			tlog.Warnf("mark failed write lost: %v", lerr)
		}
		tlog.WithFields(logrus.Fields{
			"installment": target.InstallmentID,
			"kind":        target.Kind,
		}).Warnf("delivery failed: %v", err)
		return
	}

	report.Sent++
	metrics.MessagesSent.WithLabelValues(target.TenantID, string(target.Kind)).Inc()
	if lerr := n.ledger.MarkSent(ctx, entry); lerr != nil {
		tlog.Warnf("mark sent write lost: %v", lerr)
	}
}

func truncateError(s string) string {
	if len(s) <= maxStoredError {
		return s
	}
	return s[:maxStoredError]
}
