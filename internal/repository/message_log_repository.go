package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"cobrazap/internal/entities"
)

// MessageLogRepository persists notification attempts. It is both the dedup
// ledger and the delivery log.
type MessageLogRepository struct {
	db *pgxpool.Pool
}

func NewMessageLogRepository(db *pgxpool.Pool) *MessageLogRepository {
	return &MessageLogRepository{db: db}
}

// NotifiedSet returns the kind|installment keys already logged for the tenant
// on sendDate. Status is deliberately ignored: a queued or failed row still
// blocks a re-send for the rest of the day.
func (r *MessageLogRepository) NotifiedSet(ctx context.Context, tenantID string, sendDate time.Time) (map[string]struct{}, error) {
	rows, err := r.db.Query(ctx, `
		SELECT kind, installment_id
		FROM message_log
		WHERE tenant_id = $1 AND send_date = $2
	`, tenantID, sendDate)
	if err != nil {
		return nil, fmt.Errorf("query notified set: %w", err)
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var kind, installmentID string
		if err := rows.Scan(&kind, &installmentID); err != nil {
			return nil, fmt.Errorf("scan notified row: %w", err)
		}
		set[entities.DedupKey(entities.NotificationKind(kind), installmentID)] = struct{}{}
	}
	return set, rows.Err()
}

// InsertQueued creates the ledger entry before the delivery attempt. Fails on
// the unique (tenant, kind, installment, send_date) constraint if a
// concurrent run already claimed the key.
func (r *MessageLogRepository) InsertQueued(ctx context.Context, entry *entities.MessageLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.Status = entities.MessageQueued

	_, err := r.db.Exec(ctx, `
		INSERT INTO message_log
			(id, tenant_id, kind, installment_id, loan_id, client_id,
			 to_phone, message, status, send_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'queued', $9)
	`, entry.ID, entry.TenantID, entry.Kind, entry.InstallmentID, entry.LoanID,
		entry.ClientID, entry.ToPhone, entry.Message, entry.SendDate)
	if err != nil {
		return fmt.Errorf("insert queued entry: %w", err)
	}
	return nil
}

// MarkSent resolves the entry after a successful delivery.
func (r *MessageLogRepository) MarkSent(ctx context.Context, entry *entities.MessageLogEntry) error {
	_, err := r.db.Exec(ctx, `
		UPDATE message_log
		SET status = 'sent', error = NULL, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`, entry.ID)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	entry.Status = entities.MessageSent
	return nil
}

// MarkFailed resolves the entry after a failed delivery, keeping the
// provider's failure payload (already truncated by the caller).
func (r *MessageLogRepository) MarkFailed(ctx context.Context, entry *entities.MessageLogEntry, sendErr string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE message_log
		SET status = 'failed', error = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
	`, entry.ID, sendErr)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	entry.Status = entities.MessageFailed
	entry.Error = sendErr
	return nil
}

// MarkStaleQueuedFailed resolves queued rows created before the cutoff to
// failed. Such rows mean a run crashed between insert and resolution; the
// real outcome is unknown.
func (r *MessageLogRepository) MarkStaleQueuedFailed(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE message_log
		SET status = 'failed', error = 'stale queued entry', updated_at = CURRENT_TIMESTAMP
		WHERE status = 'queued' AND created_at < $1
	`, before)
	if err != nil {
		return 0, fmt.Errorf("mark stale queued: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListForTenant returns the tenant's recent ledger entries, newest first.
// Backs the operator audit endpoint.
func (r *MessageLogRepository) ListForTenant(ctx context.Context, tenantID string, limit int) ([]entities.MessageLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, tenant_id, kind, installment_id, COALESCE(loan_id, ''),
		       COALESCE(client_id, ''), to_phone, message, status, send_date,
		       COALESCE(error, ''), created_at, updated_at
		FROM message_log
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("query message log: %w", err)
	}
	defer rows.Close()

	var entries []entities.MessageLogEntry
	for rows.Next() {
		var e entities.MessageLogEntry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Kind, &e.InstallmentID, &e.LoanID,
			&e.ClientID, &e.ToPhone, &e.Message, &e.Status, &e.SendDate,
			&e.Error, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan message log row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
