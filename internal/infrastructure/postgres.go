package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool}

	// Auto-migrate schema
	if err := client.Migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func (p *PostgresClient) Migrate() error {
	ctx := context.Background()

	// Message log. The unique index is the dedup key: at most one
	// notification of a given kind per installment per calendar day.
	_, err := p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS message_log (
			id UUID PRIMARY KEY,
			tenant_id VARCHAR(64) NOT NULL,
			kind VARCHAR(20) NOT NULL,
			installment_id VARCHAR(64) NOT NULL,
			loan_id VARCHAR(64),
			client_id VARCHAR(64),
			to_phone VARCHAR(32) NOT NULL,
			message TEXT NOT NULL,
			status VARCHAR(10) NOT NULL DEFAULT 'queued'
				CHECK (status IN ('queued', 'sent', 'failed')),
			send_date DATE NOT NULL,
			error TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (tenant_id, kind, installment_id, send_date)
		);
	`)
	if err != nil {
		return fmt.Errorf("create message_log table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_message_log_tenant_date
			ON message_log (tenant_id, send_date);
	`)
	if err != nil {
		return fmt.Errorf("create message_log index: %w", err)
	}

	// Per-tenant automation settings. Mutated by the loan application's
	// settings screen; read-only here.
	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS automation_settings (
			tenant_id VARCHAR(64) PRIMARY KEY,
			enabled BOOLEAN NOT NULL DEFAULT FALSE,
			early_days INT NOT NULL DEFAULT 0,
			send_due_today BOOLEAN NOT NULL DEFAULT TRUE,
			send_overdue BOOLEAN NOT NULL DEFAULT TRUE,
			send_early BOOLEAN NOT NULL DEFAULT FALSE,
			template_due_today TEXT,
			template_overdue TEXT,
			template_early TEXT,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("create automation_settings table: %w", err)
	}

	// v_notifiable_installments is owned by the loan application and is not
	// created here. It must expose: installment_id, tenant_id, loan_id,
	// client_id, installment_number, due_date, amount, client_name, phone,
	// already filtered to unpaid installments with a phone on file.

	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
