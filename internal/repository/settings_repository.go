package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"cobrazap/internal/entities"
)

// SettingsRepository reads per-tenant automation settings. The loan
// application writes them; this service only reads.
type SettingsRepository struct {
	db *pgxpool.Pool
}

func NewSettingsRepository(db *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// ListEnabled returns settings for every tenant with automation switched on.
func (r *SettingsRepository) ListEnabled(ctx context.Context) ([]entities.AutomationSettings, error) {
	rows, err := r.db.Query(ctx, `
		SELECT tenant_id, enabled, early_days, send_due_today, send_overdue,
		       send_early, COALESCE(template_due_today, ''),
		       COALESCE(template_overdue, ''), COALESCE(template_early, '')
		FROM automation_settings
		WHERE enabled = TRUE
		ORDER BY tenant_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query enabled settings: %w", err)
	}
	defer rows.Close()

	var out []entities.AutomationSettings
	for rows.Next() {
		var s entities.AutomationSettings
		if err := rows.Scan(&s.TenantID, &s.Enabled, &s.EarlyDays, &s.SendDueToday,
			&s.SendOverdue, &s.SendEarly, &s.TemplateDueToday,
			&s.TemplateOverdue, &s.TemplateEarly); err != nil {
			return nil, fmt.Errorf("scan settings row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
