package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"cobrazap/internal/entities"
)

// InstallmentRepository reads the loan application's notifiable-installment
// view. The view already filters to unpaid installments with a phone number
// on file; only the date window is applied here.
type InstallmentRepository struct {
	db *pgxpool.Pool
}

func NewInstallmentRepository(db *pgxpool.Pool) *InstallmentRepository {
	return &InstallmentRepository{db: db}
}

// ListDueForContact returns the tenant's candidate installments with a due
// date at or before today+earlyDays. Overdue rows have no lower bound; they
// stay eligible until paid.
func (r *InstallmentRepository) ListDueForContact(ctx context.Context, tenantID string, today time.Time, earlyDays int) ([]entities.DueInstallment, error) {
	cutoff := today.AddDate(0, 0, earlyDays)

	rows, err := r.db.Query(ctx, `
		SELECT installment_id, tenant_id, loan_id, client_id,
		       installment_number, due_date, amount, client_name, phone
		FROM v_notifiable_installments
		WHERE tenant_id = $1 AND due_date <= $2
		ORDER BY due_date, installment_id
	`, tenantID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query notifiable installments: %w", err)
	}
	defer rows.Close()

	var out []entities.DueInstallment
	for rows.Next() {
		var d entities.DueInstallment
		if err := rows.Scan(&d.InstallmentID, &d.TenantID, &d.LoanID, &d.ClientID,
			&d.InstallmentNumber, &d.DueDate, &d.Amount, &d.ClientName, &d.Phone); err != nil {
			return nil, fmt.Errorf("scan installment row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
