package entities

import (
	"fmt"
	"strconv"
	"time"
)

// NotificationKind distinguishes the three reasons an installment gets contacted.
type NotificationKind string

const (
	KindEarly    NotificationKind = "early"
	KindDueToday NotificationKind = "due_today"
	KindOverdue  NotificationKind = "overdue"
)

// DedupKey is the within-day identity of a notification attempt.
func DedupKey(kind NotificationKind, installmentID string) string {
	return string(kind) + "|" + installmentID
}

// DueInstallment is one row of the read-only v_notifiable_installments view
// owned by the loan application. Rows are already filtered to unpaid
// installments that have a phone number on file.
type DueInstallment struct {
	InstallmentID     string
	TenantID          string
	LoanID            string
	ClientID          string
	InstallmentNumber int
	DueDate           time.Time
	Amount            float64
	ClientName        string
	Phone             string
}

// NotificationTarget is a computed projection of one installment selected for
// contact today. It is never persisted; the message log records the attempt.
type NotificationTarget struct {
	DueInstallment
	Kind        NotificationKind
	DaysOverdue int
}

// TemplateData flattens the target into the fields tenants may reference in
// their message templates.
func (t NotificationTarget) TemplateData() map[string]string {
	return map[string]string{
		"nome":        t.ClientName,
		"parcela":     strconv.Itoa(t.InstallmentNumber),
		"valor":       fmt.Sprintf("%.2f", t.Amount),
		"vencimento":  t.DueDate.Format("02/01/2006"),
		"dias_atraso": strconv.Itoa(t.DaysOverdue),
	}
}
