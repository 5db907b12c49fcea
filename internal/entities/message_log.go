package entities

import (
	"time"

	"github.com/google/uuid"
)

// MessageStatus tracks one dispatch attempt through its lifecycle.
// Every entry is created as queued and moves to sent or failed exactly once.
type MessageStatus string

const (
	MessageQueued MessageStatus = "queued"
	MessageSent   MessageStatus = "sent"
	MessageFailed MessageStatus = "failed"
)

// MessageLogEntry is one persisted notification attempt. The tuple
// (TenantID, Kind, InstallmentID, SendDate) is unique and is the dedup key
// enforcing at most one notification of a kind per installment per day.
type MessageLogEntry struct {
	ID            uuid.UUID
	TenantID      string
	Kind          NotificationKind
	InstallmentID string
	LoanID        string
	ClientID      string
	ToPhone       string
	Message       string
	Status        MessageStatus
	SendDate      time.Time
	Error         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
