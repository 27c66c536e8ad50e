// internal/model/reminder.go
package model

import "time"

// Reminder statuses. For a given (invoice, stage) at most one non-failed
// row may exist; a failed row does not block a later send at the same stage.
const (
	ReminderStatusSent   = "sent"
	ReminderStatusFailed = "failed"
)

type Reminder struct {
	ID        int64     `db:"id" json:"id"`
	OwnerID   int64     `db:"owner_id" json:"owner_id"`
	InvoiceID int64     `db:"invoice_id" json:"invoice_id"`
	Stage     int       `db:"reminder_stage" json:"reminder_stage"` // 1-3
	Status    string    `db:"status" json:"status"`                 // sent, failed
	SentAt    time.Time `db:"sent_at" json:"sent_at"`
	EmailID   string    `db:"email_id" json:"email_id,omitempty"` // transport message id
}
