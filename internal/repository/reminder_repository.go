package repository

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/duespark/duespark-backend/internal/errors"
	"github.com/duespark/duespark-backend/internal/model"
)

type ReminderRepositoryInterface interface {
	// Create inserts a reminder row. When a non-failed row already exists
	// for the same (invoice, stage) it returns ErrDuplicateReminder; the
	// partial unique index in the schema is the authoritative guard, not
	// the application-level eligibility check.
	Create(rem *model.Reminder) error
	ListByInvoiceIDs(invoiceIDs []int64) ([]*model.Reminder, error)
	ListByOwner(ownerID int64) ([]*model.Reminder, error)
}

type ReminderRepository struct {
	DB *sql.DB
}

func (r *ReminderRepository) Create(rem *model.Reminder) error {
	if rem.SentAt.IsZero() {
		rem.SentAt = time.Now()
	}
	query := `
        INSERT INTO reminders (owner_id, invoice_id, reminder_stage, status, sent_at, email_id)
        VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
        RETURNING id
    `
	err := r.DB.QueryRow(query,
		rem.OwnerID, rem.InvoiceID, rem.Stage, rem.Status, rem.SentAt, rem.EmailID,
	).Scan(&rem.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return appErrors.NewDuplicateReminder(rem.InvoiceID, rem.Stage)
		}
		return err
	}
	return nil
}

func (r *ReminderRepository) ListByInvoiceIDs(invoiceIDs []int64) ([]*model.Reminder, error) {
	reminders := []*model.Reminder{}
	if len(invoiceIDs) == 0 {
		return reminders, nil
	}
	query := `
        SELECT id, owner_id, invoice_id, reminder_stage, status, sent_at, email_id
        FROM reminders
        WHERE invoice_id = ANY($1)
    `
	rows, err := r.DB.Query(query, pq.Array(invoiceIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, rem)
	}
	return reminders, rows.Err()
}

func (r *ReminderRepository) ListByOwner(ownerID int64) ([]*model.Reminder, error) {
	query := `
        SELECT id, owner_id, invoice_id, reminder_stage, status, sent_at, email_id
        FROM reminders
        WHERE owner_id = $1
        ORDER BY sent_at DESC
    `
	rows, err := r.DB.Query(query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reminders := []*model.Reminder{}
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, rem)
	}
	return reminders, rows.Err()
}

func scanReminder(rows *sql.Rows) (*model.Reminder, error) {
	var rem model.Reminder
	var emailID sql.NullString
	if err := rows.Scan(&rem.ID, &rem.OwnerID, &rem.InvoiceID, &rem.Stage, &rem.Status, &rem.SentAt, &emailID); err != nil {
		return nil, err
	}
	rem.EmailID = emailID.String
	return &rem, nil
}

var _ ReminderRepositoryInterface = (*ReminderRepository)(nil)
