package repository

import (
	"database/sql"

	"github.com/duespark/duespark-backend/internal/model"
)

type SettingsRepositoryInterface interface {
	GetByOwner(ownerID int64) (*model.OwnerSettings, error)
	Upsert(s *model.OwnerSettings) error
}

type SettingsRepository struct {
	DB *sql.DB
}

// GetByOwner returns the owner's settings row, or nil when none exists
// (callers fall back to defaults).
func (r *SettingsRepository) GetByOwner(ownerID int64) (*model.OwnerSettings, error) {
	query := `
        SELECT owner_id, sender_name, company_name, reply_to, reminder_subject, reminder_body
        FROM owner_settings
        WHERE owner_id = $1
    `
	var s model.OwnerSettings
	var senderName, companyName, replyTo, subject, body sql.NullString
	err := r.DB.QueryRow(query, ownerID).Scan(&s.OwnerID, &senderName, &companyName, &replyTo, &subject, &body)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	s.SenderName = senderName.String
	s.CompanyName = companyName.String
	s.ReplyTo = replyTo.String
	s.ReminderSubject = subject.String
	s.ReminderBody = body.String
	return &s, nil
}

func (r *SettingsRepository) Upsert(s *model.OwnerSettings) error {
	query := `
        INSERT INTO owner_settings (owner_id, sender_name, company_name, reply_to, reminder_subject, reminder_body)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (owner_id) DO UPDATE SET
            sender_name = EXCLUDED.sender_name,
            company_name = EXCLUDED.company_name,
            reply_to = EXCLUDED.reply_to,
            reminder_subject = EXCLUDED.reminder_subject,
            reminder_body = EXCLUDED.reminder_body
    `
	_, err := r.DB.Exec(query, s.OwnerID, s.SenderName, s.CompanyName, s.ReplyTo, s.ReminderSubject, s.ReminderBody)
	return err
}

var _ SettingsRepositoryInterface = (*SettingsRepository)(nil)
