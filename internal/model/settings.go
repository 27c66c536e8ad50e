// internal/model/settings.go
package model

// OwnerSettings holds the per-owner sender identity and reminder template
// overrides. One row per owner; all fields optional (defaults apply).
type OwnerSettings struct {
	OwnerID         int64  `db:"owner_id" json:"owner_id"`
	SenderName      string `db:"sender_name" json:"sender_name,omitempty"`
	CompanyName     string `db:"company_name" json:"company_name,omitempty"`
	ReplyTo         string `db:"reply_to" json:"reply_to,omitempty"`
	ReminderSubject string `db:"reminder_subject" json:"reminder_subject,omitempty"`
	ReminderBody    string `db:"reminder_body" json:"reminder_body,omitempty"`
}
