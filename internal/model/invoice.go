// internal/model/invoice.go
package model

import "time"

type Invoice struct {
	ID            int64      `db:"id" json:"id"`
	OwnerID       int64      `db:"owner_id" json:"owner_id"`
	ClientID      int64      `db:"client_id" json:"client_id"`
	InvoiceNumber string     `db:"invoice_number" json:"invoice_number"`
	Amount        float64    `db:"amount" json:"amount"`
	Currency      string     `db:"currency" json:"currency"`
	IssueDate     *time.Time `db:"issue_date" json:"issue_date,omitempty"`
	DueDate       time.Time  `db:"due_date" json:"due_date"`
	Status        string     `db:"status" json:"status"` // open, partial, paid, void

	// Optional structured fields extracted from the source document
	PaymentTerms  string   `db:"payment_terms" json:"payment_terms,omitempty"`
	BillToAddress string   `db:"bill_to_address" json:"bill_to_address,omitempty"`
	Subtotal      *float64 `db:"subtotal" json:"subtotal,omitempty"`
	Tax           *float64 `db:"tax" json:"tax,omitempty"`
	Total         *float64 `db:"total" json:"total,omitempty"`

	SourceFilePath     string     `db:"source_file_path" json:"source_file_path,omitempty"`
	LastReminderSentAt *time.Time `db:"last_reminder_sent_at" json:"last_reminder_sent_at,omitempty"`
	PaidAt             *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

type InvoiceLineItem struct {
	ID          int64   `db:"id" json:"id"`
	InvoiceID   int64   `db:"invoice_id" json:"invoice_id"`
	Description string  `db:"description" json:"description"`
	Quantity    float64 `db:"quantity" json:"quantity"`
	UnitPrice   float64 `db:"unit_price" json:"unit_price"`
	LineTotal   float64 `db:"line_total" json:"line_total"`
	Position    int     `db:"position" json:"position"`
}
