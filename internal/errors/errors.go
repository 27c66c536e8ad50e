// internal/errors/errors.go
package appErrors

import "fmt"

// ErrInvoiceNotFound is a sentinel error
type ErrInvoiceNotFound struct {
	InvoiceID int64
}

func (e *ErrInvoiceNotFound) Error() string {
	return fmt.Sprintf("invoice with ID %d not found", e.InvoiceID)
}

// Helper constructor
func NewInvoiceNotFound(id int64) error {
	return &ErrInvoiceNotFound{InvoiceID: id}
}

// ErrDuplicateReminder is raised when a non-failed reminder row already
// exists for an (invoice, stage) pair. The partial unique index in the
// store is the authoritative guard; this error is the linearization point
// of the at-most-once-per-stage guarantee.
type ErrDuplicateReminder struct {
	InvoiceID int64
	Stage     int
}

func (e *ErrDuplicateReminder) Error() string {
	return fmt.Sprintf("reminder for invoice %d stage %d already recorded", e.InvoiceID, e.Stage)
}

func NewDuplicateReminder(invoiceID int64, stage int) error {
	return &ErrDuplicateReminder{InvoiceID: invoiceID, Stage: stage}
}

// IsDuplicateReminder reports whether err is an ErrDuplicateReminder.
func IsDuplicateReminder(err error) bool {
	_, ok := err.(*ErrDuplicateReminder)
	return ok
}

// ErrClientNotFound is a sentinel error
type ErrClientNotFound struct {
	ClientID int64
}

func (e *ErrClientNotFound) Error() string {
	return fmt.Sprintf("client with ID %d not found", e.ClientID)
}

func NewClientNotFound(id int64) error {
	return &ErrClientNotFound{ClientID: id}
}
