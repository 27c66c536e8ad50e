// internal/repository/invoice_repository.go
package repository

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/duespark/duespark-backend/internal/errors"
	"github.com/duespark/duespark-backend/internal/model"
)

type InvoiceRepositoryInterface interface {
	Create(inv *model.Invoice) error
	GetByID(id, ownerID int64) (*model.Invoice, error)
	ListByOwner(ownerID int64) ([]*model.Invoice, error)
	UpdateLastReminderSent(id, ownerID int64, at time.Time) error

	// Line items
	CreateLineItem(item *model.InvoiceLineItem) error
	ListLineItems(invoiceIDs []int64) (map[int64][]model.InvoiceLineItem, error)
}

type InvoiceRepository struct {
	DB *sql.DB
}

// ====================== Invoice CRUD ======================

func (r *InvoiceRepository) Create(inv *model.Invoice) error {
	inv.CreatedAt = time.Now()
	if inv.Status == "" {
		inv.Status = "open"
	}
	if inv.Currency == "" {
		inv.Currency = "USD"
	}
	query := `
        INSERT INTO invoices
        (owner_id, client_id, invoice_number, amount, currency, issue_date, due_date, status,
         payment_terms, bill_to_address, subtotal, tax, total, source_file_path, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
        RETURNING id
    `
	return r.DB.QueryRow(query,
		inv.OwnerID, inv.ClientID, inv.InvoiceNumber, inv.Amount, inv.Currency,
		inv.IssueDate, inv.DueDate, inv.Status,
		inv.PaymentTerms, inv.BillToAddress, inv.Subtotal, inv.Tax, inv.Total,
		inv.SourceFilePath, inv.CreatedAt,
	).Scan(&inv.ID)
}

func (r *InvoiceRepository) GetByID(id, ownerID int64) (*model.Invoice, error) {
	query := `
        SELECT id, owner_id, client_id, invoice_number, amount, currency, issue_date, due_date, status,
               payment_terms, bill_to_address, subtotal, tax, total, source_file_path,
               last_reminder_sent_at, paid_at, created_at, updated_at
        FROM invoices WHERE id=$1 AND owner_id=$2
    `
	inv, err := scanInvoice(r.DB.QueryRow(query, id, ownerID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewInvoiceNotFound(id)
		}
		return nil, err
	}
	return inv, nil
}

func (r *InvoiceRepository) ListByOwner(ownerID int64) ([]*model.Invoice, error) {
	query := `
        SELECT id, owner_id, client_id, invoice_number, amount, currency, issue_date, due_date, status,
               payment_terms, bill_to_address, subtotal, tax, total, source_file_path,
               last_reminder_sent_at, paid_at, created_at, updated_at
        FROM invoices WHERE owner_id=$1 ORDER BY due_date ASC, id ASC
    `
	rows, err := r.DB.Query(query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := []*model.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *InvoiceRepository) UpdateLastReminderSent(id, ownerID int64, at time.Time) error {
	query := `UPDATE invoices SET last_reminder_sent_at=$1, updated_at=NOW() WHERE id=$2 AND owner_id=$3`
	_, err := r.DB.Exec(query, at, id, ownerID)
	return err
}

// ====================== Line items ======================

func (r *InvoiceRepository) CreateLineItem(item *model.InvoiceLineItem) error {
	query := `
        INSERT INTO invoice_line_items (invoice_id, description, quantity, unit_price, line_total, position)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	return r.DB.QueryRow(query,
		item.InvoiceID, item.Description, item.Quantity, item.UnitPrice, item.LineTotal, item.Position,
	).Scan(&item.ID)
}

func (r *InvoiceRepository) ListLineItems(invoiceIDs []int64) (map[int64][]model.InvoiceLineItem, error) {
	byInvoice := map[int64][]model.InvoiceLineItem{}
	if len(invoiceIDs) == 0 {
		return byInvoice, nil
	}
	query := `
        SELECT id, invoice_id, description, quantity, unit_price, line_total, position
        FROM invoice_line_items
        WHERE invoice_id = ANY($1)
        ORDER BY invoice_id, position ASC
    `
	rows, err := r.DB.Query(query, pq.Array(invoiceIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item model.InvoiceLineItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.Description, &item.Quantity, &item.UnitPrice, &item.LineTotal, &item.Position); err != nil {
			return nil, err
		}
		byInvoice[item.InvoiceID] = append(byInvoice[item.InvoiceID], item)
	}
	return byInvoice, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvoice(row rowScanner) (*model.Invoice, error) {
	var inv model.Invoice
	var paymentTerms, billTo, sourcePath sql.NullString
	err := row.Scan(
		&inv.ID, &inv.OwnerID, &inv.ClientID, &inv.InvoiceNumber, &inv.Amount, &inv.Currency,
		&inv.IssueDate, &inv.DueDate, &inv.Status,
		&paymentTerms, &billTo, &inv.Subtotal, &inv.Tax, &inv.Total, &sourcePath,
		&inv.LastReminderSentAt, &inv.PaidAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.PaymentTerms = paymentTerms.String
	inv.BillToAddress = billTo.String
	inv.SourceFilePath = sourcePath.String
	return &inv, nil
}

var _ InvoiceRepositoryInterface = (*InvoiceRepository)(nil)
