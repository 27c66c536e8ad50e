package pdf_test

import (
	"bytes"
	"testing"

	"github.com/duespark/duespark-backend/internal/model"
	"github.com/duespark/duespark-backend/internal/pdf"
)

func TestGenerateProducesPDF(t *testing.T) {
	g := &pdf.FPDFGenerator{}

	out, err := g.Generate(model.InvoiceSnapshot{
		InvoiceNumber: "INV-1001",
		Amount:        1250,
		Currency:      "USD",
		DueDate:       "2026-02-01",
		IssueDate:     "2026-01-15",
		ClientName:    "Acme Corp",
		BillToAddress: "123 Main St, Springfield",
		Subtotal:      1150,
		Tax:           100,
		Total:         1250,
		LineItems: []model.LineItemSnapshot{
			{Description: "Website redesign - Phase 1", Quantity: 1, UnitPrice: 1150, LineTotal: 1150},
		},
	}, pdf.Branding{CompanyName: "Blake Studio", SenderName: "Jordan Blake"})

	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Errorf("output does not look like a PDF")
	}
	if len(out) < 500 {
		t.Errorf("suspiciously small PDF: %d bytes", len(out))
	}
}

// Sparse invoices still render: no line items, no totals, no issue date.
func TestGenerateHandlesSparseInvoice(t *testing.T) {
	g := &pdf.FPDFGenerator{}

	out, err := g.Generate(model.InvoiceSnapshot{
		InvoiceNumber: "INV-MIN",
		Amount:        99,
		DueDate:       "2026-02-01",
	}, pdf.Branding{})

	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Errorf("output does not look like a PDF")
	}
}
