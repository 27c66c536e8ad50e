// internal/pdf/generator.go
package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/duespark/duespark-backend/internal/model"
)

// Branding is the sender identity printed on generated documents.
type Branding struct {
	CompanyName string
	SenderName  string
}

// Generator renders a PDF for one invoice from its current data. Reminder
// attachments are always generated fresh so they match the invoice even if
// it was edited after upload.
type Generator interface {
	Generate(invoice model.InvoiceSnapshot, branding Branding) ([]byte, error)
}

// FPDFGenerator implements Generator with gofpdf.
type FPDFGenerator struct{}

func (g *FPDFGenerator) Generate(invoice model.InvoiceSnapshot, branding Branding) ([]byte, error) {
	companyName := branding.CompanyName
	if companyName == "" {
		companyName = "Your Company"
	}

	doc := gofpdf.New("P", "mm", "Letter", "")
	doc.SetMargins(18, 18, 18)
	doc.AddPage()

	// Header
	doc.SetFont("Helvetica", "B", 24)
	doc.CellFormat(0, 10, "INVOICE", "", 1, "R", false, 0, "")
	doc.SetFont("Helvetica", "", 12)
	doc.CellFormat(0, 6, companyName, "", 1, "R", false, 0, "")
	doc.Ln(10)

	// Client billing details
	doc.SetFont("Helvetica", "B", 13)
	doc.CellFormat(0, 7, "Bill To:", "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 11)
	doc.CellFormat(0, 5, invoice.ClientName, "", 1, "L", false, 0, "")
	if invoice.ClientEmail != "" {
		doc.CellFormat(0, 5, invoice.ClientEmail, "", 1, "L", false, 0, "")
	}
	if invoice.BillToAddress != "" {
		doc.MultiCell(0, 5, invoice.BillToAddress, "", "L", false)
	}
	doc.Ln(6)

	// Invoice metadata
	doc.SetFont("Helvetica", "", 10)
	writeMeta := func(label, value string) {
		doc.CellFormat(40, 5, label, "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "B", 10)
		doc.CellFormat(0, 5, value, "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 10)
	}
	writeMeta("Invoice Number:", invoice.InvoiceNumber)
	if invoice.IssueDate != "" {
		writeMeta("Issue Date:", formatDate(invoice.IssueDate))
	}
	writeMeta("Due Date:", formatDate(invoice.DueDate))
	if invoice.PaymentTerms != "" {
		writeMeta("Payment Terms:", invoice.PaymentTerms)
	}
	doc.Ln(6)

	// Line items table
	if len(invoice.LineItems) > 0 {
		doc.SetFont("Helvetica", "B", 10)
		doc.SetFillColor(235, 235, 235)
		doc.CellFormat(100, 7, "Description", "1", 0, "L", true, 0, "")
		doc.CellFormat(20, 7, "Qty", "1", 0, "R", true, 0, "")
		doc.CellFormat(30, 7, "Unit Price", "1", 0, "R", true, 0, "")
		doc.CellFormat(30, 7, "Total", "1", 1, "R", true, 0, "")

		doc.SetFont("Helvetica", "", 10)
		for _, item := range invoice.LineItems {
			doc.CellFormat(100, 6, item.Description, "1", 0, "L", false, 0, "")
			doc.CellFormat(20, 6, trimFloat(item.Quantity), "1", 0, "R", false, 0, "")
			doc.CellFormat(30, 6, money(invoice.Currency, item.UnitPrice), "1", 0, "R", false, 0, "")
			doc.CellFormat(30, 6, money(invoice.Currency, item.LineTotal), "1", 1, "R", false, 0, "")
		}
		doc.Ln(4)
	}

	// Totals
	doc.SetFont("Helvetica", "", 10)
	if invoice.Subtotal != 0 {
		totalsLine(doc, "Subtotal:", money(invoice.Currency, invoice.Subtotal))
	}
	if invoice.Tax != 0 {
		totalsLine(doc, "Tax:", money(invoice.Currency, invoice.Tax))
	}
	total := invoice.Total
	if total == 0 {
		total = invoice.Amount
	}
	doc.SetFont("Helvetica", "B", 12)
	totalsLine(doc, "Total Due:", money(invoice.Currency, total))

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func totalsLine(doc *gofpdf.Fpdf, label, value string) {
	doc.CellFormat(120, 6, "", "", 0, "L", false, 0, "")
	doc.CellFormat(30, 6, label, "", 0, "R", false, 0, "")
	doc.CellFormat(30, 6, value, "", 1, "R", false, 0, "")
}

func money(currency string, amount float64) string {
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%s %.2f", currency, amount)
}

func trimFloat(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

// formatDate re-renders an ISO date for display; unknown formats pass through.
func formatDate(value string) string {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t.Format("Jan 2, 2006")
	}
	return value
}

var _ Generator = (*FPDFGenerator)(nil)
