// internal/model/snapshot.go
package model

// InvoiceSnapshot is the serializable view of one invoice handed to the
// token resolver and the PDF generator. It is built fresh from current
// invoice and line-item data on every run.
type InvoiceSnapshot struct {
	InvoiceNumber string             `json:"invoice_number,omitempty"`
	Amount        float64            `json:"amount,omitempty"`
	Currency      string             `json:"currency,omitempty"`
	DueDate       string             `json:"due_date,omitempty"`
	IssueDate     string             `json:"issue_date,omitempty"`
	PaymentTerms  string             `json:"payment_terms,omitempty"`
	BillToAddress string             `json:"bill_to_address,omitempty"`
	ClientName    string             `json:"client_name,omitempty"`
	ClientEmail   string             `json:"client_email,omitempty"`
	Subtotal      float64            `json:"subtotal,omitempty"`
	Tax           float64            `json:"tax,omitempty"`
	Total         float64            `json:"total,omitempty"`
	LineItems     []LineItemSnapshot `json:"line_items,omitempty"`
}

type LineItemSnapshot struct {
	Description string  `json:"description,omitempty"`
	Quantity    float64 `json:"quantity,omitempty"`
	UnitPrice   float64 `json:"unit_price,omitempty"`
	LineTotal   float64 `json:"line_total,omitempty"`
}
