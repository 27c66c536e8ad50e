// internal/handler/invoice_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/duespark/duespark-backend/internal/errors"
	"github.com/duespark/duespark-backend/internal/model"
	"github.com/duespark/duespark-backend/internal/repository"
	"github.com/duespark/duespark-backend/internal/service"
)

// InvoiceHandler holds the dependencies for invoice-related HTTP handlers
type InvoiceHandler struct {
	InvoiceRepo  repository.InvoiceRepositoryInterface
	ReminderRepo repository.ReminderRepositoryInterface
}

type lineItemPayload struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
}

// CreateInvoiceHandler handles creating a new invoice with optional line items
func (h *InvoiceHandler) CreateInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var payload struct {
		ClientID      int64             `json:"client_id"`
		InvoiceNumber string            `json:"invoice_number"`
		Amount        float64           `json:"amount"`
		Currency      string            `json:"currency"`
		IssueDate     string            `json:"issue_date,omitempty"`
		DueDate       string            `json:"due_date"`
		Status        string            `json:"status,omitempty"`
		PaymentTerms  string            `json:"payment_terms,omitempty"`
		BillToAddress string            `json:"bill_to_address,omitempty"`
		Subtotal      *float64          `json:"subtotal,omitempty"`
		Tax           *float64          `json:"tax,omitempty"`
		Total         *float64          `json:"total,omitempty"`
		LineItems     []lineItemPayload `json:"line_items,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.ClientID == 0 || payload.InvoiceNumber == "" || payload.DueDate == "" {
		http.Error(w, "client_id, invoice_number and due_date are required", http.StatusBadRequest)
		return
	}

	dueDate, err := time.Parse("2006-01-02", payload.DueDate)
	if err != nil {
		http.Error(w, "due_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	status := payload.Status
	if status == "" {
		status = "open"
	}
	currency := payload.Currency
	if currency == "" {
		currency = "USD"
	}

	inv := &model.Invoice{
		OwnerID:       owner,
		ClientID:      payload.ClientID,
		InvoiceNumber: payload.InvoiceNumber,
		Amount:        payload.Amount,
		Currency:      currency,
		DueDate:       dueDate,
		Status:        status,
		PaymentTerms:  payload.PaymentTerms,
		BillToAddress: payload.BillToAddress,
		Subtotal:      payload.Subtotal,
		Tax:           payload.Tax,
		Total:         payload.Total,
		CreatedAt:     time.Now(),
	}
	if payload.IssueDate != "" {
		issueDate, err := time.Parse("2006-01-02", payload.IssueDate)
		if err != nil {
			http.Error(w, "issue_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		inv.IssueDate = &issueDate
	}

	if err := h.InvoiceRepo.Create(inv); err != nil {
		http.Error(w, "failed to create invoice: "+err.Error(), http.StatusInternalServerError)
		return
	}

	for i, item := range payload.LineItems {
		li := &model.InvoiceLineItem{
			InvoiceID:   inv.ID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
			Position:    i,
		}
		if err := h.InvoiceRepo.CreateLineItem(li); err != nil {
			http.Error(w, "failed to create line item: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, http.StatusCreated, inv)
}

// invoiceView decorates an invoice with its current aging so clients do
// not recompute stage thresholds.
type invoiceView struct {
	*model.Invoice
	DaysOverdue int `json:"days_overdue"`
	Stage       int `json:"reminder_stage"`
}

// ListInvoicesHandler returns the owner's invoices with aging info
func (h *InvoiceHandler) ListInvoicesHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	invoices, err := h.InvoiceRepo.ListByOwner(owner)
	if err != nil {
		http.Error(w, "failed to list invoices: "+err.Error(), http.StatusInternalServerError)
		return
	}

	now := time.Now()
	views := make([]invoiceView, 0, len(invoices))
	for _, inv := range invoices {
		overdue := service.DaysOverdue(inv.DueDate, now)
		views = append(views, invoiceView{
			Invoice:     inv,
			DaysOverdue: overdue,
			Stage:       service.ReminderStage(overdue),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"invoices": views})
}

// GetInvoiceHandler returns one invoice with line items and reminder history
func (h *InvoiceHandler) GetInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid invoice id", http.StatusBadRequest)
		return
	}

	inv, err := h.InvoiceRepo.GetByID(id, owner)
	if err != nil {
		var notFound *appErrors.ErrInvoiceNotFound
		if errors.As(err, &notFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "failed to fetch invoice: "+err.Error(), http.StatusInternalServerError)
		return
	}

	lineItems, err := h.InvoiceRepo.ListLineItems([]int64{inv.ID})
	if err != nil {
		http.Error(w, "failed to fetch line items: "+err.Error(), http.StatusInternalServerError)
		return
	}
	reminders, err := h.ReminderRepo.ListByInvoiceIDs([]int64{inv.ID})
	if err != nil {
		http.Error(w, "failed to fetch reminders: "+err.Error(), http.StatusInternalServerError)
		return
	}

	overdue := service.DaysOverdue(inv.DueDate, time.Now())
	writeJSON(w, http.StatusOK, map[string]any{
		"invoice":    invoiceView{Invoice: inv, DaysOverdue: overdue, Stage: service.ReminderStage(overdue)},
		"line_items": lineItems[inv.ID],
		"reminders":  reminders,
	})
}
