// internal/handler/reminder_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	appErrors "github.com/duespark/duespark-backend/internal/errors"
	"github.com/duespark/duespark-backend/internal/queue"
	"github.com/duespark/duespark-backend/internal/repository"
	"github.com/duespark/duespark-backend/internal/service"
)

// ReminderHandler holds the dependencies for reminder-related HTTP handlers
type ReminderHandler struct {
	Service      *service.ReminderService
	ReminderRepo repository.ReminderRepositoryInterface
	Queue        queue.Queue
}

type runPayload struct {
	SubjectTemplate string                      `json:"subject_template,omitempty"`
	BodyTemplate    string                      `json:"body_template,omitempty"`
	Overrides       map[int64]map[string]string `json:"overrides,omitempty"`
}

// RunRemindersHandler triggers a reminder run for every eligible invoice
// of the calling owner.
func (h *ReminderHandler) RunRemindersHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var payload runPayload
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	result, err := h.Service.RunReminders(r.Context(), owner, service.RunOptions{
		SubjectTemplate: payload.SubjectTemplate,
		BodyTemplate:    payload.BodyTemplate,
		Overrides:       payload.Overrides,
	})
	if err != nil {
		http.Error(w, "failed to run reminders: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ScheduleReminderRunHandler enqueues a reminder run instead of executing
// it inline. The job is picked up by cmd/worker when AMQP is configured,
// or by the in-process subscriber otherwise.
func (h *ReminderHandler) ScheduleReminderRunHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	if err := h.Queue.Publish("reminder_runs", queue.ReminderRunJob{OwnerID: owner}); err != nil {
		http.Error(w, "failed to schedule reminder run: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"status": "queued", "owner_id": owner})
}

// PreviewRemindersHandler is the dry run: same pipeline, nothing sent.
func (h *ReminderHandler) PreviewRemindersHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var payload runPayload
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	previews, err := h.Service.PreviewReminders(r.Context(), owner, service.RunOptions{
		SubjectTemplate: payload.SubjectTemplate,
		BodyTemplate:    payload.BodyTemplate,
		Overrides:       payload.Overrides,
	})
	if err != nil {
		http.Error(w, "failed to preview reminders: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"invoices": previews})
}

// SendReminderHandler sends one invoice's reminder, asking for token
// values when the template cannot be fully resolved.
func (h *ReminderHandler) SendReminderHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var payload struct {
		InvoiceID int64             `json:"invoice_id"`
		Overrides map[string]string `json:"overrides,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if payload.InvoiceID == 0 {
		http.Error(w, "invoice_id is required", http.StatusBadRequest)
		return
	}

	result, err := h.Service.SendReminder(r.Context(), owner, payload.InvoiceID, payload.Overrides)
	if err != nil {
		var notFound *appErrors.ErrInvoiceNotFound
		if errors.As(err, &notFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "failed to send reminder: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListRemindersHandler returns the owner's reminder history.
func (h *ReminderHandler) ListRemindersHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	reminders, err := h.ReminderRepo.ListByOwner(owner)
	if err != nil {
		http.Error(w, "failed to list reminders: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"reminders": reminders})
}
