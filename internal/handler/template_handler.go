// internal/handler/template_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/duespark/duespark-backend/internal/model"
	"github.com/duespark/duespark-backend/internal/repository"
	"github.com/duespark/duespark-backend/internal/service"
)

// TemplateHandler serves template classification and owner settings
type TemplateHandler struct {
	SettingsRepo repository.SettingsRepositoryInterface
}

// PreviewTemplateHandler classifies the tokens of a draft template so the
// editor can show which fields are built in, which need values, and which
// suggested fields are available.
func (h *TemplateHandler) PreviewTemplateHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := ownerID(w, r); !ok {
		return
	}

	var payload struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	builtin, custom := service.ListTokens(payload.Subject, payload.Body, service.BuiltinTokenKeys)

	// Render against sample data so the editor can show a realistic
	// preview; custom tokens without values render empty, same as a run.
	sample := map[string]string{
		"client_name":    "Acme Corp",
		"invoice_number": "INV-1001",
		"amount":         service.FormatAmount("USD", 1250),
		"due_date":       service.FormatDate(time.Now().AddDate(0, 0, -9)),
		"days_overdue":   "9",
		"sender_name":    "Jordan Blake",
		"company_name":   "Blake Studio",
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"builtin_tokens":   builtin,
		"custom_tokens":    custom,
		"builtin_fields":   service.BuiltinFields,
		"suggested_fields": service.SuggestedCustomFields,
		"sample_subject":   service.RenderTemplate(payload.Subject, sample),
		"sample_body":      service.RenderTemplate(payload.Body, sample),
	})
}

// GetSettingsHandler returns the owner's sender identity and reminder
// templates, falling back to the defaults when nothing is saved yet.
func (h *TemplateHandler) GetSettingsHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	settings, err := h.SettingsRepo.GetByOwner(owner)
	if err != nil {
		http.Error(w, "failed to fetch settings: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if settings == nil {
		settings = &model.OwnerSettings{
			OwnerID:         owner,
			ReminderSubject: service.DefaultSubject,
			ReminderBody:    service.DefaultBody,
		}
	}

	writeJSON(w, http.StatusOK, settings)
}

// UpdateSettingsHandler upserts the owner's settings
func (h *TemplateHandler) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var payload model.OwnerSettings
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	payload.OwnerID = owner

	if err := h.SettingsRepo.Upsert(&payload); err != nil {
		http.Error(w, "failed to save settings: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, &payload)
}
