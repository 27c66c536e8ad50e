package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/duespark/duespark-backend/internal/handler"
)

func TestPreviewTemplateHandlerClassifiesTokens(t *testing.T) {
	h := &handler.TemplateHandler{SettingsRepo: &MockSettingsRepo{}}

	body, _ := json.Marshal(map[string]string{
		"subject": "Invoice {{invoice_number}} for {{ Project Name }}",
		"body":    "Hi {{client_name}}, PO {{po_number}} is due {{due_date}}.",
	})
	req := httptest.NewRequest("POST", "/templates/preview", bytes.NewReader(body))
	req.Header.Set("X-Owner-ID", "1")
	w := httptest.NewRecorder()
	h.PreviewTemplateHandler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var res struct {
		Builtin []string `json:"builtin_tokens"`
		Custom  []string `json:"custom_tokens"`
	}
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}

	if len(res.Builtin) != 3 {
		t.Errorf("builtin = %v", res.Builtin)
	}
	if len(res.Custom) != 2 || res.Custom[0] != "project_name" || res.Custom[1] != "po_number" {
		t.Errorf("custom = %v", res.Custom)
	}
}

func TestGetSettingsHandlerFallsBackToDefaults(t *testing.T) {
	h := &handler.TemplateHandler{SettingsRepo: &MockSettingsRepo{}}

	req := httptest.NewRequest("GET", "/settings", nil)
	req.Header.Set("X-Owner-ID", "1")
	w := httptest.NewRecorder()
	h.GetSettingsHandler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var res map[string]any
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res["reminder_subject"] == "" {
		t.Error("expected default reminder subject")
	}
}
