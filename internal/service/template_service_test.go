package service_test

import (
	"strings"
	"testing"
	"time"

	"github.com/duespark/duespark-backend/internal/service"
)

func TestNormalizeTokenKey(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"Client Name", "client_name"},
		{"client_name", "client_name"},
		{"  PO-Number ", "po_number"},
		{"invoice.number", "invoice_number"},
		{"a//b  c--d", "a_b_c_d"},
		{"__weird__", "weird"},
		{"Amount ($)", "amount"},
		{"!!!", "placeholder"},
		{"", "placeholder"},
	}

	for _, c := range cases {
		if got := service.NormalizeTokenKey(c.raw); got != c.want {
			t.Errorf("NormalizeTokenKey(%q) = %q, want %q", c.raw, got, c.want)
		}
	}
}

// Normalization must be a fixed point: normalizing an already-normalized
// key changes nothing.
func TestNormalizeTokenKeyFixedPoint(t *testing.T) {
	raws := []string{"Client Name", "PO-Number", "invoice.number", "  Days Overdue "}
	for _, raw := range raws {
		once := service.NormalizeTokenKey(raw)
		twice := service.NormalizeTokenKey(once)
		if once != twice {
			t.Errorf("normalization not stable for %q: %q then %q", raw, once, twice)
		}
	}
}

func TestExtractTokensDedupesInOrder(t *testing.T) {
	template := "{{ Client Name }} owes {{amount}} since {{ due_date }}. Right, {{client_name}}?"
	got := service.ExtractTokens(template)
	want := []string{"client_name", "amount", "due_date"}

	if len(got) != len(want) {
		t.Fatalf("expected %d tokens, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestListTokensSplitsBuiltinAndCustom(t *testing.T) {
	subject := "Invoice {{invoice_number}} for {{ Project Name }}"
	body := "Hi {{client_name}}, PO {{po_number}} is due {{due_date}}."

	builtin, custom := service.ListTokens(subject, body, service.BuiltinTokenKeys)

	wantBuiltin := []string{"invoice_number", "client_name", "due_date"}
	wantCustom := []string{"project_name", "po_number"}

	if strings.Join(builtin, ",") != strings.Join(wantBuiltin, ",") {
		t.Errorf("builtin = %v, want %v", builtin, wantBuiltin)
	}
	if strings.Join(custom, ",") != strings.Join(wantCustom, ",") {
		t.Errorf("custom = %v, want %v", custom, wantCustom)
	}
}

func TestRenderTemplate(t *testing.T) {
	data := map[string]string{
		"client_name":    "Acme Corp",
		"invoice_number": "INV-1001",
		"amount":         "USD 1250.00",
	}

	got := service.RenderTemplate("Hi {{ Client Name }}, {{invoice_number}} for {{amount}}.", data)
	want := "Hi Acme Corp, INV-1001 for USD 1250.00."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// Unresolved tokens render as empty strings; the raw {{...}} must never
// leak into an outgoing email.
func TestRenderTemplateNeverLeaksRawTokens(t *testing.T) {
	got := service.RenderTemplate("Hello {{missing_thing}} and {{another one}}!", map[string]string{})
	if strings.Contains(got, "{{") || strings.Contains(got, "}}") {
		t.Errorf("raw token leaked into output: %q", got)
	}
	if got != "Hello  and !" {
		t.Errorf("got %q", got)
	}
}

func TestBuildTemplateDataBuiltinWins(t *testing.T) {
	builtin := map[string]string{"amount": "USD 100.00", "client_name": "Acme"}
	custom := map[string]string{"amount": "spoofed", "po_number": "PO-7"}

	data := service.BuildTemplateData(builtin, custom)

	if data["amount"] != "USD 100.00" {
		t.Errorf("built-in amount overridden: %q", data["amount"])
	}
	if data["po_number"] != "PO-7" {
		t.Errorf("custom value lost: %q", data["po_number"])
	}
}

func TestDefaultTemplateRendersFully(t *testing.T) {
	data := map[string]string{
		"client_name":    "Acme Corp",
		"invoice_number": "INV-1001",
		"amount":         service.FormatAmount("USD", 1250),
		"due_date":       service.FormatDate(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)),
		"days_overdue":   "9",
		"sender_name":    "Jordan Blake",
		"company_name":   "Blake Studio",
	}

	subject := service.RenderTemplate(service.DefaultSubject, data)
	body := service.RenderTemplate(service.DefaultBody, data)

	if strings.Contains(subject, "{{") || strings.Contains(body, "{{") {
		t.Fatalf("default template has unresolved tokens:\n%s\n%s", subject, body)
	}
	if !strings.Contains(subject, "INV-1001") || !strings.Contains(subject, "9 days past due") {
		t.Errorf("subject = %q", subject)
	}
	if !strings.Contains(body, "USD 1250.00") || !strings.Contains(body, "Feb 1, 2026") {
		t.Errorf("body = %q", body)
	}
}

func TestFormatAmount(t *testing.T) {
	if got := service.FormatAmount("EUR", 3200); got != "EUR 3200.00" {
		t.Errorf("got %q", got)
	}
	if got := service.FormatAmount("", 5); got != "USD 5.00" {
		t.Errorf("empty currency: got %q", got)
	}
}
