// internal/service/template_service.go
package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const DefaultSubject = "Friendly reminder: Invoice {{invoice_number}} is {{days_overdue}} days past due"

const DefaultBody = `Hi {{client_name}},

This is a friendly reminder that invoice {{invoice_number}} for {{amount}} was due on {{due_date}} and is now {{days_overdue}} days past due.

If you've already sent payment, please disregard this note. Otherwise, could you let us know when we can expect payment?

Thanks,
{{sender_name}}
{{company_name}}`

// BuiltinField describes a token always resolvable from invoice/owner data.
type BuiltinField struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

var BuiltinFields = []BuiltinField{
	{Key: "client_name", Label: "Client Name", Description: "The name of the client"},
	{Key: "invoice_number", Label: "Invoice Number", Description: "The invoice number"},
	{Key: "amount", Label: "Amount", Description: "The invoice amount with currency"},
	{Key: "due_date", Label: "Due Date", Description: "The invoice due date"},
	{Key: "days_overdue", Label: "Days Overdue", Description: "Number of days the invoice is overdue"},
	{Key: "sender_name", Label: "Sender Name", Description: "The name of the person sending the reminder"},
	{Key: "company_name", Label: "Company Name", Description: "Your company name"},
}

// BuiltinTokenKeys is the fixed built-in key set. Built-in values are
// supplied from invoice/owner data and never sent to the AI resolver.
var BuiltinTokenKeys = func() []string {
	keys := make([]string, len(BuiltinFields))
	for i, f := range BuiltinFields {
		keys[i] = f.Key
	}
	return keys
}()

// SuggestedCustomFields are not built-in, but the resolver will try to read
// them from invoice data. Users can also type any {{placeholder}}.
var SuggestedCustomFields = []BuiltinField{
	{Key: "project_name", Label: "Project Name", Description: "Read from invoice (AI)"},
	{Key: "po_number", Label: "PO Number", Description: "Read from invoice (AI)"},
	{Key: "reference", Label: "Reference", Description: "Read from invoice (AI)"},
	{Key: "contract_id", Label: "Contract ID", Description: "Read from invoice (AI)"},
	{Key: "first_line_item", Label: "First line item", Description: "Read from invoice (AI)"},
	{Key: "service_description", Label: "Service description", Description: "Read from invoice (AI)"},
	{Key: "billing_period", Label: "Billing period", Description: "Read from invoice (AI)"},
}

// CustomTokenAliases maps common custom-token synonyms onto built-in keys
// so they resolve without an AI call.
var CustomTokenAliases = map[string]string{
	"invoice_amount": "amount",
	"invoice_date":   "due_date",
	"total":          "amount",
	"invoice_total":  "amount",
}

var (
	tokenRegex      = regexp.MustCompile(`\{\{\s*([^}]+?)\s*\}\}`)
	separatorRuns   = regexp.MustCompile(`[\s\-./]+`)
	invalidKeyChars = regexp.MustCompile(`[^a-z0-9_]`)
	underscoreRuns  = regexp.MustCompile(`_+`)
	edgeUnderscores = regexp.MustCompile(`^_|_$`)
)

// NormalizeTokenKey normalizes a raw placeholder to a canonical key:
// trim, lowercase, separator runs to a single underscore, strip the rest.
// {{Client Name}} and {{client_name}} resolve identically.
func NormalizeTokenKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = separatorRuns.ReplaceAllString(key, "_")
	key = invalidKeyChars.ReplaceAllString(key, "")
	key = underscoreRuns.ReplaceAllString(key, "_")
	key = edgeUnderscores.ReplaceAllString(key, "")
	if key == "" {
		return "placeholder"
	}
	return key
}

// ExtractTokens returns the normalized keys of all {{ ... }} occurrences,
// de-duplicated in order of first appearance.
func ExtractTokens(template string) []string {
	seen := map[string]bool{}
	keys := []string{}
	for _, match := range tokenRegex.FindAllStringSubmatch(template, -1) {
		key := NormalizeTokenKey(match[1])
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

// ListTokens returns the tokens found in subject + body split into builtin
// vs custom, each de-duplicated in order of first appearance.
func ListTokens(subject, body string, builtinKeys []string) (builtin, custom []string) {
	builtinSet := map[string]bool{}
	for _, k := range builtinKeys {
		builtinSet[strings.ToLower(k)] = true
	}
	seen := map[string]bool{}
	builtin = []string{}
	custom = []string{}
	for _, key := range append(ExtractTokens(subject), ExtractTokens(body)...) {
		if seen[key] {
			continue
		}
		seen[key] = true
		if builtinSet[key] {
			builtin = append(builtin, key)
		} else {
			custom = append(custom, key)
		}
	}
	return builtin, custom
}

// RenderTemplate replaces every {{ ... }} by normalized key lookup in data.
// Unresolved keys render as empty string, never as the literal token.
func RenderTemplate(template string, data map[string]string) string {
	return tokenRegex.ReplaceAllStringFunc(template, func(token string) string {
		inner := tokenRegex.FindStringSubmatch(token)
		return data[NormalizeTokenKey(inner[1])]
	})
}

// BuildTemplateData merges custom values under built-in data; built-ins win
// on key collisions.
func BuildTemplateData(builtinData, customValues map[string]string) map[string]string {
	data := make(map[string]string, len(builtinData)+len(customValues))
	for k, v := range customValues {
		data[k] = v
	}
	for k, v := range builtinData {
		data[k] = v
	}
	return data
}

// FormatDate renders a date the way reminder emails show it, e.g. "Jan 2, 2026".
func FormatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

// FormatAmount renders a monetary amount with its currency code.
func FormatAmount(currency string, amount float64) string {
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%s %.2f", currency, amount)
}
