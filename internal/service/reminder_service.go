// internal/service/reminder_service.go
package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/duespark/duespark-backend/internal/ai"
	appErrors "github.com/duespark/duespark-backend/internal/errors"
	"github.com/duespark/duespark-backend/internal/mailer"
	"github.com/duespark/duespark-backend/internal/model"
	"github.com/duespark/duespark-backend/internal/pdf"
	"github.com/duespark/duespark-backend/internal/repository"
)

const defaultMaxAttachmentBytes = 10 * 1024 * 1024

type ReminderService struct {
	InvoiceRepo  repository.InvoiceRepositoryInterface
	ClientRepo   repository.ClientRepositoryInterface
	ReminderRepo repository.ReminderRepositoryInterface
	SettingsRepo repository.SettingsRepositoryInterface
	Resolver     ai.Resolver
	Mailer       mailer.Sender
	PDF          pdf.Generator

	FromEmail          string
	MaxAttachmentBytes int64

	// Now is swapped out in tests; nil means time.Now.
	Now func() time.Time
}

// RunOptions carries optional template overrides and, for the fill-then-send
// flow, per-invoice custom token values supplied by the caller.
type RunOptions struct {
	SubjectTemplate string
	BodyTemplate    string
	Overrides       map[int64]map[string]string
}

type ItemResult struct {
	InvoiceID     int64  `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number"`
	Reason        string `json:"reason"`
}

// RunResult is the batch contract: counts plus itemized reasons, never a
// bare error for per-invoice problems.
type RunResult struct {
	RunID    string       `json:"run_id"`
	Sent     int          `json:"sent"`
	Failed   int          `json:"failed"`
	Skipped  int          `json:"skipped"`
	Failures []ItemResult `json:"failures,omitempty"`
	Skips    []ItemResult `json:"skips,omitempty"`
}

// PreviewInvoice reports one eligible invoice whose template still has
// unresolved required tokens, so the caller can supply overrides before a
// real run.
type PreviewInvoice struct {
	InvoiceID     int64             `json:"invoice_id"`
	InvoiceNumber string            `json:"invoice_number"`
	ClientName    string            `json:"client_name"`
	MissingTokens []string          `json:"missing_tokens"`
	AISuggestions map[string]string `json:"ai_suggestions"`
}

// SendResult is the interactive single-send contract. NeedsInput is a
// structured prompt for the caller, not an error.
type SendResult struct {
	Sent          int               `json:"sent"`
	Failed        int               `json:"failed"`
	Skipped       bool              `json:"skipped,omitempty"`
	NeedsInput    bool              `json:"needs_input,omitempty"`
	Reason        string            `json:"reason,omitempty"`
	MissingTokens []string          `json:"missing_tokens,omitempty"`
	AISuggestions map[string]string `json:"ai_suggestions,omitempty"`
	EmailID       string            `json:"email_id,omitempty"`
}

// candidate is one invoice that passed the eligibility filter, carrying
// its computed stage forward to dispatch.
type candidate struct {
	invoice *model.Invoice
	client  *model.Client
	overdue int
	stage   int
}

type senderIdentity struct {
	senderName  string
	companyName string
	replyTo     string
}

type preparedReminder struct {
	data        map[string]string
	missing     []string
	suggestions map[string]string
	snapshot    model.InvoiceSnapshot
}

type outcomeKind int

const (
	outcomeSent outcomeKind = iota
	outcomeFailed
	outcomeSkipped
)

type outcome struct {
	kind    outcomeKind
	reason  string
	emailID string
}

func (s *ReminderService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *ReminderService) attachmentCap() int64 {
	if s.MaxAttachmentBytes > 0 {
		return s.MaxAttachmentBytes
	}
	return defaultMaxAttachmentBytes
}

// ====================== Batch run ======================

// RunReminders processes every eligible invoice for the owner to
// completion. Errors local to one invoice never abort its siblings; only
// run-global failures (store unreachable) return an error.
func (s *ReminderService) RunReminders(ctx context.Context, ownerID int64, opts RunOptions) (*RunResult, error) {
	result := &RunResult{RunID: uuid.NewString(), Failures: []ItemResult{}, Skips: []ItemResult{}}

	invoices, err := s.InvoiceRepo.ListByOwner(ownerID)
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return result, nil
	}

	identity, subjectTemplate, bodyTemplate, err := s.ownerTemplates(ownerID, opts)
	if err != nil {
		return nil, err
	}

	candidates, lineItems, err := s.loadCandidates(ownerID, invoices)
	if err != nil {
		return nil, err
	}

	// The template is shared across the run: classify its tokens once.
	_, customKeys := ListTokens(subjectTemplate, bodyTemplate, BuiltinTokenKeys)

	for _, cand := range candidates {
		out := s.processCandidate(ctx, ownerID, cand, subjectTemplate, bodyTemplate,
			customKeys, opts.Overrides[cand.invoice.ID], identity, lineItems[cand.invoice.ID])
		switch out.kind {
		case outcomeSent:
			result.Sent++
		case outcomeFailed:
			result.Failed++
			result.Failures = append(result.Failures, ItemResult{
				InvoiceID:     cand.invoice.ID,
				InvoiceNumber: cand.invoice.InvoiceNumber,
				Reason:        out.reason,
			})
		case outcomeSkipped:
			result.Skipped++
			result.Skips = append(result.Skips, ItemResult{
				InvoiceID:     cand.invoice.ID,
				InvoiceNumber: cand.invoice.InvoiceNumber,
				Reason:        out.reason,
			})
		}
	}

	return result, nil
}

// processCandidate runs the full per-invoice pipeline. A panic anywhere in
// it is converted to a failure for this invoice only.
func (s *ReminderService) processCandidate(ctx context.Context, ownerID int64, cand candidate,
	subjectTemplate, bodyTemplate string, customKeys []string, overrides map[string]string,
	identity senderIdentity, items []model.InvoiceLineItem) (out outcome) {

	defer func() {
		if r := recover(); r != nil {
			log.Printf("⚠️ panic while processing invoice %d: %v", cand.invoice.ID, r)
			out = outcome{kind: outcomeFailed, reason: fmt.Sprintf("unexpected error: %v", r)}
		}
	}()

	prepared := s.prepare(ctx, cand, customKeys, overrides, identity, items)
	if len(prepared.missing) > 0 {
		return outcome{
			kind:   outcomeSkipped,
			reason: "missing values for: " + strings.Join(prepared.missing, ", "),
		}
	}

	return s.dispatch(ownerID, cand, prepared, subjectTemplate, bodyTemplate, identity)
}

// ====================== Preview / dry-run ======================

// PreviewReminders runs the eligibility and resolution pipeline without
// sending. It must match RunReminders exactly; any divergence makes the
// preview lie.
func (s *ReminderService) PreviewReminders(ctx context.Context, ownerID int64, opts RunOptions) ([]PreviewInvoice, error) {
	out := []PreviewInvoice{}

	invoices, err := s.InvoiceRepo.ListByOwner(ownerID)
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return out, nil
	}

	identity, subjectTemplate, bodyTemplate, err := s.ownerTemplates(ownerID, opts)
	if err != nil {
		return nil, err
	}

	_, customKeys := ListTokens(subjectTemplate, bodyTemplate, BuiltinTokenKeys)
	if len(customKeys) == 0 {
		return out, nil
	}

	candidates, lineItems, err := s.loadCandidates(ownerID, invoices)
	if err != nil {
		return nil, err
	}

	for _, cand := range candidates {
		prepared := s.prepare(ctx, cand, customKeys, opts.Overrides[cand.invoice.ID], identity, lineItems[cand.invoice.ID])
		if len(prepared.missing) == 0 {
			continue
		}
		out = append(out, PreviewInvoice{
			InvoiceID:     cand.invoice.ID,
			InvoiceNumber: cand.invoice.InvoiceNumber,
			ClientName:    cand.client.Name,
			MissingTokens: prepared.missing,
			AISuggestions: prepared.suggestions,
		})
	}

	return out, nil
}

// ====================== Interactive single send ======================

// SendReminder sends one invoice's reminder through the same pipeline the
// batch uses. Ineligibility and unresolved tokens come back as structured
// results, never as errors.
func (s *ReminderService) SendReminder(ctx context.Context, ownerID, invoiceID int64, overrides map[string]string) (*SendResult, error) {
	inv, err := s.InvoiceRepo.GetByID(invoiceID, ownerID)
	if err != nil {
		return nil, err
	}

	if inv.Status != "open" && inv.Status != "partial" {
		return &SendResult{Skipped: true, Reason: "Invoice is not open or partial."}, nil
	}

	overdue := DaysOverdue(inv.DueDate, s.now())
	stage := ReminderStage(overdue)
	if stage == 0 {
		return &SendResult{Skipped: true, Reason: "Invoice is not overdue yet."}, nil
	}

	reminders, err := s.ReminderRepo.ListByInvoiceIDs([]int64{inv.ID})
	if err != nil {
		return nil, err
	}
	for _, rem := range reminders {
		if rem.Stage == stage && rem.Status != model.ReminderStatusFailed {
			return &SendResult{Skipped: true, Reason: "Reminder already sent for this stage."}, nil
		}
	}

	client, err := s.ClientRepo.GetByID(inv.ClientID, ownerID)
	if err != nil {
		return nil, err
	}
	if client == nil || client.Email == "" {
		return &SendResult{Skipped: true, Reason: "Client email missing."}, nil
	}

	identity, subjectTemplate, bodyTemplate, err := s.ownerTemplates(ownerID, RunOptions{})
	if err != nil {
		return nil, err
	}

	lineItems, err := s.InvoiceRepo.ListLineItems([]int64{inv.ID})
	if err != nil {
		return nil, err
	}

	cand := candidate{invoice: inv, client: client, overdue: overdue, stage: stage}
	_, customKeys := ListTokens(subjectTemplate, bodyTemplate, BuiltinTokenKeys)

	prepared := s.prepare(ctx, cand, customKeys, overrides, identity, lineItems[inv.ID])
	if len(prepared.missing) > 0 {
		return &SendResult{
			NeedsInput:    true,
			MissingTokens: prepared.missing,
			AISuggestions: prepared.suggestions,
		}, nil
	}

	out := s.dispatch(ownerID, cand, prepared, subjectTemplate, bodyTemplate, identity)
	switch out.kind {
	case outcomeSent:
		return &SendResult{Sent: 1, EmailID: out.emailID}, nil
	case outcomeSkipped:
		return &SendResult{Skipped: true, Reason: out.reason}, nil
	default:
		return &SendResult{Failed: 1, Reason: out.reason}, nil
	}
}

// ====================== Shared pipeline ======================

// prepare resolves every token for one invoice: built-in data, then the
// alias table, then caller overrides, then one batched AI call for the
// rest. Built-ins are always present; custom keys left empty are reported
// as missing so no business fact silently renders blank.
func (s *ReminderService) prepare(ctx context.Context, cand candidate, customKeys []string,
	overrides map[string]string, identity senderIdentity, items []model.InvoiceLineItem) preparedReminder {

	builtin := s.builtinData(cand, identity)
	snapshot := buildSnapshot(cand.invoice, cand.client, items)

	values := map[string]string{}
	suggestions := map[string]string{}

	for _, key := range customKeys {
		if builtinKey, ok := CustomTokenAliases[key]; ok {
			if v := builtin[builtinKey]; v != "" {
				values[key] = v
			}
		}
	}

	// Caller-supplied overrides take priority over everything.
	for raw, v := range overrides {
		key := NormalizeTokenKey(raw)
		if strings.TrimSpace(v) == "" {
			continue
		}
		for _, k := range customKeys {
			if k == key {
				values[key] = strings.TrimSpace(v)
				break
			}
		}
	}

	unresolved := []string{}
	for _, key := range customKeys {
		if values[key] == "" {
			unresolved = append(unresolved, key)
		}
	}

	if len(unresolved) > 0 && s.Resolver != nil {
		for _, res := range s.Resolver.ResolveBatch(ctx, unresolved, snapshot) {
			if res.Value == "" {
				continue
			}
			if ai.IsAutoFillConfidence(res.Confidence) {
				values[res.Key] = res.Value
			} else if !ai.IsLowConfidence(res.Confidence) {
				// Needs review: a suggestion for the caller, never auto-applied.
				suggestions[res.Key] = res.Value
			}
		}
	}

	missing := []string{}
	for _, key := range customKeys {
		if strings.TrimSpace(values[key]) == "" {
			missing = append(missing, key)
		}
	}

	return preparedReminder{
		data:        BuildTemplateData(builtin, values),
		missing:     missing,
		suggestions: suggestions,
		snapshot:    snapshot,
	}
}

// dispatch renders, generates the PDF, sends, and records the outcome.
// Inserting the reminder row is the linearization point of the
// at-most-once guarantee: a duplicate-row error from a concurrent run
// turns the result into a skip.
func (s *ReminderService) dispatch(ownerID int64, cand candidate, prepared preparedReminder,
	subjectTemplate, bodyTemplate string, identity senderIdentity) outcome {

	subject := RenderTemplate(subjectTemplate, prepared.data)
	text := RenderTemplate(bodyTemplate, prepared.data)

	pdfBytes, err := s.PDF.Generate(prepared.snapshot, pdf.Branding{
		CompanyName: identity.companyName,
		SenderName:  identity.senderName,
	})
	if err != nil {
		return outcome{kind: outcomeFailed, reason: fmt.Sprintf("pdf generation failed: %v", err)}
	}

	msg := mailer.Message{
		FromName:  identity.senderName,
		FromEmail: s.FromEmail,
		To:        cand.client.Email,
		Subject:   subject,
		Text:      text,
		ReplyTo:   identity.replyTo,
	}
	// Oversized attachments are dropped; the email still goes out.
	if int64(len(pdfBytes)) <= s.attachmentCap() {
		msg.Attachments = []mailer.Attachment{{
			Filename:    fmt.Sprintf("invoice-%s.pdf", cand.invoice.InvoiceNumber),
			Content:     pdfBytes,
			ContentType: "application/pdf",
		}}
	}

	now := s.now()
	emailID, sendErr := s.Mailer.Send(msg)
	if sendErr != nil {
		// Record the failed attempt so the history is auditable; a failed
		// row does not block a deliberate re-run at the same stage.
		rem := &model.Reminder{
			OwnerID:   ownerID,
			InvoiceID: cand.invoice.ID,
			Stage:     cand.stage,
			Status:    model.ReminderStatusFailed,
			SentAt:    now,
		}
		if err := s.ReminderRepo.Create(rem); err != nil {
			log.Printf("⚠️ failed to record failed reminder for invoice %d: %v", cand.invoice.ID, err)
		}
		return outcome{kind: outcomeFailed, reason: sendErr.Error()}
	}

	rem := &model.Reminder{
		OwnerID:   ownerID,
		InvoiceID: cand.invoice.ID,
		Stage:     cand.stage,
		Status:    model.ReminderStatusSent,
		SentAt:    now,
		EmailID:   emailID,
	}
	if err := s.ReminderRepo.Create(rem); err != nil {
		if appErrors.IsDuplicateReminder(err) {
			return outcome{kind: outcomeSkipped, reason: "Reminder already sent for this stage."}
		}
		return outcome{kind: outcomeFailed, reason: fmt.Sprintf("failed to record reminder: %v", err)}
	}

	if err := s.InvoiceRepo.UpdateLastReminderSent(cand.invoice.ID, ownerID, now); err != nil {
		log.Printf("⚠️ failed to update last reminder timestamp for invoice %d: %v", cand.invoice.ID, err)
	}

	return outcome{kind: outcomeSent, emailID: emailID}
}

// ====================== Eligibility ======================

// eligible applies the reminder eligibility filter: open/partial status,
// overdue enough for a stage, no non-failed reminder at that stage, and a
// contactable client. Evaluated fresh on every run.
func (s *ReminderService) eligible(invoices []*model.Invoice, clientsByID map[int64]*model.Client, sentSet map[string]bool) []candidate {
	now := s.now()
	candidates := []candidate{}
	for _, inv := range invoices {
		if inv.Status != "open" && inv.Status != "partial" {
			continue
		}
		overdue := DaysOverdue(inv.DueDate, now)
		stage := ReminderStage(overdue)
		if stage == 0 {
			continue
		}
		if sentSet[reminderKey(inv.ID, stage)] {
			continue
		}
		client := clientsByID[inv.ClientID]
		if client == nil || client.Email == "" {
			continue
		}
		candidates = append(candidates, candidate{invoice: inv, client: client, overdue: overdue, stage: stage})
	}
	return candidates
}

// loadCandidates fetches the owner's clients, reminder history, and line
// items, and returns the eligible candidate set.
func (s *ReminderService) loadCandidates(ownerID int64, invoices []*model.Invoice) ([]candidate, map[int64][]model.InvoiceLineItem, error) {
	clients, err := s.ClientRepo.ListByOwner(ownerID)
	if err != nil {
		return nil, nil, err
	}
	clientsByID := map[int64]*model.Client{}
	for _, c := range clients {
		clientsByID[c.ID] = c
	}

	ids := make([]int64, len(invoices))
	for i, inv := range invoices {
		ids[i] = inv.ID
	}

	reminders, err := s.ReminderRepo.ListByInvoiceIDs(ids)
	if err != nil {
		return nil, nil, err
	}
	sentSet := map[string]bool{}
	for _, rem := range reminders {
		if rem.Status != model.ReminderStatusFailed {
			sentSet[reminderKey(rem.InvoiceID, rem.Stage)] = true
		}
	}

	lineItems, err := s.InvoiceRepo.ListLineItems(ids)
	if err != nil {
		return nil, nil, err
	}

	return s.eligible(invoices, clientsByID, sentSet), lineItems, nil
}

// ====================== Helpers ======================

func (s *ReminderService) ownerTemplates(ownerID int64, opts RunOptions) (senderIdentity, string, string, error) {
	settings, err := s.SettingsRepo.GetByOwner(ownerID)
	if err != nil {
		return senderIdentity{}, "", "", err
	}

	identity := senderIdentity{senderName: "Accounts Team", companyName: "Your Company"}
	subjectTemplate := DefaultSubject
	bodyTemplate := DefaultBody
	if settings != nil {
		if settings.SenderName != "" {
			identity.senderName = settings.SenderName
		}
		if settings.CompanyName != "" {
			identity.companyName = settings.CompanyName
		}
		identity.replyTo = settings.ReplyTo
		if settings.ReminderSubject != "" {
			subjectTemplate = settings.ReminderSubject
		}
		if settings.ReminderBody != "" {
			bodyTemplate = settings.ReminderBody
		}
	}
	if opts.SubjectTemplate != "" {
		subjectTemplate = opts.SubjectTemplate
	}
	if opts.BodyTemplate != "" {
		bodyTemplate = opts.BodyTemplate
	}
	return identity, subjectTemplate, bodyTemplate, nil
}

func (s *ReminderService) builtinData(cand candidate, identity senderIdentity) map[string]string {
	clientName := cand.client.Name
	if clientName == "" {
		clientName = "there"
	}
	return map[string]string{
		"client_name":    clientName,
		"invoice_number": cand.invoice.InvoiceNumber,
		"amount":         FormatAmount(cand.invoice.Currency, cand.invoice.Amount),
		"due_date":       FormatDate(cand.invoice.DueDate),
		"days_overdue":   strconv.Itoa(cand.overdue),
		"sender_name":    identity.senderName,
		"company_name":   identity.companyName,
	}
}

func buildSnapshot(inv *model.Invoice, client *model.Client, items []model.InvoiceLineItem) model.InvoiceSnapshot {
	snapshot := model.InvoiceSnapshot{
		InvoiceNumber: inv.InvoiceNumber,
		Amount:        inv.Amount,
		Currency:      inv.Currency,
		DueDate:       inv.DueDate.Format("2006-01-02"),
		PaymentTerms:  inv.PaymentTerms,
		BillToAddress: inv.BillToAddress,
	}
	if inv.IssueDate != nil {
		snapshot.IssueDate = inv.IssueDate.Format("2006-01-02")
	}
	if client != nil {
		snapshot.ClientName = client.Name
		snapshot.ClientEmail = client.Email
	}
	if inv.Subtotal != nil {
		snapshot.Subtotal = *inv.Subtotal
	}
	if inv.Tax != nil {
		snapshot.Tax = *inv.Tax
	}
	if inv.Total != nil {
		snapshot.Total = *inv.Total
	}
	for _, item := range items {
		snapshot.LineItems = append(snapshot.LineItems, model.LineItemSnapshot{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		})
	}
	return snapshot
}

func reminderKey(invoiceID int64, stage int) string {
	return fmt.Sprintf("%d:%d", invoiceID, stage)
}
