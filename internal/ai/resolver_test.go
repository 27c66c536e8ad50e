package ai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/duespark/duespark-backend/internal/ai"
	"github.com/duespark/duespark-backend/internal/model"
)

func snapshot() model.InvoiceSnapshot {
	return model.InvoiceSnapshot{
		InvoiceNumber: "INV-1001",
		Amount:        1250,
		Currency:      "USD",
		DueDate:       "2026-02-01",
		ClientName:    "Acme Corp",
		LineItems: []model.LineItemSnapshot{
			{Description: "Website redesign - Phase 1", Quantity: 1, UnitPrice: 1150, LineTotal: 1150},
		},
	}
}

// chatReply builds an OpenAI-style chat completion whose content is the
// given token payload.
func chatReply(t *testing.T, tokens []map[string]any) []byte {
	t.Helper()
	content, err := json.Marshal(map[string]any{"tokens": tokens})
	if err != nil {
		t.Fatal(err)
	}
	body, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": string(content)}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func testResolver(serverURL string) *ai.OpenAIResolver {
	r := ai.NewOpenAIResolver("test-key", "test-model")
	r.BaseURL = serverURL
	return r
}

func TestResolveBatchWithoutAPIKey(t *testing.T) {
	r := ai.NewOpenAIResolver("", "test-model")

	results := r.ResolveBatch(context.Background(), []string{"project_name", "po_number"}, snapshot())

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, res := range results {
		if res.Value != "" || res.Confidence != 0 {
			t.Errorf("expected zero resolution for %s, got %+v", res.Key, res)
		}
	}
}

func TestResolveBatchParsesValidResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing auth header")
		}
		w.Write(chatReply(t, []map[string]any{
			{"key": "project_name", "value": "Website redesign", "confidence": 0.9},
			{"key": "po_number", "value": "", "confidence": 0},
		}))
	}))
	defer srv.Close()

	results := testResolver(srv.URL).ResolveBatch(context.Background(), []string{"project_name", "po_number"}, snapshot())

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Key != "project_name" || results[0].Value != "Website redesign" || results[0].Confidence != 0.9 {
		t.Errorf("unexpected resolution: %+v", results[0])
	}
	if results[1].Value != "" || results[1].Confidence != 0 {
		t.Errorf("expected empty resolution for po_number, got %+v", results[1])
	}
}

// The model may drop keys, invent keys, or repeat keys. Requested keys
// must always come back, extras never.
func TestResolveBatchFiltersAndBackfills(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatReply(t, []map[string]any{
			{"key": "Project Name", "value": "Zephyr", "confidence": 0.8}, // needs normalizing
			{"key": "project_name", "value": "duplicate", "confidence": 0.5},
			{"key": "invented_key", "value": "noise", "confidence": 1.0},
		}))
	}))
	defer srv.Close()

	results := testResolver(srv.URL).ResolveBatch(context.Background(), []string{"project_name", "billing_period"}, snapshot())

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Key != "project_name" || results[0].Value != "Zephyr" {
		t.Errorf("first-wins dedup failed: %+v", results[0])
	}
	if results[1].Key != "billing_period" || results[1].Value != "" || results[1].Confidence != 0 {
		t.Errorf("dropped key not backfilled: %+v", results[1])
	}
}

func TestResolveBatchClampsConfidence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(chatReply(t, []map[string]any{
			{"key": "project_name", "value": "Zephyr", "confidence": 5.0},
			{"key": "po_number", "value": "PO-1", "confidence": -2.0},
		}))
	}))
	defer srv.Close()

	results := testResolver(srv.URL).ResolveBatch(context.Background(), []string{"project_name", "po_number"}, snapshot())

	if results[0].Confidence != 1 {
		t.Errorf("confidence not clamped to 1: %v", results[0].Confidence)
	}
	if results[1].Confidence != 0 {
		t.Errorf("confidence not clamped to 0: %v", results[1].Confidence)
	}
}

func TestResolveBatchDegradesOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom"}}`))
	}))
	defer srv.Close()

	results := testResolver(srv.URL).ResolveBatch(context.Background(), []string{"project_name"}, snapshot())

	if len(results) != 1 || results[0].Value != "" || results[0].Confidence != 0 {
		t.Errorf("expected zero resolutions on server error, got %+v", results)
	}
}

func TestResolveBatchDegradesOnMalformedContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "sure, here are your tokens!"}},
			},
		})
		w.Write(body)
	}))
	defer srv.Close()

	results := testResolver(srv.URL).ResolveBatch(context.Background(), []string{"project_name"}, snapshot())

	if len(results) != 1 || results[0].Value != "" || results[0].Confidence != 0 {
		t.Errorf("expected zero resolutions on malformed content, got %+v", results)
	}
}

func TestConfidenceBands(t *testing.T) {
	if !ai.IsAutoFillConfidence(0.7) || ai.IsAutoFillConfidence(0.69) {
		t.Error("auto-fill boundary is inclusive at 0.7")
	}
	if !ai.IsLowConfidence(0.29) || ai.IsLowConfidence(0.3) {
		t.Error("low-confidence boundary is exclusive at 0.3")
	}
}
