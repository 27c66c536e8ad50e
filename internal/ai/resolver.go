// internal/ai/resolver.go
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/duespark/duespark-backend/internal/model"
)

// Confidence cut-points. Scores in [ConfidenceLowThreshold,
// ConfidenceAutoFill) are "needs review": surfaced as a suggestion, not
// auto-applied.
const (
	ConfidenceAutoFill     = 0.7
	ConfidenceLowThreshold = 0.3
)

// IsAutoFillConfidence reports whether a resolution is safe to use without
// human review.
func IsAutoFillConfidence(confidence float64) bool {
	return confidence >= ConfidenceAutoFill
}

// IsLowConfidence reports whether a resolution carries no usable signal.
func IsLowConfidence(confidence float64) bool {
	return confidence < ConfidenceLowThreshold
}

// TokenResolution is one resolved custom token. Ephemeral: produced per
// invoice per run, never cached across invoices.
type TokenResolution struct {
	Key        string  `json:"key"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Resolver fills custom template tokens from one invoice's data in a
// single batched call. Implementations return exactly one resolution per
// requested key and never return an error: absence of a usable answer is
// an empty value with confidence 0.
type Resolver interface {
	ResolveBatch(ctx context.Context, tokenKeys []string, invoice model.InvoiceSnapshot) []TokenResolution
}

// OpenAIResolver resolves tokens with one chat-completions call per invoice.
type OpenAIResolver struct {
	APIKey     string
	Model      string
	BaseURL    string // defaults to the OpenAI API; overridden in tests
	HTTPClient *http.Client
}

func NewOpenAIResolver(apiKey, model string) *OpenAIResolver {
	return &OpenAIResolver{
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    "https://api.openai.com/v1",
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	MaxTokens      int           `json:"max_tokens"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat responseFmt   `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFmt struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type tokenList struct {
	Tokens []struct {
		Key        string  `json:"key"`
		Value      string  `json:"value"`
		Confidence float64 `json:"confidence"`
	} `json:"tokens"`
}

// ResolveBatch fills every requested key from the invoice snapshot. On any
// failure (missing key, transport error, malformed output) it degrades to
// empty values with confidence 0 rather than surfacing an error.
func (r *OpenAIResolver) ResolveBatch(ctx context.Context, tokenKeys []string, invoice model.InvoiceSnapshot) []TokenResolution {
	if r.APIKey == "" || len(tokenKeys) == 0 {
		return zeroResolutions(tokenKeys)
	}

	keysJSON, _ := json.Marshal(tokenKeys)
	invoiceJSON, _ := json.Marshal(invoice)

	prompt := fmt.Sprintf(`You are a helper that fills template placeholder values from invoice data.

Placeholder keys to fill (one value per key): %s

Invoice data (JSON): %s

For each key, suggest a single short value from the invoice data that best fits (e.g. for "project_name" use a line item description; for "po_number" use a reference if present).
Respond with a JSON object exactly in this shape, no other text:
{"tokens":[{"key":"<key>","value":"<short value or empty string>","confidence":<0.0 to 1.0>}]}

Rules:
- Include every key from the list. Use value "" and confidence 0 when nothing in the data fits.
- confidence: 1.0 = exact match in data, 0.7-0.9 = strong inference, 0.4-0.6 = guess, 0-0.3 = weak or no fit.
- Keep each value short (a few words max).`, keysJSON, invoiceJSON)

	body, err := json.Marshal(chatRequest{
		Model:          r.Model,
		Messages:       []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:      800,
		Temperature:    0,
		ResponseFormat: responseFmt{Type: "json_object"},
	})
	if err != nil {
		return zeroResolutions(tokenKeys)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return zeroResolutions(tokenKeys)
	}
	req.Header.Set("Authorization", "Bearer "+r.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		log.Println("⚠️ token resolver request failed:", err)
		return zeroResolutions(tokenKeys)
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		log.Println("⚠️ token resolver returned unreadable response:", err)
		return zeroResolutions(tokenKeys)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			log.Println("⚠️ token resolver error:", parsed.Error.Message)
		}
		return zeroResolutions(tokenKeys)
	}
	if len(parsed.Choices) == 0 {
		return zeroResolutions(tokenKeys)
	}

	var tokens tokenList
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &tokens); err != nil {
		log.Println("⚠️ token resolver returned malformed content:", err)
		return zeroResolutions(tokenKeys)
	}

	requested := map[string]bool{}
	for _, key := range tokenKeys {
		requested[key] = true
	}

	byKey := map[string]TokenResolution{}
	for _, t := range tokens.Tokens {
		key := strings.ToLower(strings.TrimSpace(t.Key))
		key = strings.Join(strings.Fields(key), "_")
		if key == "" || !requested[key] {
			continue
		}
		if _, ok := byKey[key]; ok {
			continue
		}
		byKey[key] = TokenResolution{
			Key:        key,
			Value:      strings.TrimSpace(t.Value),
			Confidence: clampConfidence(t.Confidence),
		}
	}

	// Backfill keys the model dropped: never lose a key silently.
	results := make([]TokenResolution, len(tokenKeys))
	for i, key := range tokenKeys {
		if res, ok := byKey[key]; ok {
			results[i] = res
		} else {
			results[i] = TokenResolution{Key: key}
		}
	}
	return results
}

func zeroResolutions(tokenKeys []string) []TokenResolution {
	results := make([]TokenResolution, len(tokenKeys))
	for i, key := range tokenKeys {
		results[i] = TokenResolution{Key: key}
	}
	return results
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

var _ Resolver = (*OpenAIResolver)(nil)
