// Package ai wraps the OpenAI chat API for field extraction and intent
// detection. Every failure surfaces as ErrUnavailable so callers can degrade
// to their deterministic fallbacks.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog"

	"quotedesk/internal/config"
	"quotedesk/internal/logging"
)

// ErrUnavailable means the AI call failed or returned nothing usable. It is
// always recoverable: callers fall back to deterministic logic and never
// surface it to the end user.
var ErrUnavailable = errors.New("ai unavailable")

type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
	log     zerolog.Logger
}

func NewClient(cfg config.Config) *Client {
	c := &Client{
		model:   cfg.AIModel,
		timeout: time.Duration(cfg.AITimeoutMs) * time.Millisecond,
		log:     logging.Component("ai"),
	}
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		c.api = openai.NewClient(cfg.OpenAIAPIKey)
	}
	return c
}

// Configured reports whether an API key was provided at all.
func (c *Client) Configured() bool {
	return c.api != nil
}

// Extraction is the fixed schema the extraction prompt asks for.
type Extraction struct {
	ProductName  *string  `json:"product_name"`
	LengthInches *float64 `json:"length_inches"`
	WidthInches  *float64 `json:"width_inches"`
	CustomerName *string  `json:"customer_name"`
	Confidence   float64  `json:"confidence"`
}

const extractionPrompt = `Extract product quote information from this customer email.

Email Subject: %s
Email Body: %s

Extract:
1. Product name/type (e.g., "custom felt rug", "acrylic tabletop")
2. Length in inches (dimensions like "48 inches", "48\"", "48 x 36")
3. Width in inches
4. The customer's name if they sign with one

Return only a JSON object:
{
    "product_name": "product name or null",
    "length_inches": number or null,
    "width_inches": number or null,
    "customer_name": "name or null",
    "confidence": 0.0-1.0
}

Dimensions like "48x36" or "48 x 36" parse as length x width. If only one
dimension is mentioned, set the other to null.`

// ExtractQuoteFields asks the model for the structured quote fields. Any
// transport error or schema-nonconforming reply is ErrUnavailable.
func (c *Client) ExtractQuoteFields(ctx context.Context, subject, body string) (Extraction, error) {
	content, err := c.chat(ctx,
		"You are a helpful assistant that extracts structured information from emails.",
		fmt.Sprintf(extractionPrompt, subject, body), 0.1, 500)
	if err != nil {
		return Extraction{}, err
	}

	var out Extraction
	if err := json.Unmarshal([]byte(stripFences(content)), &out); err != nil {
		c.log.Warn().Err(err).Msg("extraction reply did not match schema")
		return Extraction{}, ErrUnavailable
	}

	// Validate before trusting: non-positive dimensions are no signal.
	if out.LengthInches != nil && *out.LengthInches <= 0 {
		out.LengthInches = nil
	}
	if out.WidthInches != nil && *out.WidthInches <= 0 {
		out.WidthInches = nil
	}
	return out, nil
}

// IntentResult is the intent schema.
type IntentResult struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

const intentPrompt = `Analyze this customer email and determine its intent.

Email Subject: %s
Email Body: %s
Conversation so far: %s

Determine the intent:
1. "new_request" - a new quote request
2. "follow_up" - the customer is providing information we asked for or asking about a previous quote
3. "duplicate" - the customer is repeating a request we already quoted
4. "unrelated" - not about a quote at all

Return only JSON:
{
    "intent": "one of the intents above",
    "confidence": 0.0-1.0,
    "reason": "brief explanation"
}`

var validIntents = map[string]struct{}{
	"new_request": {}, "follow_up": {}, "duplicate": {}, "unrelated": {},
}

// DetectIntent classifies the message's role within its thread.
func (c *Client) DetectIntent(ctx context.Context, subject, body, threadSummary string) (IntentResult, error) {
	content, err := c.chat(ctx,
		"You are a helpful assistant that analyzes email intent for a quote automation system.",
		fmt.Sprintf(intentPrompt, subject, body, threadSummary), 0.2, 200)
	if err != nil {
		return IntentResult{}, err
	}

	var out IntentResult
	if err := json.Unmarshal([]byte(stripFences(content)), &out); err != nil {
		c.log.Warn().Err(err).Msg("intent reply did not match schema")
		return IntentResult{}, ErrUnavailable
	}
	if _, ok := validIntents[out.Intent]; !ok {
		c.log.Warn().Str("intent", out.Intent).Msg("intent outside schema")
		return IntentResult{}, ErrUnavailable
	}
	return out, nil
}

func (c *Client) chat(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error) {
	if c.api == nil {
		return "", ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("chat completion failed")
		return "", ErrUnavailable
	}
	if len(resp.Choices) == 0 {
		return "", ErrUnavailable
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

var reFence = regexp.MustCompile("```(?:json)?\n?")

// stripFences removes markdown code fences some models wrap JSON in.
func stripFences(s string) string {
	return strings.TrimSpace(reFence.ReplaceAllString(s, ""))
}
