package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const systemPrompt = `You are a worship leader's assistant. Parse the user's song request into JSON.
Themes are single lowercase words (grace, surrender, worship, praise, peace, hope, faith, joy, love, redemption).
BPM guidance: slow/ministry 40-80, medium 80-120, fast/praise 120-200.
vocal_lead is "male", "female" or "". intent is "search", "more", "feedback" or "unknown".
Respond with ONLY valid JSON:
{"themes":[],"bpm_min":null,"bpm_max":null,"key_preference":"","vocal_lead":"","intent":"search","exclude_recent":false,"confidence":0.0}`

// Client talks to an Ollama-compatible chat endpoint. Every call is bounded
// by the configured timeout; callers treat any error as a fallback trigger,
// never a user-facing failure.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(baseURL, model string, timeout time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Parse asks the model to structure the request text. The returned error is
// non-nil on timeout, transport failure, or malformed model output; the
// caller falls back to the rule parser in all of those cases.
func (c *Client) Parse(ctx context.Context, text string) (*ParseResult, error) {
	req := ChatRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
		Stream: false,
		Format: "json",
	}

	var resp ChatResponse
	if err := c.makeRequest(ctx, "POST", "/api/chat", req, &resp); err != nil {
		return nil, err
	}

	var result ParseResult
	if err := json.Unmarshal([]byte(resp.Message.Content), &result); err != nil {
		return nil, fmt.Errorf("model output is not the expected JSON shape: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"themes":     result.Themes,
		"intent":     result.Intent,
		"confidence": result.Confidence,
	}).Debug("NLP parse result")

	return &result, nil
}

func (c *Client) makeRequest(ctx context.Context, method, endpoint string, payload interface{}, result interface{}) error {
	url := c.baseURL + endpoint

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.WithFields(logrus.Fields{
		"method": method,
		"url":    url,
	}).Debug("Making NLP API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(responseBody))
	}

	if result != nil && len(responseBody) > 0 {
		if err := json.Unmarshal(responseBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}
