// Package anthropic implements the report-generation client against the
// Anthropic Messages API over plain net/http.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"audit-backend/internal/llm"
	"audit-backend/internal/shared/telemetry"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	BaseURL     string
	Timeout     time.Duration
}

// Client talks to the Anthropic Messages API.
type Client struct {
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	baseURL     string
	httpClient  *http.Client
}

// New builds a Client from opts, reading ANTHROPIC_API_KEY when no key is
// supplied explicitly.
func New(opts Options) (*Client, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: missing API key")
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		apiKey:      apiKey,
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateReport sends the combined document text with the diagnostic system
// prompt and returns the generated report with usage and cost.
func (c *Client) GenerateReport(ctx context.Context, combinedText string) (llm.Report, error) {
	reqBody := messagesRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		System:      llm.FullReportPrompt(),
		Messages: []message{
			{Role: "user", Content: combinedText},
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return llm.Report{}, fmt.Errorf("anthropic: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return llm.Report{}, fmt.Errorf("anthropic: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return llm.Report{}, fmt.Errorf("anthropic: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return llm.Report{}, fmt.Errorf("anthropic: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		_ = json.Unmarshal(body, &errResp)
		return llm.Report{}, &llm.APIError{
			StatusCode: resp.StatusCode,
			Code:       errResp.Error.Type,
			Message:    errResp.Error.Message,
		}
	}

	var parsed messagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return llm.Report{}, fmt.Errorf("anthropic: decode response: %w", err)
	}

	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return llm.Report{}, fmt.Errorf("anthropic: response contained no text content")
	}

	usage := llm.Usage{
		InputTokens:  parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
	}
	cost := llm.EstimateCost(c.model, usage)

	telemetry.Info("llm.generate.complete", map[string]any{
		"model":      c.model,
		"durationMs": time.Since(started).Milliseconds(),
		"inputTok":   usage.InputTokens,
		"outputTok":  usage.OutputTokens,
		"costUsd":    cost.TotalUSD,
		"stopReason": parsed.StopReason,
	})

	return llm.Report{Text: text, Usage: usage, Cost: cost}, nil
}
