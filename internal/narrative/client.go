// Package narrative turns structured engine output into prose through an
// OpenAI-compatible chat-completions endpoint. Optional: without an API
// key the client is disabled and callers fall back to the raw insights
// string.
package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpClient "github.com/adilkhz/paysight/internal/platform/http"
	"github.com/adilkhz/paysight/models"
)

// Client calls a chat-completions API to summarize detection results.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// Options holds options for creating a narrative client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	RequestTimeout time.Duration
}

// NewClient creates a narrative client. An empty API key produces a
// disabled client.
func NewClient(opts Options) *Client {
	return &Client{
		apiKey:  opts.APIKey,
		baseURL: opts.BaseURL,
		model:   opts.Model,
		httpClient: httpClient.NewClient(httpClient.ClientOptions{
			Timeout: opts.RequestTimeout,
		}),
		logger: log.With().Str("component", "narrative_client").Logger(),
	}
}

// Enabled reports whether the client can make API calls.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Summarize asks the model for a short prose summary of a detection
// result. The top flagged transactions and the aggregate factors are sent,
// never the full snapshot.
func (c *Client) Summarize(ctx context.Context, result models.DetectionResult) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("narrative client is not configured")
	}

	top := result.SuspiciousTransactions
	if len(top) > 10 {
		top = top[:10]
	}
	payload, err := json.Marshal(map[string]any{
		"total_suspicious": result.TotalSuspicious,
		"risk_factors":     result.RiskFactors,
		"model_insights":   result.ModelInsights,
		"top_transactions": top,
	})
	if err != nil {
		return "", fmt.Errorf("marshal detection summary: %w", err)
	}

	prompt := "You are an analyst for a payment platform. Summarize the following " +
		"suspicious-transaction report in 3-4 plain sentences for a business audience. " +
		"Report JSON: " + string(payload)

	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat response contains no choices")
	}

	c.logger.Debug().Msg("narrative generated")
	return parsed.Choices[0].Message.Content, nil
}
