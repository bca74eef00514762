// Package llm implements the score transport against OpenAI-compatible
// chat completion APIs.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"FeedScreener/internal/domain"
	"FeedScreener/internal/ports"
	"FeedScreener/internal/scoring"
)

// Client posts scoring prompts to whichever endpoint the dispatcher
// selected and maps transport and status failures onto the scoring
// error taxonomy.
type Client struct {
	httpClient *http.Client
}

var _ ports.ScoreTransport = (*Client)(nil)

// NewClient wires an HTTP client; a nil client gets a 30s timeout.
func NewClient(client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{httpClient: client}
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
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one prompt and returns the raw assistant text.
func (c *Client) Complete(ctx context.Context, endpoint domain.Endpoint, prompt string) (string, error) {
	if endpoint.URL == "" || endpoint.Model == "" {
		return "", fmt.Errorf("endpoint %s misconfigured", endpoint.Name)
	}

	body, err := json.Marshal(chatRequest{
		Model:    endpoint.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal scoring payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+endpoint.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", scoring.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("%w: %s", scoring.ErrThrottled, resp.Status)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &scoring.APIError{
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(detail)),
		}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode completion envelope: %v: %w", err, scoring.ErrResponseFormat)
	}

	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("completion has no content: %w", scoring.ErrResponseFormat)
	}

	return parsed.Choices[0].Message.Content, nil
}
