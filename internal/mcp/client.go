package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DevRickLin/chatrecall/internal/service"
)

// Result is the reply produced by a recall
type Result struct {
	Reply   string `json:"reply"`
	Outcome string `json:"outcome"`
}

// Recaller runs summaries and questions against a conversation archive
type Recaller interface {
	Summarize(ctx context.Context, conversationID string, count int) (Result, error)
	Ask(ctx context.Context, conversationID, question string) (Result, error)
}

// Local runs recalls in-process through a dispatcher
type Local struct {
	Dispatcher *service.Dispatcher
}

// Summarize implements Recaller
func (l Local) Summarize(ctx context.Context, conversationID string, count int) (Result, error) {
	reply, outcome := l.Dispatcher.Summarize(ctx, conversationID, count)
	return Result{Reply: reply, Outcome: string(outcome)}, nil
}

// Ask implements Recaller
func (l Local) Ask(ctx context.Context, conversationID, question string) (Result, error) {
	reply, outcome := l.Dispatcher.Answer(ctx, conversationID, question)
	return Result{Reply: reply, Outcome: string(outcome)}, nil
}

// Client forwards recalls to a running chatrecall HTTP API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Summarize implements Recaller
func (c *Client) Summarize(ctx context.Context, conversationID string, count int) (Result, error) {
	var res Result
	err := c.post(ctx, conversationPath(conversationID, "summary"), map[string]int{"count": count}, &res)
	return res, err
}

// Ask implements Recaller
func (c *Client) Ask(ctx context.Context, conversationID, question string) (Result, error) {
	var res Result
	err := c.post(ctx, conversationPath(conversationID, "ask"), map[string]string{"question": question}, &res)
	return res, err
}

func conversationPath(conversationID, action string) string {
	return "/api/conversations/" + url.PathEscape(conversationID) + "/" + action
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP POST failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
