package data

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestAnthropicRepo_Complete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "test-key" {
			t.Errorf("Expected api key header, got %q", got)
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-haiku-20240307",
			"content": [{"type": "text", "text": "The exam is on Monday."}],
			"stop_reason": "end_turn",
			"stop_sequence": null,
			"usage": {"input_tokens": 12, "output_tokens": 7}
		}`)
	}))
	defer srv.Close()

	gw := NewAnthropicRepo(AnthropicConfig{APIKey: "test-key", BaseURL: srv.URL + "/", Timeout: 5 * time.Second})
	text, err := gw.Complete(context.Background(), "When is the exam?", 500)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if text != "The exam is on Monday." {
		t.Errorf("Unexpected text %q", text)
	}
	if body["model"] != DefaultAnthropicModel {
		t.Errorf("Expected default model, got %v", body["model"])
	}
	if body["max_tokens"] != float64(500) {
		t.Errorf("Expected max_tokens 500, got %v", body["max_tokens"])
	}
	if gw.Provider() != "anthropic" {
		t.Errorf("Unexpected provider %s", gw.Provider())
	}
}

func TestAnthropicRepo_NoRetryOnFailure(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"api_error","message":"boom"}}`)
	}))
	defer srv.Close()

	gw := NewAnthropicRepo(AnthropicConfig{APIKey: "k", BaseURL: srv.URL + "/", Timeout: 5 * time.Second})
	if _, err := gw.Complete(context.Background(), "hi", 10); err == nil {
		t.Fatal("Expected error")
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("Expected exactly one attempt, got %d", got)
	}
}

func TestOpenAIRepo_Complete(t *testing.T) {
	var req struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "moonshot-v1-8k",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Summary text"}, "finish_reason": "stop"}]
		}`)
	}))
	defer srv.Close()

	gw := NewOpenAIRepo(OpenAIConfig{APIKey: "k", Model: "moonshot-v1-8k", BaseURL: srv.URL + "/v1"})
	text, err := gw.Complete(context.Background(), "Summarize", 300)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if text != "Summary text" {
		t.Errorf("Unexpected text %q", text)
	}
	if req.Model != "moonshot-v1-8k" || req.MaxTokens != 300 {
		t.Errorf("Unexpected request %+v", req)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" || req.Messages[0].Content != "Summarize" {
		t.Errorf("Unexpected messages %+v", req.Messages)
	}
}

func TestOpenAIRepo_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`)
	}))
	defer srv.Close()

	gw := NewOpenAIRepo(OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/v1"})
	if _, err := gw.Complete(context.Background(), "hi", 10); err == nil {
		t.Error("Expected error for empty choices")
	}
}
