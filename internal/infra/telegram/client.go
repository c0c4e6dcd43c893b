// Package telegram is a minimal Telegram Bot API client
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/DevRickLin/chatrecall/internal/biz/domain"
)

// DefaultAPIBase is the public Bot API endpoint
const DefaultAPIBase = "https://api.telegram.org"

// maxMessageRunes is the Bot API limit for a single text message
const maxMessageRunes = 4096

// Client is a minimal Telegram Bot API client
type Client struct {
	apiBase    string
	httpClient *http.Client
}

// NewClient creates a client for the bot identified by token.
// requestTimeout must exceed the long-poll timeout passed to GetUpdates.
func NewClient(apiBase, token string, requestTimeout time.Duration) *Client {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Client{
		apiBase: strings.TrimRight(apiBase, "/") + "/bot" + token,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Response is the generic Telegram API response wrapper
type Response struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Update is an incoming update; only plain messages are decoded
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message is a Telegram message
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text,omitempty"`
}

// User is a Telegram user or bot
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// DisplayName returns the user's full name, falling back to the username
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return name
}

// Chat is a Telegram chat
type Chat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"` // private, group, supergroup, channel
	Title string `json:"title,omitempty"`
}

// ToEvent converts a text message update into a transport-neutral event.
// Updates without text and messages sent by bots are skipped.
func (u *Update) ToEvent() (*domain.InboundEvent, bool) {
	m := u.Message
	if m == nil || m.Text == "" {
		return nil, false
	}
	if m.From != nil && m.From.IsBot {
		return nil, false
	}

	chatType := domain.ChatTypePrivate
	if m.Chat.Type == "group" || m.Chat.Type == "supergroup" {
		chatType = domain.ChatTypeGroup
	}

	return &domain.InboundEvent{
		ConversationID: strconv.FormatInt(m.Chat.ID, 10),
		ChatType:       chatType,
		MessageID:      strconv.FormatInt(m.Chat.ID, 10) + ":" + strconv.FormatInt(m.MessageID, 10),
		Author:         m.From.DisplayName(),
		Text:           m.Text,
		Timestamp:      time.Unix(m.Date, 0),
	}, true
}

// DecodeUpdate parses a single update, as delivered to a webhook
func DecodeUpdate(r io.Reader) (*Update, error) {
	var u Update
	if err := json.NewDecoder(r).Decode(&u); err != nil {
		return nil, fmt.Errorf("failed to parse update: %w", err)
	}
	return &u, nil
}

// GetUpdates calls the getUpdates API
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	params := url.Values{}
	params.Set("offset", strconv.FormatInt(offset, 10))
	params.Set("timeout", strconv.Itoa(timeout))
	params.Set("allowed_updates", `["message"]`)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/getUpdates?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	result, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram getUpdates: %w", err)
	}

	var updates []Update
	if err := json.Unmarshal(result, &updates); err != nil {
		return nil, fmt.Errorf("failed to parse getUpdates result: %w", err)
	}
	return updates, nil
}

// SendMessage sends a text message, splitting it when it exceeds the API limit
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	for _, chunk := range splitRunes(text, maxMessageRunes) {
		payload, err := json.Marshal(map[string]any{"chat_id": chatID, "text": chunk})
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/sendMessage", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if _, err := c.do(req); err != nil {
			return fmt.Errorf("telegram sendMessage: %w", err)
		}
	}
	return nil
}

// SendText implements the reply sender for string conversation IDs
func (c *Client) SendText(ctx context.Context, conversationID, text string) error {
	chatID, err := strconv.ParseInt(conversationID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", conversationID, err)
	}
	return c.SendMessage(ctx, chatID, text)
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var tgResp Response
	if err := json.Unmarshal(body, &tgResp); err != nil {
		return nil, fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
	}
	if !tgResp.OK {
		return nil, fmt.Errorf("api error %d: %s", tgResp.ErrorCode, tgResp.Description)
	}
	return tgResp.Result, nil
}

func splitRunes(s string, size int) []string {
	runes := []rune(s)
	if len(runes) <= size {
		return []string{s}
	}
	var chunks []string
	for len(runes) > 0 {
		n := min(size, len(runes))
		chunks = append(chunks, string(runes[:n]))
		runes = runes[n:]
	}
	return chunks
}
