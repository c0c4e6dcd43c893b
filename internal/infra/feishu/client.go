// Package feishu connects chatrecall to Feishu/Lark over the long-lived
// event websocket and sends replies through the IM API.
package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
	"github.com/rs/zerolog"

	"github.com/DevRickLin/chatrecall/internal/biz/domain"
)

// memberCacheTTL bounds how long a chat's member names are reused
const memberCacheTTL = 10 * time.Minute

// EventHandler receives every accepted inbound message
type EventHandler func(ctx context.Context, ev *domain.InboundEvent)

// ChatMember is a member of a Feishu chat
type ChatMember struct {
	OpenID string
	Name   string
}

type memberCache struct {
	names   map[string]string // open_id -> name
	fetched time.Time
}

// Client is the Feishu API client
type Client struct {
	appID     string
	appSecret string
	larkCli   *lark.Client
	onEvent   EventHandler
	log       zerolog.Logger

	membersMu sync.Mutex
	members   map[string]*memberCache // chat_id -> names
}

// NewClient creates a new Feishu client
func NewClient(appID, appSecret string, log zerolog.Logger) *Client {
	return &Client{
		appID:     appID,
		appSecret: appSecret,
		larkCli:   lark.NewClient(appID, appSecret),
		log:       log,
		members:   make(map[string]*memberCache),
	}
}

// OnEvent sets the inbound event handler
func (c *Client) OnEvent(handler EventHandler) {
	c.onEvent = handler
}

// Start connects to Feishu via WebSocket and blocks until ctx is done
func (c *Client) Start(ctx context.Context) error {
	// The SDK acks only after the callback returns, so handling runs detached.
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(_ context.Context, event *larkim.P2MessageReceiveV1) error {
			go c.handleMessage(ctx, event)
			return nil
		})

	wsCli := larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	c.log.Info().Msg("starting websocket connection")
	return wsCli.Start(ctx)
}

func (c *Client) handleMessage(ctx context.Context, event *larkim.P2MessageReceiveV1) {
	if event == nil || event.Event == nil {
		return
	}
	ev, ok := ToEvent(event.Event.Message, event.Event.Sender)
	if !ok {
		return
	}

	if ev.IsGroup() && ev.Author != "" {
		if name := c.memberName(ctx, ev.ConversationID, ev.Author); name != "" {
			ev.Author = name
		}
	}

	c.log.Debug().
		Str("chat_id", ev.ConversationID).
		Str("message_id", ev.MessageID).
		Str("chat_type", string(ev.ChatType)).
		Msg("message received")

	if c.onEvent != nil {
		c.onEvent(ctx, ev)
	}
}

// ToEvent converts a Feishu message event into an InboundEvent.
// Author is the sender's open_id; callers may resolve it to a display name.
// Messages sent by apps and message types without text are rejected.
func ToEvent(msg *larkim.EventMessage, sender *larkim.EventSender) (*domain.InboundEvent, bool) {
	if msg == nil || msg.ChatId == nil || msg.MessageId == nil || msg.Content == nil {
		return nil, false
	}
	if sender != nil && sender.SenderType != nil && *sender.SenderType == "app" {
		return nil, false
	}

	mentionMap := make(map[string]string)
	for _, mention := range msg.Mentions {
		if mention != nil && mention.Key != nil && mention.Name != nil {
			mentionMap[*mention.Key] = *mention.Name
		}
	}

	var text string
	switch deref(msg.MessageType) {
	case "text":
		text = parseTextContent(*msg.Content, mentionMap)
	case "post":
		text = parsePostContent(*msg.Content, mentionMap)
	default:
		return nil, false
	}

	ev := &domain.InboundEvent{
		ConversationID: *msg.ChatId,
		ChatType:       domain.ChatTypePrivate,
		MessageID:      *msg.MessageId,
		Text:           text,
	}
	if deref(msg.ChatType) == "group" {
		ev.ChatType = domain.ChatTypeGroup
	}
	if sender != nil && sender.SenderId != nil {
		ev.Author = deref(sender.SenderId.OpenId)
	}
	if ms, err := strconv.ParseInt(deref(msg.CreateTime), 10, 64); err == nil {
		ev.Timestamp = time.UnixMilli(ms)
	}
	return ev, true
}

// parseTextContent extracts text from a text message
// and replaces mention placeholders (@_user_1) with real names
func parseTextContent(content string, mentionMap map[string]string) string {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}
	return replaceMentions(parsed.Text, mentionMap)
}

// parsePostContent flattens a rich text message to plain lines
func parsePostContent(content string, mentionMap map[string]string) string {
	var parsed struct {
		Title   string `json:"title"`
		Content [][]struct {
			Tag    string `json:"tag"`
			Text   string `json:"text,omitempty"`
			UserID string `json:"user_id,omitempty"`
		} `json:"content"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}

	var lines []string
	if parsed.Title != "" {
		lines = append(lines, parsed.Title)
	}
	for _, row := range parsed.Content {
		var b strings.Builder
		for _, elem := range row {
			switch elem.Tag {
			case "text", "a":
				b.WriteString(elem.Text)
			case "at":
				if elem.UserID == "" {
					continue
				}
				if name, ok := mentionMap[elem.UserID]; ok {
					b.WriteString("@" + name)
				} else {
					b.WriteString("@" + elem.UserID)
				}
			}
		}
		if b.Len() > 0 {
			lines = append(lines, b.String())
		}
	}
	return replaceMentions(strings.Join(lines, "\n"), mentionMap)
}

// replaceMentions replaces mention placeholders (@_user_1, @_user_2, etc.) with real names
func replaceMentions(text string, mentionMap map[string]string) string {
	if len(mentionMap) == 0 {
		return text
	}
	keys := make([]string, 0, len(mentionMap))
	for key := range mentionMap {
		keys = append(keys, key)
	}
	// longest first so @_user_10 is not consumed as @_user_1
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	pairs := make([]string, 0, len(keys)*2)
	for _, key := range keys {
		pairs = append(pairs, key, "@"+mentionMap[key])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// SendText sends a plain text message to a chat
func (c *Client) SendText(ctx context.Context, conversationID, text string) error {
	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal content: %w", err)
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(conversationID).
			MsgType(larkim.MsgTypeText).
			Content(string(content)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("send message failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("send message error: %s", resp.Msg)
	}
	return nil
}

// GetChatMembers retrieves all members of a chat, following pagination
func (c *Client) GetChatMembers(ctx context.Context, chatID string) ([]ChatMember, error) {
	var members []ChatMember
	var pageToken string

	for {
		reqBuilder := larkim.NewGetChatMembersReqBuilder().
			MemberIdType("open_id").
			ChatId(chatID).
			PageSize(100)
		if pageToken != "" {
			reqBuilder = reqBuilder.PageToken(pageToken)
		}

		resp, err := c.larkCli.Im.ChatMembers.Get(ctx, reqBuilder.Build())
		if err != nil {
			return nil, fmt.Errorf("get chat members failed: %w", err)
		}
		if !resp.Success() {
			return nil, fmt.Errorf("get chat members error: %s", resp.Msg)
		}

		for _, item := range resp.Data.Items {
			members = append(members, ChatMember{
				OpenID: deref(item.MemberId),
				Name:   deref(item.Name),
			})
		}

		if resp.Data.PageToken == nil || *resp.Data.PageToken == "" {
			break
		}
		pageToken = *resp.Data.PageToken
	}
	return members, nil
}

// memberName resolves an open_id to a display name, refreshing the
// chat's member list once the cached copy is stale
func (c *Client) memberName(ctx context.Context, chatID, openID string) string {
	c.membersMu.Lock()
	cached := c.members[chatID]
	if cached != nil && time.Since(cached.fetched) < memberCacheTTL {
		name := cached.names[openID]
		c.membersMu.Unlock()
		return name
	}
	c.membersMu.Unlock()

	members, err := c.GetChatMembers(ctx, chatID)
	if err != nil {
		c.log.Warn().Err(err).Str("chat_id", chatID).Msg("member lookup failed")
		return ""
	}

	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.OpenID] = m.Name
	}
	c.membersMu.Lock()
	c.members[chatID] = &memberCache{names: names, fetched: time.Now()}
	c.membersMu.Unlock()
	return names[openID]
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
