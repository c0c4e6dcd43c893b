package feishu

import (
	"testing"
	"time"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"

	"github.com/DevRickLin/chatrecall/internal/biz/domain"
)

func strPtr(s string) *string { return &s }

func textMessage(chatType, content string) *larkim.EventMessage {
	return &larkim.EventMessage{
		MessageId:   strPtr("om_1"),
		ChatId:      strPtr("oc_group"),
		ChatType:    strPtr(chatType),
		MessageType: strPtr("text"),
		Content:     strPtr(content),
		CreateTime:  strPtr("1700000000123"),
	}
}

func userSender(openID string) *larkim.EventSender {
	return &larkim.EventSender{
		SenderType: strPtr("user"),
		SenderId:   &larkim.UserId{OpenId: strPtr(openID)},
	}
}

func TestToEvent_GroupText(t *testing.T) {
	msg := textMessage("group", `{"text":"@_user_1 when is the exam?"}`)
	msg.Mentions = []*larkim.MentionEvent{{Key: strPtr("@_user_1"), Name: strPtr("Anna")}}

	ev, ok := ToEvent(msg, userSender("ou_pau"))
	if !ok {
		t.Fatal("Expected event to be accepted")
	}
	if ev.ChatType != domain.ChatTypeGroup {
		t.Errorf("Expected group chat, got %s", ev.ChatType)
	}
	if ev.ConversationID != "oc_group" || ev.MessageID != "om_1" {
		t.Errorf("Unexpected ids %q %q", ev.ConversationID, ev.MessageID)
	}
	if ev.Author != "ou_pau" {
		t.Errorf("Expected open_id author, got %q", ev.Author)
	}
	if ev.Text != "@Anna when is the exam?" {
		t.Errorf("Unexpected text %q", ev.Text)
	}
	if !ev.Timestamp.Equal(time.UnixMilli(1700000000123)) {
		t.Errorf("Unexpected timestamp %v", ev.Timestamp)
	}
}

func TestToEvent_PrivateChat(t *testing.T) {
	ev, ok := ToEvent(textMessage("p2p", `{"text":"/summary"}`), userSender("ou_a"))
	if !ok {
		t.Fatal("Expected event to be accepted")
	}
	if ev.ChatType != domain.ChatTypePrivate {
		t.Errorf("Expected private chat, got %s", ev.ChatType)
	}
}

func TestToEvent_SkipsAppSender(t *testing.T) {
	sender := &larkim.EventSender{SenderType: strPtr("app")}
	if _, ok := ToEvent(textMessage("group", `{"text":"hi"}`), sender); ok {
		t.Error("Expected app messages to be skipped")
	}
}

func TestToEvent_SkipsUnsupportedTypes(t *testing.T) {
	msg := textMessage("group", `{"image_key":"img_1"}`)
	msg.MessageType = strPtr("image")
	if _, ok := ToEvent(msg, userSender("ou_a")); ok {
		t.Error("Expected image messages to be skipped")
	}
	if _, ok := ToEvent(nil, nil); ok {
		t.Error("Expected nil message to be skipped")
	}
}

func TestToEvent_BadCreateTime(t *testing.T) {
	msg := textMessage("group", `{"text":"hi"}`)
	msg.CreateTime = strPtr("not-a-number")
	ev, ok := ToEvent(msg, nil)
	if !ok {
		t.Fatal("Expected event to be accepted")
	}
	if !ev.Timestamp.IsZero() {
		t.Errorf("Expected zero timestamp, got %v", ev.Timestamp)
	}
	if ev.Author != "" {
		t.Errorf("Expected empty author, got %q", ev.Author)
	}
}

func TestParsePostContent(t *testing.T) {
	content := `{"title":"Exam","content":[[{"tag":"text","text":"moved to "},{"tag":"at","user_id":"@_user_1"}],[{"tag":"img","image_key":"k"}],[{"tag":"a","text":"link","href":"https://x"}]]}`
	got := parsePostContent(content, map[string]string{"@_user_1": "Anna"})
	want := "Exam\nmoved to @Anna\nlink"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestParseContent_InvalidJSON(t *testing.T) {
	if got := parseTextContent("{", nil); got != "" {
		t.Errorf("Expected empty text, got %q", got)
	}
	if got := parsePostContent("{", nil); got != "" {
		t.Errorf("Expected empty text, got %q", got)
	}
}

func TestReplaceMentions_LongestKeyFirst(t *testing.T) {
	mentions := map[string]string{"@_user_1": "Anna", "@_user_10": "Joan"}
	got := replaceMentions("@_user_10 and @_user_1", mentions)
	if got != "@Joan and @Anna" {
		t.Errorf("Unexpected replacement %q", got)
	}
	if got := replaceMentions("plain", nil); got != "plain" {
		t.Errorf("Expected text unchanged, got %q", got)
	}
}
