package telegram

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/go-cmp/cmp"

	"rss_relay/internal/model"
)

type mockAPI struct {
	sent   []tgbotapi.Chattable
	failAt int
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.sent = append(m.sent, c)
	if m.failAt > 0 && len(m.sent) == m.failAt {
		return tgbotapi.Message{}, errors.New("Bad Request: chat not found")
	}
	return tgbotapi.Message{}, nil
}

func kinds(sent []tgbotapi.Chattable) []string {
	var out []string
	for _, c := range sent {
		switch v := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, "message:"+v.Text)
		case tgbotapi.PhotoConfig:
			out = append(out, "photo:"+v.File.(tgbotapi.FileBytes).Name)
		case tgbotapi.VideoConfig:
			out = append(out, "video:"+v.File.(tgbotapi.FileBytes).Name)
		case tgbotapi.DocumentConfig:
			out = append(out, "document:"+v.File.(tgbotapi.FileBytes).Name)
		default:
			out = append(out, "unknown")
		}
	}
	return out
}

func TestSend(t *testing.T) {
	api := &mockAPI{}
	s := &Sender{api: api, chatID: 42}

	post := model.Post{
		Text: "📰 hello",
		Attachments: []model.Attachment{
			{Filename: "media_1.png", Data: []byte("p")},
			{Filename: "media_2.MOV", Data: []byte("v")},
			{Filename: "media_3.gif", Data: []byte("g")},
			{Filename: "media_4.avi", Data: []byte("a")},
		},
	}
	if err := s.Send(context.Background(), post); err != nil {
		t.Fatalf("send: %v", err)
	}

	want := []string{
		"message:📰 hello",
		"photo:media_1.png",
		"video:media_2.MOV",
		"document:media_3.gif",
		"document:media_4.avi",
	}
	if diff := cmp.Diff(want, kinds(api.sent)); diff != "" {
		t.Errorf("sent mismatch (-want +got):\n%s", diff)
	}

	msg := api.sent[0].(tgbotapi.MessageConfig)
	if msg.ChatID != 42 {
		t.Errorf("chat id = %d, want 42", msg.ChatID)
	}
	if !msg.DisableWebPagePreview {
		t.Error("expected link previews disabled")
	}
}

func TestSendErrors(t *testing.T) {
	post := model.Post{Text: "x", Attachments: []model.Attachment{{Filename: "a.png"}, {Filename: "b.png"}}}

	tests := []struct {
		name     string
		failAt   int
		wantSent int
	}{
		{name: "message fails", failAt: 1, wantSent: 1},
		{name: "attachment fails", failAt: 2, wantSent: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockAPI{failAt: tt.failAt}
			s := &Sender{api: api, chatID: 1}
			if err := s.Send(context.Background(), post); err == nil {
				t.Fatal("expected error, got nil")
			}
			if len(api.sent) != tt.wantSent {
				t.Errorf("sent %d requests, want %d", len(api.sent), tt.wantSent)
			}
		})
	}
}

func TestSendCancelled(t *testing.T) {
	api := &mockAPI{}
	s := &Sender{api: api, chatID: 1}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Send(ctx, model.Post{Text: "x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if len(api.sent) != 0 {
		t.Errorf("expected no requests, got %d", len(api.sent))
	}
}
