// Package telegram delivers posts to a Telegram chat through the Bot API.
package telegram

import (
	"context"
	"fmt"
	"path"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"rss_relay/internal/model"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Sender posts messages to a single chat.
type Sender struct {
	api    telegramAPI
	chatID int64
}

// New creates a Sender authenticated with token.
func New(token string, chatID int64) (*Sender, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &Sender{api: api, chatID: chatID}, nil
}

// Send posts the text with link previews disabled, followed by one media
// message per attachment.
func (s *Sender) Send(ctx context.Context, post model.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(s.chatID, post.Text)
	msg.DisableWebPagePreview = true
	if _, err := s.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	for _, a := range post.Attachments {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.api.Send(s.media(a)); err != nil {
			return fmt.Errorf("send %s: %w", a.Filename, err)
		}
	}
	return nil
}

func (s *Sender) media(a model.Attachment) tgbotapi.Chattable {
	file := tgbotapi.FileBytes{Name: a.Filename, Bytes: a.Data}
	switch strings.ToLower(strings.TrimPrefix(path.Ext(a.Filename), ".")) {
	case "jpg", "jpeg", "png", "webp":
		return tgbotapi.NewPhoto(s.chatID, file)
	case "mp4", "mov":
		return tgbotapi.NewVideo(s.chatID, file)
	default:
		return tgbotapi.NewDocument(s.chatID, file)
	}
}
