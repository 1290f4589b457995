package alert

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramNotifier struct {
	api    messageSender
	chatID int64
}

func NewTelegramNotifier(botToken string, chatID int64) (*TelegramNotifier, error) {
	if chatID == 0 {
		return nil, errors.New("telegram chat id is zero")
	}
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	return &TelegramNotifier{api: api, chatID: chatID}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, ev.Text())
	msg.DisableWebPagePreview = true
	_, err := n.api.Send(msg)
	return err
}
