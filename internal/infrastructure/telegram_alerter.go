package infrastructure

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// TelegramAlerter pushes operator alerts (session drops, pass summaries) to a
// fixed Telegram chat. Delivery failures are logged and swallowed; alerting
// must never affect dispatch outcomes.
type TelegramAlerter struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *logrus.Logger
}

func NewTelegramAlerter(token, chatID string, log *logrus.Logger) (*TelegramAlerter, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid alert chat id: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}

	return &TelegramAlerter{bot: bot, chatID: id, log: log}, nil
}

func (t *TelegramAlerter) Notify(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		t.log.Warnf("telegram alert failed: %v", err)
	}
}
