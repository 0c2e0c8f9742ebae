package notify

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram sends notifications to a single chat through a bot.
type Telegram struct {
	Bot    *tgbotapi.BotAPI
	ChatID int64
}

func NewTelegram(token, chatID string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return newTelegram(bot, chatID)
}

// NewTelegramWithEndpoint talks to a Bot API server other than
// api.telegram.org. endpoint has the form "https://host/bot%s/%s".
func NewTelegramWithEndpoint(token, chatID, endpoint string, client tgbotapi.HTTPClient) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	return newTelegram(bot, chatID)
}

func newTelegram(bot *tgbotapi.BotAPI, chatID string) (*Telegram, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil || id == 0 {
		return nil, fmt.Errorf("telegram: invalid chat ID: %s", chatID)
	}
	return &Telegram{Bot: bot, ChatID: id}, nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Notify(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// Plain text: the body is the site's message and must arrive verbatim.
	msg := tgbotapi.NewMessage(t.ChatID, n.Subject+"\n\n"+n.Body)
	if _, err := t.Bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
