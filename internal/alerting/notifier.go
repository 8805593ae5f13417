package alerting

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	telebot "gopkg.in/telebot.v3"
)

// Notifier delivers a rendered alert to one subscriber. Delivery is
// best-effort: implementations may degrade to a fallback channel, and the
// caller swallows the final error after logging it — de-duplication state
// advances either way so an undeliverable user is not re-attempted forever.
type Notifier interface {
	Notify(ctx context.Context, userID string, channelID int64, text string) error
}

// Sender is the subset of the telebot API the notifier needs.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// TelegramNotifier pushes alerts through the bot. It prefers the chat the
// subscriber last issued a rate command from, prefixed with a mention; if
// that send is rejected it falls back to a direct message, and if the direct
// message fails too the alert is dropped.
type TelegramNotifier struct {
	sender Sender
	logger zerolog.Logger
}

// NewTelegramNotifier constructs a notifier on top of an existing bot client.
func NewTelegramNotifier(sender Sender, logger zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		sender: sender,
		logger: logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify delivers the text, degrading from remembered chat to direct message.
func (n *TelegramNotifier) Notify(ctx context.Context, userID string, channelID int64, text string) error {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("parse user id %q: %w", userID, err)
	}

	if channelID != 0 {
		mention := fmt.Sprintf("[subscriber](tg://user?id=%d)\n", id)
		_, sendErr := n.sender.Send(&telebot.Chat{ID: channelID}, mention+text, telebot.ModeMarkdown)
		if sendErr == nil {
			return nil
		}
		n.logger.Warn().Err(sendErr).
			Int64("chat_id", channelID).
			Str("user_id", userID).
			Msg("chat delivery failed; falling back to direct message")
	}

	if _, err := n.sender.Send(&telebot.User{ID: id}, text); err != nil {
		return fmt.Errorf("direct message: %w", err)
	}
	return nil
}

var _ Notifier = (*TelegramNotifier)(nil)
