// README: Telegram sink forwarding notifications to a coordination chat.
package notification

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramSender is the part of *tgbotapi.BotAPI the sink uses.
type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramSink struct {
	bot         telegramSender
	chatID      int64
	minSeverity Severity
}

func NewTelegramSink(bot telegramSender, chatID int64, minSeverity Severity) *TelegramSink {
	if _, ok := severityRank[minSeverity]; !ok {
		minSeverity = SeverityInfo
	}
	return &TelegramSink{bot: bot, chatID: chatID, minSeverity: minSeverity}
}

func (s *TelegramSink) Name() string { return "telegram" }

func (s *TelegramSink) Deliver(ctx context.Context, n Notification) error {
	if !n.Severity.AtLeast(s.minSeverity) {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(s.chatID, FormatText(n))
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

var severityIcons = map[Severity]string{
	SeverityInfo:    "ℹ️",
	SeveritySuccess: "✅",
	SeverityWarning: "⚠️",
	SeverityError:   "❌",
}

// FormatText renders a plain-text chat message.
func FormatText(n Notification) string {
	return fmt.Sprintf("%s %s\n%s", severityIcons[n.Severity], n.Title, n.Message)
}
