package notification

import (
	"context"
	"fmt"

	"hotelbooking/internal/config"
	"hotelbooking/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	logger *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, subject, text string) error {
	n.logger.Info().Str("subject", subject).Str("text", text).Msg("Notification")
	return nil
}

type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts notifications to a staff chat.
type TelegramNotifier struct {
	bot    telegramSender
	chatID int64
}

func NewTelegramNotifier(bot telegramSender, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatID: chatID}
}

func (n *TelegramNotifier) Notify(ctx context.Context, subject, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, subject+"\n\n"+text)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// New builds the notifier selected by cfg.Channel.
func New(cfg config.NotifierConfig, logger *zerolog.Logger) (domain.Notifier, error) {
	switch cfg.Channel {
	case "telegram":
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			return nil, fmt.Errorf("create telegram bot: %w", err)
		}
		bot.Debug = cfg.Telegram.Debug
		logger.Info().Str("account", bot.Self.UserName).Msg("Telegram notifier authorized")
		return NewTelegramNotifier(bot, cfg.Telegram.ChatID), nil
	case "log", "":
		return NewLogNotifier(logger), nil
	default:
		return nil, fmt.Errorf("unknown notifier channel %q", cfg.Channel)
	}
}
