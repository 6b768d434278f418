// Package notify tells someone how a run went.
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/court-booker/internal/booking"
)

type Notifier interface {
	Notify(ctx context.Context, rep booking.Report) error
}

// Nop drops every report.
type Nop struct{}

func (Nop) Notify(context.Context, booking.Report) error { return nil }

type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *log.Logger
}

// NewTelegram checks the token against the Bot API before returning.
func NewTelegram(token string, chatID int64, logger *log.Logger) (*Telegram, error) {
	return newTelegram(token, tgbotapi.APIEndpoint, chatID, logger)
}

func newTelegram(token, endpoint string, chatID int64, logger *log.Logger) (*Telegram, error) {
	if logger == nil {
		logger = log.Default()
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("notify: telegram: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID, log: logger}, nil
}

func (t *Telegram) Notify(ctx context.Context, rep booking.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, Message(rep))); err != nil {
		return fmt.Errorf("notify: telegram: %w", err)
	}
	t.log.Printf("notify: sent run %s to chat %d", rep.RunID, t.chatID)
	return nil
}

// Message is the plain-text run summary sent to chat.
func Message(rep booking.Report) string {
	var b strings.Builder
	if out, ok := rep.Booked(); ok {
		fmt.Fprintf(&b, "🎾 Booked %s for %s\n\n", out.Resource, rep.TargetDate)
	} else {
		fmt.Fprintf(&b, "⚠️ No booking for %s (%s)\n\n", rep.TargetDate, rep.Status)
	}
	b.WriteString(rep.Summary())
	return b.String()
}
