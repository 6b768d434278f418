package cmd

import (
	"context"
	"log"

	"github.com/example/court-booker/internal/booking"
	"github.com/example/court-booker/internal/config"
	"github.com/example/court-booker/internal/notify"
)

// sendReport delivers the run summary when a chat is configured. Delivery
// problems never change the run's exit status.
func sendReport(ctx context.Context, cfg config.Config, rep booking.Report, logger *log.Logger) {
	var n notify.Notifier = notify.Nop{}
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, logger)
		if err != nil {
			logger.Printf("book: %v", err)
			return
		}
		n = tg
	}
	if err := n.Notify(ctx, rep); err != nil {
		logger.Printf("book: %v", err)
	}
}
