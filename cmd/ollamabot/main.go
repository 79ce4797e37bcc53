package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/ctlst/telegramollamabot/internal/bot"
	"github.com/ctlst/telegramollamabot/internal/config"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "ollamabot",
	})

	cfg, err := config.LoadBot()
	if err != nil {
		logger.Fatal("loading configuration failed", "err", err)
	}

	b, err := bot.New(cfg, logger)
	if err != nil {
		logger.Fatal("starting bot failed", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("bot stopped", "err", err)
	}
	logger.Info("shutdown complete")
}
