package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tollgate/internal/state"
	"tollgate/internal/telegram"
	"tollgate/internal/webhook"
)

// serveCmd runs the full service: bot polling plus the Razorpay
// webhook listener.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot and the Razorpay webhook server",
	Long: `Starts long polling against the Telegram API and serves the
Razorpay webhook endpoint. This is the normal deployment mode when the
process is reachable over HTTP.

Use "worker" instead when no inbound HTTP is available.`,
	RunE: runServe,
}

// workerCmd runs the bot without the HTTP listener.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the bot without the webhook server",
	Long: `Starts long polling only. Razorpay payment links are not
confirmed automatically in this mode; the admin approves every payment
from the forwarded proof.`,
	RunE: runWorker,
}

func runServe(cmd *cobra.Command, args []string) error {
	return runBot(true)
}

func runWorker(cmd *cobra.Command, args []string) error {
	return runBot(false)
}

func runBot(withWebhook bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return fmt.Errorf("failed to connect to Telegram: %w", err)
	}
	logger.Info("connected to Telegram", zap.String("username", api.Self.UserName))

	bot := telegram.New(api, cfg, store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message", "callback_query", "chat_join_request"}
	updates := api.GetUpdatesChan(u)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer api.StopReceivingUpdates()
		if err := bot.Run(ctx, updates); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		store.AutoSave(ctx, state.DefaultAutosaveInterval)
		return nil
	})

	if withWebhook {
		srv := webhook.New(cfg, store, bot, logger)
		g.Go(func() error {
			return srv.Run(ctx)
		})
	}

	logger.Info("tollgate running",
		zap.Bool("webhook", withWebhook),
		zap.String("data_dir", cfg.DataDir))
	return g.Wait()
}
