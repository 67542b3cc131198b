package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/AgriPredictor/internal/app"
	"github.com/Alias1177/AgriPredictor/internal/config"
	"github.com/Alias1177/AgriPredictor/internal/notify"
	"github.com/Alias1177/AgriPredictor/internal/platform/logging"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "print the digest without sending it")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	digest := notify.FormatDigest(a.Insights.MarketInsights(ctx), a.News.Latest(ctx))
	if *dryRun {
		fmt.Println(digest)
		return
	}

	if cfg.Telegram.BotToken == "" {
		log.Fatal().Msg("TELEGRAM_BOT_TOKEN not set in environment")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}

	subscribers, err := a.Store.ListSubscribers(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get subscribers")
	}
	chatIDs := append(subscribers, cfg.Telegram.ChatIDs...)
	log.Info().Int("subscribers", len(subscribers)).Int("configured", len(cfg.Telegram.ChatIDs)).Msg("Starting broadcast")

	res, err := notify.NewBroadcaster(bot, cfg.Telegram.SendPerSec).Broadcast(ctx, chatIDs, digest)
	if err != nil {
		log.Error().Err(err).Msg("Broadcast interrupted")
	}

	fmt.Printf("Broadcast completed: %d sent, %d failed out of %d chats\n", res.Sent, res.Failed, res.Total)
}
