package notify

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/AgriPredictor/models"
)

const historySize = 5

const helpText = `Agricultural price predictor

/predict <commodity> <market> - price outlook, e.g. /predict maize Nairobi
/history - recent predictions
/subscribe - receive the market digest
/unsubscribe - stop the digest`

// Predictor creates and lists predictions
type Predictor interface {
	Create(ctx context.Context, req models.PredictionRequest) (*models.Prediction, error)
	Recent(ctx context.Context, limit int) ([]models.Prediction, error)
}

// Bot answers chat commands
type Bot struct {
	sender      Sender
	predictions Predictor
	subscribers models.SubscriberStore
	logger      zerolog.Logger
}

// NewBot creates a command handler
func NewBot(sender Sender, predictions Predictor, subscribers models.SubscriberStore) *Bot {
	return &Bot{
		sender:      sender,
		predictions: predictions,
		subscribers: subscribers,
		logger:      log.With().Str("component", "tgbot").Logger(),
	}
}

// Run handles updates until the channel closes or ctx is cancelled
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil {
				b.HandleMessage(ctx, update.Message)
			}
		}
	}
}

// HandleMessage answers a single message
func (b *Bot) HandleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if !message.IsCommand() {
		b.reply(chatID, helpText, false)
		return
	}

	switch message.Command() {
	case "predict":
		b.predict(ctx, chatID, message.CommandArguments())
	case "history":
		list, err := b.predictions.Recent(ctx, historySize)
		if err != nil {
			b.logger.Error().Err(err).Msg("Listing predictions failed")
			b.reply(chatID, "Sorry, there was an error. Please try again later.", false)
			return
		}
		b.reply(chatID, FormatHistory(list), true)
	case "subscribe":
		if err := b.subscribers.AddSubscriber(ctx, chatID); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Subscribe failed")
			b.reply(chatID, "Sorry, there was an error. Please try again later.", false)
			return
		}
		b.reply(chatID, "✅ Subscribed to the market digest.", false)
	case "unsubscribe":
		if err := b.subscribers.RemoveSubscriber(ctx, chatID); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Unsubscribe failed")
			b.reply(chatID, "Sorry, there was an error. Please try again later.", false)
			return
		}
		b.reply(chatID, "You will no longer receive the market digest.", false)
	default:
		b.reply(chatID, helpText, false)
	}
}

// predict expects "<commodity> <market>"; a market may span several words
func (b *Bot) predict(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		b.reply(chatID, "Usage: /predict <commodity> <market>", false)
		return
	}
	req := models.PredictionRequest{Commodity: fields[0], Market: strings.Join(fields[1:], " ")}

	p, err := b.predictions.Create(ctx, req)
	switch {
	case errors.Is(err, models.ErrInvalidRequest):
		b.reply(chatID, "Usage: /predict <commodity> <market>", false)
	case err != nil:
		b.logger.Error().Err(err).Str("commodity", req.Commodity).Msg("Prediction failed")
		b.reply(chatID, "Sorry, the prediction failed. Please try again later.", false)
	default:
		b.reply(chatID, FormatPrediction(p), true)
	}
}

func (b *Bot) reply(chatID int64, text string, markdown bool) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send reply")
	}
}
