package notify

import (
	"context"
	"slices"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Sender delivers a Telegram message; *tgbotapi.BotAPI satisfies it
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Result summarises one broadcast
type Result struct {
	Total  int
	Sent   int
	Failed int
}

// Broadcaster sends the same message to many chats under a send rate limit
type Broadcaster struct {
	sender  Sender
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewBroadcaster creates a broadcaster sending at most perSec messages a second
func NewBroadcaster(sender Sender, perSec int) *Broadcaster {
	if perSec <= 0 {
		perSec = 20
	}
	return &Broadcaster{
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(perSec), 1),
		logger:  log.With().Str("component", "broadcast").Logger(),
	}
}

// Broadcast sends text to every distinct chat. A failed send is logged and
// counted; it does not stop the run. Cancelling ctx stops before the next send.
func (b *Broadcaster) Broadcast(ctx context.Context, chatIDs []int64, text string) (Result, error) {
	ids := slices.Clone(chatIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	res := Result{Total: len(ids)}
	for i, id := range ids {
		if err := b.limiter.Wait(ctx); err != nil {
			return res, err
		}

		msg := tgbotapi.NewMessage(id, text)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := b.sender.Send(msg); err != nil {
			b.logger.Warn().Err(err).Int64("chat_id", id).Msg("Failed to send message")
			res.Failed++
			continue
		}
		res.Sent++
		b.logger.Debug().Int64("chat_id", id).Int("n", i+1).Int("total", len(ids)).Msg("Message sent")
	}

	b.logger.Info().Int("total", res.Total).Int("sent", res.Sent).Int("failed", res.Failed).Msg("Broadcast completed")
	return res, nil
}
