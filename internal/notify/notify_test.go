package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Alias1177/AgriPredictor/internal/database"
	"github.com/Alias1177/AgriPredictor/internal/insights"
	"github.com/Alias1177/AgriPredictor/models"
)

type recordingSender struct {
	mu       sync.Mutex
	messages []tgbotapi.MessageConfig
	failFor  map[int64]bool
}

func (s *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[msg.ChatID] {
		return tgbotapi.Message{}, errors.New("Forbidden: bot was blocked by the user")
	}
	s.messages = append(s.messages, msg)
	return tgbotapi.Message{}, nil
}

func (s *recordingSender) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	if len(s.messages) == 0 {
		t.Fatal("no message sent")
	}
	return s.messages[len(s.messages)-1]
}

func samplePrediction() *models.Prediction {
	return &models.Prediction{
		Commodity:              "maize",
		Market:                 "Nairobi",
		CurrentPrice:           80,
		PredictedPrice:         80.68,
		PredictedChangePercent: 0.85,
		Trend:                  models.TrendStable,
		ConfidenceScore:        0.58,
		Reasoning:              "Maize prices are stable with balanced supply_demand",
		DataSources:            models.DataSources{Price: "Kenyan market data"},
		CreatedAt:              time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestFormatPrediction(t *testing.T) {
	got := FormatPrediction(samplePrediction())

	for _, want := range []string{"*maize in Nairobi*", "Current: 80.00 KES", "(+0.85%)", "confidence 58%", `supply\_demand`, "Kenyan market data"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestFormatHistory(t *testing.T) {
	if got := FormatHistory(nil); !strings.Contains(got, "No predictions yet") {
		t.Errorf("empty history: %q", got)
	}
	got := FormatHistory([]models.Prediction{*samplePrediction()})
	if !strings.Contains(got, "maize/Nairobi: 80.00 → 80.68 KES (Mar 1 09:30)") {
		t.Errorf("history: %q", got)
	}
}

func TestFormatDigest(t *testing.T) {
	got := FormatDigest(
		[]insights.Insight{{Commodity: "coffee", Market: "Nakuru", PredictedPrice: "245.50", Trend: "up", ConfidenceScore: 0.72}},
		[]insights.NewsItem{{Title: "Tea auction sees record bids"}},
	)
	for _, want := range []string{"*coffee* (Nakuru): 245.50 KES", "confidence 72%", "Headlines", "• Tea auction sees record bids"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(FormatDigest(nil, nil), "Headlines") {
		t.Error("headlines section should be omitted without news")
	}
}

func TestBroadcast(t *testing.T) {
	sender := &recordingSender{failFor: map[int64]bool{3: true}}
	b := NewBroadcaster(sender, 1000)

	res, err := b.Broadcast(context.Background(), []int64{1, 2, 3, 2, 1}, "digest")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != (Result{Total: 3, Sent: 2, Failed: 1}) {
		t.Errorf("result: %+v", res)
	}
	for _, m := range sender.messages {
		if m.Text != "digest" || m.ParseMode != tgbotapi.ModeMarkdown {
			t.Errorf("message: %+v", m)
		}
	}
}

func TestBroadcastCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := &recordingSender{}
	res, err := NewBroadcaster(sender, 1).Broadcast(ctx, []int64{1, 2}, "digest")
	if err == nil {
		t.Error("expected context error")
	}
	if res.Sent != 0 || len(sender.messages) != 0 {
		t.Errorf("nothing should be sent: %+v", res)
	}
}

type stubPredictor struct {
	created []models.PredictionRequest
	err     error
}

func (p *stubPredictor) Create(_ context.Context, req models.PredictionRequest) (*models.Prediction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if p.err != nil {
		return nil, p.err
	}
	p.created = append(p.created, req)
	pred := samplePrediction()
	pred.Commodity, pred.Market = req.Commodity, req.Market
	return pred, nil
}

func (p *stubPredictor) Recent(context.Context, int) ([]models.Prediction, error) {
	return []models.Prediction{*samplePrediction()}, nil
}

func command(chatID int64, text string) *tgbotapi.Message {
	cmd, _, _ := strings.Cut(text, " ")
	return &tgbotapi.Message{
		Chat:     &tgbotapi.Chat{ID: chatID},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}
}

func TestBotPredict(t *testing.T) {
	sender := &recordingSender{}
	predictor := &stubPredictor{}
	bot := NewBot(sender, predictor, database.NewMemoryStore())

	bot.HandleMessage(context.Background(), command(7, "/predict coffee Nakuru Town"))
	if len(predictor.created) != 1 || predictor.created[0].Market != "Nakuru Town" {
		t.Fatalf("request: %+v", predictor.created)
	}
	if m := sender.last(t); m.ChatID != 7 || !strings.Contains(m.Text, "coffee in Nakuru Town") {
		t.Errorf("reply: %+v", m)
	}

	bot.HandleMessage(context.Background(), command(7, "/predict coffee"))
	if m := sender.last(t); !strings.HasPrefix(m.Text, "Usage:") {
		t.Errorf("expected usage, got %q", m.Text)
	}

	predictor.err = errors.New("too many data sources failed")
	bot.HandleMessage(context.Background(), command(7, "/predict maize Nairobi"))
	if m := sender.last(t); !strings.Contains(m.Text, "prediction failed") {
		t.Errorf("expected failure reply, got %q", m.Text)
	}
}

func TestBotSubscriptions(t *testing.T) {
	sender := &recordingSender{}
	store := database.NewMemoryStore()
	bot := NewBot(sender, &stubPredictor{}, store)
	ctx := context.Background()

	bot.HandleMessage(ctx, command(42, "/subscribe"))
	bot.HandleMessage(ctx, command(43, "/subscribe"))
	bot.HandleMessage(ctx, command(42, "/unsubscribe"))

	ids, _ := store.ListSubscribers(ctx)
	if len(ids) != 1 || ids[0] != 43 {
		t.Errorf("subscribers: %v", ids)
	}
}

func TestBotHistoryAndHelp(t *testing.T) {
	sender := &recordingSender{}
	bot := NewBot(sender, &stubPredictor{}, database.NewMemoryStore())

	bot.HandleMessage(context.Background(), command(1, "/history"))
	if m := sender.last(t); !strings.Contains(m.Text, "Recent predictions") || m.ParseMode != tgbotapi.ModeMarkdown {
		t.Errorf("history reply: %+v", m)
	}

	bot.HandleMessage(context.Background(), &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}, Text: "hello"})
	if m := sender.last(t); !strings.Contains(m.Text, "/predict <commodity> <market>") {
		t.Errorf("help reply: %q", m.Text)
	}
}
