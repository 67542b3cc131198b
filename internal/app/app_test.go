package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Alias1177/AgriPredictor/internal/config"
	"github.com/Alias1177/AgriPredictor/internal/database"
	"github.com/Alias1177/AgriPredictor/models"
)

func offlineConfig(t *testing.T) *config.Config {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	cfg := config.Defaults()
	cfg.Sources.WorldBankURL = srv.URL
	cfg.Sources.OpenWeatherURL = srv.URL
	cfg.Sources.NewsAPIURL = srv.URL
	cfg.Sources.ExchangeRateURL = srv.URL
	cfg.Sources.GasBuddyURL = srv.URL
	cfg.Sources.MyGasFeedURL = srv.URL
	cfg.Sources.FrankfurterURL = srv.URL
	cfg.Sources.MarketNewsRSSURL = srv.URL
	cfg.Sources.RequestTimeout = 2
	cfg.Sources.FuelTimeout = 2
	return cfg
}

func TestNewOffline(t *testing.T) {
	a, err := New(context.Background(), offlineConfig(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer a.Close()

	if _, ok := a.Store.(*database.MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", a.Store)
	}

	p, err := a.Predictions.Create(context.Background(), models.PredictionRequest{Commodity: "maize", Market: "Nairobi"})
	if err != nil {
		t.Fatalf("prediction failed: %v", err)
	}
	if p.CurrentPrice != 80 {
		t.Errorf("expected fallback price 80, got %v", p.CurrentPrice)
	}
	if p.EnhancementSource != models.EnhancementRules {
		t.Errorf("expected rules enhancement, got %q", p.EnhancementSource)
	}

	if got := a.Insights.MarketInsights(context.Background()); len(got) != 3 {
		t.Errorf("expected fallback insights, got %d", len(got))
	}
	if got := a.News.Latest(context.Background()); len(got) != 0 {
		t.Errorf("expected no news, got %d", len(got))
	}
}
