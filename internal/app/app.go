package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/AgriPredictor/internal/api/openai"
	"github.com/Alias1177/AgriPredictor/internal/config"
	"github.com/Alias1177/AgriPredictor/internal/database"
	"github.com/Alias1177/AgriPredictor/internal/engine"
	"github.com/Alias1177/AgriPredictor/internal/enhance"
	"github.com/Alias1177/AgriPredictor/internal/insights"
	"github.com/Alias1177/AgriPredictor/internal/predictions"
	"github.com/Alias1177/AgriPredictor/internal/sources"
	"github.com/Alias1177/AgriPredictor/models"
)

// Store persists predictions and broadcast subscribers
type Store interface {
	models.PredictionStore
	models.SubscriberStore
}

// App holds the services shared by every binary
type App struct {
	Config      *config.Config
	Engine      *engine.Engine
	Predictions *predictions.Service
	Insights    *insights.Service
	News        *insights.NewsFeed
	Store       Store

	closers []func() error
}

// New builds every component from configuration. Without DATABASE_URL the
// in-memory store is used; without an LLM key enhancement runs on rules only.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database.URL, database.Options{
			ConnectTimeout: config.Seconds(cfg.Database.ConnectTimeout),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.Store = db
		a.closers = append(a.closers, db.Close)
	} else {
		log.Warn().Msg("DATABASE_URL not set, using in-memory store")
		a.Store = database.NewMemoryStore()
	}

	src := cfg.Sources
	timeout := config.Seconds(src.RequestTimeout)
	news := sources.NewNewsAdapter(sources.NewsConfig{
		BaseURL:        src.NewsAPIURL,
		APIKey:         src.NewsAPIKey,
		Timeout:        timeout,
		RequestsPerSec: src.OutboundRPS,
	})

	var llm *openai.Client
	var model enhance.Enhancer
	var generator insights.JSONGenerator
	if cfg.LLM.APIKey != "" {
		llm = openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Timeout:     config.Seconds(cfg.LLM.Timeout),
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: float32(cfg.LLM.Temperature),
		})
		model = enhance.NewModelEnhancer(llm)
		generator = llm
	} else {
		log.Warn().Msg("GROQ_API_KEY not set, enhancement uses market rules only")
	}

	a.Engine = engine.New(engine.Sources{
		Price: sources.NewPriceAdapter(sources.PriceConfig{
			BaseURL:        src.WorldBankURL,
			Timeout:        timeout,
			RequestsPerSec: src.OutboundRPS,
		}),
		Weather: sources.NewWeatherAdapter(sources.WeatherConfig{
			BaseURL:        src.OpenWeatherURL,
			APIKey:         src.OpenWeatherKey,
			Timeout:        timeout,
			RequestsPerSec: src.OutboundRPS,
		}),
		News: news,
		Fuel: sources.NewFuelAdapter(sources.FuelConfig{
			GasBuddyURL:    src.GasBuddyURL,
			MyGasFeedURL:   src.MyGasFeedURL,
			FrankfurterURL: src.FrankfurterURL,
			Timeout:        config.Seconds(src.FuelTimeout),
			RequestsPerSec: src.OutboundRPS,
		}),
		Currency: sources.NewCurrencyAdapter(sources.CurrencyConfig{
			BaseURL:        src.ExchangeRateURL,
			Timeout:        timeout,
			RequestsPerSec: src.OutboundRPS,
		}),
	}, enhance.NewService(model))

	a.Predictions = predictions.NewService(a.Engine, a.Store)
	a.Insights = insights.NewService(generator)
	a.News = insights.NewNewsFeed(news, src.MarketNewsRSSURL, timeout)

	return a, nil
}

// Close releases the database connection, if any
func (a *App) Close() error {
	var firstErr error
	for _, c := range a.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
