package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/AgriPredictor/internal/app"
	"github.com/Alias1177/AgriPredictor/internal/config"
	"github.com/Alias1177/AgriPredictor/internal/engine"
	"github.com/Alias1177/AgriPredictor/internal/platform/logging"
	"github.com/Alias1177/AgriPredictor/internal/sources"
	"github.com/Alias1177/AgriPredictor/models"
)

func main() {
	commodity := flag.String("commodity", "maize", "commodity to predict")
	market := flag.String("market", sources.DefaultMarket, "market to predict for")
	save := flag.Bool("save", false, "persist the prediction")
	asJSON := flag.Bool("json", false, "print the prediction as JSON")
	withInsights := flag.Bool("insights", false, "also print market insights and headlines")
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

	req := models.PredictionRequest{Commodity: *commodity, Market: *market}
	if err := req.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid request")
	}
	req = req.Normalize()

	signals := a.Engine.Collect(ctx, req.Commodity, req.Market)
	prediction, err := a.Engine.Predict(ctx, req.Commodity, req.Market, signals)
	if err != nil {
		log.Fatal().Err(err).Msg("Prediction failed")
	}
	if *save {
		if err := a.Predictions.Save(ctx, req, prediction); err != nil {
			log.Fatal().Err(err).Msg("Failed to save prediction")
		}
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(prediction); err != nil {
			log.Fatal().Err(err).Msg("Failed to encode prediction")
		}
	} else {
		printPrediction(prediction)
		printWeather(signals)
	}

	if *withInsights {
		printInsights(ctx, a)
	}
}

// printPrediction outputs a human-readable report
func printPrediction(p *models.Prediction) {
	fmt.Printf("\n=== %s / %s ===\n", strings.ToUpper(p.Commodity), p.Market)
	fmt.Printf("Current price:   %.2f KES\n", p.CurrentPrice)
	fmt.Printf("Predicted price: %.2f KES (%+.2f%%)\n", p.PredictedPrice, p.PredictedChangePercent)
	fmt.Printf("Trend:           %s\n", p.Trend)
	fmt.Printf("Confidence:      %.0f%%\n", p.ConfidenceScore*100)

	fmt.Println("\nFactors:")
	fmt.Printf("  News sentiment:   %+.4f\n", p.Factors.NewsSentiment)
	fmt.Printf("  Weather impact:   %+.4f\n", p.Factors.WeatherImpact)
	fmt.Printf("  Fuel cost impact: %+.4f\n", p.Factors.FuelCostImpact)
	fmt.Printf("  Currency impact:  %+.4f\n", p.Factors.CurrencyImpact)
	fmt.Printf("  Market sentiment: %.4f\n", p.Factors.MarketSentiment)

	fmt.Println("\nData sources:")
	fmt.Printf("  Price: %s\n  Weather: %s\n  News: %s\n  Fuel: %s\n  Currency: %s\n",
		p.DataSources.Price, p.DataSources.Weather, p.DataSources.News, p.DataSources.Fuel, p.DataSources.Currency)

	fmt.Printf("\n%s (%s)\n%s\n", p.Factors.AIAnalysis, p.EnhancementSource, p.Reasoning)
	if p.ID != "" {
		fmt.Printf("\nSaved as %s\n", p.ID)
	}
}

// printWeather explains the weather reading behind the prediction
func printWeather(signals engine.Signals) {
	if signals.Weather.Failed() {
		return
	}
	w := signals.Weather.Value
	fmt.Printf("\nWeather in %s: %s, %.1f°C, humidity %.0f%%, wind %.1f m/s (impact %.2f)\n",
		w.Region, w.Condition, w.Temperature, w.Humidity, w.WindSpeed, w.Impact)
	for _, note := range sources.ImpactNotes(w) {
		fmt.Printf("  - %s\n", note)
	}
}

func printInsights(ctx context.Context, a *app.App) {
	fmt.Println("\n=== Market insights ===")
	for _, in := range a.Insights.MarketInsights(ctx) {
		fmt.Printf("- %s @ %s: %s KES, %s (%.0f%%) %s\n",
			in.Commodity, in.Market, in.PredictedPrice, in.Trend, in.ConfidenceScore*100, in.Reasoning)
	}

	news := a.News.Latest(ctx)
	if len(news) == 0 {
		return
	}
	fmt.Println("\n=== Headlines ===")
	for _, n := range news {
		fmt.Printf("- [%s] %s (%s)\n", n.Commodity, n.Title, n.Source)
	}
}
