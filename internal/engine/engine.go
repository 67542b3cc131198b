package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/AgriPredictor/internal/enhance"
	"github.com/Alias1177/AgriPredictor/internal/sources"
	"github.com/Alias1177/AgriPredictor/models"
)

// PriceSource returns the current price of a commodity in a market
type PriceSource interface {
	Price(ctx context.Context, commodity, market string) sources.Signal[sources.PriceData]
}

// WeatherSource returns current conditions for a region
type WeatherSource interface {
	Weather(ctx context.Context, region string) sources.Signal[sources.WeatherData]
}

// NewsSource returns headline sentiment for a commodity
type NewsSource interface {
	Sentiment(ctx context.Context, commodity string) sources.Signal[sources.NewsData]
}

// FuelSource returns pump prices
type FuelSource interface {
	Prices(ctx context.Context) sources.Signal[sources.FuelData]
}

// CurrencySource returns exchange rates against a base currency
type CurrencySource interface {
	Rates(ctx context.Context, base string) sources.Signal[sources.CurrencyData]
}

// Enhancer rewrites the reasoning and confidence of a combined prediction
type Enhancer interface {
	Apply(ctx context.Context, in enhance.Context, p *models.Prediction)
}

// Sources groups the adapters the engine fans out to
type Sources struct {
	Price    PriceSource
	Weather  WeatherSource
	News     NewsSource
	Fuel     FuelSource
	Currency CurrencySource
}

// Engine produces predictions from the configured sources
type Engine struct {
	sources  Sources
	enhancer Enhancer
	logger   zerolog.Logger
}

// New creates an engine. A nil enhancer leaves predictions as combined.
func New(src Sources, enhancer Enhancer) *Engine {
	return &Engine{
		sources:  src,
		enhancer: enhancer,
		logger:   log.With().Str("component", "engine").Logger(),
	}
}

var errNotConfigured = errors.New("source not configured")

// Collect queries every source concurrently and waits for all of them
func (e *Engine) Collect(ctx context.Context, commodity, market string) Signals {
	var s Signals
	var wg sync.WaitGroup

	if e.sources.Price != nil {
		collect(&wg, "price", &s.Price, func() sources.Signal[sources.PriceData] {
			return e.sources.Price.Price(ctx, commodity, market)
		})
	} else {
		s.Price = sources.Fail[sources.PriceData](errNotConfigured)
	}

	if e.sources.Weather != nil {
		collect(&wg, "weather", &s.Weather, func() sources.Signal[sources.WeatherData] {
			return e.sources.Weather.Weather(ctx, market)
		})
	} else {
		s.Weather = sources.Fail[sources.WeatherData](errNotConfigured)
	}

	if e.sources.News != nil {
		collect(&wg, "news", &s.News, func() sources.Signal[sources.NewsData] {
			return e.sources.News.Sentiment(ctx, commodity)
		})
	} else {
		s.News = sources.Fail[sources.NewsData](errNotConfigured)
	}

	if e.sources.Fuel != nil {
		collect(&wg, "fuel", &s.Fuel, func() sources.Signal[sources.FuelData] {
			return e.sources.Fuel.Prices(ctx)
		})
	} else {
		s.Fuel = sources.Fail[sources.FuelData](errNotConfigured)
	}

	if e.sources.Currency != nil {
		collect(&wg, "currency", &s.Currency, func() sources.Signal[sources.CurrencyData] {
			return e.sources.Currency.Rates(ctx, sources.DefaultBaseCurrency)
		})
	} else {
		s.Currency = sources.Fail[sources.CurrencyData](errNotConfigured)
	}

	wg.Wait()
	return s
}

// collect runs fetch in its own goroutine and stores the result in dst.
// A panic becomes a failed signal.
func collect[T any](wg *sync.WaitGroup, name string, dst *sources.Signal[T], fetch func() sources.Signal[T]) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("component", "engine").Str("source", name).Interface("panic", r).Msg("Source panicked")
				*dst = sources.Fail[T](fmt.Errorf("%s source panicked: %v", name, r))
			}
		}()
		*dst = fetch()
	}()
}

// Generate collects, combines and enhances a prediction
func (e *Engine) Generate(ctx context.Context, commodity, market string) (*models.Prediction, error) {
	e.logger.Info().Str("commodity", commodity).Str("market", market).Msg("Generating prediction")
	return e.Predict(ctx, commodity, market, e.Collect(ctx, commodity, market))
}

// Predict combines already collected signals and enhances the result
func (e *Engine) Predict(ctx context.Context, commodity, market string, signals Signals) (*models.Prediction, error) {
	prediction, err := Combine(commodity, market, signals)
	if err != nil {
		e.logger.Error().Err(err).Str("commodity", commodity).Msg("Combining signals failed")
		return nil, err
	}

	if e.enhancer != nil {
		e.enhancer.Apply(ctx, Snapshot(signals, prediction), prediction)
	}

	e.logger.Debug().
		Str("commodity", commodity).
		Str("trend", string(prediction.Trend)).
		Float64("change_pct", prediction.PredictedChangePercent).
		Float64("confidence", prediction.ConfidenceScore).
		Msg("Prediction ready")

	return prediction, nil
}

// Snapshot extracts the factor values the enhancer works from
func Snapshot(s Signals, p *models.Prediction) enhance.Context {
	in := enhance.Context{
		Commodity:     p.Commodity,
		Market:        p.Market,
		CurrentPrice:  p.CurrentPrice,
		Trend:         p.Trend,
		ChangePercent: p.PredictedChangePercent,
	}
	if !s.Weather.Failed() {
		in.WeatherCondition = s.Weather.Value.Condition
	}
	if !s.News.Failed() {
		in.NewsSentiment = s.News.Value.Sentiment
	}
	if !s.Fuel.Failed() {
		in.PetrolPrice = s.Fuel.Value.Petrol
	}
	if !s.Currency.Failed() {
		in.KESRate, _ = s.Currency.Value.KES()
	}
	return in
}
