package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Alias1177/AgriPredictor/internal/sources"
	"github.com/Alias1177/AgriPredictor/models"
)

// ErrTooManyFailedSources is returned when more than maxFailedSources signals failed
var ErrTooManyFailedSources = errors.New("too many data sources failed")

const (
	maxFailedSources  = 2
	defaultBasePrice  = 100.0
	unknownDataSource = "Unknown"
)

// Signals holds the outcome of every source for one request
type Signals struct {
	Price    sources.Signal[sources.PriceData]
	Weather  sources.Signal[sources.WeatherData]
	News     sources.Signal[sources.NewsData]
	Fuel     sources.Signal[sources.FuelData]
	Currency sources.Signal[sources.CurrencyData]
}

// Failures returns the errors of the failed signals, in source order
func (s Signals) Failures() []error {
	var errs []error
	named := []struct {
		name string
		err  error
	}{
		{"price", s.Price.Err},
		{"weather", s.Weather.Err},
		{"news", s.News.Err},
		{"fuel", s.Fuel.Err},
		{"currency", s.Currency.Err},
	}
	for _, n := range named {
		if n.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.name, n.err))
		}
	}
	return errs
}

// inputs are the numeric values the formula reads; absent values are not set
type inputs struct {
	basePrice float64

	sentiment    float64
	hasSentiment bool

	impact    float64
	hasImpact bool

	petrol    float64
	hasPetrol bool
	liveFuel  bool

	kes    float64
	hasKES bool
}

func extract(s Signals) inputs {
	in := inputs{basePrice: defaultBasePrice}

	if !s.Price.Failed() && s.Price.Value.CurrentPrice > 0 {
		in.basePrice = s.Price.Value.CurrentPrice
	}
	if !s.News.Failed() && s.News.Value.Sentiment != 0 {
		in.sentiment, in.hasSentiment = s.News.Value.Sentiment, true
	}
	if !s.Weather.Failed() && s.Weather.Value.Impact != 0 {
		in.impact, in.hasImpact = s.Weather.Value.Impact, true
	}
	if !s.Fuel.Failed() && s.Fuel.Value.Petrol != 0 {
		in.petrol, in.hasPetrol = s.Fuel.Value.Petrol, true
		in.liveFuel = s.Fuel.Value.IsRealData
	}
	if !s.Currency.Failed() {
		if kes, ok := s.Currency.Value.KES(); ok {
			in.kes, in.hasKES = kes, true
		}
	}
	return in
}

// Combine blends the signals into a prediction. It is deterministic for
// identical inputs; the reasoning and enhancement fields are left empty.
func Combine(commodity, market string, s Signals) (*models.Prediction, error) {
	if failures := s.Failures(); len(failures) > maxFailedSources {
		return nil, fmt.Errorf("%w: %w", ErrTooManyFailedSources, errors.Join(failures...))
	}

	in := extract(s)
	factors := contributions(in)

	change := factors.NewsSentiment + factors.WeatherImpact + factors.FuelCostImpact + factors.CurrencyImpact
	change *= Volatility(commodity)

	confidence := baseConfidence
	if in.hasSentiment {
		confidence += math.Abs(in.sentiment) * newsConfidence
	}
	if in.hasImpact {
		confidence += in.impact * weatherConfidence
	}
	if in.hasPetrol && in.liveFuel {
		confidence += liveFuelConfidence
	}
	confidence = max(min(models.Round2(confidence), maxCombinerConfidence), 0)

	factors.MarketSentiment = marketSentiment(in)

	now := time.Now()
	return &models.Prediction{
		Commodity:              commodity,
		Market:                 market,
		CurrentPrice:           in.basePrice,
		PredictedPrice:         models.Round2(in.basePrice * (1 + change)),
		PredictedChangePercent: models.Round2(change * 100),
		Trend:                  models.TrendFor(change),
		ConfidenceScore:        confidence,
		Factors:                factors,
		DataSources:            dataSources(s),
		Timestamp:              now,
		LastUpdated:            now,
	}, nil
}

// contributions computes each factor's share of the change before volatility
func contributions(in inputs) models.Factors {
	var f models.Factors

	if in.hasSentiment {
		w := GetFactorWeight(FactorNews)
		f.NewsSentiment = in.sentiment * w.Weight * w.Scale
	}
	if in.hasImpact {
		w := GetFactorWeight(FactorWeather)
		f.WeatherImpact = in.impact * w.Weight * w.Scale
	}
	if in.hasPetrol {
		w := GetFactorWeight(FactorFuel)
		f.FuelCostImpact = (in.petrol - referencePetrolKES) / referencePetrolKES * w.Scale * w.Weight
	}
	if in.hasKES {
		w := GetFactorWeight(FactorCurrency)
		f.CurrencyImpact = (in.kes - referenceKESRate) / referenceKESRate * w.Scale * w.Weight
	}
	return f
}

// marketSentiment is a composite reading of the four non-price signals
func marketSentiment(in inputs) float64 {
	sentiment := 0.0
	if in.hasSentiment {
		sentiment += in.sentiment * sentimentWeights[FactorNews]
	}
	if in.hasImpact {
		sentiment += in.impact * sentimentWeights[FactorWeather]
	}
	if in.hasPetrol {
		sentiment += (in.petrol - referencePetrolKES) / referencePetrolKES * sentimentWeights[FactorFuel]
	}
	if in.hasKES {
		sentiment += (in.kes - referenceKESRate) / referenceKESRate * sentimentWeights[FactorCurrency]
	}
	return sentiment
}

func dataSources(s Signals) models.DataSources {
	label := func(failed bool, source string) string {
		if failed || source == "" {
			return unknownDataSource
		}
		return source
	}
	return models.DataSources{
		Price:    label(s.Price.Failed(), s.Price.Value.Source),
		Weather:  label(s.Weather.Failed(), s.Weather.Value.Source),
		News:     label(s.News.Failed(), s.News.Value.Source),
		Fuel:     label(s.Fuel.Failed(), s.Fuel.Value.Source),
		Currency: label(s.Currency.Failed(), s.Currency.Value.Source),
	}
}
