package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidRequest is returned when a prediction request lacks required fields
var ErrInvalidRequest = errors.New("invalid prediction request")

// Trend is the direction label derived from the predicted change
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// Enhancement sources recorded on a prediction
const (
	EnhancementModel = "model"
	EnhancementRules = "rules"
)

// PredictionRequest is the caller's input for a new prediction
type PredictionRequest struct {
	Commodity string `json:"commodity"`
	Market    string `json:"market"`
	Timeframe string `json:"timeframe,omitempty"`
}

// Normalize trims surrounding whitespace from every field
func (r PredictionRequest) Normalize() PredictionRequest {
	return PredictionRequest{
		Commodity: strings.TrimSpace(r.Commodity),
		Market:    strings.TrimSpace(r.Market),
		Timeframe: strings.TrimSpace(r.Timeframe),
	}
}

// Validate checks that commodity and market are present
func (r PredictionRequest) Validate() error {
	n := r.Normalize()
	if n.Commodity == "" || n.Market == "" {
		return fmt.Errorf("%w: commodity and market are required", ErrInvalidRequest)
	}
	return nil
}

// Factors holds the individual contributions that went into a prediction
type Factors struct {
	NewsSentiment   float64 `json:"newsSentiment"`
	WeatherImpact   float64 `json:"weatherImpact"`
	MarketSentiment float64 `json:"marketSentiment"`
	FuelCostImpact  float64 `json:"fuelCostImpact"`
	CurrencyImpact  float64 `json:"currencyImpact"`
	AIAnalysis      string  `json:"aiAnalysis"`
}

// DataSources records where each signal came from
type DataSources struct {
	Price    string `json:"price"`
	Weather  string `json:"weather"`
	News     string `json:"news"`
	Fuel     string `json:"fuel"`
	Currency string `json:"currency"`
}

// Prediction is the persisted result of one request
type Prediction struct {
	ID                     string            `json:"_id"`
	Commodity              string            `json:"commodity"`
	Market                 string            `json:"market"`
	CurrentPrice           float64           `json:"currentPrice"`
	PredictedPrice         float64           `json:"predictedPrice"`
	PredictedChangePercent float64           `json:"predictedChangePercent"`
	Trend                  Trend             `json:"trend"`
	ConfidenceScore        float64           `json:"confidenceScore"`
	Factors                Factors           `json:"factors"`
	Reasoning              string            `json:"reasoning"`
	AIEnhanced             bool              `json:"aiEnhanced"`
	EnhancementSource      string            `json:"enhancementSource,omitempty"`
	DataSources            DataSources       `json:"dataSources"`
	UserInput              PredictionRequest `json:"userInput"`
	Timestamp              time.Time         `json:"timestamp"`
	LastUpdated            time.Time         `json:"lastUpdated"`
	CreatedAt              time.Time         `json:"createdAt"`
}

// TrendFor maps a fractional change onto a trend label.
// Values exactly at the ±2% boundary are stable.
func TrendFor(change float64) Trend {
	switch {
	case change > 0.02:
		return TrendUp
	case change < -0.02:
		return TrendDown
	default:
		return TrendStable
	}
}
