package insights

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Insight is a headline price call shown on the dashboard
type Insight struct {
	ID              int     `json:"id"`
	Commodity       string  `json:"commodity"`
	Market          string  `json:"market"`
	PredictedPrice  string  `json:"predictedPrice"`
	Trend           string  `json:"trend"`
	ConfidenceScore float64 `json:"confidenceScore"`
	Reasoning       string  `json:"reasoning"`
	Type            string  `json:"type"`
	Urgency         string  `json:"urgency"`
	Timestamp       string  `json:"timestamp"`
}

// JSONGenerator asks a language model for a JSON object reply
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, system, prompt string, maxTokens int, out any) error
}

const insightsMaxTokens = 1000

const insightsSystemPrompt = `You are a Kenyan agricultural market expert. Provide 3 market insights in JSON format.
Return exactly: {
  "insights": [
    {
      "id": 1,
      "commodity": "maize",
      "market": "Nairobi",
      "predictedPrice": "87.08",
      "trend": "up",
      "confidenceScore": 0.64,
      "reasoning": "Increased demand from urban centers with stable supply",
      "type": "price",
      "urgency": "medium",
      "timestamp": "%s"
    }
  ]
}`

const insightsPrompt = "Generate 3 current market insights for Kenyan agricultural commodities with price predictions."

// Service produces market insights, from the model when available
type Service struct {
	llm    JSONGenerator
	now    func() time.Time
	logger zerolog.Logger
}

// NewService creates an insights service. A nil generator always serves the static list.
func NewService(llm JSONGenerator) *Service {
	return &Service{
		llm:    llm,
		now:    time.Now,
		logger: log.With().Str("component", "insights").Logger(),
	}
}

// MarketInsights returns the model's insights or the static fallback list
func (s *Service) MarketInsights(ctx context.Context) []Insight {
	if s.llm == nil {
		return s.fallback()
	}

	stamp := s.now().UTC().Format(time.RFC3339)
	var reply struct {
		Insights []Insight `json:"insights"`
	}
	if err := s.llm.GenerateJSON(ctx, fmt.Sprintf(insightsSystemPrompt, stamp), insightsPrompt, insightsMaxTokens, &reply); err != nil {
		s.logger.Warn().Err(err).Msg("Model insights failed, using fallback")
		return s.fallback()
	}
	if len(reply.Insights) == 0 {
		return s.fallback()
	}
	return reply.Insights
}

func (s *Service) fallback() []Insight {
	stamp := s.now().UTC().Format(time.RFC3339)
	return []Insight{
		{
			ID:              1,
			Commodity:       "maize",
			Market:          "Nairobi",
			PredictedPrice:  "87.08",
			Trend:           "up",
			ConfidenceScore: 0.64,
			Reasoning:       "Increased demand from urban centers with stable supply from recent harvests",
			Type:            "price",
			Urgency:         "medium",
			Timestamp:       stamp,
		},
		{
			ID:              2,
			Commodity:       "coffee",
			Market:          "Nakuru",
			PredictedPrice:  "245.50",
			Trend:           "up",
			ConfidenceScore: 0.72,
			Reasoning:       "International demand rising due to quality improvements in Central region",
			Type:            "demand",
			Urgency:         "high",
			Timestamp:       stamp,
		},
		{
			ID:              3,
			Commodity:       "tomatoes",
			Market:          "Kisumu",
			PredictedPrice:  "65.30",
			Trend:           "down",
			ConfidenceScore: 0.58,
			Reasoning:       "Seasonal oversupply from Eastern Kenya farms affecting prices",
			Type:            "supply",
			Urgency:         "medium",
			Timestamp:       stamp,
		},
	}
}
