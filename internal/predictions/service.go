package predictions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/AgriPredictor/models"
)

// MaxRecent caps how many predictions a listing returns
const MaxRecent = 50

// ErrStore wraps persistence failures so callers can tell them from engine failures
var ErrStore = errors.New("prediction store failed")

// Generator produces a prediction for a commodity in a market
type Generator interface {
	Generate(ctx context.Context, commodity, market string) (*models.Prediction, error)
}

// Service validates requests, generates predictions and persists them
type Service struct {
	generator Generator
	store     models.PredictionStore
	now       func() time.Time
	logger    zerolog.Logger
}

// NewService creates a prediction service
func NewService(generator Generator, store models.PredictionStore) *Service {
	return &Service{
		generator: generator,
		store:     store,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    log.With().Str("component", "predictions").Logger(),
	}
}

// Create validates the request, generates a prediction and stores it.
// Invalid requests fail with models.ErrInvalidRequest before any source is queried.
func (s *Service) Create(ctx context.Context, req models.PredictionRequest) (*models.Prediction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req = req.Normalize()

	prediction, err := s.generator.Generate(ctx, req.Commodity, req.Market)
	if err != nil {
		return nil, fmt.Errorf("generating prediction: %w", err)
	}
	if err := s.Save(ctx, req, prediction); err != nil {
		return nil, err
	}
	return prediction, nil
}

// Save records the request on an already generated prediction and persists it
func (s *Service) Save(ctx context.Context, req models.PredictionRequest, prediction *models.Prediction) error {
	prediction.UserInput = req.Normalize()
	prediction.CreatedAt = s.now()

	if err := s.store.Create(ctx, prediction); err != nil {
		s.logger.Error().Err(err).Str("commodity", prediction.Commodity).Msg("Saving prediction failed")
		return fmt.Errorf("%w: %w", ErrStore, err)
	}

	s.logger.Info().
		Str("id", prediction.ID).
		Str("commodity", prediction.Commodity).
		Str("market", prediction.Market).
		Str("trend", string(prediction.Trend)).
		Msg("Prediction saved")
	return nil
}

// Recent returns up to limit stored predictions, newest first. Limits outside
// 1..MaxRecent are treated as MaxRecent.
func (s *Service) Recent(ctx context.Context, limit int) ([]models.Prediction, error) {
	if limit <= 0 || limit > MaxRecent {
		limit = MaxRecent
	}
	predictions, err := s.store.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return predictions, nil
}
