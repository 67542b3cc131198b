package enhance

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/AgriPredictor/models"
)

// Confidence bounds after enhancement, per path
const (
	modelMinConfidence = 0.3
	modelMaxConfidence = 0.95
	rulesMinConfidence = 0.4
	rulesMaxConfidence = 0.92
)

// Labels recorded in the prediction's factors
const (
	ModelAnalysisLabel = "AI Market Intelligence"
	RulesAnalysisLabel = "Smart Market Intelligence"
)

// ErrDisabled is returned by an Enhancer that has no model configured
var ErrDisabled = errors.New("model enhancement disabled")

// Context is the factor snapshot the enhancement is built from
type Context struct {
	Commodity        string
	Market           string
	CurrentPrice     float64
	WeatherCondition string
	NewsSentiment    float64
	PetrolPrice      float64
	KESRate          float64
	Trend            models.Trend
	ChangePercent    float64
}

// Enhancer produces an insight for a prediction context
type Enhancer interface {
	Enhance(ctx context.Context, in Context) (Insight, error)
}

// Service rewrites a prediction's reasoning and confidence, preferring the
// model and falling back to the rule tables
type Service struct {
	model  Enhancer
	logger zerolog.Logger
}

// NewService creates an enhancement service. A nil model means rules only.
func NewService(model Enhancer) *Service {
	return &Service{
		model:  model,
		logger: log.With().Str("component", "enhancer").Logger(),
	}
}

// Apply updates p in place with the enhanced reasoning and confidence
func (s *Service) Apply(ctx context.Context, in Context, p *models.Prediction) {
	if s.model != nil {
		insight, err := s.model.Enhance(ctx, in)
		if err == nil {
			applyInsight(p, insight, modelMinConfidence, modelMaxConfidence)
			p.EnhancementSource = models.EnhancementModel
			p.Factors.AIAnalysis = ModelAnalysisLabel
			return
		}
		if errors.Is(err, ErrDisabled) {
			s.logger.Debug().Msg("No model configured, using market rules")
		} else {
			s.logger.Warn().Err(err).Str("commodity", in.Commodity).Msg("Model enhancement failed, using market rules")
		}
	}

	applyInsight(p, RuleInsight(in), rulesMinConfidence, rulesMaxConfidence)
	p.EnhancementSource = models.EnhancementRules
	p.Factors.AIAnalysis = RulesAnalysisLabel
}

func applyInsight(p *models.Prediction, insight Insight, lo, hi float64) {
	p.ConfidenceScore = models.Round2(models.Clamp(p.ConfidenceScore+insight.ConfidenceDelta, lo, hi))
	p.Reasoning = insight.Text
	p.AIEnhanced = true
}

// Completer is the chat completion call the model enhancer depends on
type Completer interface {
	GenerateCompletion(ctx context.Context, system, prompt string) (string, error)
}

const systemPrompt = "You are a Kenyan agricultural market expert. Provide concise commodity price analysis."

// ModelEnhancer asks a hosted language model for an "insight|delta" reply
type ModelEnhancer struct {
	completer Completer
}

// NewModelEnhancer creates a model enhancer. A nil completer disables it.
func NewModelEnhancer(completer Completer) *ModelEnhancer {
	return &ModelEnhancer{completer: completer}
}

// Enhance implements Enhancer
func (m *ModelEnhancer) Enhance(ctx context.Context, in Context) (Insight, error) {
	if m == nil || m.completer == nil {
		return Insight{}, ErrDisabled
	}

	reply, err := m.completer.GenerateCompletion(ctx, systemPrompt, Prompt(in))
	if err != nil {
		return Insight{}, fmt.Errorf("requesting insight: %w", err)
	}

	insight, err := ParseInsight(reply)
	if err != nil {
		return Insight{}, fmt.Errorf("parsing insight %q: %w", reply, err)
	}
	return insight, nil
}

// Prompt renders the user message for a prediction context
func Prompt(in Context) string {
	return fmt.Sprintf(`KENYAN COMMODITY ANALYSIS:
%s in %s
Current: KES %g
Predicted: %s %g%%
Factors: Weather %s, Fuel KES %g, News sentiment %.2f, USD/KES %g

Provide 1 sentence insight and confidence change (-0.1 to +0.1).

Format: INSIGHT|CONFIDENCE
Example: "Good rainfall supports supply|0.06"
`,
		in.Commodity, in.Market,
		in.CurrentPrice,
		in.Trend, in.ChangePercent,
		in.WeatherCondition, in.PetrolPrice, in.NewsSentiment, in.KESRate,
	)
}
