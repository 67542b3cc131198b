package engine

import "strings"

// Factor names used in the weight table
const (
	FactorNews      = "NEWS"
	FactorWeather   = "WEATHER"
	FactorFuel      = "FUEL"
	FactorCurrency  = "CURRENCY"
	FactorTechnical = "TECHNICAL"
)

// FactorWeight is the share of the predicted change attributed to a factor
// and the scale applied to its raw signal before weighting
type FactorWeight struct {
	Weight float64
	Scale  float64
}

// TECHNICAL carries a weight but no signal feeds it yet
var factorWeights = map[string]FactorWeight{
	FactorNews:      {Weight: 0.3, Scale: 0.1},
	FactorWeather:   {Weight: 0.25, Scale: 0.08},
	FactorFuel:      {Weight: 0.2, Scale: 0.2},
	FactorCurrency:  {Weight: 0.15, Scale: 0.3},
	FactorTechnical: {Weight: 0.1, Scale: 0},
}

// Market sentiment blends the non-price signals with its own weights
var sentimentWeights = map[string]float64{
	FactorNews:     0.4,
	FactorWeather:  0.3,
	FactorFuel:     0.2,
	FactorCurrency: 0.1,
}

// volatility amplifies or damps the change per commodity
var volatility = map[string]float64{
	"maize":    1.0,
	"wheat":    1.2,
	"rice":     1.3,
	"tomatoes": 0.8,
	"sukuma":   0.7,
	"onions":   0.9,
	"potatoes": 0.8,
}

// Reference levels that fuel and currency impacts are measured against
const (
	referencePetrolKES = 150.0
	referenceKESRate   = 150.0
)

// Confidence accumulation
const (
	baseConfidence        = 0.5
	newsConfidence        = 0.1
	weatherConfidence     = 0.15
	liveFuelConfidence    = 0.05
	maxCombinerConfidence = 0.95
)

// GetFactorWeight returns the weight of a factor
func GetFactorWeight(factor string) FactorWeight {
	if weight, exists := factorWeights[factor]; exists {
		return weight
	}
	return FactorWeight{}
}

// Volatility returns the commodity multiplier, 1.0 for unknown commodities
func Volatility(commodity string) float64 {
	if v, ok := volatility[commodityKey(commodity)]; ok {
		return v
	}
	return 1.0
}

func commodityKey(commodity string) string {
	return strings.ToLower(strings.TrimSpace(commodity))
}
