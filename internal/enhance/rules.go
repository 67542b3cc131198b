package enhance

import (
	"slices"
	"strings"
)

// Factors a commodity's confidence is sensitive to
const (
	sensitiveWeather     = "weather"
	sensitiveSeason      = "season"
	sensitiveImports     = "imports"
	sensitiveCurrency    = "currency"
	sensitiveFuel        = "fuel"
	sensitiveLocalSupply = "local_supply"
)

// Fuel price thresholds in KES per liter
const (
	expensiveFuel = 170
	cheapFuel     = 140
)

type commodityProfile struct {
	baseBoost float64
	insight   string
	factors   []string
}

type marketProfile struct {
	premium float64
	insight string
}

var commodityProfiles = map[string]commodityProfile{
	"maize": {
		baseBoost: 0.07,
		insight:   "Maize prices influenced by Central Kenya rainfall and harvest cycles",
		factors:   []string{sensitiveWeather, sensitiveSeason},
	},
	"wheat": {
		baseBoost: 0.04,
		insight:   "Wheat imports affected by international prices and Mombasa port logistics",
		factors:   []string{sensitiveImports, sensitiveCurrency, sensitiveFuel},
	},
	"rice": {
		baseBoost: 0.03,
		insight:   "Rice pricing sensitive to USD/KES rates and Asian export markets",
		factors:   []string{sensitiveImports, sensitiveCurrency},
	},
	"tomatoes": {
		baseBoost: 0.08,
		insight:   "Tomato supply varies with seasonal production in Eastern Kenya",
		factors:   []string{sensitiveWeather, sensitiveLocalSupply},
	},
	"sukuma": {
		baseBoost: 0.09,
		insight:   "Sukuma wiki has reliable supply from local urban farming",
		factors:   []string{sensitiveLocalSupply},
	},
	"beans": {
		baseBoost: 0.06,
		insight:   "Bean prices stable with consistent local production",
		factors:   []string{sensitiveLocalSupply},
	},
	"potatoes": {
		baseBoost: 0.07,
		insight:   "Potato supply depends on Central and Rift Valley harvests",
		factors:   []string{sensitiveWeather, sensitiveLocalSupply},
	},
}

var defaultCommodityProfile = commodityProfile{
	baseBoost: 0.05,
	insight:   "Standard commodity market analysis applied",
}

var marketProfiles = map[string]marketProfile{
	"Nairobi": {premium: 0.03, insight: "Major urban market with stable demand patterns"},
	"Mombasa": {premium: -0.02, insight: "Port city with import-influenced pricing"},
	"Kisumu":  {premium: 0.02, insight: "Western market with local produce advantage"},
	"Nakuru":  {premium: 0.04, insight: "Agricultural hub with direct farm supply"},
	"Eldoret": {premium: 0.03, insight: "Rift Valley market close to production zones"},
	"Thika":   {premium: 0.01, insight: "Industrial town with mixed supply chains"},
}

// RuleInsight derives an insight and confidence boost from the local market
// intelligence tables. It never fails.
func RuleInsight(in Context) Insight {
	commodity, ok := commodityProfiles[strings.ToLower(strings.TrimSpace(in.Commodity))]
	if !ok {
		commodity = defaultCommodityProfile
	}
	market := lookupMarketProfile(in.Market)

	boost := commodity.baseBoost + market.premium

	if slices.Contains(commodity.factors, sensitiveFuel) {
		switch {
		case in.PetrolPrice > expensiveFuel:
			boost -= 0.02
		case in.PetrolPrice > 0 && in.PetrolPrice < cheapFuel:
			boost += 0.01
		}
	}

	if slices.Contains(commodity.factors, sensitiveWeather) {
		weather := strings.ToLower(in.WeatherCondition)
		switch {
		case strings.Contains(weather, "good"):
			boost += 0.02
		case strings.Contains(weather, "bad"):
			boost -= 0.01
		}
	}

	text := commodity.insight
	if market.insight != "" {
		text += ". " + market.insight
	}

	return Insight{Text: text, ConfidenceDelta: boost}
}

func lookupMarketProfile(market string) marketProfile {
	market = strings.TrimSpace(market)
	if p, ok := marketProfiles[market]; ok {
		return p
	}
	for name, p := range marketProfiles {
		if strings.EqualFold(name, market) {
			return p
		}
	}
	return marketProfile{}
}
