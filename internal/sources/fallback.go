package sources

import "strings"

// DefaultMarket is used when a market has no entry in a price table
const DefaultMarket = "Nairobi"

// basePrices maps commodities to a KES/kg reference price used with live index data
var basePrices = map[string]float64{
	"maize":    80,
	"wheat":    120,
	"rice":     180,
	"sugar":    150,
	"beans":    200,
	"coffee":   400,
	"tomatoes": 50,
	"onions":   80,
	"potatoes": 60,
}

// marketFactors scales base prices per market
var marketFactors = map[string]float64{
	"Nairobi": 1.0,
	"Mombasa": 1.08,
	"Kisumu":  0.92,
	"Nakuru":  0.96,
}

// kenyanPrices is the static commodity x market table served when no live data is usable
var kenyanPrices = map[string]map[string]float64{
	"tomatoes": {"Nairobi": 50, "Mombasa": 55, "Kisumu": 48, "Nakuru": 52},
	"maize":    {"Nairobi": 80, "Mombasa": 85, "Kisumu": 75, "Nakuru": 78},
	"sukuma":   {"Nairobi": 20, "Mombasa": 25, "Kisumu": 18, "Nakuru": 22},
	"onions":   {"Nairobi": 80, "Mombasa": 85, "Kisumu": 75, "Nakuru": 82},
	"potatoes": {"Nairobi": 60, "Mombasa": 65, "Kisumu": 55, "Nakuru": 58},
	"coffee":   {"Nairobi": 400, "Mombasa": 420, "Kisumu": 380, "Nakuru": 390},
	"wheat":    {"Nairobi": 120, "Mombasa": 125, "Kisumu": 115, "Nakuru": 118},
	"rice":     {"Nairobi": 180, "Mombasa": 185, "Kisumu": 175, "Nakuru": 178},
	"sugar":    {"Nairobi": 150, "Mombasa": 155, "Kisumu": 145, "Nakuru": 148},
	"beans":    {"Nairobi": 200, "Mombasa": 205, "Kisumu": 195, "Nakuru": 198},
}

// defaultPrice is used for commodities missing from every table
const defaultPrice = 100

// Fuel fallback in KES per liter (Nairobi average)
const (
	FallbackPetrol = 155
	FallbackDiesel = 145
)

// fallbackRates is the exchange table used when the rates API is unreachable
func fallbackRates() map[string]float64 {
	return map[string]float64{"USD": 1, "EUR": 0.85, "GBP": 0.73, "KES": 110.5}
}

// demoConditions are the weather labels picked from for demo data
var demoConditions = []string{"Clear", "Clouds", "Rain", "Thunderstorm", "Drizzle"}

// commodityKey normalizes a commodity name for table lookups
func commodityKey(commodity string) string {
	return strings.ToLower(strings.TrimSpace(commodity))
}

// lookupMarket finds a market entry case-insensitively
func lookupMarket[V any](table map[string]V, market string) (V, bool) {
	market = strings.TrimSpace(market)
	if v, ok := table[market]; ok {
		return v, true
	}
	for name, v := range table {
		if strings.EqualFold(name, market) {
			return v, true
		}
	}
	var zero V
	return zero, false
}

// FallbackPrice returns the static KES price for commodity in market
func FallbackPrice(commodity, market string) float64 {
	byMarket, ok := kenyanPrices[commodityKey(commodity)]
	if !ok {
		return defaultPrice
	}
	if price, ok := lookupMarket(byMarket, market); ok {
		return price
	}
	if price, ok := byMarket[DefaultMarket]; ok {
		return price
	}
	return defaultPrice
}
