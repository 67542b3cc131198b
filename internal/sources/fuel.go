package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpClient "github.com/Alias1177/AgriPredictor/internal/platform/http"
	"github.com/Alias1177/AgriPredictor/models"
)

const (
	SourceGasBuddy      = "GasBuddy + Kenya Adjustment"
	SourceMyGasFeed     = "MyGasFeed + Kenya Adjustment"
	SourceGlobalAverage = "Global Average + Kenya Adjustment"
	SourceKenyaERC      = "Kenyan Energy Regulatory Commission"
)

// Unit conversion and markups used to turn reference prices into KES per liter
const (
	litersPerGallon    = 3.785
	usdToKES           = 150.0
	usAveragePerGal    = 3.50
	usDieselPerGal     = 3.80
	globalPetrolUSD    = 1.10
	globalDieselUSD    = 1.05
	petrolMarkup       = 1.3
	dieselMarkup       = 1.2
	dieselToPetrol     = 0.9
	globalPetrolMarkup = 1.4
	globalDieselMarkup = 1.3
)

// FuelData is the pump price estimate in KES per liter
type FuelData struct {
	Petrol      float64   `json:"petrol"`
	Diesel      float64   `json:"diesel"`
	Unit        string    `json:"unit"`
	Source      string    `json:"source"`
	IsRealData  bool      `json:"isRealData"`
	Note        string    `json:"note,omitempty"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// FuelStrategy is one live source of fuel prices
type FuelStrategy interface {
	Name() string
	Fetch(ctx context.Context) (FuelData, error)
}

// FuelConfig configures the fuel adapter and its default strategies
type FuelConfig struct {
	GasBuddyURL    string
	MyGasFeedURL   string
	FrankfurterURL string
	Timeout        time.Duration
	RequestsPerSec int
}

// FuelAdapter evaluates its strategies in order and keeps the first success
type FuelAdapter struct {
	strategies []FuelStrategy
	logger     zerolog.Logger
}

// NewFuelAdapter creates a fuel adapter with the GasBuddy, MyGasFeed and
// Frankfurter strategies in that order
func NewFuelAdapter(cfg FuelConfig) *FuelAdapter {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	client := newClient(cfg.Timeout, cfg.RequestsPerSec)
	return NewFuelAdapterWithStrategies(
		&gasBuddyStrategy{url: cfg.GasBuddyURL, client: client},
		&myGasFeedStrategy{url: cfg.MyGasFeedURL, client: client},
		&frankfurterStrategy{url: cfg.FrankfurterURL, client: client},
	)
}

// NewFuelAdapterWithStrategies creates a fuel adapter over an explicit strategy list
func NewFuelAdapterWithStrategies(strategies ...FuelStrategy) *FuelAdapter {
	return &FuelAdapter{
		strategies: strategies,
		logger:     log.With().Str("component", "fuel_source").Logger(),
	}
}

// Prices returns the first live estimate, or the regulator's reference prices
func (a *FuelAdapter) Prices(ctx context.Context) Signal[FuelData] {
	for _, s := range a.strategies {
		data, err := s.Fetch(ctx)
		if err != nil {
			a.logger.Debug().Err(err).Str("strategy", s.Name()).Msg("Fuel source failed")
			continue
		}
		return Ok(data)
	}

	a.logger.Warn().Msg("All fuel sources failed, using Kenyan fuel prices")
	return Ok(FuelData{
		Petrol:      FallbackPetrol,
		Diesel:      FallbackDiesel,
		Unit:        "KES/liter",
		Source:      SourceKenyaERC,
		IsRealData:  false,
		Note:        "Using realistic Kenyan fuel prices",
		LastUpdated: time.Now(),
	})
}

func liveFuel(petrol, diesel float64, source string) FuelData {
	return FuelData{
		Petrol:      petrol,
		Diesel:      diesel,
		Unit:        "KES/liter",
		Source:      source,
		IsRealData:  true,
		LastUpdated: time.Now(),
	}
}

// gasBuddyStrategy only checks reachability and then applies the US average
type gasBuddyStrategy struct {
	url    string
	client *httpClient.Client
}

func (s *gasBuddyStrategy) Name() string { return "gasbuddy" }

func (s *gasBuddyStrategy) Fetch(ctx context.Context) (FuelData, error) {
	if s.url == "" {
		return FuelData{}, errors.New("gasbuddy url not configured")
	}
	if err := s.client.GetJSON(ctx, s.url, nil); err != nil {
		return FuelData{}, err
	}

	petrol := models.RoundInt(usAveragePerGal / litersPerGallon * usdToKES * petrolMarkup)
	diesel := models.RoundInt(petrol * dieselToPetrol)
	return liveFuel(petrol, diesel, SourceGasBuddy), nil
}

// flexFloat accepts numbers and numeric strings; anything else decodes as zero
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

type myGasFeedResponse struct {
	Stations []struct {
		RegPrice    flexFloat `json:"reg_price"`
		DieselPrice flexFloat `json:"diesel_price"`
	} `json:"stations"`
}

// myGasFeedStrategy converts the first station's US prices
type myGasFeedStrategy struct {
	url    string
	client *httpClient.Client
}

func (s *myGasFeedStrategy) Name() string { return "mygasfeed" }

func (s *myGasFeedStrategy) Fetch(ctx context.Context) (FuelData, error) {
	if s.url == "" {
		return FuelData{}, errors.New("mygasfeed url not configured")
	}

	var resp myGasFeedResponse
	if err := s.client.GetJSON(ctx, s.url, &resp); err != nil {
		return FuelData{}, err
	}
	if len(resp.Stations) == 0 {
		return FuelData{}, errors.New("mygasfeed returned no stations")
	}

	station := resp.Stations[0]
	petrolUSD := float64(station.RegPrice)
	if petrolUSD == 0 {
		petrolUSD = usAveragePerGal
	}
	dieselUSD := float64(station.DieselPrice)
	if dieselUSD == 0 {
		dieselUSD = usDieselPerGal
	}

	petrol := models.RoundInt(petrolUSD / litersPerGallon * usdToKES * petrolMarkup)
	diesel := models.RoundInt(dieselUSD / litersPerGallon * usdToKES * dieselMarkup)
	return liveFuel(petrol, diesel, SourceMyGasFeed), nil
}

// frankfurterStrategy scales global average prices by the live USD/KES rate
type frankfurterStrategy struct {
	url    string
	client *httpClient.Client
}

func (s *frankfurterStrategy) Name() string { return "frankfurter" }

func (s *frankfurterStrategy) Fetch(ctx context.Context) (FuelData, error) {
	if s.url == "" {
		return FuelData{}, errors.New("frankfurter url not configured")
	}

	var resp struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := s.client.GetJSON(ctx, s.url, &resp); err != nil {
		return FuelData{}, fmt.Errorf("frankfurter rates: %w", err)
	}
	if resp.Rates == nil {
		return FuelData{}, errors.New("frankfurter response has no rates")
	}

	kes := resp.Rates["KES"]
	if kes == 0 {
		kes = usdToKES
	}

	petrol := models.RoundInt(globalPetrolUSD * kes * globalPetrolMarkup)
	diesel := models.RoundInt(globalDieselUSD * kes * globalDieselMarkup)
	return liveFuel(petrol, diesel, SourceGlobalAverage), nil
}
