package sources

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpClient "github.com/Alias1177/AgriPredictor/internal/platform/http"
)

const (
	SourceOpenWeather = "OpenWeatherMap"
	SourceDemoWeather = "Demo weather data"
)

// WeatherConfig configures the weather adapter
type WeatherConfig struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	RequestsPerSec int
	Rand           Rand
}

// WeatherData describes current conditions in a region and their price impact
type WeatherData struct {
	Region      string    `json:"region"`
	Temperature float64   `json:"temperature"`
	Condition   string    `json:"conditions"`
	Humidity    float64   `json:"humidity"`
	Pressure    float64   `json:"pressure,omitempty"`
	WindSpeed   float64   `json:"windSpeed"`
	Impact      float64   `json:"impact"`
	Source      string    `json:"source"`
	IsRealData  bool      `json:"isRealData"`
	Note        string    `json:"note,omitempty"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// WeatherAdapter reads current conditions from OpenWeatherMap
type WeatherAdapter struct {
	baseURL string
	apiKey  string
	client  *httpClient.Client
	rnd     Rand
	logger  zerolog.Logger
}

// NewWeatherAdapter creates a weather adapter
func NewWeatherAdapter(cfg WeatherConfig) *WeatherAdapter {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Rand == nil {
		cfg.Rand = DefaultRand
	}
	return &WeatherAdapter{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  newClient(cfg.Timeout, cfg.RequestsPerSec),
		rnd:     cfg.Rand,
		logger:  log.With().Str("component", "weather_source").Logger(),
	}
}

type openWeatherResponse struct {
	Weather []struct {
		Main string `json:"main"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
		Pressure float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// Weather returns live conditions for region, or demo data on any failure
func (a *WeatherAdapter) Weather(ctx context.Context, region string) Signal[WeatherData] {
	if region == "" {
		region = DefaultMarket
	}

	data, err := a.fetch(ctx, region)
	if err != nil {
		a.logger.Warn().Err(err).Str("region", region).Msg("Weather service error, using demo data")
		return Ok(a.demoWeather(region))
	}
	return Ok(data)
}

func (a *WeatherAdapter) fetch(ctx context.Context, region string) (WeatherData, error) {
	if a.apiKey == "" {
		return WeatherData{}, errors.New("weather API key not configured")
	}

	q := url.Values{}
	q.Set("q", region)
	q.Set("appid", a.apiKey)
	q.Set("units", "metric")

	var resp openWeatherResponse
	if err := a.client.GetJSON(ctx, a.baseURL+"/data/2.5/weather?"+q.Encode(), &resp); err != nil {
		return WeatherData{}, err
	}
	if len(resp.Weather) == 0 {
		return WeatherData{}, fmt.Errorf("weather payload for %q has no conditions", region)
	}

	condition := resp.Weather[0].Main
	return WeatherData{
		Region:      region,
		Temperature: resp.Main.Temp,
		Condition:   condition,
		Humidity:    resp.Main.Humidity,
		Pressure:    resp.Main.Pressure,
		WindSpeed:   resp.Wind.Speed,
		Impact:      ImpactScore(condition, resp.Main.Temp, resp.Main.Humidity, resp.Wind.Speed),
		Source:      SourceOpenWeather,
		IsRealData:  true,
		LastUpdated: time.Now(),
	}, nil
}

func (a *WeatherAdapter) demoWeather(region string) WeatherData {
	return WeatherData{
		Region:      region,
		Temperature: 22 + a.rnd.Float64()*10,
		Condition:   demoConditions[a.rnd.IntN(len(demoConditions))],
		Humidity:    50 + a.rnd.Float64()*40,
		Impact:      a.rnd.Float64()*0.3 + 0.1,
		Source:      SourceDemoWeather,
		IsRealData:  false,
		Note:        SourceDemoWeather,
		LastUpdated: time.Now(),
	}
}

// ImpactScore estimates how strongly conditions disrupt supply, within [0.02, 0.8]
func ImpactScore(condition string, temp, humidity, windSpeed float64) float64 {
	impact := 0.0

	switch condition {
	case "Rain":
		impact += 0.25 // transport delays
	case "Thunderstorm":
		impact += 0.35
	case "Drizzle":
		impact += 0.15
	case "Clouds":
		impact += 0.05
	}

	if temp > 32 {
		impact += 0.15 // spoilage risk
	}
	if temp > 28 && temp <= 32 {
		impact += 0.08
	}
	if temp < 15 {
		impact += 0.10
	}

	if humidity > 75 {
		impact += 0.12
	}
	if humidity < 30 {
		impact += 0.05
	}

	if windSpeed > 6 {
		impact += 0.08
	}

	if condition == "Rain" && temp > 30 {
		impact += 0.10
	}
	if condition == "Clouds" && humidity > 80 {
		impact += 0.06
	}

	impact += 0.02

	return min(max(impact, 0.02), 0.8)
}

// ImpactNotes explains in plain words what drives the weather impact
func ImpactNotes(w WeatherData) []string {
	var notes []string

	switch w.Condition {
	case "Rain":
		notes = append(notes, "Rain causing transport delays")
	case "Thunderstorm":
		notes = append(notes, "Storms disrupting supply chains")
	case "Drizzle":
		notes = append(notes, "Light rain slowing deliveries")
	}
	if w.Temperature > 32 {
		notes = append(notes, "High temperatures increasing spoilage risk")
	}
	if w.Humidity > 75 {
		notes = append(notes, "High humidity affecting food preservation")
	}
	if w.WindSpeed > 6 {
		notes = append(notes, "Strong winds impacting transport")
	}

	if len(notes) == 0 {
		return []string{"Normal weather conditions"}
	}
	return notes
}
