package sources

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpClient "github.com/Alias1177/AgriPredictor/internal/platform/http"
)

const (
	SourceExchangeRate  = "ExchangeRate-API"
	SourceFallbackRates = "Fallback data"
	DefaultBaseCurrency = "USD"
)

// CurrencyConfig configures the currency adapter
type CurrencyConfig struct {
	BaseURL        string
	Timeout        time.Duration
	RequestsPerSec int
}

// CurrencyData is an exchange-rate table keyed by currency code
type CurrencyData struct {
	BaseCurrency string             `json:"baseCurrency"`
	Rates        map[string]float64 `json:"rates"`
	Source       string             `json:"source"`
	IsRealData   bool               `json:"isRealData"`
	Note         string             `json:"note,omitempty"`
	LastUpdated  time.Time          `json:"lastUpdated"`
}

// KES returns the shilling rate if the table has one
func (c CurrencyData) KES() (float64, bool) {
	rate, ok := c.Rates["KES"]
	return rate, ok
}

// CurrencyAdapter reads exchange rates from ExchangeRate-API
type CurrencyAdapter struct {
	baseURL string
	client  *httpClient.Client
	logger  zerolog.Logger
}

// NewCurrencyAdapter creates a currency adapter
func NewCurrencyAdapter(cfg CurrencyConfig) *CurrencyAdapter {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &CurrencyAdapter{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		client:  newClient(cfg.Timeout, cfg.RequestsPerSec),
		logger:  log.With().Str("component", "currency_source").Logger(),
	}
}

// Rates returns the live table for base, or the fallback table on failure
func (a *CurrencyAdapter) Rates(ctx context.Context, base string) Signal[CurrencyData] {
	if base == "" {
		base = DefaultBaseCurrency
	}

	var resp struct {
		Rates map[string]float64 `json:"rates"`
	}
	err := a.client.GetJSON(ctx, a.baseURL+"/v4/latest/"+url.PathEscape(base), &resp)
	if err == nil && len(resp.Rates) == 0 {
		err = errors.New("exchange rate payload has no rates")
	}
	if err != nil {
		a.logger.Warn().Err(err).Str("base", base).Msg("Currency service error, using fallback rates")
		return Ok(CurrencyData{
			BaseCurrency: base,
			Rates:        fallbackRates(),
			Source:       SourceFallbackRates,
			Note:         SourceFallbackRates,
			LastUpdated:  time.Now(),
		})
	}

	return Ok(CurrencyData{
		BaseCurrency: base,
		Rates:        resp.Rates,
		Source:       SourceExchangeRate,
		IsRealData:   true,
		LastUpdated:  time.Now(),
	})
}
