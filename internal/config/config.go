package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

// DefaultConfigFile is read when CONFIG_FILE is not set
const DefaultConfigFile = "config/default.toml"

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	LLM      LLMConfig      `toml:"llm"`
	Sources  SourcesConfig  `toml:"sources"`
	Telegram TelegramConfig `toml:"telegram"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Port            string `toml:"port"`
	CORSOrigin      string `toml:"cors_origin"`
	Env             string `toml:"env"`
	StaticDir       string `toml:"static_dir"`
	ShutdownTimeout int    `toml:"shutdown_timeout"` // seconds
}

// DatabaseConfig configures persistence. An empty URL selects the in-memory store.
type DatabaseConfig struct {
	URL            string `toml:"url"`
	ConnectTimeout int    `toml:"connect_timeout"` // seconds
}

// LLMConfig configures the hosted language model. An empty key disables it.
type LLMConfig struct {
	APIKey      string  `toml:"api_key"`
	BaseURL     string  `toml:"base_url"`
	Model       string  `toml:"model"`
	Timeout     int     `toml:"timeout"` // seconds
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
}

// SourcesConfig configures the external data sources
type SourcesConfig struct {
	RequestTimeout   int    `toml:"request_timeout"` // seconds
	FuelTimeout      int    `toml:"fuel_timeout"`    // seconds
	OutboundRPS      int    `toml:"outbound_rps"`
	WorldBankURL     string `toml:"world_bank_url"`
	OpenWeatherURL   string `toml:"openweather_url"`
	OpenWeatherKey   string `toml:"openweather_api_key"`
	NewsAPIURL       string `toml:"newsapi_url"`
	NewsAPIKey       string `toml:"newsapi_key"`
	ExchangeRateURL  string `toml:"exchangerate_url"`
	GasBuddyURL      string `toml:"gasbuddy_url"`
	MyGasFeedURL     string `toml:"mygasfeed_url"`
	FrankfurterURL   string `toml:"frankfurter_url"`
	MarketNewsRSSURL string `toml:"market_news_rss_url"`
}

// TelegramConfig configures the bot and broadcasts
type TelegramConfig struct {
	BotToken   string  `toml:"bot_token"`
	ChatIDs    []int64 `toml:"chat_ids"`
	SendPerSec int     `toml:"send_per_sec"`
}

// LogConfig configures zerolog
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // console or json
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "5000",
			CORSOrigin:      "*",
			Env:             "development",
			StaticDir:       "frontend/dist",
			ShutdownTimeout: 10,
		},
		Database: DatabaseConfig{
			ConnectTimeout: 30,
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama-3.1-8b-instant",
			Timeout:     8,
			MaxTokens:   120,
			Temperature: 0.3,
		},
		Sources: SourcesConfig{
			RequestTimeout:   10,
			FuelTimeout:      5,
			OutboundRPS:      5,
			WorldBankURL:     "https://api.worldbank.org",
			OpenWeatherURL:   "https://api.openweathermap.org",
			NewsAPIURL:       "https://newsapi.org",
			ExchangeRateURL:  "https://api.exchangerate-api.com",
			GasBuddyURL:      "https://www.gasbuddy.com/gaspricemap/county",
			MyGasFeedURL:     "http://api.mygasfeed.com/stations/radius/0/0/1/reg/price/rfej9napna.json",
			FrankfurterURL:   "https://api.frankfurter.app/latest?from=USD",
			MarketNewsRSSURL: "https://www.theeastafrican.co.ke/tea/rss",
		},
		Telegram: TelegramConfig{
			SendPerSec: 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load initializes configuration from defaults, the TOML file named by
// CONFIG_FILE and finally environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on actual environment variables")
	}

	return LoadFile(getEnvWithDefault("CONFIG_FILE", DefaultConfigFile))
}

// LoadFile is Load without the .env step. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Server.Port = getEnvWithDefault("PORT", c.Server.Port)
	c.Server.CORSOrigin = getEnvWithDefault("CORS_ORIGIN", c.Server.CORSOrigin)
	c.Server.Env = getEnvWithDefault("APP_ENV", getEnvWithDefault("NODE_ENV", c.Server.Env))
	c.Server.StaticDir = getEnvWithDefault("STATIC_DIR", c.Server.StaticDir)
	c.Server.ShutdownTimeout = getEnvIntWithDefault("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Database.URL = getEnvWithDefault("DATABASE_URL", c.Database.URL)
	c.Database.ConnectTimeout = getEnvIntWithDefault("DATABASE_CONNECT_TIMEOUT", c.Database.ConnectTimeout)

	c.LLM.APIKey = getEnvWithDefault("GROQ_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnvWithDefault("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Model = getEnvWithDefault("LLM_MODEL", c.LLM.Model)
	c.LLM.Timeout = getEnvIntWithDefault("LLM_TIMEOUT", c.LLM.Timeout)
	c.LLM.MaxTokens = getEnvIntWithDefault("LLM_MAX_TOKENS", c.LLM.MaxTokens)
	c.LLM.Temperature = getEnvFloatWithDefault("LLM_TEMPERATURE", c.LLM.Temperature)

	s := &c.Sources
	s.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", s.RequestTimeout)
	s.FuelTimeout = getEnvIntWithDefault("FUEL_TIMEOUT", s.FuelTimeout)
	s.OutboundRPS = getEnvIntWithDefault("OUTBOUND_RPS", s.OutboundRPS)
	s.WorldBankURL = getEnvWithDefault("WORLD_BANK_URL", s.WorldBankURL)
	s.OpenWeatherURL = getEnvWithDefault("OPENWEATHER_URL", s.OpenWeatherURL)
	s.OpenWeatherKey = getEnvWithDefault("OPENWEATHER_API_KEY", s.OpenWeatherKey)
	s.NewsAPIURL = getEnvWithDefault("NEWS_API_URL", s.NewsAPIURL)
	s.NewsAPIKey = getEnvWithDefault("NEWS_API_KEY", s.NewsAPIKey)
	s.ExchangeRateURL = getEnvWithDefault("EXCHANGE_RATE_URL", s.ExchangeRateURL)
	s.GasBuddyURL = getEnvWithDefault("GASBUDDY_URL", s.GasBuddyURL)
	s.MyGasFeedURL = getEnvWithDefault("MYGASFEED_URL", s.MyGasFeedURL)
	s.FrankfurterURL = getEnvWithDefault("FRANKFURTER_URL", s.FrankfurterURL)
	s.MarketNewsRSSURL = getEnvWithDefault("MARKET_NEWS_RSS_URL", s.MarketNewsRSSURL)

	c.Telegram.BotToken = getEnvWithDefault("TELEGRAM_BOT_TOKEN", c.Telegram.BotToken)
	c.Telegram.SendPerSec = getEnvIntWithDefault("TELEGRAM_SEND_PER_SEC", c.Telegram.SendPerSec)
	if value := os.Getenv("TELEGRAM_CHAT_IDS"); value != "" {
		ids, err := parseChatIDs(value)
		if err != nil {
			return err
		}
		c.Telegram.ChatIDs = ids
	}

	c.Log.Level = getEnvWithDefault("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvWithDefault("LOG_FORMAT", c.Log.Format)
	return nil
}

// IsProduction reports whether the server should serve the built frontend
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, "production")
}

// Seconds converts a seconds setting into a duration
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func parseChatIDs(value string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_IDS entry %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
