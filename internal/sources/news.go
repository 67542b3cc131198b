package sources

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpClient "github.com/Alias1177/AgriPredictor/internal/platform/http"
)

const (
	SourceNewsAPI       = "NewsAPI"
	SourceDemoSentiment = "Demo sentiment data"
)

var (
	positiveWords = []string{"rise", "gain", "boom", "growth", "surge", "bullish", "profit"}
	negativeWords = []string{"fall", "drop", "decline", "crash", "bearish", "slump", "loss"}
)

// NewsConfig configures the news adapter
type NewsConfig struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	RequestsPerSec int
	Rand           Rand
}

// NewsData is the headline sentiment for a commodity
type NewsData struct {
	Commodity    string    `json:"commodity"`
	Sentiment    float64   `json:"sentiment"`
	ArticleCount int       `json:"articleCount"`
	Source       string    `json:"source"`
	IsRealData   bool      `json:"isRealData"`
	Note         string    `json:"note,omitempty"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

// Article is a single search hit
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Source      struct {
		Name string `json:"name"`
	} `json:"source"`
}

type newsResponse struct {
	Status   string    `json:"status"`
	Message  string    `json:"message"`
	Articles []Article `json:"articles"`
}

// NewsAdapter scores headline sentiment from NewsAPI
type NewsAdapter struct {
	baseURL string
	apiKey  string
	client  *httpClient.Client
	rnd     Rand
	logger  zerolog.Logger
}

// NewNewsAdapter creates a news adapter
func NewNewsAdapter(cfg NewsConfig) *NewsAdapter {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Rand == nil {
		cfg.Rand = DefaultRand
	}
	return &NewsAdapter{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  newClient(cfg.Timeout, cfg.RequestsPerSec),
		rnd:     cfg.Rand,
		logger:  log.With().Str("component", "news_source").Logger(),
	}
}

// Sentiment scores recent coverage of commodity prices, or returns demo data on failure
func (a *NewsAdapter) Sentiment(ctx context.Context, commodity string) Signal[NewsData] {
	articles, err := a.Articles(ctx, ArticleQuery{Query: commodity + " prices", SortBy: "relevancy", PageSize: 10})
	if err != nil {
		a.logger.Warn().Err(err).Str("commodity", commodity).Msg("News service error, using demo sentiment")
		return Ok(NewsData{
			Commodity:    commodity,
			Sentiment:    a.rnd.Float64()*2 - 1,
			ArticleCount: 5,
			Source:       SourceDemoSentiment,
			Note:         SourceDemoSentiment,
			LastUpdated:  time.Now(),
		})
	}

	return Ok(NewsData{
		Commodity:    commodity,
		Sentiment:    ScoreSentiment(articles),
		ArticleCount: len(articles),
		Source:       SourceNewsAPI,
		IsRealData:   true,
		LastUpdated:  time.Now(),
	})
}

// ArticleQuery describes one search against the everything endpoint
type ArticleQuery struct {
	Query    string
	SortBy   string // relevancy, popularity or publishedAt
	PageSize int
}

// Articles runs an English-language search and returns the hits
func (a *NewsAdapter) Articles(ctx context.Context, query ArticleQuery) ([]Article, error) {
	if a.apiKey == "" {
		return nil, errors.New("news API key not configured")
	}

	q := url.Values{}
	q.Set("q", query.Query)
	q.Set("language", "en")
	if query.SortBy != "" {
		q.Set("sortBy", query.SortBy)
	}
	if query.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(query.PageSize))
	}
	q.Set("apiKey", a.apiKey)

	var resp newsResponse
	if err := a.client.GetJSON(ctx, a.baseURL+"/v2/everything?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("news API status %q: %s", resp.Status, resp.Message)
	}
	return resp.Articles, nil
}

// ScoreSentiment counts keyword hits across articles and squashes the
// per-article average into (-1, 1)
func ScoreSentiment(articles []Article) float64 {
	score := 0
	for _, article := range articles {
		text := strings.ToLower(article.Title + " " + article.Description)
		for _, word := range positiveWords {
			if strings.Contains(text, word) {
				score++
			}
		}
		for _, word := range negativeWords {
			if strings.Contains(text, word) {
				score--
			}
		}
	}
	return math.Tanh(float64(score) / float64(max(len(articles), 1)))
}
