package insights

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/AgriPredictor/internal/sources"
)

const (
	marketNewsQuery = "commodity market kenya"
	marketNewsLimit = 8
)

// trackedCommodities are detected in headlines, in priority order
var trackedCommodities = []string{"maize", "coffee", "tea", "wheat", "beans", "tomatoes"}

// NewsItem is one market headline
type NewsItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Commodity string `json:"commodity"`
	Region    string `json:"region"`
	Impact    string `json:"impact"`
	Trend     string `json:"trend"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Urgency   string `json:"urgency"`
	Source    string `json:"source"`
	Verified  bool   `json:"verified"`
	URL       string `json:"url"`
}

// ArticleSearcher runs a headline search
type ArticleSearcher interface {
	Articles(ctx context.Context, query sources.ArticleQuery) ([]sources.Article, error)
}

// NewsFeed serves market headlines from the news search, then an RSS feed
type NewsFeed struct {
	search ArticleSearcher
	rssURL string
	parser *gofeed.Parser
	logger zerolog.Logger
}

// NewNewsFeed creates a news feed. Either source may be empty.
func NewNewsFeed(search ArticleSearcher, rssURL string, timeout time.Duration) *NewsFeed {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}

	return &NewsFeed{
		search: search,
		rssURL: rssURL,
		parser: parser,
		logger: log.With().Str("component", "market_news").Logger(),
	}
}

// Latest returns up to eight headlines; an empty list when every source fails
func (f *NewsFeed) Latest(ctx context.Context) []NewsItem {
	if f.search != nil {
		articles, err := f.search.Articles(ctx, sources.ArticleQuery{Query: marketNewsQuery, SortBy: "publishedAt"})
		if err == nil && len(articles) > 0 {
			return fromArticles(articles)
		}
		if err != nil {
			f.logger.Warn().Err(err).Msg("News search failed, trying RSS feed")
		}
	}

	if f.rssURL != "" {
		feed, err := f.parser.ParseURLWithContext(f.rssURL, ctx)
		if err == nil {
			return fromFeed(feed)
		}
		f.logger.Warn().Err(err).Str("url", f.rssURL).Msg("RSS feed failed")
	}

	return []NewsItem{}
}

func fromArticles(articles []sources.Article) []NewsItem {
	items := make([]NewsItem, 0, marketNewsLimit)
	for _, a := range articles {
		if len(items) == marketNewsLimit {
			break
		}
		items = append(items, newItem(a.Title, a.Source.Name, a.URL))
	}
	return items
}

func fromFeed(feed *gofeed.Feed) []NewsItem {
	items := make([]NewsItem, 0, marketNewsLimit)
	for _, it := range feed.Items {
		if len(items) == marketNewsLimit {
			break
		}
		items = append(items, newItem(it.Title, feed.Title, it.Link))
	}
	return items
}

func newItem(title, source, url string) NewsItem {
	return NewsItem{
		ID:        uuid.NewString(),
		Title:     title,
		Commodity: ExtractCommodity(title),
		Region:    "Kenya",
		Impact:    "medium",
		Trend:     "volatile",
		Timestamp: "Recently",
		Type:      "news",
		Urgency:   "medium",
		Source:    source,
		Verified:  true,
		URL:       url,
	}
}

// ExtractCommodity names the first tracked commodity in a headline, or "General"
func ExtractCommodity(title string) string {
	lower := strings.ToLower(title)
	for _, c := range trackedCommodities {
		if strings.Contains(lower, c) {
			return strings.ToUpper(c[:1]) + c[1:]
		}
	}
	return "General"
}
