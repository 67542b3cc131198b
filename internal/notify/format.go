package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Alias1177/AgriPredictor/internal/insights"
	"github.com/Alias1177/AgriPredictor/models"
)

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func trendIcon(t models.Trend) string {
	switch t {
	case models.TrendUp:
		return "📈"
	case models.TrendDown:
		return "📉"
	default:
		return "➡️"
	}
}

// FormatPrediction renders one prediction as a Markdown message
func FormatPrediction(p *models.Prediction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s in %s*\n\n", trendIcon(p.Trend), esc(p.Commodity), esc(p.Market))
	fmt.Fprintf(&b, "Current: %.2f KES\n", p.CurrentPrice)
	fmt.Fprintf(&b, "Predicted: %.2f KES (%+.2f%%)\n", p.PredictedPrice, p.PredictedChangePercent)
	fmt.Fprintf(&b, "Trend: %s, confidence %.0f%%\n\n", p.Trend, p.ConfidenceScore*100)
	b.WriteString(esc(p.Reasoning))
	if p.DataSources.Price != "" {
		fmt.Fprintf(&b, "\n\n_Price source: %s_", esc(p.DataSources.Price))
	}
	return b.String()
}

// FormatHistory renders a short list of recent predictions
func FormatHistory(list []models.Prediction) string {
	if len(list) == 0 {
		return "No predictions yet. Try /predict maize Nairobi"
	}
	var b strings.Builder
	b.WriteString("*Recent predictions*\n")
	for _, p := range list {
		fmt.Fprintf(&b, "\n%s %s/%s: %.2f → %.2f KES (%s)",
			trendIcon(p.Trend), esc(p.Commodity), esc(p.Market), p.CurrentPrice, p.PredictedPrice, p.CreatedAt.Format("Jan 2 15:04"))
	}
	return b.String()
}

// FormatDigest renders the broadcast digest of insights and headlines
func FormatDigest(ins []insights.Insight, news []insights.NewsItem) string {
	var b strings.Builder
	b.WriteString("🌾 *Market digest*\n")
	for _, in := range ins {
		fmt.Fprintf(&b, "\n%s *%s* (%s): %s KES, confidence %.0f%%\n%s\n",
			trendIcon(models.Trend(in.Trend)), esc(in.Commodity), esc(in.Market), esc(in.PredictedPrice),
			in.ConfidenceScore*100, esc(in.Reasoning))
	}
	if len(news) > 0 {
		b.WriteString("\n📰 *Headlines*\n")
		for _, n := range news {
			fmt.Fprintf(&b, "• %s\n", esc(n.Title))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
