package enhance

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/Alias1177/AgriPredictor/models"
)

func TestParseInsight(t *testing.T) {
	tests := []struct {
		name      string
		reply     string
		wantText  string
		wantDelta float64
		wantErr   bool
	}{
		{"documented example", "Good rainfall supports supply|0.06", "Good rainfall supports supply", 0.06, false},
		{"quoted", `"Good rainfall supports supply|0.06"`, "Good rainfall supports supply", 0.06, false},
		{"no separator", "Supply is steady", "Supply is steady", 0.05, false},
		{"above range", "Strong demand|0.4", "Strong demand", 0.1, false},
		{"below range", "Glut expected|-0.25", "Glut expected", -0.1, false},
		{"explicit zero", "Flat outlook|0", "Flat outlook", 0, false},
		{"unreadable delta", "Mixed signals|high", "Mixed signals", 0.05, false},
		{"delta with suffix", "Harvest arriving|+0.03 (moderate)", "Harvest arriving", 0.03, false},
		{"split on last separator", "Prices|costs rising|0.02", "Prices|costs rising", 0.02, false},
		{"surrounding whitespace", "  Rains ease transport | -0.04 \n", "Rains ease transport", -0.04, false},
		{"empty", "   ", "", 0, true},
		{"only delta", "|0.05", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInsight(tt.reply)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Text != tt.wantText {
				t.Errorf("text: got %q, want %q", got.Text, tt.wantText)
			}
			if math.Abs(got.ConfidenceDelta-tt.wantDelta) > 1e-9 {
				t.Errorf("delta: got %v, want %v", got.ConfidenceDelta, tt.wantDelta)
			}
		})
	}
}

func TestRuleInsight(t *testing.T) {
	tests := []struct {
		name      string
		in        Context
		wantDelta float64
		wantText  string
	}{
		{
			name:      "maize in Nairobi",
			in:        Context{Commodity: "maize", Market: "Nairobi", PetrolPrice: 155},
			wantDelta: 0.10,
			wantText:  "Maize prices influenced by Central Kenya rainfall and harvest cycles. Major urban market with stable demand patterns",
		},
		{
			name:      "wheat with expensive fuel",
			in:        Context{Commodity: "wheat", Market: "Mombasa", PetrolPrice: 180},
			wantDelta: 0.00,
		},
		{
			name:      "wheat with cheap fuel",
			in:        Context{Commodity: "wheat", Market: "Kisumu", PetrolPrice: 130},
			wantDelta: 0.07,
		},
		{
			name:      "fuel ignored for insensitive commodity",
			in:        Context{Commodity: "beans", Market: "Nakuru", PetrolPrice: 200},
			wantDelta: 0.10,
		},
		{
			name:      "good weather",
			in:        Context{Commodity: "tomatoes", Market: "Thika", WeatherCondition: "Good"},
			wantDelta: 0.11,
		},
		{
			name:      "bad weather",
			in:        Context{Commodity: "potatoes", Market: "Eldoret", WeatherCondition: "bad harvest weather"},
			wantDelta: 0.09,
		},
		{
			name:      "unknown commodity and market",
			in:        Context{Commodity: "cassava", Market: "Garissa"},
			wantDelta: 0.05,
			wantText:  "Standard commodity market analysis applied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RuleInsight(tt.in)
			if math.Abs(got.ConfidenceDelta-tt.wantDelta) > 1e-9 {
				t.Errorf("delta: got %v, want %v", got.ConfidenceDelta, tt.wantDelta)
			}
			if tt.wantText != "" && got.Text != tt.wantText {
				t.Errorf("text: got %q, want %q", got.Text, tt.wantText)
			}
		})
	}
}

type stubCompleter struct {
	reply  string
	err    error
	prompt string
}

func (s *stubCompleter) GenerateCompletion(_ context.Context, _, prompt string) (string, error) {
	s.prompt = prompt
	return s.reply, s.err
}

func TestServiceModelPath(t *testing.T) {
	tests := []struct {
		name     string
		start    float64
		reply    string
		wantConf float64
		wantText string
	}{
		{"adds delta", 0.6, "Good rainfall supports supply|0.06", 0.66, "Good rainfall supports supply"},
		{"capped at 0.95", 0.93, "Very strong|0.1", 0.95, "Very strong"},
		{"floored at 0.3", 0.35, "Weak|-0.1", 0.3, "Weak"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &stubCompleter{reply: tt.reply}
			svc := NewService(NewModelEnhancer(completer))

			p := &models.Prediction{ConfidenceScore: tt.start}
			svc.Apply(context.Background(), Context{Commodity: "maize", Market: "Nairobi", PetrolPrice: 155}, p)

			if p.ConfidenceScore != tt.wantConf {
				t.Errorf("confidence: got %v, want %v", p.ConfidenceScore, tt.wantConf)
			}
			if p.Reasoning != tt.wantText || !p.AIEnhanced {
				t.Errorf("got reasoning %q enhanced %v", p.Reasoning, p.AIEnhanced)
			}
			if p.EnhancementSource != models.EnhancementModel || p.Factors.AIAnalysis != ModelAnalysisLabel {
				t.Errorf("got source %q analysis %q", p.EnhancementSource, p.Factors.AIAnalysis)
			}
			if !strings.Contains(completer.prompt, "maize in Nairobi") {
				t.Errorf("prompt missing commodity and market: %q", completer.prompt)
			}
		})
	}
}

func TestServiceFallsBackToRules(t *testing.T) {
	tests := []struct {
		name  string
		model Enhancer
	}{
		{"no model", nil},
		{"disabled model", NewModelEnhancer(nil)},
		{"call failure", NewModelEnhancer(&stubCompleter{err: errors.New("status 503")})},
		{"unparsable reply", NewModelEnhancer(&stubCompleter{reply: "  "})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &models.Prediction{ConfidenceScore: 0.88}
			NewService(tt.model).Apply(context.Background(), Context{Commodity: "maize", Market: "Nairobi"}, p)

			if p.ConfidenceScore != 0.92 {
				t.Errorf("confidence: got %v, want 0.92", p.ConfidenceScore)
			}
			if p.EnhancementSource != models.EnhancementRules || p.Factors.AIAnalysis != RulesAnalysisLabel {
				t.Errorf("got source %q analysis %q", p.EnhancementSource, p.Factors.AIAnalysis)
			}
			if !p.AIEnhanced || !strings.HasPrefix(p.Reasoning, "Maize prices") {
				t.Errorf("got reasoning %q enhanced %v", p.Reasoning, p.AIEnhanced)
			}
		})
	}
}

func TestRulesConfidenceFloor(t *testing.T) {
	p := &models.Prediction{ConfidenceScore: 0.1}
	NewService(nil).Apply(context.Background(), Context{Commodity: "rice", Market: "Mombasa"}, p)

	if p.ConfidenceScore != 0.4 {
		t.Errorf("confidence: got %v, want 0.4", p.ConfidenceScore)
	}
}
