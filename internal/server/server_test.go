package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Alias1177/AgriPredictor/internal/config"
	"github.com/Alias1177/AgriPredictor/internal/database"
	"github.com/Alias1177/AgriPredictor/internal/insights"
	"github.com/Alias1177/AgriPredictor/internal/predictions"
	"github.com/Alias1177/AgriPredictor/models"
)

type stubGenerator struct {
	calls int
	err   error
}

func (g *stubGenerator) Generate(_ context.Context, commodity, market string) (*models.Prediction, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &models.Prediction{
		Commodity:              commodity,
		Market:                 market,
		CurrentPrice:           80,
		PredictedPrice:         80.68,
		PredictedChangePercent: 0.85,
		Trend:                  models.TrendStable,
		ConfidenceScore:        0.58,
	}, nil
}

type staticInsights struct{}

func (staticInsights) MarketInsights(context.Context) []insights.Insight {
	return []insights.Insight{{ID: 1, Commodity: "maize"}}
}

type staticNews struct{}

func (staticNews) Latest(context.Context) []insights.NewsItem {
	return []insights.NewsItem{{Title: "Maize prices ease", Commodity: "Maize"}}
}

func newTestServer(gen *stubGenerator, store models.PredictionStore, cfg config.ServerConfig, production bool) *httptest.Server {
	svc := predictions.NewService(gen, store)
	srv := NewServer(cfg, production, svc, staticInsights{}, staticNews{})
	return httptest.NewServer(srv.Handler())
}

func defaultServerConfig() config.ServerConfig {
	return config.Defaults().Server
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/api/predictions", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func TestCreatePrediction(t *testing.T) {
	gen := &stubGenerator{}
	ts := newTestServer(gen, database.NewMemoryStore(), defaultServerConfig(), false)
	defer ts.Close()

	resp := post(t, ts.URL, `{"commodity":"maize","market":"Nairobi"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var body struct {
		Success    bool              `json:"success"`
		Prediction models.Prediction `json:"prediction"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	p := body.Prediction
	if !body.Success || p.Commodity != "maize" || p.Market != "Nairobi" || p.ID == "" {
		t.Errorf("unexpected prediction: %+v", p)
	}
	switch p.Trend {
	case models.TrendUp, models.TrendDown, models.TrendStable:
	default:
		t.Errorf("invalid trend %q", p.Trend)
	}
}

func TestCreatePredictionBadRequest(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing commodity", `{"market":"Nairobi"}`},
		{"missing market", `{"commodity":"maize"}`},
		{"malformed json", `{"commodity":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &stubGenerator{}
			store := database.NewMemoryStore()
			ts := newTestServer(gen, store, defaultServerConfig(), false)
			defer ts.Close()

			resp := post(t, ts.URL, tt.body)
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
			var body struct {
				Success bool   `json:"success"`
				Error   string `json:"error"`
			}
			json.NewDecoder(resp.Body).Decode(&body)
			if body.Success || body.Error != "Commodity and market are required" {
				t.Errorf("unexpected body: %+v", body)
			}
			if gen.calls != 0 {
				t.Error("engine must not run for invalid requests")
			}
			if stored, _ := store.ListRecent(context.Background(), 10); len(stored) != 0 {
				t.Errorf("nothing should be persisted, got %d", len(stored))
			}
		})
	}
}

func TestCreatePredictionEngineFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("too many data sources failed")}
	ts := newTestServer(gen, database.NewMemoryStore(), defaultServerConfig(), false)
	defer ts.Close()

	resp := post(t, ts.URL, `{"commodity":"maize","market":"Nairobi"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	var body struct {
		Error string `json:"error"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if !strings.HasPrefix(body.Error, "Prediction failed: ") {
		t.Errorf("unexpected error %q", body.Error)
	}
}

func TestListPredictions(t *testing.T) {
	ts := newTestServer(&stubGenerator{}, database.NewMemoryStore(), defaultServerConfig(), false)
	defer ts.Close()

	for i := 0; i < 55; i++ {
		resp := post(t, ts.URL, fmt.Sprintf(`{"commodity":"crop%d","market":"Nairobi"}`, i))
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create %d: status %d", i, resp.StatusCode)
		}
	}

	resp, err := http.Get(ts.URL + "/api/predictions")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Success     bool                `json:"success"`
		Count       int                 `json:"count"`
		Predictions []models.Prediction `json:"predictions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 50 || len(body.Predictions) != 50 {
		t.Fatalf("expected 50 predictions, got %d", body.Count)
	}
	if body.Predictions[0].Commodity != "crop54" || body.Predictions[49].Commodity != "crop5" {
		t.Errorf("expected newest first, got %s ... %s", body.Predictions[0].Commodity, body.Predictions[49].Commodity)
	}
	for i := 1; i < len(body.Predictions); i++ {
		if body.Predictions[i].CreatedAt.After(body.Predictions[i-1].CreatedAt) {
			t.Fatalf("predictions out of order at %d", i)
		}
	}
}

func TestListPredictionsEmpty(t *testing.T) {
	ts := newTestServer(&stubGenerator{}, database.NewMemoryStore(), defaultServerConfig(), false)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/predictions")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var raw map[string]json.RawMessage
	json.NewDecoder(resp.Body).Decode(&raw)
	if string(raw["predictions"]) != "[]" || string(raw["count"]) != "0" {
		t.Errorf("unexpected body: %s / %s", raw["predictions"], raw["count"])
	}
}

func TestReadEndpoints(t *testing.T) {
	ts := newTestServer(&stubGenerator{}, database.NewMemoryStore(), defaultServerConfig(), false)
	defer ts.Close()

	tests := []struct {
		path string
		key  string
	}{
		{"/api/health", "status"},
		{"/api/predictions/health", "success"},
		{"/api/market-insights", "insights"},
		{"/api/market-news", "news"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type %q", ct)
			}
			var body map[string]json.RawMessage
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if _, ok := body[tt.key]; !ok {
				t.Errorf("missing %q in %v", tt.key, body)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(&stubGenerator{}, database.NewMemoryStore(), defaultServerConfig(), false)
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/predictions", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow origin %q", got)
	}
}

func TestSPAFallback(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644)
	os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644)

	cfg := defaultServerConfig()
	cfg.StaticDir = dir
	ts := newTestServer(&stubGenerator{}, database.NewMemoryStore(), cfg, true)
	defer ts.Close()

	tests := map[string]string{
		"/":             "<html>app</html>",
		"/app.js":       "console.log(1)",
		"/predictions":  "<html>app</html>",
		"/../secret.db": "<html>app</html>",
	}
	for path, want := range tests {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		if got := readAll(t, resp); got != want {
			t.Errorf("%s: got %q, want %q", path, got, want)
		}
	}
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestRunShutsDown(t *testing.T) {
	cfg := defaultServerConfig()
	cfg.Port = "0"
	srv := NewServer(cfg, false, predictions.NewService(&stubGenerator{}, database.NewMemoryStore()), staticInsights{}, staticNews{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

type slowGenerator struct {
	stubGenerator
	delay time.Duration
}

func (g *slowGenerator) Generate(ctx context.Context, commodity, market string) (*models.Prediction, error) {
	time.Sleep(g.delay)
	return g.stubGenerator.Generate(ctx, commodity, market)
}

// ctxStore rejects writes on a cancelled context, as database/sql does
type ctxStore struct {
	*database.MemoryStore
}

func (s ctxStore) Create(ctx context.Context, p *models.Prediction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStore.Create(ctx, p)
}

func TestCreatePredictionSurvivesClientDisconnect(t *testing.T) {
	store := ctxStore{database.NewMemoryStore()}
	svc := predictions.NewService(&slowGenerator{delay: 300 * time.Millisecond}, store)
	ts := httptest.NewServer(NewServer(defaultServerConfig(), false, svc, staticInsights{}, staticNews{}).Handler())
	defer ts.Close()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	_, err := client.Post(ts.URL+"/api/predictions", "application/json", strings.NewReader(`{"commodity":"maize","market":"Nairobi"}`))
	if err == nil {
		t.Fatal("expected client timeout")
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if stored, _ := store.ListRecent(context.Background(), 10); len(stored) == 1 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("prediction was not saved after the client went away")
}

func TestCreatePredictionBodyTooLarge(t *testing.T) {
	gen := &stubGenerator{}
	srv := NewServer(defaultServerConfig(), false, predictions.NewService(gen, database.NewMemoryStore()), staticInsights{}, staticNews{})

	body := `{"commodity":"maize","market":"Nairobi","timeframe":"` + strings.Repeat("x", 2<<20) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/predictions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if gen.calls != 0 {
		t.Error("engine must not run for an oversized body")
	}
}
