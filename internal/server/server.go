package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/AgriPredictor/internal/config"
	"github.com/Alias1177/AgriPredictor/internal/insights"
	"github.com/Alias1177/AgriPredictor/internal/predictions"
	"github.com/Alias1177/AgriPredictor/models"
)

// PredictionService creates and lists predictions
type PredictionService interface {
	Create(ctx context.Context, req models.PredictionRequest) (*models.Prediction, error)
	Recent(ctx context.Context, limit int) ([]models.Prediction, error)
}

// InsightSource returns dashboard insights
type InsightSource interface {
	MarketInsights(ctx context.Context) []insights.Insight
}

// NewsSource returns market headlines
type NewsSource interface {
	Latest(ctx context.Context) []insights.NewsItem
}

// Server is the JSON API and, in production, the frontend host
type Server struct {
	config      config.ServerConfig
	production  bool
	predictions PredictionService
	insights    InsightSource
	news        NewsSource
	server      *http.Server
	logger      zerolog.Logger
}

// NewServer creates the API server
func NewServer(cfg config.ServerConfig, production bool, p PredictionService, i InsightSource, n NewsSource) *Server {
	return &Server{
		config:      cfg,
		production:  production,
		predictions: p,
		insights:    i,
		news:        n,
		logger:      log.With().Str("component", "server").Logger(),
	}
}

// Handler builds the router with CORS and request logging
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.logRequests)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.getHealth).Methods(http.MethodGet)
	api.HandleFunc("/predictions/health", s.getPredictionsHealth).Methods(http.MethodGet)
	api.HandleFunc("/predictions", s.createPrediction).Methods(http.MethodPost)
	api.HandleFunc("/predictions", s.listPredictions).Methods(http.MethodGet)
	api.HandleFunc("/market-insights", s.getMarketInsights).Methods(http.MethodGet)
	api.HandleFunc("/market-news", s.getMarketNews).Methods(http.MethodGet)

	if s.production && s.config.StaticDir != "" {
		router.PathPrefix("/").Handler(spaHandler{dir: s.config.StaticDir})
	}

	c := cors.New(cors.Options{
		AllowedOrigins: strings.Split(s.config.CORSOrigin, ","),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         3600,
	})
	return c.Handler(router)
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              ":" + s.config.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.server.Addr).Bool("production", s.production).Msg("API server starting")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := config.Seconds(s.config.ShutdownTimeout)
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info().Msg("Shutting down API server")
	return s.server.Shutdown(shutdownCtx)
}

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) createPrediction(w http.ResponseWriter, r *http.Request) {
	var req models.PredictionRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Commodity and market are required"})
		return
	}

	// A client disconnect must not abort generation or the insert
	prediction, err := s.predictions.Create(context.WithoutCancel(r.Context()), req)
	switch {
	case errors.Is(err, models.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Commodity and market are required"})
		return
	case errors.Is(err, predictions.ErrStore):
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to save prediction"})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Prediction failed: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		Success    bool               `json:"success"`
		Message    string             `json:"message"`
		Prediction *models.Prediction `json:"prediction"`
	}{
		Success:    true,
		Message:    "Prediction generated successfully",
		Prediction: prediction,
	})
}

func (s *Server) listPredictions(w http.ResponseWriter, r *http.Request) {
	limit := predictions.MaxRecent
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}

	list, err := s.predictions.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Listing predictions failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to fetch predictions"})
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success     bool                `json:"success"`
		Count       int                 `json:"count"`
		Predictions []models.Prediction `json:"predictions"`
	}{
		Success:     true,
		Count:       len(list),
		Predictions: list,
	})
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status    string    `json:"status"`
		Message   string    `json:"message"`
		Timestamp time.Time `json:"timestamp"`
	}{
		Status:    "OK",
		Message:   "Agricultural Price Predictor API is running",
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) getPredictionsHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Success   bool      `json:"success"`
		Message   string    `json:"message"`
		Timestamp time.Time `json:"timestamp"`
	}{
		Success:   true,
		Message:   "Prediction service is healthy",
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) getMarketInsights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Insights []insights.Insight `json:"insights"`
	}{Insights: s.insights.MarketInsights(r.Context())})
}

func (s *Server) getMarketNews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		News []insights.NewsItem `json:"news"`
	}{News: s.news.Latest(r.Context())})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// statusRecorder captures the status code for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

// spaHandler serves built frontend files, falling back to index.html so
// client-side routes resolve
type spaHandler struct {
	dir string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(h.dir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		http.ServeFile(w, r, filepath.Join(h.dir, "index.html"))
		return
	}
	http.FileServer(http.Dir(h.dir)).ServeHTTP(w, r)
}
