package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/AgriPredictor/models"
)

// DB represents a database connection
type DB struct {
	*sql.DB
	logger zerolog.Logger
}

// Options tune the connection attempt
type Options struct {
	ConnectTimeout time.Duration
}

// New opens a PostgreSQL connection, retrying the initial ping with
// exponential backoff, and creates the tables if they don't exist
func New(ctx context.Context, dsn string, opts Options) (*DB, error) {
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 30 * time.Second
	}
	logger := log.With().Str("component", "database").Logger()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	ping := func() error {
		if err := db.PingContext(ctx); err != nil {
			logger.Warn().Err(err).Msg("Database not ready, retrying")
			return err
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = opts.ConnectTimeout
	if err := backoff.Retry(ping, backoff.WithContext(policy, ctx)); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	logger.Info().Msg("Database connected")
	return &DB{DB: db, logger: logger}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS predictions (
			id TEXT PRIMARY KEY,
			commodity TEXT NOT NULL,
			market TEXT NOT NULL,
			current_price DOUBLE PRECISION NOT NULL,
			predicted_price DOUBLE PRECISION NOT NULL,
			predicted_change_percent DOUBLE PRECISION NOT NULL,
			trend TEXT NOT NULL,
			confidence_score DOUBLE PRECISION NOT NULL,
			factors JSONB NOT NULL,
			reasoning TEXT NOT NULL DEFAULT '',
			ai_enhanced BOOLEAN NOT NULL DEFAULT FALSE,
			enhancement_source TEXT NOT NULL DEFAULT '',
			data_sources JSONB NOT NULL,
			user_input JSONB NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			last_updated TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS predictions_created_at_idx ON predictions (created_at DESC)
	`)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS subscribers (
			chat_id BIGINT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL
		)
	`)
	return err
}

// Create inserts a prediction, assigning its ID and creation time when unset
func (db *DB) Create(ctx context.Context, p *models.Prediction) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	factors, err := json.Marshal(p.Factors)
	if err != nil {
		return err
	}
	sources, err := json.Marshal(p.DataSources)
	if err != nil {
		return err
	}
	input, err := json.Marshal(p.UserInput)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO predictions (
			id, commodity, market, current_price, predicted_price, predicted_change_percent,
			trend, confidence_score, factors, reasoning, ai_enhanced, enhancement_source,
			data_sources, user_input, timestamp, last_updated, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`,
		p.ID, p.Commodity, p.Market, p.CurrentPrice, p.PredictedPrice, p.PredictedChangePercent,
		string(p.Trend), p.ConfidenceScore, factors, p.Reasoning, p.AIEnhanced, p.EnhancementSource,
		sources, input, p.Timestamp, p.LastUpdated, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting prediction: %w", err)
	}
	return nil
}

// ListRecent returns up to limit predictions, newest first
func (db *DB) ListRecent(ctx context.Context, limit int) ([]models.Prediction, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			id, commodity, market, current_price, predicted_price, predicted_change_percent,
			trend, confidence_score, factors, reasoning, ai_enhanced, enhancement_source,
			data_sources, user_input, timestamp, last_updated, created_at
		FROM predictions
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	predictions := []models.Prediction{}
	for rows.Next() {
		var p models.Prediction
		var trend string
		var factors, sources, input []byte

		if err := rows.Scan(
			&p.ID, &p.Commodity, &p.Market, &p.CurrentPrice, &p.PredictedPrice, &p.PredictedChangePercent,
			&trend, &p.ConfidenceScore, &factors, &p.Reasoning, &p.AIEnhanced, &p.EnhancementSource,
			&sources, &input, &p.Timestamp, &p.LastUpdated, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		p.Trend = models.Trend(trend)

		if err := errors.Join(
			json.Unmarshal(factors, &p.Factors),
			json.Unmarshal(sources, &p.DataSources),
			json.Unmarshal(input, &p.UserInput),
		); err != nil {
			return nil, fmt.Errorf("decoding prediction %s: %w", p.ID, err)
		}

		predictions = append(predictions, p)
	}

	return predictions, rows.Err()
}

// AddSubscriber registers a chat for broadcasts
func (db *DB) AddSubscriber(ctx context.Context, chatID int64) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO subscribers (chat_id, created_at) VALUES ($1, $2)
		ON CONFLICT (chat_id) DO NOTHING
	`, chatID, time.Now().UTC())
	return err
}

// RemoveSubscriber unregisters a chat
func (db *DB) RemoveSubscriber(ctx context.Context, chatID int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM subscribers WHERE chat_id = $1`, chatID)
	return err
}

// ListSubscribers returns every registered chat
func (db *DB) ListSubscribers(ctx context.Context) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT chat_id FROM subscribers ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chatIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		chatIDs = append(chatIDs, id)
	}
	return chatIDs, rows.Err()
}
