package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// Groq serves an OpenAI-compatible API
const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.1-8b-instant"
)

// ErrEmptyCompletion is returned when the model answers with no usable text
var ErrEmptyCompletion = errors.New("model returned an empty completion")

// Config holds connection settings for an OpenAI-compatible endpoint
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float32
}

// Client wraps the OpenAI API client
type Client struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	logger      zerolog.Logger
}

// NewClient creates a new chat completion client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 120
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		logger:      log.With().Str("component", "llm_client").Logger(),
	}
}

// GenerateCompletion sends a system and user prompt and returns the reply text
func (c *Client) GenerateCompletion(ctx context.Context, system, prompt string) (string, error) {
	return c.complete(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages(system, prompt),
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
}

// GenerateJSON asks for a JSON object reply and decodes it into out
func (c *Client) GenerateJSON(ctx context.Context, system, prompt string, maxTokens int, out any) error {
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	content, err := c.complete(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages(system, prompt),
		MaxTokens:   maxTokens,
		Temperature: c.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("decoding model JSON: %w", err)
	}
	return nil
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	c.logger.Debug().Str("model", req.Model).Msg("Sending chat completion")

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Error().Err(err).Msg("Chat completion API error")
		return "", err
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		c.logger.Warn().Msg("Chat completion returned empty choices")
		return "", ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}

func messages(system, prompt string) []openai.ChatCompletionMessage {
	var msgs []openai.ChatCompletionMessage
	if system != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	return append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})
}
