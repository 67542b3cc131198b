package models

import "context"

// PredictionStore persists predictions. Records are only ever appended or read.
type PredictionStore interface {
	Create(ctx context.Context, p *Prediction) error
	ListRecent(ctx context.Context, limit int) ([]Prediction, error)
}

// SubscriberStore tracks the Telegram chats that receive broadcasts
type SubscriberStore interface {
	AddSubscriber(ctx context.Context, chatID int64) error
	RemoveSubscriber(ctx context.Context, chatID int64) error
	ListSubscribers(ctx context.Context) ([]int64, error)
}
