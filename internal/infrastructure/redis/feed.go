package redisfeed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-notify-nosql/internal/config"
	"github.com/redis/go-redis/v9"
)

// Event is the payload published on the change-notification topic when a
// notification row is inserted.
type Event struct {
	NotificationID string `json:"notification_id"`
}

// NewClient builds a redis client from config.
func NewClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// Feed is the change-notification feed on the persistence layer: writers
// publish an Event per inserted notification row, the listener subscribes.
type Feed struct {
	client *redis.Client
	topic  string

	pubsub *redis.PubSub
	events chan string
}

func NewFeed(client *redis.Client, topic string) *Feed {
	return &Feed{client: client, topic: topic}
}

// Publish emits a change event for notificationID. This is the writer-side
// hook: row writers call it right after the insert.
func (f *Feed) Publish(ctx context.Context, notificationID string) error {
	payload, err := json.Marshal(Event{NotificationID: notificationID})
	if err != nil {
		return err
	}
	if err := f.client.Publish(ctx, f.topic, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", f.topic, err)
	}
	return nil
}

// Subscribe opens the persistent subscription. It confirms the subscription
// with the server before returning, so a connect failure surfaces here
// rather than as a silently empty Events channel.
func (f *Feed) Subscribe(ctx context.Context) error {
	pubsub := f.client.Subscribe(ctx, f.topic)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribe to %s: %w", f.topic, err)
	}
	f.pubsub = pubsub

	f.events = make(chan string)
	go func() {
		defer close(f.events)
		for msg := range pubsub.Channel() {
			f.events <- msg.Payload
		}
	}()
	return nil
}

// Events returns the stream of raw event payloads. The channel is closed
// when the subscription ends.
func (f *Feed) Events() <-chan string {
	return f.events
}

// Close tears down the subscription. Safe to call when never subscribed.
func (f *Feed) Close() error {
	if f.pubsub == nil {
		return nil
	}
	return f.pubsub.Close()
}
