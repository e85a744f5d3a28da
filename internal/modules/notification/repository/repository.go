package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Subscription delivers raw payloads published on one channel until Close.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

type NotificationRepository interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

type redisNotificationRepository struct {
	rdb *redis.Client
}

func NewNotificationRepository(rdb *redis.Client) NotificationRepository {
	return &redisNotificationRepository{rdb: rdb}
}

func (r *redisNotificationRepository) Publish(ctx context.Context, channel string, payload []byte) error {
	if r.rdb == nil {
		return nil
	}
	return r.rdb.Publish(ctx, channel, payload).Err()
}

func (r *redisNotificationRepository) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	if r.rdb == nil {
		return nil, fmt.Errorf("redis client is nil, cannot subscribe")
	}

	pubsub := r.rdb.Subscribe(ctx, channel)
	// Wait for confirmation that subscription is created
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to redis channel: %w", err)
	}

	sub := &redisSubscription{pubsub: pubsub, out: make(chan []byte)}
	go sub.pump()
	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	out    chan []byte
}

func (s *redisSubscription) pump() {
	defer close(s.out)
	for msg := range s.pubsub.Channel() {
		s.out <- []byte(msg.Payload)
	}
}

func (s *redisSubscription) Messages() <-chan []byte { return s.out }

func (s *redisSubscription) Close() error { return s.pubsub.Close() }
