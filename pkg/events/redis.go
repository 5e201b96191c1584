package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisSink PUBLISHes each event as JSON on a pub/sub channel.
type RedisSink struct {
	client  publisher
	channel string
}

func NewRedisSink(addr, password string, db int, channel string) *RedisSink {
	return &RedisSink{
		client:  redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}),
		channel: channel,
	}
}

func (r *RedisSink) Name() string { return "redis" }

func (r *RedisSink) Publish(ctx context.Context, evs []Event) error {
	for _, e := range evs {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
			return fmt.Errorf("publish %s: %w", e.Kind, err)
		}
	}
	return nil
}

func (r *RedisSink) Close() error { return r.client.Close() }
