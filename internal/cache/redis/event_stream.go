package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/MeganTobias/chainvault/internal/domain"
)

// eventStream is the Redis stream key holding the durable, trimmed event log
// copy used by replay consumers.
const eventStream = "chainvault:events"

// EventStream implements domain.EventStream using Redis Pub/Sub for live
// delivery and a Redis Stream (XADD MAXLEN ~) for ordered retention.
type EventStream struct {
	rdb    *redis.Client
	maxLen int64
}

// NewEventStream creates an EventStream retaining approximately maxLen
// entries. maxLen <= 0 selects 10000.
func NewEventStream(c *Client, maxLen int64) *EventStream {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &EventStream{rdb: c.Underlying(), maxLen: maxLen}
}

// Publish sends a payload to a Pub/Sub channel.
func (es *EventStream) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := es.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe creates a Pub/Sub subscription and returns a channel of raw
// payloads. The subscription closes with the context. Glob-style channel
// names use pattern subscription.
func (es *EventStream) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	var pubsub *redis.PubSub
	if strings.ContainsAny(channel, "*?[") {
		pubsub = es.rdb.PSubscribe(ctx, channel)
	} else {
		pubsub = es.rdb.Subscribe(ctx, channel)
	}

	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Append adds a payload to the durable event stream with approximate trimming.
func (es *EventStream) Append(ctx context.Context, payload []byte) error {
	args := &redis.XAddArgs{
		Stream: eventStream,
		MaxLen: es.maxLen,
		Approx: true,
		Values: map[string]interface{}{"payload": payload},
	}
	if err := es.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: stream append: %w", err)
	}
	return nil
}

var _ domain.EventStream = (*EventStream)(nil)
