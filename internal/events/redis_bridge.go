package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type envelope struct {
	Origin string `json:"origin"`
	Change Change `json:"change"`
}

// RedisBridge is a Dispatcher that delivers locally and republishes every
// change on a Redis channel so other API nodes deliver it to their own subscribers.
type RedisBridge struct {
	local   Dispatcher
	client  *redis.Client
	channel string
	nodeID  string
	logger  *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewRedisBridge(local Dispatcher, client *redis.Client, channel string, logger *zap.Logger) *RedisBridge {
	return &RedisBridge{
		local:   local,
		client:  client,
		channel: channel,
		nodeID:  uuid.NewString(),
		logger:  logger.With(zap.String("component", "redis_bridge")),
	}
}

// Publish always delivers locally first; a Redis failure is logged and returned.
func (b *RedisBridge) Publish(ctx context.Context, change Change) error {
	_ = b.local.Publish(ctx, change)

	payload, err := json.Marshal(envelope{Origin: b.nodeID, Change: change})
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		b.logger.Warn("failed to publish change to redis", zap.Error(err), zap.String("channel", change.Channel))
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (b *RedisBridge) Subscribe(channel string, filters []Filter, handler Handler) func() {
	return b.local.Subscribe(channel, filters, handler)
}

// Start subscribes to the Redis channel and forwards remote changes to local subscribers.
func (b *RedisBridge) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		cancel()
		_ = pubsub.Close()
		return fmt.Errorf("subscribe to redis channel: %w", err)
	}

	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()
	b.logger.Info("redis bridge subscribed", zap.String("channel", b.channel))

	go func() {
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
				b.forward(ctx, msg.Payload)
			}
		}
	}()
	return nil
}

func (b *RedisBridge) forward(ctx context.Context, payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.logger.Warn("failed to decode redis change", zap.Error(err))
		return
	}
	if env.Origin == b.nodeID {
		return
	}
	_ = b.local.Publish(ctx, env.Change)
}

// Stop ends the forwarding goroutine.
func (b *RedisBridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}
