package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

const subscriptionBuffer = 256

// Subscription is a live stream of changes on one channel.
type Subscription interface {
	Changes() <-chan Change
	Close() error
}

// Feed opens subscriptions. Implemented in-process by LocalFeed and over
// websocket by the remote client.
type Feed interface {
	Subscribe(ctx context.Context, channel string, filters ...Filter) (Subscription, error)
}

// LocalFeed adapts a Dispatcher to the Feed interface.
type LocalFeed struct {
	dispatcher Dispatcher
	logger     *zap.Logger
}

func NewLocalFeed(dispatcher Dispatcher, logger *zap.Logger) *LocalFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalFeed{dispatcher: dispatcher, logger: logger.With(zap.String("component", "local_feed"))}
}

func (f *LocalFeed) Subscribe(ctx context.Context, channel string, filters ...Filter) (Subscription, error) {
	sub := &localSubscription{ch: make(chan Change, subscriptionBuffer)}
	sub.cancel = f.dispatcher.Subscribe(channel, filters, func(_ context.Context, change Change) {
		sub.mu.Lock()
		defer sub.mu.Unlock()
		if sub.closed {
			return
		}
		if Offer(sub.ch, change) {
			f.logger.Warn("subscriber buffer full; backlog replaced by resync",
				zap.String("channel", channel), zap.String("change_id", change.ID))
		}
	})
	return sub, nil
}

type localSubscription struct {
	mu     sync.Mutex
	ch     chan Change
	cancel func()
	closed bool
}

func (s *localSubscription) Changes() <-chan Change {
	return s.ch
}

func (s *localSubscription) Close() error {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
	return nil
}
