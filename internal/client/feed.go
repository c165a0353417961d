package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relaydesk/live-chat/internal/events"
	"github.com/relaydesk/live-chat/internal/realtime"
	apperrors "github.com/relaydesk/live-chat/pkg/util"
)

const (
	ackTimeout   = 10 * time.Second
	changeBuffer = 256
)

// FeedClient opens change-feed subscriptions over websocket. Each
// subscription uses its own connection.
type FeedClient struct {
	url    string
	dialer *websocket.Dialer
	logger *zap.Logger

	mu    sync.RWMutex
	token string
}

func NewFeedClient(url string, logger *zap.Logger) *FeedClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedClient{
		url:    url,
		dialer: &websocket.Dialer{HandshakeTimeout: ackTimeout},
		logger: logger.With(zap.String("component", "feed_client")),
	}
}

// SetToken sets the agent bearer token presented when connecting.
func (f *FeedClient) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

// Subscribe connects, subscribes to channel and waits for the server's
// acknowledgement so no change committed afterwards is missed.
func (f *FeedClient) Subscribe(ctx context.Context, channel string, filters ...events.Filter) (events.Subscription, error) {
	header := http.Header{}
	f.mu.RLock()
	if f.token != "" {
		header.Set("Authorization", "Bearer "+f.token)
	}
	f.mu.RUnlock()
	conn, resp, err := f.dialer.DialContext(ctx, f.url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, apperrors.NewUnauthorized("feed rejected the access token")
		}
		return nil, fmt.Errorf("dial feed: %w", err)
	}
	if err := conn.WriteJSON(realtime.InboundMessage{Action: realtime.ActionSubscribe, Channel: channel, Filters: filters}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send subscribe: %w", err)
	}

	deadline := time.Now().Add(ackTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)
	for {
		var msg realtime.OutboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("await subscribe ack: %w", err)
		}
		if msg.Event == realtime.EventError {
			_ = conn.Close()
			return nil, fmt.Errorf("subscribe %s: %s", channel, msg.Error)
		}
		if msg.Event == realtime.EventSubscribed && msg.Channel == channel {
			break
		}
	}
	_ = conn.SetReadDeadline(time.Time{})

	sub := &remoteSubscription{
		conn:    conn,
		channel: channel,
		ch:      make(chan events.Change, changeBuffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		logger:  f.logger,
	}
	go sub.readLoop()
	return sub, nil
}

type remoteSubscription struct {
	conn    *websocket.Conn
	channel string
	ch      chan events.Change
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	logger  *zap.Logger
}

func (s *remoteSubscription) Changes() <-chan events.Change {
	return s.ch
}

func (s *remoteSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	<-s.stopped
	return err
}

func (s *remoteSubscription) readLoop() {
	defer close(s.stopped)
	defer close(s.ch)
	for {
		var msg realtime.OutboundMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			select {
			case <-s.done:
			default:
				s.logger.Warn("feed connection lost", zap.String("channel", s.channel), zap.Error(err))
			}
			return
		}
		if msg.Event != realtime.EventChange || msg.Change == nil {
			continue
		}
		select {
		case <-s.done:
			return
		default:
		}
		if events.Offer(s.ch, *msg.Change) {
			s.logger.Warn("consumer too slow; backlog replaced by resync", zap.String("change_id", msg.Change.ID))
		}
	}
}

var _ events.Feed = (*FeedClient)(nil)
