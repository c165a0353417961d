package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relaydesk/live-chat/internal/domain"
	"github.com/relaydesk/live-chat/internal/events"
)

const (
	outboundBuffer = 256
	maxFrameBytes  = 64 * 1024

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is one websocket connection and its channel subscriptions.
type Client struct {
	ID       uuid.UUID
	Role     domain.ParticipantRole
	conn     *websocket.Conn
	hub      *Hub
	logger   *zap.Logger
	outbound chan OutboundMessage
	done     chan struct{}

	mu      sync.Mutex
	subs    map[string]func()
	lagging map[string]bool
	once    sync.Once
}

func newClient(conn *websocket.Conn, hub *Hub, role domain.ParticipantRole) *Client {
	id := uuid.New()
	return &Client{
		ID:       id,
		Role:     role,
		conn:     conn,
		hub:      hub,
		logger:   hub.logger.With(zap.String("client", id.String())),
		outbound: make(chan OutboundMessage, outboundBuffer),
		done:     make(chan struct{}),
		subs:     make(map[string]func()),
		lagging:  make(map[string]bool),
	}
}

// Run pumps both directions until the connection drops or ctx ends.
func (c *Client) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.writeLoop(ctx)
	c.readLoop(ctx)
}

func (c *Client) readLoop(ctx context.Context) {
	defer c.close()

	c.conn.SetReadLimit(maxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var inbound InboundMessage
		if err := json.Unmarshal(data, &inbound); err != nil {
			c.send(OutboundMessage{Event: EventError, Error: "malformed frame"})
			continue
		}
		c.handle(inbound)
	}
}

func (c *Client) handle(inbound InboundMessage) {
	if inbound.Channel == "" {
		c.send(OutboundMessage{Event: EventError, Error: "channel is required"})
		return
	}
	switch inbound.Action {
	case ActionSubscribe:
		if !c.mayRead(inbound.Channel) {
			c.logger.Info("subscription refused", zap.String("channel", inbound.Channel), zap.String("role", string(c.Role)))
			c.send(OutboundMessage{Event: EventError, Channel: inbound.Channel, Error: "agent role required"})
			return
		}
		c.subscribe(inbound.Channel, inbound.Filters)
		c.send(OutboundMessage{Event: EventSubscribed, Channel: inbound.Channel})
	case ActionUnsubscribe:
		c.unsubscribe(inbound.Channel)
		c.send(OutboundMessage{Event: EventUnsubscribed, Channel: inbound.Channel})
	default:
		c.send(OutboundMessage{Event: EventError, Channel: inbound.Channel, Error: "unknown action"})
	}
}

// mayRead reports whether the client may subscribe to channel. The requests
// channel exposes every customer's issue and is limited to agents.
func (c *Client) mayRead(channel string) bool {
	if channel == events.RequestsChannel {
		return c.Role == domain.RoleAgent
	}
	return true
}

// subscribe replaces any earlier subscription to the same channel.
func (c *Client) subscribe(channel string, filters []events.Filter) {
	cancel := c.hub.dispatcher.Subscribe(channel, filters, func(_ context.Context, change events.Change) {
		c.deliver(channel, change)
	})

	c.mu.Lock()
	previous := c.subs[channel]
	c.subs[channel] = cancel
	c.mu.Unlock()
	if previous != nil {
		previous()
	}
	c.logger.Debug("client subscribed", zap.String("channel", channel))
}

func (c *Client) unsubscribe(channel string) {
	c.mu.Lock()
	cancel := c.subs[channel]
	delete(c.subs, channel)
	delete(c.lagging, channel)
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// deliver forwards one change. Once a change on channel has been dropped,
// the next frame that fits is a resync marker so the subscriber reloads.
func (c *Client) deliver(channel string, change events.Change) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lagging[channel] {
		resync := events.ResyncChange(channel)
		if !c.send(OutboundMessage{Event: EventChange, Channel: channel, Change: &resync}) {
			return
		}
		delete(c.lagging, channel)
	}
	if !c.send(OutboundMessage{Event: EventChange, Channel: channel, Change: &change}) {
		c.lagging[channel] = true
	}
}

// send drops the frame when the client is gone or its buffer is full and
// reports whether it was queued.
func (c *Client) send(msg OutboundMessage) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.outbound <- msg:
		return true
	case <-c.done:
		return false
	default:
		c.logger.Warn("dropping frame; outbound buffer full", zap.String("channel", msg.Channel))
		return false
	}
}

func (c *Client) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case msg := <-c.outbound:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		subs := c.subs
		c.subs = map[string]func(){}
		c.mu.Unlock()
		for _, cancel := range subs {
			cancel()
		}
		_ = c.conn.Close()
		c.hub.remove(c)
	})
}
