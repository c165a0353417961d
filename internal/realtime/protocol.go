package realtime

import "github.com/relaydesk/live-chat/internal/events"

// Inbound actions.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
)

// Outbound event kinds.
const (
	EventChange       = "change"
	EventSubscribed   = "subscribed"
	EventUnsubscribed = "unsubscribed"
	EventError        = "error"
)

// InboundMessage is a control frame sent by a websocket client.
type InboundMessage struct {
	Action  string          `json:"action"`
	Channel string          `json:"channel"`
	Filters []events.Filter `json:"filters,omitempty"`
}

// OutboundMessage is a frame pushed to a websocket client.
type OutboundMessage struct {
	Event   string         `json:"event"`
	Channel string         `json:"channel"`
	Change  *events.Change `json:"change,omitempty"`
	Error   string         `json:"error,omitempty"`
}
