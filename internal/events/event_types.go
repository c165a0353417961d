package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Table names a row source of the change feed.
type Table string

const (
	TableMessages Table = "chat_messages"
	TableTyping   Table = "chat_typing_status"
	TableRequests Table = "chat_requests"
)

// Op is the kind of row change.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpAll    Op = "*"
	// OpResync is not a row change: the subscriber fell behind, changes were
	// dropped, and local state has to be reloaded.
	OpResync Op = "RESYNC"
)

// RequestsChannel carries every change to chat requests, for dashboards.
const RequestsChannel = "requests"

// ChatChannel is the channel carrying message and typing changes of one request.
func ChatChannel(requestID string) string {
	return "chat:" + requestID
}

// Change is one committed row change delivered to subscribers.
type Change struct {
	ID          string          `json:"id"`
	Channel     string          `json:"channel"`
	Table       Table           `json:"table"`
	Op          Op              `json:"op"`
	Record      json.RawMessage `json:"record"`
	CommittedAt time.Time       `json:"committed_at"`
}

// NewChange encodes record and stamps the change with a fresh id.
func NewChange(channel string, table Table, op Op, record any) (Change, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return Change{}, fmt.Errorf("encode %s record: %w", table, err)
	}
	return Change{
		ID:          uuid.NewString(),
		Channel:     channel,
		Table:       table,
		Op:          op,
		Record:      raw,
		CommittedAt: time.Now().UTC(),
	}, nil
}

// ResyncChange is the marker delivered in place of dropped changes.
func ResyncChange(channel string) Change {
	return Change{
		ID:          uuid.NewString(),
		Channel:     channel,
		Op:          OpResync,
		CommittedAt: time.Now().UTC(),
	}
}

// Offer queues change on ch without blocking. When ch is full its backlog is
// discarded and replaced by one resync marker. It reports whether anything
// was dropped. ch must have a single sender.
func Offer(ch chan Change, change Change) bool {
	select {
	case ch <- change:
		return false
	default:
	}
drain:
	for {
		select {
		case <-ch:
		default:
			break drain
		}
	}
	select {
	case ch <- ResyncChange(change.Channel):
	default:
	}
	return true
}

// Decode unmarshals the record into dst.
func (c Change) Decode(dst any) error {
	if err := json.Unmarshal(c.Record, dst); err != nil {
		return fmt.Errorf("decode %s record: %w", c.Table, err)
	}
	return nil
}

// Filter narrows a subscription to one table and op. OpAll or an empty op
// matches every op; an empty table matches every table.
type Filter struct {
	Table Table `json:"table,omitempty"`
	Op    Op    `json:"op,omitempty"`
}

// Matches reports whether change passes the filter.
func (f Filter) Matches(change Change) bool {
	if f.Table != "" && f.Table != change.Table {
		return false
	}
	return f.Op == "" || f.Op == OpAll || f.Op == change.Op
}

// MatchAny reports whether change passes at least one filter. No filters
// means everything on the channel.
func MatchAny(filters []Filter, change Change) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if f.Matches(change) {
			return true
		}
	}
	return false
}
