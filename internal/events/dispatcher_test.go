package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relaydesk/live-chat/internal/domain"
)

func mustChange(t *testing.T, channel string, table Table, op Op) Change {
	t.Helper()
	change, err := NewChange(channel, table, op, map[string]string{"id": "x"})
	require.NoError(t, err)
	return change
}

func TestFilterMatches(t *testing.T) {
	insert := Change{Table: TableMessages, Op: OpInsert}
	update := Change{Table: TableMessages, Op: OpUpdate}
	typing := Change{Table: TableTyping, Op: OpInsert}

	cases := []struct {
		name   string
		filter Filter
		change Change
		want   bool
	}{
		{"exact", Filter{Table: TableMessages, Op: OpInsert}, insert, true},
		{"wrong op", Filter{Table: TableMessages, Op: OpInsert}, update, false},
		{"wildcard op", Filter{Table: TableMessages, Op: OpAll}, update, true},
		{"empty op", Filter{Table: TableMessages}, update, true},
		{"wrong table", Filter{Table: TableMessages, Op: OpAll}, typing, false},
		{"any table", Filter{Op: OpInsert}, typing, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.filter.Matches(tc.change))
		})
	}

	assert.True(t, MatchAny(nil, typing))
	assert.False(t, MatchAny([]Filter{{Table: TableRequests}}, typing))
}

func TestDispatcherRoutesByChannelAndFilter(t *testing.T) {
	d := NewInMemoryDispatcher()
	var got []Change
	cancel := d.Subscribe(ChatChannel("r1"), []Filter{{Table: TableMessages, Op: OpInsert}}, func(_ context.Context, c Change) {
		got = append(got, c)
	})

	ctx := context.Background()
	require.NoError(t, d.Publish(ctx, mustChange(t, ChatChannel("r1"), TableMessages, OpInsert)))
	require.NoError(t, d.Publish(ctx, mustChange(t, ChatChannel("r1"), TableMessages, OpUpdate)))
	require.NoError(t, d.Publish(ctx, mustChange(t, ChatChannel("r2"), TableMessages, OpInsert)))
	assert.Len(t, got, 1)

	cancel()
	cancel()
	require.NoError(t, d.Publish(ctx, mustChange(t, ChatChannel("r1"), TableMessages, OpInsert)))
	assert.Len(t, got, 1)
}

func TestLocalFeedDeliversUntilClosed(t *testing.T) {
	d := NewInMemoryDispatcher()
	feed := NewLocalFeed(d, zap.NewNop())

	sub, err := feed.Subscribe(context.Background(), RequestsChannel)
	require.NoError(t, err)

	change := mustChange(t, RequestsChannel, TableRequests, OpUpdate)
	require.NoError(t, d.Publish(context.Background(), change))

	select {
	case got := <-sub.Changes():
		assert.Equal(t, change.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("change not delivered")
	}

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	require.NoError(t, d.Publish(context.Background(), change))
	_, open := <-sub.Changes()
	assert.False(t, open)
}

func TestRecordRoundTripThroughChange(t *testing.T) {
	url := "http://files/chat-images/1-a.png"
	msg := domain.Message{
		ID:         "m1",
		RequestID:  "r1",
		SenderID:   "u1",
		SenderRole: domain.RoleAgent,
		Content:    "hi",
		ImageURL:   &url,
		Status:     domain.DeliverySent,
		CreatedAt:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	change, err := NewChange(ChatChannel("r1"), TableMessages, OpInsert, NewMessageRecord(msg))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(change.Record, &raw))
	assert.Equal(t, "agent", raw["user_type"])

	var rec MessageRecord
	require.NoError(t, change.Decode(&rec))
	assert.Equal(t, msg, rec.Message())
}

func TestRedisBridgeSkipsOwnOrigin(t *testing.T) {
	d := NewInMemoryDispatcher()
	bridge := NewRedisBridge(d, nil, "changes", zap.NewNop())

	var count int
	d.Subscribe("requests", nil, func(context.Context, Change) { count++ })

	change := mustChange(t, RequestsChannel, TableRequests, OpInsert)
	own, err := json.Marshal(envelope{Origin: bridge.nodeID, Change: change})
	require.NoError(t, err)
	remote, err := json.Marshal(envelope{Origin: "other-node", Change: change})
	require.NoError(t, err)

	bridge.forward(context.Background(), string(own))
	assert.Equal(t, 0, count)
	bridge.forward(context.Background(), string(remote))
	assert.Equal(t, 1, count)
	bridge.forward(context.Background(), "not json")
	assert.Equal(t, 1, count)
}

func TestOfferReplacesBacklogWithResync(t *testing.T) {
	ch := make(chan Change, 2)
	first := mustChange(t, "chat:r1", TableMessages, OpInsert)
	second := mustChange(t, "chat:r1", TableMessages, OpInsert)
	third := mustChange(t, "chat:r1", TableMessages, OpInsert)

	assert.False(t, Offer(ch, first))
	assert.False(t, Offer(ch, second))
	assert.True(t, Offer(ch, third))

	require.Len(t, ch, 1)
	marker := <-ch
	assert.Equal(t, OpResync, marker.Op)
	assert.Equal(t, "chat:r1", marker.Channel)

	assert.False(t, Offer(ch, third))
	assert.Equal(t, third.ID, (<-ch).ID)
}

func TestLocalFeedSignalsOverflow(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()
	feed := NewLocalFeed(dispatcher, zap.NewNop())
	sub, err := feed.Subscribe(context.Background(), "chat:r1")
	require.NoError(t, err)
	defer sub.Close()

	for i := 0; i <= subscriptionBuffer; i++ {
		require.NoError(t, dispatcher.Publish(context.Background(), mustChange(t, "chat:r1", TableMessages, OpInsert)))
	}

	got := <-sub.Changes()
	assert.Equal(t, OpResync, got.Op)
	assert.Empty(t, sub.Changes())
}
