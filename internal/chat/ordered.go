package chat

import (
	"sort"

	"github.com/relaydesk/live-chat/internal/domain"
)

// orderedMessages keeps messages unique by id and sorted by (created_at, id).
type orderedMessages struct {
	byID  map[string]*domain.Message
	order []*domain.Message
}

func newOrderedMessages() *orderedMessages {
	return &orderedMessages{byID: make(map[string]*domain.Message)}
}

func (o *orderedMessages) Len() int { return len(o.order) }

// insert adds m unless its id is already present.
func (o *orderedMessages) insert(m domain.Message) bool {
	if _, ok := o.byID[m.ID]; ok {
		return false
	}
	stored := m
	idx := sort.Search(len(o.order), func(i int) bool { return stored.Before(*o.order[i]) })
	o.order = append(o.order, nil)
	copy(o.order[idx+1:], o.order[idx:])
	o.order[idx] = &stored
	o.byID[m.ID] = &stored
	return true
}

// update replaces the fields of an existing message. The status only moves
// forward; a stale status is kept.
func (o *orderedMessages) update(m domain.Message) bool {
	cur, ok := o.byID[m.ID]
	if !ok {
		return false
	}
	next := m
	if next.Status != cur.Status && !cur.Status.Advances(next.Status) {
		next.Status = cur.Status
	}
	if next.CreatedAt.IsZero() {
		next.CreatedAt = cur.CreatedAt
	}
	if sameMessage(*cur, next) {
		return false
	}
	if !next.CreatedAt.Equal(cur.CreatedAt) {
		o.remove(m.ID)
		return o.insert(next)
	}
	*cur = next
	return true
}

// upsert inserts or merges, as done for fetched pages.
func (o *orderedMessages) upsert(m domain.Message) bool {
	if _, ok := o.byID[m.ID]; ok {
		return o.update(m)
	}
	return o.insert(m)
}

func (o *orderedMessages) remove(id string) {
	for i, m := range o.order {
		if m.ID == id {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	delete(o.byID, id)
}

func (o *orderedMessages) setStatus(id string, status domain.DeliveryStatus) bool {
	cur, ok := o.byID[id]
	if !ok || !cur.Status.Advances(status) {
		return false
	}
	cur.Status = status
	return true
}

func (o *orderedMessages) snapshot() []domain.Message {
	out := make([]domain.Message, len(o.order))
	for i, m := range o.order {
		out[i] = *m
	}
	return out
}

func sameMessage(a, b domain.Message) bool {
	if a.ID != b.ID || a.RequestID != b.RequestID || a.SenderID != b.SenderID ||
		a.SenderRole != b.SenderRole || a.Content != b.Content || a.Status != b.Status ||
		!a.CreatedAt.Equal(b.CreatedAt) {
		return false
	}
	if a.ImageURL == nil || b.ImageURL == nil {
		return a.ImageURL == b.ImageURL
	}
	return *a.ImageURL == *b.ImageURL
}
