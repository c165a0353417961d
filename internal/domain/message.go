package domain

import "time"

// DeliveryStatus tracks transmission and read acknowledgment of a message.
type DeliveryStatus string

const (
	DeliverySending DeliveryStatus = "sending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryRead    DeliveryStatus = "read"
)

var deliveryRank = map[DeliveryStatus]int{
	DeliverySending: 0,
	DeliverySent:    1,
	DeliveryRead:    2,
}

// Message is one chat line, optionally carrying one image.
type Message struct {
	ID         string
	RequestID  string
	SenderID   string
	SenderRole ParticipantRole
	Content    string
	ImageURL   *string
	Status     DeliveryStatus
	CreatedAt  time.Time
}

// Before orders messages by creation time, breaking ties by id.
func (m Message) Before(other Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID < other.ID
	}
	return m.CreatedAt.Before(other.CreatedAt)
}

// Advances reports whether next is a forward move from s.
func (s DeliveryStatus) Advances(next DeliveryStatus) bool {
	cur, ok := deliveryRank[s]
	if !ok {
		return true
	}
	n, ok := deliveryRank[next]
	if !ok {
		return false
	}
	return n > cur
}
