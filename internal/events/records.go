package events

import (
	"time"

	"github.com/relaydesk/live-chat/internal/domain"
)

// MessageRecord is the row shape of chat_messages on the feed.
type MessageRecord struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id"`
	SenderID  string    `json:"sender_id"`
	UserType  string    `json:"user_type"`
	Content   string    `json:"content"`
	ImageURL  *string   `json:"image_url"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// TypingRecord is the row shape of chat_typing_status on the feed.
type TypingRecord struct {
	RequestID string    `json:"request_id"`
	UserID    string    `json:"user_id"`
	UserType  string    `json:"user_type"`
	IsTyping  bool      `json:"is_typing"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RequestRecord is the row shape of chat_requests on the feed.
type RequestRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Issue     string    `json:"issue"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewMessageRecord(m domain.Message) MessageRecord {
	return MessageRecord{
		ID:        m.ID,
		RequestID: m.RequestID,
		SenderID:  m.SenderID,
		UserType:  string(m.SenderRole),
		Content:   m.Content,
		ImageURL:  m.ImageURL,
		Status:    string(m.Status),
		CreatedAt: m.CreatedAt,
	}
}

func (r MessageRecord) Message() domain.Message {
	return domain.Message{
		ID:         r.ID,
		RequestID:  r.RequestID,
		SenderID:   r.SenderID,
		SenderRole: domain.ParticipantRole(r.UserType),
		Content:    r.Content,
		ImageURL:   r.ImageURL,
		Status:     domain.DeliveryStatus(r.Status),
		CreatedAt:  r.CreatedAt,
	}
}

func NewTypingRecord(t domain.TypingStatus) TypingRecord {
	return TypingRecord{
		RequestID: t.RequestID,
		UserID:    t.ParticipantID,
		UserType:  string(t.Role),
		IsTyping:  t.IsTyping,
		UpdatedAt: t.UpdatedAt,
	}
}

func (r TypingRecord) TypingStatus() domain.TypingStatus {
	return domain.TypingStatus{
		RequestID:     r.RequestID,
		ParticipantID: r.UserID,
		Role:          domain.ParticipantRole(r.UserType),
		IsTyping:      r.IsTyping,
		UpdatedAt:     r.UpdatedAt,
	}
}

func NewRequestRecord(r domain.Request) RequestRecord {
	return RequestRecord{
		ID:        r.ID,
		UserID:    r.ParticipantID,
		Issue:     r.Issue,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r RequestRecord) Request() domain.Request {
	return domain.Request{
		ID:            r.ID,
		ParticipantID: r.UserID,
		Issue:         r.Issue,
		Status:        domain.RequestStatus(r.Status),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}
