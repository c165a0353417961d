package dto

import (
	"time"

	"github.com/relaydesk/live-chat/internal/domain"
)

// CreateMessageRequest payload. ID is client-generated so the sender can
// recognize its own message when it comes back on the feed.
type CreateMessageRequest struct {
	ID         string                 `json:"id" validate:"omitempty,uuid"`
	SenderID   string                 `json:"sender_id" validate:"required,uuid"`
	SenderRole domain.ParticipantRole `json:"user_type" validate:"required,oneof=customer agent"`
	Content    string                 `json:"content" validate:"max=4000"`
	ImageURL   *string                `json:"image_url" validate:"omitempty,url"`
}

// MarkReadRequest lists message ids to move to read.
type MarkReadRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=500,dive,uuid"`
}

// MarkReadResponse reports how many messages changed.
type MarkReadResponse struct {
	Updated int `json:"updated"`
}

// TypingRequest upserts the caller's typing flag.
type TypingRequest struct {
	ParticipantID string                 `json:"user_id" validate:"required,uuid"`
	Role          domain.ParticipantRole `json:"user_type" validate:"required,oneof=customer agent"`
	IsTyping      bool                   `json:"is_typing"`
}

// UploadResponse describes a stored image.
type UploadResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// MessageResponse is the API shape of a message.
type MessageResponse struct {
	ID         string                 `json:"id"`
	RequestID  string                 `json:"request_id"`
	SenderID   string                 `json:"sender_id"`
	SenderRole domain.ParticipantRole `json:"user_type"`
	Content    string                 `json:"content"`
	ImageURL   *string                `json:"image_url"`
	Status     domain.DeliveryStatus  `json:"status"`
	CreatedAt  time.Time              `json:"created_at"`
}

func NewMessageResponse(m *domain.Message) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		RequestID:  m.RequestID,
		SenderID:   m.SenderID,
		SenderRole: m.SenderRole,
		Content:    m.Content,
		ImageURL:   m.ImageURL,
		Status:     m.Status,
		CreatedAt:  m.CreatedAt,
	}
}

func (r MessageResponse) Domain() domain.Message {
	return domain.Message{
		ID:         r.ID,
		RequestID:  r.RequestID,
		SenderID:   r.SenderID,
		SenderRole: r.SenderRole,
		Content:    r.Content,
		ImageURL:   r.ImageURL,
		Status:     r.Status,
		CreatedAt:  r.CreatedAt,
	}
}
