// Package chat is the client side of a live-chat session: starting a
// session, keeping a request's messages in sync with the change feed,
// composing messages, publishing typing presence and routing requests on the
// agent dashboard. It talks to the backend through the small interfaces
// below, satisfied in-process by service.ChatService and remotely by
// internal/client.
package chat

import (
	"context"

	"github.com/relaydesk/live-chat/internal/domain"
)

// ParticipantStore resolves identities by email.
type ParticipantStore interface {
	ParticipantByEmail(ctx context.Context, email string) (*domain.Participant, error)
	CreateParticipant(ctx context.Context, p *domain.Participant) error
}

// RequestStore opens, lists and moves requests.
type RequestStore interface {
	CreateRequest(ctx context.Context, r *domain.Request) error
	GetRequest(ctx context.Context, id string) (*domain.Request, error)
	ListRequests(ctx context.Context) ([]domain.RequestSummary, error)
	TransitionRequest(ctx context.Context, id string, from, to domain.RequestStatus) (*domain.Request, error)
}

// MessageStore reads and writes the messages of a request.
type MessageStore interface {
	ListMessages(ctx context.Context, requestID string, page, pageSize int) ([]domain.Message, error)
	CreateMessage(ctx context.Context, m *domain.Message) error
	MarkMessagesRead(ctx context.Context, ids []string) (int, error)
}

// TypingPublisher stores the latest typing flag of a participant.
type TypingPublisher interface {
	UpsertTyping(ctx context.Context, t domain.TypingStatus) error
}

// ImageUploader stores an image and returns its public URL.
type ImageUploader interface {
	UploadImage(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Backend is everything a full client needs.
type Backend interface {
	ParticipantStore
	RequestStore
	MessageStore
	TypingPublisher
	ImageUploader
}
