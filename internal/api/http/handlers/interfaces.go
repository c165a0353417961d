package handlers

import (
	"context"

	"github.com/relaydesk/live-chat/internal/domain"
	"github.com/relaydesk/live-chat/internal/service"
)

// ChatAPI is the chat backend the HTTP handlers drive.
type ChatAPI interface {
	Participant(ctx context.Context, id string) (*domain.Participant, error)
	ParticipantByEmail(ctx context.Context, email string) (*domain.Participant, error)
	CreateParticipant(ctx context.Context, p *domain.Participant) error
	CreateRequest(ctx context.Context, r *domain.Request) error
	GetRequest(ctx context.Context, id string) (*domain.Request, error)
	ListRequests(ctx context.Context) ([]domain.RequestSummary, error)
	TransitionRequest(ctx context.Context, id string, from, to domain.RequestStatus) (*domain.Request, error)
	ListMessages(ctx context.Context, requestID string, page, pageSize int) ([]domain.Message, error)
	CreateMessage(ctx context.Context, m *domain.Message) error
	MarkMessagesRead(ctx context.Context, ids []string) (int, error)
	UpsertTyping(ctx context.Context, t domain.TypingStatus) error
	UploadImage(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// AgentAuthenticator signs agents in.
type AgentAuthenticator interface {
	LoginAgent(ctx context.Context, email, password string) (*service.AgentSession, error)
}

// FAQResponder answers common questions.
type FAQResponder interface {
	Answer(ctx context.Context, message string) (*service.FAQAnswer, error)
	Pending(ctx context.Context, limit int) ([]domain.UnansweredQuestion, error)
}
