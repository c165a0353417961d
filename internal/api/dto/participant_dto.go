package dto

import (
	"time"

	"github.com/relaydesk/live-chat/internal/domain"
)

// CreateParticipantRequest payload.
type CreateParticipantRequest struct {
	Name  string                 `json:"name" validate:"required,max=120"`
	Email string                 `json:"email" validate:"required,email,max=254"`
	Role  domain.ParticipantRole `json:"user_type" validate:"omitempty,oneof=customer agent"`
}

// ParticipantResponse is the API shape of a participant.
type ParticipantResponse struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Email     string                 `json:"email"`
	Role      domain.ParticipantRole `json:"user_type"`
	Status    domain.PresenceStatus  `json:"status"`
	CreatedAt time.Time              `json:"created_at"`
}

func NewParticipantResponse(p *domain.Participant) ParticipantResponse {
	return ParticipantResponse{
		ID:        p.ID,
		Name:      p.Name,
		Email:     p.Email,
		Role:      p.Role,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
	}
}

func (r ParticipantResponse) Domain() *domain.Participant {
	return &domain.Participant{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Role:      r.Role,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}
}
