package dto

import (
	"time"

	"github.com/relaydesk/live-chat/internal/domain"
)

// CreateRequestRequest payload.
type CreateRequestRequest struct {
	ParticipantID string `json:"user_id" validate:"required,uuid"`
	Issue         string `json:"issue" validate:"required,max=4000"`
}

// TransitionRequestRequest moves a request from one status to the next.
type TransitionRequestRequest struct {
	From domain.RequestStatus `json:"from" validate:"required,oneof=waiting active completed"`
	To   domain.RequestStatus `json:"to" validate:"required,oneof=waiting active completed"`
}

// RequestResponse is the API shape of a request.
type RequestResponse struct {
	ID            string               `json:"id"`
	ParticipantID string               `json:"user_id"`
	Issue         string               `json:"issue"`
	Status        domain.RequestStatus `json:"status"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// RequestSummaryResponse adds the owner's display fields.
type RequestSummaryResponse struct {
	RequestResponse
	ParticipantName  string `json:"user_name"`
	ParticipantEmail string `json:"user_email"`
}

func NewRequestResponse(r *domain.Request) RequestResponse {
	return RequestResponse{
		ID:            r.ID,
		ParticipantID: r.ParticipantID,
		Issue:         r.Issue,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func (r RequestResponse) Domain() *domain.Request {
	return &domain.Request{
		ID:            r.ID,
		ParticipantID: r.ParticipantID,
		Issue:         r.Issue,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func NewRequestSummaryResponse(s domain.RequestSummary) RequestSummaryResponse {
	return RequestSummaryResponse{
		RequestResponse:  NewRequestResponse(&s.Request),
		ParticipantName:  s.ParticipantName,
		ParticipantEmail: s.ParticipantEmail,
	}
}

func (r RequestSummaryResponse) Domain() domain.RequestSummary {
	return domain.RequestSummary{
		Request:          *r.RequestResponse.Domain(),
		ParticipantName:  r.ParticipantName,
		ParticipantEmail: r.ParticipantEmail,
	}
}
