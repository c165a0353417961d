package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/relaydesk/live-chat/internal/domain"
	apperrors "github.com/relaydesk/live-chat/pkg/util"
)

// Session is an open conversation from the customer's side.
type Session struct {
	Participant domain.Participant
	Request     domain.Request
}

func (s Session) ParticipantID() string        { return s.Participant.ID }
func (s Session) RequestID() string            { return s.Request.ID }
func (s Session) Role() domain.ParticipantRole { return s.Participant.Role }

type startInput struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"required,email,max=254"`
	Issue string `json:"issue" validate:"required,max=4000"`
}

// SessionInitiator resolves the participant by email and opens a request.
type SessionInitiator struct {
	participants ParticipantStore
	requests     RequestStore
	logger       *zap.Logger
}

func NewSessionInitiator(participants ParticipantStore, requests RequestStore, logger *zap.Logger) *SessionInitiator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionInitiator{
		participants: participants,
		requests:     requests,
		logger:       logger.With(zap.String("component", "session_initiator")),
	}
}

// Start validates the form, reuses or creates the customer and opens a
// waiting request. Invalid input makes no backend call. If the request
// cannot be created the participant stays persisted.
func (s *SessionInitiator) Start(ctx context.Context, name, email, issue string) (*Session, error) {
	in := startInput{
		Name:  strings.TrimSpace(name),
		Email: strings.TrimSpace(email),
		Issue: strings.TrimSpace(issue),
	}
	if err := apperrors.Validate(in); err != nil {
		return nil, err
	}

	participant, err := s.getOrCreate(ctx, &domain.Participant{
		Name:   in.Name,
		Email:  in.Email,
		Role:   domain.RoleCustomer,
		Status: domain.PresenceOnline,
	})
	if err != nil {
		return nil, err
	}

	req := &domain.Request{ParticipantID: participant.ID, Issue: in.Issue, Status: domain.RequestStatusWaiting}
	if err := s.requests.CreateRequest(ctx, req); err != nil {
		s.logger.Error("create request failed", zap.String("participant_id", participant.ID), zap.Error(err))
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.logger.Info("session started", zap.String("participant_id", participant.ID), zap.String("request_id", req.ID))
	return &Session{Participant: *participant, Request: *req}, nil
}

// EnsureAgent returns the agent participant for email, creating it on first
// use with a name taken from the address.
func (s *SessionInitiator) EnsureAgent(ctx context.Context, email string) (*domain.Participant, error) {
	email = strings.TrimSpace(email)
	if err := apperrors.Validate(struct {
		Email string `json:"email" validate:"required,email"`
	}{email}); err != nil {
		return nil, err
	}
	agent, err := s.getOrCreate(ctx, &domain.Participant{
		Name:   domain.AgentDisplayName(email),
		Email:  email,
		Role:   domain.RoleAgent,
		Status: domain.PresenceOnline,
	})
	if err != nil {
		return nil, err
	}
	if agent.Role != domain.RoleAgent {
		return nil, apperrors.NewForbidden("email belongs to a customer")
	}
	return agent, nil
}

// getOrCreate looks up by email, creates when missing and, if another
// writer won the insert, reuses the winner.
func (s *SessionInitiator) getOrCreate(ctx context.Context, p *domain.Participant) (*domain.Participant, error) {
	existing, err := s.participants.ParticipantByEmail(ctx, p.Email)
	if err == nil {
		return existing, nil
	}
	if !apperrors.IsNotFound(err) {
		s.logger.Error("lookup participant failed", zap.Error(err))
		return nil, fmt.Errorf("lookup participant: %w", err)
	}

	if err := s.participants.CreateParticipant(ctx, p); err != nil {
		if !apperrors.IsConflict(err) {
			s.logger.Error("create participant failed", zap.Error(err))
			return nil, fmt.Errorf("create participant: %w", err)
		}
		winner, lookupErr := s.participants.ParticipantByEmail(ctx, p.Email)
		if lookupErr != nil {
			return nil, fmt.Errorf("lookup participant after conflict: %w", lookupErr)
		}
		return winner, nil
	}
	return p, nil
}
