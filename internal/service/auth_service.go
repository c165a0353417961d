package service

import (
	"context"
	"strings"
	"time"

	"github.com/relaydesk/live-chat/internal/auth"
	"github.com/relaydesk/live-chat/internal/config"
	"github.com/relaydesk/live-chat/internal/domain"
	"github.com/relaydesk/live-chat/internal/repository"
	apperrors "github.com/relaydesk/live-chat/pkg/util"
)

// ParticipantEnsurer get-or-creates participants by email.
type ParticipantEnsurer interface {
	EnsureParticipant(ctx context.Context, p *domain.Participant) (bool, error)
}

// AuthService signs agents in and provisions their participant rows.
type AuthService struct {
	credentials  repository.AgentCredentialRepository
	participants ParticipantEnsurer
	tokenMgr     *auth.TokenManager
	bcryptCost   int
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	CredentialRepo repository.AgentCredentialRepository
	Participants   ParticipantEnsurer
	TokenManager   *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	tokens := deps.TokenManager
	if tokens == nil {
		tokens = auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes)
	}
	return &AuthService{
		credentials:  deps.CredentialRepo,
		participants: deps.Participants,
		tokenMgr:     tokens,
		bcryptCost:   cfg.BcryptCost,
	}
}

// AgentSession is the result of a successful sign-in.
type AgentSession struct {
	Agent     *domain.Participant
	Token     string
	ExpiresAt time.Time
}

// LoginAgent verifies credentials, then get-or-creates the agent participant.
func (s *AuthService) LoginAgent(ctx context.Context, email, password string) (*AgentSession, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	cred, err := s.credentials.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(cred.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	agent := &domain.Participant{
		Name:   domain.AgentDisplayName(email),
		Email:  email,
		Role:   domain.RoleAgent,
		Status: domain.PresenceOnline,
	}
	if _, err := s.participants.EnsureParticipant(ctx, agent); err != nil {
		return nil, err
	}
	if agent.Role != domain.RoleAgent {
		return nil, apperrors.NewForbidden("email is registered to a customer")
	}

	token, exp, err := s.tokenMgr.GenerateToken(*agent)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AgentSession{Agent: agent, Token: token, ExpiresAt: exp}, nil
}

// RegisterAgent stores or replaces an agent's password.
func (s *AuthService) RegisterAgent(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(password) < 8 {
		return apperrors.NewValidationError("email and a password of at least 8 characters are required", nil)
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return s.credentials.Upsert(ctx, &domain.AgentCredential{Email: email, PasswordHash: hash})
}
