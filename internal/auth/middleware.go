package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/relaydesk/live-chat/internal/domain"
	apperrors "github.com/relaydesk/live-chat/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Participant *domain.Participant
}

// ParticipantLookup loads the participant named by a token.
type ParticipantLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Participant, error)
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens       *TokenManager
	participants ParticipantLookup
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, participants ParticipantLookup) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, participants: participants}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	participant, err := m.participants.GetByID(c.UserContext(), claims.Subject)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewUnauthorized("participant not found")
		}
		return apperrors.MapError(err)
	}
	if participant.Role != claims.Role {
		return apperrors.NewUnauthorized("role changed; sign in again")
	}

	c.Locals(principalKey, &Principal{Participant: participant})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// Optional authenticates the caller when an Authorization header is present
// and lets anonymous requests through.
func (m *AuthMiddleware) Optional(c *fiber.Ctx) error {
	if c.Get("Authorization") == "" {
		return c.Next()
	}
	return m.Handle(c)
}
