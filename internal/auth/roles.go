package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/relaydesk/live-chat/internal/domain"
	apperrors "github.com/relaydesk/live-chat/pkg/util"
)

// RequireAgent ensures the caller signed in as a support agent.
func RequireAgent() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Participant == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.Participant.Role != domain.RoleAgent {
			return apperrors.NewForbidden("agent role required")
		}
		return c.Next()
	}
}
