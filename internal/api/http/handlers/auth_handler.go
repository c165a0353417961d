package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/relaydesk/live-chat/internal/api/dto"
	apperrors "github.com/relaydesk/live-chat/pkg/util"
)

// AuthHandler serves agent sign-in.
type AuthHandler struct {
	auth AgentAuthenticator
}

// NewAuthHandler constructs handler.
func NewAuthHandler(auth AgentAuthenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login POST /auth/agents/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.AgentLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	session, err := h.auth.LoginAgent(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AgentLoginResponse{
		AccessToken: session.Token,
		ExpiresAt:   session.ExpiresAt,
		Agent:       dto.NewParticipantResponse(session.Agent),
	}})
}
