package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/relaydesk/live-chat/internal/api/dto"
	"github.com/relaydesk/live-chat/internal/domain"
	apperrors "github.com/relaydesk/live-chat/pkg/util"
)

// ParticipantsHandler manages participant identities.
type ParticipantsHandler struct {
	chat ChatAPI
}

// NewParticipantsHandler constructs handler.
func NewParticipantsHandler(chat ChatAPI) *ParticipantsHandler {
	return &ParticipantsHandler{chat: chat}
}

// Create POST /v1/participants. A taken email answers 409.
func (h *ParticipantsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateParticipantRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := dto.Validate(req); err != nil {
		return err
	}
	// Agent rows are provisioned by sign-in only.
	if req.Role == domain.RoleAgent {
		return apperrors.NewForbidden("agents are created by signing in")
	}
	p := &domain.Participant{Name: req.Name, Email: req.Email, Role: domain.RoleCustomer}
	if err := h.chat.CreateParticipant(c.UserContext(), p); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewParticipantResponse(p)})
}

// Get GET /v1/participants/:id.
func (h *ParticipantsHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.chat.Participant(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewParticipantResponse(p)})
}

// Lookup GET /v1/participants?email=.
func (h *ParticipantsHandler) Lookup(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		return apperrors.NewValidationError("email query parameter is required", nil)
	}
	p, err := h.chat.ParticipantByEmail(c.UserContext(), email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewParticipantResponse(p)})
}
