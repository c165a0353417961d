package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/relaydesk/live-chat/internal/api/dto"
	"github.com/relaydesk/live-chat/internal/domain"
	apperrors "github.com/relaydesk/live-chat/pkg/util"
)

// RequestsHandler manages chat requests.
type RequestsHandler struct {
	chat ChatAPI
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(chat ChatAPI) *RequestsHandler {
	return &RequestsHandler{chat: chat}
}

// Create POST /v1/requests.
func (h *RequestsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	r := &domain.Request{ParticipantID: req.ParticipantID, Issue: req.Issue}
	if err := h.chat.CreateRequest(c.UserContext(), r); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewRequestResponse(r)})
}

// Get GET /v1/requests/:id.
func (h *RequestsHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	r, err := h.chat.GetRequest(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(r)})
}

// List GET /v1/requests (agents).
func (h *RequestsHandler) List(c *fiber.Ctx) error {
	list, err := h.chat.ListRequests(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.RequestSummaryResponse, 0, len(list))
	for _, s := range list {
		items = append(items, dto.NewRequestSummaryResponse(s))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Transition POST /v1/requests/:id/transition (agents).
func (h *RequestsHandler) Transition(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.TransitionRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	r, err := h.chat.TransitionRequest(c.UserContext(), id, req.From, req.To)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestResponse(r)})
}
