package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/relaydesk/live-chat/internal/api/dto"
	"github.com/relaydesk/live-chat/internal/auth"
	"github.com/relaydesk/live-chat/internal/domain"
	apperrors "github.com/relaydesk/live-chat/pkg/util"
)

// MessagesHandler serves message history, sending, read receipts and typing.
type MessagesHandler struct {
	chat     ChatAPI
	pageSize int
}

// NewMessagesHandler constructs handler.
func NewMessagesHandler(chat ChatAPI, pageSize int) *MessagesHandler {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &MessagesHandler{chat: chat, pageSize: pageSize}
}

// List GET /v1/requests/:id/messages?page=&page_size=.
func (h *MessagesHandler) List(c *fiber.Ctx) error {
	requestID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("page_size", h.pageSize)
	msgs, err := h.chat.ListMessages(c.UserContext(), requestID, page, pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.MessageResponse, 0, len(msgs))
	for i := range msgs {
		items = append(items, dto.NewMessageResponse(&msgs[i]))
	}
	return c.JSON(fiber.Map{"data": items, "page": page, "page_size": pageSize})
}

// Create POST /v1/requests/:id/messages.
func (h *MessagesHandler) Create(c *fiber.Ctx) error {
	requestID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	if err := requireSelfIfAgent(c, req.SenderRole, req.SenderID); err != nil {
		return err
	}
	m := &domain.Message{
		ID:         req.ID,
		RequestID:  requestID,
		SenderID:   req.SenderID,
		SenderRole: req.SenderRole,
		Content:    req.Content,
		ImageURL:   req.ImageURL,
		Status:     domain.DeliverySent,
	}
	if err := h.chat.CreateMessage(c.UserContext(), m); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewMessageResponse(m)})
}

// MarkRead POST /v1/messages/read.
func (h *MessagesHandler) MarkRead(c *fiber.Ctx) error {
	var req dto.MarkReadRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	n, err := h.chat.MarkMessagesRead(c.UserContext(), req.IDs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MarkReadResponse{Updated: n}})
}

// Typing PUT /v1/requests/:id/typing.
func (h *MessagesHandler) Typing(c *fiber.Ctx) error {
	requestID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.TypingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	if err := requireSelfIfAgent(c, req.Role, req.ParticipantID); err != nil {
		return err
	}
	err = h.chat.UpsertTyping(c.UserContext(), domain.TypingStatus{
		RequestID:     requestID,
		ParticipantID: req.ParticipantID,
		Role:          req.Role,
		IsTyping:      req.IsTyping,
	})
	if err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// requireSelfIfAgent stops anonymous callers from speaking as an agent.
func requireSelfIfAgent(c *fiber.Ctx, role domain.ParticipantRole, participantID string) error {
	if role != domain.RoleAgent {
		return nil
	}
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Participant == nil {
		return apperrors.NewUnauthorized("agent token required")
	}
	if principal.Participant.Role != domain.RoleAgent || principal.Participant.ID != participantID {
		return apperrors.NewForbidden("cannot act for another participant")
	}
	return nil
}
