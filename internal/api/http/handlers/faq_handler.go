package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/relaydesk/live-chat/internal/api/dto"
	apperrors "github.com/relaydesk/live-chat/pkg/util"
)

// FAQHandler exposes the FAQ responder.
type FAQHandler struct {
	faq FAQResponder
}

func NewFAQHandler(faq FAQResponder) *FAQHandler {
	return &FAQHandler{faq: faq}
}

// Chat POST /v1/faq/chat.
func (h *FAQHandler) Chat(c *fiber.Ctx) error {
	var req dto.FAQChatRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return apperrors.NewValidationError("No input provided", nil)
	}
	answer, err := h.faq.Answer(c.UserContext(), req.Message)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FAQChatResponse{Response: answer.Response, Matched: answer.Matched}})
}

// Pending GET /v1/faq/unanswered (agents).
func (h *FAQHandler) Pending(c *fiber.Ctx) error {
	list, err := h.faq.Pending(c.UserContext(), c.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	items := make([]fiber.Map, 0, len(list))
	for _, q := range list {
		items = append(items, fiber.Map{"id": q.ID, "question": q.Question, "status": q.Status, "created_at": q.CreatedAt})
	}
	return c.JSON(fiber.Map{"data": items})
}
