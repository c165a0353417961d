package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	apperrors "github.com/relaydesk/live-chat/pkg/util"
)

// pathID returns the named path parameter once it parses as a UUID, so
// malformed ids are rejected before they reach Postgres.
func pathID(c *fiber.Ctx, name string) (string, error) {
	id := c.Params(name)
	if _, err := uuid.Parse(id); err != nil {
		return "", apperrors.NewValidationError("invalid "+name, map[string]any{name: "uuid"})
	}
	return id, nil
}
