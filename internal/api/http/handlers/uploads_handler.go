package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/relaydesk/live-chat/internal/api/dto"
	"github.com/relaydesk/live-chat/internal/storage"
	apperrors "github.com/relaydesk/live-chat/pkg/util"
)

// UploadsHandler accepts chat image uploads.
type UploadsHandler struct {
	chat     ChatAPI
	maxBytes int64
	now      func() time.Time
}

// NewUploadsHandler constructs handler.
func NewUploadsHandler(chat ChatAPI, maxBytes int64) *UploadsHandler {
	if maxBytes <= 0 {
		maxBytes = storage.MaxImageBytes
	}
	return &UploadsHandler{chat: chat, maxBytes: maxBytes, now: time.Now}
}

// Upload POST /v1/uploads, multipart field "file" and optional "key".
func (h *UploadsHandler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file is required", nil)
	}
	declared := fh.Header.Get("Content-Type")
	if fh.Size > h.maxBytes {
		_, err := storage.CheckImage(fh.Size, declared, nil, h.maxBytes)
		return err
	}

	f, err := fh.Open()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.maxBytes+1))
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	key := strings.TrimSpace(c.FormValue("key"))
	if key == "" {
		key = storage.ObjectKey(h.now(), fh.Filename)
	}
	url, err := h.chat.UploadImage(c.UserContext(), key, declared, data)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.UploadResponse{Key: key, URL: url}})
}
