package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relaydesk/live-chat/internal/domain"
	"github.com/relaydesk/live-chat/internal/storage"
	apperrors "github.com/relaydesk/live-chat/pkg/util"
)

// ImageDraft is an image picked for the next message. The type is detected
// from Data; a non-empty ContentType must agree with it.
type ImageDraft struct {
	Name        string
	ContentType string
	Data        []byte
}

// Draft is the outgoing message being composed.
type Draft struct {
	Text  string
	Image *ImageDraft
}

// Composer validates and sends messages for one participant in one request.
type Composer struct {
	requestID string
	sender    domain.Participant
	messages  MessageStore
	uploader  ImageUploader
	clock     Clock
	maxBytes  int64
	logger    *zap.Logger
}

// ComposerDeps are the collaborators of a Composer.
type ComposerDeps struct {
	Messages      MessageStore
	Uploader      ImageUploader
	Clock         Clock
	MaxImageBytes int64
	Logger        *zap.Logger
}

func NewComposer(requestID string, sender domain.Participant, deps ComposerDeps) *Composer {
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock()
	}
	maxBytes := deps.MaxImageBytes
	if maxBytes <= 0 {
		maxBytes = storage.MaxImageBytes
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{
		requestID: requestID,
		sender:    sender,
		messages:  deps.Messages,
		uploader:  deps.Uploader,
		clock:     clock,
		maxBytes:  maxBytes,
		logger:    logger.With(zap.String("component", "composer"), zap.String("request_id", requestID)),
	}
}

// Send validates the draft, uploads its image if any and creates the
// message. The message shows up locally only once the feed echoes it.
func (c *Composer) Send(ctx context.Context, d Draft) (*domain.Message, error) {
	text := strings.TrimSpace(d.Text)
	if text == "" && d.Image == nil {
		return nil, apperrors.NewRejection(apperrors.CodeEmptyMessage, "message is empty", nil)
	}

	var imageURL *string
	if d.Image != nil {
		contentType, err := storage.CheckImage(int64(len(d.Image.Data)), d.Image.ContentType, d.Image.Data, c.maxBytes)
		if err != nil {
			return nil, err
		}
		key := storage.ObjectKey(c.clock.Now(), d.Image.Name)
		url, err := c.uploader.UploadImage(ctx, key, contentType, d.Image.Data)
		if err != nil {
			c.logger.Error("image upload failed", zap.String("key", key), zap.Error(err))
			return nil, fmt.Errorf("upload image: %w", err)
		}
		imageURL = &url
	}

	m := &domain.Message{
		ID:         uuid.NewString(),
		RequestID:  c.requestID,
		SenderID:   c.sender.ID,
		SenderRole: c.sender.Role,
		Content:    text,
		ImageURL:   imageURL,
		Status:     domain.DeliverySent,
	}
	if err := c.messages.CreateMessage(ctx, m); err != nil {
		c.logger.Error("send message failed", zap.String("message_id", m.ID), zap.Error(err))
		return nil, fmt.Errorf("send message: %w", err)
	}
	return m, nil
}
