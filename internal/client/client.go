// Package client talks to the live-chat HTTP API and websocket feed. It
// implements the chat engine's backend and feed interfaces so the same
// engine runs in-process or against a remote server.
package client

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/relaydesk/live-chat/internal/api/dto"
	"github.com/relaydesk/live-chat/internal/chat"
	"github.com/relaydesk/live-chat/internal/config"
	"github.com/relaydesk/live-chat/internal/domain"
	apperrors "github.com/relaydesk/live-chat/pkg/util"
)

type envelope[T any] struct {
	Data T `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

// Client is a resty-backed chat API client.
type Client struct {
	http   *resty.Client
	logger *zap.Logger

	mu    sync.RWMutex
	token string
}

// New builds a client for cfg.BaseURL.
func New(cfg config.ClientConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetHeader("Accept", "application/json").
			SetTimeout(cfg.Timeout()),
		logger: logger.With(zap.String("component", "chat_client")),
	}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) r(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx).SetError(&errorEnvelope{})
	c.mu.RLock()
	if c.token != "" {
		req.SetAuthToken(c.token)
	}
	c.mu.RUnlock()
	return req
}

// check turns transport failures and error envelopes into errors; API
// errors come back as DomainError with the server's code.
func check(resp *resty.Response, err error) error {
	if err != nil {
		return &apperrors.DomainError{
			Code:       apperrors.CodeUnavailable,
			Message:    "chat api unreachable",
			HTTPStatus: http.StatusServiceUnavailable,
			Err:        err,
		}
	}
	if !resp.IsError() {
		return nil
	}
	if env, ok := resp.Error().(*errorEnvelope); ok && env.Error.Code != "" {
		return apperrors.NewDomainError(env.Error.Code, env.Error.Message, resp.StatusCode(), env.Error.Details)
	}
	return apperrors.NewDomainError(apperrors.CodeInternal,
		fmt.Sprintf("chat api: unexpected status %d", resp.StatusCode()), resp.StatusCode(), nil)
}

// LoginAgent signs in and keeps the returned token for later calls.
func (c *Client) LoginAgent(ctx context.Context, email, password string) (*dto.AgentLoginResponse, error) {
	var out envelope[dto.AgentLoginResponse]
	resp, err := c.r(ctx).
		SetBody(dto.AgentLoginRequest{Email: email, Password: password}).
		SetResult(&out).
		Post("/auth/agents/login")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	c.SetToken(out.Data.AccessToken)
	return &out.Data, nil
}

func (c *Client) Participant(ctx context.Context, id string) (*domain.Participant, error) {
	var out envelope[dto.ParticipantResponse]
	resp, err := c.r(ctx).SetResult(&out).SetPathParam("id", id).Get("/v1/participants/{id}")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out.Data.Domain(), nil
}

func (c *Client) ParticipantByEmail(ctx context.Context, email string) (*domain.Participant, error) {
	var out envelope[dto.ParticipantResponse]
	resp, err := c.r(ctx).SetResult(&out).SetQueryParam("email", email).Get("/v1/participants")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out.Data.Domain(), nil
}

func (c *Client) CreateParticipant(ctx context.Context, p *domain.Participant) error {
	var out envelope[dto.ParticipantResponse]
	resp, err := c.r(ctx).
		SetBody(dto.CreateParticipantRequest{Name: p.Name, Email: p.Email, Role: p.Role}).
		SetResult(&out).
		Post("/v1/participants")
	if err := check(resp, err); err != nil {
		return err
	}
	*p = *out.Data.Domain()
	return nil
}

func (c *Client) CreateRequest(ctx context.Context, r *domain.Request) error {
	var out envelope[dto.RequestResponse]
	resp, err := c.r(ctx).
		SetBody(dto.CreateRequestRequest{ParticipantID: r.ParticipantID, Issue: r.Issue}).
		SetResult(&out).
		Post("/v1/requests")
	if err := check(resp, err); err != nil {
		return err
	}
	*r = *out.Data.Domain()
	return nil
}

func (c *Client) GetRequest(ctx context.Context, id string) (*domain.Request, error) {
	var out envelope[dto.RequestResponse]
	resp, err := c.r(ctx).SetResult(&out).SetPathParam("id", id).Get("/v1/requests/{id}")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out.Data.Domain(), nil
}

func (c *Client) ListRequests(ctx context.Context) ([]domain.RequestSummary, error) {
	var out envelope[[]dto.RequestSummaryResponse]
	resp, err := c.r(ctx).SetResult(&out).Get("/v1/requests")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	list := make([]domain.RequestSummary, 0, len(out.Data))
	for _, item := range out.Data {
		list = append(list, item.Domain())
	}
	return list, nil
}

func (c *Client) TransitionRequest(ctx context.Context, id string, from, to domain.RequestStatus) (*domain.Request, error) {
	var out envelope[dto.RequestResponse]
	resp, err := c.r(ctx).
		SetPathParam("id", id).
		SetBody(dto.TransitionRequestRequest{From: from, To: to}).
		SetResult(&out).
		Post("/v1/requests/{id}/transition")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out.Data.Domain(), nil
}

func (c *Client) ListMessages(ctx context.Context, requestID string, page, pageSize int) ([]domain.Message, error) {
	var out envelope[[]dto.MessageResponse]
	resp, err := c.r(ctx).
		SetPathParam("id", requestID).
		SetQueryParams(map[string]string{"page": strconv.Itoa(page), "page_size": strconv.Itoa(pageSize)}).
		SetResult(&out).
		Get("/v1/requests/{id}/messages")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	msgs := make([]domain.Message, 0, len(out.Data))
	for _, m := range out.Data {
		msgs = append(msgs, m.Domain())
	}
	return msgs, nil
}

func (c *Client) CreateMessage(ctx context.Context, m *domain.Message) error {
	var out envelope[dto.MessageResponse]
	resp, err := c.r(ctx).
		SetPathParam("id", m.RequestID).
		SetBody(dto.CreateMessageRequest{
			ID:         m.ID,
			SenderID:   m.SenderID,
			SenderRole: m.SenderRole,
			Content:    m.Content,
			ImageURL:   m.ImageURL,
		}).
		SetResult(&out).
		Post("/v1/requests/{id}/messages")
	if err := check(resp, err); err != nil {
		return err
	}
	*m = out.Data.Domain()
	return nil
}

func (c *Client) MarkMessagesRead(ctx context.Context, ids []string) (int, error) {
	var out envelope[dto.MarkReadResponse]
	resp, err := c.r(ctx).SetBody(dto.MarkReadRequest{IDs: ids}).SetResult(&out).Post("/v1/messages/read")
	if err := check(resp, err); err != nil {
		return 0, err
	}
	return out.Data.Updated, nil
}

func (c *Client) UpsertTyping(ctx context.Context, t domain.TypingStatus) error {
	resp, err := c.r(ctx).
		SetPathParam("id", t.RequestID).
		SetBody(dto.TypingRequest{ParticipantID: t.ParticipantID, Role: t.Role, IsTyping: t.IsTyping}).
		Put("/v1/requests/{id}/typing")
	return check(resp, err)
}

func (c *Client) UploadImage(ctx context.Context, key, contentType string, data []byte) (string, error) {
	var out envelope[dto.UploadResponse]
	resp, err := c.r(ctx).
		SetMultipartField("file", key, contentType, bytes.NewReader(data)).
		SetFormData(map[string]string{"key": key}).
		SetResult(&out).
		Post("/v1/uploads")
	if err := check(resp, err); err != nil {
		return "", err
	}
	return out.Data.URL, nil
}

// AskFAQ sends a question to the FAQ responder.
func (c *Client) AskFAQ(ctx context.Context, message string) (*dto.FAQChatResponse, error) {
	var out envelope[dto.FAQChatResponse]
	resp, err := c.r(ctx).SetBody(dto.FAQChatRequest{Message: message}).SetResult(&out).Post("/v1/faq/chat")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

var _ chat.Backend = (*Client)(nil)
