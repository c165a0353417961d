package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/relaydesk/live-chat/internal/config"
	"github.com/relaydesk/live-chat/internal/events"
)

// NotificationService reacts to request changes: it logs them and posts new
// waiting requests to an optional webhook.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	http       *resty.Client
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	client := resty.New()
	if cfg.TimeoutSeconds > 0 {
		client.SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger.With(zap.String("component", "notifications")),
		cfg:        cfg,
		http:       client,
	}
}

// RegisterHandlers subscribes to the requests channel and returns the cancel func.
func (n *NotificationService) RegisterHandlers() func() {
	if n.dispatcher == nil {
		return func() {}
	}
	return n.dispatcher.Subscribe(events.RequestsChannel, []events.Filter{{Table: events.TableRequests, Op: events.OpAll}}, n.handleRequestChange)
}

func (n *NotificationService) handleRequestChange(ctx context.Context, change events.Change) {
	var rec events.RequestRecord
	if err := change.Decode(&rec); err != nil {
		n.logger.Warn("undecodable request change", zap.Error(err))
		return
	}
	n.logger.Info("request changed",
		zap.String("request_id", rec.ID),
		zap.String("op", string(change.Op)),
		zap.String("status", rec.Status))

	if change.Op == events.OpInsert {
		go n.sendWebhook(context.WithoutCancel(ctx), rec)
	}
}

type webhookPayload struct {
	Event     string               `json:"event"`
	RequestID string               `json:"request_id"`
	Request   events.RequestRecord `json:"request"`
}

func (n *NotificationService) sendWebhook(ctx context.Context, rec events.RequestRecord) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	resp, err := n.http.R().
		SetContext(ctx).
		SetBody(webhookPayload{Event: "request_created", RequestID: rec.ID, Request: rec}).
		Post(n.cfg.WebhookURL)
	if err != nil {
		n.logger.Warn("webhook delivery failed", zap.String("request_id", rec.ID), zap.Error(err))
		return
	}
	if resp.IsError() {
		n.logger.Warn("webhook rejected", zap.String("request_id", rec.ID), zap.Int("status", resp.StatusCode()))
	}
}
