package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relaydesk/live-chat/internal/domain"
	"github.com/relaydesk/live-chat/internal/events"
	apperrors "github.com/relaydesk/live-chat/pkg/util"
)

// ClosingMessage is sent on the agent's behalf when a request is resolved.
const ClosingMessage = "Your issue has been resolved. Thank you for reaching out!"

// DashboardDeps are the collaborators of a Dashboard.
type DashboardDeps struct {
	Requests       RequestStore
	Messages       MessageStore
	Feed           events.Feed
	ClosingMessage string
	Logger         *zap.Logger
}

// Dashboard is the agent's view over all requests.
type Dashboard struct {
	agent    domain.Participant
	requests RequestStore
	messages MessageStore
	feed     events.Feed
	closing  string
	logger   *zap.Logger
}

func NewDashboard(agent domain.Participant, deps DashboardDeps) (*Dashboard, error) {
	if agent.Role != domain.RoleAgent {
		return nil, apperrors.NewForbidden("dashboard requires an agent")
	}
	closing := deps.ClosingMessage
	if closing == "" {
		closing = ClosingMessage
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dashboard{
		agent:    agent,
		requests: deps.Requests,
		messages: deps.Messages,
		feed:     deps.Feed,
		closing:  closing,
		logger:   logger.With(zap.String("component", "dashboard"), zap.String("agent_id", agent.ID)),
	}, nil
}

// List returns every request with its owner, newest first.
func (d *Dashboard) List(ctx context.Context) ([]domain.RequestSummary, error) {
	list, err := d.requests.ListRequests(ctx)
	if err != nil {
		d.logger.Error("list requests failed", zap.Error(err))
		return nil, fmt.Errorf("list requests: %w", err)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

// Search filters list by a case-insensitive substring of the owner's name.
func Search(list []domain.RequestSummary, query string) []domain.RequestSummary {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return list
	}
	out := make([]domain.RequestSummary, 0, len(list))
	for _, r := range list {
		if strings.Contains(strings.ToLower(r.ParticipantName), query) {
			out = append(out, r)
		}
	}
	return out
}

// Accept moves a waiting request to active. Losing a race to another agent
// returns CONFLICT.
func (d *Dashboard) Accept(ctx context.Context, requestID string) (*domain.Request, error) {
	return d.transition(ctx, requestID, domain.RequestStatusWaiting, domain.RequestStatusActive)
}

// Resume reopens the conversation of an active request.
func (d *Dashboard) Resume(ctx context.Context, requestID string) (*domain.Request, error) {
	req, err := d.requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("load request: %w", err)
	}
	if req.Status != domain.RequestStatusActive {
		return nil, apperrors.NewConflict("only active requests can be resumed",
			map[string]any{"status": req.Status})
	}
	return req, nil
}

// Resolve completes an active request and posts the closing message as the
// agent.
func (d *Dashboard) Resolve(ctx context.Context, requestID string) (*domain.Request, error) {
	req, err := d.transition(ctx, requestID, domain.RequestStatusActive, domain.RequestStatusCompleted)
	if err != nil {
		return nil, err
	}
	m := &domain.Message{
		ID:         uuid.NewString(),
		RequestID:  requestID,
		SenderID:   d.agent.ID,
		SenderRole: domain.RoleAgent,
		Content:    d.closing,
		Status:     domain.DeliverySent,
	}
	if err := d.messages.CreateMessage(ctx, m); err != nil {
		d.logger.Error("closing message failed", zap.String("request_id", requestID), zap.Error(err))
		return req, fmt.Errorf("send closing message: %w", err)
	}
	return req, nil
}

// Watch calls fn with a fresh list now and after every request change until
// ctx is done.
func (d *Dashboard) Watch(ctx context.Context, fn func([]domain.RequestSummary)) error {
	sub, err := d.feed.Subscribe(ctx, events.RequestsChannel, events.Filter{Table: events.TableRequests, Op: events.OpAll})
	if err != nil {
		return fmt.Errorf("subscribe requests: %w", err)
	}
	defer sub.Close()

	reload := func() {
		list, err := d.List(ctx)
		if err != nil {
			return
		}
		fn(list)
	}
	reload()

	changes := sub.Changes()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			reload()
		}
	}
}

func (d *Dashboard) transition(ctx context.Context, id string, from, to domain.RequestStatus) (*domain.Request, error) {
	req, err := d.requests.TransitionRequest(ctx, id, from, to)
	if err != nil {
		if apperrors.IsConflict(err) {
			d.logger.Info("transition lost", zap.String("request_id", id), zap.String("to", string(to)))
			return nil, err
		}
		d.logger.Error("transition failed", zap.String("request_id", id), zap.Error(err))
		return nil, fmt.Errorf("transition request: %w", err)
	}
	d.logger.Info("request transitioned", zap.String("request_id", id),
		zap.String("from", string(from)), zap.String("to", string(to)))
	return req, nil
}
