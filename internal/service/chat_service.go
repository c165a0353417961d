package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/relaydesk/live-chat/internal/domain"
	"github.com/relaydesk/live-chat/internal/events"
	"github.com/relaydesk/live-chat/internal/observability"
	"github.com/relaydesk/live-chat/internal/repository"
	"github.com/relaydesk/live-chat/internal/storage"
	apperrors "github.com/relaydesk/live-chat/pkg/util"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	listPageSize    = 200
)

var objectKeyPattern = regexp.MustCompile(`^[0-9]+-[^/\\\s]+$`)

// ChatService owns participants, requests, messages and typing rows, and
// publishes every committed change to the feed.
type ChatService struct {
	participants  repository.ParticipantRepository
	requests      repository.RequestRepository
	messages      repository.MessageRepository
	typing        repository.TypingRepository
	objects       storage.ObjectStore
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	maxImageBytes int64
}

// ChatDependencies bundles collaborators for the chat service.
type ChatDependencies struct {
	ParticipantRepo repository.ParticipantRepository
	RequestRepo     repository.RequestRepository
	MessageRepo     repository.MessageRepository
	TypingRepo      repository.TypingRepository
	ObjectStore     storage.ObjectStore
	Dispatcher      events.Dispatcher
	Metrics         *observability.Metrics
	Logger          *zap.Logger
	MaxImageBytes   int64
}

// NewChatService constructs the service.
func NewChatService(deps ChatDependencies) *ChatService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		participants:  deps.ParticipantRepo,
		requests:      deps.RequestRepo,
		messages:      deps.MessageRepo,
		typing:        deps.TypingRepo,
		objects:       deps.ObjectStore,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        logger.With(zap.String("component", "chat_service")),
		maxImageBytes: deps.MaxImageBytes,
	}
}

// Participant loads a participant by id.
func (s *ChatService) Participant(ctx context.Context, id string) (*domain.Participant, error) {
	p, err := s.participants.GetByID(ctx, id)
	if err != nil {
		return nil, repoError("participant", err)
	}
	return p, nil
}

// ParticipantByEmail loads a participant by email; NOT_FOUND when absent.
func (s *ChatService) ParticipantByEmail(ctx context.Context, email string) (*domain.Participant, error) {
	p, err := s.participants.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, repoError("participant", err)
	}
	return p, nil
}

// CreateParticipant inserts a participant; a taken email is a CONFLICT.
func (s *ChatService) CreateParticipant(ctx context.Context, p *domain.Participant) error {
	if err := normalizeParticipant(p); err != nil {
		return err
	}
	if err := s.participants.Create(ctx, p); err != nil {
		return repoError("participant", err)
	}
	return nil
}

// EnsureParticipant returns the participant with p's email, creating it from p
// when absent. The bool reports whether it was created.
func (s *ChatService) EnsureParticipant(ctx context.Context, p *domain.Participant) (bool, error) {
	if err := normalizeParticipant(p); err != nil {
		return false, err
	}
	created, err := s.participants.GetOrCreate(ctx, p)
	if err != nil {
		return false, repoError("participant", err)
	}
	return created, nil
}

func normalizeParticipant(p *domain.Participant) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	if p.Name == "" || p.Email == "" {
		return apperrors.NewValidationError("name and email are required", nil)
	}
	if p.Role == "" {
		p.Role = domain.RoleCustomer
	}
	if !p.Role.Valid() {
		return apperrors.NewValidationError("invalid role", map[string]any{"role": p.Role})
	}
	if p.Status == "" {
		p.Status = domain.PresenceOnline
	}
	return nil
}

// CreateRequest opens a waiting request for an existing participant.
func (s *ChatService) CreateRequest(ctx context.Context, r *domain.Request) error {
	r.Issue = strings.TrimSpace(r.Issue)
	if r.ParticipantID == "" || r.Issue == "" {
		return apperrors.NewValidationError("participant and issue are required", nil)
	}
	if _, err := s.participants.GetByID(ctx, r.ParticipantID); err != nil {
		return repoError("participant", err)
	}
	r.Status = domain.RequestStatusWaiting
	if err := s.requests.Create(ctx, r); err != nil {
		return repoError("request", err)
	}
	s.publish(ctx, events.RequestsChannel, events.TableRequests, events.OpInsert, events.NewRequestRecord(*r))
	return nil
}

// GetRequest loads a request.
func (s *ChatService) GetRequest(ctx context.Context, id string) (*domain.Request, error) {
	r, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, repoError("request", err)
	}
	return r, nil
}

// ListRequests returns every request joined with its owner, newest first.
// Rows are read a page at a time; a request inserted mid-scan can shift a
// row into the next page, so ids already seen are skipped.
func (s *ChatService) ListRequests(ctx context.Context) ([]domain.RequestSummary, error) {
	var list []domain.RequestSummary
	seen := make(map[string]struct{})
	for offset := 0; ; offset += listPageSize {
		page, err := s.requests.ListSummaries(ctx, repository.RequestFilter{Limit: listPageSize, Offset: offset})
		if err != nil {
			return nil, fmt.Errorf("list requests: %w", err)
		}
		for _, r := range page {
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
			list = append(list, r)
		}
		if len(page) < listPageSize {
			return list, nil
		}
	}
}

// TransitionRequest applies from -> to only while the stored status is still from.
func (s *ChatService) TransitionRequest(ctx context.Context, id string, from, to domain.RequestStatus) (*domain.Request, error) {
	if !from.CanTransition(to) {
		return nil, apperrors.NewValidationError("transition not allowed", map[string]any{"from": from, "to": to})
	}
	updated, err := s.requests.CompareAndSetStatus(ctx, id, from, to)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transition request: %w", err)
		}
		current, getErr := s.requests.GetByID(ctx, id)
		if getErr != nil {
			return nil, repoError("request", getErr)
		}
		return nil, apperrors.NewConflict("request status changed", map[string]any{
			"expected": from,
			"current":  current.Status,
		})
	}
	s.publish(ctx, events.RequestsChannel, events.TableRequests, events.OpUpdate, events.NewRequestRecord(*updated))
	return updated, nil
}

// ListMessages returns one ascending page of a request's messages. Pages start at 1.
func (s *ChatService) ListMessages(ctx context.Context, requestID string, page, pageSize int) ([]domain.Message, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	list, err := s.messages.ListByRequest(ctx, requestID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return list, nil
}

// CreateMessage inserts a message. A missing id is generated; a reused id is a CONFLICT.
func (s *ChatService) CreateMessage(ctx context.Context, m *domain.Message) error {
	m.Content = strings.TrimSpace(m.Content)
	if m.ImageURL != nil && strings.TrimSpace(*m.ImageURL) == "" {
		m.ImageURL = nil
	}
	if m.Content == "" && m.ImageURL == nil {
		return apperrors.NewRejection(apperrors.CodeEmptyMessage, "message needs text or an image", nil)
	}
	if m.RequestID == "" || m.SenderID == "" || !m.SenderRole.Valid() {
		return apperrors.NewValidationError("request, sender and sender role are required", nil)
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	} else if _, err := uuid.Parse(m.ID); err != nil {
		return apperrors.NewValidationError("message id must be a uuid", map[string]any{"id": m.ID})
	}
	if m.Status == "" || m.Status == domain.DeliverySending {
		m.Status = domain.DeliverySent
	}
	if _, err := s.requests.GetByID(ctx, m.RequestID); err != nil {
		return repoError("request", err)
	}
	if err := s.messages.Create(ctx, m); err != nil {
		return repoError("message", err)
	}
	s.publish(ctx, events.ChatChannel(m.RequestID), events.TableMessages, events.OpInsert, events.NewMessageRecord(*m))
	return nil
}

// MarkMessagesRead moves the given messages to read and reports how many changed.
func (s *ChatService) MarkMessagesRead(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return 0, apperrors.NewValidationError("message ids must be uuids", map[string]any{"id": id})
		}
	}
	updated, err := s.messages.MarkRead(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	for _, m := range updated {
		s.publish(ctx, events.ChatChannel(m.RequestID), events.TableMessages, events.OpUpdate, events.NewMessageRecord(m))
	}
	return len(updated), nil
}

// UpsertTyping records the latest typing state of a participant.
func (s *ChatService) UpsertTyping(ctx context.Context, t domain.TypingStatus) error {
	if t.RequestID == "" || t.ParticipantID == "" || !t.Role.Valid() {
		return apperrors.NewValidationError("request, participant and role are required", nil)
	}
	inserted, err := s.typing.Upsert(ctx, &t)
	if err != nil {
		return repoError("typing status", err)
	}
	op := events.OpUpdate
	if inserted {
		op = events.OpInsert
	}
	s.publish(ctx, events.ChatChannel(t.RequestID), events.TableTyping, op, events.NewTypingRecord(t))
	return nil
}

// ClearStaleTyping resets typing flags older than maxAge, for clients that went
// away mid-sentence, and reports how many were reset.
func (s *ChatService) ClearStaleTyping(ctx context.Context, maxAge time.Duration) (int, error) {
	cleared, err := s.typing.ClearStale(ctx, time.Now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("clear stale typing: %w", err)
	}
	for _, t := range cleared {
		s.publish(ctx, events.ChatChannel(t.RequestID), events.TableTyping, events.OpUpdate, events.NewTypingRecord(t))
	}
	return len(cleared), nil
}

// UploadImage validates and stores an image and returns its public URL.
func (s *ChatService) UploadImage(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if !objectKeyPattern.MatchString(key) {
		return "", apperrors.NewValidationError("invalid object key", map[string]any{"key": key})
	}
	resolved, err := storage.CheckImage(int64(len(data)), contentType, data, s.maxImageBytes)
	if err != nil {
		return "", err
	}
	if err := s.objects.Upload(ctx, key, resolved, data); err != nil {
		s.logger.Error("image upload failed", zap.String("key", key), zap.Error(err))
		return "", apperrors.NewDomainError(apperrors.CodeUnavailable, "image storage unavailable", http.StatusServiceUnavailable, nil)
	}
	s.metrics.RecordUpload(resolved, len(data))
	return s.objects.PublicURL(key), nil
}

func (s *ChatService) publish(ctx context.Context, channel string, table events.Table, op events.Op, record any) {
	if s.dispatcher == nil {
		return
	}
	change, err := events.NewChange(channel, table, op, record)
	if err != nil {
		s.logger.Error("failed to build change", zap.Error(err))
		return
	}
	if err := s.dispatcher.Publish(ctx, change); err != nil {
		s.logger.Warn("failed to publish change", zap.String("channel", channel), zap.Error(err))
	}
	s.metrics.RecordChange(string(table), string(op))
}

func repoError(resource string, err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if apperrors.IsNotFound(err) {
		return apperrors.NewNotFound(resource, nil)
	}
	if apperrors.IsConflict(err) {
		return apperrors.NewConflict(resource+" already exists", nil)
	}
	return fmt.Errorf("%s: %w", resource, err)
}
