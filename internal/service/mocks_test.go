package service_test

import (
	"context"
	"time"

	"github.com/relaydesk/live-chat/internal/domain"
	"github.com/relaydesk/live-chat/internal/repository"
)

type mockParticipantRepo struct {
	createFn      func(ctx context.Context, p *domain.Participant) error
	getOrCreateFn func(ctx context.Context, p *domain.Participant) (bool, error)
	getByIDFn     func(ctx context.Context, id string) (*domain.Participant, error)
	getByEmailFn  func(ctx context.Context, email string) (*domain.Participant, error)
}

func (m *mockParticipantRepo) Create(ctx context.Context, p *domain.Participant) error {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	return nil
}

func (m *mockParticipantRepo) GetOrCreate(ctx context.Context, p *domain.Participant) (bool, error) {
	if m.getOrCreateFn != nil {
		return m.getOrCreateFn(ctx, p)
	}
	return true, nil
}

func (m *mockParticipantRepo) GetByID(ctx context.Context, id string) (*domain.Participant, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return &domain.Participant{ID: id}, nil
}

func (m *mockParticipantRepo) GetByEmail(ctx context.Context, email string) (*domain.Participant, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, nil
}

type mockRequestRepo struct {
	createFn       func(ctx context.Context, r *domain.Request) error
	getByIDFn      func(ctx context.Context, id string) (*domain.Request, error)
	listFn         func(ctx context.Context, filter repository.RequestFilter) ([]domain.RequestSummary, error)
	compareSetFn   func(ctx context.Context, id string, from, to domain.RequestStatus) (*domain.Request, error)
	compareSetCall int
}

func (m *mockRequestRepo) Create(ctx context.Context, r *domain.Request) error {
	if m.createFn != nil {
		return m.createFn(ctx, r)
	}
	return nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return &domain.Request{ID: id, Status: domain.RequestStatusActive}, nil
}

func (m *mockRequestRepo) ListSummaries(ctx context.Context, filter repository.RequestFilter) ([]domain.RequestSummary, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, nil
}

func (m *mockRequestRepo) CompareAndSetStatus(ctx context.Context, id string, from, to domain.RequestStatus) (*domain.Request, error) {
	m.compareSetCall++
	if m.compareSetFn != nil {
		return m.compareSetFn(ctx, id, from, to)
	}
	return &domain.Request{ID: id, Status: to}, nil
}

type mockMessageRepo struct {
	createFn   func(ctx context.Context, msg *domain.Message) error
	getByIDFn  func(ctx context.Context, id string) (*domain.Message, error)
	listFn     func(ctx context.Context, requestID string, limit, offset int) ([]domain.Message, error)
	markReadFn func(ctx context.Context, ids []string) ([]domain.Message, error)
}

func (m *mockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	if m.createFn != nil {
		return m.createFn(ctx, msg)
	}
	return nil
}

func (m *mockMessageRepo) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockMessageRepo) ListByRequest(ctx context.Context, requestID string, limit, offset int) ([]domain.Message, error) {
	if m.listFn != nil {
		return m.listFn(ctx, requestID, limit, offset)
	}
	return nil, nil
}

func (m *mockMessageRepo) MarkRead(ctx context.Context, ids []string) ([]domain.Message, error) {
	if m.markReadFn != nil {
		return m.markReadFn(ctx, ids)
	}
	return nil, nil
}

type mockTypingRepo struct {
	upsertFn     func(ctx context.Context, status *domain.TypingStatus) (bool, error)
	clearStaleFn func(ctx context.Context, cutoff time.Time) ([]domain.TypingStatus, error)
}

func (m *mockTypingRepo) Upsert(ctx context.Context, status *domain.TypingStatus) (bool, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, status)
	}
	return true, nil
}

func (m *mockTypingRepo) ClearStale(ctx context.Context, cutoff time.Time) ([]domain.TypingStatus, error) {
	if m.clearStaleFn != nil {
		return m.clearStaleFn(ctx, cutoff)
	}
	return nil, nil
}

type mockCredentialRepo struct {
	getByEmailFn func(ctx context.Context, email string) (*domain.AgentCredential, error)
	upsertFn     func(ctx context.Context, cred *domain.AgentCredential) error
}

func (m *mockCredentialRepo) GetByEmail(ctx context.Context, email string) (*domain.AgentCredential, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockCredentialRepo) Upsert(ctx context.Context, cred *domain.AgentCredential) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, cred)
	}
	return nil
}

type mockFAQRepo struct {
	created []domain.UnansweredQuestion
	err     error
}

func (m *mockFAQRepo) CreateUnanswered(_ context.Context, q *domain.UnansweredQuestion) error {
	if m.err != nil {
		return m.err
	}
	q.ID = "q-1"
	m.created = append(m.created, *q)
	return nil
}

func (m *mockFAQRepo) ListPending(_ context.Context, _ int) ([]domain.UnansweredQuestion, error) {
	return m.created, m.err
}

type mockObjectStore struct {
	uploads map[string][]byte
	err     error
}

func (m *mockObjectStore) Upload(_ context.Context, key, _ string, body []byte) error {
	if m.err != nil {
		return m.err
	}
	if m.uploads == nil {
		m.uploads = map[string][]byte{}
	}
	m.uploads[key] = body
	return nil
}

func (m *mockObjectStore) PublicURL(key string) string {
	return "http://files.test/chat-images/" + key
}
