package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relaydesk/live-chat/internal/domain"
	"github.com/relaydesk/live-chat/internal/events"
	apperrors "github.com/relaydesk/live-chat/pkg/util"
)

// manualClock fires timers only when advanced.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	fn      func()
	stopped bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

// Advance moves time forward, running due timers in order outside the lock.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *manualTimer
		for _, t := range c.timers {
			if t.stopped || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.stopped = true
		c.now = next.at
		c.mu.Unlock()
		next.fn()
	}
}

// memBackend is an in-memory backend that publishes changes the way the
// server does.
type memBackend struct {
	mu           sync.Mutex
	dispatcher   events.Dispatcher
	clock        func() time.Time
	participants map[string]*domain.Participant
	requests     map[string]*domain.Request
	messages     map[string]*domain.Message
	typing       []domain.TypingStatus
	uploads      map[string]string

	createParticipantFn func(ctx context.Context, p *domain.Participant) error
	createRequestErr    error
	listMessagesFn      func(ctx context.Context, requestID string, page, pageSize int) ([]domain.Message, error)

	lookups      int
	creates      int
	markReadCall [][]string
	createdMsgs  []domain.Message
}

func newMemBackend(dispatcher events.Dispatcher) *memBackend {
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	var tick int
	return &memBackend{
		dispatcher:   dispatcher,
		participants: map[string]*domain.Participant{},
		requests:     map[string]*domain.Request{},
		messages:     map[string]*domain.Message{},
		uploads:      map[string]string{},
		clock: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Second)
		},
	}
}

func (b *memBackend) publish(channel string, table events.Table, op events.Op, record any) {
	if b.dispatcher == nil {
		return
	}
	change, err := events.NewChange(channel, table, op, record)
	if err != nil {
		panic(err)
	}
	_ = b.dispatcher.Publish(context.Background(), change)
}

func (b *memBackend) ParticipantByEmail(_ context.Context, email string) (*domain.Participant, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lookups++
	p, ok := b.participants[email]
	if !ok {
		return nil, apperrors.NewNotFound("participant", nil)
	}
	cp := *p
	return &cp, nil
}

func (b *memBackend) CreateParticipant(ctx context.Context, p *domain.Participant) error {
	b.mu.Lock()
	b.creates++
	hook := b.createParticipantFn
	b.mu.Unlock()
	if hook != nil {
		return hook(ctx, p)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.participants[p.Email]; ok {
		return apperrors.NewConflict("participant already exists", nil)
	}
	p.ID = uuid.NewString()
	p.CreatedAt = b.clock()
	cp := *p
	b.participants[p.Email] = &cp
	return nil
}

func (b *memBackend) addParticipant(p domain.Participant) domain.Participant {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	b.participants[p.Email] = &p
	return p
}

func (b *memBackend) CreateRequest(_ context.Context, r *domain.Request) error {
	b.mu.Lock()
	if b.createRequestErr != nil {
		b.mu.Unlock()
		return b.createRequestErr
	}
	r.ID = uuid.NewString()
	r.Status = domain.RequestStatusWaiting
	r.CreatedAt = b.clock()
	r.UpdatedAt = r.CreatedAt
	cp := *r
	b.requests[r.ID] = &cp
	b.mu.Unlock()
	b.publish(events.RequestsChannel, events.TableRequests, events.OpInsert, events.NewRequestRecord(cp))
	return nil
}

func (b *memBackend) GetRequest(_ context.Context, id string) (*domain.Request, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.requests[id]
	if !ok {
		return nil, apperrors.NewNotFound("request", nil)
	}
	cp := *r
	return &cp, nil
}

func (b *memBackend) ListRequests(context.Context) ([]domain.RequestSummary, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.RequestSummary
	for _, r := range b.requests {
		s := domain.RequestSummary{Request: *r}
		for _, p := range b.participants {
			if p.ID == r.ParticipantID {
				s.ParticipantName, s.ParticipantEmail = p.Name, p.Email
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (b *memBackend) TransitionRequest(_ context.Context, id string, from, to domain.RequestStatus) (*domain.Request, error) {
	b.mu.Lock()
	r, ok := b.requests[id]
	if !ok {
		b.mu.Unlock()
		return nil, apperrors.NewNotFound("request", nil)
	}
	if r.Status != from || !from.CanTransition(to) {
		b.mu.Unlock()
		return nil, apperrors.NewConflict("request status changed", map[string]any{"current": r.Status})
	}
	r.Status = to
	r.UpdatedAt = b.clock()
	cp := *r
	b.mu.Unlock()
	b.publish(events.RequestsChannel, events.TableRequests, events.OpUpdate, events.NewRequestRecord(cp))
	return &cp, nil
}

func (b *memBackend) ListMessages(ctx context.Context, requestID string, page, pageSize int) ([]domain.Message, error) {
	if b.listMessagesFn != nil {
		return b.listMessagesFn(ctx, requestID, page, pageSize)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var all []domain.Message
	for _, m := range b.messages {
		if m.RequestID == requestID {
			all = append(all, *m)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Before(all[j]) })
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (b *memBackend) CreateMessage(_ context.Context, m *domain.Message) error {
	b.mu.Lock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.Status = domain.DeliverySent
	m.CreatedAt = b.clock()
	cp := *m
	b.messages[m.ID] = &cp
	b.createdMsgs = append(b.createdMsgs, cp)
	b.mu.Unlock()
	b.publish(events.ChatChannel(cp.RequestID), events.TableMessages, events.OpInsert, events.NewMessageRecord(cp))
	return nil
}

func (b *memBackend) MarkMessagesRead(_ context.Context, ids []string) (int, error) {
	b.mu.Lock()
	b.markReadCall = append(b.markReadCall, append([]string(nil), ids...))
	var changed []domain.Message
	for _, id := range ids {
		if m, ok := b.messages[id]; ok && m.Status != domain.DeliveryRead {
			m.Status = domain.DeliveryRead
			changed = append(changed, *m)
		}
	}
	b.mu.Unlock()
	for _, m := range changed {
		b.publish(events.ChatChannel(m.RequestID), events.TableMessages, events.OpUpdate, events.NewMessageRecord(m))
	}
	return len(changed), nil
}

func (b *memBackend) UpsertTyping(_ context.Context, t domain.TypingStatus) error {
	b.mu.Lock()
	t.UpdatedAt = b.clock()
	b.typing = append(b.typing, t)
	b.mu.Unlock()
	b.publish(events.ChatChannel(t.RequestID), events.TableTyping, events.OpUpdate, events.NewTypingRecord(t))
	return nil
}

func (b *memBackend) UploadImage(_ context.Context, key, contentType string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads[key] = contentType
	return "http://files.test/chat-images/" + key, nil
}

func (b *memBackend) typingLog() []domain.TypingStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.TypingStatus(nil), b.typing...)
}

func (b *memBackend) markReadCalls() [][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]string(nil), b.markReadCall...)
}

func (b *memBackend) seedMessage(m domain.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := m
	b.messages[m.ID] = &cp
}
