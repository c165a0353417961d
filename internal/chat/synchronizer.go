package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/relaydesk/live-chat/internal/domain"
	"github.com/relaydesk/live-chat/internal/events"
)

// DefaultPageSize is the history page size.
const DefaultPageSize = 20

// ErrSynchronizerClosed is returned by Open after Close.
var ErrSynchronizerClosed = errors.New("synchronizer closed")

// View is a snapshot of the local state of one request.
type View struct {
	Messages   []domain.Message
	PeerTyping bool
}

// SyncDeps are the collaborators of a Synchronizer.
type SyncDeps struct {
	Messages MessageStore
	Feed     events.Feed
	Logger   *zap.Logger
	PageSize int
}

// Synchronizer keeps an ordered local copy of one request's messages and
// the peer's typing flag, merging history pages and live changes. Every
// merge is idempotent so duplicate or replayed changes are harmless.
type Synchronizer struct {
	requestID string
	self      domain.Participant
	messages  MessageStore
	feed      events.Feed
	logger    *zap.Logger
	pageSize  int

	mu         sync.Mutex
	list       *orderedMessages
	peerTyping bool
	generation uint64
	closed     bool
	sub        events.Subscription
	cancel     context.CancelFunc
	updates    chan View

	wg sync.WaitGroup
}

func NewSynchronizer(requestID string, self domain.Participant, deps SyncDeps) *Synchronizer {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Synchronizer{
		requestID: requestID,
		self:      self,
		messages:  deps.Messages,
		feed:      deps.Feed,
		logger:    logger.With(zap.String("component", "synchronizer"), zap.String("request_id", requestID)),
		pageSize:  pageSize,
		list:      newOrderedMessages(),
		updates:   make(chan View, 1),
	}
}

// Open subscribes to the request's channel and loads the first page. A
// second Open replaces the previous subscription.
func (s *Synchronizer) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSynchronizerClosed
	}
	s.generation++
	gen := s.generation
	prevSub, prevCancel := s.sub, s.cancel
	s.sub, s.cancel = nil, nil
	s.mu.Unlock()
	release(prevSub, prevCancel)

	sub, err := s.feed.Subscribe(ctx, events.ChatChannel(s.requestID),
		events.Filter{Table: events.TableMessages, Op: events.OpInsert},
		events.Filter{Table: events.TableMessages, Op: events.OpUpdate},
		events.Filter{Table: events.TableTyping, Op: events.OpInsert},
		events.Filter{Table: events.TableTyping, Op: events.OpUpdate},
	)
	if err != nil {
		s.logger.Error("subscribe failed", zap.Error(err))
		return fmt.Errorf("subscribe: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		release(sub, cancel)
		return nil
	}
	s.sub, s.cancel = sub, cancel
	s.list = newOrderedMessages()
	s.peerTyping = false
	s.wg.Add(1)
	s.mu.Unlock()

	go s.pump(runCtx, gen, sub)

	return s.LoadPage(ctx, 1)
}

// LoadPage fetches one history page and merges it. Results that arrive
// after Close or a newer Open are dropped.
func (s *Synchronizer) LoadPage(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	msgs, err := s.messages.ListMessages(ctx, s.requestID, page, s.pageSize)
	if err != nil {
		s.logger.Error("load messages failed", zap.Int("page", page), zap.Error(err))
		return fmt.Errorf("load messages: %w", err)
	}

	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("discarding stale page", zap.Int("page", page))
		return nil
	}
	changed := false
	for _, m := range msgs {
		if s.list.upsert(m) {
			changed = true
		}
	}
	if changed {
		s.notifyLocked()
	}
	s.mu.Unlock()

	if changed {
		s.readReceipts(ctx)
	}
	return nil
}

// Apply merges one feed change and reports whether local state changed.
func (s *Synchronizer) Apply(change events.Change) bool {
	messagesChanged, typingChanged := s.apply(change)
	return messagesChanged || typingChanged
}

func (s *Synchronizer) apply(change events.Change) (messagesChanged, typingChanged bool) {
	switch change.Table {
	case events.TableMessages:
		var rec events.MessageRecord
		if err := change.Decode(&rec); err != nil {
			s.logger.Warn("undecodable message change", zap.String("change_id", change.ID), zap.Error(err))
			return false, false
		}
		if rec.RequestID != "" && rec.RequestID != s.requestID {
			return false, false
		}
		m := rec.Message()
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return false, false
		}
		switch change.Op {
		case events.OpInsert:
			messagesChanged = s.list.insert(m)
		case events.OpUpdate:
			messagesChanged = s.list.update(m)
		}
		if messagesChanged {
			s.notifyLocked()
		}
		return messagesChanged, false

	case events.TableTyping:
		var rec events.TypingRecord
		if err := change.Decode(&rec); err != nil {
			s.logger.Warn("undecodable typing change", zap.String("change_id", change.ID), zap.Error(err))
			return false, false
		}
		t := rec.TypingStatus()
		// Own echoes are ignored; only the other side's flag is shown.
		if t.Role == s.self.Role {
			return false, false
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed || s.peerTyping == t.IsTyping {
			return false, false
		}
		s.peerTyping = t.IsTyping
		s.notifyLocked()
		return false, true
	}
	return false, false
}

// Messages returns the ordered local messages.
func (s *Synchronizer) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.snapshot()
}

// PeerTyping reports whether the other side is typing.
func (s *Synchronizer) PeerTyping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerTyping
}

// Updates delivers the latest view after each change. Intermediate views
// may be skipped; the channel is closed by Close.
func (s *Synchronizer) Updates() <-chan View {
	return s.updates
}

// MarkRead moves every message from the other side that is not yet read to
// read in one batch. Nothing pending means no backend call.
func (s *Synchronizer) MarkRead(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, nil
	}
	var ids []string
	for _, m := range s.list.order {
		if m.SenderID != s.self.ID && m.Status != domain.DeliveryRead {
			ids = append(ids, m.ID)
		}
	}
	s.mu.Unlock()
	if len(ids) == 0 {
		return 0, nil
	}

	n, err := s.messages.MarkMessagesRead(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}

	s.mu.Lock()
	changed := false
	for _, id := range ids {
		if s.list.setStatus(id, domain.DeliveryRead) {
			changed = true
		}
	}
	if changed && !s.closed {
		s.notifyLocked()
	}
	s.mu.Unlock()
	return n, nil
}

// Close releases the subscription. It is safe to call more than once.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.generation++
	sub, cancel := s.sub, s.cancel
	s.sub, s.cancel = nil, nil
	s.mu.Unlock()

	release(sub, cancel)
	s.wg.Wait()
	close(s.updates)
}

func (s *Synchronizer) pump(ctx context.Context, gen uint64, sub events.Subscription) {
	defer s.wg.Done()
	changes := sub.Changes()
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			if !s.current(gen) {
				continue
			}
			if change.Op == events.OpResync {
				s.logger.Warn("feed fell behind; reloading latest page")
				if err := s.LoadPage(ctx, 1); err != nil {
					s.logger.Error("resync reload failed", zap.Error(err))
				}
				continue
			}
			if messagesChanged, _ := s.apply(change); messagesChanged {
				s.readReceipts(ctx)
			}
		}
	}
}

func (s *Synchronizer) readReceipts(ctx context.Context) {
	if _, err := s.MarkRead(ctx); err != nil {
		s.logger.Error("read receipt pass failed", zap.Error(err))
	}
}

func (s *Synchronizer) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && gen == s.generation
}

// notifyLocked replaces any unread view with the current one.
func (s *Synchronizer) notifyLocked() {
	view := View{Messages: s.list.snapshot(), PeerTyping: s.peerTyping}
	select {
	case <-s.updates:
	default:
	}
	s.updates <- view
}

func release(sub events.Subscription, cancel context.CancelFunc) {
	if cancel != nil {
		cancel()
	}
	if sub != nil {
		_ = sub.Close()
	}
}
