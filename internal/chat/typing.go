package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/relaydesk/live-chat/internal/domain"
)

const (
	DefaultTypingIdle     = 1500 * time.Millisecond
	DefaultTypingDebounce = 1000 * time.Millisecond
)

// TypingState is the local participant's typing state.
type TypingState string

const (
	TypingIdle   TypingState = "idle"
	TypingActive TypingState = "typing"
)

// TypingDeps are the collaborators of a TypingTracker.
type TypingDeps struct {
	Publisher TypingPublisher
	Clock     Clock
	Idle      time.Duration
	Debounce  time.Duration
	Logger    *zap.Logger
}

// TypingTracker turns keystrokes into debounced typing publishes. Every
// input schedules a publish of the current state after a quiet window; the
// last state in a burst wins. Going quiet for the idle period after typing
// drops back to idle through the same debouncer.
type TypingTracker struct {
	requestID string
	self      domain.Participant
	publisher TypingPublisher
	clock     Clock
	idle      time.Duration
	debounce  time.Duration
	logger    *zap.Logger

	mu            sync.Mutex
	state         TypingState
	published     TypingState
	debounceTimer Timer
	idleTimer     Timer
	// Timer callbacks carry the generation they were armed with; a callback
	// that lost the race with Stop sees a newer generation and does nothing.
	debounceGen uint64
	idleGen     uint64
	stopped     bool
}

func NewTypingTracker(requestID string, self domain.Participant, deps TypingDeps) *TypingTracker {
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock()
	}
	idle := deps.Idle
	if idle <= 0 {
		idle = DefaultTypingIdle
	}
	debounce := deps.Debounce
	if debounce <= 0 {
		debounce = DefaultTypingDebounce
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TypingTracker{
		requestID: requestID,
		self:      self,
		publisher: deps.Publisher,
		clock:     clock,
		idle:      idle,
		debounce:  debounce,
		logger:    logger.With(zap.String("component", "typing_tracker")),
		state:     TypingIdle,
		published: TypingIdle,
	}
}

// State returns the current local state.
func (t *TypingTracker) State() TypingState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// OnInput records the current contents of the input box.
func (t *TypingTracker) OnInput(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	stopTimer(t.idleTimer)
	t.idleTimer = nil
	t.idleGen++
	if strings.TrimSpace(text) != "" {
		t.state = TypingActive
		gen := t.idleGen
		t.idleTimer = t.clock.AfterFunc(t.idle, func() { t.goIdle(gen) })
	} else {
		t.state = TypingIdle
	}
	t.scheduleLocked()
}

// Stop cancels pending timers and, if the peer last saw us typing,
// publishes idle.
func (t *TypingTracker) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	stopTimer(t.idleTimer)
	stopTimer(t.debounceTimer)
	t.idleTimer, t.debounceTimer = nil, nil
	t.idleGen++
	t.debounceGen++
	t.state = TypingIdle
	needIdle := t.published == TypingActive
	t.published = TypingIdle
	t.mu.Unlock()

	if needIdle {
		t.publish(TypingIdle)
	}
}

func (t *TypingTracker) goIdle(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || gen != t.idleGen {
		return
	}
	t.idleTimer = nil
	t.state = TypingIdle
	t.scheduleLocked()
}

func (t *TypingTracker) scheduleLocked() {
	stopTimer(t.debounceTimer)
	t.debounceGen++
	gen := t.debounceGen
	t.debounceTimer = t.clock.AfterFunc(t.debounce, func() { t.flush(gen) })
}

func (t *TypingTracker) flush(gen uint64) {
	t.mu.Lock()
	if t.stopped || gen != t.debounceGen {
		t.mu.Unlock()
		return
	}
	t.debounceTimer = nil
	state := t.state
	t.published = state
	t.mu.Unlock()

	t.publish(state)
}

func (t *TypingTracker) publish(state TypingState) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := t.publisher.UpsertTyping(ctx, domain.TypingStatus{
		RequestID:     t.requestID,
		ParticipantID: t.self.ID,
		Role:          t.self.Role,
		IsTyping:      state == TypingActive,
	})
	if err != nil {
		t.logger.Warn("typing publish failed", zap.String("state", string(state)), zap.Error(err))
	}
}

func stopTimer(timer Timer) {
	if timer != nil {
		timer.Stop()
	}
}
