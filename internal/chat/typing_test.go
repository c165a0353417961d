package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(backend *memBackend, clock *manualClock) *TypingTracker {
	return NewTypingTracker("req-1", customer, TypingDeps{Publisher: backend, Clock: clock})
}

func typingFlags(backend *memBackend) []bool {
	var out []bool
	for _, ts := range backend.typingLog() {
		out = append(out, ts.IsTyping)
	}
	return out
}

func TestTypingBurstPublishesOnce(t *testing.T) {
	backend := newMemBackend(nil)
	clock := newManualClock()
	tracker := newTestTracker(backend, clock)

	tracker.OnInput("h")
	clock.Advance(300 * time.Millisecond)
	tracker.OnInput("he")
	clock.Advance(300 * time.Millisecond)
	tracker.OnInput("hel")
	assert.Equal(t, TypingActive, tracker.State())

	clock.Advance(999 * time.Millisecond)
	assert.Empty(t, typingFlags(backend), "still inside the debounce window")

	clock.Advance(time.Millisecond)
	require.Equal(t, []bool{true}, typingFlags(backend))
	ts := backend.typingLog()[0]
	assert.Equal(t, customer.ID, ts.ParticipantID)
	assert.Equal(t, "req-1", ts.RequestID)
}

func TestTypingGoesIdleAfterQuietPeriod(t *testing.T) {
	backend := newMemBackend(nil)
	clock := newManualClock()
	tracker := newTestTracker(backend, clock)

	tracker.OnInput("hello")
	clock.Advance(1499 * time.Millisecond)
	assert.Equal(t, TypingActive, tracker.State())

	clock.Advance(time.Millisecond)
	assert.Equal(t, TypingIdle, tracker.State())
	assert.Equal(t, []bool{true}, typingFlags(backend))

	// the idle transition goes through the debouncer
	clock.Advance(999 * time.Millisecond)
	assert.Equal(t, []bool{true}, typingFlags(backend))
	clock.Advance(time.Millisecond)
	assert.Equal(t, []bool{true, false}, typingFlags(backend))
}

func TestTypingLastStateInBurstWins(t *testing.T) {
	backend := newMemBackend(nil)
	clock := newManualClock()
	tracker := newTestTracker(backend, clock)

	tracker.OnInput("a")
	clock.Advance(100 * time.Millisecond)
	tracker.OnInput("   ")
	assert.Equal(t, TypingIdle, tracker.State())

	clock.Advance(5 * time.Second)
	assert.Equal(t, []bool{false}, typingFlags(backend))
}

func TestTypingStopPublishesIdleOnlyWhenNeeded(t *testing.T) {
	backend := newMemBackend(nil)
	clock := newManualClock()
	tracker := newTestTracker(backend, clock)

	tracker.OnInput("hey")
	clock.Advance(time.Second)
	tracker.Stop()
	assert.Equal(t, []bool{true, false}, typingFlags(backend))

	tracker.OnInput("ignored")
	clock.Advance(5 * time.Second)
	assert.Equal(t, []bool{true, false}, typingFlags(backend))

	quietBackend := newMemBackend(nil)
	quiet := newTestTracker(quietBackend, clock)
	quiet.Stop()
	assert.Empty(t, typingFlags(quietBackend))
}

// firedClock hands out timers that are always already firing: Stop reports
// false and the callback still runs whenever the test decides.
type firedClock struct {
	*manualClock
	pending []func()
}

type firedTimer struct{}

func (firedTimer) Stop() bool { return false }

func (c *firedClock) AfterFunc(_ time.Duration, f func()) Timer {
	c.pending = append(c.pending, f)
	return firedTimer{}
}

func (c *firedClock) runAll() {
	callbacks := c.pending
	c.pending = nil
	for _, f := range callbacks {
		f()
	}
}

func TestTypingIgnoresCallbacksFromReplacedTimers(t *testing.T) {
	backend := newMemBackend(nil)
	clock := &firedClock{manualClock: newManualClock()}
	tracker := NewTypingTracker("req-1", customer, TypingDeps{Publisher: backend, Clock: clock})

	tracker.OnInput("he")
	stale := clock.pending
	clock.pending = nil
	tracker.OnInput("hel")

	// idle and debounce callbacks armed by the first keystroke
	for _, f := range stale {
		f()
	}
	assert.Equal(t, TypingActive, tracker.State())
	assert.Empty(t, typingFlags(backend))

	// the live idle timer fires and reschedules the debouncer, which makes
	// the live debounce callback from "hel" stale as well
	clock.runAll()
	assert.Equal(t, TypingIdle, tracker.State())
	assert.Empty(t, typingFlags(backend))

	clock.runAll()
	assert.Equal(t, []bool{false}, typingFlags(backend))
}

func TestTypingCallbacksAfterStopAreIgnored(t *testing.T) {
	backend := newMemBackend(nil)
	clock := &firedClock{manualClock: newManualClock()}
	tracker := NewTypingTracker("req-1", customer, TypingDeps{Publisher: backend, Clock: clock})

	tracker.OnInput("hello")
	tracker.Stop()
	clock.runAll()

	assert.Equal(t, TypingIdle, tracker.State())
	assert.Empty(t, typingFlags(backend))
}
