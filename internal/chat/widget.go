package chat

import (
	"fmt"
	"sync"
)

// WidgetState is where the customer widget is.
type WidgetState string

const (
	WidgetClosed   WidgetState = "closed"
	WidgetForm     WidgetState = "form"
	WidgetChatting WidgetState = "chatting"
)

// WidgetEvent drives the widget.
type WidgetEvent string

const (
	EventOpen           WidgetEvent = "open"
	EventClose          WidgetEvent = "close"
	EventSessionStarted WidgetEvent = "session_started"
)

// Widget is the customer widget's state machine. Once a session has
// started, reopening the widget goes straight back to the chat.
type Widget struct {
	mu         sync.Mutex
	state      WidgetState
	hasSession bool
}

func NewWidget() *Widget {
	return &Widget{state: WidgetClosed}
}

func (w *Widget) State() WidgetState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Widget) HasSession() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hasSession
}

// Fire applies ev. Invalid events leave the state unchanged.
func (w *Widget) Fire(ev WidgetEvent) (WidgetState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case ev == EventOpen && w.state == WidgetClosed:
		if w.hasSession {
			w.state = WidgetChatting
		} else {
			w.state = WidgetForm
		}
	case ev == EventClose && w.state != WidgetClosed:
		w.state = WidgetClosed
	case ev == EventSessionStarted && w.state == WidgetForm:
		w.hasSession = true
		w.state = WidgetChatting
	default:
		return w.state, fmt.Errorf("widget: %s not allowed in state %s", ev, w.state)
	}
	return w.state, nil
}
