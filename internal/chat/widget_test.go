package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWidgetTransitions(t *testing.T) {
	w := NewWidget()
	assert.Equal(t, WidgetClosed, w.State())

	_, err := w.Fire(EventSessionStarted)
	require.Error(t, err)
	assert.Equal(t, WidgetClosed, w.State())

	state, err := w.Fire(EventOpen)
	require.NoError(t, err)
	assert.Equal(t, WidgetForm, state)

	_, err = w.Fire(EventOpen)
	require.Error(t, err)

	state, err = w.Fire(EventSessionStarted)
	require.NoError(t, err)
	assert.Equal(t, WidgetChatting, state)
	assert.True(t, w.HasSession())

	state, err = w.Fire(EventClose)
	require.NoError(t, err)
	assert.Equal(t, WidgetClosed, state)

	_, err = w.Fire(EventClose)
	require.Error(t, err)

	state, err = w.Fire(EventOpen)
	require.NoError(t, err)
	assert.Equal(t, WidgetChatting, state, "reopening resumes the chat")

	_, err = w.Fire(EventSessionStarted)
	require.Error(t, err)
	assert.Equal(t, WidgetChatting, w.State())
}
