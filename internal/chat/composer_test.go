package chat

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydesk/live-chat/internal/domain"
	apperrors "github.com/relaydesk/live-chat/pkg/util"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func newTestComposer(backend *memBackend, clock Clock) *Composer {
	customer := domain.Participant{ID: "cust-1", Role: domain.RoleCustomer}
	return NewComposer("req-1", customer, ComposerDeps{Messages: backend, Uploader: backend, Clock: clock})
}

func TestSendRejectsEmptyDraft(t *testing.T) {
	backend := newMemBackend(nil)
	composer := newTestComposer(backend, newManualClock())

	_, err := composer.Send(context.Background(), Draft{Text: "  \n\t "})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeEmptyMessage))
	assert.Empty(t, backend.createdMsgs)
}

func TestSendText(t *testing.T) {
	backend := newMemBackend(nil)
	composer := newTestComposer(backend, newManualClock())

	m, err := composer.Send(context.Background(), Draft{Text: "  hello  "})
	require.NoError(t, err)
	assert.Equal(t, "hello", m.Content)
	assert.Nil(t, m.ImageURL)
	require.Len(t, backend.createdMsgs, 1)
	assert.Equal(t, domain.DeliverySent, backend.createdMsgs[0].Status)
	assert.NotEmpty(t, backend.createdMsgs[0].ID)
	assert.Equal(t, domain.RoleCustomer, backend.createdMsgs[0].SenderRole)
}

func TestSendImageValidation(t *testing.T) {
	limit := 5 * 1024 * 1024
	atLimit := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, limit-len(pngHeader))...)

	cases := []struct {
		name  string
		image ImageDraft
		code  string
	}{
		{"png at the limit", ImageDraft{Name: "a.png", ContentType: "image/png", Data: atLimit}, ""},
		{"one byte over", ImageDraft{Name: "a.png", ContentType: "image/png", Data: append(atLimit, 0)}, apperrors.CodeImageTooLarge},
		{"small webp", ImageDraft{Name: "a.webp", ContentType: "image/webp", Data: []byte("RIFF0000WEBP")}, apperrors.CodeImageUnsupported},
		{"oversized webp reports size", ImageDraft{Name: "a.webp", ContentType: "image/webp", Data: make([]byte, limit+1)}, apperrors.CodeImageTooLarge},
		{"sniffed png", ImageDraft{Name: "shot", Data: pngHeader}, ""},
		{"sniffed text", ImageDraft{Name: "notes", Data: []byte("just some text")}, apperrors.CodeImageUnsupported},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := newMemBackend(nil)
			composer := newTestComposer(backend, newManualClock())
			img := tc.image
			_, err := composer.Send(context.Background(), Draft{Image: &img})
			if tc.code == "" {
				require.NoError(t, err)
				require.Len(t, backend.createdMsgs, 1)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tc.code), "got %v", err)
			assert.Empty(t, backend.uploads)
			assert.Empty(t, backend.createdMsgs)
		})
	}
}

func TestSendImageUploadsFirst(t *testing.T) {
	backend := newMemBackend(nil)
	clock := newManualClock()
	composer := newTestComposer(backend, clock)

	m, err := composer.Send(context.Background(), Draft{
		Text:  "see attached",
		Image: &ImageDraft{Name: "my screen  shot.png", ContentType: "image/png", Data: pngHeader},
	})
	require.NoError(t, err)

	wantKey := "1714557600000-my_screen_shot.png"
	assert.Equal(t, "image/png", backend.uploads[wantKey])
	require.NotNil(t, m.ImageURL)
	assert.Equal(t, "http://files.test/chat-images/"+wantKey, *m.ImageURL)
	assert.Equal(t, "see attached", m.Content)
	assert.Len(t, backend.createdMsgs, 1)
}
