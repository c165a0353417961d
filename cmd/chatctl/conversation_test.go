package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydesk/live-chat/internal/domain"
)

func TestParseDraft(t *testing.T) {
	d, err := parseDraft("hello there")
	require.NoError(t, err)
	assert.Equal(t, "hello there", d.Text)
	assert.Nil(t, d.Image)

	path := filepath.Join(t.TempDir(), "cat.png")
	require.NoError(t, os.WriteFile(path, []byte("img"), 0o600))
	d, err = parseDraft("/image " + path + " my cat")
	require.NoError(t, err)
	require.NotNil(t, d.Image)
	assert.Equal(t, "cat.png", d.Image.Name)
	assert.Equal(t, []byte("img"), d.Image.Data)
	assert.Equal(t, "my cat", d.Text)

	_, err = parseDraft("/image /does/not/exist.png")
	assert.Error(t, err)
}

func TestFormatMessage(t *testing.T) {
	self := domain.Participant{ID: "me"}
	url := "http://files.test/a.png"
	m := domain.Message{SenderID: "me", SenderRole: domain.RoleCustomer, Content: "hi", ImageURL: &url, CreatedAt: time.Now()}
	assert.Contains(t, formatMessage(m, self), "you: hi <http://files.test/a.png>")

	m.SenderID, m.SenderRole, m.ImageURL = "other", domain.RoleAgent, nil
	assert.Contains(t, formatMessage(m, self), "agent: hi")
	assert.Equal(t, "abc...", truncate("abcdef", 3))
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "héll...", truncate("héllo wörld", 4))
	assert.Equal(t, "ñandú", truncate("ñandú", 5))
	got := truncate("日本語のテキスト", 3)
	assert.Equal(t, "日本語...", got)
	assert.True(t, utf8.ValidString(got))
}
