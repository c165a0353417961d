package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relaydesk/live-chat/internal/config"
	apperrors "github.com/relaydesk/live-chat/pkg/util"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestObjectKey(t *testing.T) {
	now := time.UnixMilli(1714557600123)
	assert.Equal(t, "1714557600123-my_photo_1.png", ObjectKey(now, "my  photo 1.png"))
	assert.Equal(t, "1714557600123-my_photo_1.png", ObjectKey(now, "my \t photo 1.png"))
	assert.Equal(t, "1714557600123-cat.gif", ObjectKey(now, "../../etc/cat.gif"))
	assert.Equal(t, "1714557600123-upload", ObjectKey(now, ""))
}

func TestCheckImage(t *testing.T) {
	cases := []struct {
		name     string
		size     int64
		declared string
		data     []byte
		wantType string
		wantCode string
	}{
		{name: "png at limit", size: MaxImageBytes, declared: "image/png", wantType: "image/png"},
		{name: "one byte over", size: MaxImageBytes + 1, declared: "image/png", wantCode: apperrors.CodeImageTooLarge},
		{name: "webp small", size: 1024, declared: "image/webp", wantCode: apperrors.CodeImageUnsupported},
		{name: "webp at limit", size: MaxImageBytes, declared: "image/webp", wantCode: apperrors.CodeImageUnsupported},
		{name: "oversize webp reports size", size: MaxImageBytes + 1, declared: "image/webp", wantCode: apperrors.CodeImageTooLarge},
		{name: "sniffed png", size: int64(len(pngHeader)), data: pngHeader, wantType: "image/png"},
		{name: "sniffed text", size: 5, data: []byte("hello"), wantCode: apperrors.CodeImageUnsupported},
		{name: "declared with params", size: 10, declared: "Image/JPEG; q=1", wantType: "image/jpeg"},
		{name: "declared png matches bytes", size: int64(len(pngHeader)), declared: "image/png", data: pngHeader, wantType: "image/png"},
		{name: "html declared as png", size: 30, declared: "image/png", data: []byte("<html><script>alert(1)</script></html>"), wantCode: apperrors.CodeImageUnsupported},
		{name: "png declared as gif", size: int64(len(pngHeader)), declared: "image/gif", data: pngHeader, wantCode: apperrors.CodeImageUnsupported},
		{name: "jpg alias", size: 3, declared: "image/jpg", data: []byte{0xff, 0xd8, 0xff}, wantType: "image/jpeg"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CheckImage(tc.size, tc.declared, tc.data, MaxImageBytes)
			if tc.wantCode != "" {
				require.Error(t, err)
				assert.True(t, apperrors.HasCode(err, tc.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantType, got)
		})
	}
}

func TestLocalStoreUpload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(config.StorageConfig{
		LocalPath:     dir,
		Bucket:        "chat-images",
		PublicBaseURL: "http://localhost:8080/files/",
	}, zap.NewNop())
	require.NoError(t, err)

	key := ObjectKey(time.UnixMilli(1), "a b.png")
	require.NoError(t, store.Upload(context.Background(), key, "image/png", pngHeader))

	stored, err := os.ReadFile(filepath.Join(dir, "chat-images", key))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(pngHeader, stored))
	assert.Equal(t, "http://localhost:8080/files/chat-images/1-a_b.png", store.PublicURL(key))

	assert.Error(t, store.Upload(context.Background(), "../escape.png", "image/png", pngHeader))
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Driver: "gcs"}, zap.NewNop())
	assert.Error(t, err)
}
