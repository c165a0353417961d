package storage

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/relaydesk/live-chat/internal/config"
)

// ObjectStore persists uploaded chat images and resolves their public URLs.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body []byte) error
	PublicURL(key string) string
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// ObjectKey builds the storage key for an uploaded file:
// "<unix millis>-<file name with whitespace runs replaced by _>".
// Any directory part of name is dropped.
func ObjectKey(now time.Time, name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" {
		base = "upload"
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), whitespaceRun.ReplaceAllString(base, "_"))
}

// New selects the configured backend.
func New(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (ObjectStore, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Store(ctx, cfg, logger)
	case "local", "":
		return NewLocalStore(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func publicURL(base, bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(base, "/"), bucket, key)
}
