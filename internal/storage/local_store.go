package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/relaydesk/live-chat/internal/config"
)

// LocalStore writes images below a directory served by the HTTP API under /files.
type LocalStore struct {
	basePath string
	bucket   string
	baseURL  string
	logger   *zap.Logger
}

func NewLocalStore(cfg config.StorageConfig, logger *zap.Logger) (*LocalStore, error) {
	basePath := strings.TrimSpace(cfg.LocalPath)
	if basePath == "" {
		return nil, fmt.Errorf("STORAGE_LOCAL_PATH is required for the local driver")
	}
	if err := os.MkdirAll(filepath.Join(basePath, cfg.Bucket), 0o755); err != nil {
		return nil, fmt.Errorf("create local storage directory: %w", err)
	}
	logger = logger.With(zap.String("component", "local_storage"))
	logger.Info("local storage initialized", zap.String("path", basePath))
	return &LocalStore{
		basePath: basePath,
		bucket:   cfg.Bucket,
		baseURL:  cfg.PublicBaseURL,
		logger:   logger,
	}, nil
}

// Root is the directory that holds bucket folders.
func (l *LocalStore) Root() string {
	return l.basePath
}

func (l *LocalStore) Upload(ctx context.Context, key, contentType string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bucketDir := filepath.Join(l.basePath, l.bucket)
	fullPath := filepath.Join(bucketDir, filepath.FromSlash(key))
	if !strings.HasPrefix(fullPath, bucketDir+string(filepath.Separator)) {
		return fmt.Errorf("invalid object key %q", key)
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(fullPath, body, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	l.logger.Debug("image stored", zap.String("key", key), zap.String("content_type", contentType), zap.Int("bytes", len(body)))
	return nil
}

func (l *LocalStore) PublicURL(key string) string {
	return publicURL(l.baseURL, l.bucket, key)
}
