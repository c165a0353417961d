package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/relaydesk/live-chat/internal/config"
)

var errS3Disabled = errors.New("s3 storage is not configured; set STORAGE_S3_* to enable uploads")

// S3Store writes images to an S3-compatible bucket.
type S3Store struct {
	bucket   string
	baseURL  string
	client   *s3.Client
	logger   *zap.Logger
	disabled bool
}

func NewS3Store(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*S3Store, error) {
	logger = logger.With(zap.String("component", "s3_storage"))
	store := &S3Store{
		bucket:  strings.TrimSpace(cfg.Bucket),
		baseURL: cfg.PublicBaseURL,
		logger:  logger,
	}
	if store.baseURL == "" && cfg.S3Endpoint != "" {
		store.baseURL = cfg.S3Endpoint
	}

	accessKey := strings.TrimSpace(cfg.S3AccessKeyID)
	secretKey := strings.TrimSpace(cfg.S3SecretKey)
	if store.bucket == "" || accessKey == "" || secretKey == "" {
		logger.Warn("bucket or credentials are not set; image uploads disabled")
		store.disabled = true
		return store, nil
	}

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.S3Endpoint != "" {
			return aws.Endpoint{
				URL:           cfg.S3Endpoint,
				PartitionID:   "aws",
				SigningRegion: cfg.S3Region,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	store.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
	})
	return store, nil
}

func (s *S3Store) Upload(ctx context.Context, key, contentType string, body []byte) error {
	if s.disabled {
		return errS3Disabled
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	s.logger.Debug("image uploaded", zap.String("key", key), zap.Int("bytes", len(body)))
	return nil
}

func (s *S3Store) PublicURL(key string) string {
	return publicURL(s.baseURL, s.bucket, key)
}

// Health checks that the bucket is reachable.
func (s *S3Store) Health(ctx context.Context) error {
	if s.disabled {
		return nil
	}
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}
