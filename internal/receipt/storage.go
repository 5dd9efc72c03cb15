package receipt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const contentTypePDF = "application/pdf"

// Storage persists rendered receipts under a slash separated key.
type Storage interface {
	Put(ctx context.Context, key string, data []byte) error
	Location(key string) string
}

type FileSystemStorage struct {
	basePath string
	logger   *slog.Logger
}

func NewFileSystemStorage(basePath string, logger *slog.Logger) (*FileSystemStorage, error) {
	if basePath == "" {
		basePath = "./receipts"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create receipt directory %s: %w", basePath, err)
	}
	return &FileSystemStorage{basePath: basePath, logger: logger.With("component", "FileSystemStorage")}, nil
}

func (s *FileSystemStorage) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create receipt directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("failed to write receipt: %w", err)
	}
	s.logger.DebugContext(ctx, "Receipt stored", slog.String("path", full), slog.Int("size", len(data)))
	return nil
}

func (s *FileSystemStorage) Location(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}

func (s *FileSystemStorage) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid receipt key %q", key)
	}
	return filepath.Join(s.basePath, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

type s3PutAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	UsePathStyle    bool
}

// S3Storage uploads receipts to any S3 compatible bucket.
type S3Storage struct {
	client s3PutAPI
	bucket string
	prefix string
	logger *slog.Logger
}

func NewS3Storage(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("receipt bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newS3Storage(client, cfg.Bucket, cfg.Prefix, logger), nil
}

func newS3Storage(client s3PutAPI, bucket, prefix string, logger *slog.Logger) *S3Storage {
	return &S3Storage{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger.With("component", "S3Storage", "bucket", bucket),
	}
}

func (s *S3Storage) Put(ctx context.Context, key string, data []byte) error {
	objectKey := s.objectKey(key)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentTypePDF),
	})
	if err != nil {
		return fmt.Errorf("failed to upload receipt %s: %w", objectKey, err)
	}
	s.logger.DebugContext(ctx, "Receipt uploaded", slog.String("key", objectKey), slog.Int("size", len(data)))
	return nil
}

func (s *S3Storage) Location(key string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.objectKey(key))
}

func (s *S3Storage) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}
