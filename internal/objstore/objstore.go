// Package objstore provides the remote object store used to fetch the raw
// corpus and ship the output log, over any S3-compatible endpoint.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/cognicore/matchtag/internal/logger"
	"github.com/cognicore/matchtag/pkg/matchtag/internalerr"
)

// Config holds S3 connection settings.
type Config struct {
	// Endpoint is the S3 host, e.g. "s3.amazonaws.com" or "minio:9000".
	Endpoint  string `yaml:"endpoint" env:"MATCHTAG_S3_ENDPOINT"`
	Region    string `yaml:"region" env:"AWS_REGION"`
	AccessKey string `yaml:"access_key" env:"AWS_ACCESS_KEY_ID"`
	SecretKey string `yaml:"secret_key" env:"AWS_SECRET_ACCESS_KEY"`
	UseSSL    bool   `yaml:"use_ssl" env:"MATCHTAG_S3_USE_SSL"`
	Bucket    string `yaml:"bucket" env:"DATA_S3_BUCKET"`
	// Timeout bounds each individual transfer.
	Timeout time.Duration `yaml:"timeout" env:"MATCHTAG_S3_TIMEOUT"`
}

const defaultTimeout = 5 * time.Minute

// DefaultConfig returns settings for AWS S3 and the match reports bucket.
func DefaultConfig() Config {
	return Config{
		Endpoint: "s3.amazonaws.com",
		UseSSL:   true,
		Bucket:   "guardian-match-reports",
		Timeout:  defaultTimeout,
	}
}

// Client is an S3 client bound to one bucket.
type Client struct {
	client *miniogo.Client
	bucket string
	cfg    Config
	logger logger.Logger
}

// New creates a client for cfg.Bucket.
func New(cfg Config, log logger.Logger) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("objstore: bucket is required: %w", internalerr.ErrInvalidConfig)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if log == nil {
		log = logger.NewNop()
	}

	creds := credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	if cfg.AccessKey == "" {
		// Fall back to the usual AWS environment and instance credentials.
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.FileAWSCredentials{},
			&credentials.IAM{},
		})
	}

	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	log.Info("Object store client initialized",
		logger.String("endpoint", cfg.Endpoint),
		logger.String("bucket", cfg.Bucket))

	return &Client{client: client, bucket: cfg.Bucket, cfg: cfg, logger: log}, nil
}

// List returns every key under prefix. Pagination is handled by the
// underlying client.
func (c *Client) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range c.client.ListObjects(ctx, c.bucket, miniogo.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("%w: list %s/%s: %w", internalerr.ErrTransfer, c.bucket, prefix, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Download fetches key into localPath, creating parent directories.
func (c *Client) Download(ctx context.Context, key, localPath string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	if err := c.client.FGetObject(ctx, c.bucket, key, localPath, miniogo.GetObjectOptions{}); err != nil {
		return fmt.Errorf("%w: download %s: %w", internalerr.ErrTransfer, key, err)
	}
	c.logger.Info("Downloaded object", logger.String("key", key), logger.String("path", localPath))
	return nil
}

// Upload stores the file at localPath under remoteKey.
func (c *Client) Upload(ctx context.Context, localPath, remoteKey string) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	info, err := c.client.FPutObject(ctx, c.bucket, remoteKey, localPath, miniogo.PutObjectOptions{
		ContentType: "application/x-ndjson",
	})
	if err != nil {
		return fmt.Errorf("%w: upload %s: %w", internalerr.ErrTransfer, remoteKey, err)
	}
	c.logger.Info("Uploaded object",
		logger.String("key", remoteKey),
		logger.Int64("size", info.Size))
	return nil
}

// Ping checks that the bucket exists and is reachable.
func (c *Client) Ping(ctx context.Context) error {
	ok, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("%w: bucket %s: %w", internalerr.ErrTransfer, c.bucket, err)
	}
	if !ok {
		return fmt.Errorf("bucket %s: %w", c.bucket, internalerr.ErrNotFound)
	}
	return nil
}

// ErrNoSuchKey is returned by Memory for unknown keys.
var ErrNoSuchKey = errors.New("no such key")
