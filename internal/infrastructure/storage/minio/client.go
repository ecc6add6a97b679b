// Package minio provides the object archive for raw transcripts and
// exported grading reports.
package minio

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/opgrader/pkg/errors"
)

// API is the subset of the minio client this package uses.  Tests swap in a
// fake implementation.
type API interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketLifecycle(ctx context.Context, bucketName string, config *lifecycle.Configuration) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

// BucketConfig names the buckets the grader writes to.
type BucketConfig struct {
	Transcripts string `mapstructure:"transcripts"`
	Reports     string `mapstructure:"reports"`
}

// Config holds object storage connection settings.
type Config struct {
	Endpoint            string        `mapstructure:"endpoint"`
	AccessKeyID         string        `mapstructure:"access_key_id"`
	SecretAccessKey     string        `mapstructure:"secret_access_key"`
	UseSSL              bool          `mapstructure:"use_ssl"`
	Region              string        `mapstructure:"region"`
	Buckets             BucketConfig  `mapstructure:"buckets"`
	PresignExpiry       time.Duration `mapstructure:"presign_expiry"`
	ReportRetentionDays int           `mapstructure:"report_retention_days"`
}

func applyDefaults(cfg *Config) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.PresignExpiry == 0 {
		cfg.PresignExpiry = time.Hour
	}
	if cfg.ReportRetentionDays == 0 {
		cfg.ReportRetentionDays = 90
	}
	if cfg.Buckets.Transcripts == "" {
		cfg.Buckets.Transcripts = "opgrader-transcripts"
	}
	if cfg.Buckets.Reports == "" {
		cfg.Buckets.Reports = "opgrader-reports"
	}
}

// Client wraps the minio SDK with bucket provisioning and health checks.
type Client struct {
	api    API
	config *Config
	logger logging.Logger
}

// NewClient connects, verifies reachability, and provisions the buckets.
func NewClient(cfg *Config, log logging.Logger) (*Client, error) {
	applyDefaults(cfg)

	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create minio client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := api.ListBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to connect to minio")
	}

	c := &Client{api: api, config: cfg, logger: log}
	if err := c.EnsureBuckets(ctx); err != nil {
		return nil, err
	}
	if err := c.setupLifecycleRules(ctx); err != nil {
		return nil, err
	}

	log.Info("MinIO client connected", logging.String("endpoint", cfg.Endpoint), logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

// EnsureBuckets creates any missing buckets.
func (c *Client) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{c.config.Buckets.Transcripts, c.config.Buckets.Reports} {
		exists, err := c.api.BucketExists(ctx, bucket)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to check bucket existence")
		}
		if !exists {
			if err := c.api.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: c.config.Region}); err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, fmt.Sprintf("failed to create bucket %s", bucket))
			}
			c.logger.Info("Created bucket", logging.String("bucket", bucket))
		}
	}
	return nil
}

// Reports expire after the retention window; transcripts are kept forever
// because graded results reference them by line number.
func (c *Client) setupLifecycleRules(ctx context.Context) error {
	cfg := lifecycle.NewConfiguration()
	cfg.Rules = []lifecycle.Rule{{
		ID:         "reports-cleanup",
		Status:     "Enabled",
		Expiration: lifecycle.Expiration{Days: lifecycle.ExpirationDays(c.config.ReportRetentionDays)},
	}}
	if err := c.api.SetBucketLifecycle(ctx, c.config.Buckets.Reports, cfg); err != nil {
		c.logger.Warn("Failed to set lifecycle for reports bucket", logging.Err(err))
	}
	return nil
}

// API returns the underlying SDK surface.
func (c *Client) API() API { return c.api }

// TranscriptBucket returns the transcript archive bucket name.
func (c *Client) TranscriptBucket() string { return c.config.Buckets.Transcripts }

// ReportBucket returns the report export bucket name.
func (c *Client) ReportBucket() string { return c.config.Buckets.Reports }

// HealthStatus reports object storage reachability.
type HealthStatus struct {
	Healthy        bool
	Latency        time.Duration
	BucketStatuses map[string]bool
	Error          string
}

// HealthCheck pings the server and verifies both buckets exist.
func (c *Client) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()
	_, err := c.api.ListBuckets(ctx)
	status := &HealthStatus{
		Healthy:        err == nil,
		Latency:        time.Since(start),
		BucketStatuses: make(map[string]bool),
	}
	if err != nil {
		status.Error = err.Error()
		return status, err
	}

	for _, b := range []string{c.config.Buckets.Transcripts, c.config.Buckets.Reports} {
		exists, _ := c.api.BucketExists(ctx, b)
		status.BucketStatuses[b] = exists
		if !exists {
			status.Healthy = false
			status.Error = fmt.Sprintf("bucket %s missing", b)
		}
	}
	return status, nil
}
