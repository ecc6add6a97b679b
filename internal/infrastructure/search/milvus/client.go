// Package milvus stores utterance embeddings and backs the semantic side of
// key-question matching.
package milvus

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/opgrader/pkg/errors"
)

var (
	ErrConnectionFailed = errors.New(errors.ErrCodeInternal, "connection failed")
	ErrUnhealthy        = errors.New(errors.ErrCodeServiceUnavailable, "service unhealthy")
)

// API is the subset of the Milvus SDK client this package uses.  The real
// client.Client satisfies it; tests provide a fake.
type API interface {
	HasCollection(ctx context.Context, collName string) (bool, error)
	CreateCollection(ctx context.Context, collSchema *entity.Schema, shardsNum int32, opts ...client.CreateCollectionOption) error
	CreateIndex(ctx context.Context, collName string, fieldName string, idx entity.Index, async bool, opts ...client.IndexOption) error
	LoadCollection(ctx context.Context, collName string, async bool, opts ...client.LoadCollectionOption) error
	CreatePartition(ctx context.Context, collName string, partitionName string, opts ...client.CreatePartitionOption) error
	DropPartition(ctx context.Context, collName string, partitionName string, opts ...client.DropPartitionOption) error
	Insert(ctx context.Context, collName string, partitionName string, columns ...entity.Column) (entity.Column, error)
	Flush(ctx context.Context, collName string, async bool, opts ...client.FlushOption) error
	Search(ctx context.Context, collName string, partitions []string, expr string, outputFields []string, vectors []entity.Vector, vectorField string, metricType entity.MetricType, topK int, sp entity.SearchParam, opts ...client.SearchQueryOptionFunc) ([]client.SearchResult, error)
	Delete(ctx context.Context, collName string, partitionName string, expr string) error
	CheckHealth(ctx context.Context) (*entity.MilvusState, error)
	GetVersion(ctx context.Context) (string, error)
	Close() error
}

// clientFactory allows tests to stub SDK construction.
type clientFactory func(ctx context.Context, conf client.Config) (client.Client, error)

var newSDKClient clientFactory = client.NewClient

// ClientConfig holds Milvus connection settings.
type ClientConfig struct {
	Address             string        `mapstructure:"address"`
	Username            string        `mapstructure:"username"`
	Password            string        `mapstructure:"password"`
	DBName              string        `mapstructure:"db_name"`
	TLSEnabled          bool          `mapstructure:"tls_enabled"`
	TLSCertPath         string        `mapstructure:"tls_cert_path"`
	TLSServerName       string        `mapstructure:"tls_server_name"`
	ConnectTimeout      time.Duration `mapstructure:"connect_timeout"`
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"`
	KeepAliveTime       time.Duration `mapstructure:"keep_alive_time"`
	KeepAliveTimeout    time.Duration `mapstructure:"keep_alive_timeout"`
}

// Client wraps the SDK client with health tracking and reconnection.
type Client struct {
	api     API
	config  ClientConfig
	logger  logging.Logger
	healthy atomic.Bool
	cancel  context.CancelFunc
	mu      sync.RWMutex
}

// NewClient connects and starts the background health loop.
func NewClient(cfg ClientConfig, logger logging.Logger) (*Client, error) {
	if cfg.Address == "" {
		return nil, errors.InvalidParam("milvus address is required")
	}
	if cfg.TLSEnabled && cfg.TLSCertPath == "" {
		return nil, errors.InvalidParam("tls cert path required when tls is enabled")
	}
	if cfg.DBName == "" {
		cfg.DBName = "default"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.HealthCheckInterval == 0 {
		cfg.HealthCheckInterval = 30 * time.Second
	}
	if cfg.KeepAliveTime == 0 {
		cfg.KeepAliveTime = 60 * time.Second
	}
	if cfg.KeepAliveTimeout == 0 {
		cfg.KeepAliveTimeout = 20 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	api, err := connect(ctx, cfg)
	if err != nil {
		cancel()
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create milvus client")
	}

	c := &Client{api: api, config: cfg, logger: logger, cancel: cancel}
	if err := c.CheckHealth(ctx); err != nil {
		c.Close()
		return nil, ErrConnectionFailed
	}

	go c.healthLoop(ctx)
	logger.Info("Milvus client connected", logging.String("address", cfg.Address))
	return c, nil
}

func connect(ctx context.Context, cfg ClientConfig) (client.Client, error) {
	sdkCfg := client.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.DBName,
	}

	var dialOpts []grpc.DialOption
	if cfg.TLSEnabled {
		caCert, err := os.ReadFile(cfg.TLSCertPath)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeValidation, "failed to read TLS cert")
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, errors.New(errors.ErrCodeValidation, "failed to parse TLS cert")
		}
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{
			RootCAs:    pool,
			ServerName: cfg.TLSServerName,
		})))
		sdkCfg.EnableTLSAuth = true
	} else {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	dialOpts = append(dialOpts, grpc.WithKeepaliveParams(keepalive.ClientParameters{
		Time:                cfg.KeepAliveTime,
		Timeout:             cfg.KeepAliveTimeout,
		PermitWithoutStream: true,
	}))
	sdkCfg.DialOptions = dialOpts

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	return newSDKClient(connectCtx, sdkCfg)
}

// CheckHealth pings the cluster and updates the tracked state.
func (c *Client) CheckHealth(ctx context.Context) error {
	c.mu.RLock()
	api := c.api
	c.mu.RUnlock()
	if api == nil {
		return ErrConnectionFailed
	}

	if _, err := api.CheckHealth(ctx); err != nil {
		c.healthy.Store(false)
		c.logger.Warn("Milvus health check failed", logging.Err(err))
		return ErrUnhealthy
	}
	c.healthy.Store(true)
	return nil
}

// IsHealthy reports the last observed health state.
func (c *Client) IsHealthy() bool { return c.healthy.Load() }

// API returns the underlying SDK surface.
func (c *Client) API() API {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.api
}

// ServerVersion returns the cluster version string.
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	return c.API().GetVersion(ctx)
}

// Close stops the health loop and releases the connection.
func (c *Client) Close() error {
	c.cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.api != nil {
		c.api.Close()
	}
	c.logger.Info("Milvus client closed")
	return nil
}

// Three consecutive failures trigger a reconnect.
func (c *Client) healthLoop(ctx context.Context) {
	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.CheckHealth(ctx); err != nil {
				failures++
			} else {
				failures = 0
			}
			if failures >= 3 {
				if err := c.reconnect(ctx); err != nil {
					c.logger.Error("Milvus reconnect failed", logging.Err(err))
				} else {
					failures = 0
				}
			}
		}
	}
}

func (c *Client) reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.api != nil {
		c.api.Close()
	}
	api, err := connect(ctx, c.config)
	if err != nil {
		return err
	}
	c.api = api
	c.logger.Warn("Milvus client reconnected")
	return nil
}
