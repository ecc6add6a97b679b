// Package config defines the configuration surface of the grading service.
// No I/O or parsing logic lives here — only plain data types, conversions
// into the infrastructure packages' own config structs, and validation.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/opgrader/internal/infrastructure/database/postgres"
	"github.com/turtacn/opgrader/internal/infrastructure/database/redis"
	"github.com/turtacn/opgrader/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/opgrader/internal/infrastructure/search/milvus"
	"github.com/turtacn/opgrader/internal/infrastructure/search/opensearch"
	"github.com/turtacn/opgrader/internal/infrastructure/storage/minio"
	"github.com/turtacn/opgrader/internal/intelligence/embed"
	"github.com/turtacn/opgrader/internal/intelligence/oracle"
)

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level            string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format           string   `mapstructure:"format"` // "json" | "console"
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// ToLogging converts to the logging package's construction parameters.
func (c LogConfig) ToLogging() logging.LogConfig {
	return logging.LogConfig{
		Level:            c.Level,
		Format:           c.Format,
		OutputPaths:      c.OutputPaths,
		ErrorOutputPaths: c.ErrorOutputPaths,
	}
}

// KafkaConfig holds broker settings shared by the producer, consumer, and
// topic manager.
type KafkaConfig struct {
	Brokers           []string      `mapstructure:"brokers"`
	GroupID           string        `mapstructure:"group_id"`
	AutoOffsetReset   string        `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	ProducerAcks      string        `mapstructure:"producer_acks"`
	ProducerRetries   int           `mapstructure:"producer_retries"`
	BatchSize         int           `mapstructure:"batch_size"`
	Compression       string        `mapstructure:"compression"`
	HandlerMaxRetries int           `mapstructure:"handler_max_retries"`
	HandlerBackoff    time.Duration `mapstructure:"handler_backoff"`
	DeadLetterTopic   string        `mapstructure:"dead_letter_topic"`
	AutoCreateTopics  bool          `mapstructure:"auto_create_topics"`
	NumPartitions     int           `mapstructure:"num_partitions"`
	ReplicationFactor int           `mapstructure:"replication_factor"`
}

// ProducerConfig converts to the messaging package's producer settings.
func (c KafkaConfig) ProducerConfig() kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:     c.Brokers,
		Acks:        c.ProducerAcks,
		MaxRetries:  c.ProducerRetries,
		BatchSize:   c.BatchSize,
		Compression: c.Compression,
	}
}

// ConsumerConfig converts to the messaging package's consumer settings for
// the given topic subscription.
func (c KafkaConfig) ConsumerConfig(topics []string) kafka.ConsumerConfig {
	return kafka.ConsumerConfig{
		Brokers:         c.Brokers,
		GroupID:         c.GroupID,
		Topics:          topics,
		AutoOffsetReset: c.AutoOffsetReset,
		Retry: kafka.RetryConfig{
			MaxRetries:      c.HandlerMaxRetries,
			RetryBackoff:    c.HandlerBackoff,
			DeadLetterTopic: c.DeadLetterTopic,
		},
	}
}

// MilvusConfig combines connection settings with the utterance collection
// layout.
type MilvusConfig struct {
	milvus.ClientConfig `mapstructure:",squash"`

	Collection milvus.CollectionConfig `mapstructure:"collection"`
}

// OracleConfig holds the extraction oracle's endpoint settings.
type OracleConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key"`
	Bundle   string        `mapstructure:"bundle"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ToOracle converts to the oracle package's client settings.
func (c OracleConfig) ToOracle() oracle.Config {
	return oracle.Config{
		Endpoint: c.Endpoint,
		Model:    c.Model,
		APIKey:   c.APIKey,
		Bundle:   c.Bundle,
		Timeout:  c.Timeout,
	}
}

// EmbedConfig holds the embeddings endpoint settings.
type EmbedConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ToEmbed converts to the embed package's client settings.
func (c EmbedConfig) ToEmbed() embed.Config {
	return embed.Config{
		Endpoint: c.Endpoint,
		Model:    c.Model,
		APIKey:   c.APIKey,
		Timeout:  c.Timeout,
	}
}

// WorkerConfig holds background-worker execution parameters.
type WorkerConfig struct {
	Concurrency  int           `mapstructure:"concurrency"`
	QueueDepth   int           `mapstructure:"queue_depth"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// Config is the root configuration structure.  Infrastructure sections reuse
// the owning package's config type so wiring in main() needs no translation.
type Config struct {
	Server     ServerConfig            `mapstructure:"server"`
	Log        LogConfig               `mapstructure:"log"`
	Postgres   postgres.PostgresConfig `mapstructure:"postgres"`
	Redis      redis.Config            `mapstructure:"redis"`
	Kafka      KafkaConfig             `mapstructure:"kafka"`
	OpenSearch opensearch.ClientConfig `mapstructure:"opensearch"`
	Milvus     MilvusConfig            `mapstructure:"milvus"`
	MinIO      minio.Config            `mapstructure:"minio"`
	Oracle     OracleConfig            `mapstructure:"oracle"`
	Embed      EmbedConfig             `mapstructure:"embed"`
	Worker     WorkerConfig            `mapstructure:"worker"`
}

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// Postgres
	if c.Postgres.Host == "" {
		return fmt.Errorf("config: postgres.host is required")
	}
	if c.Postgres.Port < 1 || c.Postgres.Port > 65535 {
		return fmt.Errorf("config: postgres.port %d is out of range [1, 65535]", c.Postgres.Port)
	}
	if c.Postgres.Username == "" {
		return fmt.Errorf("config: postgres.username is required")
	}
	if c.Postgres.Database == "" {
		return fmt.Errorf("config: postgres.database is required")
	}

	// Redis
	if c.Redis.Addr == "" && len(c.Redis.SentinelAddrs) == 0 && len(c.Redis.ClusterAddrs) == 0 {
		return fmt.Errorf("config: redis.addr is required")
	}

	// Kafka
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
	}
	if c.Kafka.GroupID == "" {
		return fmt.Errorf("config: kafka.group_id is required")
	}

	// OpenSearch
	if len(c.OpenSearch.Addresses) == 0 {
		return fmt.Errorf("config: opensearch.addresses must contain at least one node address")
	}

	// Milvus
	if c.Milvus.Address == "" {
		return fmt.Errorf("config: milvus.address is required")
	}

	// MinIO
	if c.MinIO.Endpoint == "" {
		return fmt.Errorf("config: minio.endpoint is required")
	}

	// Oracle
	if c.Oracle.Endpoint == "" {
		return fmt.Errorf("config: oracle.endpoint is required")
	}
	if c.Oracle.Model == "" {
		return fmt.Errorf("config: oracle.model is required")
	}

	// Embeddings
	if c.Embed.Endpoint == "" {
		return fmt.Errorf("config: embed.endpoint is required")
	}

	// Worker
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be at least 1, got %d", c.Worker.Concurrency)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
