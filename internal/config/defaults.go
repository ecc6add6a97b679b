package config

import "time"

// Default values applied to unset fields.  Infrastructure sections that
// default internally (pool sizes, timeouts, bucket names) are left alone
// here; only the fields Validate treats as required get defaults.
const (
	DefaultServerPort = 8080
	DefaultServerMode = "debug"

	DefaultPostgresHost = "localhost"
	DefaultPostgresPort = 5432
	DefaultPostgresDB   = "opgrader"
	DefaultPostgresUser = "opgrader"

	DefaultRedisAddr = "localhost:6379"

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "opgrader-workers"

	DefaultOpenSearchAddress = "http://localhost:9200"

	DefaultMilvusAddress = "localhost:19530"

	DefaultMinIOEndpoint = "localhost:9000"

	DefaultOracleEndpoint = "http://localhost:8000/v1/chat/completions"
	DefaultOracleModel    = "grader-oracle"

	DefaultEmbedEndpoint = "http://localhost:8000/v1/embeddings"
	DefaultEmbedModel    = "grader-embed"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultWorkerConcurrency = 8
)

// ApplyDefaults fills zero-value fields in cfg with well-known defaults.
// Fields already set by the caller are left unchanged so explicit
// configuration always wins.  It must run after unmarshalling and before
// Validate so optional-but-defaulted fields are never seen as missing.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// Server
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}

	// Postgres
	if cfg.Postgres.Host == "" {
		cfg.Postgres.Host = DefaultPostgresHost
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = DefaultPostgresPort
	}
	if cfg.Postgres.Database == "" {
		cfg.Postgres.Database = DefaultPostgresDB
	}
	if cfg.Postgres.Username == "" {
		cfg.Postgres.Username = DefaultPostgresUser
	}

	// Redis
	if cfg.Redis.Addr == "" && len(cfg.Redis.SentinelAddrs) == 0 && len(cfg.Redis.ClusterAddrs) == 0 {
		cfg.Redis.Addr = DefaultRedisAddr
	}

	// Kafka
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	if cfg.Kafka.HandlerMaxRetries == 0 {
		cfg.Kafka.HandlerMaxRetries = 3
	}
	if cfg.Kafka.NumPartitions == 0 {
		cfg.Kafka.NumPartitions = 3
	}
	if cfg.Kafka.ReplicationFactor == 0 {
		cfg.Kafka.ReplicationFactor = 1
	}

	// OpenSearch
	if len(cfg.OpenSearch.Addresses) == 0 {
		cfg.OpenSearch.Addresses = []string{DefaultOpenSearchAddress}
	}

	// Milvus
	if cfg.Milvus.Address == "" {
		cfg.Milvus.Address = DefaultMilvusAddress
	}

	// MinIO
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}

	// Oracle
	if cfg.Oracle.Endpoint == "" {
		cfg.Oracle.Endpoint = DefaultOracleEndpoint
	}
	if cfg.Oracle.Model == "" {
		cfg.Oracle.Model = DefaultOracleModel
	}

	// Embeddings
	if cfg.Embed.Endpoint == "" {
		cfg.Embed.Endpoint = DefaultEmbedEndpoint
	}
	if cfg.Embed.Model == "" {
		cfg.Embed.Model = DefaultEmbedModel
	}

	// Worker
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}
	if cfg.Worker.RetryBackoff == 0 {
		cfg.Worker.RetryBackoff = time.Second
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}
