package main

import (
	"context"

	"github.com/turtacn/opgrader/internal/infrastructure/database/postgres"
	"github.com/turtacn/opgrader/internal/infrastructure/database/redis"
	"github.com/turtacn/opgrader/internal/infrastructure/search/milvus"
	"github.com/turtacn/opgrader/internal/infrastructure/search/opensearch"
	"github.com/turtacn/opgrader/internal/infrastructure/storage/minio"
)

// Readiness adapters for the health handler.

type postgresHealthAdapter struct {
	conn *postgres.Connection
}

func (a *postgresHealthAdapter) Name() string { return "postgres" }

func (a *postgresHealthAdapter) Check(ctx context.Context) error {
	return a.conn.HealthCheck(ctx)
}

type redisHealthAdapter struct {
	client *redis.Client
}

func (a *redisHealthAdapter) Name() string { return "redis" }

func (a *redisHealthAdapter) Check(ctx context.Context) error {
	return a.client.Ping(ctx)
}

type opensearchHealthAdapter struct {
	client *opensearch.Client
}

func (a *opensearchHealthAdapter) Name() string { return "opensearch" }

func (a *opensearchHealthAdapter) Check(ctx context.Context) error {
	return a.client.Ping(ctx)
}

type milvusHealthAdapter struct {
	client *milvus.Client
}

func (a *milvusHealthAdapter) Name() string { return "milvus" }

func (a *milvusHealthAdapter) Check(ctx context.Context) error {
	return a.client.CheckHealth(ctx)
}

type minioHealthAdapter struct {
	client *minio.Client
}

func (a *minioHealthAdapter) Name() string { return "minio" }

func (a *minioHealthAdapter) Check(ctx context.Context) error {
	_, err := a.client.HealthCheck(ctx)
	return err
}
