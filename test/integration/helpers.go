// Package integration holds env-guarded integration tests.  They run only
// when OPGRADER_INTEGRATION_TEST=1 and expect a reachable PostgreSQL with
// the migrations from ../../migrations applied (the helpers apply them).
package integration

import (
	"fmt"
	"os"
	"strconv"
	"testing"

	"github.com/turtacn/opgrader/internal/infrastructure/database/postgres"
	"github.com/turtacn/opgrader/internal/infrastructure/monitoring/logging"
)

const (
	// EnvIntegrationEnabled controls whether integration tests run.
	EnvIntegrationEnabled = "OPGRADER_INTEGRATION_TEST"

	// Connection overrides; defaults match configs/config.yaml.
	EnvPostgresHost     = "OPGRADER_TEST_POSTGRES_HOST"
	EnvPostgresPort     = "OPGRADER_TEST_POSTGRES_PORT"
	EnvPostgresDB       = "OPGRADER_TEST_POSTGRES_DB"
	EnvPostgresUser     = "OPGRADER_TEST_POSTGRES_USER"
	EnvPostgresPassword = "OPGRADER_TEST_POSTGRES_PASSWORD"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func skipUnlessEnabled(t *testing.T) {
	t.Helper()
	if os.Getenv(EnvIntegrationEnabled) != "1" {
		t.Skipf("integration tests disabled; set %s=1 to run", EnvIntegrationEnabled)
	}
}

// setupPostgres opens a pooled connection against the test database and
// applies the repo migrations.  The connection closes with the test.
func setupPostgres(t *testing.T) *postgres.Connection {
	t.Helper()
	skipUnlessEnabled(t)

	port, err := strconv.Atoi(envOr(EnvPostgresPort, "5432"))
	if err != nil {
		t.Fatalf("invalid %s: %v", EnvPostgresPort, err)
	}
	cfg := postgres.PostgresConfig{
		Host:     envOr(EnvPostgresHost, "localhost"),
		Port:     port,
		Database: envOr(EnvPostgresDB, "opgrader_test"),
		Username: envOr(EnvPostgresUser, "opgrader"),
		Password: envOr(EnvPostgresPassword, "opgrader"),
		SSLMode:  "disable",
	}

	if err := postgres.RunMigrations(postgres.BuildDSN(cfg), "file://../../migrations"); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	conn, err := postgres.NewConnection(cfg, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("postgres connection: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// truncate empties the given tables between tests.
func truncate(t *testing.T, conn *postgres.Connection, tables ...string) {
	t.Helper()
	for _, table := range tables {
		if _, err := conn.DB().Exec(fmt.Sprintf("TRUNCATE TABLE %s", table)); err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
}
