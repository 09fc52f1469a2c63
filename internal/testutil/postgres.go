// Package testutil starts throwaway infrastructure for integration tests.
package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stwalsh4118/bizsearch/internal/config"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresImage    = "postgres:16-alpine"
	postgresUser     = "postgres"
	postgresPassword = "postgres"
	postgresDB       = "florida_business_test"
)

// StartPostgres launches a disposable PostgreSQL container and returns a
// configuration pointing at it. The container is terminated when the test
// finishes. Tests are skipped in -short mode or when Docker is unavailable.
func StartPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	// suppress container lifecycle logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		Started: true,
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        postgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     postgresUser,
				"POSTGRES_PASSWORD": postgresPassword,
				"POSTGRES_DB":       postgresDB,
			},
			// The server restarts once after initdb, so wait for the second banner.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Errorf("Failed to terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to resolve container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("Failed to resolve container port: %v", err)
	}

	return config.DatabaseConfig{
		Host:     host,
		Port:     port.Port(),
		Name:     postgresDB,
		User:     postgresUser,
		Password: postgresPassword,
		PoolMin:  1,
		PoolMax:  4,
	}
}
