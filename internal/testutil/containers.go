// Package testutil starts throwaway infrastructure for integration tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/testcopilot/internal/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	pgImage    = "pgvector/pgvector:0.8.1-pg18"
	pgUser     = "copilot"
	pgPassword = "copilot"
	pgDatabase = "copilot"

	rustfsImage = "rustfs/rustfs:latest"
	// RustFSCredential is both the access key and the secret of the test object store.
	RustFSCredential = "rustfsadmin"
)

// PostgresContainer is a pgvector-enabled Postgres for integration tests.
type PostgresContainer struct {
	testcontainers.Container
	URL string
}

// StartPostgres starts a container without tying its lifetime to a test,
// for use from TestMain.
func StartPostgres(ctx context.Context) (*PostgresContainer, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        pgImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDatabase,
			},
			// postgres restarts once after initdb
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				wait.ForListeningPort("5432/tcp"),
			).WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres: %w", err)
	}

	endpoint, err := container.PortEndpoint(ctx, "5432/tcp", "")
	if err != nil {
		_ = testcontainers.TerminateContainer(container)
		return nil, fmt.Errorf("failed to resolve postgres endpoint: %w", err)
	}

	return &PostgresContainer{
		Container: container,
		URL:       fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", pgUser, pgPassword, endpoint, pgDatabase),
	}, nil
}

// NewPostgresContainer starts Postgres and terminates it when t finishes.
func NewPostgresContainer(ctx context.Context, t *testing.T) *PostgresContainer {
	t.Helper()
	pc, err := StartPostgres(ctx)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = pc.Terminate(context.Background()) })
	return pc
}

// Terminate stops and removes the container.
func (pc *PostgresContainer) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(pc.Container)
}

// OpenPool connects to url, retrying while the server finishes booting, and
// applies the migrations found in migrationsDir with golang-migrate.
func OpenPool(ctx context.Context, url, migrationsDir string) (*pgxpool.Pool, error) {
	var (
		pool *pgxpool.Pool
		err  error
	)
	for attempt := 1; attempt <= 5; attempt++ {
		pool, err = database.NewPool(ctx, database.Config{URL: url, MaxConns: 10})
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
	}
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(migrationsDir)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to resolve migrations dir: %w", err)
	}
	if _, err := database.Migrate(url, "file://"+filepath.ToSlash(abs)); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// NewTestPool opens a migrated pool on pc and closes it when t finishes.
func NewTestPool(ctx context.Context, t *testing.T, pc *PostgresContainer, migrationsDir string) *pgxpool.Pool {
	t.Helper()
	pool, err := OpenPool(ctx, pc.URL, migrationsDir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// appTables lists every table the service writes, children first.
var appTables = []string{"chunks", "document_blobs", "test_plans", "documents", "jobs", "projects"}

// Reset empties every application table so tests sharing one database start clean.
func Reset(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	quoted := make([]string, len(appTables))
	for i, name := range appTables {
		quoted[i] = pgx.Identifier{name}.Sanitize()
	}
	if _, err := pool.Exec(ctx, "TRUNCATE "+strings.Join(quoted, ", ")+" CASCADE"); err != nil {
		t.Fatalf("failed to reset database: %v", err)
	}
}

// RustFSContainer is an S3-compatible object store for blob tests.
type RustFSContainer struct {
	testcontainers.Container
	URL string
}

// NewRustFSContainer starts RustFS and terminates it when t finishes.
func NewRustFSContainer(ctx context.Context, t *testing.T) *RustFSContainer {
	t.Helper()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        rustfsImage,
			ExposedPorts: []string{"9000/tcp"},
			Env: map[string]string{
				"RUSTFS_ACCESS_KEY": RustFSCredential,
				"RUSTFS_SECRET_KEY": RustFSCredential,
			},
			WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start rustfs: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	endpoint, err := container.PortEndpoint(ctx, "9000/tcp", "http")
	if err != nil {
		t.Fatalf("failed to resolve rustfs endpoint: %v", err)
	}
	return &RustFSContainer{Container: container, URL: endpoint}
}
