package testdb

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kislikjeka/memechain/internal/infra/postgres"
	"github.com/kislikjeka/memechain/migrations"
)

// TestDB is a disposable PostgreSQL container with the journal schema applied
type TestDB struct {
	Container *tcpostgres.PostgresContainer
	DB        *postgres.DB
	ConnStr   string
}

// NewTestDB starts a container and runs the embedded migrations through the same
// code path the API uses at startup
func NewTestDB(ctx context.Context) (*TestDB, error) {
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("memechain_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(120*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	db, err := postgres.NewPool(ctx, postgres.Config{URL: connStr, MaxConns: 5, MinConns: 1})
	if err != nil {
		container.Terminate(ctx)
		return nil, err
	}

	if _, err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close()
		container.Terminate(ctx)
		return nil, err
	}

	return &TestDB{
		Container: container,
		DB:        db,
		ConnStr:   connStr,
	}, nil
}

// Reset truncates every journal table
func (t *TestDB) Reset(ctx context.Context) error {
	tables := []string{
		"flow_runs",
	}

	for _, table := range tables {
		if _, err := t.DB.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate %s: %w", table, err)
		}
	}

	return nil
}

// Close closes the pool and terminates the container
func (t *TestDB) Close(ctx context.Context) error {
	if t.DB != nil {
		t.DB.Close()
	}
	if t.Container != nil {
		return t.Container.Terminate(ctx)
	}
	return nil
}
