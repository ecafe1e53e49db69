// Package pgtest starts a throwaway Postgres for repository integration tests.
package pgtest

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ariefcatur/go-marketplace.git/internal/postgres"
)

// Start runs a migrated Postgres container and returns a pool to it.
// Skipped under -short so unit runs stay docker-free.
func Start(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test: needs docker")
	}
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, postgres.Migrate(dsn))

	pool, err := postgres.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

// SeedUser inserts a user and returns its id. Empty location means no address on file.
func SeedUser(t *testing.T, db *pgxpool.Pool, email, location string, role int16) int64 {
	t.Helper()
	var loc any
	if location != "" {
		loc = location
	}
	var id int64
	err := db.QueryRow(context.Background(),
		`INSERT INTO users(name, email, location, role) VALUES ($1, $1, $2, $3) RETURNING id`,
		email, loc, role).Scan(&id)
	require.NoError(t, err)
	return id
}

// SeedProduct inserts a product and returns its id.
func SeedProduct(t *testing.T, db *pgxpool.Pool, name string, price int64) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(context.Background(),
		`INSERT INTO products(name, price, stock) VALUES ($1, $2, 10) RETURNING id`,
		name, price).Scan(&id)
	require.NoError(t, err)
	return id
}
