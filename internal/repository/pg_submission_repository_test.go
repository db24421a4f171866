package repository

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/drilldown/backend/internal/migrate"
	"github.com/drilldown/backend/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres runs a disposable PostgreSQL container with the schema applied.
// It skips when -short is set or no container runtime is available.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, dsn, PoolOptions{MaxConns: 10})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err = migrate.New(pool, migrations.FS, logger).Up(ctx)
	require.NoError(t, err)
	return pool
}

func TestPgSubmissionRepository(t *testing.T) {
	pool := startPostgres(t)

	runSubmissionRepositoryTests(t, func(t *testing.T) SubmissionRepository {
		_, err := pool.Exec(context.Background(), "TRUNCATE contact_submissions")
		require.NoError(t, err)
		return NewPgSubmissionRepository(pool)
	})
}

func TestPgSubmissionRepository_SchemaRejectsHalfResponse(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()

	repo := NewPgSubmissionRepository(pool)
	s := newSubmission("ada", time.Now())
	require.NoError(t, repo.Create(ctx, s))

	_, err := pool.Exec(ctx, "UPDATE contact_submissions SET admin_response = 'x' WHERE id = $1", s.ID)
	require.Error(t, err, "check constraint must pair admin_response with response_sent_at")

	_, err = pool.Exec(ctx, "UPDATE contact_submissions SET status = 'done' WHERE id = $1", s.ID)
	require.Error(t, err, "check constraint must restrict status values")
}

func TestPgSubmissionRepository_MigrationsRevert(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	m := migrate.New(pool, migrations.FS, slog.New(slog.NewTextHandler(io.Discard, nil)))

	name, err := m.Down(ctx)
	require.NoError(t, err)
	require.Equal(t, "001_create_contact_submissions", name)

	var table *string
	require.NoError(t, pool.QueryRow(ctx, "SELECT to_regclass('contact_submissions')::text").Scan(&table))
	require.Nil(t, table, "down migration must drop the table")

	n, err := m.Up(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NoError(t, NewPgSubmissionRepository(pool).Create(ctx, newSubmission("ada", time.Now())))
}

func TestNewPool_InvalidURL(t *testing.T) {
	_, err := NewPool(context.Background(), "://not-a-url", PoolOptions{})
	require.Error(t, err)
}
