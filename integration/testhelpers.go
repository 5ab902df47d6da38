//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aqasim81/animals/internal/database"
	"github.com/aqasim81/animals/internal/executor"
	"github.com/aqasim81/animals/internal/migration"
	"github.com/aqasim81/animals/internal/tracker"
)

const (
	postgresImage = "postgres:16-alpine"
	testDB        = "animals_test"
	testUser      = "zoo"
	testPassword  = "zoo"
)

// SetupPostgresDSN starts a PostgreSQL 16 container and returns its
// connection string. The container is terminated when the test completes.
func SetupPostgresDSN(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       testDB,
			"POSTGRES_USER":     testUser,
			"POSTGRES_PASSWORD": testPassword,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return "postgres://" + testUser + ":" + testPassword + "@" + host + ":" + port.Port() + "/" + testDB + "?sslmode=disable"
}

// SetupPostgres starts a container and returns a pool connected to it.
func SetupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pool, err := database.NewPool(context.Background(), SetupPostgresDSN(t))
	require.NoError(t, err)

	t.Cleanup(pool.Close)

	return pool
}

// embedded returns the built-in animals migrations in apply order.
func embedded(t *testing.T) []migration.Migration {
	t.Helper()

	ms, err := migration.LoadEmbedded()
	require.NoError(t, err)
	require.Len(t, ms, 2)

	return migration.Sort(ms)
}

// SetupAnimals returns a pool whose database has both animals migrations applied.
func SetupAnimals(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pool := SetupPostgres(t)
	require.NoError(t, executor.New(pool, tracker.New(pool)).Apply(context.Background(), embedded(t)))

	return pool
}

func tableExists(ctx context.Context, t *testing.T, pool *pgxpool.Pool, name string) bool {
	t.Helper()

	var exists bool

	err := pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", "public."+name).Scan(&exists)
	require.NoError(t, err)

	return exists
}
