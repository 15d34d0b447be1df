//go:build integration

package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"
)

// TestPostgresStore runs the store contract against a throwaway Postgres
// container. Run with: go test -tags integration ./internal/storage/
func TestPostgresStore(t *testing.T) {
	pool, err := dockertest.NewPool("")
	require.NoError(t, err, "could not create dockertest pool")
	require.NoError(t, pool.Client.Ping(), "could not ping docker")

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16",
		Env: []string{
			"POSTGRES_USER=movemem",
			"POSTGRES_DB=movementmemory",
			"POSTGRES_HOST_AUTH_METHOD=trust",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err, "could not start postgres")
	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("postgres teardown: %s", err)
		}
	})

	dsn := fmt.Sprintf("postgres://movemem@localhost:%s/movementmemory?sslmode=disable", resource.GetPort("5432/tcp"))
	ctx := context.Background()

	var db *DB
	require.NoError(t, pool.Retry(func() error {
		var err error
		db, err = NewWithConfig(ctx, dsn, true)
		return err
	}))
	t.Cleanup(func() { db.Close() })

	require.NoError(t, RunMigrations(dsn, "../../migrations"))
	require.NoError(t, RunMigrations(dsn, "../../migrations"), "second run is a no-op")

	runStoreContract(t, db)
}
