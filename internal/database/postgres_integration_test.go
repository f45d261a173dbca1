//go:build integration

package database

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		Started: true,
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "apt",
				"POSTGRES_PASSWORD": "apt",
				"POSTGRES_DB":       "apt_trades",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Log(err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://apt:apt@%s:%s/apt_trades?sslmode=disable", host, port.Port())
}

func TestPostgresStore(t *testing.T) {
	connStr := startPostgres(t)

	testStore(t, func(t *testing.T) Store {
		ctx := context.Background()
		pool, err := ConnectDB(ctx, connStr)
		require.NoError(t, err)
		store := NewPostgresStore(pool)
		require.NoError(t, store.CreateSchema(ctx))
		_, err = pool.Exec(ctx, `TRUNCATE apt_trades, regions;`)
		require.NoError(t, err)
		t.Cleanup(store.Close)
		return store
	})
}
