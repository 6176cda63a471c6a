package redis_test

import (
	"context"
	"testing"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	redisadapter "github.com/transitlab/bus-reservations/internal/adapters/redis"
)

func startRedis(t *testing.T) (*redisclient.Client, context.Context) {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	client := redisclient.NewClient(&redisclient.Options{Addr: endpoint})
	t.Cleanup(func() { client.Close() })
	return client, ctx
}

func TestIdempotency_RecordAndLookup(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	client, ctx := startRedis(t)
	idemp := redisadapter.NewIdempotency(client)

	_, ok, err := idemp.Lookup(ctx, "key-1")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected no recorded response for a fresh key")
	}

	saved := redisadapter.SavedResponse{Code: 201, Body: []byte(`{"booking_id":"b1"}`)}
	if err := idemp.Record(ctx, "key-1", saved, time.Minute); err != nil {
		t.Fatal(err)
	}

	got, ok, err := idemp.Lookup(ctx, "key-1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a recorded response")
	}
	if got.Code != 201 || string(got.Body) != `{"booking_id":"b1"}` {
		t.Errorf("unexpected replay %d %s", got.Code, got.Body)
	}
}
