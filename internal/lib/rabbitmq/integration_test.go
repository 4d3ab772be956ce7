//go:build integration

package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func amqpURI(ctx context.Context, t *testing.T) string {
	t.Helper()
	if uri := os.Getenv("TEST_RABBITMQ_URL"); uri != "" {
		return uri
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3-management",
			ExposedPorts: []string{"5672/tcp"},
			Env: map[string]string{
				"RABBITMQ_DEFAULT_USER": "guest",
				"RABBITMQ_DEFAULT_PASS": "guest",
			},
			WaitingFor: wait.ForListeningPort("5672/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate rabbitmq container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5672/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())
}

func TestPublishAndConsume(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	conn, err := Connect(amqpURI(ctx, t), 10, time.Second)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	ch, err := SetupChannel(conn, "notifications-test", GetNotificationQueues())
	require.NoError(t, err)
	defer func() { _ = ch.Close() }()
	require.NoError(t, SetPrefetch(ch, 2))

	p := NewPublisher(ch, "notifications-test")
	require.NoError(t, p.Publish(ctx, RoutingSubscriptionExpired, map[string]string{"admin_id": "adm-1"}))

	got := make(chan map[string]string, 1)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err = ConsumeMessages(ctx, ch, QueueSubscriptionExpired, 1, log, func(_ context.Context, body []byte) error {
		var m map[string]string
		if err := json.Unmarshal(body, &m); err != nil {
			return err
		}
		got <- m
		return nil
	})
	require.NoError(t, err)

	select {
	case m := <-got:
		assert.Equal(t, "adm-1", m["admin_id"])
	case <-ctx.Done():
		t.Fatal("message was not delivered")
	}
}
