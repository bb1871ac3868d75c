//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcredpanda "github.com/testcontainers/testcontainers-go/modules/redpanda"
)

// RedpandaContainer wraps a testcontainers Redpanda instance for Kafka
// protocol tests.
type RedpandaContainer struct {
	Container testcontainers.Container
	Brokers   []string
}

// NewRedpandaContainer starts a new Redpanda container and registers cleanup.
func NewRedpandaContainer(t *testing.T) *RedpandaContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcredpanda.Run(ctx, "docker.redpanda.com/redpandadata/redpanda:v24.1.2")
	if err != nil {
		t.Fatalf("failed to start redpanda container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	broker, err := container.KafkaSeedBroker(ctx)
	if err != nil {
		t.Fatalf("failed to get redpanda seed broker: %v", err)
	}

	return &RedpandaContainer{
		Container: container,
		Brokers:   []string{broker},
	}
}
