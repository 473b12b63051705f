//go:build integration

package broker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"avnotify/internal/config"
	"avnotify/internal/logger"
	"avnotify/pkg/models"
)

func TestKafkaRoundTrip(t *testing.T) {
	ctx := context.Background()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("avnotify-test"))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)

	cfg := config.KafkaConfig{Brokers: brokers, GroupID: "avnotify-it", InputTopic: "scan_results_it"}
	producer := NewKafkaProducer(cfg, logger.NopLogger())
	defer producer.Close()

	env := models.NewScanResultEnvelope("integration", models.ScanResultPayload{
		Environment: "test", Bucket: "bucket", Key: "eicar.txt", Status: "INFECTED",
	})
	require.Eventually(t, func() bool {
		return producer.Publish(ctx, cfg.InputTopic, env) == nil
	}, 30*time.Second, time.Second)

	consumer := NewKafkaConsumer(cfg, logger.NopLogger())
	consumeCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	var (
		mu  sync.Mutex
		got []models.MessageEnvelope
	)
	go func() {
		_ = consumer.Consume(consumeCtx, cfg.InputTopic, func(_ context.Context, msg models.MessageEnvelope) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, msg)
			cancel()
			return nil
		})
	}()

	<-consumeCtx.Done()
	require.NoError(t, consumer.Close())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, env.ID, got[0].ID)
	assert.Equal(t, "eicar.txt", got[0].Payload.Key)
}
