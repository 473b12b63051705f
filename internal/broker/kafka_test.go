package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"avnotify/internal/config"
	"avnotify/internal/logger"
	"avnotify/pkg/logging"
	"avnotify/pkg/metrics"
	"avnotify/pkg/models"
)

func newTestConsumer(t *testing.T) (*KafkaConsumer, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	c := NewKafkaConsumer(config.KafkaConfig{Brokers: []string{"localhost:9092"}, GroupID: "test"}, logger.NewWithCore(core))
	c.SetServiceName(t.Name())
	return c, logs
}

func envelopeMessage(t *testing.T, env models.MessageEnvelope) kafka.Message {
	t.Helper()
	body, err := json.Marshal(env)
	require.NoError(t, err)
	return kafka.Message{Topic: "scan_results", Value: body}
}

func TestHandleMessageDeliversEnvelope(t *testing.T) {
	c, _ := newTestConsumer(t)
	env := models.NewScanResultEnvelope("test", models.ScanResultPayload{
		Environment: "prod", Bucket: "b", Key: "k", Status: "INFECTED",
	})

	var got models.MessageEnvelope
	var scanID string
	c.handleMessage(context.Background(), "scan_results", envelopeMessage(t, env), func(ctx context.Context, msg models.MessageEnvelope) error {
		got = msg
		scanID = logging.GetScanID(ctx)
		return nil
	})

	assert.Equal(t, env.ID, got.ID)
	assert.Equal(t, env.Payload, got.Payload)
	assert.Equal(t, env.ID, scanID)
	assert.Zero(t, testutil.ToFloat64(metrics.KafkaMessagesDroppedTotal.WithLabelValues(t.Name(), "scan_results", DropHandlerError)))
}

func TestHandleMessageDropsUndecodable(t *testing.T) {
	c, logs := newTestConsumer(t)
	called := false

	c.handleMessage(context.Background(), "scan_results", kafka.Message{Value: []byte("{not json")}, func(context.Context, models.MessageEnvelope) error {
		called = true
		return nil
	})

	assert.False(t, called)
	assert.Equal(t, 1, logs.FilterMessage("Failed to unmarshal message").Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.KafkaMessagesDroppedTotal.WithLabelValues(t.Name(), "scan_results", DropDecodeError)))
}

func TestHandleMessageCountsHandlerFailure(t *testing.T) {
	c, logs := newTestConsumer(t)
	env := models.NewScanResultEnvelope("test", models.ScanResultPayload{Status: "CLEAN"})

	c.handleMessage(context.Background(), "scan_results", envelopeMessage(t, env), func(context.Context, models.MessageEnvelope) error {
		return fmt.Errorf("webhook unreachable")
	})

	assert.Equal(t, 1, logs.FilterMessage("Failed to handle scan result, dropping").Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.KafkaMessagesDroppedTotal.WithLabelValues(t.Name(), "scan_results", DropHandlerError)))
}

func TestHandleMessageRecoversPanic(t *testing.T) {
	c, logs := newTestConsumer(t)
	env := models.NewScanResultEnvelope("test", models.ScanResultPayload{Status: "CLEAN"})

	require.NotPanics(t, func() {
		c.handleMessage(context.Background(), "scan_results", envelopeMessage(t, env), func(context.Context, models.MessageEnvelope) error {
			panic("boom")
		})
	})

	assert.Equal(t, 1, logs.FilterMessage("Panic recovered during message processing").Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.KafkaMessagesDroppedTotal.WithLabelValues(t.Name(), "scan_results", DropHandlerError)))
}

func TestFactoryRejectsUnknownType(t *testing.T) {
	_, err := NewConsumer(config.BrokerConfig{Type: "nats"}, logger.NopLogger())
	assert.Error(t, err)

	_, err = NewProducer(config.BrokerConfig{Type: "nats"}, logger.NopLogger())
	assert.Error(t, err)

	p, err := NewProducer(config.BrokerConfig{Type: "kafka", Kafka: config.KafkaConfig{Brokers: []string{"localhost:9092"}}}, logger.NopLogger())
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}
