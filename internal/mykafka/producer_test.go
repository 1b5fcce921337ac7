package mykafka

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(nil)
	require.Error(t, err)
}

func TestProducer_PublishEvent(t *testing.T) {
	broker := os.Getenv("KAFKA_TEST_BROKER")
	if broker == "" {
		t.Skip("KAFKA_TEST_BROKER is not set")
	}

	topic := "edu_shop_test_" + uuid.NewString()[:8]
	ensureTopic(t, broker, topic)

	prod, err := NewProducer([]string{broker})
	require.NoError(t, err)
	t.Cleanup(func() { _ = prod.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	require.NoError(t, prod.PublishEvent(ctx, topic, "42", map[string]any{"type": "order_created", "orderId": 42}))

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
		MaxWait:   time.Second,
	})
	defer r.Close()

	m, err := r.ReadMessage(ctx)
	require.NoError(t, err)
	require.Equal(t, "42", string(m.Key))

	var event map[string]any
	require.NoError(t, json.Unmarshal(m.Value, &event))
	require.Equal(t, "order_created", event["type"])
	require.EqualValues(t, 42, event["orderId"])
}

func ensureTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafka.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	admin, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer admin.Close()

	require.NoError(t, admin.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}
