//go:build integration

package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkaContainer "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func TestKafkaPublisherWritesChallengeJoined(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	kafkaC, err := kafkaContainer.RunContainer(ctx, testcontainers.WithEnv(map[string]string{
		"KAFKA_AUTO_CREATE_TOPICS_ENABLE": "true",
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kafkaC.Terminate(context.Background()) })

	brokers, err := kafkaC.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	topic := "challenge_events"

	conn, err := kafka.Dial("tcp", brokers[0])
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))

	publisher := NewKafkaPublisher(brokers, topic)
	t.Cleanup(func() { _ = publisher.Close() })

	sent := ChallengeJoined{
		EventID:      "evt-1",
		Name:         "Alex",
		Participants: 4,
		OccurredAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, publisher.Publish(ctx, sent))

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)
	require.Equal(t, partitionKey, string(msg.Key))

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	require.Equal(t, EventTypeChallengeJoined, headers["event_type"])
	require.Equal(t, "evt-1", headers["event_id"])

	var received ChallengeJoined
	require.NoError(t, json.Unmarshal(msg.Value, &received))
	require.Equal(t, sent.Name, received.Name)
	require.Equal(t, sent.Participants, received.Participants)
	require.True(t, sent.OccurredAt.Equal(received.OccurredAt))
}
