//go:build integration

package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"feedlog/internal/platform/config"
	"feedlog/internal/platform/kafka"
	"feedlog/pkg/testutil/containers"
)

func TestKafkaPublisherRoundTrip(t *testing.T) {
	rp := containers.GetManager().GetRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := config.KafkaConfig{Brokers: rp.Brokers, Topic: "feedlog.items.test", Partitions: 1, Replicas: 1}
	producer, err := kafka.New(cfg)
	require.NoError(t, err)
	defer producer.Close()
	require.NoError(t, kafka.EnsureTopic(ctx, producer, cfg))
	require.NoError(t, kafka.EnsureTopic(ctx, producer, cfg), "topic creation is idempotent")

	require.NoError(t, NewKafkaPublisher(producer, cfg.Topic).PublishItem(ctx, testItem()))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Brokers...),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.Len(t, records, 1)

	assert.Equal(t, "example.com|item_a", string(records[0].Key))
	var ev ItemPublished
	require.NoError(t, json.Unmarshal(records[0].Value, &ev))
	assert.Equal(t, TypeItemPublished, ev.Type)
	assert.EqualValues(t, 7, ev.Seqno)
}
