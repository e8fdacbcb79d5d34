package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/langstream-go/pod-runtime/internal/domain"
)

// Consumer wraps a kgo.Client configured as a consumer-group member of one
// or more topics. Unlike the teacher's exactly-once transactional Consumer
// (internal/adapter/queue/redpanda/consumer.go), this one matches the
// runtime's at-least-once contract from spec.md §1: Read polls a batch and
// Commit acknowledges offsets only once the main loop has safely forwarded
// every record derived from it.
type Consumer struct {
	client *kgo.Client
	topics []string

	// kafkaRecords maps a domain.Record's hidden identity back to the
	// kgo.Record it was decoded from, so Commit can resolve offsets
	// without the domain layer ever seeing a kgo type. Entries are
	// removed as soon as they're committed; a crash between Read and
	// Commit simply leaks the map entry for a record that will be
	// re-delivered anyway (spec.md §4.6 invariant 3).
	kafkaRecords sync.Map
}

// NewConsumer constructs a Consumer subscribed to topics under groupID,
// provisioning each topic with a single partition/replica if it does not
// already exist (grounded on the teacher's NewConsumerWithTopic topic
// auto-creation, minus the EOS transactional session this runtime's
// non-goals exclude).
func NewConsumer(ctx context.Context, brokers []string, groupID string, topics []string) (*Consumer, error) {
	if groupID == "" {
		return nil, fmt.Errorf("missing required group ID")
	}
	if len(topics) == 0 {
		return nil, fmt.Errorf("no topics configured for consumer group %q", groupID)
	}

	client, err := newClient(brokers,
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, err
	}

	for _, topic := range topics {
		if err := ensureTopic(ctx, client, topic, 1, 1); err != nil {
			client.Close()
			return nil, fmt.Errorf("ensure topic %q: %w", topic, err)
		}
	}

	slog.Info("redpanda consumer ready", slog.Any("brokers", brokers), slog.String("group_id", groupID), slog.Any("topics", topics))
	return &Consumer{client: client, topics: topics}, nil
}

// Read polls one round of fetches and converts them to a domain.Batch in
// fetch order, stamping each Record with its hidden identity and carrying
// the kgo.Record along so Commit can resolve it back to an offset.
func (c *Consumer) Read(ctx context.Context) (domain.Batch, error) {
	fetches := c.client.PollFetches(ctx)
	if fetches.IsClientClosed() {
		return nil, fmt.Errorf("poll fetches: client closed")
	}

	var batch domain.Batch
	fetches.EachError(func(topic string, partition int32, err error) {
		slog.Error("fetch partition error", slog.String("topic", topic), slog.Int("partition", int(partition)), slog.Any("error", err))
	})
	fetches.EachRecord(func(kr *kgo.Record) {
		rec := domain.NewRecord(decodePayload(kr.Value))
		rec.Key = kr.Key
		rec.Topic = kr.Topic
		rec.Timestamp = kr.Timestamp
		rec.Headers = decodeHeaders(kr.Headers)
		c.kafkaRecords.Store(rec.ID(), kr)
		batch = append(batch, rec)
	})
	return batch, nil
}

// Commit marks every record in batch's underlying kgo.Record as consumed,
// then commits the resulting offsets to the broker. Records not produced by
// this consumer's Read (should not occur in practice) are skipped.
func (c *Consumer) Commit(ctx context.Context, batch domain.Batch) error {
	var toMark []*kgo.Record
	for _, rec := range batch {
		if kr, ok := c.kafkaRecords.LoadAndDelete(rec.ID()); ok {
			toMark = append(toMark, kr.(*kgo.Record))
		}
	}
	if len(toMark) == 0 {
		return nil
	}
	return c.client.CommitRecords(ctx, toMark...)
}

// PermanentFailure is a no-op at this layer: DLQ routing is the
// responsibility of messaging.DLQRoutingSource, which wraps this consumer.
func (c *Consumer) PermanentFailure(context.Context, *domain.Record, error) error { return nil }

// Close releases the underlying kafka client.
func (c *Consumer) Close() error {
	c.client.Close()
	return nil
}

func decodePayload(value []byte) any {
	var v any
	if err := json.Unmarshal(value, &v); err == nil {
		return v
	}
	return value
}

func decodeHeaders(headers []kgo.RecordHeader) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for _, h := range headers {
		out[h.Key] = string(h.Value)
	}
	return out
}
