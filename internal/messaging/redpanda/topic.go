// Package redpanda implements domain.TopicConnectionsRuntime against a
// Kafka-API broker (Redpanda or Kafka) via franz-go, grounded on the
// teacher's internal/adapter/queue/redpanda package.
package redpanda

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"
)

// dlqSuffix names a topic's dead-letter counterpart, per SPEC_FULL.md §6.
const dlqSuffix = ".dlq"

// dlqTopicName derives the DLQ topic for a source topic.
func dlqTopicName(topic string) string { return topic + dlqSuffix }

// ensureTopic creates topic if it does not already exist, tolerating a
// concurrent creator via the TOPIC_ALREADY_EXISTS (code 36) response.
func ensureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replicationFactor int16) error {
	if topic == "" {
		return fmt.Errorf("topic name cannot be empty")
	}

	req := kmsg.NewCreateTopicsRequest()
	req.TimeoutMillis = 30000

	topicReq := kmsg.NewCreateTopicsRequestTopic()
	topicReq.Topic = topic
	topicReq.NumPartitions = partitions
	topicReq.ReplicationFactor = replicationFactor
	req.Topics = append(req.Topics, topicReq)

	rawResp, err := client.Request(ctx, &req)
	if err != nil {
		return fmt.Errorf("create topic request: %w", err)
	}
	resp, ok := rawResp.(*kmsg.CreateTopicsResponse)
	if !ok {
		return fmt.Errorf("unexpected create-topics response type: %T", rawResp)
	}

	for _, t := range resp.Topics {
		if t.ErrorCode == 0 {
			slog.Info("topic ready", slog.String("topic", t.Topic))
			continue
		}
		if t.ErrorCode == 36 { // TOPIC_ALREADY_EXISTS
			slog.Info("topic already exists", slog.String("topic", t.Topic))
			continue
		}
		msg := ""
		if t.ErrorMessage != nil {
			msg = *t.ErrorMessage
		}
		return fmt.Errorf("create topic %q: %s (code %d)", t.Topic, msg, t.ErrorCode)
	}
	return nil
}
