package redpanda

import (
	"context"
	"fmt"

	"github.com/langstream-go/pod-runtime/internal/domain"
)

// ConnectionsRuntime implements domain.TopicConnectionsRuntime against a
// Kafka-API broker (Redpanda or Kafka), grounded on the teacher's
// NewConsumerWithTopic / NewProducerWithTransactionalID constructor pattern.
// The streamingCluster block the Runner validated is opaque to the core
// (spec.md §4.1); this is the one place that gives it meaning, expecting a
// "brokers" key holding a list of seed broker addresses.
type ConnectionsRuntime struct{}

// New returns a ConnectionsRuntime. It is stateless: every Create* call
// resolves brokers from the cluster config passed at call time.
func New() *ConnectionsRuntime { return &ConnectionsRuntime{} }

func brokersFrom(cluster map[string]any) ([]string, error) {
	raw, ok := cluster["brokers"]
	if !ok {
		return nil, fmt.Errorf("streamingCluster.brokers is required for the redpanda runtime")
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("streamingCluster.brokers must be a list, got %T", raw)
	}
	brokers := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("streamingCluster.brokers entries must be strings, got %T", v)
		}
		brokers = append(brokers, s)
	}
	return brokers, nil
}

func topicNames(topics []domain.TopicConfig) ([]string, error) {
	names := make([]string, 0, len(topics))
	for _, t := range topics {
		raw, ok := t["topic"]
		if !ok {
			return nil, fmt.Errorf("topic configuration missing %q key", "topic")
		}
		name, ok := raw.(string)
		if !ok || name == "" {
			return nil, fmt.Errorf("topic configuration %q must be a non-empty string", "topic")
		}
		names = append(names, name)
	}
	return names, nil
}

// CreateTopicConsumer resolves brokers from cluster and returns a Consumer
// subscribed to topics as a member of a group derived from agentID, so two
// distinct agents never collide on the same consumer group.
func (ConnectionsRuntime) CreateTopicConsumer(ctx context.Context, agentID string, cluster map[string]any, topics []domain.TopicConfig) (domain.TopicConsumer, error) {
	brokers, err := brokersFrom(cluster)
	if err != nil {
		return nil, err
	}
	names, err := topicNames(topics)
	if err != nil {
		return nil, err
	}
	return NewConsumer(ctx, brokers, agentID, names)
}

// CreateTopicProducer resolves brokers from cluster and returns a Producer
// writing to the first declared output topic (the core does not support
// fanning one agent's output across multiple topics).
func (ConnectionsRuntime) CreateTopicProducer(ctx context.Context, agentID string, cluster map[string]any, topics []domain.TopicConfig) (domain.TopicProducer, error) {
	return singleTopicProducer(ctx, cluster, topics)
}

// CreateDLQProducer resolves brokers from cluster and returns a Producer
// writing to the dead-letter counterpart (<topic>.dlq) of the first declared
// input topic only; failures from every input topic go to that one DLQ.
func (ConnectionsRuntime) CreateDLQProducer(ctx context.Context, agentID string, cluster map[string]any, topics []domain.TopicConfig) (domain.TopicProducer, error) {
	brokers, err := brokersFrom(cluster)
	if err != nil {
		return nil, err
	}
	names, err := topicNames(topics)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no input topics configured, cannot derive a DLQ topic")
	}
	return NewProducer(ctx, brokers, dlqTopicName(names[0]))
}

func singleTopicProducer(ctx context.Context, cluster map[string]any, topics []domain.TopicConfig) (domain.TopicProducer, error) {
	brokers, err := brokersFrom(cluster)
	if err != nil {
		return nil, err
	}
	names, err := topicNames(topics)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no output topics configured")
	}
	return NewProducer(ctx, brokers, names[0])
}
