package redpanda

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"

	"github.com/langstream-go/pod-runtime/internal/domain"
)

// Producer wraps a kgo.Client configured to write to a single topic,
// grounded on the teacher's internal/adapter/queue/redpanda/producer.go.
type Producer struct {
	client *kgo.Client
	topic  string
}

// newClient builds a kgo.Client with OTEL hooks attached via kotel,
// shared by every producer/consumer this package constructs.
func newClient(brokers []string, opts ...kgo.Opt) (*kgo.Client, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no seed brokers provided")
	}

	tracer := kotel.NewTracer()
	hooks := kotel.NewKotel(kotel.WithTracer(tracer))

	base := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.WithHooks(hooks.Hooks()...),
		kgo.RequestRetries(10),
	}
	client, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

// NewProducer constructs a Producer for topic, provisioning it with a
// single partition/replica if it does not already exist (a pod-local
// runtime has no cluster-sizing opinion; production clusters pre-provision
// their own topics).
func NewProducer(ctx context.Context, brokers []string, topic string) (*Producer, error) {
	client, err := newClient(brokers, kgo.DefaultProduceTopic(topic))
	if err != nil {
		return nil, err
	}
	if err := ensureTopic(ctx, client, topic, 1, 1); err != nil {
		return nil, fmt.Errorf("ensure topic %q: %w", topic, err)
	}
	return &Producer{client: client, topic: topic}, nil
}

// Write encodes batch as JSON (when a record's Payload is not already
// []byte) and produces it synchronously, record by record, preserving
// batch order.
func (p *Producer) Write(ctx context.Context, batch domain.Batch) error {
	records := make([]*kgo.Record, len(batch))
	for i, rec := range batch {
		value, err := encodePayload(rec.Payload)
		if err != nil {
			return fmt.Errorf("encode record payload: %w", err)
		}
		records[i] = &kgo.Record{
			Topic:   p.topic,
			Key:     rec.Key,
			Value:   value,
			Headers: encodeHeaders(rec.Headers),
		}
	}

	results := p.client.ProduceSync(ctx, records...)
	if err := results.FirstErr(); err != nil {
		return fmt.Errorf("produce to %q: %w", p.topic, err)
	}
	return nil
}

// Close releases the underlying kafka client.
func (p *Producer) Close() error {
	p.client.Close()
	return nil
}

func encodePayload(payload any) ([]byte, error) {
	if b, ok := payload.([]byte); ok {
		return b, nil
	}
	return json.Marshal(payload)
}

func encodeHeaders(headers map[string]string) []kgo.RecordHeader {
	if len(headers) == 0 {
		return nil
	}
	out := make([]kgo.RecordHeader, 0, len(headers))
	for k, v := range headers {
		out = append(out, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}
	return out
}
