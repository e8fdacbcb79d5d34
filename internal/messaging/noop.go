// Package messaging provides the no-op topic collaborators installed when a
// pod's pipeline descriptor configures no input or no output topic, plus the
// shared DLQ-routing behavior every concrete messaging substrate composes
// with its real consumer.
package messaging

import (
	"context"
	"time"

	"github.com/langstream-go/pod-runtime/internal/domain"
)

// idleSleep is how long the no-op consumer sleeps on each Read, standing in
// for a blocking poll against a broker that will never deliver anything.
const idleSleep = time.Second

// NoopConsumer is installed when a pod has no configured input topic. It
// never produces a record; the agent itself is assumed to be the source.
type NoopConsumer struct{}

// Read always returns an empty batch after a short idle sleep, so the main
// loop does not spin a tight loop driving an agent-only source.
func (NoopConsumer) Read(ctx context.Context) (domain.Batch, error) {
	select {
	case <-time.After(idleSleep):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return nil, nil
}

// PermanentFailure is a no-op: there is no upstream topic to notify.
func (NoopConsumer) PermanentFailure(context.Context, *domain.Record, error) error { return nil }

// NoopProducer is installed when a pod has no configured output topic. It
// discards every batch and immediately reports it as written, so a
// processor-only or source-only agent's output does not block on a sink
// that was never configured.
type NoopProducer struct{}

// Write discards batch and reports success.
func (NoopProducer) Write(context.Context, domain.Batch) error { return nil }

// TopicSink adapts a domain.TopicProducer into a domain.Sink by wiring the
// commit callback straight through once a write succeeds — topic producers
// have no internal buffering the runtime needs to reconcile, so every
// record in a written batch is immediately eligible for commit.
type TopicSink struct {
	Producer domain.TopicProducer
	onCommit domain.CommitCallback
}

// NewTopicSink wraps producer as a domain.Sink.
func NewTopicSink(producer domain.TopicProducer) *TopicSink {
	return &TopicSink{Producer: producer}
}

// SetCommitCallback stores cb, invoked after every successful Write.
func (s *TopicSink) SetCommitCallback(cb domain.CommitCallback) { s.onCommit = cb }

// Write forwards batch to the underlying producer and, on success, reports
// the whole batch committed.
func (s *TopicSink) Write(ctx context.Context, batch domain.Batch) error {
	if err := s.Producer.Write(ctx, batch); err != nil {
		return err
	}
	if s.onCommit != nil {
		return s.onCommit(ctx, batch)
	}
	return nil
}
