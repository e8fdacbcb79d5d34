package messaging

import (
	"context"
	"log/slog"

	"github.com/langstream-go/pod-runtime/internal/domain"
)

// DLQRoutingSource wraps a topic consumer so that a permanent per-record
// failure is routed to the pod's dead-letter producer instead of being
// silently dropped, and commits pass through to the underlying consumer
// unchanged. Every concrete messaging substrate's consumer is wrapped in
// one of these by the Runner, rather than duplicating DLQ routing per
// substrate.
type DLQRoutingSource struct {
	Consumer domain.TopicConsumer
	DLQ      domain.TopicProducer
}

// Read delegates to the underlying consumer.
func (s *DLQRoutingSource) Read(ctx context.Context) (domain.Batch, error) {
	return s.Consumer.Read(ctx)
}

// Commit delegates to the underlying consumer if it implements Committer.
func (s *DLQRoutingSource) Commit(ctx context.Context, batch domain.Batch) error {
	if c, ok := s.Consumer.(domain.Committer); ok {
		return c.Commit(ctx, batch)
	}
	return nil
}

// PermanentFailure ships rec to the DLQ producer (if one is configured) and
// still gives the underlying consumer a chance to observe the failure.
func (s *DLQRoutingSource) PermanentFailure(ctx context.Context, rec *domain.Record, cause error) error {
	if s.DLQ != nil {
		if err := s.DLQ.Write(ctx, domain.Batch{rec}); err != nil {
			slog.Error("dlq write failed", slog.Any("error", err), slog.Any("cause", cause))
			return err
		}
	}
	return s.Consumer.PermanentFailure(ctx, rec, cause)
}
