// Package driver implements the processor driver: the trial loop that
// applies the error-handling policy to a batch of source records until
// every one of them has a terminal outcome.
package driver

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/langstream-go/pod-runtime/internal/domain"
)

// ErrorsHandler is the subset of errorshandler.Handler the driver needs.
type ErrorsHandler interface {
	HandleError(cause error) domain.Outcome
	FailProcessingOnPermanentErrors() bool
}

// FailureNotifier is implemented by the source the driver is running on
// behalf of, so permanent failures can be reported upstream.
type FailureNotifier interface {
	PermanentFailure(ctx context.Context, rec *domain.Record, cause error) error
}

// Drive runs the trial loop described in the processor driver's contract:
// it re-submits only the records that failed on the previous trial, and
// returns exactly one ProcessingResult per record in batch, in batch's
// original order.
func Drive(ctx context.Context, proc domain.Processor, batch domain.Batch, eh ErrorsHandler, notifier FailureNotifier) ([]domain.ProcessingResult, error) {
	order := make([]uuid.UUID, len(batch))
	results := make(map[uuid.UUID]domain.ProcessingResult, len(batch))
	for i, rec := range batch {
		order[i] = rec.ID()
	}

	pending := batch
	for len(pending) > 0 {
		trial := safeProcess(ctx, proc, pending)

		var next domain.Batch
		for _, res := range trial {
			if res.Err == nil {
				results[res.Source.ID()] = res
				continue
			}

			switch eh.HandleError(res.Err) {
			case domain.OutcomeRetry:
				next = append(next, res.Source)
			case domain.OutcomeSkip:
				results[res.Source.ID()] = res
			case domain.OutcomeFail:
				if notifyErr := notifier.PermanentFailure(ctx, res.Source, res.Err); notifyErr != nil {
					return nil, fmt.Errorf("notify permanent failure: %w", notifyErr)
				}
				if eh.FailProcessingOnPermanentErrors() {
					return nil, res.Err
				}
				results[res.Source.ID()] = res
			}
		}
		pending = next
	}

	out := make([]domain.ProcessingResult, len(order))
	for i, id := range order {
		out[i] = results[id]
	}
	return out, nil
}

// safeProcess invokes the processor and converts any panic, as well as any
// top-level error return, into a per-record error result for every record
// in pending — a processor that fails the whole batch is treated
// identically to one that fails every record in it individually.
func safeProcess(ctx context.Context, proc domain.Processor, pending domain.Batch) (trial []domain.ProcessingResult) {
	defer func() {
		if r := recover(); r != nil {
			trial = allFailed(pending, fmt.Errorf("processor panic: %v", r))
		}
	}()

	results, err := proc.Process(ctx, pending)
	if err != nil {
		return allFailed(pending, err)
	}
	return results
}

func allFailed(batch domain.Batch, cause error) []domain.ProcessingResult {
	out := make([]domain.ProcessingResult, len(batch))
	for i, rec := range batch {
		out[i] = domain.ProcessingResult{Source: rec, Err: cause}
	}
	return out
}
