// Package sinkwriter implements the sink writer: an unconditional retry
// loop around a single sink.Write call, paced with an exponential backoff
// between attempts and driven to a terminal outcome by the ErrorsHandler.
package sinkwriter

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/langstream-go/pod-runtime/internal/domain"
)

// ErrorsHandler is the subset of errorshandler.Handler the sink writer
// needs.
type ErrorsHandler interface {
	HandleError(cause error) domain.Outcome
	FailProcessingOnPermanentErrors() bool
}

// FailureNotifier is implemented by the source the writer is running on
// behalf of.
type FailureNotifier interface {
	PermanentFailure(ctx context.Context, rec *domain.Record, cause error) error
}

// Tracker is the subset of tracker.Tracker the writer needs to acknowledge
// a derived batch without it ever reaching the sink (SKIP/dead-letter).
type Tracker interface {
	Commit(ctx context.Context, sinkRecords domain.Batch) error
}

// Writer paces sink.Write retries with an exponential backoff. The backoff
// is pure pacing: it never decides whether a retry happens, only how long
// to wait before the next one — the SKIP/RETRY/FAIL decision always comes
// from the ErrorsHandler.
type Writer struct {
	sink     domain.Sink
	eh       ErrorsHandler
	notifier FailureNotifier
	tracker  Tracker
	newBackoff func() backoff.BackOff
}

// New returns a Writer. newBackoff is invoked once per Write call to obtain
// a fresh backoff sequence; pass nil to use a sensible exponential default.
func New(sink domain.Sink, eh ErrorsHandler, notifier FailureNotifier, tr Tracker, newBackoff func() backoff.BackOff) *Writer {
	if newBackoff == nil {
		newBackoff = defaultBackoff
	}
	return &Writer{sink: sink, eh: eh, notifier: notifier, tracker: tr, newBackoff: newBackoff}
}

func defaultBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0 // the ErrorsHandler owns the retry budget, not the backoff.
	return b
}

// Write drives source/derived through the sink until it succeeds or the
// ErrorsHandler resolves the failure to a terminal SKIP or FAIL.
func (w *Writer) Write(ctx context.Context, source *domain.Record, derived domain.Batch) error {
	b := w.newBackoff()

	for {
		err := w.sink.Write(ctx, derived)
		if err == nil {
			return nil
		}

		switch w.eh.HandleError(err) {
		case domain.OutcomeSkip:
			return w.tracker.Commit(ctx, derived)
		case domain.OutcomeRetry:
			wait := b.NextBackOff()
			if wait == backoff.Stop {
				wait = 0
			}
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		case domain.OutcomeFail:
			if notifyErr := w.notifier.PermanentFailure(ctx, source, err); notifyErr != nil {
				return fmt.Errorf("notify permanent failure: %w", notifyErr)
			}
			if w.eh.FailProcessingOnPermanentErrors() {
				return err
			}
			return w.tracker.Commit(ctx, derived)
		default:
			return fmt.Errorf("sinkwriter: unrecognized outcome for error %w", err)
		}
	}
}
