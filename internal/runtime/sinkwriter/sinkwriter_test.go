package sinkwriter_test

import (
	"context"
	"errors"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"

	"github.com/langstream-go/pod-runtime/internal/domain"
	"github.com/langstream-go/pod-runtime/internal/errorshandler"
	"github.com/langstream-go/pod-runtime/internal/runtime/sinkwriter"
)

type fakeSink struct {
	failUntil int
	calls     int
	written   []domain.Batch
}

func (s *fakeSink) Write(_ context.Context, batch domain.Batch) error {
	s.calls++
	if s.calls <= s.failUntil {
		return errors.New("write failed")
	}
	s.written = append(s.written, batch)
	return nil
}
func (s *fakeSink) SetCommitCallback(domain.CommitCallback) {}

type fakeNotifier struct{ notified []*domain.Record }

func (n *fakeNotifier) PermanentFailure(_ context.Context, rec *domain.Record, _ error) error {
	n.notified = append(n.notified, rec)
	return nil
}

type fakeTracker struct{ committed []domain.Batch }

func (t *fakeTracker) Commit(_ context.Context, batch domain.Batch) error {
	t.committed = append(t.committed, batch)
	return nil
}

func noBackoff() backoff.BackOff { return &backoff.ZeroBackOff{} }

func TestWrite_SucceedsFirstTry(t *testing.T) {
	sink := &fakeSink{}
	eh, err := errorshandler.New(errorshandler.Config{OnFailure: domain.OnFailureFail, Retries: 0})
	require.NoError(t, err)
	tr := &fakeTracker{}
	w := sinkwriter.New(sink, eh, &fakeNotifier{}, tr, noBackoff)

	rec := domain.NewRecord("r")
	derived := domain.Batch{domain.NewRecord("d")}
	require.NoError(t, w.Write(context.Background(), rec, derived))
	require.Equal(t, 1, sink.calls)
	require.Empty(t, tr.committed, "success commits via the sink's own commit callback, not the writer")
}

func TestWrite_RetriesUntilSuccess(t *testing.T) {
	sink := &fakeSink{failUntil: 2}
	eh, err := errorshandler.New(errorshandler.Config{OnFailure: domain.OnFailureFail, Retries: 5})
	require.NoError(t, err)
	w := sinkwriter.New(sink, eh, &fakeNotifier{}, &fakeTracker{}, noBackoff)

	require.NoError(t, w.Write(context.Background(), domain.NewRecord("r"), domain.Batch{domain.NewRecord("d")}))
	require.Equal(t, 3, sink.calls)
}

// TestWrite_SkipCommitsWithoutWriting mirrors spec.md §4.5: SKIP commits the
// derived batch through the tracker even though nothing reached the sink.
func TestWrite_SkipCommitsWithoutWriting(t *testing.T) {
	sink := &fakeSink{failUntil: 1000}
	eh, err := errorshandler.New(errorshandler.Config{OnFailure: domain.OnFailureSkip, Retries: 0})
	require.NoError(t, err)
	tr := &fakeTracker{}
	w := sinkwriter.New(sink, eh, &fakeNotifier{}, tr, noBackoff)

	derived := domain.Batch{domain.NewRecord("d")}
	require.NoError(t, w.Write(context.Background(), domain.NewRecord("r"), derived))
	require.Len(t, tr.committed, 1)
	require.Equal(t, derived, tr.committed[0])
}

// TestWrite_S4_FailAbortsWithoutCommit mirrors spec.md §8 scenario S4.
func TestWrite_S4_FailAbortsWithoutCommit(t *testing.T) {
	sink := &fakeSink{failUntil: 1000}
	eh, err := errorshandler.New(errorshandler.Config{OnFailure: domain.OnFailureFail, Retries: 0})
	require.NoError(t, err)
	tr := &fakeTracker{}
	notifier := &fakeNotifier{}
	w := sinkwriter.New(sink, eh, notifier, tr, noBackoff)

	rec := domain.NewRecord("r")
	err2 := w.Write(context.Background(), rec, domain.Batch{domain.NewRecord("d")})
	require.Error(t, err2)
	require.Empty(t, tr.committed, "FAIL with onFailure=fail must not commit")
	require.Len(t, notifier.notified, 1)
	require.Equal(t, rec.ID(), notifier.notified[0].ID())
}

func TestWrite_DeadLetterCommitsDerivedBatch(t *testing.T) {
	sink := &fakeSink{failUntil: 1000}
	eh, err := errorshandler.New(errorshandler.Config{OnFailure: domain.OnFailureDeadLetter, Retries: 0})
	require.NoError(t, err)
	tr := &fakeTracker{}
	w := sinkwriter.New(sink, eh, &fakeNotifier{}, tr, noBackoff)

	derived := domain.Batch{domain.NewRecord("d")}
	require.NoError(t, w.Write(context.Background(), domain.NewRecord("r"), derived))
	require.Len(t, tr.committed, 1)
}
