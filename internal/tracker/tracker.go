// Package tracker implements the source record tracker: it maps sink
// (derived) records back to the source record they came from, so a source
// record is only committed upstream once every record derived from it has
// been durably written.
package tracker

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/langstream-go/pod-runtime/internal/domain"
)

// entry holds the bookkeeping for one in-flight source record.
type entry struct {
	source      *domain.Record
	outstanding int
}

// Tracker guards its bookkeeping with a mutex; the main loop drives it
// single-threadedly, same as every other core component.
type Tracker struct {
	mu       sync.Mutex
	bySink   map[uuid.UUID]*entry
	commit   func(ctx context.Context, rec *domain.Record) error
}

// New returns a Tracker that invokes commit for every source record once
// every record derived from it has been accounted for.
func New(commit func(ctx context.Context, rec *domain.Record) error) *Tracker {
	return &Tracker{
		bySink: make(map[uuid.UUID]*entry),
		commit: commit,
	}
}

// Track registers the processing results of one drive of the processor, one
// entry per source record. A result whose derived batch is empty has
// nothing left to wait for and is committed immediately — the sink will
// never see it, so nothing will ever call Commit for it.
func (t *Tracker) Track(ctx context.Context, results []domain.ProcessingResult) error {
	t.mu.Lock()
	var toCommitNow []*domain.Record
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		if len(res.Derived) == 0 {
			toCommitNow = append(toCommitNow, res.Source)
			continue
		}
		e := &entry{source: res.Source, outstanding: len(res.Derived)}
		for _, derived := range res.Derived {
			t.bySink[derived.ID()] = e
		}
	}
	t.mu.Unlock()

	for _, src := range toCommitNow {
		if err := t.commit(ctx, src); err != nil {
			return err
		}
	}
	return nil
}

// Commit is the sink's commit callback, invoked once a batch of sink records
// has been durably written; the sink writer also calls it when a write
// failure resolves to SKIP or dead-letter, so the batch counts as
// acknowledged. For each sink record it decrements the outstanding count
// of its source record, committing the source record upstream the moment
// that count reaches zero.
func (t *Tracker) Commit(ctx context.Context, sinkRecords domain.Batch) error {
	t.mu.Lock()
	var toCommit []*domain.Record
	for _, rec := range sinkRecords {
		e, ok := t.bySink[rec.ID()]
		if !ok {
			continue
		}
		delete(t.bySink, rec.ID())
		e.outstanding--
		if e.outstanding == 0 {
			toCommit = append(toCommit, e.source)
		}
	}
	t.mu.Unlock()

	for _, src := range toCommit {
		if err := t.commit(ctx, src); err != nil {
			return err
		}
	}
	return nil
}

// Discard drops the tracker's bookkeeping for a source record without
// committing it upstream. Nothing in the runtime calls it: a source record
// terminated by a SKIP at the processor stage is never registered into
// bySink in the first place (Track only tracks successful results), so
// there is nothing to drop for it.
func (t *Tracker) Discard(source *domain.Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, e := range t.bySink {
		if e.source.ID() == source.ID() {
			delete(t.bySink, k)
		}
	}
}
