package runner_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/langstream-go/pod-runtime/internal/config"
	"github.com/langstream-go/pod-runtime/internal/domain"
	"github.com/langstream-go/pod-runtime/internal/runtime/runner"
)

// scriptedAgent is a single agent filling all three roles, driven by a
// caller-supplied sequence of batches and a processing function, so each
// end-to-end scenario in spec.md §8 can be expressed as one test.
type scriptedAgent struct {
	mu      sync.Mutex
	batches []domain.Batch
	readIdx int

	process func(ctx context.Context, batch domain.Batch) ([]domain.ProcessingResult, error)
	write   func(ctx context.Context, batch domain.Batch) error
	onCommit domain.CommitCallback

	committed        []*domain.Record
	permanentFailures []*domain.Record
	writeCalls       int
}

func (a *scriptedAgent) Capabilities() domain.Capability {
	return domain.CapRead | domain.CapWrite | domain.CapProcess
}

func (a *scriptedAgent) Read(context.Context) (domain.Batch, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.readIdx >= len(a.batches) {
		return nil, nil
	}
	b := a.batches[a.readIdx]
	a.readIdx++
	return b, nil
}

func (a *scriptedAgent) Commit(_ context.Context, batch domain.Batch) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.committed = append(a.committed, batch...)
	return nil
}

func (a *scriptedAgent) PermanentFailure(_ context.Context, rec *domain.Record, _ error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.permanentFailures = append(a.permanentFailures, rec)
	return nil
}

func (a *scriptedAgent) Process(ctx context.Context, batch domain.Batch) ([]domain.ProcessingResult, error) {
	return a.process(ctx, batch)
}

func (a *scriptedAgent) Write(ctx context.Context, batch domain.Batch) error {
	a.mu.Lock()
	a.writeCalls++
	a.mu.Unlock()
	if err := a.write(ctx, batch); err != nil {
		return err
	}
	if a.onCommit != nil {
		return a.onCommit(ctx, batch)
	}
	return nil
}

func (a *scriptedAgent) SetCommitCallback(cb domain.CommitCallback) { a.onCommit = cb }

func (a *scriptedAgent) committedIDs() []interface{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]interface{}, len(a.committed))
	for i, r := range a.committed {
		ids[i] = r.ID()
	}
	return ids
}

func basePipelineConfig(onFailure domain.OnFailureAction, retries int) config.PipelineConfig {
	return config.PipelineConfig{
		StreamingCluster: map[string]any{"brokers": []any{"localhost:9092"}},
		Agent: config.AgentConfig{
			ApplicationID: "app1",
			AgentID:       "agent1",
			Configuration: config.AgentInstanceConfig{ClassName: "unused"},
			ErrorHandlerConfiguration: config.ErrorHandlerConfig{
				OnFailure: onFailure,
				Retries:   retries,
			},
		},
	}
}

func passthroughProcess(ctx context.Context, batch domain.Batch) ([]domain.ProcessingResult, error) {
	out := make([]domain.ProcessingResult, len(batch))
	for i, rec := range batch {
		out[i] = domain.ProcessingResult{Source: rec, Derived: domain.Batch{rec}}
	}
	return out, nil
}

func acceptWrite(context.Context, domain.Batch) error { return nil }

// TestRunner_S1_SingleRecordRoundTrip mirrors spec.md §8 scenario S1.
func TestRunner_S1_SingleRecordRoundTrip(t *testing.T) {
	rec := domain.NewRecord("payload")
	agent := &scriptedAgent{
		batches: []domain.Batch{{rec}},
		process: passthroughProcess,
		write:   acceptWrite,
	}

	r := &runner.Runner{}
	err := r.Run(context.Background(), basePipelineConfig(domain.OnFailureFail, 0), agent, 1)
	require.NoError(t, err)
	require.Equal(t, 1, agent.writeCalls)
	require.ElementsMatch(t, []interface{}{rec.ID()}, agent.committedIDs())
}

// TestRunner_S2_RetriesThenSkip mirrors scenario S2.
func TestRunner_S2_RetriesThenSkip(t *testing.T) {
	rec := domain.NewRecord("payload")
	cause := errors.New("boom")
	trials := 0
	agent := &scriptedAgent{
		batches: []domain.Batch{{rec}},
		process: func(_ context.Context, batch domain.Batch) ([]domain.ProcessingResult, error) {
			trials++
			out := make([]domain.ProcessingResult, len(batch))
			for i, r := range batch {
				out[i] = domain.ProcessingResult{Source: r, Err: cause}
			}
			return out, nil
		},
		write: acceptWrite,
	}

	r := &runner.Runner{}
	err := r.Run(context.Background(), basePipelineConfig(domain.OnFailureSkip, 2), agent, 1)
	require.NoError(t, err)
	require.Equal(t, 3, trials, "initial trial + 2 retries")
	require.Equal(t, 0, agent.writeCalls, "sink is never called")
	require.ElementsMatch(t, []interface{}{rec.ID()}, agent.committedIDs())
}

// TestRunner_S3_DeadLetterReportsAndContinues mirrors scenario S3.
func TestRunner_S3_DeadLetterReportsAndContinues(t *testing.T) {
	rec := domain.NewRecord("payload")
	cause := errors.New("boom")
	agent := &scriptedAgent{
		batches: []domain.Batch{{rec}, nil},
		process: func(_ context.Context, batch domain.Batch) ([]domain.ProcessingResult, error) {
			out := make([]domain.ProcessingResult, len(batch))
			for i, r := range batch {
				out[i] = domain.ProcessingResult{Source: r, Err: cause}
			}
			return out, nil
		},
		write: acceptWrite,
	}

	r := &runner.Runner{}
	err := r.Run(context.Background(), basePipelineConfig(domain.OnFailureDeadLetter, 0), agent, 2)
	require.NoError(t, err)
	require.Len(t, agent.permanentFailures, 1)
	require.Equal(t, rec.ID(), agent.permanentFailures[0].ID())
	require.ElementsMatch(t, []interface{}{rec.ID()}, agent.committedIDs())
}

// TestRunner_S4_SinkFailureAbortsWithoutCommit mirrors scenario S4.
func TestRunner_S4_SinkFailureAbortsWithoutCommit(t *testing.T) {
	rec := domain.NewRecord("payload")
	agent := &scriptedAgent{
		batches: []domain.Batch{{rec}},
		process: passthroughProcess,
		write: func(context.Context, domain.Batch) error {
			return errors.New("sink exploded")
		},
	}

	r := &runner.Runner{}
	err := r.Run(context.Background(), basePipelineConfig(domain.OnFailureFail, 0), agent, 1)
	require.Error(t, err)
	require.Empty(t, agent.committedIDs(), "onFailure=fail must not commit")
	require.Len(t, agent.permanentFailures, 1)
}

// TestRunner_S5_TrackerWaitsForAllDerivedRecords mirrors scenario S5.
func TestRunner_S5_TrackerWaitsForAllDerivedRecords(t *testing.T) {
	r1, r2 := domain.NewRecord("r1"), domain.NewRecord("r2")
	agent := &scriptedAgent{
		batches: []domain.Batch{{r1, r2}},
		process: func(_ context.Context, batch domain.Batch) ([]domain.ProcessingResult, error) {
			return []domain.ProcessingResult{
				{Source: batch[0], Derived: domain.Batch{domain.NewRecord("a"), domain.NewRecord("b")}},
				{Source: batch[1], Derived: domain.Batch{domain.NewRecord("c")}},
			}, nil
		},
		write: acceptWrite,
	}

	r := &runner.Runner{}
	err := r.Run(context.Background(), basePipelineConfig(domain.OnFailureFail, 0), agent, 1)
	require.NoError(t, err)
	require.ElementsMatch(t, []interface{}{r1.ID(), r2.ID()}, agent.committedIDs())
}

// TestRunner_S6_EmptyBatchesAreNoOps mirrors scenario S6.
func TestRunner_S6_EmptyBatchesAreNoOps(t *testing.T) {
	agent := &scriptedAgent{
		batches: []domain.Batch{nil, nil, nil},
		process: passthroughProcess,
		write:   acceptWrite,
	}

	r := &runner.Runner{}
	err := r.Run(context.Background(), basePipelineConfig(domain.OnFailureFail, 0), agent, 3)
	require.NoError(t, err)
	require.Equal(t, 0, agent.writeCalls)
	require.Empty(t, agent.committedIDs())
	require.Equal(t, 3, agent.readIdx)
}

func TestRunner_MissingStreamingCluster(t *testing.T) {
	cfg := basePipelineConfig(domain.OnFailureFail, 0)
	cfg.StreamingCluster = nil

	r := &runner.Runner{}
	err := r.Run(context.Background(), cfg, &scriptedAgent{process: passthroughProcess, write: acceptWrite}, 1)
	require.ErrorIs(t, err, domain.ErrMissingStreamingCluster)
}

func TestRunner_MaxLoopsZeroDoesNothing(t *testing.T) {
	agent := &scriptedAgent{
		batches: []domain.Batch{{domain.NewRecord("x")}},
		process: passthroughProcess,
		write:   acceptWrite,
	}

	r := &runner.Runner{}
	err := r.Run(context.Background(), basePipelineConfig(domain.OnFailureFail, 0), agent, 0)
	require.NoError(t, err)
	require.Equal(t, 0, agent.readIdx)
}
