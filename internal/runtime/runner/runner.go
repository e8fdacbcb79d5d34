// Package runner implements the Runner and the main loop: the top-level
// entry point that resolves a pod's collaborators from its pipeline
// descriptor and drives them to completion.
package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v4"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/langstream-go/pod-runtime/internal/adapter"
	"github.com/langstream-go/pod-runtime/internal/config"
	"github.com/langstream-go/pod-runtime/internal/domain"
	"github.com/langstream-go/pod-runtime/internal/errorshandler"
	"github.com/langstream-go/pod-runtime/internal/messaging"
	"github.com/langstream-go/pod-runtime/internal/observability"
	"github.com/langstream-go/pod-runtime/internal/registry"
	"github.com/langstream-go/pod-runtime/internal/runtime/driver"
	"github.com/langstream-go/pod-runtime/internal/runtime/sinkwriter"
	"github.com/langstream-go/pod-runtime/internal/tracker"
)

var tracer = otel.Tracer("github.com/langstream-go/pod-runtime/internal/runtime/runner")

// Runner is created once per pod invocation and resolves the messaging
// runtime, agent, and collaborators from a PipelineConfig before entering
// the main loop.
type Runner struct {
	Topics     domain.TopicConnectionsRuntime
	Registry   *registry.Registry
	Metrics    *observability.Metrics
	BackoffCfg config.BackoffConfig
}

// MaxLoops mirrors spec.md §4.1: negative runs forever, positive runs that
// many iterations and exits, zero does nothing.
const (
	RunForever = -1
)

// Run implements the Runner contract from spec.md §4.1: validate, resolve
// collaborators, project the agent, and enter the main loop.
func (r *Runner) Run(ctx context.Context, cfg config.PipelineConfig, agent domain.Agent, maxLoops int) error {
	if len(cfg.StreamingCluster) == 0 {
		return domain.ErrMissingStreamingCluster
	}
	if cfg.Agent.ApplicationID == "" || cfg.Agent.AgentID == "" {
		return domain.ErrMissingAgentIdentity
	}

	agentID := cfg.Agent.AgentIdentity()

	eh, err := errorshandler.New(errorshandler.Config{
		OnFailure: cfg.Agent.ErrorHandlerConfiguration.OnFailure,
		Retries:   cfg.Agent.ErrorHandlerConfiguration.Retries,
	})
	if err != nil {
		return fmt.Errorf("build errors handler: %w", err)
	}

	if agent == nil {
		built, err := r.Registry.Build(ctx, cfg.Agent.Configuration.ClassName, cfg.Agent.Configuration.Properties)
		if err != nil {
			return err
		}
		agent = built
	}

	var topicSource domain.Source = messaging.NoopConsumer{}
	var dlqProducer domain.TopicProducer
	if len(cfg.Input) > 0 {
		consumer, err := r.Topics.CreateTopicConsumer(ctx, agentID, cfg.StreamingCluster, toDomainTopics(cfg.Input))
		if err != nil {
			return fmt.Errorf("create topic consumer: %w", err)
		}
		dlqProducer, err = r.Topics.CreateDLQProducer(ctx, agentID, cfg.StreamingCluster, toDomainTopics(cfg.Input))
		if err != nil {
			return fmt.Errorf("create dlq producer: %w", err)
		}
		topicSource = &messaging.DLQRoutingSource{Consumer: consumer, DLQ: dlqProducer}
	}

	var topicSink domain.Sink = messaging.NewTopicSink(messaging.NoopProducer{})
	if len(cfg.Output) > 0 {
		producer, err := r.Topics.CreateTopicProducer(ctx, agentID, cfg.StreamingCluster, toDomainTopics(cfg.Output))
		if err != nil {
			return fmt.Errorf("create topic producer: %w", err)
		}
		topicSink = messaging.NewTopicSink(producer)
	}

	projected := adapter.Project(agent, topicSource, topicSink)

	// The failure notifier always targets whichever collaborator actually
	// fills the source role for this pod (the agent itself, if it declared
	// CapRead, or the topic consumer otherwise) -- not the topic consumer
	// unconditionally, so an agent-sourced pod's own permanent_failure hook
	// is honored per spec.md §6.
	notifier, _ := projected.Source.(driver.FailureNotifier)
	if notifier == nil {
		notifier = noopNotifier{}
	}

	tr := tracker.New(func(ctx context.Context, src *domain.Record) error {
		if c, ok := projected.Source.(domain.Committer); ok {
			return c.Commit(ctx, domain.Batch{src})
		}
		return nil
	})
	projected.Sink.SetCommitCallback(tr.Commit)

	for _, s := range projected.Starters {
		if err := s.Start(ctx); err != nil {
			return fmt.Errorf("start collaborator: %w", err)
		}
	}
	defer func() {
		for _, c := range projected.Closers {
			if err := c.Close(); err != nil {
				slog.Error("collaborator close failed", slog.Any("error", err), slog.String("agent_id", agentID))
			}
		}
	}()

	writer := sinkwriter.New(projected.Sink, eh, notifier, tr, r.newBackoff())

	return mainLoop(ctx, mainLoopDeps{
		agentID:   agentID,
		source:    projected.Source,
		processor: projected.Processor,
		writer:    writer,
		tracker:   tr,
		eh:        eh,
		notifier:  notifier,
		metrics:   r.Metrics,
	}, maxLoops)
}

type mainLoopDeps struct {
	agentID   string
	source    domain.Source
	processor domain.Processor
	writer    *sinkwriter.Writer
	tracker   *tracker.Tracker
	eh        *errorshandler.Handler
	notifier  driver.FailureNotifier
	metrics   *observability.Metrics
}

// mainLoop implements spec.md §4.3: read, drive, register with the
// tracker, dispatch per result, re-raise on dispatch error without
// committing.
func mainLoop(ctx context.Context, d mainLoopDeps, maxLoops int) error {
	for i := 0; maxLoops < 0 || i < maxLoops; i++ {
		loopID := ulid.Make().String()
		if err := iterate(ctx, d, loopID); err != nil {
			return err
		}
	}
	return nil
}

func iterate(ctx context.Context, d mainLoopDeps, loopID string) error {
	ctx, span := tracer.Start(ctx, "pod.loop.iterate")
	defer span.End()
	span.SetAttributes(attribute.String("agent_id", d.agentID), attribute.String("loop_id", loopID))

	if d.metrics != nil {
		d.metrics.LoopIterations.Inc()
	}

	batch, err := d.source.Read(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "source read failed")
		return fmt.Errorf("source read: %w", err)
	}
	if len(batch) == 0 {
		return nil
	}
	if d.metrics != nil {
		d.metrics.RecordsRead.Add(float64(len(batch)))
	}

	results, err := driver.Drive(ctx, d.processor, batch, d.eh, d.notifier)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "processor driver failed")
		return fmt.Errorf("drive processor: %w", err)
	}

	if err := d.tracker.Track(ctx, results); err != nil {
		span.RecordError(err)
		return fmt.Errorf("track results: %w", err)
	}

	for _, res := range results {
		switch {
		case res.Err != nil:
			if d.metrics != nil {
				d.metrics.RecordsSkipped.Inc()
			}
			if c, ok := d.source.(domain.Committer); ok {
				if err := c.Commit(ctx, domain.Batch{res.Source}); err != nil {
					return fmt.Errorf("commit skipped source record: %w", err)
				}
			}
		case len(res.Derived) > 0:
			if err := d.writer.Write(ctx, res.Source, res.Derived); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "sink write failed")
				return fmt.Errorf("sink write: %w", err)
			}
			if d.metrics != nil {
				d.metrics.RecordsCommitted.Inc()
			}
		default:
			// Empty derived batch: the tracker already committed this
			// source record immediately when Track registered it.
		}
	}

	return nil
}

func toDomainTopics(topics []config.TopicConfig) []domain.TopicConfig {
	out := make([]domain.TopicConfig, len(topics))
	for i, t := range topics {
		out[i] = domain.TopicConfig(t)
	}
	return out
}

type noopNotifier struct{}

func (noopNotifier) PermanentFailure(context.Context, *domain.Record, error) error { return nil }

// newBackoff returns a factory the sink writer calls once per Write to
// obtain a fresh backoff sequence paced from the runner's BackoffCfg,
// falling back to the writer's own default when unset.
func (r *Runner) newBackoff() func() backoff.BackOff {
	if r.BackoffCfg.InitialInterval == 0 {
		return nil
	}
	cfg := r.BackoffCfg
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = cfg.InitialInterval
		b.MaxInterval = cfg.MaxInterval
		b.Multiplier = cfg.Multiplier
		b.MaxElapsedTime = 0
		return b
	}
}
