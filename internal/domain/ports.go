package domain

import "context"

// Capability is a bitset an agent declares at construction time to say
// which of the three pod roles it fills. This replaces structural
// "hasattr" probing: the adapter branches on the bitset, not on whether a
// type assertion happens to succeed.
type Capability uint8

// Recognized capabilities. An agent may declare any combination.
const (
	CapRead Capability = 1 << iota
	CapWrite
	CapProcess
)

// Has reports whether c includes cap.
func (c Capability) Has(cap Capability) bool { return c&cap != 0 }

// Agent is the minimal surface every pod agent must expose: which roles it
// fills, and (optionally, via the Starter/Closer/Initializer interfaces
// below) lifecycle hooks.
type Agent interface {
	Capabilities() Capability
}

// Initializer is implemented by agents that accept free-form configuration.
type Initializer interface {
	Init(ctx context.Context, config map[string]any) error
}

// Starter is implemented by collaborators with a one-time startup step.
type Starter interface {
	Start(ctx context.Context) error
}

// Closer is implemented by collaborators with a one-time teardown step.
type Closer interface {
	Close() error
}

// Source is the read side of the pipeline: agents that declare CapRead, and
// the topic-consumer wrapper that stands in for agents that don't.
type Source interface {
	Read(ctx context.Context) (Batch, error)
}

// Committer is implemented by sources that need to know which of their
// records have been safely forwarded and can be acknowledged upstream.
type Committer interface {
	Commit(ctx context.Context, batch Batch) error
}

// PermanentFailureNotifier is implemented by sources that want to observe
// terminal per-record failures (e.g. to route them to a DLQ).
type PermanentFailureNotifier interface {
	PermanentFailure(ctx context.Context, rec *Record, cause error) error
}

// CommitCallback is invoked by a Sink once a batch has been durably
// written, so the caller can reconcile derived records back to their
// originating source records.
type CommitCallback func(ctx context.Context, batch Batch) error

// Sink is the write side of the pipeline.
type Sink interface {
	Write(ctx context.Context, batch Batch) error
	SetCommitCallback(cb CommitCallback)
}

// Processor is the transform side of the pipeline. Process returns exactly
// one ProcessingResult per input record, in input order.
type Processor interface {
	Process(ctx context.Context, batch Batch) ([]ProcessingResult, error)
}

// TopicConfig is the opaque per-topic configuration the pipeline
// descriptor supplies for an input or output binding; the runtime never
// inspects its shape beyond passing it to the messaging substrate.
type TopicConfig map[string]any

// TopicConsumer is the source-side collaborator backed by the messaging
// substrate, standing in for an agent that doesn't implement Read itself.
type TopicConsumer interface {
	Source
	PermanentFailureNotifier
}

// TopicProducer is the sink-side collaborator backed by the messaging
// substrate, used both for the agent's declared output and for DLQ
// routing.
type TopicProducer interface {
	Write(ctx context.Context, batch Batch) error
}

// TopicConnectionsRuntime resolves topic consumers/producers for a
// declared streaming cluster. One implementation exists per messaging
// technology (see internal/messaging/redpanda for the Kafka-API one).
type TopicConnectionsRuntime interface {
	CreateTopicConsumer(ctx context.Context, agentID string, cluster map[string]any, topics []TopicConfig) (TopicConsumer, error)
	CreateTopicProducer(ctx context.Context, agentID string, cluster map[string]any, topics []TopicConfig) (TopicProducer, error)
	CreateDLQProducer(ctx context.Context, agentID string, cluster map[string]any, topics []TopicConfig) (TopicProducer, error)
}
