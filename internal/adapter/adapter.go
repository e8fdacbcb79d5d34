// Package adapter projects a single user agent, plus the topic consumer and
// topic producer the Runner resolved for it, onto the three collaborator
// roles the main loop drives: Source, Sink, and Processor.
package adapter

import (
	"context"

	"github.com/langstream-go/pod-runtime/internal/domain"
)

// Projected holds the three collaborators the main loop drives, and the
// full set of closers accumulated across whichever of them actually needed
// starting, so the Runner can guarantee start/close pairing regardless of
// which capabilities the agent declared.
type Projected struct {
	Source    domain.Source
	Sink      domain.Sink
	Processor domain.Processor
	Starters  []domain.Starter
	Closers   []domain.Closer
}

// Project composes the agent with its topic collaborators. The agent's
// declared Capability bitset decides which of Source/Sink/Processor it
// fills; an unfilled source or sink role is backed by the corresponding
// topic collaborator (which may itself be a no-op, e.g. messaging.NoopConsumer
// for an agent with no configured input), and an unfilled processor role by
// a passthrough processor.
func Project(agent domain.Agent, topicSource domain.Source, topicSink domain.Sink) *Projected {
	p := &Projected{}

	caps := agent.Capabilities()

	if caps.Has(domain.CapRead) {
		src, ok := agent.(domain.Source)
		if !ok {
			panic("adapter: agent declares CapRead but does not implement Source")
		}
		p.Source = src
	} else {
		p.Source = topicSource
	}

	if caps.Has(domain.CapWrite) {
		sink, ok := agent.(domain.Sink)
		if !ok {
			panic("adapter: agent declares CapWrite but does not implement Sink")
		}
		p.Sink = sink
	} else {
		p.Sink = topicSink
	}

	if caps.Has(domain.CapProcess) {
		proc, ok := agent.(domain.Processor)
		if !ok {
			panic("adapter: agent declares CapProcess but does not implement Processor")
		}
		p.Processor = proc
	} else {
		p.Processor = passthroughProcessor{}
	}

	for _, c := range []any{agent, topicSource, topicSink} {
		if s, ok := c.(domain.Starter); ok {
			p.Starters = append(p.Starters, s)
		}
		if cl, ok := c.(domain.Closer); ok {
			p.Closers = append(p.Closers, cl)
		}
	}

	return p
}

// passthroughProcessor backs an agent that declares neither CapProcess:
// every input record is forwarded to the sink unchanged, one-for-one.
type passthroughProcessor struct{}

func (passthroughProcessor) Process(_ context.Context, batch domain.Batch) ([]domain.ProcessingResult, error) {
	out := make([]domain.ProcessingResult, len(batch))
	for i, rec := range batch {
		out[i] = domain.ProcessingResult{Source: rec, Derived: domain.Batch{rec}}
	}
	return out, nil
}
