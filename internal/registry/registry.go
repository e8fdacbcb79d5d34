// Package registry is the Go-native replacement for dynamic class-name
// loading: agent.configuration.className is a string key resolved through
// a constructor map populated at process start, rather than a runtime class
// lookup.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/langstream-go/pod-runtime/internal/domain"
)

// Constructor builds an agent instance from its free-form configuration
// block. Constructors are registered once at process start; Build is called
// once per pod invocation.
type Constructor func(ctx context.Context, config map[string]any) (domain.Agent, error)

// Registry maps a className key to the Constructor that builds it.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register associates className with ctor. Registering the same className
// twice overwrites the previous constructor, matching the teacher's
// last-registration-wins style for route/handler registration.
func (r *Registry) Register(className string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[className] = ctor
}

// Build instantiates the agent registered under className, then calls its
// Init if it implements domain.Initializer.
func (r *Registry) Build(ctx context.Context, className string, config map[string]any) (domain.Agent, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[className]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrAgentNotRegistered, className)
	}

	agent, err := ctor(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("construct agent %q: %w", className, err)
	}
	if init, ok := agent.(domain.Initializer); ok {
		if err := init.Init(ctx, config); err != nil {
			return nil, fmt.Errorf("init agent %q: %w", className, err)
		}
	}
	return agent, nil
}
