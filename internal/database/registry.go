package database

import (
	"context"
	"fmt"
	"sync"
)

// Registry manages the registration and retrieval of engine adapters.
type Registry struct {
	adapters map[Engine]Adapter
	mu       sync.RWMutex
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[Engine]Adapter),
	}
}

// Register registers an adapter, replacing any previous adapter for the
// same engine.
func (r *Registry) Register(adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.adapters[adapter.Type()] = adapter
}

// Get retrieves a registered adapter by engine.
// Returns ErrAdapterNotFound if the adapter is not registered.
func (r *Registry) Get(engine Engine) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, exists := r.adapters[engine]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, engine)
	}

	return adapter, nil
}

// IsRegistered checks whether an adapter exists for the given engine.
func (r *Registry) IsRegistered(engine Engine) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.adapters[engine]
	return exists
}

// ListRegistered returns all registered engines.
func (r *Registry) ListRegistered() []Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()

	engines := make([]Engine, 0, len(r.adapters))
	for engine := range r.adapters {
		engines = append(engines, engine)
	}

	return engines
}

// Open establishes a session through the registered adapter, filling in the
// adapter's default port when the config leaves it unset.
func (r *Registry) Open(ctx context.Context, config Config) (Session, error) {
	adapter, err := r.Get(config.Engine)
	if err != nil {
		return nil, err
	}

	config.Port = config.EffectivePort(adapter.DefaultPort())

	session, err := adapter.Connect(ctx, config)
	if err != nil {
		return nil, err
	}

	return session, nil
}

// globalRegistry is the default process-wide adapter registry. Adapter
// packages register themselves here from init.
var globalRegistry = NewRegistry()

// Register registers an adapter in the global registry.
func Register(adapter Adapter) {
	globalRegistry.Register(adapter)
}

// Get retrieves an adapter from the global registry.
func Get(engine Engine) (Adapter, error) {
	return globalRegistry.Get(engine)
}

// Open establishes a session through the global registry.
func Open(ctx context.Context, config Config) (Session, error) {
	return globalRegistry.Open(ctx, config)
}

// GlobalRegistry returns the global adapter registry.
func GlobalRegistry() *Registry {
	return globalRegistry
}
