package tsaotun

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// DryRunResult is the result stored by Dispatcher.Dry.
const DryRunResult = "dry-run complete"

// Registry maps command names to handlers. It is built once at startup.
type Registry map[string]Handler

// NewRegistry indexes handlers by Name. Later handlers replace earlier ones with the same name.
func NewRegistry(handlers ...Handler) Registry {
	r := make(Registry, len(handlers))
	for _, h := range handlers {
		r[h.Name()] = h
	}

	return r
}

// Lookup returns the handler registered under name.
func (r Registry) Lookup(name string) (Handler, error) {
	h, ok := r[name]
	if !ok {
		return nil, &DispatchError{Command: name, Err: ErrUnknownCommand}
	}

	return h, nil
}

// Names returns the registered command names in sorted order.
func (r Registry) Names() []string {
	return slices.Sorted(maps.Keys(r))
}

// Dispatcher resolves handlers by name and runs them against an Engine.
// The result of the most recent dispatch is retained for Result.
type Dispatcher struct {
	engine   *Engine
	registry Registry

	mu     sync.RWMutex
	result string
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(engine *Engine, registry Registry) *Dispatcher {
	return &Dispatcher{
		engine:   engine,
		registry: registry,
	}
}

// Dispatch runs the handler named by req. If the handler declares a
// prerequisite (or req asks for one and the handler supports it), the
// prerequisite step runs first and may add derived arguments.
//
// On success the handler's output is stored and returned. An unregistered
// name fails with a *DispatchError wrapping ErrUnknownCommand.
func (d *Dispatcher) Dispatch(ctx context.Context, req CommandRequest) (string, error) {
	h, err := d.registry.Lookup(req.Name)
	if err != nil {
		return "", err
	}

	args := req.Arguments
	if args == nil {
		args = Arguments{}
	}

	invocation := uuid.NewString()
	d.engine.logger.Debug("dispatching", "command", req.Name, "invocation", invocation)

	if p, ok := h.(Prerequisite); ok && (p.RequiresPrerequisite() || req.RequiresPrerequisite) {
		if err := p.ResolvePrerequisite(ctx, args, d.engine); err != nil {
			return "", &DispatchError{Command: req.Name, Err: fmt.Errorf("prerequisite: %w", err)}
		}
	}

	out, err := h.Run(ctx, args, d.engine)
	if err != nil {
		return "", &DispatchError{Command: req.Name, Err: err}
	}

	d.store(out)
	d.engine.logger.Debug("dispatched", "command", req.Name, "invocation", invocation)

	return out, nil
}

// Dry stores DryRunResult without resolving any handler.
func (d *Dispatcher) Dry() {
	d.store(DryRunResult)
}

// Result returns the output of the most recent Dispatch or Dry.
// Reading does not clear it.
func (d *Dispatcher) Result() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.result
}

func (d *Dispatcher) store(out string) {
	d.mu.Lock()
	d.result = out
	d.mu.Unlock()
}
