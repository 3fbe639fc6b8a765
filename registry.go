package emitter

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
)

// CatchAll is the reserved event name whose listeners run on every Emit. They
// receive the emitted event name as their first argument.
const CatchAll = "*"

// Registry maps event names to ordered listener records. Listeners run
// sequentially: Emit only moves to the next listener once the previous one has
// returned, and the first error stops the dispatch.
//
// A Registry is safe for concurrent use. Listeners are invoked without any lock
// held, so they may freely call On, Once, Off or Emit on the same registry.
type Registry struct {
	listeners map[string][]Record
	lock      sync.RWMutex
	logger    Logger
	metrics   *metrics
}

// New creates a Registry. Bindings passed through WithOn, WithOnce or WithConfig
// are applied once the registry is ready, every On binding before any Once one.
func New(opts ...Option) *Registry {
	cfg := &options{logger: NoopLogger()}
	for _, opt := range opts {
		opt(cfg)
	}

	r := &Registry{
		listeners: make(map[string][]Record),
		logger:    cfg.logger.WithField("component", "emitter"),
		metrics:   cfg.metrics,
	}

	for _, b := range cfg.on {
		r.On(b.Name, b.Listener, b.Receiver)
	}
	for _, b := range cfg.once {
		r.Once(b.Name, b.Listener, b.Receiver)
	}

	return r
}

// On appends a listener for name. Registering the same listener and receiver
// twice yields two independent records.
func (r *Registry) On(name string, listener *Listener, receiver any) *Registry {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.listeners[name] = append(r.listeners[name], Record{Listener: listener, Receiver: receiver})

	return r
}

// AddListener is an alias for On.
func (r *Registry) AddListener(name string, listener *Listener, receiver any) *Registry {
	return r.On(name, listener, receiver)
}

// AddEventListener is an alias for On.
func (r *Registry) AddEventListener(name string, listener *Listener, receiver any) *Registry {
	return r.On(name, listener, receiver)
}

// Once registers a listener that removes itself before its first invocation.
// The registry stores a wrapper, so the original listener cannot be used to
// remove this subscription; Off by name, by receiver, or a full reset can.
func (r *Registry) Once(name string, listener *Listener, receiver any) *Registry {
	var (
		fired   atomic.Bool
		wrapper *Listener
	)

	wrapper = NewListener(func(ctx context.Context, recv any, args ...any) error {
		if !fired.CompareAndSwap(false, true) {
			return nil
		}
		r.Off(name, wrapper, nil)
		return listener.Call(ctx, recv, args...)
	})

	return r.On(name, wrapper, receiver)
}

// Emit invokes every listener registered for name, in registration order, and
// then every CatchAll listener with name prepended to args. Each pass works on
// a copy of the sequence taken when the pass starts.
func (r *Registry) Emit(ctx context.Context, name string, args ...any) error {
	r.metrics.emitted(name)

	if err := r.dispatch(ctx, name, r.snapshot(name), args); err != nil {
		return err
	}

	catchAll := r.snapshot(CatchAll)
	if len(catchAll) == 0 {
		return nil
	}

	withName := make([]any, 0, len(args)+1)
	withName = append(withName, name)
	withName = append(withName, args...)

	return r.dispatch(ctx, name, catchAll, withName)
}

// Trigger is an alias for Emit.
func (r *Registry) Trigger(ctx context.Context, name string, args ...any) error {
	return r.Emit(ctx, name, args...)
}

func (r *Registry) dispatch(ctx context.Context, name string, records []Record, args []any) error {
	for _, rec := range records {
		r.metrics.called(name)

		if err := rec.Listener.Call(ctx, rec.Receiver, args...); err != nil {
			r.metrics.failed(name)
			r.logger.Debugf("listener %s failed on %q: %s", rec.Listener.ID(), name, err)
			return wrapListenerErr(err, name, rec.Listener)
		}
	}

	return nil
}

func (r *Registry) snapshot(name string) []Record {
	r.lock.RLock()
	defer r.lock.RUnlock()

	records := r.listeners[name]
	if len(records) == 0 {
		return nil
	}

	out := make([]Record, len(records))
	copy(out, records)
	return out
}

// Listeners returns a copy of the records for name. The boolean reports
// whether the name is known at all, which tells an emptied sequence apart from
// one that was never created or was removed with Off(name, nil, nil).
func (r *Registry) Listeners(name string) ([]Record, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	records, ok := r.listeners[name]
	if !ok {
		return nil, false
	}

	out := make([]Record, len(records))
	copy(out, records)
	return out, true
}

// Has reports whether name has a sequence, even an empty one.
func (r *Registry) Has(name string) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()

	_, ok := r.listeners[name]
	return ok
}

// ListenerCount returns the number of records registered for name.
func (r *Registry) ListenerCount(name string) int {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return len(r.listeners[name])
}

// Names returns the known event names, sorted.
func (r *Registry) Names() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()

	names := make([]string, 0, len(r.listeners))
	for name := range r.listeners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of known event names.
func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return len(r.listeners)
}
