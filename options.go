package emitter

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Option func(*options)

type options struct {
	logger  Logger
	metrics *metrics
	on      Bindings
	once    Bindings
}

// Binding is one entry of the constructor configuration: an event name, a
// listener and an optional receiver.
type Binding struct {
	Name     string
	Listener *Listener
	Receiver any
}

// Bindings keeps bindings in the order they must be applied.
type Bindings []Binding

// Config groups the bindings applied at construction time. On bindings are
// applied before Once bindings.
type Config struct {
	On   Bindings
	Once Bindings
}

// Bind binds a listener with no receiver.
func Bind(name string, listener *Listener) Binding {
	return Binding{Name: name, Listener: listener}
}

// BindTo binds a listener together with a receiver.
func BindTo(name string, listener *Listener, receiver any) Binding {
	return Binding{Name: name, Listener: listener, Receiver: receiver}
}

// WithOn adds bindings registered with On when the registry is built.
func WithOn(bindings ...Binding) Option {
	return func(o *options) {
		o.on = append(o.on, bindings...)
	}
}

// WithOnce adds bindings registered with Once, after every On binding.
func WithOnce(bindings ...Binding) Option {
	return func(o *options) {
		o.once = append(o.once, bindings...)
	}
}

// WithConfig adds the bindings of cfg, typically loaded with LoadConfig.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.on = append(o.on, cfg.On...)
		o.once = append(o.once, cfg.Once...)
	}
}

// WithLogger sets the registry logger. A nil logger discards everything.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetrics registers the registry counters on reg. Counters that are
// already registered there are reused, so several registries may share reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.metrics = newMetrics(reg)
	}
}
