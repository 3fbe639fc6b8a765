package emitter

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	emits    *prometheus.CounterVec
	calls    *prometheus.CounterVec
	failures *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	return &metrics{
		emits: registerCounterVec(reg, prometheus.CounterOpts{
			Name: "emitter_emits_total",
			Help: "Total number of emitted events",
		}),
		calls: registerCounterVec(reg, prometheus.CounterOpts{
			Name: "emitter_listener_calls_total",
			Help: "Total number of listener invocations, catch-all ones included",
		}),
		failures: registerCounterVec(reg, prometheus.CounterOpts{
			Name: "emitter_listener_failures_total",
			Help: "Total number of listener invocations that returned an error",
		}),
	}
}

func registerCounterVec(reg prometheus.Registerer, opts prometheus.CounterOpts) *prometheus.CounterVec {
	vec := prometheus.NewCounterVec(opts, []string{"event"})
	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		panic(err)
	}
	return vec
}

// The methods below accept a nil receiver so the registry can call them
// unconditionally.

func (m *metrics) emitted(event string) {
	if m == nil {
		return
	}
	m.emits.WithLabelValues(event).Inc()
}

func (m *metrics) called(event string) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(event).Inc()
}

func (m *metrics) failed(event string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(event).Inc()
}
