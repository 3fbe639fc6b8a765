package emitter

import (
	"context"
	"sync"
)

type receiverStub struct {
	name string
}

// recorder collects invocations in order.
type recorder struct {
	mu    sync.Mutex
	calls []call
}

type call struct {
	label    string
	receiver any
	args     []any
}

func (r *recorder) listener(label string) *Listener {
	return NewListener(func(_ context.Context, receiver any, args ...any) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, call{label: label, receiver: receiver, args: args})
		return nil
	})
}

func (r *recorder) labels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c.label)
	}
	return out
}

func (r *recorder) snapshot() []call {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]call, len(r.calls))
	copy(out, r.calls)
	return out
}

// fixture mirrors a registry with four listeners and four receivers spread
// over four names:
//
//	a: A/1, B/2
//	b: B/2
//	c: C/3
//	d: D/4
type fixture struct {
	r          *Registry
	a, b, c, d *Listener
	r1, r2     *receiverStub
	r3, r4     *receiverStub
	names      map[*Listener]string
}

func newFixture() *fixture {
	rec := &recorder{}
	f := &fixture{
		a:  rec.listener("A"),
		b:  rec.listener("B"),
		c:  rec.listener("C"),
		d:  rec.listener("D"),
		r1: &receiverStub{name: "1"},
		r2: &receiverStub{name: "2"},
		r3: &receiverStub{name: "3"},
		r4: &receiverStub{name: "4"},
	}
	f.names = map[*Listener]string{f.a: "A", f.b: "B", f.c: "C", f.d: "D"}

	f.r = New().
		On("a", f.a, f.r1).
		On("a", f.b, f.r2).
		On("b", f.b, f.r2).
		On("c", f.c, f.r3).
		On("d", f.d, f.r4)

	return f
}

func (f *fixture) state() map[string][]string {
	return describe(f.r, f.names)
}

// describe renders the registry as name -> ["listener/receiver", ...].
// Listeners missing from names render as "?".
func describe(r *Registry, names map[*Listener]string) map[string][]string {
	out := make(map[string][]string)
	for _, name := range r.Names() {
		records, _ := r.Listeners(name)
		labels := make([]string, 0, len(records))
		for _, rec := range records {
			l, ok := names[rec.Listener]
			if !ok {
				l = "?"
			}
			recv := "-"
			if stub, ok := rec.Receiver.(*receiverStub); ok {
				recv = stub.name
			}
			labels = append(labels, l+"/"+recv)
		}
		out[name] = labels
	}
	return out
}

func initialState() map[string][]string {
	return map[string][]string{
		"a": {"A/1", "B/2"},
		"b": {"B/2"},
		"c": {"C/3"},
		"d": {"D/4"},
	}
}
