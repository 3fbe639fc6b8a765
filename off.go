package emitter

import (
	"reflect"
)

// selector describes which arguments of Off were given.
type selector uint8

const (
	hasName selector = 1 << iota
	hasListener
	hasReceiver
)

type scope uint8

const (
	scopeReset scope = iota
	scopeDrop
	scopeName
	scopeAll
)

type matcher func(rec Record, listener *Listener, receiver any) bool

func matchListener(rec Record, listener *Listener, _ any) bool {
	return rec.Listener == listener
}

func matchReceiver(rec Record, _ *Listener, receiver any) bool {
	return sameReceiver(rec.Receiver, receiver)
}

func matchBoth(rec Record, listener *Listener, receiver any) bool {
	return rec.Listener == listener && sameReceiver(rec.Receiver, receiver)
}

type resolution struct {
	scope scope
	match matcher
	label string
}

// resolutions covers all eight combinations of present/absent arguments.
var resolutions = map[selector]resolution{
	0:                                   {scope: scopeReset, label: "all"},
	hasName:                             {scope: scopeDrop, label: "name"},
	hasName | hasListener:               {scope: scopeName, match: matchListener, label: "name+listener"},
	hasName | hasListener | hasReceiver: {scope: scopeName, match: matchBoth, label: "name+listener+receiver"},
	hasListener | hasReceiver:           {scope: scopeAll, match: matchBoth, label: "listener+receiver"},
	hasName | hasReceiver:               {scope: scopeName, match: matchReceiver, label: "name+receiver"},
	hasReceiver:                         {scope: scopeAll, match: matchReceiver, label: "receiver"},
	hasListener:                         {scope: scopeAll, match: matchListener, label: "listener"},
}

func selectorOf(name string, listener *Listener, receiver any) selector {
	var s selector
	if name != "" {
		s |= hasName
	}
	if listener != nil {
		s |= hasListener
	}
	if !absentReceiver(receiver) {
		s |= hasReceiver
	}
	return s
}

// absentReceiver reports whether receiver stands for "any receiver": nil, or a
// typed nil pointer such as (*T)(nil).
func absentReceiver(receiver any) bool {
	if receiver == nil {
		return true
	}
	v := reflect.ValueOf(receiver)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Off removes listeners. Each argument is optional: an empty name, a nil
// listener or a nil receiver means "any". With no arguments the registry is
// reset; with only a name the whole sequence for that name is deleted.
// Otherwise every record matching the given listener and/or receiver is
// dropped, either from name's sequence or from all of them. Survivors keep
// their order and filtered sequences stay in place, even when left empty.
//
// Listeners match by pointer. Maps, chans, pointers and slices match by
// identity, other receivers by ==. Off never fails and calling it twice with
// the same arguments has no further effect.
func (r *Registry) Off(name string, listener *Listener, receiver any) *Registry {
	res := resolutions[selectorOf(name, listener, receiver)]

	r.lock.Lock()
	defer r.lock.Unlock()

	switch res.scope {
	case scopeReset:
		r.listeners = make(map[string][]Record)
		r.logger.Debugln("removed every listener")
	case scopeDrop:
		delete(r.listeners, name)
		r.logger.Debugf("removed listeners for %q", name)
	case scopeName:
		records, ok := r.listeners[name]
		if !ok {
			return r
		}
		kept, removed := filterRecords(records, res.match, listener, receiver)
		r.listeners[name] = kept
		r.logRemoved(res.label, removed)
	case scopeAll:
		total := 0
		for key, records := range r.listeners {
			kept, removed := filterRecords(records, res.match, listener, receiver)
			r.listeners[key] = kept
			total += removed
		}
		r.logRemoved(res.label, total)
	}

	return r
}

// RemoveListener is an alias for Off.
func (r *Registry) RemoveListener(name string, listener *Listener, receiver any) *Registry {
	return r.Off(name, listener, receiver)
}

// RemoveEventListener is an alias for Off.
func (r *Registry) RemoveEventListener(name string, listener *Listener, receiver any) *Registry {
	return r.Off(name, listener, receiver)
}

func (r *Registry) logRemoved(label string, removed int) {
	if removed > 0 {
		r.logger.Debugf("removed %d listener(s) by %s", removed, label)
	}
}

// filterRecords returns a new slice with the records that do not match and the
// number of records dropped.
func filterRecords(records []Record, match matcher, listener *Listener, receiver any) ([]Record, int) {
	kept := make([]Record, 0, len(records))
	for _, rec := range records {
		if !match(rec, listener, receiver) {
			kept = append(kept, rec)
		}
	}
	return kept, len(records) - len(kept)
}

// sameReceiver reports whether two receivers are the same value. Maps, chans,
// pointers and slices compare by identity (slices by backing array and length).
// Other values compare with == and never match when that comparison is not
// possible, which includes funcs and comparable types holding uncomparable
// values in interface fields.
func sameReceiver(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Map, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	case reflect.Func:
		return false
	}

	if !va.Type().Comparable() {
		return false
	}

	return safeEqual(a, b)
}

// safeEqual is a == b, false when the comparison panics.
func safeEqual(a, b any) (equal bool) {
	defer func() {
		if recover() != nil {
			equal = false
		}
	}()
	return a == b
}
