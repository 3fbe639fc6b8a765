package emitter

import (
	"context"

	"github.com/google/uuid"
)

// Func is the body of a listener. receiver is the value bound at registration
// time, args are whatever was passed to Emit (prefixed with the event name for
// catch-all listeners).
type Func func(ctx context.Context, receiver any, args ...any) error

// Listener is a handle around a Func. Go funcs are not comparable, so the
// registry matches listeners by handle pointer: keep the *Listener returned by
// NewListener around if you want to remove it later.
type Listener struct {
	id string
	fn Func
}

// NewListener wraps fn into a new handle with a fresh id. Two calls with the
// same fn produce two distinct listeners.
func NewListener(fn Func) *Listener {
	return &Listener{id: uuid.NewString(), fn: fn}
}

// ID returns the listener id. It only shows up in logs and errors.
func (l *Listener) ID() string {
	return l.id
}

// Call invokes the listener body.
func (l *Listener) Call(ctx context.Context, receiver any, args ...any) error {
	return l.fn(ctx, receiver, args...)
}

// Record is a single subscription: a listener and the receiver it was bound to.
type Record struct {
	Listener *Listener
	Receiver any
}
