package emitter

import (
	"github.com/pkg/errors"
)

var (
	ErrInvalidConfig   = errors.New("invalid listener configuration")
	ErrUnknownListener = errors.New("unknown listener")
	ErrUnknownReceiver = errors.New("unknown receiver")
)

// wrapListenerErr annotates a listener failure with the event it was
// dispatched for. errors.Cause and errors.Is still reach err.
func wrapListenerErr(err error, event string, l *Listener) error {
	return errors.WithMessagef(err, "listener %s failed on %q", l.ID(), event)
}
