package wsclient

import (
	"context"

	"github.com/sonirico/emitter"
)

// Events emitted on a client's registry. Lifecycle events carry no arguments
// except EventClose, which carries the close reason (an error, possibly nil).
// Traffic events carry the received Message.
const (
	EventConnect   = "connect"
	EventClose     = "close"
	EventReconnect = "reconnect"
	EventMessage   = "message"
	EventPing      = "ping"
	EventPong      = "pong"
)

type (
	// Client is the interface that defines the behavior of a client. This includes opening and closing connections,
	// sending messages, and exposing the registry its events are emitted on.
	Client interface {
		// Open establishes a connection with the server
		Open(ctx context.Context) error
		// Send sends a message to the server
		Send(m Message)
		// Close closes the connection with the server
		Close()
		// CloseChan returns a channel that signals when the connection is closed
		CloseChan() CloseChan
		// Events returns the registry connection and traffic events are emitted on
		Events() *emitter.Registry
	}

	CloseChan chan struct{}

	ClientFactory func() Client
)
