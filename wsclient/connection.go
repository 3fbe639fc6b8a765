package wsclient

import (
	"context"

	"github.com/sonirico/emitter"
)

type (
	// Connection is a single network connection. Received frames are pushed to
	// the channel handed to its ConnectionFactory.
	Connection interface {
		Write(m Message) error
		Open(ctx context.Context) error
		Close()
		CloseErr() error
		CloseChan() CloseChan
	}

	ConnectionFactory func(ctx context.Context, recvChan chan<- Message) Connection

	// ConnectionHandler defines the interactions with a connection.
	ConnectionHandler interface {
		// Recv is called when a message from the server is received.
		// It handles the inbound data flow from the server.
		Recv(m Message)

		// Send is called when a message needs to be sent to the server.
		// It handles the outbound data flow towards the server.
		Send(m Message)

		// Connect establishes a connection to the server.
		// It returns once the connection is usable; the connection keeps running in the background.
		Connect(ctx context.Context) error

		// CloseChan returns a channel that will be closed when the connection is closed.
		CloseChan() CloseChan

		// CloseErr returns an error that explains why the connection was closed.
		// If the connection closed normally, CloseErr should return nil.
		CloseErr() error

		// Close closes the connection.
		Close()
	}

	// ConnectionHandlerFactory builds a handler bound to a client and to the
	// registry the handler emits on.
	ConnectionHandlerFactory func(Client, *emitter.Registry) ConnectionHandler
)
