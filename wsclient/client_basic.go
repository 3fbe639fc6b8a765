package wsclient

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sonirico/emitter"
)

// basicClient owns a single connection handler chain and a listener registry.
// Handlers emit what they receive on the registry; the client itself only emits
// EventConnect once the chain is up.
type basicClient struct {
	// connectionHandlerFactory is a factory for creating new connection handlers
	connectionHandlerFactory ConnectionHandlerFactory
	// connectionHandler is the active connection handler
	connectionHandler ConnectionHandler

	events *emitter.Registry
}

// Open builds the handler chain and connects it. If an EventConnect listener
// fails, the connection is closed again and the listener error is returned.
func (b *basicClient) Open(ctx context.Context) error {
	b.connectionHandler = b.connectionHandlerFactory(b, b.events)

	if err := b.connectionHandler.Connect(ctx); err != nil {
		return err
	}

	if err := b.events.Emit(ctx, EventConnect); err != nil {
		b.connectionHandler.Close()
		return errors.Wrap(err, "connect listener")
	}

	return nil
}

// Send drops m when the client has not been opened.
func (b *basicClient) Send(m Message) {
	if b.connectionHandler != nil {
		b.connectionHandler.Send(m)
	}
}

func (b *basicClient) Close() {
	if b.connectionHandler != nil {
		b.connectionHandler.Close()
	}
}

// CloseChan returns nil until the client is opened.
func (b *basicClient) CloseChan() CloseChan {
	if b.connectionHandler == nil {
		return nil
	}
	return b.connectionHandler.CloseChan()
}

func (b *basicClient) Events() *emitter.Registry {
	return b.events
}

func newBasicClient(
	connHandlerFactory ConnectionHandlerFactory,
	events *emitter.Registry,
) *basicClient {
	return &basicClient{
		connectionHandlerFactory: connHandlerFactory,
		events:                   events,
	}
}

// NewBasicClientFactory returns a factory of clients backed by connHandlerFactory.
// Every client gets its own registry built from opts, so bindings such as
// emitter.WithOn(emitter.Bind(EventMessage, l)) are installed on each of them.
func NewBasicClientFactory(
	connHandlerFactory ConnectionHandlerFactory,
	opts ...emitter.Option,
) ClientFactory {
	return func() Client {
		return newBasicClient(connHandlerFactory, emitter.New(opts...))
	}
}
