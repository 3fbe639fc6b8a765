package wsclient

import (
	"context"
	"sync"

	"github.com/sonirico/emitter"
)

// basicConnectionHandler sits at the bottom of a handler chain. It owns one
// Connection, turns every received frame into an event and emits EventClose
// once the connection is gone.
type basicConnectionHandler struct {
	events      *emitter.Registry
	logger      emitter.Logger
	connFactory ConnectionFactory
	conn        Connection
	recv        chan Message
	closeC      CloseChan
	closeOnce   sync.Once
}

func (h *basicConnectionHandler) Connect(ctx context.Context) error {
	h.conn = h.connFactory(ctx, h.recv)

	if err := h.conn.Open(ctx); err != nil {
		h.conn.Close()
		return err
	}

	go h.run(ctx)

	return nil
}

func (h *basicConnectionHandler) run(ctx context.Context) {
	defer h.Close()

	connClosed := h.conn.CloseChan()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.closeC:
			return
		case <-connClosed:
			return
		case m := <-h.recv:
			h.dispatch(ctx, m)
		}
	}
}

// Recv emits m as if it had been received from the connection.
func (h *basicConnectionHandler) Recv(m Message) {
	h.dispatch(context.Background(), m)
}

func (h *basicConnectionHandler) dispatch(ctx context.Context, m Message) {
	name, ok := m.Type().eventName()
	if !ok {
		h.logger.Debugf("not emitting %s", m)
		return
	}

	if err := h.events.Emit(ctx, name, m); err != nil {
		h.logger.Errorf("%s listener failed: %s", name, err)
	}
}

func (h *basicConnectionHandler) Send(m Message) {
	if err := h.conn.Write(m); err != nil {
		h.logger.Warnf("cannot send %s: %s", m, err)
	}
}

// Close closes the connection and emits EventClose with the close reason.
// Only the first call has any effect.
func (h *basicConnectionHandler) Close() {
	closed := false

	h.closeOnce.Do(func() {
		close(h.closeC)
		if h.conn != nil {
			h.conn.Close()
		}
		closed = true
	})

	if !closed {
		return
	}

	if err := h.events.Emit(context.Background(), EventClose, h.CloseErr()); err != nil {
		h.logger.Errorf("close listener failed: %s", err)
	}
}

func (h *basicConnectionHandler) CloseChan() CloseChan {
	return h.closeC
}

func (h *basicConnectionHandler) CloseErr() error {
	if h.conn == nil {
		return nil
	}
	return h.conn.CloseErr()
}

func newBasicConnectionHandler(
	logger emitter.Logger,
	events *emitter.Registry,
	connFactory ConnectionFactory,
) *basicConnectionHandler {
	return &basicConnectionHandler{
		logger:      logger.WithField("type", "basicConnectionHandler"),
		events:      events,
		connFactory: connFactory,
		recv:        make(chan Message, 32),
		closeC:      make(CloseChan),
	}
}

// NewBasicConnectionHandlerFactory returns a factory of handlers that open one
// connection built by connFactory.
func NewBasicConnectionHandlerFactory(
	logger emitter.Logger,
	connFactory ConnectionFactory,
) ConnectionHandlerFactory {
	return func(_ Client, events *emitter.Registry) ConnectionHandler {
		return newBasicConnectionHandler(logger, events, connFactory)
	}
}
