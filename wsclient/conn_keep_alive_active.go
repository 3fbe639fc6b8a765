package wsclient

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sonirico/emitter"
)

type KeepAliveMessageFactory func() Message

// markPong is shared by every active keep-alive handler; the handler itself is
// bound as the receiver, which is also how it unregisters on Close.
var markPong = emitter.NewListener(func(_ context.Context, receiver any, _ ...any) error {
	receiver.(*activeKeepAliveConnectionHandler).lastPong.Store(time.Now().UnixNano())
	return nil
})

// activeKeepAliveConnectionHandler is a type of ConnectionHandler that automatically sends
// periodic ping messages to keep the connection alive. When pongTimeout is set, a connection
// that has not answered with a pong for pingInterval+pongTimeout is closed.
type activeKeepAliveConnectionHandler struct {
	ConnectionHandler
	events                  *emitter.Registry
	pingInterval            time.Duration
	pongTimeout             time.Duration
	keepAliveMessageFactory KeepAliveMessageFactory
	logger                  emitter.Logger

	lastPong atomic.Int64

	connectOnce sync.Once
	closeOnce   sync.Once
	closeC      chan struct{}
}

// Connect sets up the connection and starts the routine for sending periodic keep-alive messages.
// It only executes once, subsequent calls have no effect.
func (h *activeKeepAliveConnectionHandler) Connect(ctx context.Context) (err error) {
	h.connectOnce.Do(func() {
		h.lastPong.Store(time.Now().UnixNano())
		h.events.On(EventPong, markPong, h)

		if err = h.ConnectionHandler.Connect(ctx); err != nil {
			h.events.Off("", markPong, h)
			return
		}

		go h.run(ctx)
	})

	return
}

// Close terminates the connection and stops the keep-alive routine.
// It only executes once, subsequent calls have no effect.
func (h *activeKeepAliveConnectionHandler) Close() {
	h.closeOnce.Do(func() {
		h.events.Off("", markPong, h)
		close(h.closeC)
		h.ConnectionHandler.Close()
	})
}

func (h *activeKeepAliveConnectionHandler) run(ctx context.Context) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	innerClosed := h.ConnectionHandler.CloseChan()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.closeC:
			return
		case <-innerClosed:
			return
		case <-ticker.C:
			if h.pongOverdue() {
				h.logger.Warnf("no pong received for %s, closing", h.sinceLastPong())
				h.Close()
				return
			}
			h.ConnectionHandler.Send(h.keepAliveMessageFactory())
		}
	}
}

func (h *activeKeepAliveConnectionHandler) sinceLastPong() time.Duration {
	return time.Since(time.Unix(0, h.lastPong.Load()))
}

func (h *activeKeepAliveConnectionHandler) pongOverdue() bool {
	return h.pongTimeout > 0 && h.sinceLastPong() > h.pingInterval+h.pongTimeout
}

func newActiveKeepAliveConnectionHandler(
	logger emitter.Logger,
	ch ConnectionHandler,
	events *emitter.Registry,
	interval time.Duration,
	pongTimeout time.Duration,
	keepAliveMessageFactory KeepAliveMessageFactory,
) *activeKeepAliveConnectionHandler {
	return &activeKeepAliveConnectionHandler{
		ConnectionHandler:       ch,
		events:                  events,
		logger:                  logger,
		pingInterval:            interval,
		pongTimeout:             pongTimeout,
		keepAliveMessageFactory: keepAliveMessageFactory,
		closeC:                  make(chan struct{}),
	}
}

// NewActiveKeepAliveConnectionHandlerFactory returns a factory function for creating active keep-alive handlers
// around the handlers built by factory. A zero pongTimeout never closes the connection for missing pongs.
func NewActiveKeepAliveConnectionHandlerFactory(
	logger emitter.Logger,
	factory ConnectionHandlerFactory,
	interval time.Duration,
	pongTimeout time.Duration,
	keepAliveMessageFactory KeepAliveMessageFactory,
) ConnectionHandlerFactory {
	return func(client Client, events *emitter.Registry) ConnectionHandler {
		return newActiveKeepAliveConnectionHandler(
			logger.WithField("subtype", "activeKeepAliveConnectionHandler"),
			factory(client, events),
			events,
			interval,
			pongTimeout,
			keepAliveMessageFactory,
		)
	}
}

// NewKeepAliveMessageFactory returns a factory function for creating keep-alive messages.
func NewKeepAliveMessageFactory(
	mt MessageType,
	contentFactory func() []byte,
) KeepAliveMessageFactory {
	return func() Message {
		return NewMessage(mt, contentFactory())
	}
}
