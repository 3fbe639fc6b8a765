package wsclient

import (
	"context"

	"github.com/sonirico/emitter"
)

type PassiveKeepAliveHandler func(ch ConnectionHandler, m Message)

var answerPing = emitter.NewListener(func(_ context.Context, receiver any, args ...any) error {
	h := receiver.(*passiveKeepAliveConnectionHandler)
	if len(args) == 0 {
		return nil
	}
	if m, ok := args[0].(Message); ok {
		h.handler(h.ConnectionHandler, m)
	}
	return nil
})

// passiveKeepAliveConnectionHandler answers the server's pings. It listens to
// EventPing for as long as it is connected and hands every ping to handler.
type passiveKeepAliveConnectionHandler struct {
	ConnectionHandler
	events  *emitter.Registry
	handler PassiveKeepAliveHandler
}

func (h *passiveKeepAliveConnectionHandler) Connect(ctx context.Context) error {
	h.events.On(EventPing, answerPing, h)

	if err := h.ConnectionHandler.Connect(ctx); err != nil {
		h.events.Off("", nil, h)
		return err
	}

	return nil
}

func (h *passiveKeepAliveConnectionHandler) Close() {
	h.events.Off("", nil, h)
	h.ConnectionHandler.Close()
}

func newPassiveKeepAliveConnectionHandler(
	c ConnectionHandler,
	events *emitter.Registry,
	h PassiveKeepAliveHandler,
) *passiveKeepAliveConnectionHandler {
	return &passiveKeepAliveConnectionHandler{ConnectionHandler: c, events: events, handler: h}
}

func NewPassiveKeepAliveConnectionHandlerFactory(
	factory ConnectionHandlerFactory,
	handler PassiveKeepAliveHandler,
) ConnectionHandlerFactory {
	return func(client Client, events *emitter.Registry) ConnectionHandler {
		return newPassiveKeepAliveConnectionHandler(factory(client, events), events, handler)
	}
}

// KeepAliveHandlerReplyPingWithPong answers a ping with a pong carrying the same payload.
func KeepAliveHandlerReplyPingWithPong(ch ConnectionHandler, m Message) {
	if m.Type().IsPing() {
		ch.Send(NewPongMessage(m.Data()))
	}
}
