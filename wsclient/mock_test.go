package wsclient

import (
	"context"
	"sync"

	"github.com/sonirico/emitter"
	"github.com/stretchr/testify/mock"
)

type mockClient struct {
	mock.Mock

	tapOpen func()
}

func (m *mockClient) Open(ctx context.Context) error {
	if m.tapOpen != nil {
		m.tapOpen()
	}
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockClient) Send(msg Message) {
	m.Called(msg)
}

func (m *mockClient) Close() {
	m.Called()
}

func (m *mockClient) CloseChan() CloseChan {
	args := m.Called()
	return args.Get(0).(CloseChan)
}

func (m *mockClient) Events() *emitter.Registry {
	args := m.Called()
	return args.Get(0).(*emitter.Registry)
}

// fakeConnection is an in-memory Connection. Frames handed to deliver reach
// whoever reads the receive channel given by the factory.
type fakeConnection struct {
	openErr  error
	closeErr error

	mu      sync.Mutex
	recv    chan<- Message
	written []Message

	closeC    CloseChan
	closeOnce sync.Once
}

func newFakeConnection() *fakeConnection {
	return &fakeConnection{closeC: make(CloseChan)}
}

// factory returns a ConnectionFactory that always hands out c.
func (c *fakeConnection) factory() ConnectionFactory {
	return func(_ context.Context, recv chan<- Message) Connection {
		c.mu.Lock()
		c.recv = recv
		c.mu.Unlock()
		return c
	}
}

func (c *fakeConnection) deliver(m Message) {
	c.mu.Lock()
	recv := c.recv
	c.mu.Unlock()
	recv <- m
}

func (c *fakeConnection) Open(context.Context) error { return c.openErr }

func (c *fakeConnection) Write(m Message) error {
	select {
	case <-c.closeC:
		return ErrConnectionClosed
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, m)
	return nil
}

func (c *fakeConnection) Written() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.written...)
}

func (c *fakeConnection) Close() {
	c.closeOnce.Do(func() { close(c.closeC) })
}

func (c *fakeConnection) closed() bool {
	select {
	case <-c.closeC:
		return true
	default:
		return false
	}
}

func (c *fakeConnection) CloseErr() error      { return c.closeErr }
func (c *fakeConnection) CloseChan() CloseChan { return c.closeC }

// fakeHandler is a ConnectionHandler whose Connect outcome is fixed up front.
type fakeHandler struct {
	connectErr error
	closeErr   error

	mu   sync.Mutex
	sent []Message

	closeC    CloseChan
	closeOnce sync.Once
}

func newFakeHandler(connectErr error) *fakeHandler {
	return &fakeHandler{connectErr: connectErr, closeC: make(CloseChan)}
}

func (h *fakeHandler) Connect(context.Context) error { return h.connectErr }
func (h *fakeHandler) Recv(Message)                  {}

func (h *fakeHandler) Send(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, m)
}

func (h *fakeHandler) Sent() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Message(nil), h.sent...)
}

// drop simulates the connection dying with reason.
func (h *fakeHandler) drop(reason error) {
	h.mu.Lock()
	h.closeErr = reason
	h.mu.Unlock()
	h.Close()
}

func (h *fakeHandler) Close() {
	h.closeOnce.Do(func() { close(h.closeC) })
}

func (h *fakeHandler) CloseChan() CloseChan { return h.closeC }

func (h *fakeHandler) CloseErr() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closeErr
}

// handlerSequence hands out the given handlers in order, repeating the last one.
type handlerSequence struct {
	mu       sync.Mutex
	handlers []*fakeHandler
	built    int
}

func (s *handlerSequence) factory() ConnectionHandlerFactory {
	return func(Client, *emitter.Registry) ConnectionHandler {
		s.mu.Lock()
		defer s.mu.Unlock()

		i := s.built
		if i >= len(s.handlers) {
			i = len(s.handlers) - 1
		}
		s.built++
		return s.handlers[i]
	}
}

func (s *handlerSequence) Built() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.built
}
