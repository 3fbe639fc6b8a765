package wsclient

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sonirico/emitter"
)

// retryAsap is the pause before redialing a server that could not be reached at all.
const retryAsap = time.Second

type backoffCalculator func(attempts int) (time time.Duration)

// backoffConnectionHandler keeps a connection alive by rebuilding the inner
// handler chain whenever it closes. EventReconnect is emitted once a
// replacement is connected.
type backoffConnectionHandler struct {
	client                Client
	events                *emitter.Registry
	logger                emitter.Logger
	connHandlerFactory    ConnectionHandlerFactory
	calculator            backoffCalculator
	connDurationThreshold time.Duration

	mu          sync.Mutex
	inner       ConnectionHandler
	closeReason error

	closeC    CloseChan
	closeOnce sync.Once
	send      chan Message
	recv      chan Message
}

func (b *backoffConnectionHandler) newConnHandler(ctx context.Context) (ConnectionHandler, error) {
	attempts := 0

	for {
		attempts++

		ch := b.connHandlerFactory(b.client, b.events)

		err := ch.Connect(ctx)
		if err == nil {
			return ch, nil
		}

		if isUnrecoverable(err) {
			b.logger.Errorf("giving up after %d attempt(s): %s", attempts, err)
			return nil, err
		}

		ttw := retryAsap
		if errors.Is(err, ErrCannotConnect) {
			b.logger.Infof("cannot connect, reconnecting asap due to: %s", err)
		} else {
			ttw = b.calculator(attempts)
			b.logger.Infof("cannot connect after %s, waiting %s", err, ttw)
		}

		if err := b.wait(ctx, ttw); err != nil {
			return nil, err
		}
	}
}

// wait sleeps for d unless the handler is closed or ctx is done first.
func (b *backoffConnectionHandler) wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.closeC:
		return ErrTerminated
	case <-t.C:
		return nil
	}
}

func (b *backoffConnectionHandler) current() ConnectionHandler {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inner
}

func (b *backoffConnectionHandler) run(ctx context.Context) {
	var (
		inner          = b.current()
		innerCloseChan = inner.CloseChan()
		attempts       = 0
		then           = time.Now().UTC()
	)

	defer b.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.closeC:
			return
		case msg := <-b.recv:
			inner.Recv(msg)
		case msg := <-b.send:
			// TODO: buffer outgoing messages while reconnecting instead of handing them to a closed handler.
			inner.Send(msg)
		case <-innerCloseChan:
			select {
			case <-b.closeC:
				return
			default:
			}

			inner.Close()
			reason := inner.CloseErr()
			b.setCloseReason(reason)

			if errors.Is(reason, ErrConnectionClosed) || errors.Is(reason, ErrTerminated) {
				// A connection that lived longer than connDurationThreshold is
				// considered healthy, so the backoff starts over.
				if time.Since(then) > b.connDurationThreshold {
					attempts = 0
				} else {
					attempts++
				}
			}

			ttw := b.calculator(attempts)
			b.logger.Infof("retrying to connect after %s due to %v", ttw, reason)
			if err := b.wait(ctx, ttw); err != nil {
				return
			}

			next, err := b.newConnHandler(ctx)
			if err != nil {
				b.setCloseReason(err)
				return
			}

			b.mu.Lock()
			b.inner = next
			b.mu.Unlock()

			inner = next
			innerCloseChan = next.CloseChan()
			then = time.Now().UTC()

			if err := b.events.Emit(ctx, EventReconnect); err != nil {
				b.logger.Errorf("reconnect listener failed: %s", err)
			}
		}
	}
}

// Connect opens the first connection synchronously and keeps it alive in the
// background. Only unrecoverable errors and ctx cancellation make it fail.
func (b *backoffConnectionHandler) Connect(ctx context.Context) error {
	inner, err := b.newConnHandler(ctx)
	if err != nil {
		b.setCloseReason(err)
		return err
	}

	b.mu.Lock()
	b.inner = inner
	b.mu.Unlock()

	go b.run(ctx)

	return nil
}

func (b *backoffConnectionHandler) Recv(m Message) {
	select {
	case b.recv <- m:
	case <-b.closeC:
	}
}

func (b *backoffConnectionHandler) Send(m Message) {
	select {
	case b.send <- m:
	case <-b.closeC:
		b.logger.Warnf("dropping %s, handler is closed", m)
	}
}

func (b *backoffConnectionHandler) Close() {
	b.closeOnce.Do(func() {
		close(b.closeC)

		if inner := b.current(); inner != nil {
			inner.Close()
		}
	})
}

func (b *backoffConnectionHandler) CloseChan() CloseChan {
	return b.closeC
}

func (b *backoffConnectionHandler) CloseErr() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeReason
}

func (b *backoffConnectionHandler) setCloseReason(err error) {
	b.mu.Lock()
	b.closeReason = err
	b.mu.Unlock()
}

func newBackoffConnectionHandler(
	logger emitter.Logger,
	client Client,
	events *emitter.Registry,
	connHandlerFactory ConnectionHandlerFactory,
	calculator backoffCalculator,
	connDurationThreshold time.Duration,
) *backoffConnectionHandler {
	return &backoffConnectionHandler{
		logger: logger.WithField(
			"type", "conn_handler_reconnect_exp_backoff",
		),
		client:                client,
		events:                events,
		connHandlerFactory:    connHandlerFactory,
		calculator:            calculator,
		connDurationThreshold: connDurationThreshold,
		send:                  make(chan Message, 32),
		recv:                  make(chan Message, 32),
		closeC:                make(CloseChan),
	}
}

func NewBackoffConnectionHandlerFactory(
	logger emitter.Logger,
	connHandlerFactory ConnectionHandlerFactory,
	calculator backoffCalculator,
	connDurationThreshold time.Duration,
) ConnectionHandlerFactory {
	return func(client Client, events *emitter.Registry) ConnectionHandler {
		return newBackoffConnectionHandler(
			logger,
			client,
			events,
			connHandlerFactory,
			calculator,
			connDurationThreshold,
		)
	}
}

func ExponentialBackoff(attempts int) float64 {
	return (math.Pow(2.0, float64(attempts)) - 1) / 2
}

func ExponentialBackoffSeconds(attempts int) time.Duration {
	return time.Duration(ExponentialBackoff(attempts)) * time.Second
}
