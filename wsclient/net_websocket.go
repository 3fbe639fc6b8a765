package wsclient

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/pkg/errors"
	"github.com/sonirico/emitter"
)

const writeTimeout = time.Second

type (
	ErrAdapter func(*websocket.Conn, *http.Response, error) error

	ErrorAdapters struct {
		OnDial ErrAdapter
	}

	// WsConnection represents a WebSocket connection.
	// It implements the Connection interface.
	WsConnection struct {
		errAdapters    ErrorAdapters
		openParamsRepo OpenConnectionParamsRepo
		logger         emitter.Logger
		dialer         *websocket.Dialer
		conn           *websocket.Conn

		recv chan<- Message // frames received over the wire
		send chan Message   // frames to be written over the wire

		closeChan       CloseChan
		closeOnce       sync.Once
		closeReason     error
		closeReasonOnce sync.Once
	}
)

func NewWebsocketConnection(
	dialer *websocket.Dialer,
	openParamsRepo OpenConnectionParamsRepo,
	logger emitter.Logger,
	recvChan chan<- Message,
	errorAdapters ErrorAdapters,
) *WsConnection {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &WsConnection{
		errAdapters:    errorAdapters,
		dialer:         dialer,
		openParamsRepo: openParamsRepo,
		recv:           recvChan,
		send:           make(chan Message),
		closeChan:      make(CloseChan),
		logger:         logger.WithField("net", "ws_connection"),
	}
}

func NewWebsocketFactory(
	logger emitter.Logger,
	dialer *websocket.Dialer,
	openParamsRepo OpenConnectionParamsRepo,
	errorAdapters ErrorAdapters,
) ConnectionFactory {
	return func(_ context.Context, recvChan chan<- Message) Connection {
		return NewWebsocketConnection(dialer, openParamsRepo, logger, recvChan, errorAdapters)
	}
}

// Write queues a message to be sent over the WebSocket connection.
// It fails with ErrConnectionClosed once the connection is closed.
func (w *WsConnection) Write(m Message) error {
	select {
	case <-w.closeChan:
		return ErrConnectionClosed
	default:
	}

	select {
	case w.send <- m:
		return nil
	case <-w.closeChan:
		return ErrConnectionClosed
	}
}

// Close terminates the WebSocket connection.
func (w *WsConnection) Close() {
	w.setCloseReason(ErrTerminated)
	w.closeOnce.Do(w.close)
}

// Open dials the server and starts the read and write loops. It returns once
// the handshake is done or has failed.
func (w *WsConnection) Open(ctx context.Context) error {
	p, err := w.openParamsRepo.Get(ctx)
	if err != nil {
		return err
	}

	conn, resp, err := w.dialer.DialContext(ctx, p.URL.String(), p.Header)
	if err = w.handleDialError(p, conn, resp, err); err != nil {
		w.logger.Errorf("connection err to %s: %s", p.URL.String(), err)
		return err
	}

	w.logger.Debugf("success opening connection to %s", p.URL.String())
	w.conn = conn
	w.installControlHandlers()

	go w.read(ctx)
	go w.write(ctx)

	return nil
}

// CloseChan returns a channel that will be closed when the WebSocket connection is closed.
func (w *WsConnection) CloseChan() CloseChan {
	return w.closeChan
}

// CloseErr returns an error that explains why the WebSocket connection was closed.
func (w *WsConnection) CloseErr() error {
	return w.closeReason
}

// installControlHandlers overrides the default control frame handlers so that
// pings, pongs and close frames reach the handler chain instead of being
// answered by the websocket library.
func (w *WsConnection) installControlHandlers() {
	w.conn.SetPingHandler(func(appData string) error {
		w.logger.Debugln("<= [PING]")
		w.deliver(NewPingMessage([]byte(appData)))
		return nil
	})

	w.conn.SetPongHandler(func(appData string) error {
		w.logger.Debugln("<= [PONG]")
		w.deliver(NewPongMessage([]byte(appData)))
		return nil
	})

	w.conn.SetCloseHandler(func(code int, text string) error {
		w.logger.Debugln("<= [CLOSE]")
		w.deliver(NewCloseMessage(code, []byte(text)))
		return nil
	})
}

// deliver hands a frame to the receiver unless the connection is closing.
func (w *WsConnection) deliver(m Message) {
	select {
	case w.recv <- m:
	case <-w.closeChan:
	}
}

func (w *WsConnection) read(ctx context.Context) {
	defer w.Close()

	for {
		if ctx.Err() != nil {
			return
		}

		messageType, bts, err := w.conn.ReadMessage()
		if err != nil {
			select {
			case <-w.closeChan:
			default:
				w.logger.Errorf("error occurred on websocket read: %s", err)
				w.setCloseReason(errors.Wrap(ErrConnectionClosed, "websocket read: "+err.Error()))
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			w.logger.Debugln("<= [BIN]")
			w.deliver(NewBinaryMessage(bts))
		default:
			w.logger.Debugf("<= [DATA] %s", bts)
			w.deliver(NewDataMessage(bts))
		}
	}
}

// write owns the underlying conn: it is the only goroutine writing to it and
// it closes it on exit, which also unblocks read.
func (w *WsConnection) write(ctx context.Context) {
	defer func() {
		w.Close()
		_ = w.conn.Close()
	}()

	for {
		select {
		case <-w.closeChan:
			_ = w.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout))
			return
		case <-ctx.Done():
			return
		case msg := <-w.send:
			if err := w.writeMessage(msg); err != nil {
				if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					w.setCloseReason(ErrConnectionClosed)
				} else {
					w.setCloseReason(errors.Wrap(ErrConnectionClosed, err.Error()))
				}
				return
			}
		}
	}
}

func (w *WsConnection) writeMessage(msg Message) error {
	deadline := time.Now().Add(writeTimeout)
	_ = w.conn.SetWriteDeadline(deadline)

	switch msg.Type() {
	case PingMessage:
		w.logger.Debugln("=> [PING]")
		err := w.conn.WriteControl(websocket.PingMessage, msg.Data(), deadline)
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil
		}
		return err
	case PongMessage:
		w.logger.Debugln("=> [PONG]")
		return w.conn.WriteControl(websocket.PongMessage, msg.Data(), deadline)
	case BinaryMessage:
		w.logger.Debugln("=> [BIN]")
		return w.conn.WriteMessage(websocket.BinaryMessage, msg.Data())
	case DataMessage:
		w.logger.Debugf("=> [DATA] %s", msg.Data())
		return w.conn.WriteMessage(websocket.TextMessage, msg.Data())
	default:
		w.logger.Warnf("dropping unsupported outgoing %s", msg)
		return nil
	}
}

func (w *WsConnection) close() {
	close(w.closeChan)
}

func (w *WsConnection) setCloseReason(err error) {
	w.closeReasonOnce.Do(func() {
		w.closeReason = err
	})
}

func (w *WsConnection) handleDialError(
	p OpenConnectionParams,
	conn *websocket.Conn,
	resp *http.Response,
	err error,
) error {
	if w.errAdapters.OnDial != nil {
		return w.errAdapters.OnDial(conn, resp, err)
	}

	if err == nil {
		return nil
	}

	// 1. HTTP errors first
	if resp != nil {
		var msg string
		if resp.Body != nil {
			if bts, readErr := io.ReadAll(resp.Body); readErr == nil {
				msg = string(bts)
			}
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return errors.Wrap(ErrRateLimit, msg)
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return WrapErrorUnrecoverableConnection(errors.Wrap(err, msg), p.URL, resp.StatusCode)
		}
	}

	// 2. Network errors
	return errors.Wrap(ErrCannotConnect, err.Error())
}
