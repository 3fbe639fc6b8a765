package wsclient

import "fmt"

type MessageType byte

const (
	DataMessage   MessageType = 1
	BinaryMessage MessageType = 2
	CloseError    MessageType = 8
	PingMessage   MessageType = 9
	PongMessage   MessageType = 10
)

func (t MessageType) Is(other MessageType) bool {
	return t == other
}

func (t MessageType) IsData() bool {
	return t.Is(DataMessage) || t.Is(BinaryMessage)
}

func (t MessageType) IsPing() bool {
	return t.Is(PingMessage)
}

func (t MessageType) IsPong() bool {
	return t.Is(PongMessage)
}

func (t MessageType) IsClose() bool {
	return t.Is(CloseError)
}

// eventName maps a frame type to the event it is emitted as. Close frames are
// not emitted: the handler emits EventClose once the connection is actually gone.
func (t MessageType) eventName() (string, bool) {
	switch {
	case t.IsData():
		return EventMessage, true
	case t.IsPing():
		return EventPing, true
	case t.IsPong():
		return EventPong, true
	default:
		return "", false
	}
}

type Message interface {
	Type() MessageType
	Data() []byte
	String() string
}

type ErrorMessage interface {
	Message
	Error() string
}

type message struct {
	MessageType MessageType
	MessageData []byte
}

func (m message) Type() MessageType {
	return m.MessageType
}

func (m message) Data() []byte {
	return m.MessageData
}

func (m message) String() string {
	return fmt.Sprintf("Message{type=%d,data=%s}",
		m.MessageType, m.MessageData)
}

type closeMessage struct {
	message
	Code int
}

func (m closeMessage) String() string {
	return fmt.Sprintf("Message{type=%d,code=%d,data=%s}",
		m.message.Type(), m.Code, m.message.Data())
}

func (m closeMessage) Error() string {
	return m.String()
}

func NewMessage(mt MessageType, data []byte) Message {
	return message{MessageType: mt, MessageData: data}
}

func NewDataMessage(data []byte) Message {
	return NewMessage(DataMessage, data)
}

func NewBinaryMessage(data []byte) Message {
	return NewMessage(BinaryMessage, data)
}

func NewPingMessage(data []byte) Message {
	return NewMessage(PingMessage, data)
}

func NewPongMessage(data []byte) Message {
	return NewMessage(PongMessage, data)
}

func NewCloseMessage(code int, data []byte) ErrorMessage {
	return closeMessage{
		message: message{MessageType: CloseError, MessageData: data},
		Code:    code,
	}
}
