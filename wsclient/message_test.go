package wsclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageType_EventName(t *testing.T) {
	tests := []struct {
		name  string
		mt    MessageType
		want  string
		emits bool
	}{
		{name: "text", mt: DataMessage, want: EventMessage, emits: true},
		{name: "binary", mt: BinaryMessage, want: EventMessage, emits: true},
		{name: "ping", mt: PingMessage, want: EventPing, emits: true},
		{name: "pong", mt: PongMessage, want: EventPong, emits: true},
		{name: "close", mt: CloseError, emits: false},
		{name: "unknown", mt: MessageType(42), emits: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.mt.eventName()

			assert.Equal(t, tt.emits, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCloseMessage(t *testing.T) {
	m := NewCloseMessage(1001, []byte("going away"))

	assert.True(t, m.Type().IsClose())
	assert.Equal(t, "Message{type=8,code=1001,data=going away}", m.Error())
	assert.Equal(t, m.String(), m.Error())
}

func TestMessage_String(t *testing.T) {
	assert.Equal(t, "Message{type=1,data=hi}", NewDataMessage([]byte("hi")).String())
}
