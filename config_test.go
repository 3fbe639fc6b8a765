package emitter

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	rec := &recorder{}
	audit, printer, boot := rec.listener("audit"), rec.listener("printer"), rec.listener("boot")
	console := &receiverStub{name: "console"}

	catalog := Catalog{
		Listeners: map[string]*Listener{"audit": audit, "printer": printer, "boot": boot},
		Receivers: map[string]any{"console": console},
	}

	doc := `
on:
  message: {listener: printer, receiver: console}
  connect: audit
  close: audit
once:
  ready: boot
`

	cfg, err := LoadConfig(strings.NewReader(doc), catalog)
	require.NoError(t, err)

	require.Len(t, cfg.On, 3)
	assert.Equal(t, BindTo("message", printer, console), cfg.On[0])
	assert.Equal(t, Bind("connect", audit), cfg.On[1])
	assert.Equal(t, Bind("close", audit), cfg.On[2])

	require.Len(t, cfg.Once, 1)
	assert.Equal(t, Bind("ready", boot), cfg.Once[0])

	r := New(WithConfig(cfg))
	ctx := context.Background()
	require.NoError(t, r.Emit(ctx, "ready"))
	require.NoError(t, r.Emit(ctx, "ready"))
	require.NoError(t, r.Emit(ctx, "message", "hi"))

	calls := rec.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, "boot", calls[0].label)
	assert.Equal(t, "printer", calls[1].label)
	assert.Same(t, console, calls[1].receiver)
	assert.Equal(t, []any{"hi"}, calls[1].args)
}

func TestLoadConfig_Empty(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(""), Catalog{})
	require.NoError(t, err)
	assert.Empty(t, cfg.On)
	assert.Empty(t, cfg.Once)

	cfg, err = LoadConfig(strings.NewReader("on:\nonce:\n"), Catalog{})
	require.NoError(t, err)
	assert.Empty(t, cfg.On)
	assert.Empty(t, cfg.Once)
}

func TestLoadConfig_Errors(t *testing.T) {
	catalog := Catalog{
		Listeners: map[string]*Listener{
			"audit": NewListener(func(context.Context, any, ...any) error { return nil }),
		},
	}

	tests := []struct {
		name     string
		doc      string
		expected error
	}{
		{name: "not yaml", doc: "on: [", expected: ErrInvalidConfig},
		{name: "root is a list", doc: "- on", expected: ErrInvalidConfig},
		{name: "unknown section", doc: "always:\n  a: audit\n", expected: ErrInvalidConfig},
		{name: "section is a list", doc: "on:\n  - audit\n", expected: ErrInvalidConfig},
		{name: "binding is a list", doc: "on:\n  a: [audit]\n", expected: ErrInvalidConfig},
		{name: "unknown listener", doc: "on:\n  a: nope\n", expected: ErrUnknownListener},
		{name: "unknown receiver", doc: "once:\n  a: {listener: audit, receiver: nope}\n", expected: ErrUnknownReceiver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(strings.NewReader(tt.doc), catalog)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}
