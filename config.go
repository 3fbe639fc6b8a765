package emitter

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Catalog resolves the names used in a YAML configuration into listeners and
// receivers.
type Catalog struct {
	Listeners map[string]*Listener
	Receivers map[string]any
}

type bindingNode struct {
	Listener string `yaml:"listener"`
	Receiver string `yaml:"receiver"`
}

// LoadConfig reads a YAML document with optional "on" and "once" mappings.
// Each entry maps an event name either to a listener name or to a
// {listener, receiver} record:
//
//	on:
//	  connect: audit
//	  message: {listener: printer, receiver: console}
//	once:
//	  ready: boot
//
// Entries keep the order they have in the document.
func LoadConfig(r io.Reader, catalog Catalog) (Config, error) {
	var (
		cfg Config
		doc yaml.Node
	)

	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return cfg, errors.Wrap(ErrInvalidConfig, err.Error())
	}

	if len(doc.Content) == 0 {
		return cfg, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return cfg, errors.Wrapf(ErrInvalidConfig, "line %d: expected a mapping", root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]

		bindings, err := loadBindings(value, catalog)
		if err != nil {
			return cfg, err
		}

		switch key.Value {
		case "on":
			cfg.On = append(cfg.On, bindings...)
		case "once":
			cfg.Once = append(cfg.Once, bindings...)
		default:
			return cfg, errors.Wrapf(ErrInvalidConfig, "line %d: unknown section %q", key.Line, key.Value)
		}
	}

	return cfg, nil
}

func loadBindings(node *yaml.Node, catalog Catalog) (Bindings, error) {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, errors.Wrapf(ErrInvalidConfig, "line %d: expected a mapping of event names", node.Line)
	}

	bindings := make(Bindings, 0, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		name, value := node.Content[i].Value, node.Content[i+1]

		var entry bindingNode
		switch value.Kind {
		case yaml.ScalarNode:
			entry.Listener = value.Value
		case yaml.MappingNode:
			if err := value.Decode(&entry); err != nil {
				return nil, errors.Wrapf(ErrInvalidConfig, "line %d: %s", value.Line, err)
			}
		default:
			return nil, errors.Wrapf(ErrInvalidConfig, "line %d: unexpected value for %q", value.Line, name)
		}

		binding, err := entry.resolve(name, catalog)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, binding)
	}

	return bindings, nil
}

func (n bindingNode) resolve(name string, catalog Catalog) (Binding, error) {
	listener, ok := catalog.Listeners[n.Listener]
	if !ok || listener == nil {
		return Binding{}, errors.Wrapf(ErrUnknownListener, "%q for event %q", n.Listener, name)
	}

	if n.Receiver == "" {
		return Bind(name, listener), nil
	}

	receiver, ok := catalog.Receivers[n.Receiver]
	if !ok {
		return Binding{}, errors.Wrapf(ErrUnknownReceiver, "%q for event %q", n.Receiver, name)
	}

	return BindTo(name, listener, receiver), nil
}
