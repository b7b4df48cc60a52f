package script

import (
	"fmt"
	"math/big"
	"strconv"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/sigbla/sigbla-app-sub004/internal/table"
	"github.com/sigbla/sigbla-app-sub004/internal/value"
)

// Header is a column header in a script: a single label or a list.
type Header struct {
	table.Header
}

// UnmarshalYAML accepts `A` as well as `[sales, 2024]`.
func (h *Header) UnmarshalYAML(node *yaml.Node) error {
	var labels []string
	switch node.Kind {
	case yaml.ScalarNode:
		labels = []string{node.Value}
	case yaml.SequenceNode:
		if err := node.Decode(&labels); err != nil {
			return fmt.Errorf("line %d: header labels: %w", node.Line, err)
		}
	default:
		return fmt.Errorf("line %d: header must be a label or a list of labels", node.Line)
	}

	parsed, err := table.NewHeader(labels...)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	h.Header = parsed
	return nil
}

// Literal is a cell value in a script. The zero Literal is absent.
type Literal struct {
	Value value.Value
}

// UnmarshalYAML maps YAML scalars onto value kinds by their resolved tag
// and one-key maps onto the named kind.
func (l *Literal) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		v, err := scalarValue(node)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		l.Value = v
		return nil

	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: typed value needs exactly one kind key", node.Line)
		}
		kind, raw := node.Content[0], node.Content[1]
		if raw.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: %s value must be a scalar", raw.Line, kind.Value)
		}
		v, err := parseTyped(kind.Value, raw.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", raw.Line, err)
		}
		l.Value = v
		return nil

	default:
		return fmt.Errorf("line %d: value must be a scalar or a one-key map", node.Line)
	}
}

func scalarValue(node *yaml.Node) (value.Value, error) {
	switch node.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!str":
		return value.Text(norm.NFC.String(node.Value)), nil
	case "!!int":
		var i int64
		if err := node.Decode(&i); err == nil {
			return value.Int(i), nil
		}
		n, ok := new(big.Int).SetString(node.Value, 0)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", node.Value)
		}
		return value.NewBigInt(n), nil
	case "!!float":
		// Integers beyond uint64 resolve as floats
		if n, ok := new(big.Int).SetString(node.Value, 10); ok {
			return value.NewBigInt(n), nil
		}
		var f float64
		if err := node.Decode(&f); err != nil {
			return nil, fmt.Errorf("invalid float %q: %w", node.Value, err)
		}
		return value.Double(f), nil
	default:
		return nil, fmt.Errorf("unsupported scalar %s %q", node.ShortTag(), node.Value)
	}
}

// parseTyped builds a value of the named kind from its text form.
func parseTyped(kind, raw string) (value.Value, error) {
	k, err := value.ParseKind(kind)
	if err != nil {
		return nil, err
	}

	switch k {
	case value.KindText:
		return value.Text(norm.NFC.String(raw)), nil
	case value.KindWeb:
		return value.Web(norm.NFC.String(raw)), nil
	case value.KindInt:
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid int %q: %w", raw, err)
		}
		return value.Int(i), nil
	case value.KindDouble:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid double %q: %w", raw, err)
		}
		return value.Double(f), nil
	case value.KindBigInt:
		return value.ParseBigInt(raw)
	case value.KindDecimal:
		return value.ParseDecimal(raw)
	default:
		return nil, fmt.Errorf("kind %s cannot be written as a literal", k)
	}
}

// formatValue renders v for traces and assertion messages.
func formatValue(v value.Value) string {
	if v == nil {
		return "<absent>"
	}
	return fmt.Sprintf("%s(%s)", v.Kind(), v)
}
