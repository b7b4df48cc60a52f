package store

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/sigbla/sigbla-app-sub004/internal/table"
	"github.com/sigbla/sigbla-app-sub004/internal/value"
)

// json keeps labels readable in the database: no HTML escaping.
var json = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// marshalHeader stores header labels as a JSON array of strings.
func marshalHeader(h table.Header) (string, error) {
	data, err := json.Marshal(h.Labels())
	if err != nil {
		return "", fmt.Errorf("marshal header %s: %w", h, err)
	}
	return string(data), nil
}

// unmarshalHeader parses a stored label array. Labels pass through
// table.NewHeader so they are normalized the same way as live headers.
func unmarshalHeader(data string) (table.Header, error) {
	var labels []string
	if err := json.Unmarshal([]byte(data), &labels); err != nil {
		return table.Header{}, fmt.Errorf("unmarshal header %q: %w", data, err)
	}
	h, err := table.NewHeader(labels...)
	if err != nil {
		return table.Header{}, fmt.Errorf("unmarshal header %q: %w", data, err)
	}
	return h, nil
}

// marshalCell returns the wire tag and tagged encoding of v.
func marshalCell(v value.Value) (byte, []byte, error) {
	tag, err := value.Tag(v)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal cell: %w", err)
	}
	data, err := value.Marshal(v)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal cell: %w", err)
	}
	return tag, data, nil
}

// unmarshalCell decodes a stored cell and checks the tag column agrees
// with the payload.
func unmarshalCell(tag byte, data []byte) (value.Value, error) {
	if len(data) == 0 || data[0] != tag {
		return nil, fmt.Errorf("unmarshal cell: tag %d does not match payload", tag)
	}
	v, err := value.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal cell: %w", err)
	}
	return v, nil
}
