package table

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// labelSep joins labels inside a Header key. Labels never contain it.
const labelSep = "\x00"

// Header identifies a column by an ordered tuple of labels.
//
// Header is comparable and safe to use as a map key. Labels are stored
// NFC-normalized, so canonically equivalent spellings name the same column.
// The zero Header has no labels and is not a valid column identity.
type Header struct {
	key string
	n   int
}

// NewHeader builds a header from labels. Returns INVALID_COLUMN if there
// are no labels or a label contains a NUL byte.
func NewHeader(labels ...string) (Header, error) {
	if len(labels) == 0 {
		return Header{}, &Error{Code: ErrCodeInvalidColumn, Message: "header needs at least one label"}
	}

	normalized := make([]string, len(labels))
	for i, l := range labels {
		if strings.Contains(l, labelSep) {
			return Header{}, &Error{Code: ErrCodeInvalidColumn, Message: "header label contains NUL"}
		}
		normalized[i] = norm.NFC.String(l)
	}

	return Header{key: strings.Join(normalized, labelSep), n: len(labels)}, nil
}

// H is a shorthand for NewHeader that panics on invalid input.
// Example: t.Set(ctx, H("Sales", "Q1"), 0, value.Int(10))
func H(labels ...string) Header {
	h, err := NewHeader(labels...)
	if err != nil {
		panic(err)
	}
	return h
}

// IsZero reports whether h has no labels.
func (h Header) IsZero() bool {
	return h.n == 0
}

// Labels returns a copy of the header's labels.
func (h Header) Labels() []string {
	if h.n == 0 {
		return nil
	}
	return strings.Split(h.key, labelSep)
}

// Len returns the number of labels.
func (h Header) Len() int {
	return h.n
}

func (h Header) String() string {
	if h.n == 0 {
		return "[]"
	}
	return "[" + strings.Join(h.Labels(), ", ") + "]"
}

// Compare orders headers label by label. The shorter header is padded
// with empty labels.
func (h Header) Compare(other Header) int {
	a, b := h.key, other.key
	for range max(h.n, other.n) {
		var la, lb string
		la, a, _ = strings.Cut(a, labelSep)
		lb, b, _ = strings.Cut(b, labelSep)
		if c := strings.Compare(la, lb); c != 0 {
			return c
		}
	}
	return 0
}
