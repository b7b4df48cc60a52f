package table

import (
	"fmt"
	"iter"

	"github.com/sigbla/sigbla-app-sub004/internal/value"
)

// Cell is a derived view of one location in a table.
//
// Cells are never stored. A nil Value means the location is empty.
type Cell struct {
	Table  string
	Header Header
	Order  int64
	Index  int64
	Value  value.Value
}

// IsAbsent reports whether the cell holds no value.
func (c Cell) IsAbsent() bool {
	return c.Value == nil
}

// Compare orders cells by value: absent < numbers < everything else.
func (c Cell) Compare(other Cell) int {
	return value.Compare(c.Value, other.Value)
}

// Equal reports whether both cells hold equal values.
func (c Cell) Equal(other Cell) bool {
	return c.Compare(other) == 0
}

func (c Cell) String() string {
	v := "<absent>"
	if c.Value != nil {
		v = c.Value.String()
	}
	return fmt.Sprintf("%s%s@%d=%s", c.Table, c.Header, c.Index, v)
}

// Event pairs the state of one location before and after a mutation.
// Old and New always name the same table.
type Event struct {
	Old Cell
	New Cell

	oldRef *Ref
	newRef *Ref
}

// OldRef returns the snapshot Old was read from.
func (e Event) OldRef() *Ref {
	return e.oldRef
}

// NewRef returns the snapshot New was read from.
func (e Event) NewRef() *Ref {
	return e.newRef
}

func (e Event) String() string {
	return fmt.Sprintf("%s -> %s", e.Old, e.New)
}

// Events is the sequence of events delivered to a listener.
type Events []Event

// OldRef returns the snapshot before the first event.
// Returns INVALID_SEQUENCE if es is empty.
func (es Events) OldRef() (*Ref, error) {
	if len(es) == 0 {
		return nil, &Error{Code: ErrCodeInvalidSequence, Message: "no events"}
	}
	return es[0].oldRef, nil
}

// NewRef returns the snapshot after the last event.
// Returns INVALID_SEQUENCE if es is empty.
func (es Events) NewRef() (*Ref, error) {
	if len(es) == 0 {
		return nil, &Error{Code: ErrCodeInvalidSequence, Message: "no events"}
	}
	return es[len(es)-1].newRef, nil
}

// All iterates the events in delivery order.
func (es Events) All() iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for _, e := range es {
			if !yield(e) {
				return
			}
		}
	}
}

// Filter returns the events accepted by keep, in order.
func (es Events) Filter(keep func(Event) bool) Events {
	var out Events
	for _, e := range es {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
