package script

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes the trace so failures can be debugged from the message.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEntry // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, entry := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", entry.Seq, entry)
		}
	}

	return buf.String()
}

// String renders an entry on one line.
func (e TraceEntry) String() string {
	switch e.Type {
	case EntryStep:
		if e.Error != "" {
			return fmt.Sprintf("step %s %s -> %s", e.Op, e.Table, e.Error)
		}
		return fmt.Sprintf("step %s %s v%d", e.Op, e.Table, e.Version)
	case EntryEvent:
		return fmt.Sprintf("event %s %s: %s -> %s", e.Listener, e.Table, e.Old, e.New)
	default:
		return e.Type
	}
}
