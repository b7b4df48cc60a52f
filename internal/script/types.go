package script

import (
	"github.com/sigbla/sigbla-app-sub004/internal/table"
)

// Trace entry types.
const (
	EntryStep  = "step"
	EntryEvent = "event"
)

// TraceEntry is one step or one delivered event.
type TraceEntry struct {
	Seq  int64  `json:"seq"`
	Type string `json:"type"`

	// Step entries
	Op      string `json:"op,omitempty"`
	Table   string `json:"table,omitempty"`
	Version int64  `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`

	// Event entries
	Listener string `json:"listener,omitempty"`
	Old      string `json:"old,omitempty"`
	New      string `json:"new,omitempty"`
}

// Result is the outcome of a script run.
type Result struct {
	// Pass is true if every step behaved as expected and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace lists steps and delivered events in the order they happened.
	Trace []TraceEntry `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Registry holds the final tables.
	Registry *table.Registry `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEntry{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// EventCount returns how many events listener received.
func (r *Result) EventCount(listener string) int {
	n := 0
	for _, e := range r.Trace {
		if e.Type == EntryEvent && e.Listener == listener {
			n++
		}
	}
	return n
}
