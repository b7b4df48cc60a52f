// Package script runs YAML operation scripts against a fresh table
// registry and records what listeners observed.
//
// A script seeds tables (inline, from a CUE file, or both), subscribes
// recording listeners, applies a list of steps, and then evaluates
// assertions over the final state and the recorded trace:
//
//	name: move-row-after
//	description: Moving row 1 after row 3 shifts rows 2 and 3 down
//	tables:
//	  sales:
//	    - column: A
//	      cells: {1: v1, 2: v2, 3: v3, 4: v4}
//	listeners:
//	  - name: watch
//	    table: sales
//	    source: {kind: column, column: A}
//	    skip_history: true
//	steps:
//	  - op: move_row
//	    table: sales
//	    index: 1
//	    order: after
//	    target: {index: 3}
//	assertions:
//	  - type: cell
//	    table: sales
//	    column: A
//	    index: 4
//	    expect: v1
//
// Headers are written as a single label or a list of labels. Values
// follow YAML's own typing (integers become Int, or BigInt when they do
// not fit, floats become Double, strings become Text, null is absent);
// the other kinds are spelled as a one-key map such as
// {decimal: "12.50"} or {web: "<b>x</b>"}.
//
// The trace is a list of entries, one per step and one per event a
// listener received, stamped with a logical clock. RunWithGolden
// compares it against testdata/golden/<name>.golden as JSON lines.
//
// Seed files are CUE:
//
//	table: sales: {
//		"A": {"0": 1, "1": 2.5}
//		"region/north": {"0": "x"}
//	}
//
// A column key holds its labels joined by "/".
package script
