// Package table implements the versioned, columnar in-memory table store.
//
// A Table holds one atomically swapped *Ref. A Ref is an immutable
// snapshot: column metadata, one sorted index → value map per column,
// and a version. Every mutation derives a new Ref that shares all
// untouched columns with its predecessor.
//
// ARCHITECTURE:
//
// Writes:
// Single-cell writes go through apply, a compare-and-swap loop over a
// pure Ref → Ref transform. Structural edits (move, copy, rename,
// remove) also hold the table's guard; edits spanning two tables hold
// both guards, taken in creation order.
//
// Events:
// After a commit, and only if someone is listening, the edit derives the
// minimal set of (old cell, new cell) pairs that replays it. Which
// columns or rows are reported is looked up in explicit decision tables
// (columnPlans, tablePlans, rowPlans) keyed by the shape of the edit.
//
// Dispatch:
// Events are queued under the guards and delivered after release by the
// goroutine that finds the queue idle. A writer on another goroutine waits
// until its own events are delivered and gets back only their listener
// failures. Listeners run in ascending
// (order, subscription) sequence. The context passed to a listener
// carries the chain of listeners that led to it; a listener never sees
// its own writes unless it opts in with AllowLoop, and chains deeper than
// the registry's dispatch quota fail with LISTENER_LOOP.
//
// ERRORS:
// Contract violations return *Error before anything commits. Listener
// failures never roll back a write; they are collected into a
// *ListenerError returned by the write that triggered them.
package table
