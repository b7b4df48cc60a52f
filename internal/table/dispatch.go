package table

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
)

// pending is one published event sequence waiting for delivery.
//
// A publication made outside any listener is owned by its writer: its
// listener failures are returned to that writer, whichever goroutine
// delivers it. Publications made by listeners report to the drainer.
type pending struct {
	ctx    context.Context
	chain  *chain
	events Events
	owned  bool

	done chan struct{}
	errs []error // set before done is closed
}

// dispatcher is the listener registry and delivery queue of one table.
//
// Publications are queued in commit order. Whichever goroutine finds
// the queue idle drains it, including anything queued while it is
// draining: nested writes from listeners and writes from other
// goroutines alike. A writer from another goroutine waits until its own
// publication has been delivered. Delivery happens without holding any
// table guard.
//
// INVARIANTS:
//   - listeners is sorted by (order, seq) and replaced, never mutated
//   - at most one goroutine drains at a time
//   - every queued pending has its done channel closed exactly once
type dispatcher struct {
	table    string
	log      *slog.Logger
	maxDepth int
	clock    *Clock
	count    atomic.Int32

	mu        sync.Mutex
	listeners []*listener
	queue     []*pending
	draining  bool
}

func newDispatcher(table string, log *slog.Logger, maxDepth int) *dispatcher {
	return &dispatcher{
		table:    table,
		log:      log,
		maxDepth: maxDepth,
		clock:    NewClock(),
	}
}

func (d *dispatcher) hasListeners() bool {
	return d.count.Load() > 0
}

// add registers l and returns the snapshot its history is taken from.
// l only receives events newer than that snapshot.
func (d *dispatcher) add(l *listener, current func() *Ref) *Ref {
	d.mu.Lock()
	defer d.mu.Unlock()

	l.seq = d.clock.Next()
	ref := current()
	l.version = ref.version

	i, _ := slices.BinarySearchFunc(d.listeners, l, compareListeners)
	d.listeners = slices.Insert(slices.Clone(d.listeners), i, l)
	d.count.Store(int32(len(d.listeners)))
	return ref
}

func compareListeners(a, b *listener) int {
	if c := cmp.Compare(a.order, b.order); c != 0 {
		return c
	}
	return cmp.Compare(a.seq, b.seq)
}

func (d *dispatcher) remove(l *listener) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i := slices.Index(d.listeners, l)
	if i < 0 {
		return
	}
	d.listeners = slices.Delete(slices.Clone(d.listeners), i, i+1)
	d.count.Store(int32(len(d.listeners)))
}

// shutdown drops every listener and queued publication. Writers
// waiting on a dropped publication are released without errors.
func (d *dispatcher) shutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.queue {
		close(p.done)
	}
	d.listeners = nil
	d.queue = nil
	d.count.Store(0)
}

// enqueue queues evs and returns the queued entry.
func (d *dispatcher) enqueue(ctx context.Context, evs Events) *pending {
	c := chainFrom(ctx)
	p := &pending{
		ctx:    ctx,
		chain:  c,
		events: evs,
		owned:  c == nil,
		done:   make(chan struct{}),
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, p)
	return p
}

// drain delivers queued publications until the queue is empty and
// returns the listener failures of own, collected into a *ListenerError.
//
// If another call is already draining, a writer outside any listener
// waits for own to be delivered. A write made from a listener returns
// at once; the running drain delivers it and keeps its failures.
// own may be nil when the caller published nothing.
func (d *dispatcher) drain(own *pending) error {
	d.mu.Lock()
	if d.draining {
		d.mu.Unlock()
		if own == nil || !own.owned {
			return nil
		}
		<-own.done
		return d.result(own.errs)
	}
	d.draining = true

	var errs []error
	for len(d.queue) > 0 {
		p := d.queue[0]
		d.queue = d.queue[1:]
		listeners := d.listeners
		d.mu.Unlock()

		perrs := d.deliver(p, listeners)

		d.mu.Lock()
		if p.owned {
			p.errs = perrs
		} else {
			errs = append(errs, perrs...)
		}
		close(p.done)
	}
	d.draining = false
	d.mu.Unlock()

	if own != nil && own.owned {
		// Delivered above or by an earlier drain
		<-own.done
		errs = append(own.errs, errs...)
	}
	return d.result(errs)
}

func (d *dispatcher) result(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return &ListenerError{Table: d.table, Errors: errs}
}

// deliver hands p to each listener in order.
func (d *dispatcher) deliver(p *pending, listeners []*listener) []error {
	if p.chain.len() >= d.maxDepth {
		err := &Error{
			Code:    ErrCodeListenerLoop,
			Message: fmt.Sprintf("listener chain reached depth %d", d.maxDepth),
			Table:   d.table,
		}
		d.log.Error("listener loop stopped", "table", d.table, "depth", p.chain.len(), "events", len(p.events))
		return []error{err}
	}

	var errs []error
	for _, l := range listeners {
		if !l.allowLoop && p.chain.contains(l) {
			continue
		}
		evs := l.filter(p.events)
		if len(evs) == 0 {
			continue
		}
		if err := l.call(withChain(p.ctx, p.chain.push(l)), evs); err != nil {
			d.log.Warn("listener failed", "table", d.table, "listener", l.String(), "error", err)
			errs = append(errs, fmt.Errorf("listener %s: %w", l, err))
		}
	}
	return errs
}
