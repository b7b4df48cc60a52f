package table

import (
	"log/slog"

	"github.com/sigbla/sigbla-app-sub004/internal/value"
)

// DefaultMaxDispatchDepth bounds how deeply listeners may trigger each
// other through their own writes before dispatch fails with LISTENER_LOOP.
const DefaultMaxDispatchDepth = 64

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for table lifecycle and dispatch.
// Default: slog.Default()
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithIDGenerator sets the generator for table identities.
// Default: UUIDv7Generator
func WithIDGenerator(g IDGenerator) RegistryOption {
	return func(r *Registry) {
		if g != nil {
			r.ids = g
		}
	}
}

// WithMaxDispatchDepth sets the listener chain depth quota.
//
// Default: 64 (DefaultMaxDispatchDepth)
// Use WithMaxDispatchDepth(4) for testing loop enforcement.
func WithMaxDispatchDepth(depth int) RegistryOption {
	return func(r *Registry) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// ListenerOption configures a subscription.
type ListenerOption func(*listener)

// Name labels the listener in logs and errors.
func Name(name string) ListenerOption {
	return func(l *listener) {
		l.name = name
	}
}

// WithOrder sets the delivery priority. Lower orders run first; equal
// orders run in subscription order. Default: 0
func WithOrder(order int) ListenerOption {
	return func(l *listener) {
		l.order = order
	}
}

// AllowLoop lets the listener receive events produced by its own writes.
func AllowLoop() ListenerOption {
	return func(l *listener) {
		l.allowLoop = true
	}
}

// SkipHistory suppresses the initial delivery of existing values.
func SkipHistory() ListenerOption {
	return func(l *listener) {
		l.skipHistory = true
	}
}

// OldKinds delivers only events whose old value has one of kinds.
// Use value.KindAbsent to match cells that did not exist.
func OldKinds(kinds ...value.Kind) ListenerOption {
	return func(l *listener) {
		l.oldKinds = newKindSet(kinds)
	}
}

// NewKinds delivers only events whose new value has one of kinds.
func NewKinds(kinds ...value.Kind) ListenerOption {
	return func(l *listener) {
		l.newKinds = newKindSet(kinds)
	}
}

type kindSet map[value.Kind]struct{}

func newKindSet(kinds []value.Kind) kindSet {
	if len(kinds) == 0 {
		return nil
	}
	s := make(kindSet, len(kinds))
	for _, k := range kinds {
		s[k] = struct{}{}
	}
	return s
}

// has reports whether v's kind is accepted. A nil set accepts everything.
func (s kindSet) has(v value.Value) bool {
	if s == nil {
		return true
	}
	_, ok := s[value.KindOf(v)]
	return ok
}
