package table

import "context"

type chainKey struct{}

// chain is the stack of listeners whose deliveries led to the current
// write. It travels on the context handed to each listener.
//
// Example chain:
//
//	user write on A → listener L1 writes B → listener L2 writes A
//	→ chain for the last write is [L1, L2]
//	→ L1 (AllowLoop=false) is skipped for it
//
// Chains are immutable; push returns a new head.
type chain struct {
	l      *listener
	parent *chain
	depth  int
}

func chainFrom(ctx context.Context) *chain {
	c, _ := ctx.Value(chainKey{}).(*chain)
	return c
}

func (c *chain) push(l *listener) *chain {
	return &chain{l: l, parent: c, depth: c.len() + 1}
}

func (c *chain) len() int {
	if c == nil {
		return 0
	}
	return c.depth
}

func (c *chain) contains(l *listener) bool {
	for ; c != nil; c = c.parent {
		if c.l == l {
			return true
		}
	}
	return false
}

// withChain returns the context handed to a listener. Batches of the
// writer do not extend into listeners.
func withChain(ctx context.Context, c *chain) context.Context {
	ctx = context.WithValue(ctx, chainKey{}, c)
	return context.WithValue(ctx, batchKey{}, (*batchState)(nil))
}
