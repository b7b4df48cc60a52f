package table

import (
	"log/slog"
	"slices"
	"sync"
)

// Registry owns a set of named tables.
//
// Tables from different registries never interact: structural edits
// between them fail with INVALID_TABLE. The registry also carries the
// shared configuration of its tables (logger, dispatch depth quota).
//
// Thread-safety: all methods are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*Table

	clock    *Clock
	ids      IDGenerator
	log      *slog.Logger
	maxDepth int
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		tables:   make(map[string]*Table),
		clock:    NewClock(),
		ids:      UUIDv7Generator{},
		log:      slog.Default(),
		maxDepth: DefaultMaxDispatchDepth,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) newTable(name string, ref *Ref) *Table {
	t := &Table{
		name:     name,
		id:       r.ids.Generate(),
		seq:      r.clock.Next(),
		registry: r,
	}
	t.events = newDispatcher(name, r.log, r.maxDepth)
	t.ref.Store(ref)
	return t
}

// Table returns the table registered under name, creating it if needed.
func (r *Registry) Table(name string) *Table {
	r.mu.RLock()
	t, ok := r.tables[name]
	r.mu.RUnlock()
	if ok {
		return t
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tables[name]; ok {
		return t
	}
	t = r.newTable(name, newRef())
	r.tables[name] = t
	r.log.Info("table created", "table", name, "id", t.id)
	return t
}

// Lookup returns the table registered under name.
func (r *Registry) Lookup(name string) (*Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[name]
	return t, ok
}

// Detached creates a table owned by r but not registered under a name.
func (r *Registry) Detached(name string) *Table {
	return r.newTable(name, newRef())
}

// Register binds t to its name. A table previously registered under the
// same name is closed and its listeners are dropped.
// Returns INVALID_TABLE if t belongs to another registry or is closed.
func (r *Registry) Register(t *Table) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	if t.registry != r {
		return newTableError(t.name, "table belongs to another registry")
	}

	r.mu.Lock()
	prev, replaced := r.tables[t.name]
	r.tables[t.name] = t
	r.mu.Unlock()

	if replaced && prev != t {
		prev.close()
		r.log.Info("table replaced", "table", t.name, "old_id", prev.id, "id", t.id)
		return nil
	}
	r.log.Info("table registered", "table", t.name, "id", t.id)
	return nil
}

// Delete closes and unregisters the named table.
// Returns false if no table is registered under name.
func (r *Registry) Delete(name string) bool {
	r.mu.Lock()
	t, ok := r.tables[name]
	delete(r.tables, name)
	r.mu.Unlock()

	if !ok {
		return false
	}
	t.close()
	r.log.Info("table deleted", "table", name, "id", t.id)
	return true
}

// Names returns the registered table names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

// Clone copies src and registers the copy under name.
func (r *Registry) Clone(src *Table, name string) (*Table, error) {
	if src == nil || src.registry != r {
		return nil, newTableError(name, "clone source belongs to another registry")
	}
	t := src.Clone(name)
	if err := r.Register(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Restore rebuilds a table from a snapshot and registers it under name.
// The column counter resumes after the highest stored order.
func (r *Registry) Restore(name string, s Snapshot) (*Table, error) {
	ref, err := refFromSnapshot(name, s)
	if err != nil {
		return nil, err
	}
	t := r.newTable(name, ref)
	if err := r.Register(t); err != nil {
		return nil, err
	}
	return t, nil
}
