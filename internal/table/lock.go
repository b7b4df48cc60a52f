package table

// lockTables acquires the structural guards of a and b in creation order
// and returns the matching unlock. a and b may be the same table.
func lockTables(a, b *Table) func() {
	if a == b {
		a.mu.Lock()
		return a.mu.Unlock
	}
	first, second := a, b
	if second.seq < first.seq {
		first, second = second, first
	}
	first.mu.Lock()
	second.mu.Lock()
	return func() {
		second.mu.Unlock()
		first.mu.Unlock()
	}
}

// checkPair validates that a and b can take part in one structural edit.
func checkPair(a, b *Table) error {
	if err := a.checkOpen(); err != nil {
		return err
	}
	if err := b.checkOpen(); err != nil {
		return err
	}
	if a.registry != b.registry {
		return newTableError(b.name, "table %s belongs to another registry", a.name)
	}
	return nil
}

// queued pairs a table with the entry an edit queued on it, if any.
type queued struct {
	table *Table
	entry *pending
}

// drainTables drains each table in order and returns the listener
// failures of the given entries.
func drainTables(qs ...queued) error {
	var errs []error
	for _, q := range qs {
		if err := q.table.events.drain(q.entry); err != nil {
			errs = append(errs, err)
		}
	}
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return &ListenerError{Table: qs[0].table.name, Errors: errs}
	}
}
