package store

import (
	"context"
	"fmt"

	"github.com/sigbla/sigbla-app-sub004/internal/table"
)

// SaveTable stores ref under name, replacing any earlier snapshot of the
// same name. The write happens in one transaction so readers see either
// the old snapshot or the new one.
//
// Prenatal columns are saved too, so a restored table hands out the same
// column orders as the original.
func (s *Store) SaveTable(ctx context.Context, name string, ref *table.Ref) error {
	snap := ref.Snapshot()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save table %s: begin tx: %w", name, err)
	}
	defer tx.Rollback() // No-op if committed

	// Columns and cells cascade
	if _, err := tx.ExecContext(ctx, `DELETE FROM tables WHERE name = ?`, name); err != nil {
		return fmt.Errorf("save table %s: clear: %w", name, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tables (name, version, saved_seq)
		VALUES (?, ?, (SELECT COALESCE(MAX(saved_seq), 0) + 1 FROM tables))
	`, name, snap.Version)
	if err != nil {
		return fmt.Errorf("save table %s: %w", name, err)
	}

	colStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO columns (table_name, ord, labels, prenatal)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("save table %s: prepare columns: %w", name, err)
	}
	defer colStmt.Close()

	cellStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cells (table_name, ord, idx, tag, data)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("save table %s: prepare cells: %w", name, err)
	}
	defer cellStmt.Close()

	cells := 0
	for _, c := range snap.Columns {
		labels, err := marshalHeader(c.Header)
		if err != nil {
			return fmt.Errorf("save table %s: %w", name, err)
		}
		if _, err := colStmt.ExecContext(ctx, name, c.Order, labels, c.Prenatal); err != nil {
			return fmt.Errorf("save table %s: column %s: %w", name, c.Header, err)
		}

		for _, e := range c.Entries {
			tag, data, err := marshalCell(e.Value)
			if err != nil {
				return fmt.Errorf("save table %s: cell %s/%d: %w", name, c.Header, e.Index, err)
			}
			if _, err := cellStmt.ExecContext(ctx, name, c.Order, e.Index, tag, data); err != nil {
				return fmt.Errorf("save table %s: cell %s/%d: %w", name, c.Header, e.Index, err)
			}
			cells++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save table %s: commit: %w", name, err)
	}

	s.log.Debug("table saved", "table", name, "version", snap.Version, "columns", len(snap.Columns), "cells", cells)
	return nil
}

// SaveRegistry saves every registered table of reg.
// Stops at the first failure; tables saved before it stay saved.
func (s *Store) SaveRegistry(ctx context.Context, reg *table.Registry) error {
	for _, name := range reg.Names() {
		t, ok := reg.Lookup(name)
		if !ok {
			// Deleted while saving
			continue
		}
		if err := s.SaveTable(ctx, name, t.Ref()); err != nil {
			return err
		}
	}
	return nil
}

// DeleteTable removes the stored snapshot of name.
// Returns false if nothing was stored under name.
func (s *Store) DeleteTable(ctx context.Context, name string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tables WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("delete table %s: %w", name, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete table %s: %w", name, err)
	}
	if n > 0 {
		s.log.Debug("table deleted", "table", name)
	}
	return n > 0, nil
}
