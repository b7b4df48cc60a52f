package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sigbla/sigbla-app-sub004/internal/table"
)

// ErrNotFound is returned when no snapshot is stored under a name.
var ErrNotFound = errors.New("table not stored")

// TableInfo summarizes one stored snapshot.
type TableInfo struct {
	Name    string `json:"name"`
	Version int64  `json:"version"`
	Columns int    `json:"columns"`
	Cells   int    `json:"cells"`
}

// ListTables returns a summary of every stored snapshot, ordered by name.
// Returns an empty slice (not nil) if nothing is stored.
func (s *Store) ListTables(ctx context.Context) ([]TableInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name, t.version,
			(SELECT COUNT(*) FROM columns c WHERE c.table_name = t.name),
			(SELECT COUNT(*) FROM cells x WHERE x.table_name = t.name)
		FROM tables t
		ORDER BY t.name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	infos := []TableInfo{}
	for rows.Next() {
		var info TableInfo
		if err := rows.Scan(&info.Name, &info.Version, &info.Columns, &info.Cells); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return infos, nil
}

// LoadSnapshot reads the snapshot stored under name.
// Columns come back in order; entries in ascending index order.
// Returns ErrNotFound if nothing is stored under name.
func (s *Store) LoadSnapshot(ctx context.Context, name string) (table.Snapshot, error) {
	var snap table.Snapshot
	err := s.db.QueryRowContext(ctx, `SELECT version FROM tables WHERE name = ?`, name).Scan(&snap.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return table.Snapshot{}, fmt.Errorf("load table %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return table.Snapshot{}, fmt.Errorf("load table %s: %w", name, err)
	}

	cols, err := s.readColumns(ctx, name)
	if err != nil {
		return table.Snapshot{}, fmt.Errorf("load table %s: %w", name, err)
	}
	if err := s.readCells(ctx, name, cols); err != nil {
		return table.Snapshot{}, fmt.Errorf("load table %s: %w", name, err)
	}
	snap.Columns = cols

	s.log.Debug("table loaded", "table", name, "version", snap.Version, "columns", len(cols))
	return snap, nil
}

// Load restores the snapshot stored under name into reg, replacing any
// table registered under the same name.
func (s *Store) Load(ctx context.Context, reg *table.Registry, name string) (*table.Table, error) {
	snap, err := s.LoadSnapshot(ctx, name)
	if err != nil {
		return nil, err
	}
	t, err := reg.Restore(name, snap)
	if err != nil {
		return nil, fmt.Errorf("restore table %s: %w", name, err)
	}
	return t, nil
}

func (s *Store) readColumns(ctx context.Context, name string) ([]table.ColumnSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ord, labels, prenatal
		FROM columns
		WHERE table_name = ?
		ORDER BY ord ASC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var cols []table.ColumnSnapshot
	for rows.Next() {
		var (
			c      table.ColumnSnapshot
			labels string
		)
		if err := rows.Scan(&c.Order, &labels, &c.Prenatal); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		if c.Header, err = unmarshalHeader(labels); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	return cols, nil
}

// readCells fills the entries of cols, which must be sorted by order.
func (s *Store) readCells(ctx context.Context, name string, cols []table.ColumnSnapshot) error {
	byOrder := make(map[int64]int, len(cols))
	for i, c := range cols {
		byOrder[c.Order] = i
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT ord, idx, tag, data
		FROM cells
		WHERE table_name = ?
		ORDER BY ord ASC, idx ASC
	`, name)
	if err != nil {
		return fmt.Errorf("query cells: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ord, idx, tag int64
			data          []byte
		)
		if err := rows.Scan(&ord, &idx, &tag, &data); err != nil {
			return fmt.Errorf("scan cell: %w", err)
		}
		i, ok := byOrder[ord]
		if !ok {
			return fmt.Errorf("cell %d references missing column order %d", idx, ord)
		}
		v, err := unmarshalCell(byte(tag), data)
		if err != nil {
			return fmt.Errorf("cell %s/%d: %w", cols[i].Header, idx, err)
		}
		cols[i].Entries = append(cols[i].Entries, table.Entry{Index: idx, Value: v})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate cells: %w", err)
	}
	return nil
}
