package catalogue

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ecmwf/gribjump/pkg/accessor"
	"github.com/ecmwf/gribjump/pkg/jumpinfo"
)

// SQLiteLister is a Lister backed by a single mattn/go-sqlite3 database
// file, grounded on FDBLister's filesOffsets/URIs lookups but resolving
// against a flat local index instead of an FDB catalogue.
type SQLiteLister struct {
	db *sql.DB
}

// NewSQLiteLister opens (creating if necessary) the index database at
// dbPath.
func NewSQLiteLister(dbPath string) (*SQLiteLister, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("catalogue: open %s: %w", dbPath, err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS entries (
	path   TEXT NOT NULL,
	offset INTEGER NOT NULL,
	param  TEXT NOT NULL DEFAULT '',
	date   TEXT NOT NULL DEFAULT '',
	time   TEXT NOT NULL DEFAULT '',
	year   TEXT NOT NULL DEFAULT '',
	month  TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (path, offset)
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalogue: create schema: %w", err)
	}
	return &SQLiteLister{db: db}, nil
}

// Close releases the underlying database handle.
func (l *SQLiteLister) Close() error { return l.db.Close() }

// HasGribExtension reports whether path looks like a GRIB file by
// extension (.grib, .grib1, .grib2), case-insensitively.
func HasGribExtension(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".grib", ".grib1", ".grib2":
		return true
	default:
		return false
	}
}

// GribFiles lists every file under dir with a recognised GRIB extension.
func GribFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && HasGribExtension(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// Scan indexes every .grib/.grib1/.grib2 file under dir.
func (l *SQLiteLister) Scan(ctx context.Context, dir string) error {
	files, err := GribFiles(dir)
	if err != nil {
		return err
	}
	for _, path := range files {
		if err := l.ScanFile(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

// ScanFile indexes a single GRIB file, merging into whatever is already
// indexed for it.
func (l *SQLiteLister) ScanFile(ctx context.Context, path string) error {
	acc, err := accessor.NewFile(path)
	if err != nil {
		return fmt.Errorf("catalogue: open %s: %w", path, err)
	}
	defer acc.Close()

	offsets, err := jumpinfo.EnumerateMessages(ctx, acc)
	if err != nil {
		return fmt.Errorf("catalogue: enumerate %s: %w", path, err)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalogue: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO entries (path, offset, param, date, time, year, month)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(path, offset) DO UPDATE SET
	param = excluded.param, date = excluded.date, time = excluded.time,
	year = excluded.year, month = excluded.month`)
	if err != nil {
		return fmt.Errorf("catalogue: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, offset := range offsets {
		f, err := scanFields(ctx, acc, offset)
		if err != nil {
			return fmt.Errorf("catalogue: scan fields for %s at %d: %w", path, offset, err)
		}
		year, month := "", ""
		if len(f.date) == 8 {
			year, month = f.date[0:4], f.date[4:6]
		}
		if _, err := stmt.ExecContext(ctx, path, offset, f.param, f.date, f.time, year, month); err != nil {
			return fmt.Errorf("catalogue: insert %s at %d: %w", path, offset, err)
		}
	}
	return tx.Commit()
}

// List returns every Entry matching q; zero-value fields in q match any
// value.
func (l *SQLiteLister) List(ctx context.Context, q Query) ([]Entry, error) {
	var where []string
	var args []any
	add := func(col, val string) {
		if val != "" {
			where = append(where, col+" = ?")
			args = append(args, val)
		}
	}
	add("param", q.Param)
	add("date", q.Date)
	add("time", q.Time)
	add("year", q.Year)
	add("month", q.Month)

	query := "SELECT path, offset, param, date, time, year, month FROM entries"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("catalogue: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Path, &e.Offset, &e.Param, &e.Date, &e.Time, &e.Year, &e.Month); err != nil {
			return nil, fmt.Errorf("catalogue: scan row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Axes returns the distinct values indexed for each of param, date,
// time, year, and month.
func (l *SQLiteLister) Axes(ctx context.Context) (map[string][]string, error) {
	axes := make(map[string][]string)
	for _, col := range []string{"param", "date", "time", "year", "month"} {
		rows, err := l.db.QueryContext(ctx, fmt.Sprintf("SELECT DISTINCT %s FROM entries WHERE %s != '' ORDER BY %s", col, col, col))
		if err != nil {
			return nil, fmt.Errorf("catalogue: axes query for %s: %w", col, err)
		}
		var values []string
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				rows.Close()
				return nil, fmt.Errorf("catalogue: scan axis %s: %w", col, err)
			}
			values = append(values, v)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
		axes[col] = values
	}
	return axes, nil
}

var _ Lister = (*SQLiteLister)(nil)
