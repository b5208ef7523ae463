// Package catalogue is a minimal stand-in for the archive catalogue the
// core decode path treats as external: given a directory of GRIB files,
// it indexes each message's (path, offset) against a handful of
// identifying fields so a caller can resolve "temperature at 2026-08-01
// 00z" to the (file, offset) pair engine.Engine actually consumes.
// Grounded on Lister.h/.cc and FDBPlugin.cc, reworked from an FDB-backed
// MarsRequest lookup into a self-contained SQLite index, since this
// module has no FDB to query against.
package catalogue

import "context"

// Entry is one indexed GRIB message.
type Entry struct {
	Path   string
	Offset uint64
	Param  string // "<discipline>.<category>.<number>"
	Date   string // YYYYMMDD, from the identification section's reference time
	Time   string // HHMM
	Year   string
	Month  string
}

// Query selects Entries by any combination of non-empty fields.
type Query struct {
	Param string
	Date  string
	Time  string
	Year  string
	Month string
}

// Lister resolves catalogue queries to file locations, and reports the
// distinct values seen for each indexed axis. It is the boundary named
// in the spec's "archive-catalogue lookup" non-goal: engine.Engine never
// imports this package, only a CLI command wires the two together.
type Lister interface {
	// Scan indexes every ".grib"/".grib1"/".grib2" file under dir, merging into
	// whatever is already indexed.
	Scan(ctx context.Context, dir string) error
	// List returns every Entry matching q; zero-value fields are
	// wildcards.
	List(ctx context.Context, q Query) ([]Entry, error)
	// Axes returns the distinct value set for each indexed field,
	// mirroring FDBLister::axes.
	Axes(ctx context.Context) (map[string][]string, error)
}
