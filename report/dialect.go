// Package report recognizes record boundaries and per-record metadata in
// multi-record alignment search reports.
package report

// Dialect recognizes the structure of one report format. The scanner and the
// retriever only ever talk to a Dialect, so another report layout can be
// supported by implementing this interface.
type Dialect interface {
	// Name identifies the dialect in logs and status output.
	Name() string

	// RecordKey reports whether line starts a new record and, if so, returns
	// the record's key.
	RecordKey(line []byte) (key string, ok bool)

	// HasAlignments reports whether line marks a record as having hits.
	HasAlignments(line []byte) bool

	// SearchType returns the search program label if line is a program header.
	SearchType(line []byte) (label string, ok bool)
}

// Describer is implemented by dialects that can extract a free-text
// description from a record-start line.
type Describer interface {
	Description(line []byte) string
}

// Default returns d, or the BLAST dialect when d is nil.
func Default(d Dialect) Dialect {
	if d != nil {
		return d
	}
	return Blast{}
}
