package index

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lexandro/blastindex-mcp/report"
)

// BuildOptions configures a report scan.
type BuildOptions struct {
	Dialect report.Dialect // nil means report.Blast
	// RejectDuplicates fails the build with ErrDuplicateKey when a key repeats.
	// Otherwise the last record with the key wins on lookup.
	RejectDuplicates bool
}

// recordState accumulates the metadata of the record being scanned.
type recordState struct {
	entry Entry
	open  bool
}

// scanState is everything the scan carries from line to line.
type scanState struct {
	current recordState
	// carriedType is the most recent search-type banner. Reports print the
	// banner ahead of each query block, so it seeds the next record.
	carriedType string
	nextID      int
	entries     []Entry
	seen        map[string]struct{}
}

// Build scans the report at reportPath once and returns its index.
func Build(reportPath string, opts BuildOptions) (*Index, error) {
	f, err := os.Open(reportPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReportUnreadable, err)
	}
	defer f.Close()

	entries, err := Scan(f, opts)
	if err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: reading %s: %w", ErrReportUnreadable, reportPath, err)
	}
	return New(entries), nil
}

// Scan reads a report stream and returns one entry per record in encounter
// order. Offsets are relative to the start of r.
func Scan(r io.Reader, opts BuildOptions) ([]Entry, error) {
	dialect := report.Default(opts.Dialect)
	state := &scanState{nextID: 1}
	if opts.RejectDuplicates {
		state.seen = make(map[string]struct{})
	}

	lines := report.NewLineReader(r, 0)
	for {
		line, offset, err := lines.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := state.consume(dialect, line, offset); err != nil {
			return nil, err
		}
	}
	if err := state.closeRecord(); err != nil {
		return nil, err
	}
	return state.entries, nil
}

func (s *scanState) consume(dialect report.Dialect, line []byte, offset int64) error {
	if key, ok := dialect.RecordKey(line); ok {
		if err := s.closeRecord(); err != nil {
			return err
		}
		s.current = recordState{
			entry: Entry{ID: s.nextID, Offset: offset, SearchType: s.carriedType, Key: key},
			open:  true,
		}
		s.nextID++
		return nil
	}

	if label, ok := dialect.SearchType(line); ok {
		s.carriedType = label
		if s.current.open && s.current.entry.SearchType == "" {
			s.current.entry.SearchType = label
		}
		return nil
	}

	if s.current.open && !s.current.entry.HasAlignments && dialect.HasAlignments(line) {
		s.current.entry.HasAlignments = true
	}
	return nil
}

func (s *scanState) closeRecord() error {
	if !s.current.open {
		return nil
	}
	e := s.current.entry
	s.current = recordState{}
	if s.seen != nil {
		if _, dup := s.seen[e.Key]; dup {
			return &KeyError{Key: e.Key, Err: ErrDuplicateKey}
		}
		s.seen[e.Key] = struct{}{}
	}
	s.entries = append(s.entries, e)
	return nil
}
