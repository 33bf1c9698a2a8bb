// Package retrieve extracts single records from a report using a prebuilt index.
//
// Every call opens the report read-only, seeks to the record's offset and
// copies lines until the next record-start line or end of file. Calls keep no
// state between them and are safe to run concurrently.
package retrieve

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lexandro/blastindex-mcp/index"
	"github.com/lexandro/blastindex-mcp/report"
)

// Retriever reads records of one report.
type Retriever struct {
	ReportPath string
	Dialect    report.Dialect // nil means report.Blast
}

// Fetch returns the verbatim text of the record with key, including its own
// record-start line and excluding the next record's.
func (r *Retriever) Fetch(idx *index.Index, key string) (string, error) {
	var builder strings.Builder
	if _, err := r.WriteRecord(&builder, idx, key); err != nil {
		return "", err
	}
	return builder.String(), nil
}

// WriteRecord copies the record with key to w and returns the bytes written.
func (r *Retriever) WriteRecord(w io.Writer, idx *index.Index, key string) (int64, error) {
	entry, ok := idx.Lookup(key)
	if !ok {
		return 0, index.NotFound(key)
	}
	return r.copyRecord(w, entry)
}

// FetchMany fetches keys in order. The first missing key aborts the batch
// and no text is returned.
func (r *Retriever) FetchMany(idx *index.Index, keys []string) ([]string, error) {
	if err := checkKeys(idx, keys); err != nil {
		return nil, err
	}
	records := make([]string, 0, len(keys))
	for _, key := range keys {
		text, err := r.Fetch(idx, key)
		if err != nil {
			return nil, err
		}
		records = append(records, text)
	}
	return records, nil
}

// WriteMany writes the records for keys to w in order, without framing.
// Keys are resolved before anything is written, so a missing key aborts the
// batch with nothing emitted.
func (r *Retriever) WriteMany(w io.Writer, idx *index.Index, keys []string) (int64, error) {
	if err := checkKeys(idx, keys); err != nil {
		return 0, err
	}
	var total int64
	for _, key := range keys {
		n, err := r.WriteRecord(w, idx, key)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func checkKeys(idx *index.Index, keys []string) error {
	for _, key := range keys {
		if _, ok := idx.Lookup(key); !ok {
			return index.NotFound(key)
		}
	}
	return nil
}

func (r *Retriever) copyRecord(w io.Writer, entry index.Entry) (int64, error) {
	f, err := os.Open(r.ReportPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", index.ErrReportUnreadable, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", index.ErrReportUnreadable, err)
	}
	// A record always holds at least its start line, so it cannot begin at EOF.
	if entry.Offset >= info.Size() {
		return 0, fmt.Errorf("%w: offset %d of %q is beyond end of %s (%d bytes)",
			index.ErrReportUnreadable, entry.Offset, entry.Key, r.ReportPath, info.Size())
	}
	if _, err := f.Seek(entry.Offset, io.SeekStart); err != nil {
		return 0, fmt.Errorf("%w: seeking to %d: %w", index.ErrReportUnreadable, entry.Offset, err)
	}

	dialect := report.Default(r.Dialect)
	lines := report.NewLineReader(f, entry.Offset)
	bw := bufio.NewWriter(w)

	var written int64
	first := true
	for {
		line, _, err := lines.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return written, fmt.Errorf("%w: reading %s: %w", index.ErrReportUnreadable, r.ReportPath, err)
		}
		if !first {
			if _, next := dialect.RecordKey(line); next {
				break
			}
		}
		first = false

		n, err := bw.Write(line)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, bw.Flush()
}
