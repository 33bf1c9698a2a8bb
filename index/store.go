package index

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	fieldCount = 5
	trueToken  = "TRUE"
	falseToken = "FALSE"
)

// Encode writes idx as tab-separated lines:
//
//	<id>\t<offset>\t<TRUE|FALSE>\t<search_type>\t<key>\n
//
// in index order, without a header. A key or search type containing a tab,
// CR or LF cannot be decoded again, so the index is rejected with
// ErrIndexWrite before anything is written.
func Encode(w io.Writer, idx *Index) error {
	for _, e := range idx.entries {
		if !encodable(e.Key) {
			return fmt.Errorf("%w: record %d: key %q contains a tab or line break", ErrIndexWrite, e.ID, e.Key)
		}
		if !encodable(e.SearchType) {
			return fmt.Errorf("%w: record %d: search type %q contains a tab or line break", ErrIndexWrite, e.ID, e.SearchType)
		}
	}

	bw := bufio.NewWriter(w)
	for _, e := range idx.entries {
		aligned := falseToken
		if e.HasAlignments {
			aligned = trueToken
		}
		if _, err := fmt.Fprintf(bw, "%d\t%d\t%s\t%s\t%s\n", e.ID, e.Offset, aligned, e.SearchType, e.Key); err != nil {
			return fmt.Errorf("%w: %w", ErrIndexWrite, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %w", ErrIndexWrite, err)
	}
	return nil
}

func encodable(field string) bool {
	return !strings.ContainsAny(field, "\t\r\n")
}

// Decode parses the tab-separated form written by Encode. Any malformed line
// rejects the whole input with a *ParseError; name is used in error messages.
func Decode(r io.Reader, name string) (*Index, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		e, reason := parseLine(strings.TrimSuffix(scanner.Text(), "\r"))
		if reason != "" {
			return nil, &ParseError{Path: name, Line: lineNumber, Reason: reason}
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrIndexRead, name, err)
	}
	return New(entries), nil
}

// parseLine returns the entry on line, or a non-empty reason it is malformed.
func parseLine(line string) (Entry, string) {
	fields := strings.Split(line, "\t")
	if len(fields) != fieldCount {
		return Entry{}, fmt.Sprintf("expected %d tab-separated fields, got %d", fieldCount, len(fields))
	}

	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return Entry{}, fmt.Sprintf("invalid id %q", fields[0])
	}
	offset, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || offset < 0 {
		return Entry{}, fmt.Sprintf("invalid byte offset %q", fields[1])
	}

	var aligned bool
	switch fields[2] {
	case trueToken:
		aligned = true
	case falseToken:
	default:
		return Entry{}, fmt.Sprintf("invalid alignment flag %q (want TRUE or FALSE)", fields[2])
	}

	return Entry{
		ID:            id,
		Offset:        offset,
		HasAlignments: aligned,
		SearchType:    fields[3],
		Key:           fields[4],
	}, ""
}

// Persist writes idx to indexPath. The index is written to a temp file in the
// same directory and renamed into place, so readers never see a partial file.
func Persist(idx *Index, indexPath string) error {
	dir := filepath.Dir(indexPath)
	tmpFile, err := os.CreateTemp(dir, ".blastindex-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file in %s: %w", ErrIndexWrite, dir, err)
	}
	tmpPath := tmpFile.Name()

	if err := Encode(tmpFile, idx); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", indexPath, err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: closing %s: %w", ErrIndexWrite, tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: chmod %s: %w", ErrIndexWrite, tmpPath, err)
	}
	if err := os.Rename(tmpPath, indexPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: renaming %s to %s: %w", ErrIndexWrite, tmpPath, indexPath, err)
	}
	return nil
}

// Load reads an index written by Persist.
func Load(indexPath string) (*Index, error) {
	f, err := os.Open(indexPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexRead, err)
	}
	defer f.Close()
	return Decode(f, indexPath)
}

// Exists reports whether an index file is present at indexPath. Any stat
// error other than "not exist" counts as present, so Load reports it.
func Exists(indexPath string) bool {
	_, err := os.Stat(indexPath)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}
