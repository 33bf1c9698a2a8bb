package report

import (
	"bytes"
	"strings"
)

const (
	queryMarker     = "Query="
	alignmentMarker = "Sequences producing significant alignments"
)

// Blast is the dialect of NCBI BLAST plain-text reports.
//
// Records start at "Query=" lines. A record has alignments when it contains the
// "Sequences producing significant alignments" summary header. The search type
// comes from the program banner (BLASTN, BLASTP, BLASTX, TBLASTN, TBLASTX).
type Blast struct{}

func (Blast) Name() string { return "blast" }

// RecordKey returns the first whitespace-delimited token after "Query=".
// A bare "Query=" line still starts a record, with an empty key.
func (Blast) RecordKey(line []byte) (string, bool) {
	if !bytes.HasPrefix(line, []byte(queryMarker)) {
		return "", false
	}
	rest := bytes.TrimLeft(line[len(queryMarker):], " \t")
	end := bytes.IndexAny(rest, " \t\r\n\v\f")
	if end < 0 {
		end = len(rest)
	}
	return string(rest[:end]), true
}

func (Blast) HasAlignments(line []byte) bool {
	return bytes.HasPrefix(line, []byte(alignmentMarker))
}

// SearchType matches the program banner at the start of a line, e.g.
// "BLASTN 2.2.26 [Sep-21-2011]" or "TBLASTX 2.12.0+", and returns the
// upper-cased program token.
func (Blast) SearchType(line []byte) (string, bool) {
	token := line
	if end := bytes.IndexAny(line, " \t\r\n"); end >= 0 {
		token = line[:end]
	}
	label := strings.ToUpper(strings.TrimRight(string(token), "+:"))
	switch label {
	case "BLASTN", "BLASTP", "BLASTX", "TBLASTN", "TBLASTX":
		return label, true
	}
	return "", false
}

// Description returns the text following the key on a "Query=" line.
func (b Blast) Description(line []byte) string {
	key, ok := b.RecordKey(line)
	if !ok {
		return ""
	}
	rest := bytes.TrimLeft(line[len(queryMarker):], " \t")
	rest = rest[len(key):]
	return string(bytes.TrimSpace(rest))
}
