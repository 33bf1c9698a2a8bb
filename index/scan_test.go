package index

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// threeRecordReport is a legacy BLAST report with a program banner ahead of
// every query block. gamma has no hits and is not newline-terminated.
const threeRecordReport = `BLASTN 2.2.26 [Sep-21-2011]

Reference: Altschul, Stephen F., Thomas L. Madden, Alejandro A. Schaffer,
Jinghui Zhang, Zheng Zhang, Webb Miller, and David J. Lipman (1997).

Query= alpha Homo sapiens test transcript
         (120 letters)

Database: refseq_rna
Sequences producing significant alignments:                      (bits) Value

ref|NM_000945.3|  Homo sapiens protein phosphatase 3               238   1e-62

>ref|NM_000945.3| Homo sapiens protein phosphatase 3
 Score =  238 bits (120), Expect = 1e-62
Query: 1   ACGTACGTAC 10
Sbjct: 1   ACGTACGTAC 10

BLASTP 2.2.26 [Sep-21-2011]

Query= beta second protein
         (80 letters)

Sequences producing significant alignments:                      (bits) Value

sp|P12345|  Example protein                                       100   2e-20

BLASTP 2.2.26 [Sep-21-2011]

Query= gamma
         (12 letters)

 ***** No hits found *****
`

func writeReport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.blast")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write report: %v", err)
	}
	return path
}

func Test_Build_ThreeRecords(t *testing.T) {
	path := writeReport(t, threeRecordReport)

	idx, err := Build(path, BuildOptions{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if idx.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", idx.Len())
	}

	want := []Entry{
		{ID: 1, Offset: int64(strings.Index(threeRecordReport, "Query= alpha")), HasAlignments: true, SearchType: "BLASTN", Key: "alpha"},
		{ID: 2, Offset: int64(strings.Index(threeRecordReport, "Query= beta")), HasAlignments: true, SearchType: "BLASTP", Key: "beta"},
		{ID: 3, Offset: int64(strings.Index(threeRecordReport, "Query= gamma")), HasAlignments: false, SearchType: "BLASTP", Key: "gamma"},
	}
	for i, e := range idx.Entries() {
		if e != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, e, want[i])
		}
	}
}

func Test_Build_OffsetsPointAtMarker(t *testing.T) {
	path := writeReport(t, threeRecordReport)
	idx, err := Build(path, BuildOptions{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	for _, e := range idx.Entries() {
		if !strings.HasPrefix(string(data[e.Offset:]), "Query= "+e.Key) {
			t.Errorf("offset %d of %q does not start with its marker line", e.Offset, e.Key)
		}
	}
}

func Test_Build_CompletenessMatchesMarkerCount(t *testing.T) {
	var b strings.Builder
	b.WriteString("BLASTN 2.12.0+\n\n")
	for i := 0; i < 250; i++ {
		b.WriteString("Query= q")
		b.WriteString(strings.Repeat("x", i%7))
		b.WriteString(string(rune('a' + i%26)))
		b.WriteString("\n\nLength=10\n")
		if i%3 == 0 {
			b.WriteString("Sequences producing significant alignments:\n")
		}
		b.WriteString("\n")
	}
	content := b.String()
	markers := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "Query=") {
			markers++
		}
	}

	idx, err := Build(writeReport(t, content), BuildOptions{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if idx.Len() != markers {
		t.Errorf("expected %d entries, got %d", markers, idx.Len())
	}
	for i, e := range idx.Entries() {
		if e.ID != i+1 {
			t.Fatalf("expected id %d, got %d", i+1, e.ID)
		}
		if e.SearchType != "BLASTN" {
			t.Fatalf("expected carried search type BLASTN, got %q", e.SearchType)
		}
		if e.HasAlignments != (i%3 == 0) {
			t.Fatalf("entry %d: unexpected alignment flag %v", i, e.HasAlignments)
		}
	}
}

func Test_Build_EmptyReport(t *testing.T) {
	idx, err := Build(writeReport(t, "BLASTN 2.2.26\n\nno queries here\n"), BuildOptions{})
	if err != nil {
		t.Fatalf("expected no error for report without records, got %v", err)
	}
	if idx.Len() != 0 {
		t.Errorf("expected empty index, got %d entries", idx.Len())
	}
}

func Test_Build_ZeroByteReport(t *testing.T) {
	idx, err := Build(writeReport(t, ""), BuildOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Len() != 0 {
		t.Errorf("expected empty index, got %d", idx.Len())
	}
}

func Test_Build_TruncatedLastRecord(t *testing.T) {
	content := "Query= alpha\nLength=10\nQuery= beta\nSequences producing signif"
	idx, err := Build(writeReport(t, content), BuildOptions{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if idx.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", idx.Len())
	}
	beta, ok := idx.Lookup("beta")
	if !ok {
		t.Fatal("expected beta to be indexed")
	}
	if beta.Offset != int64(strings.Index(content, "Query= beta")) {
		t.Errorf("unexpected beta offset %d", beta.Offset)
	}
	if beta.HasAlignments {
		t.Error("truncated marker must not count as alignments")
	}
}

func Test_Build_SearchTypeFirstInRecordWins(t *testing.T) {
	content := "Query= alpha\nBLASTX 2.2\nTBLASTN 2.2\nQuery= beta\n"
	idx, err := Build(writeReport(t, content), BuildOptions{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	alpha, _ := idx.Lookup("alpha")
	beta, _ := idx.Lookup("beta")
	if alpha.SearchType != "BLASTX" {
		t.Errorf("expected alpha to keep first banner BLASTX, got %q", alpha.SearchType)
	}
	if beta.SearchType != "TBLASTN" {
		t.Errorf("expected beta to inherit the latest banner TBLASTN, got %q", beta.SearchType)
	}
}

func Test_Build_CRLF(t *testing.T) {
	content := "BLASTN 2.2\r\n\r\nQuery= alpha\r\nSequences producing significant alignments:\r\nQuery= beta\r\n"
	idx, err := Build(writeReport(t, content), BuildOptions{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	beta, ok := idx.Lookup("beta")
	if !ok {
		t.Fatal("expected beta without trailing carriage return in key")
	}
	if beta.Offset != int64(strings.Index(content, "Query= beta")) {
		t.Errorf("unexpected offset %d", beta.Offset)
	}
}

func Test_Build_DuplicateKeyLastWins(t *testing.T) {
	content := "Query= dup\nLength=1\nQuery= other\nQuery= dup\nLength=2\n"
	idx, err := Build(writeReport(t, content), BuildOptions{})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if idx.Len() != 3 {
		t.Fatalf("expected duplicates to be kept in order, got %d entries", idx.Len())
	}
	e, _ := idx.Lookup("dup")
	if e.ID != 3 {
		t.Errorf("expected last dup (id 3) to win, got id %d", e.ID)
	}
}

func Test_Build_RejectDuplicates(t *testing.T) {
	content := "Query= dup\nQuery= dup\n"
	_, err := Build(writeReport(t, content), BuildOptions{RejectDuplicates: true})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	var keyErr *KeyError
	if !errors.As(err, &keyErr) || keyErr.Key != "dup" {
		t.Errorf("expected KeyError naming dup, got %v", err)
	}
}

func Test_Build_MissingReport(t *testing.T) {
	_, err := Build(filepath.Join(t.TempDir(), "nope.blast"), BuildOptions{})
	if !errors.Is(err, ErrReportUnreadable) {
		t.Fatalf("expected ErrReportUnreadable, got %v", err)
	}
}
