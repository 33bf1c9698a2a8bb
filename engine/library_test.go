package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lexandro/blastindex-mcp/ignore"
	"github.com/lexandro/blastindex-mcp/index"
)

func Test_Discover_OpensReports(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, "runs", "a"), 0755)
	os.MkdirAll(filepath.Join(root, "skip"), 0755)
	writeFile(t, root, "one.blast", "Query= one\n")
	writeFile(t, filepath.Join(root, "runs", "a"), "two.out", "Query= two\nQuery= three\n")
	writeFile(t, root, "query.fasta", ">one\nACGT\n")
	writeFile(t, root, "binary.out", "Query=\x00\x01")
	writeFile(t, filepath.Join(root, "skip"), "hidden.blast", "Query= hidden\n")
	writeFile(t, root, ignore.IgnoreFileName, "skip/\n")

	matcher := ignore.NewMatcher(ignore.MatcherOptions{RootDir: root})
	lib, count, err := Discover(LibraryOptions{
		RootDir: root,
		Matcher: matcher,
		Engine:  Options{Logger: testLogger()},
	})
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	defer lib.Close()

	if count != 2 {
		t.Fatalf("expected 2 reports, got %d (%v)", count, lib.Names())
	}
	names := lib.Names()
	if names[0] != "one.blast" || names[1] != "runs/a/two.out" {
		t.Errorf("unexpected names %v", names)
	}

	e, err := lib.Get("runs/a/two.out")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if e.Index().Len() != 2 {
		t.Errorf("expected 2 records, got %d", e.Index().Len())
	}
	if _, err := os.Stat(filepath.Join(root, "runs", "a", "two.out.idx")); err != nil {
		t.Errorf("expected index next to report: %v", err)
	}
}

func Test_Discover_MissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "absent")
	if _, _, err := Discover(LibraryOptions{RootDir: root, Engine: Options{Logger: testLogger()}}); err == nil {
		t.Fatal("expected an error for a missing root")
	}
}

func Test_Discover_IndexDir(t *testing.T) {
	root := t.TempDir()
	indexDir := t.TempDir()
	os.MkdirAll(filepath.Join(root, "sub"), 0755)
	writeFile(t, filepath.Join(root, "sub"), "r.blast", "Query= r\n")

	lib, count, err := Discover(LibraryOptions{RootDir: root, IndexDir: indexDir, Engine: Options{Logger: testLogger()}})
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	defer lib.Close()

	if count != 1 {
		t.Fatalf("expected 1 report, got %d", count)
	}
	if _, err := os.Stat(filepath.Join(indexDir, "sub", "r.blast.idx")); err != nil {
		t.Errorf("expected index under index dir: %v", err)
	}
}

func Test_Library_GetDefaultsToOnlyReport(t *testing.T) {
	dir := t.TempDir()
	reportPath := writeFile(t, dir, "only.blast", twoRecordReport())

	lib, err := SingleReport(reportPath, filepath.Join(dir, "only.idx"), Options{Logger: testLogger()})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer lib.Close()

	e, err := lib.Get("")
	if err != nil {
		t.Fatalf("expected the only report, got %v", err)
	}
	if e.ReportPath() != reportPath {
		t.Errorf("unexpected report %s", e.ReportPath())
	}
	if _, err := lib.Get("other.blast"); !errors.Is(err, ErrUnknownReport) {
		t.Errorf("expected ErrUnknownReport, got %v", err)
	}
}

func Test_Library_GetAmbiguous(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.blast", "Query= a\n")
	writeFile(t, root, "b.blast", "Query= b\n")

	lib, _, err := Discover(LibraryOptions{RootDir: root, Engine: Options{Logger: testLogger()}})
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	defer lib.Close()

	if _, err := lib.Get(""); !errors.Is(err, ErrAmbiguousReport) {
		t.Errorf("expected ErrAmbiguousReport, got %v", err)
	}
}

func Test_Library_OpenAndRemove(t *testing.T) {
	root := t.TempDir()
	lib := NewLibrary(root, "", Options{Logger: testLogger()})
	path := writeFile(t, root, "late.blast", "Query= late\n")

	if _, err := lib.Open(path); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, ok := lib.Lookup(path); !ok {
		t.Fatal("expected report to be served")
	}
	if !lib.Remove(path) {
		t.Fatal("expected remove to report success")
	}
	if lib.Len() != 0 {
		t.Errorf("expected empty library, got %d", lib.Len())
	}
	if _, err := lib.Get(""); !errors.Is(err, ErrUnknownReport) {
		t.Errorf("expected ErrUnknownReport for empty library, got %v", err)
	}
}

func Test_Library_ReindexAll(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.blast", "Query= a\n")
	bPath := writeFile(t, root, "b.blast", "Query= b\n")

	lib, _, err := Discover(LibraryOptions{RootDir: root, Engine: Options{Logger: testLogger()}})
	if err != nil {
		t.Fatalf("discover failed: %v", err)
	}
	defer lib.Close()

	writeFile(t, root, "b.blast", "Query= b\nQuery= c\n")
	results, err := lib.ReindexAll(context.Background(), 2)
	if err != nil {
		t.Fatalf("reindex failed: %v", err)
	}
	if len(results) != 2 || results["a.blast"].Records != 1 || results["b.blast"].Records != 2 {
		t.Errorf("unexpected results %+v", results)
	}

	os.Remove(bPath)
	if _, err := lib.ReindexAll(context.Background(), 2); !errors.Is(err, index.ErrReportUnreadable) {
		t.Errorf("expected ErrReportUnreadable, got %v", err)
	}
}
