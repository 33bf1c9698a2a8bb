package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

const alphaRecord = "Query= alpha first\n\nSequences producing significant alignments:\n\n"
const betaRecord = "Query= beta\n\n ***** No hits found *****\n"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeTestReport(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func runCommand(args []string, stdin string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func Test_run_Usage(t *testing.T) {
	if code, _, _ := runCommand(nil, ""); code != exitUsage {
		t.Errorf("expected usage exit for no command, got %d", code)
	}
	code, _, stderr := runCommand([]string{"frobnicate"}, "")
	if code != exitUsage || !strings.Contains(stderr, "unknown command") {
		t.Errorf("expected usage exit for unknown command, got %d: %s", code, stderr)
	}
	if code, stdout, _ := runCommand([]string{"help"}, ""); code != exitOK || !strings.Contains(stdout, "Exit status") {
		t.Errorf("expected help text, got %d: %s", code, stdout)
	}
}

func Test_runIndex_BuildsThenReuses(t *testing.T) {
	dir := t.TempDir()
	reportPath := writeTestReport(t, dir, "run.blast", alphaRecord+betaRecord)

	code, stdout, stderr := runCommand([]string{"index", reportPath}, "")
	if code != exitOK {
		t.Fatalf("index failed with %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "indexed "+reportPath+": 2 records (1 with hits)") {
		t.Errorf("unexpected output: %s", stdout)
	}
	data, err := os.ReadFile(reportPath + ".idx")
	if err != nil {
		t.Fatalf("expected index file: %v", err)
	}
	if want := "1\t0\tTRUE\t\talpha\n2\t" + strconv.Itoa(len(alphaRecord)) + "\tFALSE\t\tbeta\n"; string(data) != want {
		t.Errorf("unexpected index:\n%q\nwant:\n%q", data, want)
	}

	_, stdout, _ = runCommand([]string{"index", reportPath}, "")
	if !strings.Contains(stdout, "index exists for") {
		t.Errorf("expected existing index to be reused, got: %s", stdout)
	}
	_, stdout, _ = runCommand([]string{"index", "-force", reportPath}, "")
	if !strings.HasPrefix(stdout, "indexed ") {
		t.Errorf("expected -force to rebuild, got: %s", stdout)
	}
}

func Test_runIndex_Errors(t *testing.T) {
	if code, _, _ := runCommand([]string{"index"}, ""); code != exitUsage {
		t.Errorf("expected usage exit without report, got %d", code)
	}
	code, _, stderr := runCommand([]string{"index", filepath.Join(t.TempDir(), "missing.blast")}, "")
	if code != exitError || !strings.Contains(stderr, "report") {
		t.Errorf("expected error exit for missing report, got %d: %s", code, stderr)
	}

	dir := t.TempDir()
	reportPath := writeTestReport(t, dir, "dup.blast", "Query= a\nQuery= a\n")
	if code, _, _ := runCommand([]string{"index", "-reject-duplicates", reportPath}, ""); code != exitError {
		t.Errorf("expected error exit for duplicate keys, got %d", code)
	}
}

func Test_runIndex_ForceRepairsCorruptIndex(t *testing.T) {
	dir := t.TempDir()
	reportPath := writeTestReport(t, dir, "r.blast", alphaRecord+betaRecord)
	writeTestReport(t, dir, "r.blast.idx", "garbage line\n")

	if code, _, _ := runCommand([]string{"index", reportPath}, ""); code != exitError {
		t.Errorf("expected error exit for a corrupt index without -force, got %d", code)
	}
	code, stdout, stderr := runCommand([]string{"index", "-force", reportPath}, "")
	if code != exitOK {
		t.Fatalf("index -force failed with %d: %s", code, stderr)
	}
	if !strings.HasPrefix(stdout, "indexed "+reportPath+": 2 records") {
		t.Errorf("unexpected output: %s", stdout)
	}
	if code, stdout, _ := runCommand([]string{"fetch", reportPath, "beta"}, ""); code != exitOK || stdout != betaRecord {
		t.Errorf("expected repaired index to serve beta, got %d: %q", code, stdout)
	}
}

func Test_runFetch_WritesRecordsInOrder(t *testing.T) {
	dir := t.TempDir()
	reportPath := writeTestReport(t, dir, "run.blast", alphaRecord+betaRecord)

	code, stdout, stderr := runCommand([]string{"fetch", reportPath, "beta", "alpha"}, "")
	if code != exitOK {
		t.Fatalf("fetch failed with %d: %s", code, stderr)
	}
	if stdout != betaRecord+alphaRecord {
		t.Errorf("unexpected output:\n%q", stdout)
	}
}

func Test_runFetch_KeysFromStdin(t *testing.T) {
	dir := t.TempDir()
	reportPath := writeTestReport(t, dir, "run.blast", alphaRecord+betaRecord)

	code, stdout, _ := runCommand([]string{"fetch", "-keys", "-", reportPath}, "beta\n\n  alpha  \n")
	if code != exitOK {
		t.Fatalf("expected success, got %d", code)
	}
	if stdout != betaRecord+alphaRecord {
		t.Errorf("unexpected output:\n%q", stdout)
	}
}

func Test_runFetch_MissingKeyExitsWithoutOutput(t *testing.T) {
	dir := t.TempDir()
	reportPath := writeTestReport(t, dir, "run.blast", alphaRecord+betaRecord)

	code, stdout, stderr := runCommand([]string{"fetch", reportPath, "alpha", "gamma", "beta"}, "")
	if code != 3 {
		t.Errorf("expected exit 3 for a missing key, got %d", code)
	}
	if stdout != "" {
		t.Errorf("expected no output, got %q", stdout)
	}
	if !strings.Contains(stderr, "gamma") {
		t.Errorf("expected missing key in error, got: %s", stderr)
	}
}

func Test_runFetch_Usage(t *testing.T) {
	dir := t.TempDir()
	reportPath := writeTestReport(t, dir, "run.blast", alphaRecord)

	if code, _, _ := runCommand([]string{"fetch"}, ""); code != exitUsage {
		t.Errorf("expected usage exit without report, got %d", code)
	}
	if code, _, _ := runCommand([]string{"fetch", reportPath}, ""); code != exitUsage {
		t.Errorf("expected usage exit without keys, got %d", code)
	}
	if code, _, _ := runCommand([]string{"fetch", "-keys", filepath.Join(dir, "none.txt"), reportPath}, ""); code != exitError {
		t.Errorf("expected error exit for unreadable key list, got %d", code)
	}
}

func Test_runServe_RejectsConflictingFlags(t *testing.T) {
	code, _, stderr := runCommand([]string{"serve", "-report", "a.blast", "-root", "."}, "")
	if code != exitUsage || !strings.Contains(stderr, "mutually exclusive") {
		t.Errorf("expected usage exit, got %d: %s", code, stderr)
	}
}

func Test_defaultIndexPath(t *testing.T) {
	if got := defaultIndexPath("/data/run.blast", ""); got != "/data/run.blast.idx" {
		t.Errorf("unexpected default %s", got)
	}
	if got := defaultIndexPath("/data/run.blast", "/idx/run.idx"); got != "/idx/run.idx" {
		t.Errorf("unexpected explicit path %s", got)
	}
}
