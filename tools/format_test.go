package tools

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lexandro/blastindex-mcp/engine"
	"github.com/lexandro/blastindex-mcp/index"
)

func Test_FormatKeyResults(t *testing.T) {
	got := FormatKeyResults("run.blast", []index.Entry{
		{ID: 1, Offset: 0, HasAlignments: true, SearchType: "BLASTP", Key: "p1"},
		{ID: 2, Offset: 812, Key: "p2"},
	})

	if !strings.Contains(got, "Found 2 keys in run.blast") {
		t.Errorf("expected header, got:\n%s", got)
	}
	if !strings.Contains(got, "p1  (#1, offset 0, BLASTP, hits)") {
		t.Errorf("expected p1 line, got:\n%s", got)
	}
	if !strings.Contains(got, "p2  (#2, offset 812, no hits)") {
		t.Errorf("expected p2 line without search type, got:\n%s", got)
	}
	if FormatKeyResults("run.blast", nil) != "No keys matched." {
		t.Error("expected empty message")
	}
}

func Test_FormatSearchResults(t *testing.T) {
	hits := []index.CatalogHit{
		{Entry: index.Entry{ID: 4, Key: "q4", SearchType: "BLASTN"}, Description: "16S rRNA"},
	}
	got := FormatSearchResults("run.blast", hits, 1)

	if !strings.Contains(got, "── q4 ──  #4, BLASTN, no hits") {
		t.Errorf("expected hit header, got:\n%s", got)
	}
	if !strings.Contains(got, "  16S rRNA") {
		t.Errorf("expected description, got:\n%s", got)
	}
	if FormatSearchResults("run.blast", nil, 0) != "No records matched." {
		t.Error("expected empty message")
	}
}

func Test_DescribeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"missing key", index.NotFound("q9"), "Key not found: q9"},
		{"ambiguous", engine.ErrAmbiguousReport, "pass the report parameter"},
		{"unknown report", engine.ErrUnknownReport, "unknown report"},
		{"classified", index.ErrIndexRead, "Error [index_read]"},
		{"other", errors.New("boom"), "Error [unknown]: boom"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := describeError(tc.err); !strings.Contains(got, tc.want) {
				t.Errorf("expected %q in %q", tc.want, got)
			}
		})
	}
}

func Test_formatFileSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tc := range tests {
		if got := formatFileSize(tc.bytes); got != tc.want {
			t.Errorf("formatFileSize(%d) = %q, want %q", tc.bytes, got, tc.want)
		}
	}
}

func Test_formatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{5 * time.Second, "5s"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 15*time.Minute, "2h15m"},
	}
	for _, tc := range tests {
		if got := formatDuration(tc.d); got != tc.want {
			t.Errorf("formatDuration(%s) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
