package report

import (
	"os"
	"path/filepath"
	"testing"
)

func Test_IsBinaryContent_TextFile(t *testing.T) {
	content := []byte("BLASTN 2.2.26\n\nQuery= alpha\n")
	if IsBinaryContent(content) {
		t.Error("expected text content to not be detected as binary")
	}
}

func Test_IsBinaryContent_BinaryFile(t *testing.T) {
	content := []byte{0x89, 0x50, 0x4E, 0x47, 0x00, 0x00}
	if !IsBinaryContent(content) {
		t.Error("expected binary content to be detected")
	}
}

func Test_IsBinaryContent_Empty(t *testing.T) {
	if IsBinaryContent([]byte{}) {
		t.Error("expected empty content to not be detected as binary")
	}
}

func Test_IsBinaryFile(t *testing.T) {
	dir := t.TempDir()
	text := filepath.Join(dir, "a.blast")
	bin := filepath.Join(dir, "a.bin")
	os.WriteFile(text, []byte("Query= alpha\n"), 0644)
	os.WriteFile(bin, []byte{'Q', 0, 1}, 0644)

	if IsBinaryFile(text) {
		t.Error("expected text report to not be binary")
	}
	if !IsBinaryFile(bin) {
		t.Error("expected null bytes to mark the file binary")
	}
	if !IsBinaryFile(filepath.Join(dir, "missing")) {
		t.Error("expected missing file to be treated as binary")
	}
}
