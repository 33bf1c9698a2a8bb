package report

import (
	"io"
	"os"
)

// sniffSize is how much of a file is inspected for binary content.
const sniffSize = 512

// IsBinaryContent checks if the given byte slice appears to be binary content.
// It checks the first 512 bytes (or less) for null bytes.
func IsBinaryContent(data []byte) bool {
	checkSize := min(len(data), sniffSize)
	for i := 0; i < checkSize; i++ {
		if data[i] == 0 {
			return true
		}
	}
	return false
}

// IsBinaryFile reads the head of the file at path and reports whether it looks
// binary. Unreadable files are reported as binary so callers skip them.
func IsBinaryFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	buf := make([]byte, sniffSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return true
	}
	return IsBinaryContent(buf[:n])
}
