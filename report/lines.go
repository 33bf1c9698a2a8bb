package report

import (
	"bufio"
	"errors"
	"io"
)

const readBufferSize = 256 * 1024

// LineReader reads raw lines, terminators included, and tracks the byte
// offset of each line start. Lines longer than the buffer are reassembled.
type LineReader struct {
	r      *bufio.Reader
	offset int64
	long   []byte
}

// NewLineReader returns a LineReader whose first line starts at offset base.
func NewLineReader(r io.Reader, base int64) *LineReader {
	return &LineReader{r: bufio.NewReaderSize(r, readBufferSize), offset: base}
}

// Next returns the next line and the offset of its first byte. The returned
// slice is only valid until the following call. At end of input Next returns
// io.EOF with an empty line; a final line without a terminator is returned
// with a nil error.
func (lr *LineReader) Next() ([]byte, int64, error) {
	start := lr.offset
	line, err := lr.r.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		lr.long = append(lr.long[:0], line...)
		for errors.Is(err, bufio.ErrBufferFull) {
			line, err = lr.r.ReadSlice('\n')
			lr.long = append(lr.long, line...)
		}
		line = lr.long
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, start, err
	}
	if len(line) == 0 {
		return nil, start, io.EOF
	}
	lr.offset += int64(len(line))
	return line, start, nil
}
