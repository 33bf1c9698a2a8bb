package index

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the indexer, the index store and the retriever.
// Match them with errors.Is.
var (
	// ErrReportUnreadable: the source report is missing, unopenable, or an
	// offset points past its end.
	ErrReportUnreadable = errors.New("report unreadable")
	// ErrIndexRead: the index file is unreadable or malformed.
	ErrIndexRead = errors.New("index read error")
	// ErrIndexWrite: the index file could not be written.
	ErrIndexWrite = errors.New("index write error")
	// ErrKeyNotFound: the lookup key is absent from the index.
	ErrKeyNotFound = errors.New("key not found")
	// ErrDuplicateKey: a key occurs more than once and uniqueness is enforced.
	ErrDuplicateKey = errors.New("duplicate key")
)

// KeyError names the key an operation failed on.
type KeyError struct {
	Key string
	Err error
}

func (e *KeyError) Error() string { return fmt.Sprintf("%v: %q", e.Err, e.Key) }
func (e *KeyError) Unwrap() error { return e.Err }

// ParseError locates a malformed line in an index file.
type ParseError struct {
	Path   string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: %s:%d: %s", ErrIndexRead, e.Path, e.Line, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrIndexRead }

// NotFound returns a KeyError wrapping ErrKeyNotFound.
func NotFound(key string) error {
	return &KeyError{Key: key, Err: ErrKeyNotFound}
}
